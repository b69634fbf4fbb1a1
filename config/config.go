package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all agent configuration
type Config struct {
	Port           int
	GeminiAPIKey   string // empty means demo mode: canned chat answers, voice disabled
	AllowedOrigins []string
	ClientTimeout  time.Duration
	LeadEmail      string
	RelayEndpoint  string
	BookingURL     string
	FallbackDir    string // where lead/transcript fallback files are written
	CaptureRate    int    // microphone sample rate in Hz
	PlaybackRate   int    // model audio sample rate in Hz
	CaptureFrame   int    // samples per outbound audio frame
	VisualizerHz   int    // visualizer frame broadcast rate
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	config := &Config{
		Port:           8080,
		AllowedOrigins: []string{"*"},
		ClientTimeout:  30 * time.Minute,
		LeadEmail:      "troyhill@sentientpartners.ai",
		BookingURL:     "https://cal.com/sentient-partners/20-minute-ai-discovery-call",
		FallbackDir:    ".",
		CaptureRate:    16000,
		PlaybackRate:   24000,
		CaptureFrame:   4096,
		VisualizerHz:   30,
	}

	// Optional: GEMINI_API_KEY — absence degrades to demo mode instead of failing
	config.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")

	// Optional: PORT
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		config.Port = p
	}

	// Optional: ALLOWED_ORIGINS (comma-separated)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = strings.Split(origins, ",")
	}

	// Optional: CLIENT_TIMEOUT (in minutes)
	if timeout := os.Getenv("CLIENT_TIMEOUT"); timeout != "" {
		t, err := strconv.Atoi(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid CLIENT_TIMEOUT: %w", err)
		}
		config.ClientTimeout = time.Duration(t) * time.Minute
	}

	// Optional: LEAD_EMAIL
	if email := os.Getenv("LEAD_EMAIL"); email != "" {
		config.LeadEmail = email
	}

	// Optional: RELAY_ENDPOINT — overrides the formsubmit endpoint derived from LEAD_EMAIL
	if endpoint := os.Getenv("RELAY_ENDPOINT"); endpoint != "" {
		config.RelayEndpoint = endpoint
	} else {
		config.RelayEndpoint = "https://formsubmit.co/ajax/" + config.LeadEmail
	}

	// Optional: BOOKING_URL
	if url := os.Getenv("BOOKING_URL"); url != "" {
		config.BookingURL = url
	}

	// Optional: FALLBACK_DIR
	if dir := os.Getenv("FALLBACK_DIR"); dir != "" {
		config.FallbackDir = dir
	}

	// Optional: CAPTURE_FRAME (samples per outbound frame)
	if frame := os.Getenv("CAPTURE_FRAME"); frame != "" {
		f, err := strconv.Atoi(frame)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid CAPTURE_FRAME: %q", frame)
		}
		config.CaptureFrame = f
	}

	return config, nil
}

// DemoMode reports whether the agent runs without a live model behind it
func (c *Config) DemoMode() bool {
	return c.GeminiAPIKey == ""
}
