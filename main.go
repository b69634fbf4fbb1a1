package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sentient-partners/sentient-agent/audio"
	"github.com/sentient-partners/sentient-agent/bridge"
	"github.com/sentient-partners/sentient-agent/config"
	"github.com/sentient-partners/sentient-agent/functions"
	"github.com/sentient-partners/sentient-agent/gemini"
	"github.com/sentient-partners/sentient-agent/session"
	"github.com/sentient-partners/sentient-agent/transcript"
	"github.com/sentient-partners/sentient-agent/visual"

	"google.golang.org/genai"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// GenAI client is optional: without a key the agent answers chat with a
	// canned reply and voice is disabled with an advisory
	var client *genai.Client
	if cfg.DemoMode() {
		log.Println("⚠️ GEMINI_API_KEY not set — running in demo mode")
	} else {
		client, err = gemini.NewClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			log.Fatalf("Failed to create GenAI client: %v", err)
		}
	}

	// Widget bridge hub doubles as the UI surface for toasts, transcripts,
	// chat chunks and visualizer frames
	hub := bridge.NewHub()

	relay := functions.NewRelay(cfg.RelayEndpoint)
	dispatcher := functions.NewDispatcher(relay, hub, cfg.BookingURL, cfg.FallbackDir)

	// Audio path: a missing output device degrades to silent scheduling
	// instead of refusing to start
	var sink audio.Sink
	var otoSink *audio.OtoSink
	if s, err := audio.NewOtoSink(cfg.PlaybackRate); err != nil {
		log.Printf("⚠️ Audio output unavailable, playback disabled: %v", err)
		sink = audio.DiscardSink{}
	} else {
		otoSink = s
		sink = s
	}
	scheduler := audio.NewScheduler(audio.NewRealClock(), sink, cfg.PlaybackRate, func() {
		hub.SpeakingChanged(false)
	})
	capture := audio.NewCapture(cfg.CaptureRate, cfg.CaptureFrame)

	acc := transcript.NewAccumulator()
	controller := session.NewController(
		session.NewLiveStreamFactory(client),
		capture,
		scheduler,
		acc,
		dispatcher,
		hub,
		cfg.CaptureRate,
	)

	chat := gemini.NewChatService(client, dispatcher)
	renderer := visual.NewRenderer(scheduler)

	agent := session.NewAgent(controller, chat, dispatcher, acc, renderer, hub, cfg.DemoMode(), cfg.VisualizerHz)
	hub.Bind(agent)
	go agent.Run(ctx)

	srv := bridge.NewServer(cfg, hub)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("\nReceived shutdown signal...")
		controller.Stop()
		if otoSink != nil {
			otoSink.Suspend()
		}
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Agent stopped")
}
