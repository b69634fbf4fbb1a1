package functions

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Call is one tool invocation issued by the remote model mid-session
type Call struct {
	ID   string
	Name string
	Args map[string]any
}

// Result is the reply sent back over the open stream for one invocation
type Result struct {
	ID       string
	Name     string
	Response map[string]any
}

// Notifier delivers tool side effects to the user interface
type Notifier interface {
	Toast(level, message string)
	OpenBooking(url string)
}

// Dispatcher resolves tool invocations locally. Failures never surface as
// session errors; they become structured failure results.
type Dispatcher struct {
	relay       *Relay
	notifier    Notifier
	bookingURL  string
	fallbackDir string
}

// NewDispatcher wires the tool surface
func NewDispatcher(relay *Relay, notifier Notifier, bookingURL, fallbackDir string) *Dispatcher {
	return &Dispatcher{relay: relay, notifier: notifier, bookingURL: bookingURL, fallbackDir: fallbackDir}
}

// Dispatch resolves one invocation. It never panics and never returns an
// error: malformed or failing calls produce a structured error response for
// the model while the session continues.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call) (res Result) {
	res = Result{ID: call.ID, Name: call.Name}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ tool %s panicked: %v", call.Name, r)
			res.Response = map[string]any{"error": fmt.Sprintf("Tool execution failed: %v", r)}
		}
	}()

	log.Printf("🔧 Function call: %s (id: %s)", call.Name, call.ID)

	switch call.Name {
	case ToolScheduleMeeting:
		args, err := parseScheduleMeeting(call.Args)
		if err != nil {
			res.Response = map[string]any{"error": err.Error()}
			return res
		}
		res.Response = d.scheduleMeeting(args)
	case ToolCaptureLead:
		args, err := parseCaptureLead(call.Args)
		if err != nil {
			res.Response = map[string]any{"error": err.Error()}
			return res
		}
		res.Response = d.captureLead(ctx, args)
	default:
		log.Printf("⚠️ Unknown function called: %s", call.Name)
		res.Response = map[string]any{"error": "Function not found"}
	}
	return res
}

// scheduleMeetingArgs carries the optional calendar prefill fields
type scheduleMeetingArgs struct {
	Name  string
	Email string
	Date  string
}

// captureLeadArgs carries validated lead contact details
type captureLeadArgs struct {
	Name    string
	Email   string
	Phone   string
	Inquiry string
}

func parseScheduleMeeting(args map[string]any) (scheduleMeetingArgs, error) {
	var out scheduleMeetingArgs
	var err error
	if out.Name, err = optionalString(args, "name"); err != nil {
		return out, err
	}
	if out.Email, err = optionalString(args, "email"); err != nil {
		return out, err
	}
	if out.Date, err = optionalString(args, "date"); err != nil {
		return out, err
	}
	return out, nil
}

func parseCaptureLead(args map[string]any) (captureLeadArgs, error) {
	var out captureLeadArgs
	var err error
	if out.Name, err = requiredString(args, "name"); err != nil {
		return out, err
	}
	if out.Email, err = requiredString(args, "email"); err != nil {
		return out, err
	}
	if out.Phone, err = optionalString(args, "phone"); err != nil {
		return out, err
	}
	if out.Inquiry, err = optionalString(args, "inquiry"); err != nil {
		return out, err
	}
	return out, nil
}

func optionalString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string", key)
	}
	// the model sometimes sends literal null/undefined text for absent fields
	if s == "null" || s == "undefined" {
		return "", nil
	}
	return s, nil
}

func requiredString(args map[string]any, key string) (string, error) {
	s, err := optionalString(args, key)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("argument %q is required", key)
	}
	return s, nil
}

func (d *Dispatcher) scheduleMeeting(args scheduleMeetingArgs) map[string]any {
	params := url.Values{}
	if args.Name != "" {
		params.Set("name", args.Name)
	}
	if args.Email != "" {
		params.Set("email", args.Email)
	}
	if args.Date != "" {
		params.Set("date", args.Date)
	}

	fullURL := d.bookingURL
	if encoded := params.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	log.Printf("📅 Opening calendar: %s", fullURL)
	d.notifier.OpenBooking(fullURL)
	d.notifier.Toast("success", "Opening Calendar...")

	return map[string]any{
		"success": true,
		"message": "Calendar interface opened successfully.",
	}
}

func (d *Dispatcher) captureLead(ctx context.Context, args captureLeadArgs) map[string]any {
	d.notifier.Toast("info", "Sending information...")

	phone := args.Phone
	if phone == "" {
		phone = "Not provided"
	}
	inquiry := args.Inquiry
	if inquiry == "" {
		inquiry = "General Inquiry"
	}

	result := d.relay.Send(ctx, map[string]any{
		"Lead_Name":    args.Name,
		"Lead_Email":   args.Email,
		"Lead_Phone":   phone,
		"Lead_Inquiry": inquiry,
	}, "New Lead Capture")

	if result.Success {
		d.notifier.Toast("success", "Information sent to team.")
		return map[string]any{
			"success": true,
			"message": "Lead information securely transmitted to the team.",
		}
	}

	log.Printf("⚠️ Lead email failed, saving locally: %s", result.Message)
	content := fmt.Sprintf("LEAD CAPTURE\nName: %s\nEmail: %s\nPhone: %s\nInquiry: %s\nDate: %s\n",
		args.Name, args.Email, phone, inquiry, time.Now().Format(time.RFC1123))
	filename := "lead-" + strings.ReplaceAll(args.Name, " ", "-") + ".txt"
	if err := d.saveFallback(filename, content); err != nil {
		log.Printf("❌ fallback save failed: %v", err)
	} else {
		d.notifier.Toast("info", "Saved to your device.")
	}

	return map[string]any{
		"success": false,
		"message": "Network issue. Information saved to user's device.",
	}
}

// SendTranscript relays the chat and voice logs, falling back to a local file
// when delivery fails. Returns whether any artifact was produced.
func (d *Dispatcher) SendTranscript(ctx context.Context, chatLog, voiceLog string) RelayResult {
	if chatLog == "" && voiceLog == "" {
		return RelayResult{Message: "No content"}
	}

	if chatLog == "" {
		chatLog = "No text chat recorded."
	}
	if voiceLog == "" {
		voiceLog = "No voice interaction recorded."
	}

	result := d.relay.Send(ctx, map[string]any{
		"chat_history":     chatLog,
		"voice_transcript": voiceLog,
	}, "New Client Transcript")

	if result.Success {
		d.notifier.Toast("success", "Transcript sent successfully.")
		return RelayResult{Success: true, Message: "Sent"}
	}

	log.Printf("⚠️ Transcript email failed, initiating fallback save")
	content := fmt.Sprintf("SENTIENT PARTNERS TRANSCRIPT\nDate: %s\n\n--- CHAT LOG ---\n%s\n\n--- VOICE LOG ---\n%s\n",
		time.Now().Format(time.RFC1123), chatLog, voiceLog)
	filename := fmt.Sprintf("transcript-%d.txt", time.Now().UnixMilli())
	if err := d.saveFallback(filename, content); err != nil {
		log.Printf("❌ fallback save failed: %v", err)
		return RelayResult{Message: result.Message}
	}
	d.notifier.Toast("info", "Transcript saved to your device.")
	return RelayResult{Success: true, Message: "Saved locally"}
}

func (d *Dispatcher) saveFallback(filename, content string) error {
	return os.WriteFile(filepath.Join(d.fallbackDir, filename), []byte(content), 0o644)
}
