package functions

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"
)

// RelayResult reports the outcome of one relay submission
type RelayResult struct {
	Success bool
	Message string
}

// Relay performs best-effort outbound delivery of contact details and
// transcripts through the form-to-email endpoint.
type Relay struct {
	endpoint string
	client   *http.Client
}

// NewRelay creates a relay against the given ajax endpoint
func NewRelay(endpoint string) *Relay {
	return &Relay{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Send posts the data fields as a table-formatted email. Never returns an
// error: delivery failures come back as an unsuccessful RelayResult.
func (r *Relay) Send(ctx context.Context, data map[string]any, subject string) RelayResult {
	now := time.Now()

	body := map[string]any{
		"_subject":  subject + " - " + now.Format("1/2/2006, 3:04:05 PM"),
		"_template": "table",
		"_captcha":  "false",
		"source":    "Sentient AI Web Agent",
		"sent_at":   now.Format("1/2/2006, 3:04:05 PM"),
	}
	for k, v := range data {
		body[k] = v
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return RelayResult{Message: "Invalid relay payload."}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return RelayResult{Message: "Invalid relay request."}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		log.Printf("❌ relay network error: %v", err)
		return RelayResult{Message: "Network connection failed."}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return RelayResult{Message: "Network connection failed."}
	}

	var parsed struct {
		Success any    `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return RelayResult{Message: "Invalid response from email server."}
	}

	ok := parsed.Success == true || parsed.Success == "true"
	if resp.StatusCode < 300 && ok {
		if containsFold(parsed.Message, "activate") || containsFold(parsed.Message, "check your email") {
			return RelayResult{Success: true, Message: "Email sent. Check the inbox to activate this endpoint (first time only)."}
		}
		return RelayResult{Success: true, Message: "Email transmitted successfully."}
	}

	msg := parsed.Message
	if msg == "" {
		msg = "Email server rejected the request."
	}
	return RelayResult{Message: msg}
}

// SendTest submits a connection-verification email
func (r *Relay) SendTest(ctx context.Context) RelayResult {
	return r.Send(ctx, map[string]any{
		"Status":    "Connection Verified",
		"Timestamp": time.Now().Format(time.RFC1123),
		"Test_ID":   time.Now().UnixMilli(),
		"Note":      "If you received this email, your transcript system is fully functional.",
		"System":    "Sentient AI Web Agent",
	}, "Connection Test Verification")
}

func containsFold(s, substr string) bool {
	return len(substr) > 0 && bytes.Contains(bytes.ToLower([]byte(s)), bytes.ToLower([]byte(substr)))
}
