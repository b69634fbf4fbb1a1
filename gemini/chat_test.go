package gemini

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sentient-partners/sentient-agent/functions"
)

type discardNotifier struct{}

func (discardNotifier) Toast(level, message string) {}
func (discardNotifier) OpenBooking(url string)      {}

func newDemoChat() *ChatService {
	dispatcher := functions.NewDispatcher(functions.NewRelay("http://invalid.local"), discardNotifier{}, "https://cal.example.com", "")
	return NewChatService(nil, dispatcher)
}

func TestChatServiceDemoMode(t *testing.T) {
	t.Run("returns canned reply", func(t *testing.T) {
		chat := newDemoChat()

		var streamed strings.Builder
		reply, err := chat.SendMessage(context.Background(), "What do you cost?", func(chunk string) {
			streamed.WriteString(chunk)
		})
		if err != nil {
			t.Fatalf("demo mode errored: %v", err)
		}
		if !strings.Contains(reply, "Demo Mode") {
			t.Errorf("reply %q is not the demo notice", reply)
		}
		if streamed.String() != reply {
			t.Errorf("streamed %q differs from returned reply %q", streamed.String(), reply)
		}
	})

	t.Run("concurrent sends serialize", func(t *testing.T) {
		chat := newDemoChat()

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = chat.SendMessage(context.Background(), "hello", func(string) {})
			}()
		}
		wg.Wait()

		// each exchange must land as an adjacent USER/MODEL pair; interleaved
		// pairs mean two exchanges ran on the session at once
		lines := strings.Split(chat.RenderLog(), "\n")
		if len(lines) != 8 {
			t.Fatalf("got %d log lines, want 8", len(lines))
		}
		for i := 0; i < len(lines); i += 2 {
			if !strings.HasPrefix(lines[i], "[USER]") || !strings.HasPrefix(lines[i+1], "[MODEL]") {
				t.Fatalf("exchange %d interleaved: %q / %q", i/2, lines[i], lines[i+1])
			}
		}
	})

	t.Run("log records both sides", func(t *testing.T) {
		chat := newDemoChat()
		_, _ = chat.SendMessage(context.Background(), "hello", func(string) {})

		logText := chat.RenderLog()
		if !strings.Contains(logText, "[USER]: hello") {
			t.Errorf("user line missing from log %q", logText)
		}
		if !strings.Contains(logText, "[MODEL]:") {
			t.Errorf("model line missing from log %q", logText)
		}
	})
}

func TestSystemInstructionContext(t *testing.T) {
	now, err := time.Parse(time.RFC3339, "2026-03-02T15:04:05Z")
	if err != nil {
		t.Fatalf("bad test time: %v", err)
	}
	out := SystemInstructionWithContext(now)
	if !strings.Contains(out, "Monday, March 2, 2026") {
		t.Errorf("date context missing from instruction")
	}
	if !strings.Contains(out, "3:04:05 PM") {
		t.Errorf("time context missing from instruction")
	}

	voice := VoiceSystemInstruction(now)
	if !strings.Contains(voice, "[VOICE MODE ACTIVE]") {
		t.Error("voice protocol missing from voice instruction")
	}
	if !strings.Contains(voice, "Sentient Partners") {
		t.Error("base identity missing from voice instruction")
	}
}
