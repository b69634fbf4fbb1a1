package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/genai"

	"github.com/sentient-partners/sentient-agent/audio"
	"github.com/sentient-partners/sentient-agent/functions"
	"github.com/sentient-partners/sentient-agent/transcript"
)

// fakeStream is a controllable Stream; Open blocks until release is closed
// when blocking is set.
type fakeStream struct {
	mu          sync.Mutex
	openCount   int
	openErr     error
	blocking    bool
	release     chan struct{}
	events      Events
	closed      bool
	sentAudio   []*genai.Blob
	toolReplies [][]functions.Result
}

func newFakeStream() *fakeStream {
	return &fakeStream{release: make(chan struct{})}
}

func (f *fakeStream) Open(ctx context.Context, ev Events) error {
	f.mu.Lock()
	f.openCount++
	f.events = ev
	blocking := f.blocking
	err := f.openErr
	f.mu.Unlock()
	if blocking {
		<-f.release
	}
	return err
}

func (f *fakeStream) SendAudio(media *genai.Blob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentAudio = append(f.sentAudio, media)
	return nil
}

func (f *fakeStream) SendToolResponses(results []functions.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toolReplies = append(f.toolReplies, results)
	return nil
}

func (f *fakeStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeStream) opens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.openCount
}

func (f *fakeStream) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fakeCapture counts device acquisitions
type fakeCapture struct {
	mu         sync.Mutex
	startCount int
	stopCount  int
	startErr   error
	sink       audio.FrameSink
}

func (f *fakeCapture) Start(sink audio.FrameSink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.startCount++
	f.sink = sink
	return nil
}

func (f *fakeCapture) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCount++
}

func (f *fakeCapture) starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCount
}

func (f *fakeCapture) stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCount
}

// fakePlayer records enqueue and interrupt calls
type fakePlayer struct {
	mu         sync.Mutex
	enqueued   [][]float32
	interrupts int
}

func (f *fakePlayer) Enqueue(samples []float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, samples)
}

func (f *fakePlayer) Interrupt() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interrupts++
}

func (f *fakePlayer) Speaking() bool { return false }

func (f *fakePlayer) enqueues() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.enqueued)
}

func (f *fakePlayer) interruptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.interrupts
}

// fakeUI records every surface push
type fakeUI struct {
	mu          sync.Mutex
	toasts      []string
	voiceStates []string
	speaking    []bool
	transcripts [][]transcript.Turn
}

func (f *fakeUI) Toast(level, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toasts = append(f.toasts, level+": "+message)
}

func (f *fakeUI) OpenBooking(url string) {}

func (f *fakeUI) VoiceState(state string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voiceStates = append(f.voiceStates, state)
}

func (f *fakeUI) TranscriptUpdated(turns []transcript.Turn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcripts = append(f.transcripts, turns)
}

func (f *fakeUI) SpeakingChanged(speaking bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.speaking = append(f.speaking, speaking)
}

func (f *fakeUI) ChatChunk(id, text string, done bool) {}

func (f *fakeUI) VisualizerFrame(bars []float32) {}

func (f *fakeUI) lastToast() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.toasts) == 0 {
		return ""
	}
	return f.toasts[len(f.toasts)-1]
}

func (f *fakeUI) lastVoiceState() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.voiceStates) == 0 {
		return ""
	}
	return f.voiceStates[len(f.voiceStates)-1]
}

type fixture struct {
	controller *Controller
	stream     *fakeStream
	capture    *fakeCapture
	player     *fakePlayer
	ui         *fakeUI
	acc        *transcript.Accumulator
}

type nullNotifier struct{}

func (nullNotifier) Toast(level, message string) {}
func (nullNotifier) OpenBooking(url string)      {}

func newFixture() *fixture {
	stream := newFakeStream()
	capture := &fakeCapture{}
	player := &fakePlayer{}
	ui := &fakeUI{}
	acc := transcript.NewAccumulator()
	dispatcher := functions.NewDispatcher(functions.NewRelay("http://invalid.local"), nullNotifier{}, "https://cal.example.com", "")

	controller := NewController(
		func() Stream { return stream },
		capture, player, acc, dispatcher, ui, 16000,
	)
	return &fixture{controller: controller, stream: stream, capture: capture, player: player, ui: ui, acc: acc}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestControllerStart(t *testing.T) {
	t.Run("reaches open state", func(t *testing.T) {
		f := newFixture()
		f.controller.Start()
		waitFor(t, "open state", func() bool { return f.controller.State() == StateOpen })

		if f.capture.starts() != 1 {
			t.Errorf("%d capture acquisitions, want 1", f.capture.starts())
		}
		if f.stream.opens() != 1 {
			t.Errorf("%d stream opens, want 1", f.stream.opens())
		}
		if f.ui.lastVoiceState() != "live" {
			t.Errorf("last voice state %q, want live", f.ui.lastVoiceState())
		}
	})

	t.Run("double start acquires once", func(t *testing.T) {
		f := newFixture()
		f.controller.Start()
		f.controller.Start()
		waitFor(t, "open state", func() bool { return f.controller.State() == StateOpen })
		// the second trigger must have been a no-op
		f.controller.Start()

		if f.capture.starts() != 1 {
			t.Errorf("%d capture acquisitions, want 1", f.capture.starts())
		}
		if f.stream.opens() != 1 {
			t.Errorf("%d stream opens, want 1", f.stream.opens())
		}
	})

	t.Run("permission denied surfaces user message", func(t *testing.T) {
		f := newFixture()
		f.capture.startErr = audio.ErrPermissionDenied
		f.controller.Start()
		waitFor(t, "error state", func() bool { return f.controller.State() == StateError })

		if !strings.Contains(f.ui.lastToast(), "permission denied") {
			t.Errorf("toast %q lacks permission message", f.ui.lastToast())
		}
		if f.stream.opens() != 0 {
			t.Error("stream opened despite capture failure")
		}
	})

	t.Run("connect failure releases capture", func(t *testing.T) {
		f := newFixture()
		f.stream.openErr = errors.New("dial failed")
		f.controller.Start()
		waitFor(t, "error state", func() bool { return f.controller.State() == StateError })

		if f.capture.stops() == 0 {
			t.Error("capture device not released after connect failure")
		}
		if !strings.Contains(f.ui.lastToast(), "Connection failed") {
			t.Errorf("toast %q, want connection failure", f.ui.lastToast())
		}
	})

	t.Run("restart allowed after error", func(t *testing.T) {
		f := newFixture()
		f.capture.startErr = audio.ErrNoInputDevice
		f.controller.Start()
		waitFor(t, "error state", func() bool { return f.controller.State() == StateError })

		f.capture.startErr = nil
		f.controller.Start()
		waitFor(t, "open state", func() bool { return f.controller.State() == StateOpen })
	})

	t.Run("stop during connect releases late acquisition", func(t *testing.T) {
		f := newFixture()
		f.stream.blocking = true
		f.controller.Start()
		waitFor(t, "stream open attempt", func() bool { return f.stream.opens() == 1 })

		f.controller.Stop()
		close(f.stream.release)

		waitFor(t, "stream closed", func() bool { return f.stream.isClosed() })
		if f.controller.State() != StateIdle {
			t.Errorf("state %v, want idle", f.controller.State())
		}
		if f.capture.stops() == 0 {
			t.Error("capture not released")
		}
	})
}

func TestControllerEvents(t *testing.T) {
	open := func(t *testing.T) *fixture {
		t.Helper()
		f := newFixture()
		f.controller.Start()
		waitFor(t, "open state", func() bool { return f.controller.State() == StateOpen })
		return f
	}

	t.Run("audio enqueues playback", func(t *testing.T) {
		f := open(t)
		f.stream.events.Audio(audio.FloatsToPCM([]float32{0.1, 0.2}))
		if f.player.enqueues() != 1 {
			t.Fatalf("%d chunks enqueued, want 1", f.player.enqueues())
		}
	})

	t.Run("malformed audio dropped", func(t *testing.T) {
		f := open(t)
		f.stream.events.Audio([]byte{0x01}) // odd length
		if f.player.enqueues() != 0 {
			t.Error("undecodable audio reached the player")
		}
		if f.controller.State() != StateOpen {
			t.Error("decode error tore down the session")
		}
	})

	t.Run("barge-in discards model text and cuts playback", func(t *testing.T) {
		f := open(t)
		f.stream.events.InputTranscription("Actually, wait")
		f.stream.events.OutputTranscription("Our pricing starts at")
		f.stream.events.Interrupted()

		if f.player.interruptCount() == 0 {
			t.Error("playback not interrupted")
		}
		f.stream.events.TurnComplete()

		history := f.acc.History()
		if len(history) != 1 || history[0].Role != transcript.RoleUser {
			t.Fatalf("history %v, want only the user turn", history)
		}
	})

	t.Run("turn complete publishes transcript", func(t *testing.T) {
		f := open(t)
		f.stream.events.InputTranscription("Hi")
		f.stream.events.OutputTranscription("Hello there")
		f.stream.events.TurnComplete()

		f.ui.mu.Lock()
		published := len(f.ui.transcripts)
		f.ui.mu.Unlock()
		if published == 0 {
			t.Fatal("transcript not published")
		}
		if len(f.acc.History()) != 2 {
			t.Errorf("history has %d turns, want 2", len(f.acc.History()))
		}
	})

	t.Run("tool calls answered in one batch", func(t *testing.T) {
		f := open(t)
		f.stream.events.ToolCall([]functions.Call{
			{ID: "a", Name: functions.ToolScheduleMeeting},
			{ID: "b", Name: "bogus"},
		})

		f.stream.mu.Lock()
		replies := f.stream.toolReplies
		f.stream.mu.Unlock()
		if len(replies) != 1 || len(replies[0]) != 2 {
			t.Fatalf("replies %v, want one batch of two", replies)
		}
		if replies[0][0].Response["success"] != true {
			t.Errorf("scheduleMeeting result %v, want success", replies[0][0].Response)
		}
	})

	t.Run("remote error triggers teardown", func(t *testing.T) {
		f := open(t)
		f.stream.events.Err(errors.New("stream reset"))
		waitFor(t, "error state", func() bool { return f.controller.State() == StateError })

		if !f.stream.isClosed() {
			t.Error("stream not closed on remote error")
		}
		if f.capture.stops() == 0 {
			t.Error("capture not released on remote error")
		}
	})
}

func TestControllerStop(t *testing.T) {
	t.Run("flushes pending transcript", func(t *testing.T) {
		f := newFixture()
		f.controller.Start()
		waitFor(t, "open state", func() bool { return f.controller.State() == StateOpen })

		f.stream.events.InputTranscription("never finalized")
		f.controller.Stop()

		if f.controller.State() != StateIdle {
			t.Fatalf("state %v, want idle", f.controller.State())
		}
		history := f.acc.History()
		if len(history) != 1 || history[0].Text != "never finalized" {
			t.Errorf("pending text lost on teardown: %v", history)
		}
		if !f.stream.isClosed() {
			t.Error("stream left open")
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		f := newFixture()
		f.controller.Stop()
		f.controller.Stop()
		if f.controller.State() != "" && f.controller.State() != StateIdle {
			t.Errorf("state %v after stop on idle controller", f.controller.State())
		}

		f.controller.Start()
		waitFor(t, "open state", func() bool { return f.controller.State() == StateOpen })
		f.controller.Stop()
		f.controller.Stop()
		if f.capture.stops() != 1 {
			t.Errorf("%d capture stops, want 1", f.capture.stops())
		}
	})

	t.Run("frames dropped after stop", func(t *testing.T) {
		f := newFixture()
		f.controller.Start()
		waitFor(t, "open state", func() bool { return f.controller.State() == StateOpen })

		f.capture.mu.Lock()
		sink := f.capture.sink
		f.capture.mu.Unlock()

		f.controller.Stop()
		sink([]float32{0.1, 0.2}) // late device callback must be a no-op

		time.Sleep(20 * time.Millisecond)
		f.stream.mu.Lock()
		sent := len(f.stream.sentAudio)
		f.stream.mu.Unlock()
		if sent != 0 {
			t.Errorf("%d frames sent after stop, want 0", sent)
		}
	})
}

func TestControllerFramePump(t *testing.T) {
	f := newFixture()
	f.controller.Start()
	waitFor(t, "open state", func() bool { return f.controller.State() == StateOpen })

	f.capture.mu.Lock()
	sink := f.capture.sink
	f.capture.mu.Unlock()

	sink(make([]float32, 4096))
	waitFor(t, "frame sent", func() bool {
		f.stream.mu.Lock()
		defer f.stream.mu.Unlock()
		return len(f.stream.sentAudio) == 1
	})

	f.stream.mu.Lock()
	blob := f.stream.sentAudio[0]
	f.stream.mu.Unlock()
	if blob.MIMEType != "audio/pcm;rate=16000" {
		t.Errorf("frame MIME %q, want audio/pcm;rate=16000", blob.MIMEType)
	}
	if len(blob.Data) != 4096*2 {
		t.Errorf("frame %d bytes, want %d", len(blob.Data), 4096*2)
	}
}
