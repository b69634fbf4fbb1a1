package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"

	"google.golang.org/genai"

	"github.com/sentient-partners/sentient-agent/audio"
	"github.com/sentient-partners/sentient-agent/functions"
	"github.com/sentient-partners/sentient-agent/transcript"
)

// State is the live session lifecycle phase
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateOpen       State = "live"
	StateClosing    State = "closing"
	StateError      State = "error"
)

// Events carries the inbound event handlers a stream invokes, in strict
// arrival order, from its receive loop.
type Events struct {
	Audio               func(pcm []byte)
	InputTranscription  func(text string)
	OutputTranscription func(text string)
	TurnComplete        func()
	Interrupted         func()
	ToolCall            func(calls []functions.Call)
	Err                 func(err error)
}

// Stream is one bidirectional voice connection. Open returning without error
// is the remote open acknowledgement.
type Stream interface {
	Open(ctx context.Context, ev Events) error
	SendAudio(media *genai.Blob) error
	SendToolResponses(results []functions.Result) error
	Close() error
}

// StreamFactory creates a fresh stream per session attempt
type StreamFactory func() Stream

// CaptureSource owns the input device; satisfied by audio.Capture
type CaptureSource interface {
	Start(sink audio.FrameSink) error
	Stop()
}

// Player owns playback scheduling; satisfied by audio.Scheduler
type Player interface {
	Enqueue(samples []float32)
	Interrupt()
	Speaking() bool
}

// UI is the typed surface the session pushes user-visible effects through,
// replacing ambient event broadcast with explicit message passing.
type UI interface {
	Toast(level, message string)
	OpenBooking(url string)
	VoiceState(state string)
	TranscriptUpdated(turns []transcript.Turn)
	SpeakingChanged(speaking bool)
	ChatChunk(id, text string, done bool)
	VisualizerFrame(bars []float32)
}

const outboundQueueSize = 32

// Controller owns the live voice session lifecycle: device acquisition,
// stream connection, outbound frame pumping, inbound event routing, and a
// single shared teardown path reachable from both local stop and remote
// close.
type Controller struct {
	newStream   StreamFactory
	capture     CaptureSource
	player      Player
	acc         *transcript.Accumulator
	dispatcher  *functions.Dispatcher
	ui          UI
	captureRate int

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	stream Stream

	// streaming gates capture frames; frames captured before the open
	// acknowledgement or after teardown are dropped, not queued
	streaming atomic.Bool
	outbound  chan *genai.Blob
}

// NewController wires the session core. The accumulator is shared with the
// transcript relay.
func NewController(newStream StreamFactory, capture CaptureSource, player Player, acc *transcript.Accumulator, dispatcher *functions.Dispatcher, ui UI, captureRate int) *Controller {
	return &Controller{
		newStream:   newStream,
		capture:     capture,
		player:      player,
		acc:         acc,
		dispatcher:  dispatcher,
		ui:          ui,
		captureRate: captureRate,
	}
}

// State returns the current lifecycle phase
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Active reports whether a session is connecting or open
func (c *Controller) Active() bool {
	s := c.State()
	return s == StateConnecting || s == StateOpen
}

// Start begins a session. Guarded: a second call while a session is
// connecting or open is a no-op, so a rapid double trigger acquires exactly
// one device and opens exactly one stream.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.state == "" {
		c.state = StateIdle
	}
	if c.state != StateIdle && c.state != StateError {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.outbound = make(chan *genai.Blob, outboundQueueSize)
	c.mu.Unlock()

	c.ui.VoiceState(string(StateConnecting))
	go c.connect(ctx)
}

func (c *Controller) connect(ctx context.Context) {
	if err := c.capture.Start(c.onFrame); err != nil {
		c.teardown(captureFailureReason(err))
		return
	}

	// cancellation token checked after every suspension point: a stop that
	// raced the acquisition releases the device instead of wiring it in
	if ctx.Err() != nil {
		c.capture.Stop()
		return
	}

	stream := c.newStream()
	err := stream.Open(ctx, Events{
		Audio:               c.onAudio,
		InputTranscription:  func(text string) { c.acc.Append(transcript.RoleUser, text) },
		OutputTranscription: func(text string) { c.acc.Append(transcript.RoleModel, text) },
		TurnComplete:        c.onTurnComplete,
		Interrupted:         c.onInterrupted,
		ToolCall:            c.onToolCall,
		Err:                 c.onStreamError,
	})
	if err != nil {
		log.Printf("❌ live connect failed: %v", err)
		c.capture.Stop()
		c.teardown("Connection failed.")
		return
	}

	c.mu.Lock()
	if ctx.Err() != nil || c.state != StateConnecting {
		c.mu.Unlock()
		_ = stream.Close()
		c.capture.Stop()
		return
	}
	c.stream = stream
	c.state = StateOpen
	outbound := c.outbound
	c.mu.Unlock()

	c.streaming.Store(true)
	go c.sendLoop(ctx, stream, outbound)
	c.ui.VoiceState(string(StateOpen))
}

// onFrame runs on the capture device callback; it must never block, so
// frames are handed to the sender queue and dropped when the queue is full.
func (c *Controller) onFrame(samples []float32) {
	if !c.streaming.Load() {
		return
	}
	blob := audio.PCMBlob(samples, c.captureRate)

	c.mu.Lock()
	outbound := c.outbound
	c.mu.Unlock()
	if outbound == nil {
		return
	}
	select {
	case outbound <- blob:
	default:
		// transport is behind; dropping throttles naturally
	}
}

func (c *Controller) sendLoop(ctx context.Context, stream Stream, outbound <-chan *genai.Blob) {
	for {
		select {
		case <-ctx.Done():
			return
		case blob, ok := <-outbound:
			if !ok {
				return
			}
			if err := stream.SendAudio(blob); err != nil {
				if ctx.Err() == nil {
					log.Printf("⚠️ frame send failed: %v", err)
				}
				return
			}
		}
	}
}

func (c *Controller) onAudio(pcm []byte) {
	samples, err := audio.PCMToFloats(pcm, 1)
	if err != nil {
		// malformed payloads are dropped, never fatal
		log.Printf("⚠️ dropping undecodable audio event: %v", err)
		return
	}
	c.player.Enqueue(samples)
	c.ui.SpeakingChanged(true)
}

func (c *Controller) onTurnComplete() {
	c.acc.FinalizeTurn()
	c.ui.TranscriptUpdated(c.acc.History())
}

// onInterrupted models user barge-in: the remote cut off its own playback,
// and local state must match instantly.
func (c *Controller) onInterrupted() {
	c.player.Interrupt()
	c.acc.DiscardPendingModel()
	c.ui.SpeakingChanged(false)
}

// onToolCall resolves a whole batch and replies before the receive loop
// advances to the next event.
func (c *Controller) onToolCall(calls []functions.Call) {
	c.mu.Lock()
	stream := c.stream
	c.mu.Unlock()
	if stream == nil {
		return
	}

	ctx := context.Background()
	results := make([]functions.Result, 0, len(calls))
	for _, call := range calls {
		results = append(results, c.dispatcher.Dispatch(ctx, call))
	}
	if err := stream.SendToolResponses(results); err != nil {
		log.Printf("❌ failed to send tool responses: %v", err)
	}
}

func (c *Controller) onStreamError(err error) {
	log.Printf("❌ live stream error: %v", err)
	c.teardown("Connection failed.")
}

// Stop closes the session from the local side. Idempotent and safe during
// any transition.
func (c *Controller) Stop() {
	c.teardown("")
}

// teardown is the single cleanup routine shared by local stop, connect
// failures, and remote close/error. A non-empty reason marks the session as
// failed and surfaces the reason as a toast.
func (c *Controller) teardown(reason string) {
	c.mu.Lock()
	if c.state == StateIdle || c.state == StateClosing || c.state == "" {
		c.mu.Unlock()
		return
	}
	c.state = StateClosing
	cancel := c.cancel
	stream := c.stream
	c.cancel = nil
	c.stream = nil
	c.outbound = nil
	c.mu.Unlock()

	c.streaming.Store(false)
	if cancel != nil {
		cancel()
	}
	c.capture.Stop()
	c.player.Interrupt()
	c.acc.FlushAll()
	c.ui.TranscriptUpdated(c.acc.History())
	if stream != nil {
		_ = stream.Close()
	}

	c.mu.Lock()
	if reason != "" {
		c.state = StateError
	} else {
		c.state = StateIdle
	}
	c.mu.Unlock()

	c.ui.SpeakingChanged(false)
	if reason != "" {
		c.ui.Toast("error", reason)
		c.ui.VoiceState(string(StateError))
	} else {
		c.ui.VoiceState(string(StateIdle))
	}
}

func captureFailureReason(err error) string {
	switch {
	case errors.Is(err, audio.ErrPermissionDenied):
		return "Microphone permission denied."
	case errors.Is(err, audio.ErrCaptureUnsupported):
		return "Audio capture is not supported on this system."
	case errors.Is(err, audio.ErrNoInputDevice):
		return "No microphone found."
	default:
		return "Microphone error."
	}
}
