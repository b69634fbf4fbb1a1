package session

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sentient-partners/sentient-agent/functions"
	"github.com/sentient-partners/sentient-agent/gemini"
	"github.com/sentient-partners/sentient-agent/transcript"
	"github.com/sentient-partners/sentient-agent/visual"
)

// Agent coordinates the voice controller, the text chat, the tool dispatcher
// and the visualizer behind the typed UI surface. One agent serves all
// connected widget clients.
type Agent struct {
	controller *Controller
	chat       *gemini.ChatService
	dispatcher *functions.Dispatcher
	acc        *transcript.Accumulator
	renderer   *visual.Renderer
	ui         UI

	demoMode     bool
	visualizerHz int
}

// NewAgent wires the coordinator. demoMode disables voice with an advisory
// instead of failing mid-connect.
func NewAgent(controller *Controller, chat *gemini.ChatService, dispatcher *functions.Dispatcher, acc *transcript.Accumulator, renderer *visual.Renderer, ui UI, demoMode bool, visualizerHz int) *Agent {
	return &Agent{
		controller:   controller,
		chat:         chat,
		dispatcher:   dispatcher,
		acc:          acc,
		renderer:     renderer,
		ui:           ui,
		demoMode:     demoMode,
		visualizerHz: visualizerHz,
	}
}

// StartVoice begins a live voice session, or advises when running without an
// API key.
func (a *Agent) StartVoice() {
	if a.demoMode {
		a.ui.Toast("info", "Voice requires an API key. Running in demo mode.")
		return
	}
	a.controller.Start()
}

// StopVoice ends the live voice session; no-op when none is active
func (a *Agent) StopVoice() {
	a.controller.Stop()
}

// Chat streams a text reply for one user message. Chunks flow back tagged
// with the caller's message id; the final chunk carries done=true.
func (a *Agent) Chat(id, text string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		_, err := a.chat.SendMessage(ctx, text, func(chunk string) {
			a.ui.ChatChunk(id, chunk, false)
		})
		if err != nil {
			log.Printf("❌ chat failed: %v", err)
			a.ui.Toast("error", "Chat is temporarily unavailable.")
		}
		a.ui.ChatChunk(id, "", true)
	}()
}

// BookingCompleted reacts to an external calendar confirmation: a toast, then
// a synthetic system message so the model acknowledges the booking in the
// conversation.
func (a *Agent) BookingCompleted(detail string) {
	a.ui.Toast("success", "Booking confirmed!")
	if a.demoMode {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		msg := "[SYSTEM EVENT] The user just completed a booking through the calendar"
		if detail != "" {
			msg += " (" + detail + ")"
		}
		msg += ". Acknowledge the confirmed appointment warmly and briefly."

		_, err := a.chat.InjectSystemMessage(ctx, msg, func(chunk string) {
			a.ui.ChatChunk("booking-"+fmt.Sprint(time.Now().UnixMilli()), chunk, false)
		})
		if err != nil {
			log.Printf("⚠️ booking acknowledgement failed: %v", err)
		}
	}()
}

// SaveTranscript relays the combined chat and voice logs to the team
func (a *Agent) SaveTranscript() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		a.dispatcher.SendTranscript(ctx, a.chat.RenderLog(), a.acc.RenderLog())
	}()
}

// Run drives the visualizer frame ticker until ctx is cancelled
func (a *Agent) Run(ctx context.Context) {
	interval := time.Second / time.Duration(a.visualizerHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.ui.VisualizerFrame(a.renderer.Frame(a.visualMode()))
		}
	}
}

func (a *Agent) visualMode() visual.Mode {
	switch a.controller.State() {
	case StateConnecting:
		return visual.ModeConnecting
	case StateOpen:
		return visual.ModeLive
	default:
		return visual.ModeIdle
	}
}
