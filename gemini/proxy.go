package gemini

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/sentient-partners/sentient-agent/functions"
)

const (
	liveModel = "models/gemini-2.5-flash-native-audio-preview-09-2025"
	chatModel = "gemini-2.5-flash"
	voiceName = "Zephyr"
)

// NewClient creates the shared GenAI client used by both the live proxy and
// the text chat service.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return client, nil
}

func buildTools() []*genai.Tool {
	return []*genai.Tool{
		functions.Declarations(),
		{GoogleSearch: &genai.GoogleSearch{}},
	}
}

// LiveProxy manages one bidirectional voice connection to the Live API.
// Inbound messages are dispatched in strict arrival order on a single
// receive goroutine.
type LiveProxy struct {
	client  *genai.Client
	session *genai.Session

	// Callbacks for inbound event classes; all invoked from the receive loop
	OnAudio               func(pcm []byte) // raw s16le playback-rate bytes
	OnInputTranscription  func(text string)
	OnOutputTranscription func(text string)
	OnTurnComplete        func()
	OnInterrupted         func()
	OnToolCall            func(calls []functions.Call)
	OnError               func(err error)

	mu     sync.RWMutex
	closed bool
}

// NewLiveProxy wraps an existing client; Connect establishes the session
func NewLiveProxy(client *genai.Client) *LiveProxy {
	return &LiveProxy{client: client}
}

// Connect establishes the live session with audio responses, input/output
// transcription and the tool surface. Returning without error is the remote
// open acknowledgement.
func (gp *LiveProxy) Connect(ctx context.Context) error {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	if gp.closed {
		return fmt.Errorf("proxy is closed")
	}

	config := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{"AUDIO"},
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{
				{Text: VoiceSystemInstruction(time.Now())},
			},
		},
		Tools:                    buildTools(),
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: voiceName,
				},
			},
		},
	}

	session, err := gp.client.Live.Connect(ctx, liveModel, config)
	if err != nil {
		return fmt.Errorf("failed to connect to Live API: %w", err)
	}

	gp.session = session
	log.Printf("✅ Connected to Gemini Live (%s)", liveModel)
	return nil
}

// StartReceiving begins listening for live responses
func (gp *LiveProxy) StartReceiving(ctx context.Context) {
	go func() {
		for {
			gp.mu.RLock()
			if gp.closed || gp.session == nil {
				gp.mu.RUnlock()
				return
			}
			session := gp.session
			gp.mu.RUnlock()

			// Receive blocks until a message arrives or the stream ends
			resp, err := session.Receive()
			if err != nil {
				gp.mu.RLock()
				closed := gp.closed
				gp.mu.RUnlock()

				if !closed && gp.OnError != nil {
					gp.OnError(err)
				}
				return
			}

			gp.handleResponse(resp)
		}
	}()
}

func (gp *LiveProxy) handleResponse(resp *genai.LiveServerMessage) {
	if resp.ToolCall != nil && len(resp.ToolCall.FunctionCalls) > 0 {
		log.Printf("📥 Received %d function call(s)", len(resp.ToolCall.FunctionCalls))
		if gp.OnToolCall != nil {
			calls := make([]functions.Call, 0, len(resp.ToolCall.FunctionCalls))
			for _, fc := range resp.ToolCall.FunctionCalls {
				calls = append(calls, functions.Call{ID: fc.ID, Name: fc.Name, Args: fc.Args})
			}
			gp.OnToolCall(calls)
		}
	}

	sc := resp.ServerContent
	if sc == nil {
		return
	}

	if sc.ModelTurn != nil && gp.OnAudio != nil {
		for _, part := range sc.ModelTurn.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				gp.OnAudio(part.InlineData.Data)
			}
		}
	}

	if sc.InputTranscription != nil && sc.InputTranscription.Text != "" && gp.OnInputTranscription != nil {
		gp.OnInputTranscription(sc.InputTranscription.Text)
	}
	if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" && gp.OnOutputTranscription != nil {
		gp.OnOutputTranscription(sc.OutputTranscription.Text)
	}

	if sc.TurnComplete && gp.OnTurnComplete != nil {
		gp.OnTurnComplete()
	}

	if sc.Interrupted && gp.OnInterrupted != nil {
		gp.OnInterrupted()
	}
}

// SendAudio forwards one encoded capture frame to the live session
func (gp *LiveProxy) SendAudio(media *genai.Blob) error {
	gp.mu.RLock()
	session := gp.session
	closed := gp.closed
	gp.mu.RUnlock()

	if closed || session == nil {
		return fmt.Errorf("proxy is closed or not connected")
	}

	if err := session.SendRealtimeInput(genai.LiveRealtimeInput{Media: media}); err != nil {
		return fmt.Errorf("failed to send audio: %w", err)
	}
	return nil
}

// SendToolResponses replies to a tool-call batch over the open stream
func (gp *LiveProxy) SendToolResponses(results []functions.Result) error {
	gp.mu.RLock()
	session := gp.session
	closed := gp.closed
	gp.mu.RUnlock()

	if closed || session == nil {
		return fmt.Errorf("proxy is closed or not connected")
	}

	responses := make([]*genai.FunctionResponse, 0, len(results))
	for _, r := range results {
		responses = append(responses, &genai.FunctionResponse{
			ID:       r.ID,
			Name:     r.Name,
			Response: r.Response,
		})
	}

	err := session.SendToolResponse(genai.LiveToolResponseInput{
		FunctionResponses: responses,
	})
	if err != nil {
		return fmt.Errorf("failed to send tool response: %w", err)
	}

	log.Printf("📤 Sent %d tool response(s)", len(responses))
	return nil
}

// Close terminates the live connection; idempotent
func (gp *LiveProxy) Close() error {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	if gp.closed {
		return nil
	}
	gp.closed = true

	if gp.session != nil {
		return gp.session.Close()
	}
	return nil
}
