package gemini

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/sentient-partners/sentient-agent/functions"
)

const demoReply = "I'm operating in Demo Mode. Please configure your API Key to enable the full Sentient experience."

// ChatService wraps the streaming text chat: one lazily-created session with
// the same tool surface as voice, plus a demo-mode fallback when no client is
// configured.
type ChatService struct {
	client     *genai.Client // nil in demo mode
	dispatcher *functions.Dispatcher

	// sendMu serializes whole message exchanges: genai.Chat does not document
	// concurrent SendMessageStream as safe
	sendMu sync.Mutex

	mu   sync.Mutex
	chat *genai.Chat
	logs []string
}

// NewChatService creates the chat wrapper; client may be nil for demo mode
func NewChatService(client *genai.Client, dispatcher *functions.Dispatcher) *ChatService {
	return &ChatService{client: client, dispatcher: dispatcher}
}

func (s *ChatService) ensureChat(ctx context.Context) (*genai.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.chat != nil {
		return s.chat, nil
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{
				{Text: SystemInstructionWithContext(time.Now())},
			},
		},
		Tools: buildTools(),
	}
	chat, err := s.client.Chats.Create(ctx, chatModel, config, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat session: %w", err)
	}
	s.chat = chat
	return chat, nil
}

// SendMessage streams a reply for one user message, resolving tool calls
// between streaming rounds until a pure text turn arrives. Chunks go to
// onChunk as they arrive; the concatenated reply is returned.
func (s *ChatService) SendMessage(ctx context.Context, message string, onChunk func(text string)) (string, error) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.appendLog("USER", message)

	if s.client == nil {
		time.Sleep(600 * time.Millisecond)
		onChunk(demoReply)
		s.appendLog("MODEL", demoReply)
		return demoReply, nil
	}

	chat, err := s.ensureChat(ctx)
	if err != nil {
		return "", err
	}

	var full strings.Builder
	parts := []genai.Part{{Text: message}}

	for {
		var toolCalls []*genai.FunctionCall

		for resp, err := range chat.SendMessageStream(ctx, parts...) {
			if err != nil {
				return full.String(), fmt.Errorf("chat stream failed: %w", err)
			}
			if text := resp.Text(); text != "" {
				full.WriteString(text)
				onChunk(text)
			}
			toolCalls = append(toolCalls, resp.FunctionCalls()...)
		}

		if len(toolCalls) == 0 {
			break
		}

		parts = parts[:0]
		for _, call := range toolCalls {
			result := s.dispatcher.Dispatch(ctx, functions.Call{ID: call.ID, Name: call.Name, Args: call.Args})
			parts = append(parts, genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:       result.ID,
					Name:     result.Name,
					Response: map[string]any{"result": result.Response},
				},
			})
		}
	}

	reply := full.String()
	s.appendLog("MODEL", reply)
	return reply, nil
}

// InjectSystemMessage pushes a synthetic instruction through the chat, used
// when an external booking completes outside the conversation.
func (s *ChatService) InjectSystemMessage(ctx context.Context, systemText string, onChunk func(text string)) (string, error) {
	log.Printf("💬 Injecting system message into chat")
	return s.SendMessage(ctx, systemText, onChunk)
}

func (s *ChatService) appendLog(role, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	s.mu.Lock()
	s.logs = append(s.logs, fmt.Sprintf("[%s]: %s", role, text))
	s.mu.Unlock()
}

// RenderLog formats the chat history for the transcript relay
func (s *ChatService) RenderLog() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.logs, "\n")
}
