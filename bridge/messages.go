package bridge

import "github.com/sentient-partners/sentient-agent/transcript"

// Error codes
const (
	ErrCodeInvalidMessage = "INVALID_MESSAGE"
	ErrCodeUnknownType    = "UNKNOWN_TYPE"
	ErrCodeBufferFull     = "BUFFER_FULL"
)

// Inbound message types (widget → agent)
const (
	TypeStartVoice       = "start_voice"
	TypeStopVoice        = "stop_voice"
	TypeChat             = "chat"
	TypeBookingCompleted = "booking_completed"
	TypeSaveTranscript   = "save_transcript"
	TypePing             = "ping"
)

// Outbound message types (agent → widget)
const (
	TypeToast       = "toast"
	TypeChatChunk   = "chat_chunk"
	TypeVoiceState  = "voice_state"
	TypeSpeaking    = "speaking"
	TypeTranscript  = "transcript"
	TypeOpenBooking = "open_booking"
	TypeVisualizer  = "visualizer"
	TypeError       = "error"
	TypePong        = "pong"
)

// ClientMessage is one typed message from the widget
type ClientMessage struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`     // chat correlation id
	Text   string `json:"text,omitempty"`   // chat message body
	Detail string `json:"detail,omitempty"` // booking confirmation detail
}

// ServerMessage is one typed message to the widget
type ServerMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// ToastPayload is a transient user notification
type ToastPayload struct {
	Level   string `json:"level"` // "info", "success", "error"
	Message string `json:"message"`
}

// ChatChunkPayload is one streamed chat fragment
type ChatChunkPayload struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// VoiceStatePayload carries the voice session lifecycle phase
type VoiceStatePayload struct {
	State string `json:"state"` // "idle", "connecting", "live", "error"
}

// SpeakingPayload reports whether model audio is currently playing
type SpeakingPayload struct {
	Speaking bool `json:"speaking"`
}

// TranscriptPayload carries the finalized conversation turns
type TranscriptPayload struct {
	Turns []transcript.Turn `json:"turns"`
}

// OpenBookingPayload instructs the widget to open the calendar
type OpenBookingPayload struct {
	URL string `json:"url"`
}

// VisualizerPayload carries one frame of radial bar lengths
type VisualizerPayload struct {
	Bars []float32 `json:"bars"`
}

// ErrorPayload reports a protocol-level failure
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewToastMessage creates a toast notification
func NewToastMessage(level, message string) *ServerMessage {
	return &ServerMessage{Type: TypeToast, Payload: ToastPayload{Level: level, Message: message}}
}

// NewChatChunkMessage creates one streamed chat fragment
func NewChatChunkMessage(id, text string, done bool) *ServerMessage {
	return &ServerMessage{Type: TypeChatChunk, Payload: ChatChunkPayload{ID: id, Text: text, Done: done}}
}

// NewVoiceStateMessage creates a voice lifecycle update
func NewVoiceStateMessage(state string) *ServerMessage {
	return &ServerMessage{Type: TypeVoiceState, Payload: VoiceStatePayload{State: state}}
}

// NewSpeakingMessage creates a playback activity update
func NewSpeakingMessage(speaking bool) *ServerMessage {
	return &ServerMessage{Type: TypeSpeaking, Payload: SpeakingPayload{Speaking: speaking}}
}

// NewTranscriptMessage creates a transcript snapshot
func NewTranscriptMessage(turns []transcript.Turn) *ServerMessage {
	return &ServerMessage{Type: TypeTranscript, Payload: TranscriptPayload{Turns: turns}}
}

// NewOpenBookingMessage creates a calendar-open instruction
func NewOpenBookingMessage(url string) *ServerMessage {
	return &ServerMessage{Type: TypeOpenBooking, Payload: OpenBookingPayload{URL: url}}
}

// NewVisualizerMessage creates one visualizer frame
func NewVisualizerMessage(bars []float32) *ServerMessage {
	return &ServerMessage{Type: TypeVisualizer, Payload: VisualizerPayload{Bars: bars}}
}

// NewErrorMessage creates a protocol error
func NewErrorMessage(code, message string) *ServerMessage {
	return &ServerMessage{Type: TypeError, Payload: ErrorPayload{Code: code, Message: message}}
}

// NewPongMessage answers a ping
func NewPongMessage() *ServerMessage {
	return &ServerMessage{Type: TypePong}
}
