package bridge

import (
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sentient-partners/sentient-agent/transcript"
)

// Commander is the agent command surface the widget drives; satisfied by
// session.Agent.
type Commander interface {
	StartVoice()
	StopVoice()
	Chat(id, text string)
	BookingCompleted(detail string)
	SaveTranscript()
}

// Hub tracks connected widget clients and fans agent events out to all of
// them. It is the UI implementation the session layer pushes through.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	agent   Commander
}

// NewHub creates an empty hub; Bind attaches the agent once constructed
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*Client)}
}

// Bind attaches the command surface. The hub and the agent reference each
// other, so the hub is built first and bound after.
func (h *Hub) Bind(agent Commander) {
	h.mu.Lock()
	h.agent = agent
	h.mu.Unlock()
}

func (h *Hub) commander() Commander {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.agent
}

// Register adopts a freshly upgraded connection and starts its pumps
func (h *Hub) Register(conn *websocket.Conn) *Client {
	client := newClient(uuid.New().String(), conn, h)

	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	client.start()
	log.Printf("✅ Widget connected: %s", client.shortID())
	return client
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	_, existed := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()

	if existed {
		log.Printf("🔌 Widget disconnected: %s", shortID(id))
	}
}

// Count returns the number of connected widgets
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues a message on every connected client
func (h *Hub) Broadcast(msg *ServerMessage) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.queueMessage(msg)
	}
}

// Shutdown closes every client connection
func (h *Hub) Shutdown() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
}

// Toast sends a transient notification to all widgets
func (h *Hub) Toast(level, message string) {
	h.Broadcast(NewToastMessage(level, message))
}

// OpenBooking instructs all widgets to open the calendar
func (h *Hub) OpenBooking(url string) {
	h.Broadcast(NewOpenBookingMessage(url))
}

// VoiceState publishes the voice session lifecycle phase
func (h *Hub) VoiceState(state string) {
	h.Broadcast(NewVoiceStateMessage(state))
}

// TranscriptUpdated publishes a transcript snapshot
func (h *Hub) TranscriptUpdated(turns []transcript.Turn) {
	h.Broadcast(NewTranscriptMessage(turns))
}

// SpeakingChanged publishes playback activity
func (h *Hub) SpeakingChanged(speaking bool) {
	h.Broadcast(NewSpeakingMessage(speaking))
}

// ChatChunk streams one chat fragment
func (h *Hub) ChatChunk(id, text string, done bool) {
	h.Broadcast(NewChatChunkMessage(id, text, done))
}

// VisualizerFrame ships one frame of bar lengths
func (h *Hub) VisualizerFrame(bars []float32) {
	h.Broadcast(NewVisualizerMessage(bars))
}

func shortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}
