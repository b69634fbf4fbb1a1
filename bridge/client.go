package bridge

import (
	"log"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

const (
	writeBufferSize = 256
	writeTimeout    = 10 * time.Second
)

// Client is one connected widget over WebSocket. All outgoing writes funnel
// through a single writePump goroutine; queueing never blocks.
type Client struct {
	ID   string
	conn *websocket.Conn
	hub  *Hub

	writeChan chan *ServerMessage

	mu        sync.RWMutex
	closed    bool
	CloseChan chan struct{}
}

func newClient(id string, conn *websocket.Conn, hub *Hub) *Client {
	conn.SetReadLimit(64 * 1024)

	return &Client{
		ID:        id,
		conn:      conn,
		hub:       hub,
		writeChan: make(chan *ServerMessage, writeBufferSize),
		CloseChan: make(chan struct{}),
	}
}

// start begins the read and write loops
func (c *Client) start() {
	go c.writePump()
	go c.readLoop()
}

// writePump handles all outgoing messages in a single goroutine
func (c *Client) writePump() {
	defer func() {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		_ = c.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
	}()

	for {
		select {
		case <-c.CloseChan:
			return
		case msg, ok := <-c.writeChan:
			if !ok {
				return
			}
			if err := c.writeMessage(msg); err != nil {
				return
			}

			// Drain whatever queued up while the last write was in flight
			n := len(c.writeChan)
			for i := 0; i < n; i++ {
				select {
				case msg, ok := <-c.writeChan:
					if !ok {
						return
					}
					if err := c.writeMessage(msg); err != nil {
						return
					}
				default:
				}
			}
		}
	}
}

func (c *Client) writeMessage(msg *ServerMessage) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		log.Printf("❌ [%s] failed to encode message: %v", c.shortID(), err)
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// queueMessage adds a message to the write queue (non-blocking). Visualizer
// frames are the only high-rate traffic; dropping under pressure is fine.
func (c *Client) queueMessage(msg *ServerMessage) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return
	}
	select {
	case c.writeChan <- msg:
	default:
	}
}

func (c *Client) readLoop() {
	defer c.Close()
	for {
		select {
		case <-c.CloseChan:
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if !c.isClosed() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Printf("❌ [%s] read error: %v", c.shortID(), err)
				}
				return
			}

			var msg ClientMessage
			if err := sonic.Unmarshal(data, &msg); err != nil {
				log.Printf("⚠️ [%s] failed to parse message: %v", c.shortID(), err)
				c.queueMessage(NewErrorMessage(ErrCodeInvalidMessage, "Invalid JSON"))
				continue
			}

			c.dispatch(msg)
		}
	}
}

func (c *Client) dispatch(msg ClientMessage) {
	agent := c.hub.commander()
	if agent == nil {
		c.queueMessage(NewErrorMessage(ErrCodeInvalidMessage, "Agent not ready"))
		return
	}

	switch msg.Type {
	case TypeStartVoice:
		agent.StartVoice()
	case TypeStopVoice:
		agent.StopVoice()
	case TypeChat:
		if msg.Text == "" {
			c.queueMessage(NewErrorMessage(ErrCodeInvalidMessage, "Empty chat message"))
			return
		}
		agent.Chat(msg.ID, msg.Text)
	case TypeBookingCompleted:
		agent.BookingCompleted(msg.Detail)
	case TypeSaveTranscript:
		agent.SaveTranscript()
	case TypePing:
		c.queueMessage(NewPongMessage())
	default:
		log.Printf("⚠️ [%s] unknown message type: %s", c.shortID(), msg.Type)
		c.queueMessage(NewErrorMessage(ErrCodeUnknownType, "Unknown message type: "+msg.Type))
	}
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Close terminates the connection and releases resources; idempotent
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.CloseChan)
	c.conn.Close()
	c.hub.remove(c.ID)
}

func (c *Client) shortID() string {
	if len(c.ID) >= 8 {
		return c.ID[:8]
	}
	return c.ID
}
