package bridge

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sentient-partners/sentient-agent/config"
)

// Server exposes the widget bridge over local HTTP: /ws for the typed
// message stream, /health for liveness.
type Server struct {
	httpServer *http.Server
	upgrader   websocket.Upgrader
	hub        *Hub
	config     *config.Config
}

// NewServer wires the bridge endpoints around the hub
func NewServer(cfg *config.Config, hub *Hub) *Server {
	s := &Server{
		hub:    hub,
		config: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				for _, allowed := range cfg.AllowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// Start begins listening for widget connections
func (s *Server) Start() error {
	log.Printf("🚀 Bridge server starting on port %d", s.config.Port)
	log.Printf("📡 Widget endpoint: ws://localhost:%d/ws", s.config.Port)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server and disconnects all widgets
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("🛑 Shutting down bridge server...")
	s.hub.Shutdown()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := s.hub.Register(conn)
	<-client.CloseChan
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","widgets":%d}`, s.hub.Count())
}
