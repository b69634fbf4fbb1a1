package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

// Minimal bridge client for exercising a running agent: connects to /ws,
// optionally sends one chat message, and prints everything the agent pushes
// back (visualizer frames summarized, not dumped).

type clientMessage struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	Text string `json:"text,omitempty"`
}

type serverMessage struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

func main() {
	addr := flag.String("addr", "ws://localhost:8080/ws", "bridge WebSocket endpoint")
	message := flag.String("chat", "", "chat message to send after connecting")
	voice := flag.Bool("voice", false, "start a voice session after connecting")
	flag.Parse()

	conn, _, err := websocket.DefaultDialer.Dial(*addr, nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()
	log.Printf("✅ Connected to %s", *addr)

	send := func(msg clientMessage) {
		data, err := sonic.Marshal(msg)
		if err != nil {
			log.Fatalf("Failed to encode: %v", err)
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Fatalf("Failed to send: %v", err)
		}
	}

	send(clientMessage{Type: "ping"})
	if *message != "" {
		send(clientMessage{Type: "chat", ID: fmt.Sprintf("cli-%d", time.Now().UnixMilli()), Text: *message})
	}
	if *voice {
		send(clientMessage{Type: "start_voice"})
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		frames := 0
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				log.Printf("🔌 Connection closed: %v", err)
				return
			}
			var msg serverMessage
			if err := sonic.Unmarshal(data, &msg); err != nil {
				log.Printf("⚠️ Bad message: %v", err)
				continue
			}
			if msg.Type == "visualizer" {
				frames++
				if frames%30 == 0 {
					log.Printf("📊 %d visualizer frames received", frames)
				}
				continue
			}
			log.Printf("📥 %s: %v", msg.Type, msg.Payload)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	select {
	case <-sigChan:
		if *voice {
			send(clientMessage{Type: "stop_voice"})
			time.Sleep(500 * time.Millisecond)
		}
	case <-done:
	}
}
