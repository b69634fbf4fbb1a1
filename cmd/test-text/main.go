package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/sentient-partners/sentient-agent/config"
	"github.com/sentient-partners/sentient-agent/functions"
	"github.com/sentient-partners/sentient-agent/gemini"

	"google.golang.org/genai"
)

// consoleNotifier prints tool side effects instead of pushing them to a widget
type consoleNotifier struct{}

func (consoleNotifier) Toast(level, message string) {
	log.Printf("🔔 [%s] %s", level, message)
}

func (consoleNotifier) OpenBooking(url string) {
	log.Printf("📅 Would open calendar: %s", url)
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	var client *genai.Client
	if cfg.DemoMode() {
		log.Println("⚠️ GEMINI_API_KEY not set — demo mode replies only")
	} else {
		client, err = gemini.NewClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			log.Fatalf("Failed to create GenAI client: %v", err)
		}
	}

	relay := functions.NewRelay(cfg.RelayEndpoint)
	dispatcher := functions.NewDispatcher(relay, consoleNotifier{}, cfg.BookingURL, cfg.FallbackDir)
	chat := gemini.NewChatService(client, dispatcher)

	fmt.Println("Text chat harness. Type a message, or 'quit' to exit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}

		_, err := chat.SendMessage(ctx, line, func(chunk string) {
			fmt.Print(chunk)
		})
		fmt.Println()
		if err != nil {
			log.Printf("❌ %v", err)
		}
	}
}
