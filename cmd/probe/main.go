package main

import (
	"context"
	"log"
	"time"

	"github.com/sentient-partners/sentient-agent/config"
	"github.com/sentient-partners/sentient-agent/functions"
)

// Sends a connection-verification email through the lead relay so the
// endpoint can be activated before the first real lead arrives.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("📤 Sending test email via %s", cfg.RelayEndpoint)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	relay := functions.NewRelay(cfg.RelayEndpoint)
	result := relay.SendTest(ctx)
	if result.Success {
		log.Printf("✅ %s", result.Message)
	} else {
		log.Fatalf("❌ %s", result.Message)
	}
}
