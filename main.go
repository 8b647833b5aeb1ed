package main

import (
	"fmt"
	"log"
	"net/http"
)

func main() {
	cfg := LoadConfig()
	appliedTimeout := ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	log.Printf("Config loaded. ListenAddr=%s RegressionEndpoint=%s ChatProvider=%s ChatConfigured=%t ExternalHTTPTimeout=%s",
		cfg.ListenAddr, cfg.RegressionEndpoint, cfg.ChatProvider, cfg.ChatConfigured(), appliedTimeout)

	notifier := NewNotifier(cfg.SlackBotToken, cfg.AlertChannelID)

	// A failed catalog load degrades classification to permanently
	// unavailable; it must not kill the process (the assistant and
	// status endpoints still work).
	catalog, err := LoadEquivalenceCatalog(cfg.EquivalenceCSVPath)
	if err != nil {
		log.Printf("Equivalence catalog failed to load: %v. Change classification will be unavailable.", err)
		notifier.Post(fmt.Sprintf("Equivalence catalog failed to load at startup: %v", err))
		catalog = nil
	}

	db, err := InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	defer db.Close()
	log.Printf("Database initialized at %s", cfg.DBPath)

	classifier := &Classifier{
		Catalog:    catalog,
		Endpoint:   cfg.RegressionEndpoint,
		Token:      cfg.RegressionToken,
		HTTPClient: externalHTTPClient,
	}
	assistant := NewChatAssistant(cfg)
	if assistant.DemoMode() {
		log.Printf("Chat assistant running in demo mode (no backend credentials)")
	}

	scheduler := StartSchedulers(cfg, db, assistant, notifier)
	defer scheduler.Stop()

	server := NewServer(cfg, classifier, assistant, db, notifier)
	log.Printf("Starting MPCDC classification service on %s", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, server); err != nil {
		log.Fatalf("HTTP server error: %v", err)
	}
}
