package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/uncertaindrop/tickethelper/internal/browser"
	"github.com/uncertaindrop/tickethelper/internal/config"
	"github.com/uncertaindrop/tickethelper/internal/crm"
	"github.com/uncertaindrop/tickethelper/internal/driver"
	"github.com/uncertaindrop/tickethelper/internal/events"
	"github.com/uncertaindrop/tickethelper/internal/invoice"
	"github.com/uncertaindrop/tickethelper/internal/recovery"
	"github.com/uncertaindrop/tickethelper/internal/runner"
	"github.com/uncertaindrop/tickethelper/internal/session"
	"github.com/uncertaindrop/tickethelper/internal/store"
	"github.com/uncertaindrop/tickethelper/internal/technician"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Received shutdown signal")
		cancel()
	}()

	// The browser outlives the shutdown signal: a ticket past submission
	// finishes its status sequence before teardown, so Chrome runs on its
	// own lifecycle context and is closed only after the runner returns.
	page, err := browser.NewChrome(context.Background(), browser.Options{
		Headless:    cfg.Browser.Headless,
		WaitTimeout: cfg.Browser.WaitTimeout,
	})
	if err != nil {
		log.Fatal("Failed to start browser:", err)
	}
	defer page.Close()

	client := crm.NewClient(cfg.CRM.BaseURL)
	sessions := session.NewManager(page, client, cfg.CRM.BaseURL, session.Config{
		CookiePath: cfg.CRM.CookiePath,
		Credentials: session.Credentials{
			Username: cfg.CRM.Username,
			Password: cfg.CRM.Password,
		},
		LoginAttempts: cfg.CRM.LoginAttempts,
		LoginTimeout:  cfg.CRM.LoginTimeout,
	})

	resolver := technician.NewResolver(cfg.Technicians)
	rec := recovery.NewManager(cfg.Workflow.ArtifactDir)
	drv := driver.New(page, sessions, resolver, rec, client, driver.Config{
		StepRetries:     cfg.Workflow.StepRetries,
		ConfirmTimeout:  cfg.Workflow.ConfirmTimeout,
		StatusSequences: cfg.Workflow.StatusSequences,
		StoreNames:      cfg.Stores.Names,
	})

	extractor := invoice.NewExtractor(cfg.Stores.Aliases)

	var producer *events.Producer
	if cfg.Kafka.Enabled {
		producer = events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.OutcomeTopic, cfg.Kafka.StatusTopic)
	}

	var outcomes *store.OutcomeStore
	if cfg.Postgres.Enabled {
		outcomes, err = store.NewOutcomeStoreFromConnString(ctx, cfg.Postgres.ConnString)
		if err != nil {
			log.Fatal("Failed to open outcome store:", err)
		}
		defer outcomes.Close()
	}

	r := runner.New(cfg.Runner, extractor, drv, resolver, producer, outcomes)

	// Explicit file arguments run once and exit; otherwise watch the inbox.
	if args := os.Args[1:]; len(args) > 0 {
		ok := 0
		for _, path := range args {
			if r.ProcessFile(ctx, path) {
				ok++
			}
		}
		log.Printf("Processed %d/%d invoices", ok, len(args))
		if ok < len(args) {
			os.Exit(1)
		}
		return
	}

	if err := r.Run(ctx); err != nil {
		log.Fatal("Runner error:", err)
	}
}
