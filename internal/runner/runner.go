// Package runner orchestrates the invoice-to-ticket flow: it watches an
// inbox directory for invoice PDFs, extracts each into a ticket record,
// drives the workflow, and reports the terminal outcome.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/uncertaindrop/tickethelper/internal/config"
	"github.com/uncertaindrop/tickethelper/internal/driver"
	"github.com/uncertaindrop/tickethelper/internal/events"
	"github.com/uncertaindrop/tickethelper/internal/invoice"
	"github.com/uncertaindrop/tickethelper/internal/recovery"
	"github.com/uncertaindrop/tickethelper/internal/store"
	"github.com/uncertaindrop/tickethelper/internal/technician"
	"github.com/uncertaindrop/tickethelper/internal/ticket"
)

// Runner processes invoices one at a time. The mutex is the single-ticket
// gate: a second caller blocks until the in-flight ticket reaches a terminal
// state.
type Runner struct {
	mu        sync.Mutex
	cfg       config.RunnerConfig
	extractor *invoice.Extractor
	driver    *driver.Driver
	resolver  *technician.Resolver
	producer  *events.Producer
	outcomes  *store.OutcomeStore
}

// New creates a runner. producer and outcomes may be nil when reporting is
// not configured.
func New(cfg config.RunnerConfig, ex *invoice.Extractor, drv *driver.Driver, res *technician.Resolver, producer *events.Producer, outcomes *store.OutcomeStore) *Runner {
	return &Runner{
		cfg:       cfg,
		extractor: ex,
		driver:    drv,
		resolver:  res,
		producer:  producer,
		outcomes:  outcomes,
	}
}

// Run polls the inbox directory until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	log.Printf("Starting invoice runner")
	log.Printf("  Inbox: %s", r.cfg.InboxDir)
	log.Printf("  Poll interval: %s", r.cfg.PollInterval)

	for _, dir := range []string{r.cfg.InboxDir, r.cfg.DoneDir, r.cfg.FailedDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	started := time.Now()
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	// Initial sweep before the first tick.
	if err := r.sweep(ctx); err != nil {
		log.Printf("Sweep error: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			if n, err := r.outcomes.CompletedCount(context.WithoutCancel(ctx), started); err == nil && n > 0 {
				log.Printf("Completed %d tickets this run", n)
			}
			log.Printf("Shutting down runner")
			return r.producer.Close()
		case <-ticker.C:
			if err := r.sweep(ctx); err != nil {
				log.Printf("Sweep error: %v", err)
			}
		}
	}
}

// sweep processes every PDF currently in the inbox, oldest name first.
func (r *Runner) sweep(ctx context.Context) error {
	entries, err := os.ReadDir(r.cfg.InboxDir)
	if err != nil {
		return fmt.Errorf("read inbox: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		paths = append(paths, filepath.Join(r.cfg.InboxDir, e.Name()))
	}
	sort.Strings(paths)

	for _, path := range paths {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		done := r.ProcessFile(ctx, path)
		r.archive(path, done)
	}
	return nil
}

// ProcessFile runs one invoice end to end and reports whether it reached
// DONE. Every path out of here has been reported, so the caller only needs
// the boolean to pick the archive directory.
func (r *Runner) ProcessFile(ctx context.Context, path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	log.Printf("Processing invoice %s", filepath.Base(path))

	rec, err := r.extractor.ExtractFile(path)
	if err != nil {
		log.Printf("Extraction failed for %s: %v", filepath.Base(path), err)
		r.report(ctx, &ticket.Record{InvoiceRef: filepath.Base(path), SourceFile: path}, nil, extractionFailure(path, err))
		return false
	}

	result, err := r.driver.Run(ctx, rec)
	if err != nil {
		var failure *recovery.Failure
		if !errors.As(err, &failure) {
			failure = &recovery.Failure{Ticket: rec.InvoiceRef, Class: recovery.KindNavigation, Reason: err.Error()}
		}
		log.Printf("Ticket failed for %s: %v", rec.InvoiceRef, failure)
		r.report(ctx, rec, nil, failure)
		return false
	}

	// Rotation advances only after the full workflow succeeded, so a failed
	// ticket retries with the same technician.
	if r.resolver != nil {
		r.resolver.Advance(rec.StoreID, rec.Type)
	}
	r.report(ctx, rec, result, nil)
	return true
}

// Extraction failures never reach the browser, so they carry the
// configuration class: the input or the locator rules are wrong, not the
// remote system.
func extractionFailure(path string, err error) *recovery.Failure {
	return &recovery.Failure{
		Ticket: filepath.Base(path),
		Class:  recovery.KindConfiguration,
		Reason: err.Error(),
	}
}

// report publishes the terminal outcome to every configured sink. Reporting
// errors are logged, never propagated: the workflow outcome is already
// decided.
func (r *Runner) report(ctx context.Context, rec *ticket.Record, result *driver.Result, failure *recovery.Failure) {
	outcome := events.Outcome{
		Invoice:    rec.InvoiceRef,
		TicketType: string(rec.Type),
		StoreID:    rec.StoreID,
		At:         time.Now(),
	}
	if result != nil {
		outcome.TicketID = result.TicketID
		outcome.Technician = string(result.Technician)
		outcome.FinalStatus = result.FinalStatus
	}
	if failure != nil {
		outcome.Failure = string(failure.Class)
		outcome.Reason = failure.Reason
		outcome.Artifact = failure.ArtifactPath
	}

	if err := r.producer.SendOutcome(ctx, outcome); err != nil {
		log.Printf("Failed to send outcome %s: %v", rec.InvoiceRef, err)
	}
	if result != nil {
		for i, status := range result.Trail {
			adv := events.StatusAdvance{
				TicketID: result.TicketID,
				Status:   status,
				Position: i + 1,
				At:       time.Now(),
			}
			if err := r.producer.SendStatusAdvance(ctx, adv); err != nil {
				log.Printf("Failed to send status advance %s: %v", result.TicketID, err)
			}
		}
	}

	row := store.Outcome{
		Invoice:     outcome.Invoice,
		TicketID:    outcome.TicketID,
		TicketType:  outcome.TicketType,
		StoreID:     outcome.StoreID,
		Technician:  outcome.Technician,
		FinalStatus: outcome.FinalStatus,
		Failure:     outcome.Failure,
		Reason:      outcome.Reason,
		Artifact:    outcome.Artifact,
		At:          outcome.At,
	}
	if err := r.outcomes.Save(ctx, row); err != nil {
		log.Printf("Failed to store outcome %s: %v", rec.InvoiceRef, err)
	}
}

// archive moves a processed file out of the inbox so the next sweep does not
// pick it up again.
func (r *Runner) archive(path string, done bool) {
	dir := r.cfg.DoneDir
	if !done {
		dir = r.cfg.FailedDir
	}
	if dir == "" {
		return
	}
	dest := filepath.Join(dir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		log.Printf("Failed to archive %s: %v", filepath.Base(path), err)
	}
}
