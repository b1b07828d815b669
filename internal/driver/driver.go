// Package driver is the workflow state machine that turns a validated ticket
// record into a created, status-advanced ticket in the remote CRM. It drives
// fragile DOM state through the browser page abstraction, with bounded
// per-step retries and a strictly forward state sequence.
package driver

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/uncertaindrop/tickethelper/internal/browser"
	"github.com/uncertaindrop/tickethelper/internal/crm"
	"github.com/uncertaindrop/tickethelper/internal/recovery"
	"github.com/uncertaindrop/tickethelper/internal/session"
	"github.com/uncertaindrop/tickethelper/internal/technician"
	"github.com/uncertaindrop/tickethelper/internal/ticket"
)

// Sessions supplies an authenticated session; *session.Manager is the
// production implementation.
type Sessions interface {
	Authenticated(ctx context.Context) (*session.Session, error)
}

// Resolver maps (store, ticket type) to a technician.
type Resolver interface {
	Resolve(storeID string, typ ticket.Type) (technician.ID, error)
}

// Config tunes the driver.
type Config struct {
	// StepRetries is the bounded retry count each step may consume on
	// transient failures before the ticket aborts.
	StepRetries int
	// ConfirmTimeout bounds the post-submit confirmation poll.
	ConfirmTimeout time.Duration
	// ConfirmPoll is the interval between confirmation checks.
	ConfirmPoll time.Duration
	// StatusSequences is the ordered post-creation status sequence per
	// ticket type. Types without an entry use DefaultStatusSequence.
	StatusSequences map[ticket.Type][]string
	// StoreNames maps a store ID to the CRM's display name for the store
	// select. Unmapped stores use the ID itself.
	StoreNames map[string]string
}

// DefaultStatusSequence is the status progression the CRM expects, in the
// exact visible-text form of its status dropdown.
func DefaultStatusSequence() []string {
	return []string{
		"With Technician",
		"In-house Repair",
		"Final Check",
		"Ready for Pickup",
		"Closed",
	}
}

// Result is the terminal success outcome.
type Result struct {
	TicketID    string        `json:"ticketId"`
	FinalStatus string        `json:"finalStatus"`
	Technician  technician.ID `json:"technician"`
	Trail       []string      `json:"trail"`
}

// Driver executes the per-ticket submission protocol. It must not be used
// concurrently: one ticket is processed start-to-finish before the next.
type Driver struct {
	page     browser.Page
	sessions Sessions
	resolver Resolver
	rec      *recovery.Manager
	crm      *crm.Client
	cfg      Config
}

// New builds a driver.
func New(page browser.Page, sessions Sessions, resolver Resolver, rec *recovery.Manager, client *crm.Client, cfg Config) *Driver {
	if cfg.StepRetries <= 0 {
		cfg.StepRetries = 2
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 30 * time.Second
	}
	if cfg.ConfirmPoll <= 0 {
		cfg.ConfirmPoll = time.Second
	}
	return &Driver{page: page, sessions: sessions, resolver: resolver, rec: rec, crm: client, cfg: cfg}
}

func (d *Driver) statusSequence(typ ticket.Type) []string {
	if seq, ok := d.cfg.StatusSequences[typ]; ok && len(seq) > 0 {
		return seq
	}
	return DefaultStatusSequence()
}

// Run processes one record to a definite terminal outcome: a Result at DONE,
// or a *recovery.Failure at FAILED. It never leaves a ticket in an unreported
// ambiguous state.
func (d *Driver) Run(ctx context.Context, rec *ticket.Record) (*Result, error) {
	// Fail closed: an invalid record must never drive the browser.
	if err := rec.Validate(); err != nil {
		return nil, &recovery.Failure{
			Ticket: rec.InvoiceRef,
			Class:  recovery.KindConfiguration,
			Reason: err.Error(),
		}
	}

	tc := newContext(rec)
	seed := rec.InvoiceRef
	log.Printf("driver: processing %s ticket, invoice %s, store %s", rec.Type, rec.InvoiceRef, rec.StoreID)

	// INIT -> AUTHENTICATED
	if err := d.step(ctx, tc, "authenticate", func(c context.Context) error {
		_, err := d.sessions.Authenticated(c)
		return err
	}); err != nil {
		return nil, d.fail(ctx, tc, err)
	}
	tc.advance(StateAuthenticated)

	// AUTHENTICATED -> FORM_OPENED
	if err := d.step(ctx, tc, "open_form", func(c context.Context) error {
		if err := d.page.Navigate(c, d.crm.URL(crm.AddTicketPath)); err != nil {
			return fmt.Errorf("open add-ticket form: %w", err)
		}
		return d.page.WaitVisible(c, "form")
	}); err != nil {
		return nil, d.fail(ctx, tc, err)
	}
	tc.advance(StateFormOpened)

	// FORM_OPENED -> FIELDS_FILLED
	if err := d.step(ctx, tc, "fill_fields", func(c context.Context) error {
		return d.fillForm(c, rec, seed)
	}); err != nil {
		return nil, d.fail(ctx, tc, err)
	}
	tc.advance(StateFieldsFilled)

	// FIELDS_FILLED -> TECHNICIAN_ASSIGNED
	if err := d.step(ctx, tc, "assign_technician", func(c context.Context) error {
		tech, err := d.resolver.Resolve(rec.StoreID, rec.Type)
		if err != nil {
			return err
		}
		tc.Technician = tech
		return d.applyTechnician(c, tech)
	}); err != nil {
		return nil, d.fail(ctx, tc, err)
	}
	tc.advance(StateTechnicianAssigned)

	// TECHNICIAN_ASSIGNED -> SUBMITTED. The submit click happens exactly
	// once; ambiguity afterwards is resolved by re-checking, never by
	// resubmitting.
	if err := d.submit(ctx, tc); err != nil {
		return nil, d.fail(ctx, tc, err)
	}
	tc.advance(StateSubmitted)

	// From here the ticket exists remotely: the remaining advances run to
	// completion or FAILED even if the caller cancels.
	postCtx := context.WithoutCancel(ctx)

	if err := d.step(postCtx, tc, "fill_resolution", func(c context.Context) error {
		if err := d.page.WaitVisible(c, "#resolution"); err != nil {
			return err
		}
		return d.page.SetValue(c, "#resolution", resolutionText(rec.Type, seed))
	}); err != nil {
		return nil, d.fail(postCtx, tc, err)
	}

	// SUBMITTED -> STATUS_ADVANCED(n) -> DONE. The sequence is followed in
	// order; downstream reporting depends on every intermediate status being
	// recorded, so none is skipped.
	sequence := d.statusSequence(rec.Type)
	for i, status := range sequence {
		name := fmt.Sprintf("advance_status_%d", i+1)
		status := status
		if err := d.step(postCtx, tc, name, func(c context.Context) error {
			return d.advanceStatus(c, tc.TicketID, status)
		}); err != nil {
			return nil, d.fail(postCtx, tc, err)
		}
		tc.Trail = append(tc.Trail, status)
		tc.advance(StateStatusAdvanced)
		log.Printf("driver: ticket %s status %d/%d: %s", tc.TicketID, i+1, len(sequence), status)
	}

	tc.advance(StateDone)
	log.Printf("driver: ticket %s DONE (technician %s)", tc.TicketID, tc.Technician)
	return &Result{
		TicketID:    tc.TicketID,
		FinalStatus: sequence[len(sequence)-1],
		Technician:  tc.Technician,
		Trail:       tc.Trail,
	}, nil
}

// step runs fn under the recovery manager's retry policy, tracking attempts
// on the ticket context. Before SUBMITTED a cancelled context aborts cleanly;
// no remote ticket exists yet.
func (d *Driver) step(ctx context.Context, tc *Context, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cancelled before %s: %w", name, err)
	}
	return d.rec.Step(ctx, name, d.cfg.StepRetries, func(c context.Context) error {
		tc.Attempts[name]++
		err := fn(c)
		if err != nil {
			tc.note("%s attempt %d: %v", name, tc.Attempts[name], err)
		}
		return err
	})
}

// fail moves the context to FAILED and builds the structured failure. A
// screenshot is captured only when the run got far enough for the page to
// show anything useful (FORM_OPENED onwards).
func (d *Driver) fail(ctx context.Context, tc *Context, err error) *recovery.Failure {
	var shot recovery.Screenshotter
	if tc.State >= StateFormOpened {
		shot = d.page
	}
	tc.advance(StateFailed)
	id := tc.TicketID
	if id == "" {
		id = tc.Record.InvoiceRef
	}
	return d.rec.Abort(context.WithoutCancel(ctx), shot, id, err)
}

var editTicketIDRe = regexp.MustCompile(`/edittickets/(\d+)`)

// submit clicks save once and then polls for the post-submit confirmation
// marker (the edit-ticket page) within a bounded timeout. An explicit
// validation banner fails immediately as ValidationRejected; silence until
// the timeout fails as a navigation problem.
func (d *Driver) submit(ctx context.Context, tc *Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cancelled before submit: %w", err)
	}
	tc.Attempts["submit"]++
	if err := d.page.Click(ctx, "button[name='btn_save']"); err != nil {
		return fmt.Errorf("click save: %w", err)
	}

	deadline := time.Now().Add(d.cfg.ConfirmTimeout)
	for {
		loc, err := d.page.Location(ctx)
		if err == nil && strings.Contains(loc, crm.EditTicketPath) {
			tc.TicketID = d.ticketID(ctx, loc)
			log.Printf("driver: submission confirmed, ticket %s", tc.TicketID)
			return nil
		}
		if rejected, _ := d.page.Exists(ctx, ".alert-danger"); rejected {
			return fmt.Errorf("submit: %w", recovery.ErrValidationRejected)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("submit unconfirmed after %s", d.cfg.ConfirmTimeout)
		}
		select {
		case <-ctx.Done():
			// Submission already happened; keep polling on a detached
			// context would change nothing the page can answer faster.
			return fmt.Errorf("submit confirmation interrupted: %w", ctx.Err())
		case <-time.After(d.cfg.ConfirmPoll):
		}
	}
}

func (d *Driver) ticketID(ctx context.Context, loc string) string {
	if m := editTicketIDRe.FindStringSubmatch(loc); m != nil {
		return m[1]
	}
	if v, err := d.page.Value(ctx, "#ticketID"); err == nil && v != "" {
		return v
	}
	return ""
}

// applyTechnician sets the assignment select and pokes the CRM's own save
// hook when it exists.
func (d *Driver) applyTechnician(ctx context.Context, tech technician.ID) error {
	if err := d.page.WaitVisible(ctx, "#assign_to"); err != nil {
		return err
	}
	if err := d.page.SetValue(ctx, "#assign_to", string(tech)); err != nil {
		return fmt.Errorf("set technician: %w", err)
	}
	return d.page.Evaluate(ctx,
		`if (typeof fun_save_ticket_assign_to === 'function') { fun_save_ticket_assign_to(); }`)
}

// advanceStatus applies one status through the edit page's status dropdown
// and the fun_save_ticket_status auto-save hook, then accepts the
// confirmation popup some statuses raise.
func (d *Driver) advanceStatus(ctx context.Context, ticketID, status string) error {
	loc, err := d.page.Location(ctx)
	if err != nil {
		return fmt.Errorf("read location: %w", err)
	}
	if !strings.Contains(loc, crm.EditTicketPath) {
		return fmt.Errorf("not on edit-ticket page (%s)", loc)
	}
	if err := d.page.WaitVisible(ctx, "#ticketstatusID"); err != nil {
		return err
	}
	if err := d.page.SelectByText(ctx, "#ticketstatusID", status); err != nil {
		return fmt.Errorf("select status %q: %w", status, err)
	}
	save := fmt.Sprintf(
		`(function() {
			const el = document.querySelector('#ticketstatusID');
			if (el && typeof fun_save_ticket_status === 'function') {
				fun_save_ticket_status(el.value, %s);
			}
		})()`, jsArg(ticketID))
	if err := d.page.Evaluate(ctx, save); err != nil {
		return fmt.Errorf("save status %q: %w", status, err)
	}

	// "Ready for Pickup" raises a warranty-sticker confirmation popup.
	if popup, _ := d.page.Exists(ctx, "button.confirm.btn2"); popup {
		if err := d.page.Click(ctx, "button.confirm.btn2"); err != nil {
			return fmt.Errorf("confirm popup: %w", err)
		}
	}

	// The auto-save may reload the page; verify the dropdown is back.
	return d.page.WaitVisible(ctx, "#ticketstatusID")
}

func jsArg(s string) string {
	if s == "" {
		return "null"
	}
	return "'" + strings.ReplaceAll(s, "'", "") + "'"
}
