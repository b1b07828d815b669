// Package recovery wraps workflow steps: it classifies failures into a closed
// set of kinds, decides whether a step's retry budget permits another attempt,
// and captures diagnostic screenshots when a ticket is aborted.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/uncertaindrop/tickethelper/internal/browser"
	"github.com/uncertaindrop/tickethelper/internal/crm"
	"github.com/uncertaindrop/tickethelper/internal/session"
	"github.com/uncertaindrop/tickethelper/internal/technician"
)

// Kind is the failure classification. The set is closed; anything the
// classifier does not recognize is treated as a navigation problem, the most
// generic transient class.
type Kind string

const (
	KindNavigation         Kind = "navigation"
	KindElementNotFound    Kind = "element_not_found"
	KindValidationRejected Kind = "validation_rejected"
	KindAuth               Kind = "auth"
	KindConfiguration      Kind = "configuration"
)

// ErrValidationRejected marks a remote-side rejection of submitted data.
// Resubmitting identical data would fail identically, so it is never retried.
var ErrValidationRejected = errors.New("validation rejected by remote system")

// Classify maps an error into the closed kind set.
func Classify(err error) Kind {
	var authErr *session.AuthError
	var noTech *technician.NoTechnicianError
	switch {
	case errors.As(err, &authErr), errors.Is(err, crm.ErrSessionInvalid):
		return KindAuth
	case errors.As(err, &noTech):
		return KindConfiguration
	case errors.Is(err, ErrValidationRejected):
		return KindValidationRejected
	case errors.Is(err, browser.ErrElementNotFound):
		return KindElementNotFound
	default:
		return KindNavigation
	}
}

// Transient reports whether kind permits a bounded retry. Auth, configuration
// and validation failures are not transient.
func Transient(k Kind) bool {
	return k == KindNavigation || k == KindElementNotFound
}

// Failure is the structured terminal outcome of an aborted ticket.
type Failure struct {
	Ticket       string `json:"ticket"`
	Class        Kind   `json:"class"`
	Reason       string `json:"reason"`
	ArtifactPath string `json:"artifactPath,omitempty"`
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("ticket %s failed (%s): %s", f.Ticket, f.Class, f.Reason)
	if f.ArtifactPath != "" {
		msg += " [artifact " + f.ArtifactPath + "]"
	}
	return msg
}

// Screenshotter captures the current page; browser.Page satisfies it.
type Screenshotter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

// Manager owns the artifact directory and the step retry policy.
type Manager struct {
	dir string
	now func() time.Time
}

// NewManager creates a recovery manager writing artifacts to dir.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir, now: time.Now}
}

// Step runs fn, retrying on transient failures until the step's retry budget
// is spent. Non-transient failures abort on the first attempt. The returned
// error is the last attempt's error, untouched, so callers can classify it.
func (m *Manager) Step(ctx context.Context, name string, retries int, fn func(context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		kind := Classify(err)
		if !Transient(kind) {
			log.Printf("step %s: %s failure, not retrying: %v", name, kind, err)
			return err
		}
		if attempt >= retries {
			log.Printf("step %s: retry budget (%d) exhausted: %v", name, retries, err)
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		log.Printf("step %s: attempt %d/%d failed (%s), retrying: %v", name, attempt+1, retries+1, kind, err)
	}
}

// Abort turns a step error into the ticket's terminal Failure, capturing a
// screenshot artifact when shot is non-nil. Artifact capture is best-effort:
// a failure to screenshot never masks the original error.
func (m *Manager) Abort(ctx context.Context, shot Screenshotter, ticketID string, err error) *Failure {
	f := &Failure{
		Ticket: ticketID,
		Class:  Classify(err),
		Reason: err.Error(),
	}
	if shot != nil {
		path, shotErr := m.capture(ctx, shot, f.Class)
		if shotErr != nil {
			log.Printf("recovery: screenshot capture failed: %v", shotErr)
		} else {
			f.ArtifactPath = path
		}
	}
	return f
}

// capture writes a write-once {classification}_{timestamp}.png artifact.
func (m *Manager) capture(ctx context.Context, shot Screenshotter, kind Kind) (string, error) {
	png, err := shot.Screenshot(ctx)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s_%s.png", kind, m.now().Format("20060102_150405.000"))
	path := filepath.Join(m.dir, name)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", err
	}
	log.Printf("recovery: artifact written: %s", path)
	return path, nil
}
