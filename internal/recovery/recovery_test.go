package recovery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uncertaindrop/tickethelper/internal/browser"
	"github.com/uncertaindrop/tickethelper/internal/crm"
	"github.com/uncertaindrop/tickethelper/internal/session"
	"github.com/uncertaindrop/tickethelper/internal/technician"
	"github.com/uncertaindrop/tickethelper/internal/ticket"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"auth error", &session.AuthError{Attempts: 2, Err: errors.New("denied")}, KindAuth},
		{"session invalid", fmt.Errorf("probe: %w", crm.ErrSessionInvalid), KindAuth},
		{"no technician", &technician.NoTechnicianError{StoreID: "LIM-01", Type: ticket.TypePromo}, KindConfiguration},
		{"validation", fmt.Errorf("submit: %w", ErrValidationRejected), KindValidationRejected},
		{"element not found", browser.NotFound("#store_id"), KindElementNotFound},
		{"anything else", errors.New("net/http: timeout"), KindNavigation},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Classify(c.err))
		})
	}
}

func TestTransient(t *testing.T) {
	assert.True(t, Transient(KindNavigation))
	assert.True(t, Transient(KindElementNotFound))
	assert.False(t, Transient(KindValidationRejected))
	assert.False(t, Transient(KindAuth))
	assert.False(t, Transient(KindConfiguration))
}

func TestStep_RetriesTransientWithinBudget(t *testing.T) {
	m := NewManager(t.TempDir())

	attempts := 0
	err := m.Step(context.Background(), "open_form", 2, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return browser.NotFound("form")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestStep_BudgetExhausted(t *testing.T) {
	m := NewManager(t.TempDir())

	attempts := 0
	err := m.Step(context.Background(), "open_form", 2, func(context.Context) error {
		attempts++
		return browser.NotFound("form")
	})
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, KindElementNotFound, Classify(err))
}

func TestStep_NonTransientFailsImmediately(t *testing.T) {
	m := NewManager(t.TempDir())

	attempts := 0
	err := m.Step(context.Background(), "submit", 5, func(context.Context) error {
		attempts++
		return ErrValidationRejected
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

type stubShot struct {
	png []byte
	err error
}

func (s stubShot) Screenshot(context.Context) ([]byte, error) { return s.png, s.err }

func TestAbort_WritesClassifiedArtifact(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	f := m.Abort(context.Background(), stubShot{png: []byte("png-bytes")}, "T-1", browser.NotFound("#assign_to"))
	require.NotNil(t, f)
	assert.Equal(t, "T-1", f.Ticket)
	assert.Equal(t, KindElementNotFound, f.Class)
	require.NotEmpty(t, f.ArtifactPath)

	assert.Regexp(t, regexp.MustCompile(`element_not_found_\d{8}_\d{6}\.\d{3}\.png$`), f.ArtifactPath)
	data, err := os.ReadFile(f.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestAbort_ScreenshotFailureDoesNotMaskError(t *testing.T) {
	m := NewManager(t.TempDir())

	f := m.Abort(context.Background(), stubShot{err: errors.New("browser gone")}, "T-2", ErrValidationRejected)
	assert.Equal(t, KindValidationRejected, f.Class)
	assert.Empty(t, f.ArtifactPath)
	assert.Contains(t, f.Error(), "T-2")
}

func TestAbort_NilScreenshotter(t *testing.T) {
	m := NewManager(t.TempDir())

	f := m.Abort(context.Background(), nil, "T-3", errors.New("early failure"))
	assert.Equal(t, KindNavigation, f.Class)
	assert.Empty(t, f.ArtifactPath)
}
