// Package session owns the authenticated browser-session state: cookie
// persistence, probing, and the credential login flow. There is one active
// session per process and only this package mutates it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/uncertaindrop/tickethelper/internal/browser"
	"github.com/uncertaindrop/tickethelper/internal/crm"
)

// AuthError reports that a valid session could not be obtained. It is fatal
// for the current ticket; login attempts are capped because repeated failures
// can trigger a remote-side lockout.
type AuthError struct {
	Attempts int
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Session is the authenticated browser-session state.
type Session struct {
	Cookies     []browser.Cookie `json:"cookies"`
	Valid       bool             `json:"valid"`
	ValidatedAt time.Time        `json:"validatedAt"`
}

// Prober is the lightweight authenticated check against the remote system.
// *crm.Client is the production implementation.
type Prober interface {
	Probe(ctx context.Context, cookies []browser.Cookie) error
}

// Credentials are the CRM login credentials.
type Credentials struct {
	Username string
	Password string
}

// Config tunes the manager.
type Config struct {
	CookiePath    string
	Credentials   Credentials
	LoginAttempts int           // cap on credential logins per Authenticated call
	LoginTimeout  time.Duration // budget for one login flow, CAPTCHA/OTP included
}

// Manager serializes all access to the process's single session. Concurrent
// callers block on the same mutex, so no two logins ever run at once.
type Manager struct {
	mu      sync.Mutex
	page    browser.Page
	prober  Prober
	baseURL string
	cfg     Config
	store   *Store
	current *Session
	logins  int // total login flows performed, for tests and diagnostics
}

// NewManager builds a manager around the given page and probe client.
func NewManager(page browser.Page, prober Prober, baseURL string, cfg Config) *Manager {
	if cfg.LoginAttempts <= 0 {
		cfg.LoginAttempts = 2
	}
	if cfg.LoginTimeout <= 0 {
		cfg.LoginTimeout = 10 * time.Minute
	}
	return &Manager{
		page:    page,
		prober:  prober,
		baseURL: strings.TrimRight(baseURL, "/"),
		cfg:     cfg,
		store:   NewStore(cfg.CookiePath),
	}
}

// LoginCount returns how many credential login flows have run.
func (m *Manager) LoginCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logins
}

// Invalidate marks the current session stale. The next Authenticated call
// re-probes and, if needed, re-logs in.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current.Valid = false
	}
}

// Authenticated returns a valid session, never an invalid one. It reuses the
// in-memory session when the probe accepts it, falls back to persisted
// cookies, and only then runs the credential login flow, capped at the
// configured number of attempts.
func (m *Manager) Authenticated(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Cached session first.
	if m.current != nil && m.current.Valid {
		if err := m.prober.Probe(ctx, m.current.Cookies); err == nil {
			m.current.ValidatedAt = time.Now()
			return m.current, nil
		}
		log.Printf("session: cached session rejected by probe, re-authenticating")
		m.current.Valid = false
	}

	// Persisted cookies next.
	if cookies, err := m.store.Load(); err == nil && len(cookies) > 0 {
		if err := m.prober.Probe(ctx, cookies); err == nil {
			if err := m.page.SetCookies(ctx, cookies); err != nil {
				return nil, fmt.Errorf("install persisted cookies: %w", err)
			}
			m.current = &Session{Cookies: cookies, Valid: true, ValidatedAt: time.Now()}
			log.Printf("session: resumed from %d persisted cookies", len(cookies))
			return m.current, nil
		}
		log.Printf("session: persisted cookies rejected by probe, performing login")
	}

	// Full credential login, capped.
	var lastErr error
	for attempt := 1; attempt <= m.cfg.LoginAttempts; attempt++ {
		sess, err := m.login(ctx)
		if err == nil {
			m.current = sess
			return sess, nil
		}
		lastErr = err
		log.Printf("session: login attempt %d/%d failed: %v", attempt, m.cfg.LoginAttempts, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, &AuthError{Attempts: m.cfg.LoginAttempts, Err: lastErr}
}

// Login page selectors, matching the CRM's login form.
const (
	selUsername      = "#username"
	selPassword      = "#password-field"
	selEmailAuth     = "#authenticator_type_2"
	selLoginSubmit   = "button[type='submit']"
	otpPathFragment  = "/otp-authentication"
	locationPollStep = 2 * time.Second
)

func (m *Manager) login(ctx context.Context) (*Session, error) {
	loginCtx, cancel := context.WithTimeout(ctx, m.cfg.LoginTimeout)
	defer cancel()

	m.logins++
	log.Printf("session: starting credential login for %s", m.cfg.Credentials.Username)

	if err := m.page.Navigate(loginCtx, m.baseURL+"/"); err != nil {
		return nil, fmt.Errorf("open login page: %w", err)
	}
	if err := m.page.WaitVisible(loginCtx, selUsername); err != nil {
		return nil, fmt.Errorf("login form: %w", err)
	}
	if err := m.page.SetValue(loginCtx, selUsername, m.cfg.Credentials.Username); err != nil {
		return nil, fmt.Errorf("fill username: %w", err)
	}
	if err := m.page.SetValue(loginCtx, selPassword, m.cfg.Credentials.Password); err != nil {
		return nil, fmt.Errorf("fill password: %w", err)
	}
	// Email authenticator radio is absent on some deployments; not fatal.
	if present, _ := m.page.Exists(loginCtx, selEmailAuth); present {
		if err := m.page.Click(loginCtx, selEmailAuth); err != nil {
			log.Printf("session: could not select email authenticator: %v", err)
		}
	}
	if err := m.page.Click(loginCtx, selLoginSubmit); err != nil {
		return nil, fmt.Errorf("click login: %w", err)
	}

	// CAPTCHA and OTP are completed by the operator in the visible browser;
	// we just wait for the dashboard URL within the login budget.
	if err := m.waitForDashboard(loginCtx); err != nil {
		return nil, err
	}

	cookies, err := m.page.Cookies(loginCtx)
	if err != nil {
		return nil, fmt.Errorf("capture cookies: %w", err)
	}
	if err := m.store.Save(cookies); err != nil {
		return nil, fmt.Errorf("persist cookies: %w", err)
	}

	log.Printf("session: login complete, %d cookies persisted", len(cookies))
	return &Session{Cookies: cookies, Valid: true, ValidatedAt: time.Now()}, nil
}

func (m *Manager) waitForDashboard(ctx context.Context) error {
	sawOTP := false
	for {
		loc, err := m.page.Location(ctx)
		if err != nil {
			return fmt.Errorf("read location: %w", err)
		}
		if strings.Contains(loc, crm.DashboardPath) {
			return nil
		}
		if !sawOTP && strings.Contains(loc, otpPathFragment) {
			sawOTP = true
			log.Printf("session: OTP page reached, waiting for operator")
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("dashboard not reached: %w", ctx.Err())
		case <-time.After(locationPollStep):
		}
	}
}

// Errors helpers used by the recovery layer.

// IsAuthError reports whether err is an authentication failure.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
