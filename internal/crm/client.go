// Package crm holds the thin HTTP surface of the PMM CRM that can be spoken
// to without a browser: the lightweight authenticated probe the session
// manager uses to decide whether persisted cookies are still valid. Everything
// else about the CRM is UI-only and goes through the workflow driver.
package crm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/uncertaindrop/tickethelper/internal/browser"
)

// Paths on the CRM. The dashboard requires authentication; an expired session
// gets redirected back to the login page.
const (
	DashboardPath  = "/users/dashboard"
	AddTicketPath  = "/tickets/addtickets"
	EditTicketPath = "/tickets/edittickets"
)

// ErrSessionInvalid reports that the probe was rejected: the cookies are
// missing, expired, or revoked.
var ErrSessionInvalid = errors.New("crm session invalid")

// Client is a cookie-authenticated PMM HTTP client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the CRM at baseURL. Redirects are not
// followed: a redirect away from the dashboard is exactly the signal the
// probe needs.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// BaseURL returns the configured CRM base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// URL joins path onto the CRM base URL.
func (c *Client) URL(path string) string { return c.baseURL + path }

// Probe performs the lightweight authenticated check: GET the dashboard with
// the given cookies. A 200 means the session is valid; a redirect or any
// other status means it is not.
func (c *Client) Probe(ctx context.Context, cookies []browser.Cookie) error {
	if len(cookies) == 0 {
		return fmt.Errorf("%w: no cookies", ErrSessionInvalid)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(DashboardPath), nil)
	if err != nil {
		return err
	}
	for _, ck := range cookies {
		req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("probe dashboard: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}
	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		return fmt.Errorf("%w: redirected to %s", ErrSessionInvalid, resp.Header.Get("Location"))
	}
	return fmt.Errorf("%w: probe returned status %d", ErrSessionInvalid, resp.StatusCode)
}
