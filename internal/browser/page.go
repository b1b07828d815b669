package browser

import (
	"context"
	"errors"
	"fmt"
)

// ErrElementNotFound is the sentinel for a UI element that did not appear
// within its wait budget. The recovery layer treats it as transient.
var ErrElementNotFound = errors.New("element not found")

// ElementError wraps ErrElementNotFound with the selector that failed.
type ElementError struct {
	Selector string
	Err      error
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Selector)
}

func (e *ElementError) Unwrap() error { return e.Err }

// NotFound builds an ElementError for selector.
func NotFound(selector string) error {
	return &ElementError{Selector: selector, Err: ErrElementNotFound}
}

// Cookie is a browser cookie in a backend-neutral shape, persisted as JSON by
// the session manager.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
}

// Page is the UI-interaction surface the workflow driver runs against. The
// production implementation drives a real Chrome tab; tests substitute a fake.
// Every method is a blocking, bounded-wait operation; the context carries the
// wait budget.
type Page interface {
	// Navigate loads the URL and waits for the load event.
	Navigate(ctx context.Context, url string) error
	// Location returns the current page URL.
	Location(ctx context.Context) (string, error)
	// WaitVisible blocks until the selector is visible or the context
	// expires, in which case it returns an ElementError.
	WaitVisible(ctx context.Context, selector string) error
	// WaitHidden blocks until the selector is absent or no longer visible,
	// or the context expires.
	WaitHidden(ctx context.Context, selector string) error
	// Click clicks the first node matching selector.
	Click(ctx context.Context, selector string) error
	// SetValue sets the value of an input or textarea and fires the input
	// and change events the CRM's scripts listen on.
	SetValue(ctx context.Context, selector, value string) error
	// SelectByText picks the option of a select element whose visible text
	// matches, firing input and change events.
	SelectByText(ctx context.Context, selector, text string) error
	// Exists reports whether selector currently matches a node, without
	// waiting.
	Exists(ctx context.Context, selector string) (bool, error)
	// Value returns the value property of the first node matching selector.
	Value(ctx context.Context, selector string) (string, error)
	// Evaluate runs a JavaScript expression, discarding the result.
	Evaluate(ctx context.Context, expression string) error
	// Screenshot captures the current viewport as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)
	// Cookies returns all cookies of the browser session.
	Cookies(ctx context.Context) ([]Cookie, error)
	// SetCookies installs cookies into the browser session.
	SetCookies(ctx context.Context, cookies []Cookie) error
}
