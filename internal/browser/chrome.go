package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
)

// Options configures the Chrome backend.
type Options struct {
	Headless    bool
	WaitTimeout time.Duration
	UserAgent   string
}

// Chrome drives a single headless Chrome tab through the DevTools protocol.
// It owns the browser process; Close tears it down.
type Chrome struct {
	opts        Options
	ctx         context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
}

var _ Page = (*Chrome)(nil)

// NewChrome launches a Chrome instance. The returned value holds exclusive
// ownership of the tab; there is exactly one per process.
func NewChrome(ctx context.Context, opts Options) (*Chrome, error) {
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 20 * time.Second
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1440, 900),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelCtx := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so launch failures surface here, not on the
	// first navigation.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelCtx()
		cancelAlloc()
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	return &Chrome{opts: opts, ctx: tabCtx, cancelCtx: cancelCtx, cancelAlloc: cancelAlloc}, nil
}

// Close shuts the browser down.
func (c *Chrome) Close() error {
	c.cancelCtx()
	c.cancelAlloc()
	return nil
}

// run executes actions on the tab, bounded by the caller's deadline when one
// is set, otherwise by the configured wait timeout.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.opts.WaitTimeout)
	}
	runCtx, cancel := context.WithDeadline(c.ctx, deadline)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	return c.run(ctx, chromedp.Navigate(url))
}

func (c *Chrome) Location(ctx context.Context) (string, error) {
	var url string
	if err := c.run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

func (c *Chrome) WaitVisible(ctx context.Context, selector string) error {
	err := c.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
	if errors.Is(err, context.DeadlineExceeded) {
		return NotFound(selector)
	}
	return err
}

func (c *Chrome) WaitHidden(ctx context.Context, selector string) error {
	err := c.run(ctx, chromedp.WaitNotVisible(selector, chromedp.ByQuery))
	if errors.Is(err, context.DeadlineExceeded) {
		return NotFound(selector)
	}
	return err
}

func (c *Chrome) Value(ctx context.Context, selector string) (string, error) {
	expr := fmt.Sprintf(`(function() {
		const el = document.querySelector(%s);
		return el ? String(el.value) : null;
	})()`, jsString(selector))

	var value *string
	if err := c.run(ctx, chromedp.Evaluate(expr, &value)); err != nil {
		return "", err
	}
	if value == nil {
		return "", NotFound(selector)
	}
	return *value, nil
}

func (c *Chrome) Click(ctx context.Context, selector string) error {
	err := c.run(ctx,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
	if errors.Is(err, context.DeadlineExceeded) {
		return NotFound(selector)
	}
	return err
}

func (c *Chrome) SetValue(ctx context.Context, selector, value string) error {
	expr := fmt.Sprintf(`(function() {
		const el = document.querySelector(%s);
		if (!el) { return false; }
		el.removeAttribute('readonly');
		el.value = %s;
		el.dispatchEvent(new Event('input', {bubbles: true}));
		el.dispatchEvent(new Event('change', {bubbles: true}));
		return true;
	})()`, jsString(selector), jsString(value))

	var ok bool
	if err := c.run(ctx, chromedp.Evaluate(expr, &ok)); err != nil {
		return err
	}
	if !ok {
		return NotFound(selector)
	}
	return nil
}

func (c *Chrome) SelectByText(ctx context.Context, selector, text string) error {
	expr := fmt.Sprintf(`(function() {
		const el = document.querySelector(%s);
		if (!el) { return false; }
		for (const opt of el.options) {
			if (opt.text.trim() === %s) {
				el.value = opt.value;
				el.dispatchEvent(new Event('input', {bubbles: true}));
				el.dispatchEvent(new Event('change', {bubbles: true}));
				return true;
			}
		}
		return false;
	})()`, jsString(selector), jsString(text))

	var ok bool
	if err := c.run(ctx, chromedp.Evaluate(expr, &ok)); err != nil {
		return err
	}
	if !ok {
		return NotFound(selector)
	}
	return nil
}

func (c *Chrome) Exists(ctx context.Context, selector string) (bool, error) {
	expr := fmt.Sprintf(`document.querySelector(%s) !== null`, jsString(selector))
	var found bool
	if err := c.run(ctx, chromedp.Evaluate(expr, &found)); err != nil {
		return false, err
	}
	return found, nil
}

func (c *Chrome) Evaluate(ctx context.Context, expression string) error {
	return c.run(ctx, chromedp.Evaluate(expression, nil))
}

func (c *Chrome) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := c.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (c *Chrome) Cookies(ctx context.Context) ([]Cookie, error) {
	var raw []*network.Cookie
	err := c.run(ctx, chromedp.ActionFunc(func(cdpCtx context.Context) error {
		var err error
		raw, err = storage.GetCookies().Do(cdpCtx)
		return err
	}))
	if err != nil {
		return nil, err
	}
	cookies := make([]Cookie, len(raw))
	for i, ck := range raw {
		cookies[i] = Cookie{
			Name:     ck.Name,
			Value:    ck.Value,
			Domain:   ck.Domain,
			Path:     ck.Path,
			Expires:  ck.Expires,
			HTTPOnly: ck.HTTPOnly,
			Secure:   ck.Secure,
		}
	}
	return cookies, nil
}

func (c *Chrome) SetCookies(ctx context.Context, cookies []Cookie) error {
	params := make([]*network.CookieParam, len(cookies))
	for i, ck := range cookies {
		p := &network.CookieParam{
			Name:     ck.Name,
			Value:    ck.Value,
			Domain:   ck.Domain,
			Path:     ck.Path,
			HTTPOnly: ck.HTTPOnly,
			Secure:   ck.Secure,
		}
		if ck.Expires > 0 {
			exp := cdp.TimeSinceEpoch(time.Unix(int64(ck.Expires), 0))
			p.Expires = &exp
		}
		params[i] = p
	}
	return c.run(ctx, chromedp.ActionFunc(func(cdpCtx context.Context) error {
		return storage.SetCookies(params).Do(cdpCtx)
	}))
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
