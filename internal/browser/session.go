// File: internal/browser/session.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/forgelabs-io/accountforge/internal/config"
)

// Session is a live attachment to a remotely running browser profile over
// the DevTools protocol. All operations run inside the session's tab; the
// parent context passed to Open bounds the whole session, so cancelling the
// run tears the session down with it.
type Session struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	allocCancel context.CancelFunc
	taskCancel  context.CancelFunc
	ctx         context.Context

	closeOnce sync.Once
	closeErr  error
}

// Open attaches to the DevTools websocket endpoint exposed by a started
// profile and verifies the connection by driving a trivial navigation. The
// attach is bounded by cfg.OpenTimeout.
func Open(parent context.Context, endpoint string, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	if endpoint == "" {
		return nil, errors.New("browser: empty devtools endpoint")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	allocCtx, allocCancel := chromedp.NewRemoteAllocator(parent, endpoint, chromedp.NoModifyURL)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		cfg:         cfg,
		logger:      logger.Named("browser"),
		allocCancel: allocCancel,
		taskCancel:  taskCancel,
		ctx:         taskCtx,
	}

	verifyCtx, cancel := context.WithTimeout(taskCtx, cfg.OpenTimeout)
	defer cancel()
	if err := chromedp.Run(verifyCtx, chromedp.Navigate("about:blank")); err != nil {
		s.teardown()
		return nil, fmt.Errorf("browser: attach to %s: %w", endpoint, err)
	}

	s.logger.Debug("Session attached.", zap.String("endpoint", endpoint))
	return s, nil
}

// Navigate loads the given URL and waits for the document body to be ready,
// bounded by the configured navigation timeout.
func (s *Session) Navigate(url string) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.NavigationTimeout)
	defer cancel()
	err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	return nil
}

// Fill clears the element named by loc and types value into it.
func (s *Session) Fill(loc Locator, value string) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.ElementTimeout)
	defer cancel()
	err := chromedp.Run(ctx,
		chromedp.WaitVisible(loc.Query, loc.queryOption()),
		chromedp.Clear(loc.Query, loc.queryOption()),
		chromedp.SendKeys(loc.Query, value, loc.queryOption()),
	)
	if err != nil {
		return fmt.Errorf("browser: fill %s: %w", loc.Name, err)
	}
	return nil
}

// SetValue writes value directly onto the element, firing input and change
// events. Used for select controls and fields that reject synthetic typing.
func (s *Session) SetValue(loc Locator, value string) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.ElementTimeout)
	defer cancel()
	err := chromedp.Run(ctx,
		chromedp.WaitVisible(loc.Query, loc.queryOption()),
		chromedp.SetValue(loc.Query, value, loc.queryOption()),
	)
	if err != nil {
		return fmt.Errorf("browser: set value on %s: %w", loc.Name, err)
	}
	return nil
}

// Click waits for the element to become visible and clicks it.
func (s *Session) Click(loc Locator) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.ElementTimeout)
	defer cancel()
	err := chromedp.Run(ctx,
		chromedp.WaitVisible(loc.Query, loc.queryOption()),
		chromedp.Click(loc.Query, loc.queryOption()),
	)
	if err != nil {
		return fmt.Errorf("browser: click %s: %w", loc.Name, err)
	}
	return nil
}

// RemoveAttribute strips an attribute from the element. Best effort helper
// for readonly date fields on some signup variants.
func (s *Session) RemoveAttribute(loc Locator, attr string) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.ElementTimeout)
	defer cancel()
	err := chromedp.Run(ctx,
		chromedp.WaitReady(loc.Query, loc.queryOption()),
		chromedp.RemoveAttribute(loc.Query, attr, loc.queryOption()),
	)
	if err != nil {
		return fmt.Errorf("browser: remove attribute %s on %s: %w", attr, loc.Name, err)
	}
	return nil
}

// WaitFor blocks until the element is visible or the timeout elapses. A
// timeout is a normal negative answer and reports (false, nil); an error is
// returned only when the session itself is cancelled or broken.
func (s *Session) WaitFor(loc Locator, timeout time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	err := chromedp.Run(ctx, chromedp.WaitVisible(loc.Query, loc.queryOption()))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, context.DeadlineExceeded) && s.ctx.Err() == nil {
		return false, nil
	}
	return false, fmt.Errorf("browser: wait for %s: %w", loc.Name, err)
}

// CurrentURL reports the URL of the session's active document.
func (s *Session) CurrentURL() (string, error) {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.ElementTimeout)
	defer cancel()
	var url string
	if err := chromedp.Run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("browser: current url: %w", err)
	}
	return url, nil
}

// Close detaches from the remote browser. Safe to call multiple times and
// on an already-cancelled session; only the first call does any work.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if err := chromedp.Cancel(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.closeErr = fmt.Errorf("browser: close session: %w", err)
		}
		s.teardown()
		s.logger.Debug("Session closed.")
	})
	return s.closeErr
}

func (s *Session) teardown() {
	s.taskCancel()
	s.allocCancel()
}
