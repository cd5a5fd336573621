// Package rod drives a real Chromium instance through the DevTools protocol.
package rod

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/gonzobot/gonzo/pkg/browser"
)

// Options configures the shared Chromium instance. Sessions themselves are
// isolated; only the browser process is shared.
type Options struct {
	// DebuggerURL attaches to an already-running Chromium. When empty a
	// headless instance is launched on demand.
	DebuggerURL string
	Headless    bool
	// Bin overrides the Chromium binary the launcher picks.
	Bin string
}

// DefaultOptions returns the recommended runtime defaults.
func DefaultOptions() Options {
	return Options{Headless: true}
}

// Runtime implements browser.Runtime on top of go-rod. The Chromium process
// is launched lazily on the first OpenSession call.
type Runtime struct {
	opts    Options
	metrics *browser.Metrics

	mu         sync.Mutex
	browser    *rod.Browser
	controlURL string
	closed     bool
}

// NewRuntime creates a rod-backed runtime.
func NewRuntime(opts Options, metrics *browser.Metrics) *Runtime {
	return &Runtime{opts: opts, metrics: metrics}
}

// OpenSession launches (if needed) the browser, opens an isolated incognito
// page, and navigates it to the target. Errors satisfy
// browser.IsConnectionError.
func (r *Runtime) OpenSession(ctx context.Context, cfg browser.SessionConfig) (browser.Session, error) {
	if r == nil {
		return nil, browser.ErrUnavailable
	}
	if err := r.ensureStarted(ctx); err != nil {
		return nil, browser.WrapSessionError("connect", "browser launch failed", err)
	}

	r.mu.Lock()
	b := r.browser
	r.mu.Unlock()
	if b == nil {
		return nil, browser.ErrUnavailable
	}

	// Full isolation per session; no cookie or storage bleed between
	// concurrent conversations.
	incognito, err := b.Incognito()
	if err != nil {
		return nil, browser.WrapSessionError("connect", "incognito context", err)
	}
	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, browser.WrapSessionError("connect", "create page", err)
	}

	if cfg.Viewport.Width > 0 && cfg.Viewport.Height > 0 {
		_ = (proto.EmulationSetDeviceMetricsOverride{
			Width:             cfg.Viewport.Width,
			Height:            cfg.Viewport.Height,
			DeviceScaleFactor: 1.0,
			Mobile:            false,
		}).Call(page)
	}

	navTimeout := cfg.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 30 * time.Second
	}
	if err := page.Context(ctx).Timeout(navTimeout).Navigate(cfg.TargetURL); err != nil {
		_ = page.Close()
		return nil, browser.WrapSessionError("navigate", fmt.Sprintf("navigate to %s", cfg.TargetURL), err)
	}
	// The widget hydrates client-side; give it a moment before poking at it.
	if err := sleepCtx(ctx, cfg.ReadyDelay); err != nil {
		_ = page.Close()
		return nil, browser.WrapSessionError("navigate", "cancelled during page settle", err)
	}

	s := &Session{id: cfg.SessionID, cfg: cfg, page: page, metrics: r.metrics}
	r.metrics.RecordSessionOpened(cfg.SessionID, cfg.TargetURL)
	return s, nil
}

func (r *Runtime) ensureStarted(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return browser.ErrUnavailable
	}
	if r.browser != nil {
		// Verify the connection is still alive before reusing it.
		if _, err := r.browser.Version(); err == nil {
			return nil
		}
		_ = r.browser.Close()
		r.browser = nil
		r.controlURL = ""
	}

	controlURL := r.opts.DebuggerURL
	if controlURL == "" {
		launch := launcher.New().Headless(r.opts.Headless)
		if r.opts.Bin != "" {
			launch = launch.Bin(r.opts.Bin)
		}
		url, err := launch.Launch()
		if err != nil {
			return fmt.Errorf("launch chromium: %w", err)
		}
		controlURL = url
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("connect to chromium: %w", err)
	}
	r.browser = b
	r.controlURL = controlURL
	return nil
}

// Close shuts down the shared browser process.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	r.browser = nil
	r.controlURL = ""
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
