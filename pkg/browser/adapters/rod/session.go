package rod

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	kb "github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/gonzobot/gonzo/pkg/browser"
)

// Session binds one incognito page to one conversation.
type Session struct {
	id      string
	cfg     browser.SessionConfig
	page    *rod.Page
	metrics *browser.Metrics

	mu     sync.Mutex
	closed bool
}

// ID returns the session identifier.
func (s *Session) ID() string {
	if s == nil {
		return ""
	}
	return s.id
}

// Submit fills the chat input with text and triggers send. The send button is
// optional; when no candidate matches, Enter is pressed in the input instead.
func (s *Session) Submit(ctx context.Context, text string) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	start := time.Now()

	input, err := s.findFirst(ctx, s.cfg.Selectors.Input)
	if err != nil {
		s.metrics.RecordSubmit(s.id, false, time.Since(start))
		return browser.WrapSessionError("input", "chat input not found", err)
	}
	// Clear any stale text before typing; retried submissions reuse the field.
	_ = input.SelectAllText()
	if err := input.Input(text); err != nil {
		s.metrics.RecordSubmit(s.id, false, time.Since(start))
		return browser.WrapSessionError("input", "fill chat input", err)
	}

	if button, err := s.findFirst(ctx, s.cfg.Selectors.SendButton); err == nil {
		if err := button.Click(proto.InputMouseButtonLeft, 1); err != nil {
			s.metrics.RecordSubmit(s.id, false, time.Since(start))
			return browser.WrapSessionError("submit", "click send button", err)
		}
	} else if err := input.Type(kb.Enter); err != nil {
		s.metrics.RecordSubmit(s.id, false, time.Since(start))
		return browser.WrapSessionError("submit", "press enter", err)
	}

	s.metrics.RecordSubmit(s.id, true, time.Since(start))
	return nil
}

// ReadOutput returns the current visible text of the output region. When no
// output selector matches yet, the page body text is the fallback, exactly so
// that a baseline snapshot can be taken before the first reply exists.
func (s *Session) ReadOutput(ctx context.Context) (string, error) {
	if err := s.ensureOpen(); err != nil {
		return "", err
	}
	s.metrics.RecordRead()

	page := s.page.Context(ctx)
	for _, sel := range s.cfg.Selectors.Output {
		ok, el, err := page.Has(sel)
		if err != nil {
			return "", browser.WrapSessionError("read", "query output region", err)
		}
		if !ok {
			continue
		}
		text, err := el.Text()
		if err != nil {
			return "", browser.WrapSessionError("read", "read output region", err)
		}
		return strings.TrimSpace(text), nil
	}

	body, err := page.Element("body")
	if err != nil {
		return "", browser.WrapSessionError("read", "read page body", err)
	}
	text, err := body.Text()
	if err != nil {
		return "", browser.WrapSessionError("read", "read page body", err)
	}
	return strings.TrimSpace(text), nil
}

// Busy reports whether any configured loading indicator is visible.
func (s *Session) Busy(ctx context.Context) (bool, error) {
	if err := s.ensureOpen(); err != nil {
		return false, err
	}
	page := s.page.Context(ctx)
	for _, sel := range s.cfg.Selectors.Busy {
		ok, el, err := page.Has(sel)
		if err != nil {
			return false, browser.WrapSessionError("read", "query busy indicator", err)
		}
		if !ok {
			continue
		}
		visible, err := el.Visible()
		if err != nil {
			continue
		}
		if visible {
			return true, nil
		}
	}
	return false, nil
}

// Close releases the page. Idempotent; every conversation exit path calls it.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	page := s.page
	s.mu.Unlock()

	var err error
	if page != nil {
		err = page.Close()
	}
	s.metrics.RecordSessionClosed(s.id)
	return err
}

func (s *Session) ensureOpen() error {
	if s == nil || s.page == nil {
		return browser.ErrUnavailable
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return browser.ErrSessionClosed
	}
	return nil
}

// findFirst tries each selector candidate in order, waiting LocateTimeout for
// each, and returns the first element that appears.
func (s *Session) findFirst(ctx context.Context, selectors []string) (*rod.Element, error) {
	locate := s.cfg.LocateTimeout
	if locate <= 0 {
		locate = 5 * time.Second
	}
	var lastErr error = browser.ErrInput
	for _, sel := range selectors {
		el, err := s.page.Context(ctx).Timeout(locate).Element(sel)
		if err == nil {
			return el, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}
