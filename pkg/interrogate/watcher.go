package interrogate

import (
	"context"
	"strings"
	"time"

	"github.com/gonzobot/gonzo/pkg/browser"
)

// WatchConfig tunes response-completion detection. The target exposes no
// explicit "done" event, so completion is inferred from output stability plus
// the absence of a loading indicator. Both knobs are configuration so they
// can be tuned empirically per target.
type WatchConfig struct {
	// PollInterval is the fixed interval between output reads. Fixed, not
	// exponential: the uncertainty is about latency, not overload.
	PollInterval time.Duration
	// StabilityWindow is how many consecutive unchanged polls are required
	// before a response is declared complete. Minimum 2; a single unchanged
	// read can be a brief pause mid-stream.
	StabilityWindow int
}

// DefaultWatchConfig returns the recommended polling discipline.
func DefaultWatchConfig() WatchConfig {
	return WatchConfig{
		PollInterval:    2 * time.Second,
		StabilityWindow: 2,
	}
}

// WatchOutcome reports how a watch ended.
type WatchOutcome string

const (
	WatchComplete WatchOutcome = "complete"
	WatchTimedOut WatchOutcome = "timed_out"
)

// Watcher polls a session's output region to decide when a reply has fully
// arrived.
type Watcher struct {
	cfg WatchConfig
}

// NewWatcher creates a watcher with the given polling discipline.
func NewWatcher(cfg WatchConfig) *Watcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultWatchConfig().PollInterval
	}
	if cfg.StabilityWindow < 2 {
		cfg.StabilityWindow = 2
	}
	return &Watcher{cfg: cfg}
}

// Await polls the session's output until a new, stable response has arrived
// or the deadline passes. baseline is the output snapshot taken immediately
// before the question was submitted; a response is in progress once the text
// differs from it, and complete once the text has been unchanged across
// StabilityWindow consecutive polls with no busy indicator visible.
//
// Returns (text, WatchComplete) on success, or (partialText, WatchTimedOut)
// when no stable completion was observed in time; partialText may be empty
// if the reply never started. A non-nil error means the session itself broke
// mid-watch; that is not retryable here.
func (w *Watcher) Await(ctx context.Context, sess browser.Session, baseline string, deadline time.Duration) (string, WatchOutcome, error) {
	deadlineTimer := time.NewTimer(deadline)
	defer deadlineTimer.Stop()
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	var last string
	stable := 0

	for {
		select {
		case <-ctx.Done():
			return stripBaseline(last, baseline), WatchTimedOut, nil
		case <-deadlineTimer.C:
			return stripBaseline(last, baseline), WatchTimedOut, nil
		case <-ticker.C:
			text, err := sess.ReadOutput(ctx)
			if err != nil {
				return "", "", err
			}
			if text == baseline {
				// Reply has not started; keep waiting.
				last = ""
				stable = 0
				continue
			}
			if text == last {
				stable++
			} else {
				last = text
				stable = 1
			}
			if stable < w.cfg.StabilityWindow {
				continue
			}
			busy, err := sess.Busy(ctx)
			if err != nil {
				return "", "", err
			}
			if busy {
				// Text paused but the target says it is still thinking.
				continue
			}
			return stripBaseline(last, baseline), WatchComplete, nil
		}
	}
}

// stripBaseline removes the pre-submission text when the output region
// accumulates the whole conversation, leaving just the new reply.
func stripBaseline(text, baseline string) string {
	if text == "" {
		return ""
	}
	if baseline != "" && strings.HasPrefix(text, baseline) {
		return strings.TrimSpace(strings.TrimPrefix(text, baseline))
	}
	return strings.TrimSpace(text)
}
