package interrogate

import (
	"context"
	"log"
	"time"

	"github.com/gonzobot/gonzo/pkg/browser"
	"github.com/gonzobot/gonzo/pkg/telemetry"
)

// defaultInputBackoff is the initial delay before resubmitting after an input
// failure. Doubled per attempt: repeated immediate resubmission could itself
// be what is upsetting the target.
const defaultInputBackoff = 500 * time.Millisecond

// Driver sends one question into an open session and obtains the completed
// answer, applying timeout and retry policy.
type Driver struct {
	watcher      *Watcher
	hub          *telemetry.Hub
	inputBackoff time.Duration
}

// NewDriver creates an exchange driver with the given watch discipline.
func NewDriver(watch WatchConfig, hub *telemetry.Hub) *Driver {
	return &Driver{
		watcher:      NewWatcher(watch),
		hub:          hub,
		inputBackoff: defaultInputBackoff,
	}
}

// Ask submits question into sess and waits for the completed reply. The
// returned Exchange always records the question; its status distinguishes
// "still thinking" resolved too late (timed_out, watcher retried), "broken
// input" (retried, then failed), and "dead session" (failed immediately).
// Ask never returns an error: every failure mode is captured on the Exchange
// so the conversation runner can decide whether to continue.
func (d *Driver) Ask(ctx context.Context, sess browser.Session, question string, timeout time.Duration, maxRetries int) Exchange {
	start := time.Now()
	d.publish(telemetry.EventExchangeStarted, sess.ID(), nil)

	var partial string
	for attempt := 0; ; attempt++ {
		// Re-snapshot immediately before each (re)submission; a retry must
		// not mistake its own earlier partial output for a new reply.
		baseline, err := sess.ReadOutput(ctx)
		if err != nil {
			return d.finish(sess, Exchange{
				Question: question,
				Status:   StatusFailed,
				Latency:  time.Since(start),
			})
		}

		if err := sess.Submit(ctx, question); err != nil {
			if browser.IsInputError(err) && attempt < maxRetries && ctx.Err() == nil {
				log.Printf("[exchange] input failure, retrying (%d/%d): %v", attempt+1, maxRetries, err)
				d.publish(telemetry.EventExchangeRetry, sess.ID(), map[string]any{"reason": "input", "attempt": attempt + 1})
				recordExchangeRetry("input")
				if sleepErr := sleepCtx(ctx, d.inputBackoff<<attempt); sleepErr != nil {
					break
				}
				continue
			}
			return d.finish(sess, Exchange{
				Question: question,
				Status:   StatusFailed,
				Latency:  time.Since(start),
			})
		}

		text, outcome, err := d.watcher.Await(ctx, sess, baseline, timeout)
		if err != nil {
			// Session broke mid-watch; not retryable at this level.
			return d.finish(sess, Exchange{
				Question: question,
				Status:   StatusFailed,
				Latency:  time.Since(start),
			})
		}
		if outcome == WatchComplete {
			return d.finish(sess, Exchange{
				Question: question,
				Response: text,
				Status:   StatusOK,
				Latency:  time.Since(start),
			})
		}

		partial = text
		if attempt < maxRetries && ctx.Err() == nil {
			log.Printf("[exchange] no stable response within %s, retrying (%d/%d)", timeout, attempt+1, maxRetries)
			d.publish(telemetry.EventExchangeRetry, sess.ID(), map[string]any{"reason": "timeout", "attempt": attempt + 1})
			recordExchangeRetry("timeout")
			continue
		}
		break
	}

	// Retries exhausted (or run cancelled). Whatever partial text the last
	// attempt captured is preserved; disposal is the assessor's call.
	return d.finish(sess, Exchange{
		Question: question,
		Response: partial,
		Status:   StatusTimedOut,
		Latency:  time.Since(start),
	})
}

func (d *Driver) finish(sess browser.Session, ex Exchange) Exchange {
	recordExchange(ex.Status)
	switch ex.Status {
	case StatusOK:
		d.publish(telemetry.EventExchangeOK, sess.ID(), map[string]any{"latency_ms": ex.Latency.Milliseconds()})
	case StatusTimedOut:
		d.publish(telemetry.EventExchangeTimedOut, sess.ID(), map[string]any{"partial": ex.Response != ""})
	case StatusFailed:
		d.publish(telemetry.EventExchangeFailed, sess.ID(), nil)
	}
	return ex
}

func (d *Driver) publish(eventType telemetry.EventType, sessionID string, data map[string]any) {
	if d.hub == nil {
		return
	}
	d.hub.Publish(telemetry.Event{
		Type:      eventType,
		SessionID: sessionID,
		Data:      data,
	})
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
