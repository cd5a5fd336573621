package interrogate

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/gonzobot/gonzo/pkg/browser"
	"github.com/gonzobot/gonzo/pkg/telemetry"
)

// Orchestrator processes a batch of conversation plans into a RunResult.
type Orchestrator struct {
	runtime    browser.Runtime
	sessionCfg browser.SessionConfig
	watch      WatchConfig
	limits     Limits
	hub        *telemetry.Hub
}

// NewOrchestrator wires an orchestrator against a browser runtime. The hub
// may be nil when no observer is attached.
func NewOrchestrator(runtime browser.Runtime, sessionCfg browser.SessionConfig, watch WatchConfig, limits Limits, hub *telemetry.Hub) *Orchestrator {
	return &Orchestrator{
		runtime:    runtime,
		sessionCfg: sessionCfg,
		watch:      watch,
		limits:     limits,
		hub:        hub,
	}
}

// Run conducts up to MaxConversationsPerRun conversations, at most
// Concurrency of them holding an open session at a time, and aggregates
// every transcript produced. Only a configuration defect returns an error;
// per-conversation failures are recorded on their transcripts. A RunResult
// is returned for every validly-configured run, even one where every
// conversation was abandoned.
func (o *Orchestrator) Run(ctx context.Context, plans []ConversationPlan) (*RunResult, error) {
	if err := o.limits.Validate(); err != nil {
		return nil, err
	}
	if err := o.sessionCfg.Selectors.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	runID := ulid.Make().String()

	// Earliest-listed plans take priority; excess plans are dropped, not
	// deferred. This run has no carry-over queue.
	retained := plans
	if len(retained) > o.limits.MaxConversationsPerRun {
		log.Printf("[run:%s] truncating %d plans to %d", runID, len(plans), o.limits.MaxConversationsPerRun)
		retained = retained[:o.limits.MaxConversationsPerRun]
	}

	result := &RunResult{
		RunID:          runID,
		Timestamp:      time.Now(),
		AttemptedCount: len(retained),
	}
	o.publish(telemetry.EventRunStarted, runID, map[string]any{
		"plans":    len(plans),
		"retained": len(retained),
	})
	log.Printf("[run:%s] starting %d conversations (concurrency %d)", runID, len(retained), o.limits.Concurrency)

	driver := NewDriver(o.watch, o.hub)
	runner := NewRunner(o.runtime, o.sessionCfg, driver, o.limits, o.hub)

	// Transcripts land in plan order regardless of completion order; each
	// slot is owned by exactly one goroutine.
	transcripts := make([]ConversationTranscript, len(retained))
	var g errgroup.Group
	g.SetLimit(o.limits.Concurrency)
	for i, plan := range retained {
		i, plan := i, plan
		g.Go(func() error {
			transcripts[i] = runner.Run(ctx, plan)
			return nil
		})
	}
	_ = g.Wait()

	completed := 0
	for _, transcript := range transcripts {
		if transcript.TerminalStatus == ConversationCompleted {
			completed++
		}
	}
	result.Transcripts = transcripts
	result.CompletedCount = completed

	o.publish(telemetry.EventRunCompleted, runID, map[string]any{
		"attempted": result.AttemptedCount,
		"completed": result.CompletedCount,
	})
	log.Printf("[run:%s] done: %d/%d conversations completed", runID, completed, len(retained))
	return result, nil
}

func (o *Orchestrator) publish(eventType telemetry.EventType, runID string, data map[string]any) {
	if o.hub == nil {
		return
	}
	o.hub.Publish(telemetry.Event{
		Type:  eventType,
		RunID: runID,
		Data:  data,
	})
}
