package interrogate

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/gonzobot/gonzo/pkg/browser"
	"github.com/gonzobot/gonzo/pkg/telemetry"
)

// Runner drives one full conversation plan through one session.
//
// State machine: NOT_STARTED -> OPENING -> EXCHANGING -> terminal. A failed
// session open abandons the conversation; a failed exchange ends it early; a
// timed-out exchange does not, since one slow reply is not evidence the whole
// session is broken.
type Runner struct {
	runtime    browser.Runtime
	sessionCfg browser.SessionConfig
	driver     *Driver
	limits     Limits
	hub        *telemetry.Hub
}

// NewRunner creates a conversation runner. sessionCfg is a template; each
// conversation gets its own session with a fresh ID.
func NewRunner(runtime browser.Runtime, sessionCfg browser.SessionConfig, driver *Driver, limits Limits, hub *telemetry.Hub) *Runner {
	return &Runner{
		runtime:    runtime,
		sessionCfg: sessionCfg,
		driver:     driver,
		limits:     limits,
		hub:        hub,
	}
}

// Run conducts the plan's question sequence and always returns a transcript,
// whatever was captured before any failure included.
func (r *Runner) Run(ctx context.Context, plan ConversationPlan) ConversationTranscript {
	transcript := ConversationTranscript{
		ConversationID: plan.ID,
		Topic:          plan.Topic,
		StartedAt:      time.Now(),
		TerminalStatus: ConversationAbandoned,
	}
	r.publish(telemetry.EventConversationStarted, plan.ID, "", nil)
	recordConversationStarted()

	questions := plan.Questions(r.limits.MaxExchangesPerConversation)
	if len(questions) == 0 {
		log.Printf("[conversation:%s] plan has no questions, abandoning", plan.ID)
		return r.finalize(transcript)
	}

	// OPENING
	cfg := r.sessionCfg
	cfg.SessionID = uuid.NewString()
	sess, err := r.runtime.OpenSession(ctx, cfg)
	if err != nil {
		log.Printf("[conversation:%s] session open failed: %v", plan.ID, err)
		return r.finalize(transcript)
	}
	// Scoped release on every terminal transition, panics included.
	defer func() {
		if closeErr := sess.Close(); closeErr != nil {
			log.Printf("[conversation:%s] session close: %v", plan.ID, closeErr)
		}
	}()

	// EXCHANGING
	succeeded := 0
	cut := false
	for _, question := range questions {
		if ctx.Err() != nil {
			// Run cancelled: return what we have rather than leaving the
			// session open or the transcript unreported.
			cut = true
			break
		}
		exchange := r.driver.Ask(ctx, sess, question, r.limits.PerExchangeTimeout, r.limits.MaxRetries)
		transcript.Exchanges = append(transcript.Exchanges, exchange)
		if exchange.Status == StatusOK {
			succeeded++
		}
		if exchange.Status == StatusFailed {
			// Session presumed broken; later questions would corrupt capture.
			cut = true
			break
		}
	}

	switch {
	case !cut && succeeded >= 1:
		transcript.TerminalStatus = ConversationCompleted
	case succeeded >= 1:
		transcript.TerminalStatus = ConversationPartial
	default:
		transcript.TerminalStatus = ConversationAbandoned
	}
	return r.finalize(transcript)
}

func (r *Runner) finalize(transcript ConversationTranscript) ConversationTranscript {
	recordConversationOutcome(transcript.TerminalStatus)
	switch transcript.TerminalStatus {
	case ConversationCompleted:
		r.publish(telemetry.EventConversationCompleted, transcript.ConversationID, "", map[string]any{
			"exchanges": len(transcript.Exchanges),
		})
	case ConversationPartial:
		r.publish(telemetry.EventConversationPartial, transcript.ConversationID, "", map[string]any{
			"exchanges": len(transcript.Exchanges),
		})
	default:
		r.publish(telemetry.EventConversationAbandoned, transcript.ConversationID, "", nil)
	}
	return transcript
}

func (r *Runner) publish(eventType telemetry.EventType, conversationID, sessionID string, data map[string]any) {
	if r.hub == nil {
		return
	}
	r.hub.Publish(telemetry.Event{
		Type:           eventType,
		ConversationID: conversationID,
		SessionID:      sessionID,
		Data:           data,
	})
}
