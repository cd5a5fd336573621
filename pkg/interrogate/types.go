// Package interrogate drives bounded question-and-answer sessions against a
// browser-rendered chat assistant and captures structured transcripts.
package interrogate

import (
	"encoding/json"
	"time"
)

// ConversationPlan is an ordered set of pre-written questions about one
// topic, produced by the external planning collaborator. Immutable input.
type ConversationPlan struct {
	ID                string   `yaml:"id" json:"id"`
	Topic             string   `yaml:"topic" json:"topic"`
	OpeningQuestion   string   `yaml:"opening_question" json:"opening_question"`
	FollowUpQuestions []string `yaml:"follow_up_questions" json:"follow_up_questions,omitempty"`
}

// Questions returns the question sequence for this plan, capped at
// maxExchanges total (the opening question plus up to maxExchanges-1
// follow-ups).
func (p ConversationPlan) Questions(maxExchanges int) []string {
	if p.OpeningQuestion == "" {
		return nil
	}
	questions := []string{p.OpeningQuestion}
	for _, q := range p.FollowUpQuestions {
		if maxExchanges > 0 && len(questions) >= maxExchanges {
			break
		}
		questions = append(questions, q)
	}
	return questions
}

// ExchangeStatus is the outcome of one question/response pair.
type ExchangeStatus string

const (
	StatusOK       ExchangeStatus = "ok"
	StatusTimedOut ExchangeStatus = "timed_out"
	StatusFailed   ExchangeStatus = "failed"
)

// Exchange records one question sent and whatever response was captured.
// Never mutated after creation.
type Exchange struct {
	Question string
	Response string
	Status   ExchangeStatus
	Latency  time.Duration
}

// exchangeJSON is the wire form consumed by the downstream assessment
// collaborator; latency travels in milliseconds.
type exchangeJSON struct {
	Question  string         `json:"question"`
	Response  string         `json:"response"`
	Status    ExchangeStatus `json:"status"`
	LatencyMS int64          `json:"latency_ms"`
}

func (e Exchange) MarshalJSON() ([]byte, error) {
	return json.Marshal(exchangeJSON{
		Question:  e.Question,
		Response:  e.Response,
		Status:    e.Status,
		LatencyMS: e.Latency.Milliseconds(),
	})
}

func (e *Exchange) UnmarshalJSON(data []byte) error {
	var j exchangeJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*e = Exchange{
		Question: j.Question,
		Response: j.Response,
		Status:   j.Status,
		Latency:  time.Duration(j.LatencyMS) * time.Millisecond,
	}
	return nil
}

// TerminalStatus classifies how a conversation ended.
type TerminalStatus string

const (
	// ConversationCompleted: the plan was exhausted (or the exchange cap
	// reached) with at least one successful exchange.
	ConversationCompleted TerminalStatus = "completed"
	// ConversationPartial: at least one exchange succeeded before the
	// conversation was cut short.
	ConversationPartial TerminalStatus = "partial"
	// ConversationAbandoned: zero exchanges succeeded.
	ConversationAbandoned TerminalStatus = "abandoned"
)

// ConversationTranscript is the write-once record of one conversation.
// Owned by the runner that produced it until handed to the orchestrator,
// immutable thereafter.
type ConversationTranscript struct {
	ConversationID string         `json:"conversation_id"`
	Topic          string         `json:"topic"`
	Exchanges      []Exchange     `json:"exchanges"`
	TerminalStatus TerminalStatus `json:"terminal_status"`
	StartedAt      time.Time      `json:"started_at"`
}

// RunResult aggregates every transcript a run produced, regardless of
// terminal status. Downstream assessment must be able to distinguish "no
// useful answer" from "never asked".
type RunResult struct {
	RunID          string                   `json:"run_id"`
	Timestamp      time.Time                `json:"timestamp"`
	Transcripts    []ConversationTranscript `json:"transcripts"`
	AttemptedCount int                      `json:"attempted_count"`
	CompletedCount int                      `json:"completed_count"`
}

// Limits bounds one run. Shared read-only across all conversations.
type Limits struct {
	MaxConversationsPerRun      int
	MaxExchangesPerConversation int
	PerExchangeTimeout          time.Duration
	MaxRetries                  int
	// Concurrency caps how many conversations hold an open session at once.
	// Each session is a real browser context; the target must not be
	// hammered with unbounded parallel sessions.
	Concurrency int
}

// DefaultLimits returns the recommended run limits.
func DefaultLimits() Limits {
	return Limits{
		MaxConversationsPerRun:      5,
		MaxExchangesPerConversation: 5,
		PerExchangeTimeout:          120 * time.Second,
		MaxRetries:                  1,
		Concurrency:                 1,
	}
}
