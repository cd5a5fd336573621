package interrogate

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonzobot/gonzo/pkg/browser"
)

func answeringRuntime() *fakeRuntime {
	return &fakeRuntime{open: func(cfg browser.SessionConfig) (browser.Session, error) {
		return &scriptedSession{id: cfg.SessionID, respond: answerEach("a1", "a2", "a3", "a4", "a5")}, nil
	}}
}

func newTestOrchestrator(rt browser.Runtime, limits Limits) *Orchestrator {
	cfg := browser.SessionConfig{TargetURL: "https://example.test", Selectors: testSelectors()}
	return NewOrchestrator(rt, cfg, fastWatch(), limits, nil)
}

func makePlans(n int) []ConversationPlan {
	plans := make([]ConversationPlan, n)
	for i := range plans {
		plans[i] = ConversationPlan{
			ID:              fmt.Sprintf("conv_%03d", i+1),
			Topic:           fmt.Sprintf("topic %d", i+1),
			OpeningQuestion: "q1",
		}
	}
	return plans
}

func TestOrchestratorTruncatesPlansToCap(t *testing.T) {
	rt := answeringRuntime()
	o := newTestOrchestrator(rt, testLimits())

	result, err := o.Run(context.Background(), makePlans(8))
	require.NoError(t, err)

	assert.Equal(t, 5, result.AttemptedCount)
	require.Len(t, result.Transcripts, 5)
	assert.Equal(t, "conv_005", result.Transcripts[4].ConversationID,
		"earliest-listed plans are retained")
	assert.Equal(t, 5, rt.openCount())
}

func TestOrchestratorInvalidLimitsFailsRun(t *testing.T) {
	limits := testLimits()
	limits.MaxExchangesPerConversation = 0
	o := newTestOrchestrator(answeringRuntime(), limits)

	result, err := o.Run(context.Background(), makePlans(2))
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Nil(t, result)
}

func TestOrchestratorInvalidSelectorsFailsRun(t *testing.T) {
	rt := answeringRuntime()
	cfg := browser.SessionConfig{TargetURL: "https://example.test"} // no selectors
	o := NewOrchestrator(rt, cfg, fastWatch(), testLimits(), nil)

	_, err := o.Run(context.Background(), makePlans(1))
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Zero(t, rt.openCount(), "configuration defects must fail before any session opens")
}

func TestOrchestratorRecordsAbandonedAlongsideCompleted(t *testing.T) {
	// The second conversation cannot reach the target at all. Its abandoned
	// transcript still appears in the result, in plan order.
	var mu sync.Mutex
	opens := 0
	rt := &fakeRuntime{open: func(cfg browser.SessionConfig) (browser.Session, error) {
		mu.Lock()
		opens++
		n := opens
		mu.Unlock()
		if n == 2 {
			return nil, browser.WrapSessionError("connect", "target unreachable", browser.ErrConnection)
		}
		return &scriptedSession{id: cfg.SessionID, respond: answerEach("a1")}, nil
	}}
	o := newTestOrchestrator(rt, testLimits())

	result, err := o.Run(context.Background(), makePlans(3))
	require.NoError(t, err)

	require.Len(t, result.Transcripts, 3)
	assert.Equal(t, 3, result.AttemptedCount)
	assert.Equal(t, 2, result.CompletedCount)
	assert.Equal(t, ConversationCompleted, result.Transcripts[0].TerminalStatus)
	assert.Equal(t, ConversationAbandoned, result.Transcripts[1].TerminalStatus)
	assert.Equal(t, ConversationCompleted, result.Transcripts[2].TerminalStatus)
}

func TestOrchestratorConcurrentRunKeepsPlanOrder(t *testing.T) {
	// Conversations finish out of order under concurrency; transcripts must
	// still line up with the plan list.
	var mu sync.Mutex
	opens := 0
	rt := &fakeRuntime{open: func(cfg browser.SessionConfig) (browser.Session, error) {
		mu.Lock()
		opens++
		n := opens
		mu.Unlock()
		sess := &scriptedSession{id: cfg.SessionID}
		sess.respond = func(int, string) (string, error) {
			// Earlier sessions answer slower so later plans finish first.
			time.Sleep(time.Duration(6-n) * 5 * time.Millisecond)
			return fmt.Sprintf("answer from session %d", n), nil
		}
		return sess, nil
	}}
	limits := testLimits()
	limits.Concurrency = 3
	o := newTestOrchestrator(rt, limits)

	plans := makePlans(5)
	result, err := o.Run(context.Background(), plans)
	require.NoError(t, err)

	require.Len(t, result.Transcripts, 5)
	assert.Equal(t, 5, result.CompletedCount)
	for i, plan := range plans {
		assert.Equal(t, plan.ID, result.Transcripts[i].ConversationID)
		assert.Equal(t, plan.Topic, result.Transcripts[i].Topic)
	}
}

func TestOrchestratorAssignsRunID(t *testing.T) {
	o := newTestOrchestrator(answeringRuntime(), testLimits())

	first, err := o.Run(context.Background(), makePlans(1))
	require.NoError(t, err)
	second, err := o.Run(context.Background(), makePlans(1))
	require.NoError(t, err)

	assert.NotEmpty(t, first.RunID)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.False(t, first.Timestamp.IsZero())
}

func TestOrchestratorEmptyPlanListYieldsEmptyResult(t *testing.T) {
	rt := answeringRuntime()
	o := newTestOrchestrator(rt, testLimits())

	result, err := o.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, result.AttemptedCount)
	assert.Zero(t, result.CompletedCount)
	assert.Empty(t, result.Transcripts)
	assert.Zero(t, rt.openCount())
}
