package interrogate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonzobot/gonzo/pkg/browser"
)

func testDriver() *Driver {
	d := NewDriver(fastWatch(), nil)
	d.inputBackoff = time.Millisecond
	return d
}

func TestDriverAskCapturesCompletedReply(t *testing.T) {
	sess := &scriptedSession{id: "s1", respond: answerEach("the answer")}
	d := testDriver()

	ex := d.Ask(context.Background(), sess, "the question", time.Second, 1)

	assert.Equal(t, StatusOK, ex.Status)
	assert.Equal(t, "the question", ex.Question)
	assert.Equal(t, "the answer", ex.Response)
	assert.Equal(t, 1, sess.submitCount())
}

func TestDriverRetriesInputErrorWithBackoff(t *testing.T) {
	inputErr := browser.NewSessionError("input", "textarea not interactable")
	sess := &scriptedSession{id: "s1"}
	sess.respond = func(call int, _ string) (string, error) {
		if call == 0 {
			return "", inputErr
		}
		return "recovered", nil
	}
	d := testDriver()

	ex := d.Ask(context.Background(), sess, "q", time.Second, 1)

	assert.Equal(t, StatusOK, ex.Status)
	assert.Equal(t, "recovered", ex.Response)
	assert.Equal(t, 2, sess.submitCount())
}

func TestDriverInputErrorExhaustsRetries(t *testing.T) {
	inputErr := browser.NewSessionError("submit", "send button missing")
	sess := &scriptedSession{id: "s1"}
	sess.respond = func(int, string) (string, error) { return "", inputErr }
	d := testDriver()

	ex := d.Ask(context.Background(), sess, "q", time.Second, 2)

	assert.Equal(t, StatusFailed, ex.Status)
	assert.Equal(t, 3, sess.submitCount(), "initial attempt plus two retries")
}

func TestDriverNonInputSubmitErrorFailsImmediately(t *testing.T) {
	sess := &scriptedSession{id: "s1"}
	sess.respond = func(int, string) (string, error) {
		return "", errors.New("page crashed")
	}
	d := testDriver()

	ex := d.Ask(context.Background(), sess, "q", time.Second, 3)

	assert.Equal(t, StatusFailed, ex.Status)
	assert.Equal(t, 1, sess.submitCount(), "unexpected failures are not retried")
}

func TestDriverRetriesAfterWatchTimeout(t *testing.T) {
	// The first submission gets no reply at all; the retry does. A fresh
	// baseline is taken per attempt, so the retry's reply is detected.
	sess := &scriptedSession{id: "s1"}
	sess.respond = func(call int, _ string) (string, error) {
		if call == 0 {
			return "", nil
		}
		return "late but complete", nil
	}
	d := testDriver()

	ex := d.Ask(context.Background(), sess, "q", 30*time.Millisecond, 1)

	assert.Equal(t, StatusOK, ex.Status)
	assert.Equal(t, "late but complete", ex.Response)
	assert.Equal(t, 2, sess.submitCount())
}

func TestDriverTimeoutKeepsPartialAfterRetriesExhausted(t *testing.T) {
	// Every reply trickles in but the busy indicator never clears, so no
	// attempt reaches a stable completion.
	sess := &scriptedSession{id: "s1", busy: true, respond: answerEach("partial one", "partial two")}
	d := testDriver()

	ex := d.Ask(context.Background(), sess, "q", 30*time.Millisecond, 1)

	assert.Equal(t, StatusTimedOut, ex.Status)
	assert.Equal(t, "partial two", ex.Response, "partial text from the final attempt is preserved")
	assert.Equal(t, 2, sess.submitCount())
}

func TestDriverSessionErrorMidWatchFails(t *testing.T) {
	sess := &scriptedSession{id: "s1"}
	d := testDriver()

	// Baseline read succeeds, then the session dies before the first poll.
	sess.respond = func(int, string) (string, error) {
		sess.mu.Lock()
		sess.readErr = browser.ErrSessionClosed
		sess.mu.Unlock()
		return "", nil
	}
	ex := d.Ask(context.Background(), sess, "q", time.Second, 3)

	assert.Equal(t, StatusFailed, ex.Status)
	assert.Equal(t, 1, sess.submitCount(), "session errors are not retried")
}

func TestDriverCancelledContextDoesNotRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sess := &scriptedSession{id: "s1"}
	sess.respond = func(int, string) (string, error) {
		cancel()
		return "", nil
	}
	d := testDriver()

	ex := d.Ask(ctx, sess, "q", time.Second, 5)

	require.Equal(t, StatusTimedOut, ex.Status)
	assert.Equal(t, 1, sess.submitCount(), "cancellation must stop the retry loop")
}
