package interrogate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gonzobot/gonzo/pkg/browser"
)

// scriptedSession emulates a chat page. Output accumulates like the real
// message region; Submit appends whatever respond returns, so the watcher
// sees the reply appear on its next poll.
type scriptedSession struct {
	id string

	mu      sync.Mutex
	output  string
	submits []string
	// respond maps the nth Submit call to the text appended to the output
	// region. An error simulates a failed submission; empty text simulates
	// an assistant that never answers.
	respond func(call int, question string) (string, error)
	busy    bool
	readErr error

	closes atomic.Int32
}

func (s *scriptedSession) ID() string { return s.id }

func (s *scriptedSession) Submit(_ context.Context, question string) error {
	s.mu.Lock()
	call := len(s.submits)
	s.submits = append(s.submits, question)
	respond := s.respond
	s.mu.Unlock()
	if respond == nil {
		return nil
	}
	// The callback runs unlocked so tests can mutate the session from it.
	text, err := respond(call, question)
	if err != nil {
		return err
	}
	if text != "" {
		s.mu.Lock()
		if s.output != "" {
			s.output += "\n"
		}
		s.output += text
		s.mu.Unlock()
	}
	return nil
}

func (s *scriptedSession) ReadOutput(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return "", s.readErr
	}
	return s.output, nil
}

func (s *scriptedSession) Busy(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy, nil
}

func (s *scriptedSession) Close() error {
	s.closes.Add(1)
	return nil
}

func (s *scriptedSession) submitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.submits)
}

// answerEach responds to every question with its scripted answer in order.
func answerEach(answers ...string) func(int, string) (string, error) {
	return func(call int, _ string) (string, error) {
		if call < len(answers) {
			return answers[call], nil
		}
		return "", nil
	}
}

// fakeRuntime hands out sessions built by open.
type fakeRuntime struct {
	mu     sync.Mutex
	open   func(cfg browser.SessionConfig) (browser.Session, error)
	opened int
}

func (r *fakeRuntime) OpenSession(_ context.Context, cfg browser.SessionConfig) (browser.Session, error) {
	r.mu.Lock()
	r.opened++
	r.mu.Unlock()
	return r.open(cfg)
}

func (r *fakeRuntime) Close() error { return nil }

func (r *fakeRuntime) openCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opened
}

// fastWatch keeps poll latency negligible in tests.
func fastWatch() WatchConfig {
	return WatchConfig{PollInterval: time.Millisecond, StabilityWindow: 2}
}

func testSelectors() browser.SelectorStrategy {
	return browser.SelectorStrategy{
		Input:  []string{"#in"},
		Output: []string{"#out"},
	}
}
