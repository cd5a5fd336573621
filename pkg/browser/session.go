package browser

import "context"

// Runtime opens isolated sessions against the target site.
type Runtime interface {
	OpenSession(ctx context.Context, cfg SessionConfig) (Session, error)
	Close() error
}

// Session is the port implemented by browser adapters. One session is bound
// to exactly one conversation and is never shared.
type Session interface {
	ID() string
	// Submit enters text into the chat input and triggers send. Returns an
	// error satisfying IsInputError when the input control cannot be reached.
	Submit(ctx context.Context, text string) error
	// ReadOutput returns the current visible text of the output region. Pure
	// read, callable repeatedly.
	ReadOutput(ctx context.Context) (string, error)
	// Busy reports whether a loading indicator is currently visible. Targets
	// without a configured indicator always report false.
	Busy(ctx context.Context) (bool, error)
	// Close releases all automation resources. Safe to call more than once.
	Close() error
}
