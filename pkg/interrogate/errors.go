package interrogate

import (
	"errors"
	"fmt"
)

// ErrConfiguration indicates a setup defect (malformed selectors, zero
// exchange cap). It fails the whole run before any session opens; every
// other failure is recovered per-conversation.
var ErrConfiguration = errors.New("invalid interrogation configuration")

// Validate checks the limits for setup defects.
func (l Limits) Validate() error {
	if l.MaxConversationsPerRun <= 0 {
		return fmt.Errorf("%w: max_conversations_per_run must be positive, got %d",
			ErrConfiguration, l.MaxConversationsPerRun)
	}
	if l.MaxExchangesPerConversation <= 0 {
		return fmt.Errorf("%w: max_exchanges_per_conversation must be positive, got %d",
			ErrConfiguration, l.MaxExchangesPerConversation)
	}
	if l.PerExchangeTimeout <= 0 {
		return fmt.Errorf("%w: per_exchange_timeout must be positive, got %s",
			ErrConfiguration, l.PerExchangeTimeout)
	}
	if l.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries must not be negative, got %d",
			ErrConfiguration, l.MaxRetries)
	}
	if l.Concurrency <= 0 {
		return fmt.Errorf("%w: concurrency must be positive, got %d",
			ErrConfiguration, l.Concurrency)
	}
	return nil
}
