package browser

import (
	"fmt"
	"strings"
	"time"
)

// SelectorStrategy locates the pieces of the target chat widget. Each field is
// an ordered list of CSS selector candidates; the first one that matches wins.
// Selectors are configuration because they are the most brittle part of the
// boundary: a site redesign should be a config update, not a code change.
type SelectorStrategy struct {
	Input      []string `yaml:"input" json:"input"`
	SendButton []string `yaml:"send_button" json:"send_button"`
	Output     []string `yaml:"output" json:"output"`
	Busy       []string `yaml:"busy" json:"busy,omitempty"`
}

// DefaultSelectorStrategy returns selectors that match the Demeter AI
// assistant widget as currently deployed.
func DefaultSelectorStrategy() SelectorStrategy {
	return SelectorStrategy{
		Input: []string{
			"textarea[placeholder*='Ask']",
			"textarea[placeholder*='question']",
			"input[type='text']",
		},
		SendButton: []string{
			"button[type='submit']",
		},
		Output: []string{
			"[data-role='assistant']",
			".assistant-message",
			"[class*='assistant']",
			".message:last-child",
			"[class*='response']:last-of-type",
		},
		Busy: []string{
			".loading",
			".spinner",
			"[class*='loading']",
		},
	}
}

// Validate checks that the strategy can locate the regions a conversation
// needs. The busy indicator is optional; some targets expose none.
func (s SelectorStrategy) Validate() error {
	if len(s.Input) == 0 {
		return fmt.Errorf("selector strategy: no input selectors")
	}
	if len(s.Output) == 0 {
		return fmt.Errorf("selector strategy: no output selectors")
	}
	for _, group := range [][]string{s.Input, s.SendButton, s.Output, s.Busy} {
		for _, sel := range group {
			if strings.TrimSpace(sel) == "" {
				return fmt.Errorf("selector strategy: empty selector entry")
			}
		}
	}
	return nil
}

// Viewport defines the browser viewport size.
type Viewport struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// SessionConfig configures one isolated session against the target site.
// It is an immutable value passed at construction; concurrent sessions with
// different configurations must not share state.
type SessionConfig struct {
	SessionID         string
	TargetURL         string
	Selectors         SelectorStrategy
	Viewport          Viewport
	NavigationTimeout time.Duration
	// ReadyDelay is how long to wait after navigation before the widget is
	// considered interactive. The target renders its input control
	// client-side, after document load.
	ReadyDelay time.Duration
	// LocateTimeout bounds each attempt to find the input control or send
	// button before the next selector candidate is tried.
	LocateTimeout time.Duration
}

// DefaultSessionConfig returns the recommended session defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Selectors:         DefaultSelectorStrategy(),
		Viewport:          Viewport{Width: 1280, Height: 720},
		NavigationTimeout: 30 * time.Second,
		ReadyDelay:        3 * time.Second,
		LocateTimeout:     5 * time.Second,
	}
}
