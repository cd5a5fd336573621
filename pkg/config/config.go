// Package config loads and validates the gonzo run configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gonzobot/gonzo/pkg/browser"
	"github.com/gonzobot/gonzo/pkg/interrogate"
)

// Default configuration values exported for documentation and validation
const (
	DefaultMaxConversationsPerRun      = 5
	DefaultMaxExchangesPerConversation = 5
	DefaultResponseTimeoutSeconds      = 120
	DefaultMaxRetries                  = 1
	DefaultConcurrency                 = 1
	DefaultPollIntervalMS              = 2000
	DefaultStabilityWindow             = 2
	DefaultRunsDir                     = "logs/runs"
)

// Config represents the complete gonzo configuration.
type Config struct {
	Target  TargetConfig  `yaml:"target"`
	Limits  LimitsConfig  `yaml:"interaction_limits"`
	Watcher WatcherConfig `yaml:"watcher"`
	Logging LoggingConfig `yaml:"logging"`
}

// TargetConfig describes the site under interrogation.
type TargetConfig struct {
	URL                      string                   `yaml:"url"`
	Selectors                browser.SelectorStrategy `yaml:"selectors"`
	Headless                 *bool                    `yaml:"headless"`
	DebuggerURL              string                   `yaml:"debugger_url"`
	NavigationTimeoutSeconds int                      `yaml:"navigation_timeout_seconds"`
	ReadySeconds             int                      `yaml:"ready_seconds"`
	LocateTimeoutSeconds     int                      `yaml:"locate_timeout_seconds"`
}

// LimitsConfig bounds one run.
type LimitsConfig struct {
	MaxConversationsPerRun      int `yaml:"max_conversations_per_run"`
	MaxExchangesPerConversation int `yaml:"max_exchanges_per_conversation"`
	ResponseTimeoutSeconds      int `yaml:"response_timeout_seconds"`
	MaxRetries                  int `yaml:"max_retries"`
	Concurrency                 int `yaml:"concurrency"`
}

// WatcherConfig tunes response-completion detection.
type WatcherConfig struct {
	PollIntervalMS  int `yaml:"poll_interval_ms"`
	StabilityWindow int `yaml:"stability_window"`
}

// LoggingConfig controls run log persistence.
type LoggingConfig struct {
	RunsDir string `yaml:"runs_dir"`
	DBPath  string `yaml:"db_path"`
}

// DefaultConfig returns a configuration with every knob at its default.
// The target URL has no default; it must come from the config file.
func DefaultConfig() *Config {
	headless := true
	return &Config{
		Target: TargetConfig{
			Selectors:                browser.DefaultSelectorStrategy(),
			Headless:                 &headless,
			NavigationTimeoutSeconds: 30,
			ReadySeconds:             3,
			LocateTimeoutSeconds:     5,
		},
		Limits: LimitsConfig{
			MaxConversationsPerRun:      DefaultMaxConversationsPerRun,
			MaxExchangesPerConversation: DefaultMaxExchangesPerConversation,
			ResponseTimeoutSeconds:      DefaultResponseTimeoutSeconds,
			MaxRetries:                  DefaultMaxRetries,
			Concurrency:                 DefaultConcurrency,
		},
		Watcher: WatcherConfig{
			PollIntervalMS:  DefaultPollIntervalMS,
			StabilityWindow: DefaultStabilityWindow,
		},
		Logging: LoggingConfig{
			RunsDir: DefaultRunsDir,
		},
	}
}

// Load reads a YAML config file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults backfills zero values left by a sparse config file.
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Target.Headless == nil {
		c.Target.Headless = d.Target.Headless
	}
	if len(c.Target.Selectors.Input) == 0 && len(c.Target.Selectors.Output) == 0 {
		c.Target.Selectors = d.Target.Selectors
	}
	if c.Target.NavigationTimeoutSeconds <= 0 {
		c.Target.NavigationTimeoutSeconds = d.Target.NavigationTimeoutSeconds
	}
	if c.Target.ReadySeconds <= 0 {
		c.Target.ReadySeconds = d.Target.ReadySeconds
	}
	if c.Target.LocateTimeoutSeconds <= 0 {
		c.Target.LocateTimeoutSeconds = d.Target.LocateTimeoutSeconds
	}
	if c.Limits.MaxConversationsPerRun == 0 {
		c.Limits.MaxConversationsPerRun = d.Limits.MaxConversationsPerRun
	}
	if c.Limits.MaxExchangesPerConversation == 0 {
		c.Limits.MaxExchangesPerConversation = d.Limits.MaxExchangesPerConversation
	}
	if c.Limits.ResponseTimeoutSeconds == 0 {
		c.Limits.ResponseTimeoutSeconds = d.Limits.ResponseTimeoutSeconds
	}
	if c.Limits.Concurrency == 0 {
		c.Limits.Concurrency = d.Limits.Concurrency
	}
	if c.Watcher.PollIntervalMS <= 0 {
		c.Watcher.PollIntervalMS = d.Watcher.PollIntervalMS
	}
	if c.Watcher.StabilityWindow < 2 {
		c.Watcher.StabilityWindow = d.Watcher.StabilityWindow
	}
	if c.Logging.RunsDir == "" {
		c.Logging.RunsDir = d.Logging.RunsDir
	}
}

// Validate surfaces setup defects before any session opens.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Target.URL) == "" {
		return fmt.Errorf("%w: target.url is required", interrogate.ErrConfiguration)
	}
	if err := c.Target.Selectors.Validate(); err != nil {
		return fmt.Errorf("%w: %v", interrogate.ErrConfiguration, err)
	}
	return c.InterrogationLimits().Validate()
}

// InterrogationLimits converts the file representation to run limits.
func (c *Config) InterrogationLimits() interrogate.Limits {
	return interrogate.Limits{
		MaxConversationsPerRun:      c.Limits.MaxConversationsPerRun,
		MaxExchangesPerConversation: c.Limits.MaxExchangesPerConversation,
		PerExchangeTimeout:          time.Duration(c.Limits.ResponseTimeoutSeconds) * time.Second,
		MaxRetries:                  c.Limits.MaxRetries,
		Concurrency:                 c.Limits.Concurrency,
	}
}

// SessionConfig builds the session template for this target.
func (c *Config) SessionConfig() browser.SessionConfig {
	return browser.SessionConfig{
		TargetURL:         c.Target.URL,
		Selectors:         c.Target.Selectors,
		Viewport:          browser.Viewport{Width: 1280, Height: 720},
		NavigationTimeout: time.Duration(c.Target.NavigationTimeoutSeconds) * time.Second,
		ReadyDelay:        time.Duration(c.Target.ReadySeconds) * time.Second,
		LocateTimeout:     time.Duration(c.Target.LocateTimeoutSeconds) * time.Second,
	}
}

// WatchConfig builds the watcher polling discipline.
func (c *Config) WatchConfig() interrogate.WatchConfig {
	return interrogate.WatchConfig{
		PollInterval:    time.Duration(c.Watcher.PollIntervalMS) * time.Millisecond,
		StabilityWindow: c.Watcher.StabilityWindow,
	}
}

// Headless reports whether the browser should run headless.
func (c *Config) Headless() bool {
	return c.Target.Headless == nil || *c.Target.Headless
}
