package app

import (
	"errors"
	"time"
)

// Config holds everything an App instance needs to run one workflow.
type Config struct {
	// WorkflowPath points at a .hcl or .yaml/.yml workflow file.
	WorkflowPath string

	// Rounds overrides the round count declared in the workflow file when
	// greater than zero.
	Rounds int

	LogFormat string
	LogLevel  string

	// Workers bounds the engine's per-round worker pool.
	Workers int
	// NodeTimeout aborts a stuck node call. Zero disables it.
	NodeTimeout time.Duration
	// StrictRounds fails the run on the first partial round.
	StrictRounds bool

	// Backend selects the decision backend: "mock" (default) or "http".
	Backend    string
	BackendURL string
	APIKey     string
	Model      string
}

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.WorkflowPath == "" {
		return nil, errors.New("WorkflowPath is a required configuration field and cannot be empty")
	}
	if cfg.Backend == "" {
		cfg.Backend = "mock"
	}
	if cfg.Backend != "mock" && cfg.Backend != "http" {
		return nil, errors.New("Backend must be 'mock' or 'http'")
	}
	if cfg.Backend == "http" && cfg.BackendURL == "" {
		return nil, errors.New("BackendURL is required when Backend is 'http'")
	}
	return &cfg, nil
}
