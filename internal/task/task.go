package task

import (
	"fmt"
	"time"

	"github.com/phrazzld/scry-quizgen/internal/config"
	"github.com/phrazzld/scry-quizgen/internal/credential"
	"github.com/phrazzld/scry-quizgen/internal/quality"
	"github.com/phrazzld/scry-quizgen/internal/retry"
)

// Mode selects how a run talks to the generation service.
type Mode string

const (
	// ModeInteractive issues one request per unit from per-credential lanes.
	ModeInteractive Mode = "interactive"

	// ModeBatch submits the remaining units as one bulk job.
	ModeBatch Mode = "batch"
)

// ParseMode converts a configuration string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeInteractive, ModeBatch:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown run mode %q", s)
	}
}

// Config holds the orchestrator tuning knobs.
type Config struct {
	// MaxLanes caps the number of concurrent lanes; the credential count
	// and credential.HardMaxLanes cap it further.
	MaxLanes int

	// MaxAttempts is the per-unit ceiling on generation calls, shared by
	// transient retries and quality regenerations.
	MaxAttempts int

	// RetryBase is the first backoff delay.
	RetryBase time.Duration

	// GateThreshold is the number of failed checks still treated as fixable.
	GateThreshold int

	// AcceptOnRetryCeiling accepts a fixable unit that runs out of
	// attempts instead of rejecting it.
	AcceptOnRetryCeiling bool

	// RegenerateOnReject regenerates rejected units while attempts remain.
	RegenerateOnReject bool

	// MinCallInterval paces calls within one lane. Zero disables pacing.
	MinCallInterval time.Duration

	// CallTimeout bounds every external call.
	CallTimeout time.Duration
}

// DefaultConfig returns a Config with the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxLanes:      8,
		MaxAttempts:   retry.DefaultMaxAttempts,
		RetryBase:     retry.DefaultBase,
		GateThreshold: quality.DefaultThreshold,
		CallTimeout:   90 * time.Second,
	}
}

// ConfigFrom maps application configuration onto a Config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		MaxLanes:             cfg.Orchestrator.MaxLanes,
		MaxAttempts:          cfg.Orchestrator.MaxAttempts,
		RetryBase:            cfg.Orchestrator.RetryBase,
		GateThreshold:        cfg.Orchestrator.GateThreshold,
		AcceptOnRetryCeiling: cfg.Orchestrator.AcceptOnRetryCeiling,
		RegenerateOnReject:   cfg.Orchestrator.RegenerateOnReject,
		MinCallInterval:      cfg.Orchestrator.MinCallInterval,
		CallTimeout:          cfg.LLM.CallTimeout,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxLanes <= 0 {
		c.MaxLanes = d.MaxLanes
	}
	if c.MaxLanes > credential.HardMaxLanes {
		c.MaxLanes = credential.HardMaxLanes
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.RetryBase <= 0 {
		c.RetryBase = d.RetryBase
	}
	if c.GateThreshold < 0 {
		c.GateThreshold = d.GateThreshold
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = d.CallTimeout
	}
	return c
}
