package pipeline

import (
	"fmt"
	"time"

	"github.com/spigell/cv-matcher/internal/decision"
	"github.com/spigell/cv-matcher/internal/scoring"
)

// Config is built once and shared read-only by every match.
type Config struct {
	Weights    scoring.Weights
	Blend      scoring.BlendWeights
	Scoring    scoring.Options
	Thresholds decision.Thresholds

	// ExplanationFloor is the lowest final score that gets an explanation.
	ExplanationFloor float64
	ModelTimeout     time.Duration
	ExplainTimeout   time.Duration
	PersistTimeout   time.Duration
	// PersistQueue bounds the save batches in flight; batches beyond it are dropped and logged.
	PersistQueue int
	Workers      int
	// TopK caps batch results when the caller passes a non-positive limit. Zero keeps all.
	TopK int
}

func DefaultConfig() Config {
	return Config{
		Weights:          scoring.DefaultWeights(),
		Blend:            scoring.DefaultBlendWeights(),
		Scoring:          scoring.DefaultOptions(),
		Thresholds:       decision.DefaultThresholds(),
		ExplanationFloor: 0.6,
		ModelTimeout:     5 * time.Second,
		ExplainTimeout:   30 * time.Second,
		PersistTimeout:   10 * time.Second,
		PersistQueue:     64,
		Workers:          8,
		TopK:             10,
	}
}

// Validate reports every problem as ErrConfiguration.
func (c Config) Validate() error {
	checks := []func() error{
		c.Weights.Validate,
		c.Blend.Validate,
		c.Scoring.Validate,
		c.Thresholds.Validate,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
	}

	switch {
	case c.ExplanationFloor < 0 || c.ExplanationFloor > 1:
		return fmt.Errorf("%w: explanation floor %.2f is outside [0,1]", ErrConfiguration, c.ExplanationFloor)
	case c.ModelTimeout <= 0 || c.ExplainTimeout <= 0 || c.PersistTimeout <= 0:
		return fmt.Errorf("%w: collaborator timeouts must be positive", ErrConfiguration)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrConfiguration, c.Workers)
	case c.PersistQueue < 1:
		return fmt.Errorf("%w: persist queue must be at least 1, got %d", ErrConfiguration, c.PersistQueue)
	case c.TopK < 0:
		return fmt.Errorf("%w: top-k must not be negative, got %d", ErrConfiguration, c.TopK)
	}
	return nil
}
