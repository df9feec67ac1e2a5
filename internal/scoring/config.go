// Package scoring computes rule-based sub-scores for a candidate/job pair and blends
// them with an optional model probability.
package scoring

import (
	"errors"
	"fmt"
	"math"
)

// WeightTolerance is the allowed deviation of a weight set from 1.0.
const WeightTolerance = 0.01

var (
	ErrWeightsSum     = errors.New("weights must sum to 1.0")
	ErrNegativeWeight = errors.New("weights must not be negative")
	ErrInvalidOption  = errors.New("invalid scoring option")
)

// Weights are the contributions of each sub-score to the rule score.
type Weights struct {
	Skill      float64 `mapstructure:"skill" json:"skill"`
	Experience float64 `mapstructure:"experience" json:"experience"`
	Education  float64 `mapstructure:"education" json:"education"`
	Keyword    float64 `mapstructure:"keyword" json:"keyword"`
}

func DefaultWeights() Weights {
	return Weights{Skill: 0.60, Experience: 0.25, Education: 0.10, Keyword: 0.05}
}

func (w Weights) Validate() error {
	return validateSum("rule", w.Skill, w.Experience, w.Education, w.Keyword)
}

// BlendWeights split the final score between the model probability and the rule score.
type BlendWeights struct {
	Model float64 `mapstructure:"model" json:"model"`
	Rule  float64 `mapstructure:"rule" json:"rule"`
}

func DefaultBlendWeights() BlendWeights {
	return BlendWeights{Model: 0.40, Rule: 0.60}
}

func (b BlendWeights) Validate() error {
	return validateSum("blend", b.Model, b.Rule)
}

// Options tune the heuristics of the sub-score calculator.
type Options struct {
	// PreferredBonus is the largest amount preferred skills can add to the skill score.
	PreferredBonus float64 `mapstructure:"preferred-skill-bonus"`
	// UnderqualifiedSkillFloor is the matched-skill ratio below which a candidate
	// lacking the minimum experience is flagged underqualified.
	UnderqualifiedSkillFloor float64 `mapstructure:"underqualified-skill-floor"`
	// OverqualificationMultiplier scales the job's experience range width; exceeding the
	// upper bound by more than that amount flags the candidate overqualified.
	OverqualificationMultiplier float64 `mapstructure:"overqualification-multiplier"`
	// Synonyms extend the built-in skill synonym table.
	Synonyms map[string]string `mapstructure:"synonyms"`
}

func DefaultOptions() Options {
	return Options{
		PreferredBonus:              0.10,
		UnderqualifiedSkillFloor:    0.40,
		OverqualificationMultiplier: 2.0,
	}
}

func (o Options) Validate() error {
	if o.PreferredBonus < 0 || o.PreferredBonus > 1 {
		return fmt.Errorf("%w: preferred skill bonus %.2f is outside [0,1]", ErrInvalidOption, o.PreferredBonus)
	}
	if o.UnderqualifiedSkillFloor < 0 || o.UnderqualifiedSkillFloor > 1 {
		return fmt.Errorf("%w: underqualified skill floor %.2f is outside [0,1]", ErrInvalidOption, o.UnderqualifiedSkillFloor)
	}
	if !(o.OverqualificationMultiplier > 0) {
		return fmt.Errorf("%w: overqualification multiplier must be positive", ErrInvalidOption)
	}
	return nil
}

func validateSum(name string, weights ...float64) error {
	total := 0.0
	for _, w := range weights {
		if w < 0 || math.IsNaN(w) {
			return fmt.Errorf("%s %w: got %v", name, ErrNegativeWeight, w)
		}
		total += w
	}
	if math.Abs(total-1.0) > WeightTolerance {
		return fmt.Errorf("%s %w, got %.4f", name, ErrWeightsSum, total)
	}
	return nil
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
