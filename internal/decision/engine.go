// Package decision turns a blended score into a shortlist/review/reject outcome.
package decision

import (
	"errors"
	"fmt"
	"math"

	"github.com/spigell/cv-matcher/internal/scoring"
)

var ErrInvalidThresholds = errors.New("invalid decision thresholds")

type Outcome string

const (
	Shortlist Outcome = "SHORTLIST"
	Review    Outcome = "REVIEW"
	Reject    Outcome = "REJECT"
)

const (
	reasonShortlist      = "Strong overall match with excellent skill alignment"
	reasonReview         = "Moderate match requiring manual review"
	reasonReject         = "Insufficient match for this position"
	noteOverqualified    = " (note: candidate may be overqualified)"
	reasonUnderqualified = "Underqualified but may have potential"

	maxConfidence    = 0.95
	rejectConfidence = 0.8
)

// Thresholds configure the engine.
type Thresholds struct {
	Shortlist float64 `mapstructure:"shortlist-threshold"`
	Review    float64 `mapstructure:"review-threshold"`
	// OverqualifiedPenalty is subtracted from the confidence of overqualified candidates.
	OverqualifiedPenalty float64 `mapstructure:"overqualified-penalty"`
	// ConfidenceFloor bounds the penalty from below.
	ConfidenceFloor float64 `mapstructure:"confidence-floor"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{Shortlist: 0.75, Review: 0.50, OverqualifiedPenalty: 0.15, ConfidenceFloor: 0.50}
}

func (t Thresholds) Validate() error {
	if !(t.Review > 0 && t.Shortlist < 1) {
		return fmt.Errorf("%w: thresholds must be inside (0,1), got review=%.2f shortlist=%.2f",
			ErrInvalidThresholds, t.Review, t.Shortlist)
	}
	if !(t.Shortlist > t.Review) {
		return fmt.Errorf("%w: shortlist threshold %.2f must be above review threshold %.2f",
			ErrInvalidThresholds, t.Shortlist, t.Review)
	}
	if t.OverqualifiedPenalty < 0 || t.OverqualifiedPenalty > 1 {
		return fmt.Errorf("%w: overqualified penalty %.2f is outside [0,1]", ErrInvalidThresholds, t.OverqualifiedPenalty)
	}
	if t.ConfidenceFloor < 0 || t.ConfidenceFloor > 1 {
		return fmt.Errorf("%w: confidence floor %.2f is outside [0,1]", ErrInvalidThresholds, t.ConfidenceFloor)
	}
	return nil
}

// Decision is created once per candidate/job pair and is not modified afterwards.
type Decision struct {
	Outcome         Outcome  `json:"outcome"`
	Confidence      float64  `json:"confidence"`
	Reason          string   `json:"reason"`
	Explanation     string   `json:"explanation,omitempty"`
	Strengths       []string `json:"strengths,omitempty"`
	RedFlags        []string `json:"red_flags,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// WithExplanation returns a copy carrying the explanation text.
func (d Decision) WithExplanation(text string) Decision {
	out := d
	out.Strengths = append([]string(nil), d.Strengths...)
	out.RedFlags = append([]string(nil), d.RedFlags...)
	out.Recommendations = append([]string(nil), d.Recommendations...)
	out.Explanation = text
	return out
}

// Engine classifies scores. It has no mutable state.
type Engine struct {
	t Thresholds
}

func NewEngine(t Thresholds) (*Engine, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Engine{t: t}, nil
}

// Classify maps a final score and the qualification flags to an outcome,
// a confidence and a reason. It is a pure function of its inputs.
func (e *Engine) Classify(score float64, overqualified, underqualified bool) (Outcome, float64, string) {
	var (
		outcome    Outcome
		confidence float64
		reason     string
	)
	switch {
	case score >= e.t.Shortlist:
		outcome = Shortlist
		confidence = math.Min(maxConfidence, 0.75+(score-e.t.Shortlist)*0.8)
		reason = reasonShortlist
	case score >= e.t.Review:
		outcome = Review
		confidence = 0.6 + (score-e.t.Review)*0.4
		reason = reasonReview
	default:
		outcome = Reject
		confidence = rejectConfidence
		reason = reasonReject
	}

	if overqualified {
		// The penalty never pushes confidence under the floor, and never raises it.
		confidence = math.Min(confidence, math.Max(e.t.ConfidenceFloor, confidence-e.t.OverqualifiedPenalty))
		reason += noteOverqualified
	}
	if underqualified && outcome != Reject {
		outcome = Review
		reason = reasonUnderqualified
	}

	return outcome, clamp01(confidence), reason
}

// Decide classifies a breakdown and attaches the derived insights.
func (e *Engine) Decide(b scoring.Breakdown) Decision {
	outcome, confidence, reason := e.Classify(b.FinalScore, b.Overqualified, b.Underqualified)
	strengths, flags, recs := insights(b, outcome)
	return Decision{
		Outcome:         outcome,
		Confidence:      confidence,
		Reason:          reason,
		Strengths:       strengths,
		RedFlags:        flags,
		Recommendations: recs,
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
