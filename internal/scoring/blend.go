package scoring

import (
	"encoding/json"
	"fmt"
	"math"
)

// ModelScore is an optional model probability. The zero value means no model score.
type ModelScore struct {
	value float64
	ok    bool
}

// WithModel wraps a probability. Values outside [0,1] and NaN are treated as absent.
func WithModel(p float64) ModelScore {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return ModelScore{}
	}
	return ModelScore{value: p, ok: true}
}

func NoModel() ModelScore {
	return ModelScore{}
}

// Get returns the probability and whether it is present.
func (m ModelScore) Get() (float64, bool) {
	return m.value, m.ok
}

func (m ModelScore) String() string {
	if !m.ok {
		return "none"
	}
	return fmt.Sprintf("%.4f", m.value)
}

func (m ModelScore) MarshalJSON() ([]byte, error) {
	if !m.ok {
		return []byte("null"), nil
	}
	return json.Marshal(m.value)
}

func (m *ModelScore) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = NoModel()
		return nil
	}
	var p float64
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("model score: %w", err)
	}
	*m = WithModel(p)
	return nil
}

// Breakdown is the full, auditable score of one candidate/job pair.
type Breakdown struct {
	SubScores
	RuleScore  float64    `json:"rule_score"`
	ModelScore ModelScore `json:"model_score"`
	FinalScore float64    `json:"final_score"`
}

// Blender combines sub-scores and an optional model score. It is stateless.
type Blender struct {
	weights Weights
	blend   BlendWeights
}

// NewBlender validates both weight sets and fails if either does not sum to 1.0.
func NewBlender(w Weights, b BlendWeights) (*Blender, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &Blender{weights: w, blend: b}, nil
}

// RuleScore is the weighted sum of the four sub-scores, clamped to [0,1].
func (b *Blender) RuleScore(s SubScores) float64 {
	w := b.weights
	return clamp01(w.Skill*s.Skill + w.Experience*s.Experience + w.Education*s.Education + w.Keyword*s.Keyword)
}

// Blend computes the final score. Without a model score the final score equals the rule score.
func (b *Blender) Blend(s SubScores, model ModelScore) Breakdown {
	rule := b.RuleScore(s)
	out := Breakdown{SubScores: s, RuleScore: rule, ModelScore: model, FinalScore: rule}
	if p, ok := model.Get(); ok {
		out.FinalScore = clamp01(b.blend.Model*p + b.blend.Rule*rule)
	}
	return out
}
