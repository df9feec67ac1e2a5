package decision

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/cv-matcher/internal/scoring"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultThresholds())
	require.NoError(t, err)
	return e
}

func TestThresholdsValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultThresholds().Validate())

	bad := []Thresholds{
		{Shortlist: 0.5, Review: 0.75},
		{Shortlist: 0.6, Review: 0.6},
		{Shortlist: 1.0, Review: 0.5},
		{Shortlist: 0.8, Review: 0},
		{Shortlist: 0.8, Review: 0.5, OverqualifiedPenalty: 2},
	}
	for _, th := range bad {
		err := th.Validate()
		assert.True(t, errors.Is(err, ErrInvalidThresholds), "%+v", th)
	}
}

func TestClassifyBands(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	tests := []struct {
		score      float64
		outcome    Outcome
		confidence float64
		reason     string
	}{
		{score: 1.0, outcome: Shortlist, confidence: 0.95, reason: reasonShortlist},
		{score: 0.75, outcome: Shortlist, confidence: 0.75, reason: reasonShortlist},
		{score: 0.85, outcome: Shortlist, confidence: 0.83, reason: reasonShortlist},
		{score: 0.7, outcome: Review, confidence: 0.68, reason: reasonReview},
		{score: 0.5, outcome: Review, confidence: 0.6, reason: reasonReview},
		{score: 0.49, outcome: Reject, confidence: 0.8, reason: reasonReject},
		{score: 0, outcome: Reject, confidence: 0.8, reason: reasonReject},
	}

	for _, tt := range tests {
		outcome, confidence, reason := e.Classify(tt.score, false, false)
		assert.Equal(t, tt.outcome, outcome, "score %.2f", tt.score)
		assert.InDelta(t, tt.confidence, confidence, 1e-9, "score %.2f", tt.score)
		assert.Equal(t, tt.reason, reason)
	}
}

func TestUnderqualifiedForcesReview(t *testing.T) {
	t.Parallel()

	e := newEngine(t)

	outcome, _, reason := e.Classify(0.92, false, true)
	assert.Equal(t, Review, outcome)
	assert.Equal(t, reasonUnderqualified, reason)

	outcome, _, _ = e.Classify(0.55, false, true)
	assert.Equal(t, Review, outcome)

	outcome, confidence, _ := e.Classify(0.2, false, true)
	assert.Equal(t, Reject, outcome)
	assert.Equal(t, rejectConfidence, confidence)
}

func TestOverqualifiedLowersConfidence(t *testing.T) {
	t.Parallel()

	e := newEngine(t)

	_, plain, _ := e.Classify(0.85, false, false)
	outcome, adjusted, reason := e.Classify(0.85, true, false)
	assert.Equal(t, Shortlist, outcome)
	assert.InDelta(t, plain-0.15, adjusted, 1e-9)
	assert.Contains(t, reason, "overqualified")

	// Floor applies when the penalty would cross it.
	outcome, adjusted, _ = e.Classify(0.55, true, false)
	assert.Equal(t, Review, outcome)
	assert.InDelta(t, 0.5, adjusted, 1e-9)

	outcome, _, _ = e.Classify(0.1, true, false)
	assert.Equal(t, Reject, outcome)
}

func TestClassifyDeterministic(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	for _, score := range []float64{0, 0.33, 0.5, 0.749999, 0.75, 0.9, 1} {
		for _, over := range []bool{false, true} {
			for _, under := range []bool{false, true} {
				o1, c1, r1 := e.Classify(score, over, under)
				o2, c2, r2 := e.Classify(score, over, under)
				assert.Equal(t, o1, o2)
				assert.Equal(t, c1, c2)
				assert.Equal(t, r1, r2)
				assert.GreaterOrEqual(t, c1, 0.0)
				assert.LessOrEqual(t, c1, 1.0)
			}
		}
	}
}

func TestDecideInsights(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	b := scoring.Breakdown{
		SubScores: scoring.SubScores{
			Skill:         0.8,
			Experience:    1,
			Education:     1,
			MatchedSkills: []string{"go", "sql", "docker", "aws"},
			MissingSkills: []string{"kafka"},
		},
		FinalScore: 0.9,
	}

	d := e.Decide(b)
	assert.Equal(t, Shortlist, d.Outcome)
	assert.Equal(t, []string{
		"Strong skill match (4 key skills)",
		"Experience level aligns well",
		"Meets education requirement",
	}, d.Strengths)
	assert.Empty(t, d.RedFlags)
	assert.Equal(t, []string{"Proceed with technical interview", "Assess cultural fit"}, d.Recommendations)

	weak := scoring.Breakdown{
		SubScores: scoring.SubScores{
			Skill:          0.2,
			Education:      0.5,
			MissingSkills:  []string{"a", "b", "c", "d"},
			Underqualified: true,
		},
		FinalScore: 0.3,
	}
	d = e.Decide(weak)
	assert.Equal(t, Reject, d.Outcome)
	assert.Empty(t, d.Strengths)
	assert.Equal(t, []string{"Missing 4 required skills", "Below minimum skill requirements"}, d.RedFlags)
	assert.Contains(t, d.Recommendations, "Consider for alternative roles")
}

func TestWithExplanationCopies(t *testing.T) {
	t.Parallel()

	d := Decision{Outcome: Review, Strengths: []string{"x"}}
	explained := d.WithExplanation("because")
	explained.Strengths[0] = "y"

	assert.Empty(t, d.Explanation)
	assert.Equal(t, "x", d.Strengths[0])
	assert.Equal(t, "because", explained.Explanation)
}

func TestDecisionJSONUsesOutcomeKey(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Decision{Outcome: Shortlist, Confidence: 0.9})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "SHORTLIST", fields["outcome"])
	assert.NotContains(t, fields, "decision")
}
