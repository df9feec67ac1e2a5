package scoring

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/cv-matcher/internal/profile"
)

func newCalculator(t *testing.T) *Calculator {
	t.Helper()
	calc, err := NewCalculator(DefaultOptions())
	require.NoError(t, err)
	return calc
}

func newBlender(t *testing.T) *Blender {
	t.Helper()
	b, err := NewBlender(DefaultWeights(), DefaultBlendWeights())
	require.NoError(t, err)
	return b
}

func TestWeightsValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultWeights().Validate())
	require.NoError(t, Weights{Skill: 0.6, Experience: 0.25, Education: 0.1, Keyword: 0.055}.Validate())

	err := Weights{Skill: 0.7, Experience: 0.25, Education: 0.1, Keyword: 0.05}.Validate()
	assert.True(t, errors.Is(err, ErrWeightsSum))

	err = Weights{Skill: 1.2, Experience: -0.2}.Validate()
	assert.True(t, errors.Is(err, ErrNegativeWeight))

	err = BlendWeights{Model: 0.5, Rule: 0.6}.Validate()
	assert.True(t, errors.Is(err, ErrWeightsSum))

	_, err = NewBlender(DefaultWeights(), BlendWeights{Model: 1, Rule: 1})
	assert.Error(t, err)
}

func TestNormalizerSynonyms(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(map[string]string{"GoLang Dev": "Go"})
	assert.Equal(t, "javascript", n.Normalize(" JS "))
	assert.Equal(t, "kubernetes", n.Normalize("K8s"))
	assert.Equal(t, "machine learning", n.Normalize("machine   learning"))
	assert.Equal(t, "go", n.Normalize("golang dev"))
	assert.Equal(t, "", n.Normalize("   "))
	assert.Len(t, n.Set([]string{"js", "JavaScript", "", "sql"}), 2)
}

func TestScenarioStrongMatch(t *testing.T) {
	t.Parallel()

	calc := newCalculator(t)
	job := profile.JobRequirement{
		ID:                 "job-a",
		Title:              "Data Engineer",
		RequiredSkills:     []string{"python", "sql"},
		MinExperienceYears: 3,
		MaxExperienceYears: 6,
	}
	cand := profile.CandidateFeatures{ID: "c", Skills: []string{"Python", "SQL", "docker"}, ExperienceYears: 5}

	sub, err := calc.Compute(cand, job)
	require.NoError(t, err)
	assert.Equal(t, 1.0, sub.Skill)
	assert.Equal(t, 1.0, sub.Experience)
	assert.Equal(t, []string{"python", "sql"}, sub.MatchedSkills)
	assert.Empty(t, sub.MissingSkills)
	assert.Equal(t, []string{"docker"}, sub.ExtraSkills)
	assert.False(t, sub.Overqualified)
	assert.False(t, sub.Underqualified)

	b := newBlender(t).Blend(sub, NoModel())
	assert.GreaterOrEqual(t, b.RuleScore, 0.9)
	assert.Equal(t, b.RuleScore, b.FinalScore)
}

func TestScenarioUnderqualified(t *testing.T) {
	t.Parallel()

	calc := newCalculator(t)
	job := profile.JobRequirement{
		ID:                 "job-b",
		Title:              "Platform Engineer",
		RequiredSkills:     []string{"python", "sql", "aws", "kubernetes"},
		MinExperienceYears: 5,
		MaxExperienceYears: 8,
	}
	cand := profile.CandidateFeatures{ID: "c", Skills: []string{"python"}}

	sub, err := calc.Compute(cand, job)
	require.NoError(t, err)
	assert.Equal(t, 0.25, sub.Skill)
	assert.Equal(t, 0.0, sub.Experience)
	assert.True(t, sub.Underqualified)
	assert.Equal(t, []string{"aws", "kubernetes", "sql"}, sub.MissingSkills)
}

func TestScenarioOverqualified(t *testing.T) {
	t.Parallel()

	calc := newCalculator(t)
	job := profile.JobRequirement{
		ID:                 "job-c",
		Title:              "Junior Developer",
		RequiredSkills:     []string{"go"},
		MinExperienceYears: 1,
		MaxExperienceYears: 2,
	}
	cand := profile.CandidateFeatures{ID: "c", Skills: []string{"golang"}, ExperienceYears: 20}

	sub, err := calc.Compute(cand, job)
	require.NoError(t, err)
	assert.True(t, sub.Overqualified)
	assert.Equal(t, 0.0, sub.Experience)
	assert.Equal(t, 1.0, sub.Skill)
}

func TestExperienceScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		years    float64
		min, max float64
		want     float64
	}{
		{name: "inside range", years: 4, min: 3, max: 6, want: 1},
		{name: "below minimum", years: 1, min: 4, max: 6, want: 0.25},
		{name: "zero minimum", years: 0, min: 0, max: 3, want: 1},
		{name: "above maximum decays", years: 8, min: 2, max: 4, want: 0},
		{name: "slightly above", years: 5, min: 2, max: 4, want: 0.75},
		{name: "open ended", years: 30, min: 2, max: 0, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			job := profile.JobRequirement{MinExperienceYears: tt.min, MaxExperienceYears: tt.max}
			assert.InDelta(t, tt.want, experienceScore(tt.years, job), 1e-9)
		})
	}
}

func TestEducationScore(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, educationScore(profile.EducationDoctorate, profile.EducationBachelor))
	assert.Equal(t, 1.0, educationScore(profile.EducationMaster, profile.EducationMaster))
	assert.InDelta(t, 0.75, educationScore(profile.EducationBachelor, profile.EducationMaster), 1e-9)
	assert.InDelta(t, 0.0, educationScore(profile.EducationNone, profile.EducationDoctorate), 1e-9)
}

func TestSkillScoreEdgeCases(t *testing.T) {
	t.Parallel()

	calc := newCalculator(t)
	cand := profile.CandidateFeatures{ID: "c", Skills: []string{"go", "docker", "terraform"}, ExperienceYears: 2}

	empty := profile.JobRequirement{ID: "j", Title: "t", RequiredSkills: []string{}, PreferredSkills: []string{"docker"}}
	sub, err := calc.Compute(cand, empty)
	require.NoError(t, err)
	assert.Equal(t, NeutralScore, sub.Skill)

	withBonus := profile.JobRequirement{
		ID:              "j",
		Title:           "t",
		RequiredSkills:  []string{"go", "rust"},
		PreferredSkills: []string{"docker", "terraform"},
	}
	sub, err = calc.Compute(cand, withBonus)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, sub.Skill, 1e-9)

	full := withBonus
	full.RequiredSkills = []string{"go"}
	sub, err = calc.Compute(cand, full)
	require.NoError(t, err)
	assert.Equal(t, 1.0, sub.Skill)

	missing := withBonus
	missing.RequiredSkills = nil
	_, err = calc.Compute(cand, missing)
	assert.ErrorIs(t, err, profile.ErrInvalidJob)
}

func TestSkillScoreMonotonic(t *testing.T) {
	t.Parallel()

	calc := newCalculator(t)
	required := []string{"go", "sql", "docker", "aws", "kafka"}
	job := profile.JobRequirement{ID: "j", Title: "t", RequiredSkills: required}

	prev := -1.0
	for i := 0; i <= len(required); i++ {
		cand := profile.CandidateFeatures{ID: "c", Skills: required[:i]}
		sub, err := calc.Compute(cand, job)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, sub.Skill, prev)
		prev = sub.Skill
	}
	assert.Equal(t, 1.0, prev)
}

func TestKeywordScore(t *testing.T) {
	t.Parallel()

	assert.Equal(t, NeutralScore, keywordScore("anything", "the and of"))
	assert.InDelta(t, 0.5, keywordScore("Built Kafka pipelines in Go", "Go and Kubernetes"), 1e-9)
	assert.Equal(t, 0.0, keywordScore("", "distributed systems"))
}

func TestBlendBounds(t *testing.T) {
	t.Parallel()

	weightSets := []Weights{
		DefaultWeights(),
		{Skill: 1},
		{Skill: 0.25, Experience: 0.25, Education: 0.25, Keyword: 0.25},
		{Skill: 0.5, Experience: 0.5, Education: 0.005},
	}
	values := []float64{0, 0.1, 0.5, 0.99, 1}

	for _, w := range weightSets {
		b, err := NewBlender(w, DefaultBlendWeights())
		require.NoError(t, err)
		for _, v := range values {
			sub := SubScores{Skill: v, Experience: 1 - v, Education: v, Keyword: 1}
			for _, model := range []ModelScore{NoModel(), WithModel(0), WithModel(v), WithModel(1)} {
				out := b.Blend(sub, model)
				assert.GreaterOrEqual(t, out.RuleScore, 0.0)
				assert.LessOrEqual(t, out.RuleScore, 1.0)
				assert.GreaterOrEqual(t, out.FinalScore, 0.0)
				assert.LessOrEqual(t, out.FinalScore, 1.0)
			}
		}
	}
}

func TestBlendModel(t *testing.T) {
	t.Parallel()

	b := newBlender(t)
	sub := SubScores{Skill: 0.5, Experience: 0.5, Education: 0.5, Keyword: 0.5}

	noModel := b.Blend(sub, NoModel())
	assert.Equal(t, noModel.RuleScore, noModel.FinalScore)

	withModel := b.Blend(sub, WithModel(1))
	assert.InDelta(t, 0.4+0.6*0.5, withModel.FinalScore, 1e-9)

	assert.Equal(t, withModel, b.Blend(sub, WithModel(1)))

	invalid := b.Blend(sub, WithModel(math.NaN()))
	assert.Equal(t, invalid.RuleScore, invalid.FinalScore)
	_, ok := WithModel(1.5).Get()
	assert.False(t, ok)
}

func TestModelScoreJSON(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(struct {
		A ModelScore `json:"a"`
		B ModelScore `json:"b"`
	}{A: NoModel(), B: WithModel(0.25)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":null,"b":0.25}`, string(raw))

	var m ModelScore
	require.NoError(t, json.Unmarshal([]byte(`0.7`), &m))
	p, ok := m.Get()
	assert.True(t, ok)
	assert.Equal(t, 0.7, p)
}
