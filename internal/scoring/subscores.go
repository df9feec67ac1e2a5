package scoring

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/spigell/cv-matcher/internal/profile"
)

// NeutralScore is used when a job gives nothing to compare against.
const NeutralScore = 0.5

// SubScores are the rule-based signals for one candidate/job pair.
type SubScores struct {
	Skill      float64 `json:"skill_score"`
	Experience float64 `json:"experience_score"`
	Education  float64 `json:"education_score"`
	Keyword    float64 `json:"keyword_score"`

	MatchedSkills []string `json:"matched_skills"`
	MissingSkills []string `json:"missing_skills"`
	ExtraSkills   []string `json:"extra_skills"`

	Overqualified  bool `json:"overqualified"`
	Underqualified bool `json:"underqualified"`
}

// Calculator computes sub-scores. It holds only read-only configuration and is
// safe for concurrent use.
type Calculator struct {
	opts       Options
	normalizer *Normalizer
}

func NewCalculator(opts Options) (*Calculator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{opts: opts, normalizer: NewNormalizer(opts.Synonyms)}, nil
}

// Compute scores the candidate against the job. The job is validated first and a
// malformed record is reported as an error wrapping profile.ErrInvalidJob.
func (c *Calculator) Compute(cand profile.CandidateFeatures, job profile.JobRequirement) (SubScores, error) {
	if err := job.Validate(); err != nil {
		return SubScores{}, err
	}
	if err := cand.Validate(); err != nil {
		return SubScores{}, fmt.Errorf("score job %s: %w", job.ID, err)
	}

	candidate := c.normalizer.Set(cand.Skills)
	required := c.normalizer.Set(job.RequiredSkills)
	preferred := c.normalizer.Set(job.PreferredSkills)
	sets := compareSkills(candidate, required)

	ratio := NeutralScore
	if len(required) > 0 {
		ratio = float64(len(sets.matched)) / float64(len(required))
	}

	out := SubScores{
		Skill:         c.skillScore(ratio, len(required), candidate, preferred),
		Experience:    experienceScore(cand.ExperienceYears, job),
		Education:     educationScore(cand.Education, job.MinEducation),
		Keyword:       keywordScore(cand.Summary, job.Description),
		MatchedSkills: nonNil(sets.matched),
		MissingSkills: nonNil(sets.missing),
		ExtraSkills:   nonNil(sets.extra),
	}
	out.Underqualified = cand.ExperienceYears < job.MinExperienceYears && ratio < c.opts.UnderqualifiedSkillFloor
	out.Overqualified = c.overqualified(cand.ExperienceYears, job)
	return out, nil
}

// skillScore adds a bonus of up to PreferredBonus for the share of preferred skills
// the candidate has. An empty required set stays neutral and earns no bonus.
func (c *Calculator) skillScore(ratio float64, required int, candidate, preferred map[string]struct{}) float64 {
	if required == 0 {
		return NeutralScore
	}
	score := ratio
	if len(preferred) > 0 {
		score += c.opts.PreferredBonus * float64(overlap(candidate, preferred)) / float64(len(preferred))
	}
	return math.Min(1, score)
}

func experienceScore(years float64, job profile.JobRequirement) float64 {
	lo, hi := job.MinExperienceYears, job.MaxExperienceYears
	switch {
	case years < lo:
		return clamp01(years / lo)
	case job.HasUpperExperienceBound() && years > hi:
		return math.Max(0, 1-(years-hi)/math.Max(hi, 1))
	default:
		return 1
	}
}

func (c *Calculator) overqualified(years float64, job profile.JobRequirement) bool {
	if !job.HasUpperExperienceBound() {
		return false
	}
	width := math.Max(job.MaxExperienceYears-job.MinExperienceYears, 1)
	return years > job.MaxExperienceYears+c.opts.OverqualificationMultiplier*width
}

func educationScore(have, want profile.EducationLevel) float64 {
	if have >= want {
		return 1
	}
	gap := float64(want - have)
	return math.Max(0, 1-gap/float64(profile.MaxEducationLevel))
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {}, "for": {},
	"from": {}, "has": {}, "have": {}, "in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "our": {}, "that": {}, "the": {}, "their": {}, "this": {}, "to": {}, "we": {},
	"will": {}, "with": {}, "you": {}, "your": {}, "who": {}, "years": {}, "year": {},
	"experience": {}, "work": {}, "working": {},
}

// keywordScore is the share of distinct job description terms that also appear
// in the candidate summary.
func keywordScore(summary, description string) float64 {
	jobTerms := terms(description)
	if len(jobTerms) == 0 {
		return NeutralScore
	}
	return float64(overlap(terms(summary), jobTerms)) / float64(len(jobTerms))
}

func terms(text string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if len(w) < 2 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
