// Package extract is a rule-based candidate feature extractor for plain resume text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/spigell/cv-matcher/internal/profile"
	"github.com/spigell/cv-matcher/internal/scoring"
)

// DefaultMinLength is the shortest text that is treated as a resume.
const DefaultMinLength = 50

var (
	ErrEmptyText    = errors.New("resume text is empty")
	ErrTextTooShort = errors.New("resume text is too short")
)

var yearsPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d+(?:\.\d+)?)\+?\s*(?:years?|yrs?)\s*(?:of\s+)?(?:experience|exp)`),
	regexp.MustCompile(`experience[:\s]+(\d+(?:\.\d+)?)\+?\s*(?:years?|yrs?)`),
	regexp.MustCompile(`(\d+(?:\.\d+)?)\+?\s*(?:years?|yrs?)`),
}

// educationKeywords are checked from the highest level down.
var educationKeywords = []struct {
	level    profile.EducationLevel
	keywords []string
}{
	{profile.EducationDoctorate, []string{"phd", "ph.d", "doctorate", "doctoral"}},
	{profile.EducationMaster, []string{"master's", "masters", "master of", "msc", "m.sc", "mba", "m.tech", "postgraduate"}},
	{profile.EducationBachelor, []string{"bachelor", "bsc", "b.sc", "b.tech", "b.e", "undergraduate"}},
	{profile.EducationHighSchool, []string{"high school", "secondary school", "diploma"}},
}

// Extractor finds skills, years of experience and education in resume text.
// It keeps no state between calls.
type Extractor struct {
	minLength  int
	skills     []string
	normalizer *scoring.Normalizer
}

type Options struct {
	MinLength   int
	ExtraSkills []string
	Synonyms    map[string]string
}

func New(opts Options) *Extractor {
	minLength := opts.MinLength
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	skills := append([]string(nil), knownSkills...)
	for _, s := range opts.ExtraSkills {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			skills = append(skills, s)
		}
	}
	return &Extractor{
		minLength:  minLength,
		skills:     skills,
		normalizer: scoring.NewNormalizer(opts.Synonyms),
	}
}

// Extract builds the candidate features. Empty text and text shorter than the
// minimum length are rejected.
func (e *Extractor) Extract(ctx context.Context, text string) (profile.CandidateFeatures, error) {
	if err := ctx.Err(); err != nil {
		return profile.CandidateFeatures{}, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return profile.CandidateFeatures{}, ErrEmptyText
	}
	if n := utf8.RuneCountInString(text); n < e.minLength {
		return profile.CandidateFeatures{}, fmt.Errorf("%w: %d characters, need at least %d", ErrTextTooShort, n, e.minLength)
	}

	lower := strings.ToLower(text)
	features := profile.CandidateFeatures{
		ID:              uuid.NewString(),
		Name:            guessName(text),
		Skills:          e.findSkills(lower),
		ExperienceYears: findYears(lower),
		Education:       findEducation(lower),
		Summary:         strings.Join(strings.Fields(text), " "),
	}
	return features, features.Validate()
}

func (e *Extractor) findSkills(lower string) []string {
	seen := make(map[string]struct{})
	var found []string
	for _, skill := range e.skills {
		if !containsTerm(lower, skill) {
			continue
		}
		norm := e.normalizer.Normalize(skill)
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		found = append(found, norm)
	}
	return found
}

// containsTerm reports whether term occurs in text bounded by non-alphanumeric
// characters. Unlike \b it works for terms such as "c++" and "c#".
func containsTerm(text, term string) bool {
	for offset := 0; offset < len(text); {
		i := strings.Index(text[offset:], term)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(term)
		if boundary(text, start-1) && boundary(text, end) {
			return true
		}
		offset = start + 1
	}
	return false
}

func boundary(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func findYears(lower string) float64 {
	for _, re := range yearsPatterns {
		m := re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		if years, err := strconv.ParseFloat(m[1], 64); err == nil {
			return years
		}
	}
	return 0
}

func findEducation(lower string) profile.EducationLevel {
	for _, group := range educationKeywords {
		for _, kw := range group.keywords {
			if containsTerm(lower, kw) {
				return group.level
			}
		}
	}
	return profile.EducationNone
}

// guessName takes the first line when it looks like a person's name.
func guessName(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	words := strings.Fields(line)
	if len(words) < 2 || len(words) > 4 {
		return ""
	}
	for _, w := range words {
		for _, r := range w {
			if !unicode.IsLetter(r) && r != '-' && r != '\'' && r != '.' {
				return ""
			}
		}
		if r, _ := utf8.DecodeRuneInString(w); !unicode.IsUpper(r) {
			return ""
		}
	}
	return strings.Join(words, " ")
}
