// Package profile holds the candidate and job records exchanged by the matching pipeline.
package profile

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidCandidate = errors.New("invalid candidate features")
	ErrInvalidJob       = errors.New("invalid job requirement")
)

// CandidateFeatures is the normalized output of the extractor for one candidate.
type CandidateFeatures struct {
	ID              string         `json:"id" mapstructure:"id"`
	Name            string         `json:"name,omitempty" mapstructure:"name"`
	Skills          []string       `json:"skills" mapstructure:"skills"`
	ExperienceYears float64        `json:"experience_years" mapstructure:"experience_years" validate:"gte=0"`
	Education       EducationLevel `json:"education" mapstructure:"education" validate:"gte=0,lte=4"`
	Summary         string         `json:"summary,omitempty" mapstructure:"summary"`
}

// JobRequirement describes one posting of the job catalog.
// A nil RequiredSkills means the field was missing from the record; an empty
// non-nil slice is a job that lists no required skills.
type JobRequirement struct {
	ID                 string         `json:"job_id" mapstructure:"job_id" validate:"required"`
	Title              string         `json:"title" mapstructure:"title" validate:"required"`
	Company            string         `json:"company_name,omitempty" mapstructure:"company_name"`
	RequiredSkills     []string       `json:"required_skills" mapstructure:"required_skills" validate:"required"`
	PreferredSkills    []string       `json:"preferred_skills,omitempty" mapstructure:"preferred_skills"`
	MinExperienceYears float64        `json:"min_experience_years" mapstructure:"min_experience_years" validate:"gte=0"`
	MaxExperienceYears float64        `json:"max_experience_years" mapstructure:"max_experience_years" validate:"omitempty,gte=0,gtefield=MinExperienceYears"`
	MinEducation       EducationLevel `json:"min_education" mapstructure:"min_education" validate:"gte=0,lte=4"`
	Description        string         `json:"description,omitempty" mapstructure:"description"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the candidate record once, at construction time.
func (c CandidateFeatures) Validate() error {
	if math.IsNaN(c.ExperienceYears) || math.IsInf(c.ExperienceYears, 0) {
		return fmt.Errorf("%w: experience years must be a finite number", ErrInvalidCandidate)
	}
	if err := structValidator().Struct(c); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidCandidate, describe(err))
	}
	return nil
}

// Validate checks that the job record has every field the scorer relies on.
func (j JobRequirement) Validate() error {
	for _, v := range []float64{j.MinExperienceYears, j.MaxExperienceYears} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: experience range must be finite", ErrInvalidJob)
		}
	}
	if err := structValidator().Struct(j); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidJob, describe(err))
	}
	return nil
}

// HasUpperExperienceBound reports whether the job caps experience. Zero means open-ended.
func (j JobRequirement) HasUpperExperienceBound() bool {
	return j.MaxExperienceYears > 0
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case "gtefield":
			parts = append(parts, fmt.Sprintf("%s must not be lower than %s", fe.Field(), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		}
	}
	return strings.Join(parts, "; ")
}
