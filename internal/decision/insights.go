package decision

import (
	"fmt"

	"github.com/spigell/cv-matcher/internal/scoring"
)

const (
	strongSkillScore      = 0.7
	strongExperienceScore = 0.8
	manyMissingSkills     = 3
)

func insights(b scoring.Breakdown, outcome Outcome) (strengths, flags, recs []string) {
	if b.Skill >= strongSkillScore {
		strengths = append(strengths, fmt.Sprintf("Strong skill match (%d key skills)", len(b.MatchedSkills)))
	}
	if b.Experience >= strongExperienceScore {
		strengths = append(strengths, "Experience level aligns well")
	}
	if b.Education >= 1 {
		strengths = append(strengths, "Meets education requirement")
	}

	if n := len(b.MissingSkills); n > manyMissingSkills {
		flags = append(flags, fmt.Sprintf("Missing %d required skills", n))
	}
	if b.Underqualified {
		flags = append(flags, "Below minimum skill requirements")
	}
	if b.Overqualified {
		flags = append(flags, "May be overqualified for this role")
	}

	switch outcome {
	case Shortlist:
		recs = []string{"Proceed with technical interview", "Assess cultural fit"}
	default:
		recs = []string{"Review work history in detail", "Consider for alternative roles"}
	}
	return strengths, flags, recs
}
