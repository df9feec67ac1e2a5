// Package store persists match results.
package store

import (
	"time"

	"github.com/spigell/cv-matcher/internal/pipeline"
)

// Record is one row of the match history.
type Record struct {
	MatchID       string    `json:"match_id"`
	CandidateID   string    `json:"candidate_id"`
	CandidateName string    `json:"candidate_name,omitempty"`
	JobID         string    `json:"job_id"`
	JobTitle      string    `json:"job_title"`
	Company       string    `json:"company_name,omitempty"`
	SkillScore    float64   `json:"skill_score"`
	ExpScore      float64   `json:"experience_score"`
	EduScore      float64   `json:"education_score"`
	KeywordScore  float64   `json:"keyword_score"`
	RuleScore     float64   `json:"rule_score"`
	ModelScore    *float64  `json:"model_score"`
	FinalScore    float64   `json:"final_score"`
	Decision      string    `json:"decision"`
	Confidence    float64   `json:"confidence"`
	Reason        string    `json:"reason"`
	Explanation   string    `json:"explanation,omitempty"`
	MatchedSkills []string  `json:"matched_skills"`
	MissingSkills []string  `json:"missing_skills"`
	LatencyMillis float64   `json:"processing_time_ms"`
	CreatedAt     time.Time `json:"created_at"`
}

func NewRecord(res pipeline.MatchResult) Record {
	rec := Record{
		MatchID:       res.MatchID,
		CandidateID:   res.CandidateID,
		CandidateName: res.CandidateName,
		JobID:         res.JobID,
		JobTitle:      res.JobTitle,
		Company:       res.Company,
		SkillScore:    res.Scores.Skill,
		ExpScore:      res.Scores.Experience,
		EduScore:      res.Scores.Education,
		KeywordScore:  res.Scores.Keyword,
		RuleScore:     res.Scores.RuleScore,
		FinalScore:    res.Scores.FinalScore,
		Decision:      string(res.Decision.Outcome),
		Confidence:    res.Decision.Confidence,
		Reason:        res.Decision.Reason,
		Explanation:   res.Decision.Explanation,
		MatchedSkills: res.Scores.MatchedSkills,
		MissingSkills: res.Scores.MissingSkills,
		LatencyMillis: res.LatencyMillis,
		CreatedAt:     res.CreatedAt.UTC(),
	}
	if p, ok := res.Scores.ModelScore.Get(); ok {
		rec.ModelScore = &p
	}
	return rec
}
