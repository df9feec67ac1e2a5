package pipeline

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spigell/cv-matcher/internal/decision"
	"github.com/spigell/cv-matcher/internal/profile"
	"github.com/spigell/cv-matcher/internal/scoring"
)

// MatchResult is the immutable outcome of matching one candidate against one job.
type MatchResult struct {
	MatchID       string            `json:"match_id"`
	CandidateID   string            `json:"candidate_id"`
	CandidateName string            `json:"candidate_name,omitempty"`
	JobID         string            `json:"job_id"`
	JobTitle      string            `json:"job_title"`
	Company       string            `json:"company_name,omitempty"`
	Scores        scoring.Breakdown `json:"scores"`
	Decision      decision.Decision `json:"decision"`
	Latency       time.Duration     `json:"-"`
	LatencyMillis float64           `json:"processing_time_ms"`
	CreatedAt     time.Time         `json:"created_at"`
}

// FinalScore is the blended score the result is ranked by.
func (r MatchResult) FinalScore() float64 {
	return r.Scores.FinalScore
}

func newMatchID() string {
	return "match_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func newResult(cand profile.CandidateFeatures, job profile.JobRequirement, b scoring.Breakdown, d decision.Decision, created time.Time) MatchResult {
	return MatchResult{
		MatchID:       newMatchID(),
		CandidateID:   cand.ID,
		CandidateName: cand.Name,
		JobID:         job.ID,
		JobTitle:      job.Title,
		Company:       job.Company,
		Scores:        b,
		Decision:      d,
		CreatedAt:     created,
	}
}

func (r MatchResult) withLatency(d time.Duration) MatchResult {
	r.Latency = d
	r.LatencyMillis = float64(d.Microseconds()) / 1000
	return r
}

func (r MatchResult) withExplanation(text string) MatchResult {
	r.Decision = r.Decision.WithExplanation(text)
	return r
}

// JobOutcome is either a scored result or the error that excluded the job.
type JobOutcome struct {
	JobID  string
	Result MatchResult
	Err    error
}

func (o JobOutcome) OK() bool { return o.Err == nil }

// JobFailure describes a job that was skipped in a batch.
type JobFailure struct {
	JobID string `json:"job_id"`
	Error string `json:"error"`
}

// BatchReport is the outcome of matching one candidate against many jobs.
type BatchReport struct {
	Candidate profile.CandidateFeatures `json:"candidate"`
	Results   []MatchResult             `json:"matches"`
	Failures  []JobFailure              `json:"failures,omitempty"`
	// Processed counts jobs that were scored, before top-k truncation.
	Processed     int     `json:"total_jobs_processed"`
	Submitted     int     `json:"total_jobs_submitted"`
	LatencyMillis float64 `json:"processing_time_ms"`
}
