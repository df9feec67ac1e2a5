package pipeline

import (
	"context"

	"github.com/spigell/cv-matcher/internal/profile"
)

// Extractor turns raw candidate text into a feature set. It fails on empty or
// too short input.
type Extractor interface {
	Extract(ctx context.Context, text string) (profile.CandidateFeatures, error)
}

// Model returns the probability that the candidate fits the job.
type Model interface {
	PredictProbability(ctx context.Context, candidate profile.CandidateFeatures, job profile.JobRequirement) (float64, error)
}

// Explainer writes a natural-language explanation of a match.
type Explainer interface {
	Explain(ctx context.Context, result MatchResult) (string, error)
}

// Saver persists a match result. Failures are never surfaced to callers.
type Saver interface {
	Save(ctx context.Context, result MatchResult) error
}
