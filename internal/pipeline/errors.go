package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned by New when weights or thresholds are unusable.
	ErrConfiguration = errors.New("configuration error")
	// ErrExtraction means no candidate feature set could be produced. It is fatal
	// for the whole match or batch call.
	ErrExtraction = errors.New("extraction error")
	// ErrScoring marks a single job that could not be scored.
	ErrScoring = errors.New("scoring error")
	// ErrCollaboratorUnavailable marks a failed or timed out model or explainer call.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	// ErrPersistence marks a result that could not be saved. It is only logged.
	ErrPersistence = errors.New("persistence error")
)

// ScoringError reports a job that was excluded from the results.
type ScoringError struct {
	JobID string
	Err   error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("score job %q: %v", e.JobID, e.Err)
}

func (e *ScoringError) Unwrap() error { return e.Err }

func (e *ScoringError) Is(target error) bool { return target == ErrScoring }

const (
	CollaboratorModel     = "model"
	CollaboratorExplainer = "explainer"
	CollaboratorStore     = "store"
)

// CollaboratorError wraps a failure of an optional collaborator.
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

func (e *CollaboratorError) Is(target error) bool {
	if target == ErrPersistence {
		return e.Collaborator == CollaboratorStore
	}
	return target == ErrCollaboratorUnavailable && e.Collaborator != CollaboratorStore
}
