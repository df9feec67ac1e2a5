package filtering

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/profile"
	"github.com/spigell/cv-matcher/internal/store"
)

const forceFlagSetMsg = "force flag is set"

// HistoryReader lists previously stored match records.
type HistoryReader interface {
	History(ctx context.Context) ([]store.Record, error)
}

type matchedHistoryFilter struct {
	history     HistoryReader
	candidateID string
	ignore      bool
	enabled     bool
	reason      string
	logger      *zap.Logger
}

type MatchedHistoryConfig struct {
	CandidateID string
	Ignore      bool
}

// NewMatchedHistory creates a filter that removes jobs the candidate was already matched against.
func NewMatchedHistory(cfg MatchedHistoryConfig, history HistoryReader, logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &matchedHistoryFilter{
		history:     history,
		candidateID: cfg.CandidateID,
		ignore:      cfg.Ignore,
		enabled:     true,
		logger:      logger,
	}
}

func (f *matchedHistoryFilter) Name() string { return "matched_history" }

func (f *matchedHistoryFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *matchedHistoryFilter) IsEnabled() bool { return f.enabled }

func (f *matchedHistoryFilter) Validate() error {
	if f.history == nil {
		return errors.New("history store is required")
	}
	if f.candidateID == "" {
		return errors.New("candidate id is required")
	}
	return nil
}

func (f *matchedHistoryFilter) Apply(ctx context.Context, jobs []profile.JobRequirement) ([]profile.JobRequirement, Step, error) {
	initial := len(jobs)
	if f.ignore {
		f.logger.Info("ignoring already matched jobs", zap.String("reason", forceFlagSetMsg))
		return jobs, Step{Initial: initial, Left: initial}, nil
	}

	records, err := f.history.History(ctx)
	if err != nil {
		return jobs, Step{}, fmt.Errorf("read match history: %w", err)
	}

	matched := make(map[string]struct{})
	for _, r := range records {
		if r.CandidateID == f.candidateID {
			matched[r.JobID] = struct{}{}
		}
	}
	kept, excluded := exclude(jobs, func(j profile.JobRequirement) bool {
		_, ok := matched[j.ID]
		return ok
	})
	if len(excluded) > 0 {
		f.logger.Info("excluding jobs based on match history",
			zap.String("candidate_id", f.candidateID),
			zap.Strings("excluded_jobs", excluded),
			zap.Int("jobs_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(excluded), Left: len(kept)}, nil
}

func (f *matchedHistoryFilter) Status() Status {
	details := map[string]string{
		"exclude_matched": strconv.FormatBool(!f.ignore),
	}
	reason := f.reason
	if f.ignore && reason == "" {
		reason = "skip requested via flag"
	}
	return Status{Name: f.Name(), Enabled: f.enabled, Reason: reason, Details: details}
}
