package filtering

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/profile"
)

// ExcludedJob is one entry of the exclude file.
type ExcludedJob struct {
	JobID  string `json:"job_id"`
	Reason string `json:"reason,omitempty"`
}

// ExcludedJobs is the on-disk layout of the exclude file.
type ExcludedJobs struct {
	Items []ExcludedJob `json:"items"`
}

func (e *ExcludedJobs) IDs() []string {
	ids := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		ids = append(ids, item.JobID)
	}
	return ids
}

// ReadExcludeFile loads the exclude file. A missing or empty file is an empty list.
func ReadExcludeFile(path string) (*ExcludedJobs, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &ExcludedJobs{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return &ExcludedJobs{}, nil
	}

	var excluded ExcludedJobs
	if err := json.Unmarshal(data, &excluded); err != nil {
		return nil, fmt.Errorf("decode exclude file %q: %w", path, err)
	}
	return &excluded, nil
}

// AppendExcludeFile adds entries to the exclude file, skipping job IDs already listed.
func AppendExcludeFile(path string, entries ...ExcludedJob) error {
	current, err := ReadExcludeFile(path)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(current.Items))
	for _, item := range current.Items {
		seen[item.JobID] = struct{}{}
	}
	added := 0
	for _, e := range entries {
		if _, ok := seen[e.JobID]; ok || e.JobID == "" {
			continue
		}
		seen[e.JobID] = struct{}{}
		current.Items = append(current.Items, e)
		added++
	}
	if added == 0 {
		return nil
	}

	data, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

type excludeFileFilter struct {
	path   string
	logger *zap.Logger
}

// NewExcludeFile creates a filter that removes jobs listed in the exclude file.
func NewExcludeFile(path string, logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &excludeFileFilter{path: path, logger: logger}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Disable(string) {}

func (f *excludeFileFilter) IsEnabled() bool { return true }

func (f *excludeFileFilter) Validate() error { return nil }

func (f *excludeFileFilter) Apply(_ context.Context, jobs []profile.JobRequirement) ([]profile.JobRequirement, Step, error) {
	initial := len(jobs)
	if f.path == "" {
		return jobs, Step{Initial: initial, Left: initial}, nil
	}

	excluded, err := ReadExcludeFile(f.path)
	if err != nil {
		return jobs, Step{}, fmt.Errorf("getting excluded jobs from file: %w", err)
	}

	ids := make(map[string]struct{}, len(excluded.Items))
	for _, id := range excluded.IDs() {
		ids[id] = struct{}{}
	}
	kept, removed := exclude(jobs, func(j profile.JobRequirement) bool {
		_, ok := ids[j.ID]
		return ok
	})
	if len(removed) > 0 {
		f.logger.Info("excluding jobs based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_jobs", removed),
			zap.Int("jobs_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(removed), Left: len(kept)}, nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
