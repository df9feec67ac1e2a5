package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/profile"
)

type companiesFilter struct {
	companies map[string]struct{}
	names     []string
	logger    *zap.Logger
}

// NewExcludedCompanies creates a filter that removes jobs posted by the listed companies.
// Names are compared case-insensitively.
func NewExcludedCompanies(companies []string, logger *zap.Logger) Filter {
	f := &companiesFilter{companies: make(map[string]struct{}, len(companies)), logger: logger}
	for _, c := range companies {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		f.companies[c] = struct{}{}
		f.names = append(f.names, c)
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}
	return f
}

func (f *companiesFilter) Name() string { return "companies" }

func (f *companiesFilter) Disable(string) {}

func (f *companiesFilter) IsEnabled() bool { return true }

func (f *companiesFilter) Validate() error { return nil }

func (f *companiesFilter) Apply(_ context.Context, jobs []profile.JobRequirement) ([]profile.JobRequirement, Step, error) {
	initial := len(jobs)
	if len(f.companies) == 0 {
		return jobs, Step{Initial: initial, Left: initial}, nil
	}

	kept, excluded := exclude(jobs, func(j profile.JobRequirement) bool {
		_, ok := f.companies[strings.ToLower(strings.TrimSpace(j.Company))]
		return ok
	})
	if len(excluded) > 0 {
		f.logger.Info("excluding jobs by companies",
			zap.Strings("excluded_companies", f.names),
			zap.Strings("excluded_jobs", excluded),
			zap.Int("jobs_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: len(excluded), Left: len(kept)}, nil
}

func (f *companiesFilter) Status() Status {
	details := map[string]string{}
	if len(f.names) > 0 {
		details["companies"] = strings.Join(f.names, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
