package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/pipeline"
	"github.com/spigell/cv-matcher/internal/profile"
)

const (
	maxBodyBytes    = 1 << 20
	maxTopK         = 50
	defaultJobLimit = 100
)

// Matcher is the part of the pipeline the API calls.
type Matcher interface {
	MatchOne(ctx context.Context, cand profile.CandidateFeatures, job profile.JobRequirement) (pipeline.MatchResult, error)
	MatchBatchReport(ctx context.Context, cand profile.CandidateFeatures, jobs []profile.JobRequirement, topK int) (pipeline.BatchReport, error)
	MatchText(ctx context.Context, text string, jobs []profile.JobRequirement, topK int) (pipeline.BatchReport, error)
}

type APIDeps struct {
	Matcher Matcher
	// Jobs is the loaded catalog used when a request names no jobs.
	Jobs     []profile.JobRequirement
	Gatherer prometheus.Gatherer
	// Components is reported by /healthz, e.g. {"model": true, "store": false}.
	Components map[string]bool
	// History backs /v1/history/stats. It is only set for stores that read records back.
	History HistoryReader
	// Extractor backs /v1/profile/parse.
	Extractor pipeline.Extractor
	Logger    *zap.Logger
}

type API struct {
	matcher    Matcher
	jobs       []profile.JobRequirement
	byID       map[string]profile.JobRequirement
	gatherer   prometheus.Gatherer
	components map[string]bool
	history    HistoryReader
	extractor  pipeline.Extractor
	logger     *zap.Logger
}

func NewAPI(deps APIDeps) *API {
	a := &API{
		matcher:    deps.Matcher,
		jobs:       deps.Jobs,
		byID:       make(map[string]profile.JobRequirement, len(deps.Jobs)),
		gatherer:   deps.Gatherer,
		components: deps.Components,
		history:    deps.History,
		extractor:  deps.Extractor,
		logger:     deps.Logger,
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	for _, j := range deps.Jobs {
		a.byID[j.ID] = j
	}
	return a
}

func (a *API) Mount(r chi.Router) {
	r.Get("/healthz", a.health)
	if a.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/v1", func(r chi.Router) {
		r.Get("/jobs", a.listJobs)
		r.Get("/jobs/{jobID}", a.getJob)
		r.Post("/match", a.matchOne)
		r.Post("/match/batch", a.matchBatch)
		r.Post("/profile/parse", a.parseProfile)
		r.Get("/history/stats", a.historyStats)
	})
}

type healthResponse struct {
	Status     string          `json:"status"`
	JobsLoaded int             `json:"jobs_loaded"`
	Components map[string]bool `json:"components,omitempty"`
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", JobsLoaded: len(a.jobs), Components: a.components})
}

func (a *API) listJobs(w http.ResponseWriter, r *http.Request) {
	limit := defaultJobLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	company := strings.TrimSpace(r.URL.Query().Get("company"))

	jobs := make([]profile.JobRequirement, 0, min(limit, len(a.jobs)))
	for _, j := range a.jobs {
		if len(jobs) == limit {
			break
		}
		if company != "" && !strings.EqualFold(j.Company, company) {
			continue
		}
		jobs = append(jobs, j)
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (a *API) getJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	job, ok := a.byID[id]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("job %s not found", id))
		return
	}
	writeJSON(w, http.StatusOK, job)
}

type matchRequest struct {
	Candidate   *profile.CandidateFeatures `json:"candidate"`
	ProfileText string                     `json:"profile_text"`
	Job         *profile.JobRequirement    `json:"job"`
	JobID       string                     `json:"job_id"`
}

func (a *API) matchOne(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if !decode(w, r, &req) {
		return
	}

	var job profile.JobRequirement
	switch {
	case req.Job != nil:
		job = *req.Job
	case req.JobID != "":
		found, ok := a.byID[req.JobID]
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("job %s not found", req.JobID))
			return
		}
		job = found
	default:
		writeError(w, http.StatusBadRequest, "either job or job_id is required")
		return
	}

	switch {
	case req.Candidate != nil:
		res, err := a.matcher.MatchOne(r.Context(), *req.Candidate, job)
		if err != nil {
			a.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	case strings.TrimSpace(req.ProfileText) != "":
		report, err := a.matcher.MatchText(r.Context(), req.ProfileText, []profile.JobRequirement{job}, 1)
		if err != nil {
			a.fail(w, err)
			return
		}
		if len(report.Results) == 0 {
			msg := "job could not be scored"
			if len(report.Failures) > 0 {
				msg = report.Failures[0].Error
			}
			writeError(w, http.StatusUnprocessableEntity, msg)
			return
		}
		writeJSON(w, http.StatusOK, report.Results[0])
	default:
		writeError(w, http.StatusBadRequest, "either candidate or profile_text is required")
	}
}

type batchRequest struct {
	Candidate   *profile.CandidateFeatures `json:"candidate"`
	ProfileText string                     `json:"profile_text"`
	Jobs        []profile.JobRequirement   `json:"jobs"`
	JobIDs      []string                   `json:"job_ids"`
	TopK        int                        `json:"top_k"`
}

func (a *API) matchBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !decode(w, r, &req) {
		return
	}
	if req.TopK < 0 || req.TopK > maxTopK {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("top_k must be between 1 and %d", maxTopK))
		return
	}

	jobs := req.Jobs
	if len(req.JobIDs) > 0 {
		jobs = make([]profile.JobRequirement, 0, len(req.JobIDs))
		for _, id := range req.JobIDs {
			job, ok := a.byID[id]
			if !ok {
				writeError(w, http.StatusNotFound, fmt.Sprintf("job %s not found", id))
				return
			}
			jobs = append(jobs, job)
		}
	}
	if len(jobs) == 0 {
		jobs = a.jobs
	}
	if len(jobs) == 0 {
		writeError(w, http.StatusServiceUnavailable, "no jobs loaded")
		return
	}

	var (
		report pipeline.BatchReport
		err    error
	)
	switch {
	case req.Candidate != nil:
		report, err = a.matcher.MatchBatchReport(r.Context(), *req.Candidate, jobs, req.TopK)
	case strings.TrimSpace(req.ProfileText) != "":
		report, err = a.matcher.MatchText(r.Context(), req.ProfileText, jobs, req.TopK)
	default:
		writeError(w, http.StatusBadRequest, "either candidate or profile_text is required")
		return
	}
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("match request failed", zap.Int("status", status), zap.Error(err))
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrExtraction), errors.Is(err, pipeline.ErrScoring):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrConfiguration):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
