package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/cv-matcher/internal/decision"
	"github.com/spigell/cv-matcher/internal/extract"
	"github.com/spigell/cv-matcher/internal/metrics"
	"github.com/spigell/cv-matcher/internal/pipeline"
	"github.com/spigell/cv-matcher/internal/profile"
	"github.com/spigell/cv-matcher/internal/store"
)

const resume = `Jane Doe
Backend engineer with 4 years of experience building services in Go and SQL.
Bachelor of Science in Computer Science.`

func catalog() []profile.JobRequirement {
	return []profile.JobRequirement{
		{
			ID:                 "job-go",
			Title:              "Go Developer",
			Company:            "Acme",
			RequiredSkills:     []string{"go", "sql"},
			MinExperienceYears: 2,
			MaxExperienceYears: 5,
			MinEducation:       profile.EducationBachelor,
		},
		{
			ID:                 "job-ml",
			Title:              "ML Engineer",
			Company:            "Globex",
			RequiredSkills:     []string{"python", "pytorch", "kubernetes"},
			MinExperienceYears: 5,
			MinEducation:       profile.EducationMaster,
		},
		{ID: "job-broken", Title: "Broken"},
	}
}

func newTestServer(t *testing.T) (*Server, *prometheus.Registry) {
	t.Helper()

	reg := prometheus.NewRegistry()
	p, err := pipeline.New(pipeline.DefaultConfig(), pipeline.Deps{
		Metrics:   metrics.New(reg),
		Extractor: extract.New(extract.Options{}),
	})
	require.NoError(t, err)

	api := NewAPI(APIDeps{
		Matcher:    p,
		Jobs:       catalog(),
		Gatherer:   reg,
		Components: map[string]bool{"model": false},
	})
	return New(DefaultConfig(), api, nil), reg
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func candidate() profile.CandidateFeatures {
	return profile.CandidateFeatures{
		ID:              "cand-1",
		Skills:          []string{"golang", "SQL"},
		ExperienceYears: 4,
		Education:       profile.EducationBachelor,
	}
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var health healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, 3, health.JobsLoaded)
	assert.Equal(t, map[string]bool{"model": false}, health.Components)

	do(t, s, http.MethodPost, "/v1/match", map[string]any{"candidate": candidate(), "job_id": "job-go"})
	rec = do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `cv_matcher_decisions_total{decision="SHORTLIST"} 1`)
}

func TestJobs(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/v1/jobs?company=globex", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var jobs []profile.JobRequirement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, "job-ml", jobs[0].ID)

	rec = do(t, s, http.MethodGet, "/v1/jobs?limit=2", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jobs))
	assert.Len(t, jobs, 2)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/v1/jobs?limit=zero", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/v1/jobs/job-go", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/v1/jobs/nope", nil).Code)
}

func TestMatchOne(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/match", map[string]any{"candidate": candidate(), "job_id": "job-go"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res pipeline.MatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "job-go", res.JobID)
	assert.Equal(t, decision.Shortlist, res.Decision.Outcome)
	assert.True(t, strings.HasPrefix(res.MatchID, "match_"))
	_, hasModel := res.Scores.ModelScore.Get()
	assert.False(t, hasModel)

	inline := catalog()[1]
	rec = do(t, s, http.MethodPost, "/v1/match", map[string]any{"candidate": candidate(), "job": inline})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, decision.Reject, res.Decision.Outcome)

	rec = do(t, s, http.MethodPost, "/v1/match", map[string]any{"profile_text": resume, "job_id": "job-go"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "job-go", res.JobID)
	assert.Equal(t, "Jane Doe", res.CandidateName)
}

func TestMatchOneErrors(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{name: "no job", body: map[string]any{"candidate": candidate()}, status: http.StatusBadRequest},
		{name: "unknown job", body: map[string]any{"candidate": candidate(), "job_id": "nope"}, status: http.StatusNotFound},
		{name: "no candidate", body: map[string]any{"job_id": "job-go"}, status: http.StatusBadRequest},
		{name: "malformed job", body: map[string]any{"candidate": candidate(), "job_id": "job-broken"}, status: http.StatusUnprocessableEntity},
		{name: "short text", body: map[string]any{"profile_text": "go dev", "job_id": "job-go"}, status: http.StatusUnprocessableEntity},
		{name: "malformed job from text", body: map[string]any{"profile_text": resume, "job_id": "job-broken"}, status: http.StatusUnprocessableEntity},
		{name: "unknown field", body: map[string]any{"candidate": candidate(), "job_id": "job-go", "extra": 1}, status: http.StatusBadRequest},
		{
			name:   "negative experience",
			body:   map[string]any{"candidate": map[string]any{"id": "c", "experience_years": -1}, "job_id": "job-go"},
			status: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := do(t, s, http.MethodPost, "/v1/match", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestMatchBatch(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/match/batch", map[string]any{"candidate": candidate()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report pipeline.BatchReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 3, report.Submitted)
	assert.Equal(t, 2, report.Processed)
	require.Len(t, report.Results, 2)
	assert.Equal(t, "job-go", report.Results[0].JobID)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "job-broken", report.Failures[0].JobID)

	rec = do(t, s, http.MethodPost, "/v1/match/batch", map[string]any{"profile_text": resume, "job_ids": []string{"job-ml", "job-go"}, "top_k": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report.Results, 1)
	assert.Equal(t, "job-go", report.Results[0].JobID)
	assert.Equal(t, 2, report.Processed)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/v1/match/batch", map[string]any{"candidate": candidate(), "top_k": 51}).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodPost, "/v1/match/batch", map[string]any{"candidate": candidate(), "job_ids": []string{"x"}}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/v1/match/batch", map[string]any{}).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, s, http.MethodPost, "/v1/match/batch", map[string]any{"profile_text": "   short   "}).Code)
}

func TestMatchBatchWithoutCatalog(t *testing.T) {
	t.Parallel()

	p, err := pipeline.New(pipeline.DefaultConfig(), pipeline.Deps{})
	require.NoError(t, err)
	s := New(DefaultConfig(), NewAPI(APIDeps{Matcher: p}), nil)

	rec := do(t, s, http.MethodPost, "/v1/match/batch", map[string]any{"candidate": candidate()})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, s, http.MethodPost, "/v1/match/batch", map[string]any{"profile_text": resume, "jobs": catalog()[:1]})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "no extractor configured")

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/metrics", nil).Code)
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(fmt.Errorf("x: %w", pipeline.ErrExtraction)))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(&pipeline.ScoringError{JobID: "j", Err: errors.New("bad")}))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(pipeline.ErrConfiguration))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(fmt.Errorf("batch interrupted: %w", context.DeadlineExceeded)))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}

func TestServeShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

type stubHistory struct {
	records []store.Record
	err     error
}

func (h stubHistory) History(context.Context) ([]store.Record, error) {
	return h.records, h.err
}

func newExtrasServer(history HistoryReader) *Server {
	api := NewAPI(APIDeps{
		Jobs:      catalog(),
		History:   history,
		Extractor: extract.New(extract.Options{}),
	})
	return New(DefaultConfig(), api, nil)
}

func TestParseProfile(t *testing.T) {
	t.Parallel()

	s := newExtrasServer(nil)

	rec := do(t, s, http.MethodPost, "/v1/profile/parse", map[string]any{"profile_text": resume})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body parseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Jane Doe", body.Candidate.Name)
	assert.Contains(t, body.Candidate.Skills, "go")
	assert.Equal(t, profile.EducationBachelor, body.Candidate.Education)

	assert.Equal(t, http.StatusUnprocessableEntity, do(t, s, http.MethodPost, "/v1/profile/parse", map[string]any{"profile_text": "go dev"}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, "/v1/profile/parse", map[string]any{}).Code)

	noExtractor := New(DefaultConfig(), NewAPI(APIDeps{}), nil)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, noExtractor, http.MethodPost, "/v1/profile/parse", map[string]any{"profile_text": resume}).Code)
}

func TestHistoryStats(t *testing.T) {
	t.Parallel()

	history := stubHistory{records: []store.Record{
		{CandidateID: "c1", Decision: "SHORTLIST", Confidence: 0.9, SkillScore: 1, MatchedSkills: []string{"go", "sql"}},
		{CandidateID: "c1", Decision: "REJECT", Confidence: 0.8, MissingSkills: []string{"python"}},
	}}
	s := newExtrasServer(history)

	rec := do(t, s, http.MethodGet, "/v1/history/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var stats store.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.TotalMatches)
	assert.Equal(t, 1, stats.ShortlistCount)
	assert.Equal(t, 1, stats.RejectCount)
	assert.InDelta(t, 0.85, stats.AvgConfidence, 1e-9)
	assert.Equal(t, []store.SkillCount{{Skill: "python", Count: 1}}, stats.TopMissingSkills)

	rec = do(t, s, http.MethodGet, "/v1/history/stats?top=1", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, []store.SkillCount{{Skill: "go", Count: 1}}, stats.TopMatchedSkills)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/v1/history/stats?top=0", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, newExtrasServer(nil), http.MethodGet, "/v1/history/stats", nil).Code)

	broken := newExtrasServer(stubHistory{err: errors.New("corrupt line")})
	assert.Equal(t, http.StatusInternalServerError, do(t, broken, http.MethodGet, "/v1/history/stats", nil).Code)
}
