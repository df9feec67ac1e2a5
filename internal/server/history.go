package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/spigell/cv-matcher/internal/pipeline"
	"github.com/spigell/cv-matcher/internal/profile"
	"github.com/spigell/cv-matcher/internal/store"
)

// HistoryReader returns the stored match history.
type HistoryReader interface {
	History(ctx context.Context) ([]store.Record, error)
}

type parseRequest struct {
	ProfileText string `json:"profile_text"`
}

type parseResponse struct {
	Candidate profile.CandidateFeatures `json:"candidate"`
}

// parseProfile runs the extractor without matching.
func (a *API) parseProfile(w http.ResponseWriter, r *http.Request) {
	if a.extractor == nil {
		writeError(w, http.StatusServiceUnavailable, "no extractor configured")
		return
	}
	var req parseRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ProfileText) == "" {
		writeError(w, http.StatusBadRequest, "profile_text is required")
		return
	}

	cand, err := a.extractor.Extract(r.Context(), req.ProfileText)
	if err != nil {
		a.fail(w, fmt.Errorf("%w: %w", pipeline.ErrExtraction, err))
		return
	}
	writeJSON(w, http.StatusOK, parseResponse{Candidate: cand})
}

func (a *API) historyStats(w http.ResponseWriter, r *http.Request) {
	if a.history == nil {
		writeError(w, http.StatusServiceUnavailable, "match history is not kept by the configured store")
		return
	}
	top := store.DefaultTopSkills
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxTopK {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("top must be between 1 and %d", maxTopK))
			return
		}
		top = n
	}

	records, err := a.history.History(r.Context())
	if err != nil {
		a.fail(w, fmt.Errorf("reading match history: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, store.ComputeStats(records, top))
}
