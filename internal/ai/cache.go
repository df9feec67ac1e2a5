// Package ai holds provider-independent helpers for model collaborators.
package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/maypok86/otter/v2"
	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/logger"
	"github.com/spigell/cv-matcher/internal/profile"
)

const (
	DefaultCacheSize = 10_000
	DefaultCacheTTL  = 24 * time.Hour
)

// Predictor returns the probability that a candidate fits a job.
type Predictor interface {
	PredictProbability(ctx context.Context, candidate profile.CandidateFeatures, job profile.JobRequirement) (float64, error)
}

// CachedPredictor memoizes probabilities. Scoring is deterministic, so identical
// candidate/job pairs can reuse the previous answer until the entry expires.
// Errors are never cached.
type CachedPredictor struct {
	next   Predictor
	cache  *otter.Cache[string, float64]
	logger *zap.Logger
}

func NewCachedPredictor(next Predictor, size int, ttl time.Duration, l *zap.Logger) *CachedPredictor {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedPredictor{
		next: next,
		cache: otter.Must(&otter.Options[string, float64]{
			MaximumSize:      size,
			InitialCapacity:  min(size, 1_000),
			ExpiryCalculator: otter.ExpiryWriting[string, float64](ttl),
		}),
		logger: logger.WithFields(l),
	}
}

func (c *CachedPredictor) PredictProbability(ctx context.Context, candidate profile.CandidateFeatures, job profile.JobRequirement) (float64, error) {
	key, err := cacheKey(candidate, job)
	if err != nil {
		return c.next.PredictProbability(ctx, candidate, job)
	}

	if p, ok := c.cache.GetIfPresent(key); ok {
		c.logger.Debug("model cache hit", logger.MatchFields(candidate.ID, job.ID)...)
		return p, nil
	}

	p, err := c.next.PredictProbability(ctx, candidate, job)
	if err != nil {
		return 0, err
	}
	c.cache.Set(key, p)
	return p, nil
}

// cacheKey hashes the scoring inputs. The candidate ID is left out so that the
// same resume submitted twice hits the cache.
func cacheKey(candidate profile.CandidateFeatures, job profile.JobRequirement) (string, error) {
	candidate.ID = ""
	raw, err := json.Marshal(struct {
		Candidate profile.CandidateFeatures `json:"c"`
		Job       profile.JobRequirement    `json:"j"`
	}{candidate, job})
	if err != nil {
		return "", fmt.Errorf("marshal cache key: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
