// Package pipeline orchestrates scoring, decision, explanation and persistence
// for one candidate against one or many jobs.
package pipeline

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/cv-matcher/internal/decision"
	"github.com/spigell/cv-matcher/internal/logger"
	"github.com/spigell/cv-matcher/internal/metrics"
	"github.com/spigell/cv-matcher/internal/profile"
	"github.com/spigell/cv-matcher/internal/scoring"
)

// Deps are the optional collaborators of the pipeline. Any of them may be nil.
type Deps struct {
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Extractor Extractor
	Model     Model
	Explainer Explainer
	Saver     Saver
	Now       func() time.Time
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	cfg     Config
	calc    *scoring.Calculator
	blender *scoring.Blender
	engine  *decision.Engine

	logger    *zap.Logger
	metrics   *metrics.Metrics
	extractor Extractor
	model     Model
	explainer Explainer
	saver     Saver
	now       func() time.Time

	saves    sync.WaitGroup
	saveSlot chan struct{}
}

// New validates cfg and builds the pipeline. Invalid configuration is reported
// as ErrConfiguration.
func New(cfg Config, deps Deps) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	calc, err := scoring.NewCalculator(cfg.Scoring)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	blender, err := scoring.NewBlender(cfg.Weights, cfg.Blend)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	engine, err := decision.NewEngine(cfg.Thresholds)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &Pipeline{
		cfg:       cfg,
		calc:      calc,
		blender:   blender,
		engine:    engine,
		logger:    logger.WithFields(deps.Logger),
		metrics:   deps.Metrics,
		extractor: deps.Extractor,
		model:     deps.Model,
		explainer: deps.Explainer,
		saver:     deps.Saver,
		now:       now,
		saveSlot:  make(chan struct{}, cfg.PersistQueue),
	}, nil
}

// MatchOne scores a single job. A malformed job is returned as a *ScoringError.
func (p *Pipeline) MatchOne(ctx context.Context, cand profile.CandidateFeatures, job profile.JobRequirement) (MatchResult, error) {
	if err := cand.Validate(); err != nil {
		return MatchResult{}, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	start := p.now()
	res, err := p.evaluate(ctx, cand, job)
	if err != nil {
		p.metrics.JobFailed("scoring")
		return MatchResult{}, err
	}
	res = p.explain(ctx, res)
	res = res.withLatency(p.now().Sub(start))

	p.metrics.ObserveDecision(string(res.Decision.Outcome), res.Latency)
	p.persist(ctx, res)
	return res, nil
}

// MatchBatch scores every job and returns the best topK results by final score.
// Jobs that fail to score are logged and left out.
func (p *Pipeline) MatchBatch(ctx context.Context, cand profile.CandidateFeatures, jobs []profile.JobRequirement, topK int) ([]MatchResult, error) {
	report, err := p.MatchBatchReport(ctx, cand, jobs, topK)
	return report.Results, err
}

// MatchText extracts the candidate once and matches the features against jobs.
func (p *Pipeline) MatchText(ctx context.Context, text string, jobs []profile.JobRequirement, topK int) (BatchReport, error) {
	if p.extractor == nil {
		return BatchReport{}, fmt.Errorf("%w: no extractor configured", ErrConfiguration)
	}
	cand, err := p.extractor.Extract(ctx, text)
	if err != nil {
		return BatchReport{}, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	p.logger.Info("candidate extracted",
		zap.String(logger.FieldCandidate, cand.ID),
		zap.Int("skills", len(cand.Skills)),
		zap.Float64("experience_years", cand.ExperienceYears),
		zap.Stringer("education", cand.Education),
	)
	return p.MatchBatchReport(ctx, cand, jobs, topK)
}

// MatchBatchReport is MatchBatch that also reports the skipped jobs.
func (p *Pipeline) MatchBatchReport(ctx context.Context, cand profile.CandidateFeatures, jobs []profile.JobRequirement, topK int) (BatchReport, error) {
	report := BatchReport{Candidate: cand, Submitted: len(jobs), Results: []MatchResult{}}
	if err := cand.Validate(); err != nil {
		return report, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	if topK <= 0 {
		topK = p.cfg.TopK
	}

	start := p.now()
	p.metrics.ObserveBatch(len(jobs))
	outcomes := p.scoreAll(ctx, cand, jobs)

	for _, o := range outcomes {
		if !o.OK() {
			p.logger.Warn("scoring job failed, skipping",
				zap.String(logger.FieldCandidate, cand.ID),
				zap.String(logger.FieldJob, o.JobID),
				zap.Error(o.Err),
			)
			p.metrics.JobFailed("scoring")
			report.Failures = append(report.Failures, JobFailure{JobID: o.JobID, Error: o.Err.Error()})
			continue
		}
		report.Results = append(report.Results, o.Result)
	}
	report.Processed = len(report.Results)

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("batch interrupted: %w", err)
	}

	rank(report.Results)
	top := report.Results
	if topK > 0 && len(top) > topK {
		top = top[:topK]
	}
	// Explanations are limited to the returned results; every scored job is recorded.
	p.explainAll(ctx, top)

	for _, res := range report.Results {
		p.metrics.ObserveDecision(string(res.Decision.Outcome), res.Latency)
	}
	p.persist(ctx, report.Results...)
	report.Results = top

	took := p.now().Sub(start)
	report.LatencyMillis = float64(took.Microseconds()) / 1000
	p.logger.Info("batch matched",
		zap.String(logger.FieldCandidate, cand.ID),
		zap.Int("submitted", report.Submitted),
		zap.Int("processed", report.Processed),
		zap.Int("failed", len(report.Failures)),
		zap.Int("returned", len(report.Results)),
		zap.Duration("took", took),
	)
	return report, nil
}

// Close waits for in-flight saves until ctx is done.
func (p *Pipeline) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.saves.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for pending saves: %w", ctx.Err())
	}
}

func (p *Pipeline) scoreAll(ctx context.Context, cand profile.CandidateFeatures, jobs []profile.JobRequirement) []JobOutcome {
	outcomes := make([]JobOutcome, len(jobs))

	var g errgroup.Group
	g.SetLimit(p.cfg.Workers)
	for i, job := range jobs {
		g.Go(func() error {
			outcomes[i] = JobOutcome{JobID: job.ID}
			if err := ctx.Err(); err != nil {
				outcomes[i].Err = &ScoringError{JobID: job.ID, Err: err}
				return nil
			}
			start := p.now()
			res, err := p.evaluate(ctx, cand, job)
			if err != nil {
				outcomes[i].Err = err
				return nil
			}
			outcomes[i].Result = res.withLatency(p.now().Sub(start))
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// evaluate runs the pure scoring stages and the optional model call for one job.
func (p *Pipeline) evaluate(ctx context.Context, cand profile.CandidateFeatures, job profile.JobRequirement) (res MatchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ScoringError{JobID: job.ID, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	sub, err := p.calc.Compute(cand, job)
	if err != nil {
		return MatchResult{}, &ScoringError{JobID: job.ID, Err: err}
	}

	breakdown := p.blender.Blend(sub, p.predict(ctx, cand, job))
	d := p.engine.Decide(breakdown)

	p.logger.Debug("job scored",
		zap.String(logger.FieldCandidate, cand.ID),
		zap.String(logger.FieldJob, job.ID),
		zap.Float64("rule_score", breakdown.RuleScore),
		zap.Stringer("model_score", breakdown.ModelScore),
		zap.Float64("final_score", breakdown.FinalScore),
		zap.String("decision", string(d.Outcome)),
	)
	return newResult(cand, job, breakdown, d, p.now()), nil
}

func (p *Pipeline) predict(ctx context.Context, cand profile.CandidateFeatures, job profile.JobRequirement) scoring.ModelScore {
	if p.model == nil {
		return scoring.NoModel()
	}

	prob, err := withTimeout(ctx, p.cfg.ModelTimeout, func(ctx context.Context) (float64, error) {
		return p.model.PredictProbability(ctx, cand, job)
	})
	if err == nil {
		score := scoring.WithModel(prob)
		if _, ok := score.Get(); ok {
			return score
		}
		err = fmt.Errorf("probability %v is outside [0,1]", prob)
	}

	p.fallback(CollaboratorModel, job.ID, err, "model unavailable, using rule score only")
	return scoring.NoModel()
}

func (p *Pipeline) explainAll(ctx context.Context, results []MatchResult) {
	if p.explainer == nil {
		return
	}
	var g errgroup.Group
	g.SetLimit(p.cfg.Workers)
	for i := range results {
		g.Go(func() error {
			results[i] = p.explain(ctx, results[i])
			return nil
		})
	}
	_ = g.Wait()
}

// explain attaches an explanation to results at or above the explanation floor.
func (p *Pipeline) explain(ctx context.Context, res MatchResult) MatchResult {
	if p.explainer == nil || res.FinalScore() < p.cfg.ExplanationFloor {
		return res
	}

	start := p.now()
	text, err := withTimeout(ctx, p.cfg.ExplainTimeout, func(ctx context.Context) (string, error) {
		return p.explainer.Explain(ctx, res)
	})
	if err != nil {
		p.fallback(CollaboratorExplainer, res.JobID, err, "explanation skipped")
		return res
	}
	return res.withExplanation(text).withLatency(res.Latency + p.now().Sub(start))
}

// persist hands results to the saver without blocking the caller. Each call
// takes one slot of the save queue and saves its results in order; when the
// queue is full the results are dropped and logged.
func (p *Pipeline) persist(ctx context.Context, results ...MatchResult) {
	if p.saver == nil || len(results) == 0 {
		return
	}

	select {
	case p.saveSlot <- struct{}{}:
	default:
		for _, res := range results {
			p.persistFailed(res, errors.New("save queue is full"))
		}
		return
	}

	results = slices.Clone(results)
	p.saves.Add(1)
	go func() {
		defer p.saves.Done()
		defer func() { <-p.saveSlot }()

		base := context.WithoutCancel(ctx)
		for _, res := range results {
			ctx, cancel := context.WithTimeout(base, p.cfg.PersistTimeout)
			err := p.saver.Save(ctx, res)
			cancel()
			if err != nil {
				p.persistFailed(res, err)
			}
		}
	}()
}

func (p *Pipeline) persistFailed(res MatchResult, err error) {
	p.metrics.PersistenceFailed()
	p.logger.Error("persisting match result failed",
		zap.String(logger.FieldMatch, res.MatchID),
		zap.String(logger.FieldJob, res.JobID),
		zap.Error(&CollaboratorError{Collaborator: CollaboratorStore, Err: err}),
	)
}

func (p *Pipeline) fallback(collaborator, jobID string, err error, msg string) {
	p.metrics.Fallback(collaborator)
	p.logger.Warn(msg,
		zap.String(logger.FieldJob, jobID),
		zap.Error(&CollaboratorError{Collaborator: collaborator, Err: err}),
	)
}

// withTimeout runs fn with a deadline and returns as soon as the deadline passes,
// even if fn does not observe its context.
func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := fn(ctx)
		ch <- result{v: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// rank orders results by final score, best first. Ties keep job id order.
func rank(results []MatchResult) {
	slices.SortStableFunc(results, func(a, b MatchResult) int {
		if c := cmp.Compare(b.FinalScore(), a.FinalScore()); c != 0 {
			return c
		}
		return cmp.Compare(a.JobID, b.JobID)
	})
}
