package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/ai"
	"github.com/spigell/cv-matcher/internal/ai/gemini"
	"github.com/spigell/cv-matcher/internal/catalog"
	"github.com/spigell/cv-matcher/internal/extract"
	"github.com/spigell/cv-matcher/internal/filtering"
	"github.com/spigell/cv-matcher/internal/metrics"
	"github.com/spigell/cv-matcher/internal/pipeline"
	"github.com/spigell/cv-matcher/internal/profile"
	"github.com/spigell/cv-matcher/internal/secrets"
	"github.com/spigell/cv-matcher/internal/store"
)

// matcherApp holds the wired pipeline and everything that must be closed with it.
type matcherApp struct {
	config   *Config
	logger   *zap.Logger
	registry *prometheus.Registry
	pipeline *pipeline.Pipeline
	store    store.Store
	// extractor is shared by the pipeline and the profile parsing endpoint.
	extractor pipeline.Extractor
	// components reports which optional collaborators are configured.
	components map[string]bool
}

func newMatcherApp(ctx context.Context, config *Config, logger *zap.Logger) (*matcherApp, error) {
	a := &matcherApp{
		config:     config,
		logger:     logger,
		registry:   prometheus.NewRegistry(),
		components: map[string]bool{},
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a.extractor = extract.New(extract.Options{
		MinLength:   config.Extract.MinLength,
		ExtraSkills: config.Extract.ExtraSkills,
		Synonyms:    config.Scoring.Synonyms,
	})
	deps := pipeline.Deps{
		Logger:    logger,
		Metrics:   metrics.New(a.registry),
		Extractor: a.extractor,
	}

	if config.AI.Enabled {
		predictor, explainer, err := newAICollaborators(ctx, &config.AI, logger)
		if err != nil {
			return nil, fmt.Errorf("building ai collaborators: %w", err)
		}
		if predictor != nil {
			deps.Model = predictor
		}
		if explainer != nil {
			deps.Explainer = explainer
		}
	}
	a.components["model"] = deps.Model != nil
	a.components["explainer"] = deps.Explainer != nil

	st, err := openStore(ctx, &config.Store)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	if st != nil {
		a.store = st
		deps.Saver = st
	}
	a.components["store"] = a.store != nil

	p, err := pipeline.New(config.pipelineConfig(), deps)
	if err != nil {
		a.closeStore()
		return nil, err
	}
	a.pipeline = p

	logger.Info("pipeline ready",
		zap.Bool("model", a.components["model"]),
		zap.Bool("explainer", a.components["explainer"]),
		zap.String("store", config.Store.Driver),
	)
	return a, nil
}

func newAICollaborators(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (pipeline.Model, pipeline.Explainer, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != gemini.Provider {
		return nil, nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
	if !cfg.Predict && !cfg.Explain {
		return nil, nil, nil
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	genLogger := logger.With(
		zap.String("provider", gemini.Provider),
		zap.String("model", cfg.Gemini.Model),
		zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
	)
	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		return nil, nil, err
	}

	var (
		model     pipeline.Model
		explainer pipeline.Explainer
	)
	if cfg.Predict {
		predictor := gemini.NewPredictor(generator, logger, cfg.Gemini.MaxLogLength)
		model = ai.NewCachedPredictor(predictor, cfg.Cache.Size, cfg.Cache.TTL, logger)
	}
	if cfg.Explain {
		explainer = gemini.NewExplainer(generator, logger, cfg.Gemini.MaxLogLength)
	}
	return model, explainer, nil
}

func openStore(ctx context.Context, cfg *StoreConfig) (store.Store, error) {
	sc := store.Config{Driver: cfg.Driver, Path: cfg.Path}
	if strings.EqualFold(cfg.Driver, store.DriverPostgres) {
		url, err := secrets.Load(secrets.Source{
			Name: "database url",
			File: cfg.DatabaseURLFile,
			Env:  "DATABASE_URL",
		})
		if err != nil {
			return nil, err
		}
		sc.DatabaseURL = url
	}
	return store.Open(ctx, sc)
}

// loadJobs reads the catalog at path, or the configured one when path is empty.
func (a *matcherApp) loadJobs(path string) ([]profile.JobRequirement, error) {
	if path == "" {
		path = a.config.Catalog.Path
	}
	if path == "" {
		return nil, errors.New("job catalog path is not configured (catalog.path or --jobs)")
	}
	jobs, err := catalog.NewLoader(a.logger).LoadFile(path)
	if err != nil {
		return nil, err
	}
	a.logger.Info("job catalog loaded", zap.String("path", path), zap.Int("jobs", len(jobs)))
	return jobs, nil
}

// history returns the store as a history reader, or nil when the store cannot
// read records back.
func (a *matcherApp) history() filtering.HistoryReader {
	if fs, ok := a.store.(*store.FileStore); ok {
		return fs
	}
	return nil
}

// filters builds the catalog pre-filters. candidateID may be empty when the
// candidate is not known yet; the history filter is disabled then.
func (a *matcherApp) filters(candidateID string, rematch bool) []filtering.Filter {
	history := a.history()

	steps := []filtering.Filter{
		filtering.NewExcludedCompanies(a.config.Catalog.ExcludeCompanies, a.logger),
		filtering.NewExcludeFile(a.config.Catalog.ExcludeFile, a.logger),
		filtering.NewMatchedHistory(filtering.MatchedHistoryConfig{
			CandidateID: candidateID,
			Ignore:      rematch,
		}, history, a.logger),
	}

	switch {
	case history == nil:
		filtering.DisableByName(steps, "matched_history", "history is only kept by the file store")
	case candidateID == "":
		filtering.DisableByName(steps, "matched_history", "candidate id is not known before extraction")
	}
	return steps
}

func (a *matcherApp) Close(ctx context.Context) error {
	var errs []error
	if a.pipeline != nil {
		errs = append(errs, a.pipeline.Close(ctx))
	}
	errs = append(errs, a.closeStore())
	err := errors.Join(errs...)
	a.logger.Debug("matcher closed", zap.Bool("clean", err == nil))
	return err
}

// closeWithTimeout waits up to closeTimeout for pending saves and logs failures.
func (a *matcherApp) closeWithTimeout() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		a.logger.Warn("closing the pipeline", zap.Error(err))
	}
}

func (a *matcherApp) closeStore() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}
