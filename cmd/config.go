package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/spigell/cv-matcher/internal/ai"
	"github.com/spigell/cv-matcher/internal/decision"
	"github.com/spigell/cv-matcher/internal/pipeline"
	"github.com/spigell/cv-matcher/internal/scoring"
	"github.com/spigell/cv-matcher/internal/server"
	"github.com/spigell/cv-matcher/internal/store"
)

type Config struct {
	Scoring  ScoringConfig       `mapstructure:"scoring"`
	Decision decision.Thresholds `mapstructure:"decision"`
	Pipeline PipelineConfig      `mapstructure:"pipeline"`
	Extract  ExtractConfig       `mapstructure:"extract"`
	Catalog  CatalogConfig       `mapstructure:"catalog"`
	AI       AIConfig            `mapstructure:"ai"`
	Store    StoreConfig         `mapstructure:"store"`
	Server   server.Config       `mapstructure:"server"`
}

type ScoringConfig struct {
	Weights         scoring.Weights      `mapstructure:"weights"`
	Blend           scoring.BlendWeights `mapstructure:"blend"`
	scoring.Options `mapstructure:",squash"`
}

type PipelineConfig struct {
	ExplanationFloor float64       `mapstructure:"explanation-floor"`
	ModelTimeout     time.Duration `mapstructure:"model-timeout"`
	ExplainTimeout   time.Duration `mapstructure:"explain-timeout"`
	PersistTimeout   time.Duration `mapstructure:"persist-timeout"`
	PersistQueue     int           `mapstructure:"persist-queue"`
	Workers          int           `mapstructure:"workers"`
	TopK             int           `mapstructure:"top-k"`
}

type ExtractConfig struct {
	MinLength   int      `mapstructure:"min-length"`
	ExtraSkills []string `mapstructure:"extra-skills"`
}

type CatalogConfig struct {
	Path             string   `mapstructure:"path"`
	ExcludeFile      string   `mapstructure:"exclude-file"`
	ExcludeCompanies []string `mapstructure:"exclude-companies"`
}

type AIConfig struct {
	Enabled  bool         `mapstructure:"enabled"`
	Provider string       `mapstructure:"provider"`
	Predict  bool         `mapstructure:"predict"`
	Explain  bool         `mapstructure:"explain"`
	Gemini   GeminiConfig `mapstructure:"gemini"`
	Cache    CacheConfig  `mapstructure:"cache"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type CacheConfig struct {
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type StoreConfig struct {
	Driver          string `mapstructure:"driver"`
	Path            string `mapstructure:"path"`
	DatabaseURLFile string `mapstructure:"database-url-file"`
}

func defaultConfig() Config {
	p := pipeline.DefaultConfig()
	return Config{
		Scoring: ScoringConfig{
			Weights: p.Weights,
			Blend:   p.Blend,
			Options: p.Scoring,
		},
		Decision: p.Thresholds,
		Pipeline: PipelineConfig{
			ExplanationFloor: p.ExplanationFloor,
			ModelTimeout:     p.ModelTimeout,
			ExplainTimeout:   p.ExplainTimeout,
			PersistTimeout:   p.PersistTimeout,
			PersistQueue:     p.PersistQueue,
			Workers:          p.Workers,
			TopK:             p.TopK,
		},
		Catalog: CatalogConfig{Path: "jobs.json"},
		AI: AIConfig{
			Provider: "gemini",
			Predict:  true,
			Explain:  true,
			Gemini:   GeminiConfig{Model: "gemini-2.5-flash", MaxRetries: 3},
			Cache:    CacheConfig{Size: ai.DefaultCacheSize, TTL: ai.DefaultCacheTTL},
		},
		Store: StoreConfig{
			Driver: store.DriverNone,
			Path:   "match-history.jsonl",
		},
		Server: server.DefaultConfig(),
	}
}

// setDefaults registers every key so that CV_MATCHER_* variables are picked up by Unmarshal.
func setDefaults(v *viper.Viper) {
	d := defaultConfig()
	defaults := map[string]any{
		"scoring.weights.skill":                d.Scoring.Weights.Skill,
		"scoring.weights.experience":           d.Scoring.Weights.Experience,
		"scoring.weights.education":            d.Scoring.Weights.Education,
		"scoring.weights.keyword":              d.Scoring.Weights.Keyword,
		"scoring.blend.model":                  d.Scoring.Blend.Model,
		"scoring.blend.rule":                   d.Scoring.Blend.Rule,
		"scoring.preferred-skill-bonus":        d.Scoring.PreferredBonus,
		"scoring.underqualified-skill-floor":   d.Scoring.UnderqualifiedSkillFloor,
		"scoring.overqualification-multiplier": d.Scoring.OverqualificationMultiplier,
		"decision.shortlist-threshold":         d.Decision.Shortlist,
		"decision.review-threshold":            d.Decision.Review,
		"decision.overqualified-penalty":       d.Decision.OverqualifiedPenalty,
		"decision.confidence-floor":            d.Decision.ConfidenceFloor,
		"pipeline.explanation-floor":           d.Pipeline.ExplanationFloor,
		"pipeline.model-timeout":               d.Pipeline.ModelTimeout,
		"pipeline.explain-timeout":             d.Pipeline.ExplainTimeout,
		"pipeline.persist-timeout":             d.Pipeline.PersistTimeout,
		"pipeline.persist-queue":               d.Pipeline.PersistQueue,
		"pipeline.workers":                     d.Pipeline.Workers,
		"pipeline.top-k":                       d.Pipeline.TopK,
		"extract.min-length":                   d.Extract.MinLength,
		"catalog.path":                         d.Catalog.Path,
		"catalog.exclude-file":                 d.Catalog.ExcludeFile,
		"ai.enabled":                           d.AI.Enabled,
		"ai.provider":                          d.AI.Provider,
		"ai.predict":                           d.AI.Predict,
		"ai.explain":                           d.AI.Explain,
		"ai.gemini.model":                      d.AI.Gemini.Model,
		"ai.gemini.max-retries":                d.AI.Gemini.MaxRetries,
		"ai.gemini.max-log-length":             d.AI.Gemini.MaxLogLength,
		"ai.cache.size":                        d.AI.Cache.Size,
		"ai.cache.ttl":                         d.AI.Cache.TTL,
		"store.driver":                         d.Store.Driver,
		"store.path":                           d.Store.Path,
		"server.addr":                          d.Server.Addr,
		"server.request-timeout":               d.Server.RequestTimeout,
		"server.shutdown-timeout":              d.Server.ShutdownTimeout,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

func getConfig() (*Config, error) {
	return loadConfig(viper.GetViper())
}

func loadConfig(v *viper.Viper) (*Config, error) {
	config := defaultConfig()
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &config, nil
}

func (c *Config) pipelineConfig() pipeline.Config {
	return pipeline.Config{
		Weights:          c.Scoring.Weights,
		Blend:            c.Scoring.Blend,
		Scoring:          c.Scoring.Options,
		Thresholds:       c.Decision,
		ExplanationFloor: c.Pipeline.ExplanationFloor,
		ModelTimeout:     c.Pipeline.ModelTimeout,
		ExplainTimeout:   c.Pipeline.ExplainTimeout,
		PersistTimeout:   c.Pipeline.PersistTimeout,
		PersistQueue:     c.Pipeline.PersistQueue,
		Workers:          c.Pipeline.Workers,
		TopK:             c.Pipeline.TopK,
	}
}
