package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/cv-matcher/internal/pipeline"
)

const (
	DriverNone     = "none"
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

// Store is a pipeline.Saver that holds resources.
type Store interface {
	pipeline.Saver
	Close() error
}

type Config struct {
	Driver      string `mapstructure:"driver"`
	Path        string `mapstructure:"path"`
	DatabaseURL string `mapstructure:"-"`
}

// Open returns the configured store, or nil when persistence is disabled.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverNone:
		return nil, nil
	case DriverFile:
		return NewFileStore(cfg.Path)
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database url is required for the %s store", DriverPostgres)
		}
		return ConnectPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
