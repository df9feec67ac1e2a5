package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/filtering"
	"github.com/spigell/cv-matcher/internal/logger"
	"github.com/spigell/cv-matcher/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the matching API over HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("addr", "a", "", "listen address (default is server.addr)")
	serveCmd.Flags().String("jobs", "", "job catalog file (default is catalog.path)")

	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command) error {
	ctx, cancel := signalContext()
	defer cancel()

	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		return fmt.Errorf("creating a logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	config, err := getConfig()
	if err != nil {
		return err
	}
	log.Info("starting the cv-matcher api", zap.String("version", version))

	jobsPath, _ := cmd.Flags().GetString("jobs")
	return serve(ctx, config, jobsPath, log)
}

// serve runs the API until ctx is done. The app is closed on every return path.
func serve(ctx context.Context, config *Config, jobsPath string, log *zap.Logger) error {
	a, err := newMatcherApp(ctx, config, log)
	if err != nil {
		return err
	}
	defer a.closeWithTimeout()

	jobs, err := a.loadJobs(jobsPath)
	if err != nil {
		log.Warn("serving without a job catalog", zap.Error(err))
	}
	jobs, err = filtering.Run(ctx, log, a.filters("", false), jobs)
	if err != nil {
		return fmt.Errorf("filtering failed: %w", err)
	}

	api := server.NewAPI(server.APIDeps{
		Matcher:    a.pipeline,
		Jobs:       jobs,
		Gatherer:   a.registry,
		Components: a.components,
		History:    a.history(),
		Extractor:  a.extractor,
		Logger:     log,
	})
	return server.New(config.Server, api, log).Run(ctx)
}
