package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/knowledge-engine/clusterer/internal/acquire"
	"github.com/knowledge-engine/clusterer/internal/api"
	"github.com/knowledge-engine/clusterer/internal/config"
	"github.com/knowledge-engine/clusterer/internal/engine"
	"github.com/knowledge-engine/clusterer/internal/fetcher"
	"github.com/knowledge-engine/clusterer/internal/politeness"
	"github.com/knowledge-engine/clusterer/internal/provider"
	"github.com/knowledge-engine/clusterer/internal/report"
	"github.com/knowledge-engine/clusterer/internal/storage"
)

var (
	configPath   string
	reportFormat string
)

var rootCmd = &cobra.Command{
	Use:          "clusterer",
	Short:        "Cluster article abstracts around fixed seed centroids",
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch the configured documents, cluster them once and print the report",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup("clusterer")
		if err != nil {
			return err
		}
		defer a.cleanup()

		reporter, err := report.New(reportFormat, cmd.OutOrStdout())
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		result, err := a.engine.Run(ctx)
		stats := a.politeness.GetStatistics()
		a.engine.Logger.WithFields(logrus.Fields{
			"requests": stats.TotalRequests,
			"rejected": stats.RejectedRequests,
		}).Debug("Politeness statistics")
		if err != nil {
			return err
		}
		return reporter.Report(result)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup("clusterer-api")
		if err != nil {
			return err
		}
		defer a.cleanup()

		server := api.NewServer(a.engine, a.engine.Logger)
		server.BaseContext = cmd.Context()
		return server.Start(a.engine.Config.API.Addr)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	runCmd.Flags().StringVarP(&reportFormat, "format", "f", "text", "report format: text or json")
	rootCmd.AddCommand(runCmd, serveCmd)
}

type app struct {
	engine     *engine.Engine
	politeness *politeness.PolitenessManager
	cleanup    func()
}

// setup loads the config and wires the pipeline
func setup(service string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	// Setup Logging
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(level)
	entry := logger.WithField("service", service)

	// Storage
	var cache storage.ContentStorage
	cleanup := func() {}
	if cfg.Storage.CacheDir != "" {
		store, err := storage.NewFileStorage(cfg.Storage.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		cache = store
		cleanup = func() {
			if err := store.Close(); err != nil {
				entry.WithError(err).Warn("Failed to close storage")
			}
		}
	}

	// Acquisition
	pm := politeness.NewPolitenessManager(cfg.Politeness, entry.WithField("component", "politeness"))
	source := acquire.NewWebSource(
		fetcher.NewFetcher(cfg.Fetcher),
		pm,
		cache,
		cfg.Fetcher.Concurrency,
		entry.WithField("component", "acquire"),
	)

	llm, err := provider.New(cfg.LLM)
	if err != nil {
		cleanup()
		return nil, err
	}

	eng, err := engine.NewEngine(cfg, entry, source, llm)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}
	return &app{engine: eng, politeness: pm, cleanup: cleanup}, nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
