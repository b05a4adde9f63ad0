// Command scout maintains the company directory dataset: it enriches records
// from external signal sources, merges multi-provider leadership answers,
// applies news-derived company events, and serves the scheduler shell.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gartstein/scout/internal/scout/config"
	"github.com/gartstein/scout/internal/scout/consensus"
	"github.com/gartstein/scout/internal/scout/events"
	"github.com/gartstein/scout/internal/scout/handlers"
	"github.com/gartstein/scout/internal/scout/llm"
	"github.com/gartstein/scout/internal/scout/news"
	"github.com/gartstein/scout/internal/scout/notify"
	"github.com/gartstein/scout/internal/scout/pipeline"
	"github.com/gartstein/scout/internal/scout/runner"
	"github.com/gartstein/scout/internal/scout/sources"
	"github.com/gartstein/scout/internal/scout/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	logger := initLogger()
	defer func(logger *zap.Logger) {
		// Sync on stderr fails on some platforms; nothing useful to do.
		_ = logger.Sync()
	}(logger)

	root := newRootCmd(logger)
	if err := root.Execute(); err != nil {
		logger.Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}

func newRootCmd(logger *zap.Logger) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "scout",
		Short:         "Company directory enrichment pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml")

	loadCfg := func() (*config.Config, error) {
		return config.Load(configPath)
	}

	root.AddCommand(newServeCmd(loadCfg, logger))
	root.AddCommand(newSignalsCmd(loadCfg, logger))
	root.AddCommand(newLeadershipCmd(loadCfg, logger))
	root.AddCommand(newNewsCmd(loadCfg, logger))
	root.AddCommand(newExportCmd(loadCfg, logger))
	return root
}

func newServeCmd(loadCfg func() (*config.Config, error), logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler shell (HTTP trigger + daily timer)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadCfg()
			if err != nil {
				return err
			}
			p, cleanup, err := buildPipeline(cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			server := handlers.NewServer(cfg.HTTPPort, cfg.AdminSecret, *cfg.DailyHourUTC, p, logger)
			go func() {
				stop := make(chan os.Signal, 1)
				signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
				<-stop
				server.Stop()
			}()
			return server.Start()
		},
	}
}

func newSignalsCmd(loadCfg func() (*config.Config, error), logger *zap.Logger) *cobra.Command {
	var (
		names    []string
		modeName string
		force    bool
	)
	cmd := &cobra.Command{
		Use:   "signals",
		Short: "Refresh signal sources for every due record",
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := runner.ParseMode(modeName)
			if err != nil {
				return err
			}
			cfg, err := loadCfg()
			if err != nil {
				return err
			}
			p, cleanup, err := buildPipeline(cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()
			return p.RunSignals(cmd.Context(), names, mode, force)
		},
	}
	cmd.Flags().StringSliceVar(&names, "source", nil, "sources to refresh (default: all)")
	cmd.Flags().StringVar(&modeName, "mode", "full", "full refreshes every due record, incremental only previously-successful ones up to the configured limit")
	cmd.Flags().BoolVar(&force, "force", false, "ignore staleness TTLs")
	return cmd
}

func newLeadershipCmd(loadCfg func() (*config.Config, error), logger *zap.Logger) *cobra.Command {
	var (
		provider string
		force    bool
	)
	cmd := &cobra.Command{
		Use:   "leadership",
		Short: "Enrich executive leadership via multi-provider consensus",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadCfg()
			if err != nil {
				return err
			}
			cfg.LLM.ApplyProviderOverride(provider)
			p, cleanup, err := buildPipeline(cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()
			return p.RunLeadership(cmd.Context(), force)
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", `provider to trust, or "consensus" to merge all configured providers`)
	cmd.Flags().BoolVar(&force, "force", false, "re-enrich records that already have leadership")
	return cmd
}

func newNewsCmd(loadCfg func() (*config.Config, error), logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "news",
		Short: "Extract company events from recent news and apply them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadCfg()
			if err != nil {
				return err
			}
			p, cleanup, err := buildPipeline(cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()
			return p.RunNews(cmd.Context())
		},
	}
}

func newExportCmd(loadCfg func() (*config.Config, error), logger *zap.Logger) *cobra.Command {
	var recipient string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "POST the dataset to the email exporter",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadCfg()
			if err != nil {
				return err
			}
			st, err := buildStore(cfg, logger)
			if err != nil {
				return err
			}
			snap, err := st.Load(cmd.Context())
			if err != nil {
				return err
			}
			return notify.NewExporter(cfg.ExporterURL, logger).Send(cmd.Context(), recipient, snap.Companies)
		},
	}
	cmd.Flags().StringVar(&recipient, "to", "", "recipient email address")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// buildPipeline assembles the full dependency graph from config. The cleanup
// func closes the Kafka producer when one was configured.
func buildPipeline(cfg *config.Config, logger *zap.Logger) (*pipeline.Pipeline, func(), error) {
	st, err := buildStore(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	providers := llm.Build(&cfg.LLM, logger)

	var merger *consensus.Merger
	var extractor *news.Extractor
	if len(providers) > 0 {
		mergeProviders := providers
		if !cfg.LLM.Consensus {
			selected, err := llm.Pick(providers, cfg.LLM.Provider)
			if err != nil {
				return nil, nil, err
			}
			mergeProviders = []llm.Provider{selected}
		}
		merger = consensus.NewMerger(mergeProviders, cfg.LeadershipBatchSize, logger)
		extractor = news.NewExtractor(mergeProviders[0], logger)
	}

	cleanup := func() {}
	var producer pipeline.EventProducer
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := events.NewProducer(cfg.KafkaBrokers, logger, cfg.Topic)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize Kafka producer: %w", err)
		}
		producer = kp
		cleanup = kp.Close
	}

	p := pipeline.New(pipeline.Deps{
		Store:            st,
		Connectors:       sources.All(cfg, logger),
		Merger:           merger,
		Extractor:        extractor,
		Producer:         producer,
		IncrementalLimit: cfg.IncrementalLimit,
	}, logger)
	return p, cleanup, nil
}

func buildStore(cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	switch cfg.Store.Backend {
	case "file", "":
		return store.NewFileStore(cfg.Store.Path, logger), nil
	case "db":
		return store.NewDBStore(&store.DBConfig{
			Driver: cfg.Store.Driver,
			DSN:    cfg.Store.DSN,
		}, logger)
	case "remote":
		return store.NewRemoteStore(&store.RemoteConfig{
			ContentURL: cfg.Store.ContentURL,
			HistoryURL: cfg.Store.HistoryURL,
			Token:      cfg.Store.Token,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// initLogger initializes a Zap production logger.
func initLogger() *zap.Logger {
	logger, _ := zap.NewProduction()
	return logger
}
