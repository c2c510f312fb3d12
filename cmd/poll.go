package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"garage-scraper/config"
	"garage-scraper/metrics"
	"garage-scraper/scraper/garages"
	"garage-scraper/services"
	"garage-scraper/storage"
	"garage-scraper/utils"
)

var (
	pollOnce    bool
	pollDataDir string
)

func init() {
	pollCmd.Flags().BoolVar(&pollOnce, "once", false, "Run a single cycle and exit.")
	pollCmd.Flags().StringVar(&pollDataDir, "data-dir", "", "Directory for stream CSV files (overrides DATA_DIR).")
	rootCmd.AddCommand(pollCmd)
}

var pollCmd = &cobra.Command{
	Use:   "poll [--once] [--data-dir <dir>]",
	Short: "Scrapes the garage status page on the adaptive schedule and appends samples to the streams.",
	RunE:  runPoll,
}

func runPoll(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()
	if pollDataDir != "" {
		cfg.DataDir = pollDataDir
	}
	logger := utils.NewLogger(cfg.Debug)

	logger.Info("=== Garage scraper starting ===")
	logger.Info("Config: source: %s | mode: %s | data: %s | busy hours: [%d,%d) every %ds, otherwise every %ds",
		cfg.SourceURL, cfg.FetchMode, cfg.DataDir, cfg.DayStartHour, cfg.DayEndHour,
		cfg.DayIntervalSec, cfg.NightIntervalSec)

	loc, err := cfg.Location()
	if err != nil {
		logger.Warn("Unknown TIMEZONE %q, using host zone %s: %v", cfg.Timezone, loc, err)
	}

	fetcher, err := garages.NewFetcher(cfg, logger)
	if err != nil {
		return err
	}

	store, err := storage.NewStreamStore(cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	var opts []services.PollerOption

	if cfg.PostgresEnabled {
		retry := &utils.RetryConfig{MaxAttempts: cfg.MaxRetries, BaseDelay: 2 * time.Second, Logger: logger}
		mirror, err := storage.OpenPostgresMirror(ctx, cfg.DSN(), retry)
		if err != nil {
			logger.Error("PostgreSQL mirror disabled: %v", err)
		} else {
			defer mirror.Close()
			opts = append(opts, services.WithMirror(mirror))
			logger.Info("Mirroring samples to PostgreSQL (table: parking_samples)")
		}
	}

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, services.WithMetrics(metrics.New(reg)))

		srv := metrics.NewServer(cfg.MetricsAddr, reg)
		go func() {
			if err := metrics.Serve(srv); err != nil {
				logger.Error("Metrics server failed: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("Metrics server listening on %s", cfg.MetricsAddr)
	}

	poller := services.NewPoller(
		fetcher,
		services.NewNormalizer(logger, cfg.KeepUnlabeled),
		store,
		services.PolicyFromConfig(cfg),
		loc,
		logger,
		opts...,
	)

	if pollOnce {
		return poller.RunOnce(ctx)
	}

	err = poller.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
