package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tarkov-dev/site/internal/api"
	"github.com/tarkov-dev/site/internal/config"
	"github.com/tarkov-dev/site/internal/datacache"
	"github.com/tarkov-dev/site/internal/storage"
)

var cacheCmd = &cobra.Command{
	Use:   "cache-api-data",
	Short: "Fetch the API datasets and write them as snapshot documents",
	Long: `Fetches items, barters, crafts, traders, maps and quests from the API in parallel,
strips the volatile price fields and writes one document per dataset, plus the translated
item and trader name tables, to the configured storage and the optional mirror.

Exits non-zero when any dataset failed; the other datasets are still written.`,
	Aliases: []string{"cache"},
	Args:    cobra.NoArgs,
	RunE:    runCache,
}

func runCache(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout := config.GetDuration("cache.timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	storageCfg := config.GetStorageConfig()
	backend, err := openStorage(storageCfg, config.GetDatabaseConfig(), DBLogger, Logger)
	if err != nil {
		return err
	}
	mirror := newMirror(storageCfg.Mirror, Logger)
	if mirror != nil {
		if err := mirror.Init(); err != nil {
			Logger.Warn("Mirror unavailable, writing to storage only", "error", err)
			mirror = nil
		}
	}
	writer := storage.NewFanout(backend, mirror)
	defer func() {
		if err := writer.Close(); err != nil {
			Logger.Warn("Failed to close storage", "error", err)
		}
	}()

	apiCfg := config.GetAPIConfig()
	client := api.New(apiCfg.URL, apiCfg.Timeout)
	if err := client.Healthcheck(ctx); err != nil {
		return fmt.Errorf("API unavailable: %w", err)
	}

	deps := datacache.Dependencies{
		API:    client,
		Writer: writer,
		Logger: Logger.With("component", "datacache"),
	}
	if metrics := connectInflux(ctx); metrics != nil {
		defer func() { _ = metrics.Close() }()
		deps.Recorder = metrics
	}

	job, err := datacache.New(deps, config.GetStringSlice("cache.languages"))
	if err != nil {
		return err
	}

	report, runErr := job.Run(ctx)
	for _, res := range report.Results {
		if res.Err != nil {
			Logger.Error("Dataset failed", "dataset", res.Dataset, "duration", res.Duration, "error", res.Err)
			continue
		}
		Logger.Info("Dataset cached", "dataset", res.Dataset, "records", res.Records, "duration", res.Duration)
	}
	Logger.Info("Cache run finished",
		"duration", report.Duration,
		"failed", len(report.Failed()),
		"itemLocales", len(job.ItemNames().Languages()),
		"traderLocales", len(job.TraderNames().Languages()),
	)
	return runErr
}
