package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"geckofetcher/internal/recorder"
	"geckofetcher/pkg/coingecko"
	"geckofetcher/pkg/config"
	"geckofetcher/pkg/fetcher"
	"geckofetcher/pkg/logger"
	"geckofetcher/pkg/ratelimit"
	"geckofetcher/pkg/scheduler"
	"geckofetcher/pkg/storage"
)

func runFetcher(cmd *cobra.Command, args []string) error {
	config.LoadDotEnv()
	logCfg := config.LoggingFromEnv()
	log := logger.Initialize(&logCfg)

	cfg, err := config.Load(configFile)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		return err
	}
	if cfg.Created {
		log.WithField("path", cfg.Path).Info("Configuration file not found, defaults written")
	} else {
		log.WithField("path", cfg.Path).Debug("Configuration loaded")
	}

	// Ctrl-C abandons the current page, or ends the loop while sleeping.
	// SIGTERM stops everything.
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()

	rec := openRecorder(cfg, log)
	defer rec.Close()

	client := coingecko.NewClient(cfg.RequestTimeout(), log)
	client.SetHeader("User-Agent", "geckofetcher/"+version)

	f := fetcher.New(client, fetcher.ParamsFromConfig(cfg),
		fetcher.WithLimiter(ratelimit.New(int(cfg.RequestsPerMinute))),
		fetcher.WithInterrupts(interrupts),
		fetcher.WithLogger(log),
	)

	runner, err := scheduler.New(f, storage.NewManager(cfg.DataDir, cfg.DataFileName),
		scheduler.FromConfig(cfg),
		scheduler.WithRecorder(rec),
		scheduler.WithInterrupts(interrupts),
		scheduler.WithLogger(log),
	)
	if err != nil {
		log.WithError(err).Error("Failed to set up scheduler")
		return err
	}

	mode := scheduler.ModeOnce
	if periodically {
		mode = scheduler.ModeForever
	}
	log.WithFields(map[string]interface{}{
		"mode":     mode.String(),
		"pages":    int(cfg.PMax),
		"per_page": int(cfg.NumEntriesPerPage),
	}).Debug("Starting")

	if err := runner.Run(ctx, mode); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("Stopped")
			return nil
		}
		return err
	}
	return nil
}

// openRecorder returns the SQLite history when configured. A history
// database that cannot be opened only disables history.
func openRecorder(cfg *config.Config, log logger.Logger) recorder.Recorder {
	if cfg.HistoryDB == "" {
		return recorder.NewNoopRecorder()
	}
	rec, err := recorder.NewSQLiteRecorder(cfg.HistoryDB)
	if err != nil {
		log.WithError(err).WithField("path", cfg.HistoryDB).Warn("Cycle history disabled")
		return recorder.NewNoopRecorder()
	}
	return rec
}
