package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"codeberg.org/mutker/nepcollector/internal/collector"
	"codeberg.org/mutker/nepcollector/internal/config"
	"codeberg.org/mutker/nepcollector/internal/errors"
	"codeberg.org/mutker/nepcollector/internal/logger"
	"codeberg.org/mutker/nepcollector/internal/metrics"
	"codeberg.org/mutker/nepcollector/internal/nepviewer"
	"codeberg.org/mutker/nepcollector/internal/pid"
)

// Process exit codes
const (
	exitOK = iota
	exitInternal
	exitAuth
	exitFetch
	exitPersist
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return exitInternal
	}

	logger.Init(cfg.LogLevel, logger.IsService())
	logger.Debug().Str("config_file", cfg.ConfigFile).Msg("Config loaded")

	if cfg.InitConfig != "" {
		if err := config.WriteDefault(cfg.InitConfig); err != nil {
			logger.Error().Err(err).Msg("Failed to write default config")
			return exitInternal
		}
		logger.Info().Str("path", cfg.InitConfig).Msg("Default config written")
		return exitOK
	}

	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("Invalid configuration")
		return exitInternal
	}

	if err := pid.Write(cfg.PidDir); err != nil {
		logger.Error().Err(err).Msg("Failed to acquire PID file")
		return exitInternal
	}
	defer func() {
		if err := pid.Remove(cfg.PidDir); err != nil {
			logger.Warn().Err(err).Msg("Failed to remove PID file")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	client := nepviewer.NewClient(cfg.RequestTimeout(),
		nepviewer.WithMonitorURL(cfg.MonitorURL),
		nepviewer.WithUserURL(cfg.UserURL),
		nepviewer.WithLogger(logger.Get()),
	)
	creds := nepviewer.Credentials{Email: cfg.Email, Password: cfg.Password}

	if cfg.Now {
		return status(ctx, collector.New(client, nil, logger.Get()), creds, cfg.SerialNumber)
	}

	store, err := openStore(cfg)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.DBPath).Msg("Failed to open metrics store")
		return exitPersist
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close metrics store")
		}
	}()

	res, err := collector.New(client, store, logger.Get()).Run(ctx, creds, cfg.SerialNumber)
	if err != nil {
		logger.Error().
			Err(err).
			Str("stage", string(res.Stage)).
			Int("inserted", res.Tally.Inserted).
			Msg("Collection failed")
		return exitCode(err)
	}

	logger.Info().Msgf("Stored %d new readings, %d already present, %d failed",
		res.Tally.Inserted, res.Tally.Skipped, res.Tally.Failed)

	return exitOK
}

func openStore(cfg *config.Config) (metrics.Repository, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	backupDir := cfg.BackupDir
	if backupDir == "" {
		backupDir = filepath.Join(filepath.Dir(cfg.DBPath), "backups")
	}

	return metrics.NewService(metrics.Config{
		DBPath:          cfg.DBPath,
		BackupDir:       backupDir,
		BackupOnMigrate: cfg.BackupOnMigrate,
		Location:        loc,
	}, logger.Get())
}

func status(ctx context.Context, c *collector.Collector, creds nepviewer.Credentials, serial string) int {
	s, err := c.Status(ctx, creds, serial)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to read inverter status")
		return exitCode(err)
	}

	logger.Info().Msgf("Current output: %.0f W (last update %s)",
		s.Now, s.LastUpdate.Local().Format(metrics.TimeLayout))

	return exitOK
}

// exitCode maps a run error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.HasCode(err, collector.ErrAuthFailed):
		return exitAuth
	case errors.HasCode(err, collector.ErrFetchFailed):
		return exitFetch
	case errors.HasCode(err, collector.ErrPersistFailed),
		errors.HasCode(err, metrics.ErrStoreUnavailable):
		return exitPersist
	default:
		return exitInternal
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
