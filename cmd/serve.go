package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/munilab/ai-gateway/internal/config"
	"github.com/munilab/ai-gateway/internal/monitoring"
)

// runServe starts the gateway and blocks until SIGINT or SIGTERM.
func runServe(args []string) int {
	opts, err := parseFlags(args)
	if errors.Is(err, errHelp) {
		printHelp()
		return 0
	}
	if err != nil {
		printError(err.Error())
		return 1
	}

	loadEnvFiles()
	cfg, err := loadConfig(opts)
	if err != nil {
		printError(err.Error())
		return 1
	}
	// A missing provider credential stops the process here, not per request.
	if err := cfg.Validate(); err != nil {
		printError("invalid configuration:\n" + err.Error())
		return 1
	}

	closer, err := setupLogging(cfg)
	if err != nil {
		printError(err.Error())
		return 1
	}
	defer func() { _ = closer.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("startup failed")
		return 1
	}
	defer a.close()
	a.gw.LogInit()

	errCh := make(chan error, 1)
	go func() { errCh <- a.gw.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("gateway stopped")
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.DefaultShutdownTimeout)
	defer cancel()
	if err := a.gw.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		return 1
	}
	return 0
}

// setupLogging installs the global logger from cfg.Monitoring.
func setupLogging(cfg *config.Config) (io.Closer, error) {
	return monitoring.SetupLogger(monitoring.LoggerConfig{
		Level:  cfg.Monitoring.LogLevel,
		Format: cfg.Monitoring.LogFormat,
		Output: cfg.Monitoring.LogOutput,
	})
}
