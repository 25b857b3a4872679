package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mcdev12/streamagenda/go/internal/config"
	"github.com/mcdev12/streamagenda/go/internal/follower"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(os.Getenv("FOLLOWER_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("unknown log level, using info")
	}

	log.Info().
		Str("room", cfg.Room).
		Str("identity", cfg.Identity).
		Str("transport", cfg.Transport).
		Int("status_port", cfg.StatusPort).
		Msg("starting agenda follower")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service, err := follower.Connect(ctx, cfg, os.Stdout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create agenda follower")
	}

	if err := service.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("agenda follower failed")
		os.Exit(1)
	}

	log.Info().Msg("agenda follower shutdown complete")
}
