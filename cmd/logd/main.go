// Command logd runs the log archival process.
//
// It consumes every game lifecycle event from the RabbitMQ event bus
// and persists the complete per-match history to a JSON archive on
// disk.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lorenzboss/m321-memory/config"
	"github.com/lorenzboss/m321-memory/events"
	"github.com/lorenzboss/m321-memory/logarchive"
)

var debug = flag.Bool("debug", false, "Enable debug logging")

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to load .env file")
	}

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if *debug {
		cfg.Debug = true
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("logd exited with error")
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo, err := logarchive.Open(cfg.LogDirectory)
	if err != nil {
		return fmt.Errorf("failed to open log archive: %w", err)
	}
	summary := repo.Summarize()
	log.Info().
		Str("dir", cfg.LogDirectory).
		Int("games", summary.TotalGames).
		Int("moves", summary.TotalMoves).
		Msg("log archive ready")

	conn, err := events.NewConnection(cfg.AMQPURL)
	if err != nil {
		return fmt.Errorf("failed to connect to event bus: %w", err)
	}
	defer conn.Close()

	consumer := logarchive.NewConsumer(conn, repo)
	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start event consumer: %w", err)
	}
	defer consumer.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	sig := <-stop
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	return nil
}
