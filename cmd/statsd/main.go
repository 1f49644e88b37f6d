// Command statsd runs the statistics aggregation process.
//
// It consumes game-end events from the RabbitMQ event bus, folds them
// into per-player aggregates in PostgreSQL, and serves a small read-only
// HTTP API for stats and the leaderboard.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lorenzboss/m321-memory/config"
	"github.com/lorenzboss/m321-memory/events"
	"github.com/lorenzboss/m321-memory/stats"
)

var (
	port  = flag.Int("port", 3002, "HTTP server port")
	host  = flag.String("host", "0.0.0.0", "HTTP server host")
	debug = flag.Bool("debug", false, "Enable debug logging")
)

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
		log.Fatal().Err(err).Msg("statsd exited with error")
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to create postgres pool: %w", err)
	}
	defer pool.Close()

	repo := stats.NewRepository(pool)
	if err := repo.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize stats schema: %w", err)
	}
	log.Info().Msg("stats schema ready")

	conn, err := events.NewConnection(cfg.AMQPURL)
	if err != nil {
		return fmt.Errorf("failed to connect to event bus: %w", err)
	}
	defer conn.Close()

	consumer := stats.NewConsumer(conn, repo)
	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start game-end consumer: %w", err)
	}
	defer consumer.Stop()

	addr := fmt.Sprintf("%s:%d", *host, *port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      stats.NewHandler(repo),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("stats API listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("statsd stopped")
	return nil
}
