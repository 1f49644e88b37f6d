// Command memory starts the multiplayer memory game coordinator.
//
// It exposes the auth REST API, the WebSocket game endpoint, and a
// health check. Game lifecycle events are published to RabbitMQ for
// the stats aggregator; when no broker is reachable the server still
// runs with event publishing disabled.
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

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lorenzboss/m321-memory/api"
	"github.com/lorenzboss/m321-memory/auth"
	"github.com/lorenzboss/m321-memory/config"
	"github.com/lorenzboss/m321-memory/events"
	"github.com/lorenzboss/m321-memory/game/service"
	"github.com/lorenzboss/m321-memory/game/session"
	"github.com/lorenzboss/m321-memory/transport/websocket"
)

const (
	Version = "1.0.0"
	AppName = "Memory Game Coordinator"
)

var (
	port    = flag.Int("port", 0, "HTTP server port (overrides PORT)")
	host    = flag.String("host", "", "HTTP server host (overrides HOST)")
	debug   = flag.Bool("debug", false, "Enable debug logging")
	version = flag.Bool("version", false, "Show version information")
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to load .env file")
	}

	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if *host != "" {
		cfg.Host = *host
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *debug {
		cfg.Debug = true
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	if err := cfg.RequireJWTSecret(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	log.Info().Str("version", Version).Msg("starting " + AppName)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
}

func run(cfg *config.Config) error {
	db, err := auth.Open(cfg.AuthDBPath)
	if err != nil {
		return fmt.Errorf("failed to open auth database: %w", err)
	}
	defer db.Close()

	authService := auth.NewService(db, cfg.JWTSecret, cfg.TokenTTL)

	publisher, closeBus := connectEventBus(cfg.AMQPURL)
	defer closeBus()

	sessions := session.NewManager()

	opts := service.Options{
		ResolutionDelay: cfg.ResolutionDelay,
		IdleThreshold:   cfg.IdleThreshold,
	}
	gameService := service.NewGameService(sessions, publisher, opts)

	gateway := websocket.NewGateway(gameService, authService)
	service.SetNotifier(gameService, gateway)

	apiServer := api.NewServer(authService, gateway)

	cleanupDone := make(chan struct{})
	go cleanupRoutine(gameService, cfg.CleanupInterval, cleanupDone)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      apiServer,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		log.Info().Msgf("WebSocket: ws://%s/ws", addr)
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

	close(cleanupDone)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("server stopped")
	return nil
}

// connectEventBus tries the broker once at startup. A missing broker is
// not fatal: games still run, only stats collection goes dark.
func connectEventBus(url string) (events.Publisher, func()) {
	conn, err := events.NewConnection(url)
	if err != nil {
		log.Warn().Err(err).Msg("event bus unavailable, publishing disabled")
		return events.NopPublisher{}, func() {}
	}
	return events.NewAMQPPublisher(conn), func() {
		if err := conn.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close event bus connection")
		}
	}
}

// cleanupRoutine periodically evicts sessions that have been idle
// longer than the configured threshold.
func cleanupRoutine(svc service.GameService, interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := svc.CleanupIdleSessions(context.Background()); removed > 0 {
				log.Info().Int("removed", removed).Msg("cleaned up idle sessions")
			}
		case <-done:
			return
		}
	}
}
