// Newsletter backend entry point. It:
//  1. Loads configuration from the environment (and an optional .env file)
//  2. Configures structured logging and OpenTelemetry tracing
//  3. Opens the database (SQLite in dev, PostgreSQL in production) and migrates
//  4. Starts the delivery worker that drains the issue delivery queue
//  5. Serves the HTTP API with graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-newsletter-backend/internal/config"
	"github.com/tbourn/go-newsletter-backend/internal/email"
	httpapi "github.com/tbourn/go-newsletter-backend/internal/http"
	"github.com/tbourn/go-newsletter-backend/internal/observability"
	"github.com/tbourn/go-newsletter-backend/internal/repo"
	"github.com/tbourn/go-newsletter-backend/internal/worker"
)

// version is stamped at build time via -ldflags "-X main.version=…".
var version = "dev"

func main() {
	// Optional .env for local development; real environments set vars directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	setupLogging(cfg)
	log.Info().Str("version", version).Msg("starting newsletter backend")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		c, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := shutdownOTel(c); err != nil {
			log.Error().Err(err).Msg("otel shutdown failed")
		}
	}()

	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database open failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}
	log.Info().Str("driver", cfg.DBDriver).Msg("database ready")

	mailer := buildMailer(cfg)

	// Delivery worker: drains the issue delivery queue in the background.
	workerDone := make(chan struct{})
	if cfg.Worker.Enabled {
		w := &worker.Worker{
			DB:            db,
			Email:         mailer,
			PollInterval:  cfg.Worker.PollInterval,
			ErrorBackoff:  cfg.Worker.ErrorBackoff,
			OnSendFailure: failurePolicy(cfg),
		}
		go func() {
			defer close(workerDone)
			_ = w.Run(ctx)
		}()
	} else {
		close(workerDone)
		log.Warn().Msg("delivery worker disabled, queued issues will not be sent")
	}

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	httpapi.RegisterRoutes(engine, db, mailer, cfg)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh

		log.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel() // stop the worker loop

		shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
		defer stop()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
	}()

	log.Info().Str("addr", server.Addr).Msg("listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server error")
	}

	<-workerDone
	log.Info().Msg("newsletter backend stopped")
}

// setupLogging applies the global zerolog level and output format.
func setupLogging(cfg config.Config) {
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// openDatabase selects the driver from config: SQLite for development and
// tests, PostgreSQL everywhere it matters. Concurrent delivery workers rely
// on PostgreSQL's row locking to share the queue.
func openDatabase(cfg config.Config) (*gorm.DB, error) {
	if cfg.DBDriver == "postgres" {
		return repo.OpenPostgres(cfg.DBDSN)
	}
	return repo.OpenSQLite(cfg.DBPath)
}

// buildMailer picks the real REST transport when a base URL is configured and
// the logging client otherwise.
func buildMailer(cfg config.Config) email.Client {
	if cfg.Email.BaseURL == "" {
		log.Warn().Msg("EMAIL_BASE_URL unset, using the logging email client")
		return email.LogClient{}
	}
	return email.NewRESTClient(cfg.Email.BaseURL, cfg.Email.Sender, cfg.Email.AuthToken, cfg.Email.Timeout)
}

func failurePolicy(cfg config.Config) worker.FailurePolicy {
	if cfg.Worker.DropOnSendFailure {
		return worker.DropOnSendFailure
	}
	return worker.RetryOnSendFailure
}
