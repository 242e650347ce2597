// Command server runs the Telegram relay: it receives webhook updates from
// Telegram, forwards prompts to the cursor-runner automation service, and
// relays completion callbacks back to the originating chats.
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
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/jarekbird/telegram-receiver/internal/config"
	httpapi "github.com/jarekbird/telegram-receiver/internal/http"
	"github.com/jarekbird/telegram-receiver/internal/http/handlers"
	"github.com/jarekbird/telegram-receiver/internal/observability"
	"github.com/jarekbird/telegram-receiver/internal/repo"
	"github.com/jarekbird/telegram-receiver/internal/runner"
	"github.com/jarekbird/telegram-receiver/internal/services"
	"github.com/jarekbird/telegram-receiver/internal/speech"
	"github.com/jarekbird/telegram-receiver/internal/store"
	"github.com/jarekbird/telegram-receiver/internal/sysutil"
	"github.com/jarekbird/telegram-receiver/internal/telegram"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Best effort; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	logger := log.With().Str("service", cfg.OTEL.ServiceName).Logger()

	ctx := context.Background()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		logger.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("sqlite open failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("sqlite migration failed")
	}
	logger.Info().Str("path", cfg.DBPath).Msg("sqlite ready")

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid redis url")
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("redis unreachable")
	}
	logger.Info().Str("addr", redisOpts.Addr).Msg("redis connected")

	tg, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.TempDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram client init failed")
	}

	pending := store.NewPendingStore(rdb, cfg.PendingTTL)
	settings := &services.DBSettings{DB: db}

	transcriber := &speech.HTTPTranscriber{
		BaseURL: cfg.Speech.TranscriptionURL,
		APIKey:  cfg.Speech.APIKey,
	}
	synthesizer := &speech.HTTPSynthesizer{
		BaseURL: cfg.Speech.SynthesisURL,
		APIKey:  cfg.Speech.APIKey,
		TempDir: cfg.TempDir,
	}
	runnerClient := &runner.HTTPClient{BaseURL: cfg.Runner.BaseURL}

	responder := &services.Responder{
		Telegram:    tg,
		Synthesizer: synthesizer,
		Settings:    settings,
		Logger:      logger,
	}
	forwarder := &services.AutomationForwarder{
		Runner:   runnerClient,
		Pending:  pending,
		Settings: settings,
		Telegram: tg,
		Logger:   logger,
	}
	handler := &services.MessageHandler{
		Telegram:    tg,
		Transcriber: transcriber,
		Responder:   responder,
		Forwarder:   forwarder,
		Logger:      logger,
	}

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	httpapi.RegisterRoutes(router, httpapi.Deps{
		Updates:   handler,
		Pending:   pending,
		Replies:   responder,
		Telegram:  tg,
		RedisPing: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		DBPing:    dbPing(db),
		Version:   version,
		Logger:    logger,
	}, cfg)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("version", version).Msg("http server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown error")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("otel shutdown error")
	}
	if err := rdb.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}
	logger.Info().Msg("shutdown complete")
}

// dbPing adapts the gorm handle to a health probe.
func dbPing(db *gorm.DB) handlers.Pinger {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
