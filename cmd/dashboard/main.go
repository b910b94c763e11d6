package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"stockRiskAnalyzer/internal/config"
	"stockRiskAnalyzer/internal/logger"
	"stockRiskAnalyzer/internal/marketdata"
	"stockRiskAnalyzer/internal/openai"
	"stockRiskAnalyzer/internal/server"
	"stockRiskAnalyzer/internal/storage"
	"stockRiskAnalyzer/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Format: "console"})
		fallback.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log.Info().Msg("starting stock risk analyzer")

	// A broken default lookback would fail every request; refuse to start.
	if _, err := marketdata.ParseWindow(cfg.DefaultRange); err != nil {
		log.Fatal().Err(err).Str("range", cfg.DefaultRange).Msg("invalid DEFAULT_RANGE")
	}

	if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("failed to create data directory")
		}
	}
	db, err := storage.OpenSQLite("file:" + cfg.SQLitePath + "?_fk=1")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open sqlite")
	}
	defer db.Close()
	if err := storage.InitSchema(db); err != nil {
		log.Fatal().Err(err).Msg("failed to init usage schema")
	}
	store := storage.NewStore(db)
	log.Info().Str("path", cfg.SQLitePath).Msg("usage store ready")

	market := marketdata.NewClient(log)

	var insights server.InsightsSource
	if cfg.InsightsEnabled() {
		insights = openai.NewAnalyst(cfg.OpenAIKey)
		log.Info().Msg("AI commentary enabled")
	}

	var webhook http.HandlerFunc
	if cfg.TelegramEnabled() {
		bot, err := telegram.NewBot(cfg, market, store, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to start telegram bot")
		}
		webhook = bot.WebhookHandler
	}

	srv := server.New(server.Config{
		Log:      log,
		App:      cfg,
		Market:   market,
		Store:    store,
		Insights: insights,
		Webhook:  webhook,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()
	log.Info().Str("port", cfg.Port).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server stopped")
}
