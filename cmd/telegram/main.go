package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog/log"

	"github.com/octobees/tablemate/internal/app"
	"github.com/octobees/tablemate/internal/config"
	"github.com/octobees/tablemate/internal/privacy"
	"github.com/octobees/tablemate/internal/service"
	"github.com/octobees/tablemate/internal/session"
	"github.com/octobees/tablemate/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger := app.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	if cfg.TelegramBotToken == "" {
		logger.Fatal().Msg("TELEGRAM_BOT_TOKEN must be set")
	}
	if cfg.DatasetPath == "" {
		logger.Fatal().Msg("DATASET_PATH must point at a venue CSV")
	}

	venues, err := service.LoadVenuesFile(cfg.DatasetPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load venues")
	}

	blobs, err := privacy.NewFileBlobs(cfg.PrefsDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare preference directory")
	}
	store, err := app.NewPreferenceStore(cfg.PrefsSecret, blobs)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure preference store")
	}

	engine, err := app.NewDialogManager(cfg.LexiconPath, cfg.DialogTopK, store, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build dialog manager")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sessions := session.NewManager(cfg.SessionTTL, cfg.MaxSessions, session.WithLogger(logger))
	go sessions.StartCleanup(ctx, time.Minute)

	conversations := service.NewConversationService(sessions, engine, service.NewCatalogue(venues), logger)
	handler := telegram.NewHandler(conversations, logger)

	b, err := bot.New(cfg.TelegramBotToken, bot.WithDefaultHandler(handler.Handle))
	if err != nil {
		logger.Fatal().Err(err).Msg("error creating bot")
	}

	logger.Info().Int("venues", len(venues)).Msg("telegram bot starting")
	b.Start(ctx)
	logger.Info().Msg("bot stopped")
}
