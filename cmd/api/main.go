package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/octobees/tablemate/internal/app"
	"github.com/octobees/tablemate/internal/auth"
	"github.com/octobees/tablemate/internal/config"
	"github.com/octobees/tablemate/internal/database"
	"github.com/octobees/tablemate/internal/handler"
	middlewarepkg "github.com/octobees/tablemate/internal/middleware"
	"github.com/octobees/tablemate/internal/privacy"
	"github.com/octobees/tablemate/internal/repository"
	"github.com/octobees/tablemate/internal/router"
	"github.com/octobees/tablemate/internal/service"
	"github.com/octobees/tablemate/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger := app.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare schema")
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	usersRepo := repository.NewPGXUsersRepository(pool)
	venuesRepo := repository.NewPGXVenuesRepository(pool)

	venuesService := service.NewVenuesService(venuesRepo, nil)
	if cfg.DatasetPath != "" {
		seed, err := os.Open(cfg.DatasetPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.DatasetPath).Msg("failed to open dataset")
		}
		summary, err := venuesService.ImportCSV(ctx, seed)
		seed.Close()
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to import dataset")
		}
		logger.Info().Int("inserted", summary.Inserted).Int("updated", summary.Updated).Msg("dataset imported")
	} else if err := venuesService.Refresh(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to load venues")
	}
	logger.Info().Int("venues", venuesService.Catalogue().Len()).Msg("catalogue ready")

	var blobs privacy.BlobStore = repository.NewPGXPreferencesRepository(pool)
	if cfg.PrefsBackend == "file" {
		fileBlobs, err := privacy.NewFileBlobs(cfg.PrefsDir)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare preference directory")
		}
		blobs = fileBlobs
	}
	prefStore, err := app.NewPreferenceStore(cfg.PrefsSecret, blobs)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure preference store")
	}
	if prefStore == nil {
		logger.Warn().Msg("PREFS_SECRET not set, preference commands disabled")
	}

	dialogManager, err := app.NewDialogManager(cfg.LexiconPath, cfg.DialogTopK, prefStore, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build dialog manager")
	}

	sessionOpts := []session.Option{session.WithLogger(logger)}
	if cfg.RedisURL != "" {
		redisClient, err := database.ConnectRedis(ctx, cfg.RedisURL, cfg.RedisPassword)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer redisClient.Close()
		sessionOpts = append(sessionOpts, session.WithMirror(session.NewRedisMirror(redisClient)))
	}
	sessions := session.NewManager(cfg.SessionTTL, cfg.MaxSessions, sessionOpts...)

	runCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	go sessions.StartCleanup(runCtx, time.Minute)

	var reserver service.Reserver
	if cfg.ReservationBaseURL != "" {
		reserver = handler.NewReservationClient(nil, cfg.ReservationBaseURL)
	}

	authService := service.NewAuthService(usersRepo, jwtManager)
	conversationService := service.NewConversationService(sessions, dialogManager, venuesService.Catalogue(), logger)
	bookingService := service.NewBookingService(sessions, venuesService.Catalogue(), service.NewContactValidator(cfg.PhoneRegion), reserver, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middlewarepkg.RequestID())
	e.Use(middlewarepkg.Logging(logger))
	e.Use(echoMiddleware.Recover())

	router.Register(e, cfg, jwtManager, router.Handlers{
		Auth:          handler.NewAuthHandler(authService),
		Venues:        handler.NewVenuesHandler(venuesService),
		AdminUpload:   handler.NewAdminUploadHandler(venuesService),
		Conversations: handler.NewConversationsHandler(conversationService),
		ChatSocket:    handler.NewChatSocketHandler(conversationService, cfg.AllowedOrigins, logger),
		Booking:       handler.NewBookingHandler(bookingService),
	})

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("http server starting")
		serverErr <- e.Start(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
		return
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
