package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/challengeclub/competition-server-go/internal/config"
	"github.com/challengeclub/competition-server-go/internal/conversation"
	"github.com/challengeclub/competition-server-go/internal/database"
	"github.com/challengeclub/competition-server-go/internal/handler"
	"github.com/challengeclub/competition-server-go/internal/jobs"
	"github.com/challengeclub/competition-server-go/internal/middleware"
	"github.com/challengeclub/competition-server-go/internal/notify"
	"github.com/challengeclub/competition-server-go/internal/redis"
	"github.com/challengeclub/competition-server-go/internal/repository"
	"github.com/challengeclub/competition-server-go/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Timezone).Msg("invalid timezone")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	userRepo := repository.NewUserRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)
	challengeRepo := repository.NewChallengeRepository(db.DB)
	scoreRepo := repository.NewScoreRepository(db.DB)
	suggestionRepo := repository.NewSuggestionRepository(db.DB)
	baselineRepo := repository.NewBaselineRepository(db.DB)
	adminRepo := repository.NewAdminRepository(db.DB)
	feedbackRepo := repository.NewFeedbackRepository(db.DB)
	notifRepo := repository.NewNotificationRepository(db.DB)

	notifier := notify.NewLogNotifier()

	userService := service.NewUserService(userRepo, feedbackRepo)
	ledgerService := service.NewLedgerService(db, scoreRepo, baselineRepo, challengeRepo, userRepo, redisClient, loc)
	lifecycleService := service.NewLifecycleService(
		db, challengeRepo, suggestionRepo, baselineRepo, notifRepo,
		ledgerService, notifier, loc, cfg.GracePeriodDays,
	)
	permissionService := service.NewPermissionService(db, adminRepo, userRepo)

	engine := conversation.NewEngine(
		sessionRepo, userService, ledgerService, lifecycleService, permissionService,
		cfg.SessionTTL(), loc,
	)

	signatureMiddleware := middleware.NewSignatureMiddleware(cfg.WebhookSignatureSecret)
	rateLimitMiddleware := middleware.NewRedisRateLimitMiddleware(redisClient.Client)

	webhookHandler := handler.NewWebhookHandler(
		engine, userService, ledgerService, lifecycleService, permissionService, loc,
	)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(middleware.BodyLimit)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/webhook", func(r chi.Router) {
		r.Use(signatureMiddleware.Handler)
		r.Use(rateLimitMiddleware.Handler)
		r.Post("/", webhookHandler.Webhook)
	})

	cleanupJob := jobs.NewCleanupJob(sessionRepo, cfg.SessionTTL(), config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	statusJob := jobs.NewStatusJob(lifecycleService, config.StatusSyncInterval)
	statusJob.Start()
	defer statusJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
