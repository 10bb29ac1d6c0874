package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/strivio/contesthub-backend/internal/config"
	"github.com/strivio/contesthub-backend/internal/database"
	"github.com/strivio/contesthub-backend/internal/handler"
	"github.com/strivio/contesthub-backend/internal/logger"
	"github.com/strivio/contesthub-backend/internal/repository"
	"github.com/strivio/contesthub-backend/internal/router"
	"github.com/strivio/contesthub-backend/internal/scheduler"
	"github.com/strivio/contesthub-backend/internal/scoring"
	"github.com/strivio/contesthub-backend/internal/service"
	"github.com/strivio/contesthub-backend/internal/validator"
	"github.com/strivio/contesthub-backend/internal/worker"
)

func main() {
	cfg := config.Load()

	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting ContestHub Backend")

	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	contestRepo := repository.NewContestRepository(pool)
	registrationRepo := repository.NewRegistrationRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	resultRepo := repository.NewResultRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	participantRepo := repository.NewParticipantRepository(pool)
	educatorRepo := repository.NewEducatorRepository(pool)

	authService := service.NewAuthService(cfg, rdb)
	contestService := service.NewContestService(
		contestRepo, questionRepo, resultRepo, rdb, log,
		cfg.BcryptCost, cfg.DefaultEducatorID,
	)

	engine := scoring.NewEngine(scoring.Policy{FloorTotalAtZero: cfg.ScoreFloorAtZero})
	aggregator := service.NewResultAggregator(resultRepo, log)
	reconciler := service.NewSubmissionReconciler(
		registrationRepo, sessionRepo, contestService,
		aggregator, engine, rdb, log,
	)
	sessionService := service.NewSessionService(
		contestRepo, registrationRepo, sessionRepo, reconciler, rdb, log,
	)

	handlers := &router.Handlers{
		Auth:        handler.NewAuthHandler(authService, participantRepo, educatorRepo),
		Participant: handler.NewParticipantHandler(sessionService, contestService),
		Contest:     handler.NewContestHandler(contestService),
		Monitor:     handler.NewMonitorHandler(rdb, contestService, log, cfg.AllowedOrigins),
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())

	proctorWorker := worker.NewProctorWorker(pool, rdb, log)
	verdictWorker := worker.NewVerdictWorker(aggregator, rdb, log)
	phaseScheduler := scheduler.New(
		contestRepo, registrationRepo, reconciler, log,
		cfg.SweepInterval, cfg.SweepConcurrency,
	)

	go proctorWorker.Start(workerCtx)
	go verdictWorker.Start(workerCtx)
	go phaseScheduler.Run(workerCtx)

	// Warm the Redis payload caches for published contests before taking
	// traffic, so the first participants do not race a lazy load.
	if err := contestService.PrewarmAllCaches(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	r := router.SetupRouter(authService, handlers, cfg)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down")

	// Stop accepting HTTP first, then cancel the workers and give their
	// queues a moment to drain.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	workerCancel()
	time.Sleep(2 * time.Second)

	log.Info().Msg("Shutdown complete")
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
