package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/pitcharena/pitcharena-api/internal/config"
	"github.com/pitcharena/pitcharena-api/internal/database"
	"github.com/pitcharena/pitcharena-api/internal/handler"
	"github.com/pitcharena/pitcharena-api/internal/middleware"
	"github.com/pitcharena/pitcharena-api/internal/models"
	"github.com/pitcharena/pitcharena-api/internal/repository"
	"github.com/pitcharena/pitcharena-api/internal/router"
	"github.com/pitcharena/pitcharena-api/internal/service"
	"github.com/pitcharena/pitcharena-api/pkg/ai"
	cloud "github.com/pitcharena/pitcharena-api/pkg/cloudinary"
	"github.com/pitcharena/pitcharena-api/pkg/payments"
	"github.com/pitcharena/pitcharena-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Competition{},
		&models.Submission{},
		&models.JudgeAssignment{},
		&models.Payment{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	} else {
		logger.Warn().Msg("nats url not configured, domain events will be dropped")
	}
	events := service.NewNATSPublisher(natsConn, logger)

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	objectStorage, err := storage.New(context.Background(), storage.Config{
		Region:        cfg.S3Region,
		Bucket:        cfg.S3Bucket,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
		Endpoint:      cfg.S3Endpoint,
		PresignExpiry: cfg.PresignExpiry,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create object storage client: %v", err)
	}

	var screener service.PitchScreener
	if cfg.OpenAIAPIKey != "" {
		openaiScreener, err := ai.NewOpenAIScreener(ai.Config{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.AIModel,
			Logger: logger,
		})
		if err != nil {
			log.Fatalf("failed to create pitch screener: %v", err)
		}
		screener = openaiScreener
	}

	processor := payments.New(cfg.PaymentsBaseURL, cfg.PaymentsAPIKey, logger)

	validate := validator.New(validator.WithRequiredStructEnabled())

	competitionRepo := repository.NewCompetitionRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	assignmentRepo := repository.NewJudgeAssignmentRepository(db)
	userRepo := repository.NewUserRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	leaderboardCache := service.NewRedisLeaderboardCache(redisClient, cfg.LeaderboardCacheTTL, logger)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	competitionService := service.NewCompetitionService(competitionRepo, validate, uploader, events, logger)
	submissionService := service.NewSubmissionService(competitionRepo, submissionRepo, paymentRepo, validate, objectStorage, processor, screener, logger)
	assignmentService := service.NewAssignmentService(competitionRepo, submissionRepo, assignmentRepo, userRepo, validate, events, logger, rng)
	judgingService := service.NewJudgingService(competitionRepo, submissionRepo, assignmentRepo, userRepo, validate, events, leaderboardCache, objectStorage, logger)
	leaderboardService := service.NewLeaderboardService(competitionRepo, submissionRepo, assignmentRepo, userRepo, leaderboardCache, events, logger)
	payoutService := service.NewPayoutService(competitionRepo, submissionRepo, userRepo, paymentRepo, processor, events, logger)
	userService := service.NewUserService(userRepo, logger)
	lifecycleService := service.NewLifecycleService(competitionRepo, events, cfg.LifecycleInterval, logger)

	healthHandler := handler.NewHealthHandler(cfg.AppName, cfg.AppEnv)
	competitionHandler := handler.NewCompetitionHandler(competitionService, logger)
	submissionHandler := handler.NewSubmissionHandler(submissionService, logger)
	judgingHandler := handler.NewJudgingHandler(judgingService, logger)
	adminHandler := handler.NewAdminHandler(assignmentService, leaderboardService, payoutService, userService, logger)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardService, redisClient, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		HealthHandler:      healthHandler,
		CompetitionHandler: competitionHandler,
		SubmissionHandler:  submissionHandler,
		JudgingHandler:     judgingHandler,
		AdminHandler:       adminHandler,
		LeaderboardHandler: leaderboardHandler,
		JWTMiddleware:      middleware.JWTProtected(cfg.JWTSecret),
	})

	lifecycleCtx, stopLifecycle := context.WithCancel(context.Background())
	defer stopLifecycle()
	scheduler, err := lifecycleService.Start(lifecycleCtx)
	if err != nil {
		log.Fatalf("failed to start lifecycle scheduler: %v", err)
	}
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			logger.Warn().Err(err).Msg("lifecycle scheduler shutdown failed")
		}
	}()

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
