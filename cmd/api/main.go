package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/mzizi-labs/darasa-api/internal/config"
	"github.com/mzizi-labs/darasa-api/internal/database"
	"github.com/mzizi-labs/darasa-api/internal/handler"
	"github.com/mzizi-labs/darasa-api/internal/middleware"
	"github.com/mzizi-labs/darasa-api/internal/models"
	"github.com/mzizi-labs/darasa-api/internal/repository"
	"github.com/mzizi-labs/darasa-api/internal/router"
	"github.com/mzizi-labs/darasa-api/internal/service"
	"github.com/mzizi-labs/darasa-api/pkg/notify"
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
		&models.Institution{},
		&models.Student{},
		&models.Subject{},
		&models.GradeScale{},
		&models.GradeRange{},
		&models.SubjectResult{},
		&models.Result{},
		&models.CohortVersion{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	notifier, err := notify.New(notify.Config{URL: cfg.NATSURL, Subject: cfg.NATSSubject}, logger)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	defer notifier.Close()

	validate := validator.New(validator.WithRequiredStructEnabled())

	institutionRepo := repository.NewInstitutionRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	scaleRepo := repository.NewGradeScaleRepository(db)
	subjectResultRepo := repository.NewSubjectResultRepository(db)
	resultRepo := repository.NewResultRepository(db)

	scaleService := service.NewGradeScaleService(scaleRepo, resultRepo, validate, logger)
	resultService := service.NewResultService(resultRepo, subjectResultRepo, subjectRepo, institutionRepo, studentRepo, scaleService, logger)
	subjectResultService := service.NewSubjectResultService(subjectResultRepo, subjectRepo, scaleService, resultService, validate, logger)
	rankingService := service.NewRankingService(resultRepo, subjectResultRepo, studentRepo, redisClient, cfg.BroadsheetTTL, cfg.RankingMaxRetries, logger)
	publicationService := service.NewPublicationService(resultRepo, scaleService, rankingService, notifier, logger)

	scaleHandler := handler.NewGradeScaleHandler(scaleService, logger)
	marksHandler := handler.NewMarksHandler(subjectResultService, logger)
	cohortHandler := handler.NewCohortHandler(resultService, rankingService, publicationService, logger)
	studentResultHandler := handler.NewStudentResultHandler(resultService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		GradeScaleHandler:    scaleHandler,
		MarksHandler:         marksHandler,
		CohortHandler:        cohortHandler,
		StudentResultHandler: studentResultHandler,
		JWTMiddleware:        middleware.JWTProtected(cfg.JWTSecret),
	})

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
