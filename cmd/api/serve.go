package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"joblinker/api/internal/config"
	"joblinker/api/internal/dispatch"
	"joblinker/api/internal/handlers"
	"joblinker/api/internal/repositories"
	"joblinker/api/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the event workers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log := newLogger()
	defer log.Sync()

	cfg := config.Load(log)
	log.Info("config loaded", zap.String("env", cfg.Server.Env), zap.Bool("ai_enabled", cfg.HasGeminiKey()))

	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}

	resumeRepo := repositories.NewResumeRepository(db)
	applicationRepo := repositories.NewApplicationRepository(db)
	jobRepo := repositories.NewJobListingRepository(db)
	stepRepo := repositories.NewStepRepository(db)

	storage := services.NewStorageService(cfg.Storage.UploadPath)
	if err := storage.EnsureUploadDir(); err != nil {
		return fmt.Errorf("creating upload directory: %w", err)
	}

	// A nil GeminiService disables AI steps: summaries and scores degrade to their sentinels.
	var gemini services.GeminiService
	if cfg.HasGeminiKey() {
		gemini, err = services.NewGeminiService(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, log)
		if err != nil {
			return fmt.Errorf("initializing gemini: %w", err)
		}
		log.Info("gemini initialized", zap.String("model", gemini.Model()))
	} else {
		log.Warn("GEMINI_API_KEY is not set, AI summaries and match scores are disabled")
	}

	parser := services.NewResumeParser(
		resumeRepo,
		services.NewTextExtractor(log),
		services.NewSummarizer(gemini, log),
		log,
	)
	ranker := services.NewApplicantRanker(
		applicationRepo,
		jobRepo,
		resumeRepo,
		services.NewMatchScorer(gemini, log),
		log,
	)

	broker, err := dispatch.NewRabbitMQ(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, cfg.Worker.Concurrency, log)
	if err != nil {
		return fmt.Errorf("initializing rabbitmq: %w", err)
	}
	defer broker.Close()

	dispatcher := dispatch.NewDispatcher(broker, stepRepo, dispatch.Options{
		Concurrency:  cfg.Worker.Concurrency,
		MaxAttempts:  cfg.Worker.RetryMaxAttempts,
		InitialDelay: cfg.Worker.RetryInitialDelay,
	}, log)
	services.RegisterJobs(dispatcher, parser, ranker, log)

	deliveries, err := broker.Consume(app)
	if err != nil {
		return fmt.Errorf("consuming events: %w", err)
	}
	dispatcher.Start(ctx, deliveries)

	fiberApp := fiber.New(fiber.Config{
		AppName:      "JobLinker API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		// multipart overhead on top of the largest accepted file
		BodyLimit:    int(cfg.Storage.MaxFileSize) + 1024*1024,
		ErrorHandler: customErrorHandler,
	})

	fiberApp.Use(recover.New())
	fiberApp.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	fiberApp.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	handlers.RegisterRoutes(fiberApp,
		handlers.NewResumeHandler(resumeRepo, storage, broker, cfg.Storage.MaxFileSize, log),
		handlers.NewApplicationHandler(applicationRepo, jobRepo, broker, log),
	)

	fiberApp.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "JobLinker API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/resumes/upload",
				"GET /api/v1/resumes/:candidate_id",
				"POST /api/v1/applications",
				"GET /api/v1/jobs/:job_id/applications",
				"GET /api/v1/jobs/:job_id/applications/stats",
			},
		})
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("shutting down server")
		cancel()
		dispatcher.Stop()
		if err := fiberApp.Shutdown(); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("server starting", zap.String("addr", addr))

	if err := fiberApp.Listen(addr); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	return nil
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
