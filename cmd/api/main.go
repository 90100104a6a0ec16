package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-eval-api/internal/config"
	"github.com/noah-isme/gema-eval-api/internal/database"
	"github.com/noah-isme/gema-eval-api/internal/handler"
	"github.com/noah-isme/gema-eval-api/internal/identity"
	"github.com/noah-isme/gema-eval-api/internal/middleware"
	"github.com/noah-isme/gema-eval-api/internal/models"
	"github.com/noah-isme/gema-eval-api/internal/observability"
	"github.com/noah-isme/gema-eval-api/internal/repository"
	"github.com/noah-isme/gema-eval-api/internal/router"
	"github.com/noah-isme/gema-eval-api/internal/service"
	"github.com/noah-isme/gema-eval-api/internal/session"
	"github.com/noah-isme/gema-eval-api/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.Connect(cfg.RecordStoreDriver, cfg.RecordStoreDSN)
	if err != nil {
		log.Fatalf("failed to connect to record store: %v", err)
	}
	if err := db.AutoMigrate(&models.EvaluationRecord{}, &models.TeacherAccount{}); err != nil {
		log.Fatalf("failed to migrate record store: %v", err)
	}

	teacherRepo := repository.NewTeacherRepository(db)
	if err := seedTeacher(context.Background(), cfg, teacherRepo, logger); err != nil {
		log.Fatalf("failed to seed teacher account: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not set, student result cache disabled")
	}

	sink, closeSink, err := buildReportSink(cfg, db, logger)
	if err != nil {
		log.Fatalf("failed to set up report sink: %v", err)
	}
	defer closeSink()

	evaluator := buildEvaluator(cfg, logger)

	store := repository.NewRecordStore(db)
	results := service.NewStudentResultService(store, redisClient, cfg.ResultCacheTTL, logger)
	sessions := session.NewManager(session.Deps{
		Store:      store,
		Sink:       sink,
		Evaluator:  evaluator,
		Identities: identity.NewPasswordProvider(teacherRepo, logger),
		Results:    results,
		Logger:     logger,
	}, cfg.SessionTTL)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sessions.Run(sweepCtx)

	validate := validator.New(validator.WithRequiredStructEnabled())

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    8 << 20,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		SessionHandler:    handler.NewSessionHandler(sessions, cfg.JWTSecret, cfg.TokenTTL, validate, logger),
		EvaluationHandler: handler.NewEvaluationHandler(validate, logger),
		ResultHandler:     handler.NewResultHandler(logger),
		HealthChecks:      healthChecks(db, redisClient),
		AuthMiddleware:    middleware.SessionAuth(cfg.JWTSecret, sessions),
		TeacherGuard:      middleware.RequireState(session.StateTeacherAuthenticated),
		StudentGuard:      middleware.RequireState(session.StateStudent),
		SubmitLimiter:     middleware.RateLimit("evaluations", cfg.EvaluationsPerMinute, time.Minute),
		MetricsHandler:    observability.MetricsHandler(),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func buildReportSink(cfg config.Config, recordDB *gorm.DB, logger zerolog.Logger) (service.ReportSink, func(), error) {
	switch cfg.ReportSink {
	case config.SinkNATS:
		conn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			return nil, nil, err
		}
		return service.NewNATSReportSink(conn, cfg.NATSSubject, logger), func() { drainNATS(conn) }, nil
	default:
		reportDB := recordDB
		if cfg.ReportDatabaseURL != "" {
			var err error
			reportDB, err = database.ConnectPostgres(cfg.ReportDatabaseURL)
			if err != nil {
				return nil, nil, err
			}
		}
		if err := reportDB.AutoMigrate(&models.EvaluationReport{}); err != nil {
			return nil, nil, err
		}
		return service.NewDatabaseReportSink(repository.NewReportRepository(reportDB), logger), func() {}, nil
	}
}

func drainNATS(conn *nats.Conn) {
	if err := conn.Drain(); err != nil {
		conn.Close()
	}
}

func buildEvaluator(cfg config.Config, logger zerolog.Logger) ai.Evaluator {
	if cfg.AIProvider != "openai" {
		logger.Warn().Str("provider", cfg.AIProvider).Msg("unsupported ai provider, evaluations disabled")
		return nil
	}

	evaluator, err := ai.NewOpenAIEvaluator(ai.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		BaseURL: cfg.OpenAIBaseURL,
		Logger:  logger,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("openai evaluator unavailable, evaluations disabled")
		return nil
	}
	return evaluator
}

func seedTeacher(ctx context.Context, cfg config.Config, repo repository.TeacherRepository, logger zerolog.Logger) error {
	if cfg.TeacherSeedEmail == "" || cfg.TeacherSeedPassword == "" {
		return nil
	}

	if _, err := repo.FindByEmail(ctx, cfg.TeacherSeedEmail); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	account, err := identity.CreateAccount(ctx, repo, cfg.TeacherSeedEmail, cfg.TeacherSeedName, cfg.TeacherSeedPassword)
	if err != nil {
		return err
	}
	logger.Info().Str("email", account.Email).Msg("seeded teacher account")
	return nil
}

func healthChecks(db *gorm.DB, redisClient *redis.Client) map[string]handler.HealthCheckFunc {
	checks := map[string]handler.HealthCheckFunc{
		"record_store": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		checks["result_cache"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
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
