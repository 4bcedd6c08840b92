package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/classtrack/assessment-service/internal/config"
	"github.com/classtrack/assessment-service/internal/delivery/httpd"
	"github.com/classtrack/assessment-service/internal/repository"
	"github.com/classtrack/assessment-service/internal/service"
	"github.com/classtrack/assessment-service/internal/service/integration"
)

// Services bundles the wired service layer so the HTTP server and the batch
// commands build on the same graph.
type Services struct {
	Assignment   service.AssignmentService
	Grading      service.GradingService
	Materializer service.MaterializerService
	Expiry       service.ExpiryService
	Reminder     service.ReminderService
}

// NewServices wires repositories and services. notifier may be nil when the
// caller does not dispatch reminders (e.g. the dry-run batch commands).
func NewServices(cfg *config.Config, log zerolog.Logger, db *sql.DB, notifier integration.NotificationClient) *Services {
	assessmentRepo := repository.NewAssessmentRepository(db, log)
	enrollmentRepo := repository.NewEnrollmentRepository(db, log)
	questionRepo := repository.NewQuestionRepository(db, log)
	assignmentRepo := repository.NewAssignmentRepository(db, log)
	answerRepo := repository.NewAnswerRepository(db, log)

	assignmentService := service.NewAssignmentService(
		assignmentRepo,
		assessmentRepo,
		questionRepo,
		answerRepo,
		notifier,
		time.Now,
		log,
	)

	gradingService := service.NewGradingService(
		assignmentRepo,
		assessmentRepo,
		questionRepo,
		answerRepo,
		time.Now,
		log,
	)

	materializerService := service.NewMaterializerService(
		assessmentRepo,
		enrollmentRepo,
		assignmentRepo,
		time.Now,
		log,
	)

	expiryService := service.NewExpiryService(
		assignmentRepo,
		assignmentService,
		time.Now,
		log,
	)

	reminderService := service.NewReminderService(
		assessmentRepo,
		enrollmentRepo,
		notifier,
		service.ReminderConfig{
			Lookahead:  cfg.Jobs.ReminderLookahead,
			MaxWorkers: cfg.Jobs.ReminderWorkers,
			URLBase:    cfg.Jobs.StudentPortalURL,
		},
		time.Now,
		log,
	)

	return &Services{
		Assignment:   assignmentService,
		Grading:      gradingService,
		Materializer: materializerService,
		Expiry:       expiryService,
		Reminder:     reminderService,
	}
}

type App struct {
	server   *http.Server
	logger   zerolog.Logger
	config   *config.Config
	db       *sql.DB
	notifier integration.NotificationClient
}

func New(cfg *config.Config, log zerolog.Logger, db *sql.DB) (*App, error) {
	notifier, err := integration.NewNotificationClient(
		cfg.RabbitMQ.URL,
		cfg.RabbitMQ.Exchange,
		cfg.RabbitMQ.RoutingKey,
		cfg.RabbitMQ.QueueName,
		log,
	)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create RabbitMQ client")
		// The HTTP surface works without a notification channel; only the
		// reminder command requires one.
	}

	services := NewServices(cfg, log, db, notifier)

	handler := httpd.NewHandler(
		services.Assignment,
		services.Grading,
		log,
	)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		server:   server,
		logger:   log,
		config:   cfg,
		db:       db,
		notifier: notifier,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info().Msgf("Starting assessment service on %s", a.config.Server.Address)
	return a.server.ListenAndServe()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down assessment service...")

	if a.notifier != nil {
		if err := a.notifier.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close RabbitMQ connection")
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close database connection")
		}
	}

	return a.server.Shutdown(ctx)
}
