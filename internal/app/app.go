package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ilham-education/ilham-backend/internal/cache"
	"github.com/ilham-education/ilham-backend/internal/config"
	"github.com/ilham-education/ilham-backend/internal/delivery/httpd"
	"github.com/ilham-education/ilham-backend/internal/repository"
	"github.com/ilham-education/ilham-backend/internal/scheduler"
	"github.com/ilham-education/ilham-backend/internal/service"
	"github.com/ilham-education/ilham-backend/internal/service/integration"
	"github.com/ilham-education/ilham-backend/internal/service/storage"
	"github.com/ilham-education/ilham-backend/internal/worker"
	"github.com/ilham-education/ilham-backend/internal/worker/queue"
	"github.com/ilham-education/ilham-backend/pkg/auth"
	"github.com/ilham-education/ilham-backend/pkg/validation"
	"github.com/rs/zerolog"
)

type App struct {
	server     *http.Server
	logger     zerolog.Logger
	config     *config.Config
	db         *sql.DB
	cache      cache.Cache
	publisher  integration.EventPublisher
	mailWorker *mailWorkerRuntime
	scheduler  *scheduler.Scheduler
}

func New(cfg *config.Config, log zerolog.Logger, db *sql.DB) (*App, error) {
	policy, err := service.ParseSettlementPolicy(cfg.Billing.SettlementPolicy)
	if err != nil {
		return nil, err
	}

	store, err := storage.New(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}

	contentCache := newCache(cfg.Redis, log)

	mailer := integration.NewSMTPMailer(smtpConfig(cfg.SMTP), log)
	messageHandler := queue.NewMessageHandler(mailer, log)

	a := &App{
		logger: log,
		config: cfg,
		db:     db,
		cache:  contentCache,
	}

	publisher, err := integration.NewRabbitMQPublisher(
		cfg.RabbitMQ.URL,
		cfg.RabbitMQ.Exchange,
		cfg.RabbitMQ.QueueName,
		routingKeys,
		log,
	)
	if err != nil {
		log.Warn().Err(err).Msg("RabbitMQ unavailable, delivering emails in-process")

		pool := worker.NewWorkerPool(cfg.Worker.PoolSize, log)
		if err := pool.Start(context.Background()); err != nil {
			return nil, fmt.Errorf("failed to start worker pool: %w", err)
		}
		publisher = worker.NewLocalPublisher(pool, messageHandler, log)
	} else if cfg.Worker.Embedded {
		a.mailWorker, err = newMailWorkerRuntime(cfg, messageHandler, log)
		if err != nil {
			publisher.Close()
			return nil, err
		}
	}
	a.publisher = publisher

	tx := repository.NewTransactor(db, log)
	userRepo := repository.NewUserRepository(db, log)
	studentRepo := repository.NewStudentRepository(db, log)
	universityRepo := repository.NewUniversityRepository(db, log)
	appRepo := repository.NewApplicationRepository(db, log)
	historyRepo := repository.NewHistoryRepository(db, log)
	invoiceRepo := repository.NewInvoiceRepository(db, log)
	paymentRepo := repository.NewPaymentRepository(db, log)
	notificationRepo := repository.NewNotificationRepository(db, log)
	reminderRepo := repository.NewReminderRepository(db, log)
	documentRepo := repository.NewDocumentRepository(db, log)
	counselorRepo := repository.NewCounselorRepository(db, log)
	contentRepo := repository.NewContentRepository(db, log)
	ieltsRepo := repository.NewIELTSRepository(db, log)
	materialRepo := repository.NewMaterialRepository(db, log)

	tokens := auth.NewJWTManager(auth.JWTConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiry,
		Issuer: cfg.JWT.Issuer,
	})

	content := service.NewContentService(tx, contentRepo, universityRepo, contentCache, cfg.Redis.TTL, log)
	reminders := service.NewReminderService(tx, reminderRepo, invoiceRepo, studentRepo, notificationRepo, publisher, cfg.Billing.ReminderLeadDays, log)

	services := httpd.Services{
		Auth: service.NewAuthService(tx, userRepo, studentRepo, tokens, publisher, service.OTPSettings{
			Length: cfg.OTP.Length,
			TTL:    cfg.OTP.TTL,
		}, log),
		Students: service.NewStudentService(tx, userRepo, studentRepo, appRepo, ieltsRepo, store, service.PhotoSettings{
			MaxSize:      cfg.Storage.MaxPhotoSize,
			MaxDimension: cfg.Storage.PhotoMaxDimension,
		}, log),
		Universities:  service.NewUniversityService(universityRepo, content.Invalidate, log),
		Applications:  service.NewApplicationService(tx, appRepo, historyRepo, studentRepo, universityRepo, notificationRepo, publisher, log),
		Billing:       service.NewBillingService(tx, invoiceRepo, paymentRepo, appRepo, studentRepo, reminderRepo, policy, log),
		Notifications: service.NewNotificationService(notificationRepo, studentRepo, publisher, log),
		Reminders:     reminders,
		Documents:     service.NewDocumentService(tx, documentRepo, studentRepo, notificationRepo, store, publisher, cfg.Storage.MaxDocumentSize, log),
		Counselors:    service.NewCounselorService(tx, counselorRepo, userRepo, studentRepo, log),
		IELTS:         service.NewIELTSService(ieltsRepo, materialRepo, studentRepo, store, cfg.Storage.MaxMaterialSize, content.Invalidate, log),
		Content:       content,
		Dashboard:     service.NewDashboardService(studentRepo, appRepo, invoiceRepo, paymentRepo, universityRepo, log),
	}

	if cfg.Billing.ReminderJobEnable {
		a.scheduler = scheduler.New(reminders, log)
		if err := a.scheduler.RegisterReminders(cfg.Billing.ReminderSchedule); err != nil {
			return nil, err
		}
	}

	opts := httpd.Options{
		Production:    cfg.App.IsProduction(),
		MaxUploadSize: maxUploadSize(cfg.Storage),
	}
	if local, ok := store.(*storage.LocalStorage); ok {
		opts.UploadsDir = local.Dir()
		opts.UploadsPath = cfg.Storage.Local.PublicPath
	}

	handler := httpd.NewHandler(services, tokens, validation.NewValidator(), opts, log)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(httpd.RequestLogger(log))
	router.Use(httpd.Recovery(log))
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	handler.RegisterRoutes(router)

	a.server = &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return a, nil
}

func (a *App) Run() error {
	if a.mailWorker != nil {
		if err := a.mailWorker.Start(context.Background()); err != nil {
			a.logger.Error().Err(err).Msg("Failed to start mail worker")
			return err
		}
	}

	if a.scheduler != nil {
		a.scheduler.Start()
	}

	a.logger.Info().Msgf("Starting ILHAM backend on %s", a.config.Server.Address)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down ILHAM backend...")

	var serverErr error
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Failed to shutdown HTTP server")
		serverErr = err
	}

	if a.scheduler != nil {
		a.scheduler.Stop(ctx)
	}

	if a.mailWorker != nil {
		a.mailWorker.Stop()
	}

	if err := a.publisher.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close event publisher")
	}

	if err := a.cache.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close cache")
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close database connection")
		}
	}

	a.logger.Info().Msg("ILHAM backend stopped")
	return serverErr
}

// newCache falls back to no caching when Redis is not configured or not
// reachable; public content is then read from the database every time.
func newCache(cfg config.RedisConfig, log zerolog.Logger) cache.Cache {
	if cfg.URL == "" {
		return cache.NopCache{}
	}

	c, err := cache.NewRedisCache(cfg.URL)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, public content will not be cached")
		return cache.NopCache{}
	}

	log.Info().Msg("Connected to Redis")
	return c
}

func smtpConfig(cfg config.SMTPConfig) integration.SMTPConfig {
	return integration.SMTPConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
		FromName: cfg.FromName,
		Timeout:  cfg.Timeout,
	}
}

func maxUploadSize(cfg config.StorageConfig) int64 {
	size := cfg.MaxDocumentSize
	for _, s := range []int64{cfg.MaxPhotoSize, cfg.MaxMaterialSize} {
		if s > size {
			size = s
		}
	}
	return size
}
