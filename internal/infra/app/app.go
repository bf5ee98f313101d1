package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/santhoshmp/learningplanner/internal/core/port"
	"github.com/santhoshmp/learningplanner/internal/infra/config"
	"github.com/santhoshmp/learningplanner/internal/infra/database"
	kafkainfra "github.com/santhoshmp/learningplanner/internal/infra/kafka"
	"github.com/santhoshmp/learningplanner/internal/infra/logger"
	redisinfra "github.com/santhoshmp/learningplanner/internal/infra/redis"
	"github.com/santhoshmp/learningplanner/internal/infra/security"
	postgresrepo "github.com/santhoshmp/learningplanner/internal/repository/postgres"
	redisrepo "github.com/santhoshmp/learningplanner/internal/repository/redis"
	"github.com/santhoshmp/learningplanner/internal/transport/http/routes"
	"github.com/santhoshmp/learningplanner/internal/usecase"
)

// Application owns every long-lived resource and the wired HTTP engine.
type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
}

// New builds the full dependency graph from configuration.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	signer, err := security.NewTokenSigner(cfg.JWT.Secret, cfg.App.Name)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init token signer: %w", err)
	}

	principals := postgresrepo.NewPrincipalRepository(pool)
	sessions := postgresrepo.NewSessionRepository(pool)
	tokens := postgresrepo.NewTokenRepository(pool)
	activities := postgresrepo.NewActivityRepository(pool)
	helpRequests := postgresrepo.NewHelpRequestRepository(pool)
	streaks := postgresrepo.NewStreakRepository(pool)

	signalTTL := cfg.Anomaly.SignalTTL
	if signalTTL <= 0 {
		signalTTL = 30 * time.Minute
	}
	signals := redisrepo.NewAnomalySignalStore(redisClient.Client(), redisrepo.AnomalySignalConfig{
		KeyPrefix: "anomaly",
		TTL:       signalTTL,
	})
	progressCache := redisrepo.NewProgressCache(redisClient.Client())

	var (
		publisher port.EventPublisher
		producer  *kafkainfra.Producer
	)
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			publisher = kafkainfra.NewStubPublisher(log)
		} else {
			publisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
		}
	} else {
		log.Info("kafka disabled, using stub publisher")
		publisher = kafkainfra.NewStubPublisher(log)
	}

	detector := usecase.NewAnomalyDetector(cfg.Anomaly, signals, sessions, tokens, principals, publisher, log)
	sessionService := usecase.NewSessionService(cfg.Session, sessions, tokens, detector, publisher, log)
	authService := usecase.NewAuthService(cfg, principals, sessions, tokens, signer, detector, log)
	progressService := usecase.NewProgressService(cfg.Cache, progressCache, activities, helpRequests, streaks, log)
	helpService := usecase.NewHelpAnalyticsService(cfg.Analytics, helpRequests, principals, publisher, progressService, log)
	activityService := usecase.NewActivityService(activities, streaks, progressService, log)

	engine := routes.Register(routes.Dependencies{
		Config:     cfg,
		Logger:     log,
		Signer:     signer,
		Principals: principals,
		Database:   pool,
		Redis:      redisClient.Client(),
		Services: routes.ServiceSet{
			Auth:       authService,
			Sessions:   sessionService,
			Help:       helpService,
			Progress:   progressService,
			Activities: activityService,
		},
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.producer != nil {
			_ = a.producer.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting learning planner API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
