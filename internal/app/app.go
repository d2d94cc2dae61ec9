package app

import (
	"context"
	"database/sql"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/DevEdward666/StudyHubAPI-sub001/internal/config"
	"github.com/DevEdward666/StudyHubAPI-sub001/internal/events"
	httpserver "github.com/DevEdward666/StudyHubAPI-sub001/internal/http"
	"github.com/DevEdward666/StudyHubAPI-sub001/internal/http/handlers"
	"github.com/DevEdward666/StudyHubAPI-sub001/internal/http/middleware"
	redisstore "github.com/DevEdward666/StudyHubAPI-sub001/internal/redis"
	"github.com/DevEdward666/StudyHubAPI-sub001/internal/repository"
	"github.com/DevEdward666/StudyHubAPI-sub001/internal/service"
	"github.com/DevEdward666/StudyHubAPI-sub001/libs/db"
	libredis "github.com/DevEdward666/StudyHubAPI-sub001/libs/redis"
)

// App wires sessions-service dependencies.
type App struct {
	server      *httpserver.Server
	sweeper     *service.Sweeper
	db          *sql.DB
	redisClient *redis.Client
	publisher   *events.Publisher
	logger      *zap.Logger
}

// New constructs the application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := db.NewPostgresDB(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	redisClient, err := libredis.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	var (
		publisher *events.Publisher
		sink      service.EventSink
	)
	if cfg.Rabbit.URL != "" {
		publisher, err = events.NewPublisher(cfg.Rabbit.URL, cfg.Rabbit.Exchange)
		if err != nil {
			sqlDB.Close()
			redisClient.Close()
			return nil, err
		}
		sink = publisher
	}

	sessionRepo := repository.NewSessionRepository(sqlDB)
	tableRepo := repository.NewTableRepository(sqlDB)
	walletRepo := repository.NewWalletRepository(sqlDB)
	rateRepo := repository.NewRateRepository(sqlDB)

	activeStore := redisstore.NewStore(redisClient, cfg.ActiveSessionTTL())
	clock := service.SystemClock{}

	terminator := service.NewTerminator(sessionRepo, rateRepo, sink, activeStore, clock, logger)
	sessionsService := service.NewSessionsService(sessionRepo, walletRepo, tableRepo, rateRepo, terminator, activeStore, clock, logger)
	sweeper := service.NewSweeper(sessionRepo, terminator, clock, cfg.SweepInterval(), logger)

	sessionsHandler := handlers.NewSessionsHandler(sessionsService, logger)
	walletHandler := handlers.NewWalletHandler(sessionsService, logger)

	routes := httpserver.Routes{
		SessionStart:    sessionsHandler.HandleStart,
		SessionEnd:      sessionsHandler.HandleEnd,
		SessionTransfer: sessionsHandler.HandleTransfer,
		SessionExtend:   sessionsHandler.HandleExtend,
		SessionsMe:      sessionsHandler.HandleSessionsMe,
		ActiveSessions:  sessionsHandler.HandleActiveSessions,
		TableSession:    sessionsHandler.HandleTableSession,
		Tables:          handlers.NewTablesHandler(sessionsService, logger),
		WalletMe:        walletHandler.HandleWalletMe,
		WalletTopup:     walletHandler.HandleTopup,
		WalletEntries:   walletHandler.HandleWalletEntries,
		Health:          handlers.NewHealthHandler(),
	}

	router := httpserver.NewRouter(routes, middleware.AuthMiddleware(cfg.Auth.JWTSecret))
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	return &App{
		server:      server,
		sweeper:     sweeper,
		db:          sqlDB,
		redisClient: redisClient,
		publisher:   publisher,
		logger:      logger,
	}, nil
}

// Run starts the HTTP server and the reconciliation sweeper; both stop on
// ctx cancellation.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		if err := a.sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("sweeper stopped", zap.Error(err))
		}
	}()

	err := a.server.Run(ctx)
	cancel()
	<-sweepDone
	return err
}

// Close releases resources.
func (a *App) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("failed to close event publisher", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
}
