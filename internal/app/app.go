package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/yungbote/workshop-backend/internal/data/db"
	httpapi "github.com/yungbote/workshop-backend/internal/http"
	httpMW "github.com/yungbote/workshop-backend/internal/http/middleware"
	"github.com/yungbote/workshop-backend/internal/observability"
	"github.com/yungbote/workshop-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Repos    Repos
	Services Services
	Handlers Handlers

	db           *db.Service
	metrics      *observability.Metrics
	server       *httpapi.Server
	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(ctx, log, cfg.Otel)
	metrics := observability.Init(cfg.MetricsEnabled)

	dbs, err := db.NewService(log, cfg.DB)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init db: %w", err)
	}
	if err := db.AutoMigrateAll(dbs.DB()); err != nil {
		_ = dbs.Close()
		log.Sync()
		return nil, fmt.Errorf("db automigrate: %w", err)
	}

	reposet := wireRepos(dbs.DB(), log)
	serviceset, err := wireServices(ctx, dbs.DB(), log, cfg, metrics, reposet)
	if err != nil {
		_ = dbs.Close()
		log.Sync()
		return nil, err
	}
	handlerset := wireHandlers(log, dbs.DB(), serviceset)

	server := httpapi.NewServer(log, ":"+cfg.Port, cfg.ShutdownTimeout, httpapi.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		ServiceName:     otelServiceName(cfg),
		CORSOrigins:     cfg.CORSOrigins,
		Identity:        httpMW.IdentityConfig{JWTSecret: cfg.JWTSecret},
		WorkshopHandler: handlerset.Workshop,
		HealthHandler:   handlerset.Health,
	})

	return &App{
		Log:          log,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Handlers:     handlerset,
		db:           dbs,
		metrics:      metrics,
		server:       server,
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.metrics.StartDBCollector(ctx, a.Log, a.db.DB(), a.Cfg.DBStatsInterval)
	return a.server.Run(ctx)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	if a.Services.redis != nil {
		_ = a.Services.redis.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Log.Warn("db close failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

// otelServiceName returns "" when tracing is off so the gin middleware is skipped.
func otelServiceName(cfg Config) string {
	if !cfg.Otel.Enabled {
		return ""
	}
	return cfg.Otel.ServiceName
}
