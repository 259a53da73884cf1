package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/edgeflowers/newsletter/internal/config"
	"github.com/edgeflowers/newsletter/internal/database"
	"github.com/edgeflowers/newsletter/internal/middleware"
	pkgcron "github.com/edgeflowers/newsletter/internal/pkg/cron"
	pkgredis "github.com/edgeflowers/newsletter/internal/pkg/redis"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const databaseRetryInterval = 5 * time.Second

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	db     *gorm.DB
	rdb    *redis.Client
	logger *zap.Logger
	sched  *pkgcron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
}

// New initializes the application: DB, Redis, routes, scheduled jobs.
// An unreachable store is fatal only when database.strict_startup is set.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	db, err := database.Connect(ctx, cfg)
	switch {
	case err == nil:
		logger.Info("database connected", zap.String("driver", cfg.Database.Driver), zap.String("dsn", cfg.Database.Redacted()))
	case errors.Is(err, database.ErrUnavailable) && !cfg.Database.StrictStartup:
		logger.Warn("database unavailable, serving anyway", zap.String("dsn", cfg.Database.Redacted()), zap.Error(err))
		go awaitDatabase(ctx, db, logger)
	default:
		cancel()
		if db != nil {
			_ = database.Close(db)
		}
		return nil, fmt.Errorf("database: %w", err)
	}

	a := &App{cfg: cfg, db: db, logger: logger, ctx: ctx, cancel: cancel}
	a.rdb = a.connectRedis()
	a.router = a.newRouter()

	a.sched = pkgcron.New(logger)
	if err := a.registerJobs(); err != nil {
		a.Shutdown()
		return nil, err
	}
	a.sched.Start(ctx)

	a.registerRoutes()
	return a, nil
}

// awaitDatabase retries until the store answers and the schema exists.
func awaitDatabase(ctx context.Context, db *gorm.DB, logger *zap.Logger) {
	ticker := time.NewTicker(databaseRetryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := database.Ping(ctx, db); err != nil {
				continue
			}
			if err := database.Migrate(ctx, db); err != nil {
				logger.Warn("database reachable but migration failed", zap.Error(err))
				continue
			}
			logger.Info("database connection restored")
			return
		}
	}
}

func (a *App) connectRedis() *redis.Client {
	if a.cfg.Redis.URL == "" {
		return nil
	}
	rdb, err := pkgredis.Connect(a.ctx, a.cfg.Redis.URL)
	if err != nil {
		a.logger.Warn("redis unavailable, rate limiting falls back to memory", zap.Error(err))
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil
	}
	return rdb
}

func (a *App) newRouter() *gin.Engine {
	if a.cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(a.logger))
	router.Use(newCORS(a.cfg))
	return router
}

func (a *App) rateLimiter() middleware.Limiter {
	if a.rdb != nil {
		return middleware.NewRedisLimiter(a.rdb, a.cfg.RateLimit.RequestsPerMinute)
	}
	return middleware.NewMemoryLimiter(a.cfg.RateLimit.RequestsPerMinute)
}

// Addr returns the listen address.
func (a *App) Addr() string { return a.cfg.Addr() }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Scheduler exposes the background job runner.
func (a *App) Scheduler() *pkgcron.Scheduler { return a.sched }

// Shutdown stops background jobs and releases the store and Redis.
func (a *App) Shutdown() {
	a.cancel()
	if a.sched != nil {
		a.sched.Wait()
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Warn("closing redis", zap.Error(err))
		}
	}
	if err := database.Close(a.db); err != nil {
		a.logger.Warn("closing database", zap.Error(err))
	}
}
