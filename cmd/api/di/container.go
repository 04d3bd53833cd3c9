package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-pages-service/cmd/api/infrastructure"
	"user-pages-service/internal/adapter/cache"
	"user-pages-service/internal/adapter/db/postgres"
	ginhandler "user-pages-service/internal/adapter/gin/handler"
	"user-pages-service/internal/adapter/gin/middleware"
	"user-pages-service/internal/adapter/gin/view"
	"user-pages-service/internal/adapter/repository/cached"
	"user-pages-service/internal/adapter/repository/instrumented"
	sessionstore "user-pages-service/internal/adapter/session"
	"user-pages-service/internal/config"
	"user-pages-service/internal/observability"
	"user-pages-service/internal/seed"
	"user-pages-service/internal/usecase/session"
	"user-pages-service/internal/usecase/user"
	"user-pages-service/pkg/security"
	redisclient "user-pages-service/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config         *config.Config
	Logger         *zap.Logger
	DB             *gorm.DB
	RedisClient    *redisclient.Client // nil when Redis is disabled
	UserUC         *user.Usecase
	Sessions       *session.Manager
	Prom           *observability.Prom
	RateLimiter    *middleware.RateLimiter
	View           view.Renderer
	UserHandler    *ginhandler.UserHandler
	SessionHandler *ginhandler.SessionHandler
	PageHandler    *ginhandler.PageHandler
}

// NewContainer creates and initializes all application dependencies
func NewContainer(cfg *config.Config, l *zap.Logger) (*Container, error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	c := &Container{Config: cfg, Logger: l}

	// Initialize database
	db, err := infrastructure.NewDatabase(cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	c.DB = db

	// Initialize Redis client
	rdb, err := infrastructure.NewRedisClient(cfg, l)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}
	c.RedisClient = rdb

	c.Prom = observability.NewProm(prometheus.NewRegistry())

	// Initialize repository: database, query metrics, then the cache in front
	var repo user.Repository = instrumented.NewUserRepository(postgres.NewUserRepoPG(db, l), c.Prom)
	var userCache cache.UserCache
	if rdb != nil {
		userCache = cache.NewRedisUserCache(rdb.Client, time.Duration(cfg.Redis.CacheTTL)*time.Second, l)
	}
	repo = cached.NewCachedUserRepository(repo, userCache, l)

	hasher := security.NewPasswordHasher(cfg.Security.BcryptCost)

	// Initialize use cases
	c.UserUC = user.New(repo, hasher, l, user.Config{PerPage: cfg.Pagination.PerPage})

	var store session.Store = sessionstore.NewMemoryStore()
	if rdb != nil {
		store = sessionstore.NewRedisStore(rdb.Client, l)
	}
	ttl := time.Duration(cfg.Session.TTLSeconds) * time.Second
	c.Sessions = session.NewManager(store, c.UserUC, hasher, l, session.Config{TTL: ttl})

	// Create the admin account before serving
	seedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := seed.EnsureAdmin(seedCtx, repo, hasher, cfg.Admin, l); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to seed admin: %w", err)
	}

	// Initialize rate limiter
	if rdb != nil {
		c.RateLimiter = middleware.NewRateLimiter(
			rdb.Client,
			middleware.RateLimiterConfig{
				RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
				BurstCapacity:     cfg.RateLimit.BurstCapacity,
				Enabled:           cfg.RateLimit.Enabled,
			},
			l,
		)
	}

	// Initialize Gin handlers
	c.View = view.Renderer{AppTitle: cfg.App.Title}
	cookie := ginhandler.SessionCookie{
		Name:   cfg.Session.CookieName,
		TTL:    ttl,
		Secure: cfg.Session.CookieSecure,
	}
	checks := map[string]ginhandler.HealthCheck{
		"database": infrastructure.PingDatabase(db),
	}
	if rdb != nil {
		checks["redis"] = rdb.Ping
	}

	c.UserHandler = ginhandler.NewUserHandler(c.UserUC, c.Sessions, c.View, cookie, l)
	c.SessionHandler = ginhandler.NewSessionHandler(c.Sessions, c.View, cookie, c.Prom, l)
	c.PageHandler = ginhandler.NewPageHandler(c.View, cfg.Logger.ServiceName, checks, l)

	return c, nil
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	var errs []error

	// Close Redis connection
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	// Close database connection
	if c.DB != nil {
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("container close errors: %v", errs)
	}

	return nil
}
