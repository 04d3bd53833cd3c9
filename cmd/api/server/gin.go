package server

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"user-pages-service/cmd/api/di"
	ginrouter "user-pages-service/internal/adapter/gin/router"
)

// SetupGinServer creates and configures the Gin HTTP server
func SetupGinServer(c *di.Container, addr string, l *zap.Logger) *http.Server {
	// Setup Gin router with all middleware and routes
	router := ginrouter.SetupRouter(ginrouter.Deps{
		Users:       c.UserHandler,
		Sessions:    c.SessionHandler,
		Pages:       c.PageHandler,
		SessionMgr:  c.Sessions,
		CookieName:  c.Config.Session.CookieName,
		View:        c.View,
		RateLimiter: c.RateLimiter,
		Prom:        c.Prom,
		Log:         l,
	})

	l.Info("Gin HTTP server configured", zap.String("address", addr))

	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
