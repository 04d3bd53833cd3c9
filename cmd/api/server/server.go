package server

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"user-pages-service/cmd/api/di"
	"user-pages-service/internal/config"
)

// Server struct holds all server dependencies
type Server struct {
	Config *config.Config
	Logger *zap.Logger
	Gin    *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, l *zap.Logger, c *di.Container) *Server {
	return &Server{
		Config: cfg,
		Logger: l,
		Gin:    SetupGinServer(c, httpAddress(cfg), l),
	}
}

// Start serves HTTP until the server is shut down
func (s *Server) Start() error {
	s.Logger.Info("HTTP server running", zap.String("address", s.Gin.Addr))

	if err := s.Gin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve HTTP: %w", err)
	}
	return nil
}

// httpAddress returns the HTTP server address
func httpAddress(cfg *config.Config) string {
	return ":" + cfg.App.HTTPPort
}
