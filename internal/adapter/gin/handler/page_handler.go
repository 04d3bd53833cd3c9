package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-pages-service/internal/adapter/gin/middleware"
	"user-pages-service/internal/adapter/gin/view"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// PageHandler serves the pages that carry no domain data
type PageHandler struct {
	view    view.Renderer
	service string
	checks  map[string]HealthCheck
	log     *zap.Logger
}

// NewPageHandler creates a new PageHandler instance. checks are run by /health, keyed by dependency name.
func NewPageHandler(r view.Renderer, service string, checks map[string]HealthCheck, log *zap.Logger) *PageHandler {
	return &PageHandler{view: r, service: service, checks: checks, log: log}
}

// Home handles GET /
func (h *PageHandler) Home(c *gin.Context) {
	c.JSON(http.StatusOK, h.view.Page("", h.view.AppTitle, middleware.CurrentUserID(c)))
}

// NotFound renders unknown routes
func (h *PageHandler) NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, view.ErrorResponse{
		Page:    h.view.Page("", "", middleware.CurrentUserID(c)),
		Error:   "not_found",
		Message: "The page you were looking for doesn't exist.",
	})
}

// Health handles GET /health
func (h *PageHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.log.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			deps[name] = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "healthy"
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}
	c.JSON(status, gin.H{
		"status":       overall,
		"service":      h.service,
		"dependencies": deps,
	})
}
