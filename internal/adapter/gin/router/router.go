package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-pages-service/internal/adapter/gin/handler"
	"user-pages-service/internal/adapter/gin/middleware"
	"user-pages-service/internal/adapter/gin/view"
	"user-pages-service/internal/observability"
	"user-pages-service/internal/usecase/session"
	"user-pages-service/pkg/logger"
)

// Deps groups what the router wires into the middleware chain.
type Deps struct {
	Users       *handler.UserHandler
	Sessions    *handler.SessionHandler
	Pages       *handler.PageHandler
	SessionMgr  session.SessionManager
	CookieName  string
	View        view.Renderer
	RateLimiter *middleware.RateLimiter // nil disables rate limiting
	Prom        *observability.Prom     // nil disables metrics
	Log         *zap.Logger
}

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(d Deps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(logger.RequestID())
	router.Use(logger.Recovery(d.Log))
	if d.Prom != nil {
		router.Use(d.Prom.GinHandleMiddleware())
	}
	router.Use(logger.AccessLog(d.Log))
	// the limiter's 429 page needs the signed-in user's nav
	router.Use(middleware.LoadSession(d.SessionMgr, d.CookieName, d.Log))
	router.Use(d.RateLimiter.Middleware(d.View))

	router.NoRoute(d.Pages.NotFound)

	// Health check and metrics endpoints
	router.GET("/health", d.Pages.Health)
	if d.Prom != nil {
		router.GET("/metrics", gin.WrapH(d.Prom.Handler()))
	}

	router.GET("/", d.Pages.Home)
	router.GET("/signup", d.Users.Signup)

	router.GET("/signin", d.Sessions.New)
	router.POST("/signin", d.Sessions.Create)
	router.POST("/sessions", d.Sessions.Create)
	router.DELETE("/signout", d.Sessions.Destroy)

	requireSession := middleware.RequireSession(d.View)

	users := router.Group("/users")
	{
		users.POST("", d.Users.CreateUser)
		users.GET("/:id", d.Users.GetUser)

		users.GET("", requireSession, d.Users.ListUsers)
		users.GET("/:id/edit", requireSession, d.Users.EditUser)
		users.PATCH("/:id", requireSession, d.Users.UpdateUser)
		users.PUT("/:id", requireSession, d.Users.UpdateUser)
		users.DELETE("/:id", requireSession, d.Users.DeleteUser)
	}

	return router
}
