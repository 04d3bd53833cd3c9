package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-pages-service/internal/adapter/gin/middleware"
	"user-pages-service/internal/adapter/gin/view"
	"user-pages-service/internal/usecase/session"
	pkgerrors "user-pages-service/pkg/errors"
	"user-pages-service/pkg/logger"
)

// TitleSignin is the title of the sign-in page.
const TitleSignin = "Sign in"

// SignInObserver counts sign-in attempts.
type SignInObserver interface {
	ObserveSignIn(ok bool)
}

// SessionHandler handles sign in and sign out
type SessionHandler struct {
	sessions session.SessionManager
	view     view.Renderer
	cookie   SessionCookie
	observer SignInObserver
	log      *zap.Logger
}

// NewSessionHandler creates a new SessionHandler instance. observer may be nil.
func NewSessionHandler(sessions session.SessionManager, r view.Renderer, cookie SessionCookie, observer SignInObserver, log *zap.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		view:     r,
		cookie:   cookie,
		observer: observer,
		log:      log,
	}
}

// SignInForm is the sign-in form
type SignInForm struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (h *SessionHandler) observe(ok bool) {
	if h.observer != nil {
		h.observer.ObserveSignIn(ok)
	}
}

// New handles GET /signin
func (h *SessionHandler) New(c *gin.Context) {
	c.JSON(http.StatusOK, FormResponse{
		Page:   h.view.Page(TitleSignin, TitleSignin, middleware.CurrentUserID(c)),
		Action: "/sessions",
		Method: http.MethodPost,
		Submit: TitleSignin,
		Fields: []FormField{
			{Name: "email", Label: "Email", Type: "email"},
			{Name: "password", Label: "Password", Type: "password"},
		},
	})
}

// Create handles POST /sessions
func (h *SessionHandler) Create(c *gin.Context) {
	failPage := h.view.Page(TitleSignin, TitleSignin, middleware.CurrentUserID(c))

	var form SignInForm
	if err := c.ShouldBind(&form); err != nil {
		h.log.Warn("Invalid sign in request", zap.Error(err))
		renderError(c, h.log, failPage, pkgerrors.NewValidationError("", "Request body could not be read"))
		return
	}

	ctx := c.Request.Context()
	s, u, err := h.sessions.Authenticate(ctx, form.Email, form.Password)
	if err != nil {
		var unauth *pkgerrors.UnauthorizedError
		if errors.As(err, &unauth) {
			h.observe(false)
			// a failed sign-in re-renders the form with an error flash
			c.JSON(http.StatusUnauthorized, view.ErrorResponse{
				Page:    failPage.WithFlash(view.FlashError, unauth.Error()),
				Error:   "unauthorized",
				Message: unauth.Error(),
			})
			return
		}
		renderError(c, h.log, failPage, err)
		return
	}

	h.observe(true)
	// replace whatever session the browser held before
	if old := middleware.CurrentSessionToken(c); old != "" && old != s.Token {
		_ = h.sessions.SignOut(ctx, old)
	}
	h.cookie.set(c, s.Token)
	logger.WithContext(ctx, h.log).Info("Gin SignIn succeeded", zap.Int64("user_id", u.ID))

	c.Header("Location", view.UserPath(u.ID))
	c.JSON(http.StatusOK, ProfileResponse{
		Page:    h.view.Page(u.Name, u.Name, u.ID),
		User:    toUserResponse(u),
		CanEdit: true,
		Session: &SessionResponse{Token: s.Token, ExpiresAt: s.ExpiresAt},
	})
}

// Destroy handles DELETE /signout
func (h *SessionHandler) Destroy(c *gin.Context) {
	token := middleware.SessionToken(c, h.cookie.Name)
	if err := h.sessions.SignOut(c.Request.Context(), token); err != nil {
		renderError(c, h.log, h.view.Page("", "", middleware.CurrentUserID(c)), err)
		return
	}

	h.cookie.clear(c)
	c.JSON(http.StatusOK, MessageResponse{
		Page:     h.view.Page("", "", 0),
		Location: view.PathRoot,
	})
}
