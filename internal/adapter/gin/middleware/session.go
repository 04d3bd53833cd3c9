package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-pages-service/internal/adapter/gin/view"
	"user-pages-service/internal/domain/user"
	"user-pages-service/internal/usecase/session"
	pkgerrors "user-pages-service/pkg/errors"
	"user-pages-service/pkg/logger"
)

const (
	currentUserKey  = "current_user"
	sessionTokenKey = "session_token"
)

// SessionToken reads the session token from the cookie, falling back to an
// "Authorization: Bearer" header.
func SessionToken(c *gin.Context, cookieName string) string {
	if token, err := c.Cookie(cookieName); err == nil && token != "" {
		return token
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// LoadSession resolves the signed-in user, if any, for every request.
// A session store failure leaves the request anonymous.
func LoadSession(sessions session.SessionManager, cookieName string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c, cookieName)
		if token == "" {
			c.Next()
			return
		}

		u, err := sessions.CurrentUser(c.Request.Context(), token)
		if err != nil {
			logger.WithContext(c.Request.Context(), log).Warn("failed to load session, continuing signed out", zap.Error(err))
			_ = c.Error(err)
			c.Next()
			return
		}
		if u != nil {
			c.Set(currentUserKey, u)
			c.Set(sessionTokenKey, token)
			c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), u.ID))
		}
		c.Next()
	}
}

// CurrentUser returns the signed-in user or nil.
func CurrentUser(c *gin.Context) *user.User {
	if v, ok := c.Get(currentUserKey); ok {
		if u, ok := v.(*user.User); ok {
			return u
		}
	}
	return nil
}

// CurrentUserID returns the signed-in user's ID, or 0 when signed out.
func CurrentUserID(c *gin.Context) int64 {
	if u := CurrentUser(c); u != nil {
		return u.ID
	}
	return 0
}

// CurrentSessionToken returns the token of a valid session, or "".
func CurrentSessionToken(c *gin.Context) string {
	return c.GetString(sessionTokenKey)
}

// RequireSession rejects requests without a signed-in user.
func RequireSession(r view.Renderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) != nil {
			c.Next()
			return
		}

		msg := pkgerrors.ErrUnauthorized.Error()
		c.AbortWithStatusJSON(http.StatusUnauthorized, view.ErrorResponse{
			Page:    r.Page("Sign in", "Sign in", 0).WithFlash(view.FlashNotice, msg),
			Error:   "unauthorized",
			Message: msg,
		})
	}
}
