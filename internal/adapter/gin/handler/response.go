package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-pages-service/internal/adapter/gin/view"
	"user-pages-service/internal/domain/user"
	pkgerrors "user-pages-service/pkg/errors"
	"user-pages-service/pkg/logger"
)

// UserResponse represents the HTTP response for user data
type UserResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Admin     bool      `json:"admin"`
	Href      string    `json:"href"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Admin:     u.IsAdmin,
		Href:      view.UserPath(u.ID),
		CreatedAt: u.CreatedAt,
	}
}

// SessionResponse hands the session token to clients that do not keep cookies.
type SessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionCookie describes the cookie carrying the session token.
type SessionCookie struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

func (sc SessionCookie) set(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sc.Name, token, int(sc.TTL.Seconds()), "/", "", sc.Secure, true)
}

func (sc SessionCookie) clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sc.Name, "", -1, "/", "", sc.Secure, true)
}

// parseID reads the :id path parameter. Anything that is not a positive
// integer cannot name a user.
func parseID(c *gin.Context) (int64, error) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.NewNotFoundError("user", "user not found: id="+idStr)
	}
	return id, nil
}

// errorCode names an error class in responses.
func errorCode(err error) (int, string) {
	var (
		validation *pkgerrors.ValidationError
		notFound   *pkgerrors.NotFoundError
		exists     *pkgerrors.AlreadyExistsError
		unauth     *pkgerrors.UnauthorizedError
		denied     *pkgerrors.PermissionDeniedError
	)
	switch {
	case errors.As(err, &validation):
		return validation.HTTPStatus(), "validation_error"
	case errors.As(err, &notFound):
		return notFound.HTTPStatus(), "not_found"
	case errors.As(err, &exists):
		return exists.HTTPStatus(), "already_exists"
	case errors.As(err, &unauth):
		return unauth.HTTPStatus(), "unauthorized"
	case errors.As(err, &denied):
		return denied.HTTPStatus(), "permission_denied"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// renderError converts usecase errors to appropriate HTTP responses, drawn on page.
func renderError(c *gin.Context, log *zap.Logger, page view.Page, err error) {
	status, code := errorCode(err)
	resp := view.ErrorResponse{Page: page, Error: code}

	var validation *pkgerrors.ValidationError
	switch {
	case errors.As(err, &validation):
		resp.Message = validation.Summary()
		resp.Errors = validation.FullMessages()
		resp.Fields = make(map[string][]string, len(validation.Fields))
		for _, f := range validation.Fields {
			resp.Fields[f.Field] = append(resp.Fields[f.Field], f.Message)
		}
	case status == http.StatusInternalServerError:
		logger.WithContext(c.Request.Context(), log).Error("request failed", zap.Error(err))
		resp.Message = "An internal error occurred"
		resp.Page = resp.Page.WithFlash(view.FlashError, resp.Message)
	case status == http.StatusUnauthorized:
		resp.Message = err.Error()
		resp.Page = resp.Page.WithFlash(view.FlashNotice, resp.Message)
	default:
		resp.Message = err.Error()
		resp.Page = resp.Page.WithFlash(view.FlashError, resp.Message)
	}

	_ = c.Error(err)
	c.JSON(status, resp)
}
