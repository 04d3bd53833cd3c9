package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-pages-service/internal/adapter/gin/middleware"
	"user-pages-service/internal/adapter/gin/view"
	domain "user-pages-service/internal/domain/user"
	"user-pages-service/internal/usecase/session"
	"user-pages-service/internal/usecase/user"
	pkgerrors "user-pages-service/pkg/errors"
	"user-pages-service/pkg/logger"
)

// Page titles and flash messages of the user pages.
const (
	TitleSignup    = "Sign up"
	TitleEditUser  = "Edit user"
	TitleAllUsers  = "All users"
	HeadingEdit    = "Update your profile"
	FlashWelcome   = "Welcome to the Sample App!"
	FlashUpdated   = "Profile updated"
	FlashDestroyed = "User destroyed."
)

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	uc       user.UserUsecase
	sessions session.SessionManager
	view     view.Renderer
	cookie   SessionCookie
	log      *zap.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(uc user.UserUsecase, sessions session.SessionManager, r view.Renderer, cookie SessionCookie, log *zap.Logger) *UserHandler {
	return &UserHandler{
		uc:       uc,
		sessions: sessions,
		view:     r,
		cookie:   cookie,
		log:      log,
	}
}

// UserForm represents the signup and edit form, as JSON or form fields
type UserForm struct {
	Name                 string `json:"name" form:"name"`
	Email                string `json:"email" form:"email"`
	Password             string `json:"password" form:"password"`
	PasswordConfirmation string `json:"password_confirmation" form:"password_confirmation"`
}

// FormField describes one input of a rendered form.
type FormField struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// FormResponse is a page with a form on it
type FormResponse struct {
	view.Page
	Action      string      `json:"action"`
	Method      string      `json:"method"`
	Submit      string      `json:"submit"`
	Fields      []FormField `json:"fields"`
	GravatarURL string      `json:"gravatar_url,omitempty"`
}

// ProfileResponse is the profile page of one user
type ProfileResponse struct {
	view.Page
	User    UserResponse     `json:"user"`
	CanEdit bool             `json:"can_edit"`
	Session *SessionResponse `json:"session,omitempty"`
}

// UserRow is one line of the index
type UserRow struct {
	UserResponse
	CanDelete  bool   `json:"can_delete"`
	DeleteHref string `json:"delete_href,omitempty"`
}

// Pagination represents pagination information and its links
type Pagination struct {
	Page       int         `json:"page"`
	PerPage    int         `json:"per_page"`
	TotalCount int64       `json:"total_count"`
	TotalPages int         `json:"total_pages"`
	Links      []view.Link `json:"links"`
}

// IndexResponse represents the HTTP response for listing users
type IndexResponse struct {
	view.Page
	Users      []UserRow  `json:"users"`
	Order      string     `json:"order"`
	Query      string     `json:"q,omitempty"`
	Pagination Pagination `json:"pagination"`
}

// MessageResponse is a page carrying only a flash and where to go next
type MessageResponse struct {
	view.Page
	Location string `json:"location,omitempty"`
}

func formFields(name, email string) []FormField {
	return []FormField{
		{Name: "name", Label: "Name", Type: "text", Value: name},
		{Name: "email", Label: "Email", Type: "email", Value: email},
		{Name: "password", Label: "Password", Type: "password"},
		{Name: "password_confirmation", Label: "Confirmation", Type: "password"},
	}
}

// Signup handles GET /signup
func (h *UserHandler) Signup(c *gin.Context) {
	c.JSON(http.StatusOK, FormResponse{
		Page:   h.view.Page(TitleSignup, TitleSignup, middleware.CurrentUserID(c)),
		Action: view.PathUsers,
		Method: http.MethodPost,
		Submit: "Create my account",
		Fields: formFields("", ""),
	})
}

// CreateUser handles POST /users. A successful signup signs the new user in.
func (h *UserHandler) CreateUser(c *gin.Context) {
	failPage := h.view.Page(TitleSignup, TitleSignup, middleware.CurrentUserID(c))

	var form UserForm
	if err := c.ShouldBind(&form); err != nil {
		h.log.Warn("Invalid create user request", zap.Error(err))
		renderError(c, h.log, failPage, pkgerrors.NewValidationError("", "Request body could not be read"))
		return
	}

	ctx := c.Request.Context()
	logger.WithContext(ctx, h.log).Info("Gin CreateUser request", zap.String("name", form.Name), zap.String("email", form.Email))

	u, err := h.uc.CreateUser(ctx, user.CreateUserRequest{
		Name:                 form.Name,
		Email:                form.Email,
		Password:             form.Password,
		PasswordConfirmation: form.PasswordConfirmation,
	})
	if err != nil {
		renderError(c, h.log, failPage, err)
		return
	}

	resp := ProfileResponse{
		User:    toUserResponse(u),
		CanEdit: true,
	}

	s, err := h.sessions.SignIn(ctx, u)
	if err != nil {
		// the account exists; the visitor can still sign in by hand
		logger.WithContext(ctx, h.log).Error("failed to sign in new user", zap.Int64("id", u.ID), zap.Error(err))
		resp.Page = h.view.Page(u.Name, u.Name, 0).WithFlash(view.FlashSuccess, FlashWelcome)
		c.JSON(http.StatusCreated, resp)
		return
	}

	if old := middleware.CurrentSessionToken(c); old != "" && old != s.Token {
		if err := h.sessions.SignOut(ctx, old); err != nil {
			logger.WithContext(ctx, h.log).Warn("failed to revoke previous session", zap.Error(err))
		}
	}
	h.cookie.set(c, s.Token)
	resp.Page = h.view.Page(u.Name, u.Name, u.ID).WithFlash(view.FlashSuccess, FlashWelcome)
	resp.Session = &SessionResponse{Token: s.Token, ExpiresAt: s.ExpiresAt}
	c.Header("Location", view.UserPath(u.ID))
	c.JSON(http.StatusCreated, resp)
}

// GetUser handles GET /users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	currentID := middleware.CurrentUserID(c)

	id, err := parseID(c)
	if err != nil {
		renderError(c, h.log, h.view.Page("", "", currentID), err)
		return
	}

	u, err := h.uc.GetUser(c.Request.Context(), id)
	if err != nil {
		renderError(c, h.log, h.view.Page("", "", currentID), err)
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{
		Page:    h.view.Page(u.Name, u.Name, currentID),
		User:    toUserResponse(u),
		CanEdit: domain.CanEdit(middleware.CurrentUser(c), u),
	})
}

// editable loads the user behind :id and checks the signed-in user may edit it.
func (h *UserHandler) editable(c *gin.Context) (*domain.User, error) {
	id, err := parseID(c)
	if err != nil {
		return nil, err
	}

	current := middleware.CurrentUser(c)
	target, err := h.uc.GetUser(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if !domain.CanEdit(current, target) {
		logger.WithContext(c.Request.Context(), h.log).Warn("edit refused", zap.Int64("id", id))
		return nil, pkgerrors.NewPermissionDeniedError("You can only edit your own profile.")
	}
	return target, nil
}

// EditUser handles GET /users/:id/edit
func (h *UserHandler) EditUser(c *gin.Context) {
	page := h.view.Page(TitleEditUser, HeadingEdit, middleware.CurrentUserID(c))

	u, err := h.editable(c)
	if err != nil {
		renderError(c, h.log, page, err)
		return
	}

	c.JSON(http.StatusOK, FormResponse{
		Page:        page,
		Action:      view.UserPath(u.ID),
		Method:      http.MethodPatch,
		Submit:      "Save changes",
		Fields:      formFields(u.Name, u.Email),
		GravatarURL: view.GravatarURL,
	})
}

// UpdateUser handles PATCH /users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	currentID := middleware.CurrentUserID(c)
	failPage := h.view.Page(TitleEditUser, HeadingEdit, currentID)

	u, err := h.editable(c)
	if err != nil {
		renderError(c, h.log, failPage, err)
		return
	}

	var form UserForm
	if err := c.ShouldBind(&form); err != nil {
		h.log.Warn("Invalid update user request", zap.Error(err))
		renderError(c, h.log, failPage, pkgerrors.NewValidationError("", "Request body could not be read"))
		return
	}

	ctx := c.Request.Context()
	logger.WithContext(ctx, h.log).Info("Gin UpdateUser request", zap.Int64("id", u.ID), zap.String("name", form.Name), zap.String("email", form.Email))

	updated, err := h.uc.UpdateUser(ctx, user.UpdateUserRequest{
		ID:                   u.ID,
		Name:                 form.Name,
		Email:                form.Email,
		Password:             form.Password,
		PasswordConfirmation: form.PasswordConfirmation,
	})
	if err != nil {
		renderError(c, h.log, failPage, err)
		return
	}

	c.JSON(http.StatusOK, ProfileResponse{
		Page:    h.view.Page(updated.Name, updated.Name, currentID).WithFlash(view.FlashSuccess, FlashUpdated),
		User:    toUserResponse(updated),
		CanEdit: true,
	})
}

// ListUsers handles GET /users
func (h *UserHandler) ListUsers(c *gin.Context) {
	current := middleware.CurrentUser(c)
	page := h.view.Page(TitleAllUsers, TitleAllUsers, middleware.CurrentUserID(c))

	pageNum, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || pageNum < 1 {
		pageNum = 1
	}
	order := c.DefaultQuery("order", domain.OrderByName)
	if !domain.ValidOrder(order) {
		order = domain.OrderByName
	}
	query := c.Query("q")

	logger.WithContext(c.Request.Context(), h.log).Info("Gin ListUsers request",
		zap.String("query", query), zap.String("order", order), zap.Int("page", pageNum))

	result, err := h.uc.ListUsers(c.Request.Context(), user.ListUsersRequest{
		Page:  pageNum,
		Order: order,
		Query: query,
	})
	if err != nil {
		renderError(c, h.log, page, err)
		return
	}

	rows := make([]UserRow, len(result.Users))
	for i := range result.Users {
		u := &result.Users[i]
		rows[i] = UserRow{UserResponse: toUserResponse(u)}
		if domain.CanDelete(current, u) {
			rows[i].CanDelete = true
			rows[i].DeleteHref = view.UserPath(u.ID)
		}
	}

	c.JSON(http.StatusOK, IndexResponse{
		Page:  page,
		Users: rows,
		Order: order,
		Query: query,
		Pagination: Pagination{
			Page:       result.Number,
			PerPage:    result.Size,
			TotalCount: result.TotalCount,
			TotalPages: result.TotalPages,
			Links:      paginationLinks(result, order, query),
		},
	})
}

// paginationLinks builds Previous, the page numbers and Next.
// Previous and Next are omitted at the ends.
func paginationLinks(p domain.Page, order, query string) []view.Link {
	links := make([]view.Link, 0, p.TotalPages+2)
	if p.HasPrev() {
		links = append(links, view.Link{Label: "Previous", Href: view.IndexPageURL(p.Number-1, order, query)})
	}
	for n := 1; n <= p.TotalPages; n++ {
		links = append(links, view.Link{
			Label:   strconv.Itoa(n),
			Href:    view.IndexPageURL(n, order, query),
			Current: n == p.Number,
		})
	}
	if p.HasNext() {
		links = append(links, view.Link{Label: "Next", Href: view.IndexPageURL(p.Number+1, order, query)})
	}
	return links
}

// DeleteUser handles DELETE /users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	current := middleware.CurrentUser(c)
	page := h.view.Page(TitleAllUsers, TitleAllUsers, middleware.CurrentUserID(c))

	id, err := parseID(c)
	if err != nil {
		renderError(c, h.log, page, err)
		return
	}

	logger.WithContext(c.Request.Context(), h.log).Info("Gin DeleteUser request", zap.Int64("id", id))

	if err := h.uc.DeleteUser(c.Request.Context(), current, id); err != nil {
		renderError(c, h.log, page, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{
		Page:     page.WithFlash(view.FlashSuccess, FlashDestroyed),
		Location: view.PathUsers,
	})
}
