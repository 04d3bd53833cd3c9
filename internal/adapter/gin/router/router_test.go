package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"user-pages-service/internal/adapter/db/postgres"
	"user-pages-service/internal/adapter/gin/handler"
	"user-pages-service/internal/adapter/gin/middleware"
	"user-pages-service/internal/adapter/gin/view"
	sessionstore "user-pages-service/internal/adapter/session"
	domain "user-pages-service/internal/domain/user"
	"user-pages-service/internal/observability"
	"user-pages-service/internal/usecase/session"
	"user-pages-service/internal/usecase/user"
	"user-pages-service/pkg/security"
)

const cookieName = "session_token"

type app struct {
	router  *gin.Engine
	repo    *postgres.UserRepoPG
	uc      *user.Usecase
	hasher  *security.PasswordHasher
	healthy error
}

func setupApp(t testing.TB, opts ...func(*Deps)) *app {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, postgres.Migrate(db))

	log := zaptest.NewLogger(t)
	a := &app{
		repo:   postgres.NewUserRepoPG(db, log),
		hasher: security.NewPasswordHasher(bcrypt.MinCost),
	}
	a.uc = user.New(a.repo, a.hasher, log, user.Config{PerPage: 30})
	mgr := session.NewManager(sessionstore.NewMemoryStore(), a.uc, a.hasher, log, session.Config{TTL: time.Hour})

	r := view.Renderer{AppTitle: "Sample App"}
	cookie := handler.SessionCookie{Name: cookieName, TTL: time.Hour}
	prom := observability.NewProm(prometheus.NewRegistry())
	checks := map[string]handler.HealthCheck{
		"database": func(ctx context.Context) error { return sqlDB.PingContext(ctx) },
		"cache":    func(context.Context) error { return a.healthy },
	}

	deps := Deps{
		Users:      handler.NewUserHandler(a.uc, mgr, r, cookie, log),
		Sessions:   handler.NewSessionHandler(mgr, r, cookie, prom, log),
		Pages:      handler.NewPageHandler(r, "user-pages-service", checks, log),
		SessionMgr: mgr,
		CookieName: cookieName,
		View:       r,
		Prom:       prom,
		Log:        log,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	a.router = SetupRouter(deps)
	return a
}

func (a *app) request(t testing.TB, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *app) count(t *testing.T) int64 {
	t.Helper()
	n, err := a.uc.CountUsers(context.Background())
	require.NoError(t, err)
	return n
}

func (a *app) createUser(t testing.TB, name, email string, admin bool) *domain.User {
	t.Helper()
	digest, err := a.hasher.Hash("foobar")
	require.NoError(t, err)
	u := &domain.User{Name: name, Email: email, PasswordDigest: digest, IsAdmin: admin}
	_, err = a.repo.Create(context.Background(), u)
	require.NoError(t, err)
	return u
}

func (a *app) signIn(t testing.TB, email string) string {
	t.Helper()
	w := a.request(t, http.MethodPost, "/sessions", "", handler.SignInForm{Email: email, Password: "foobar"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[handler.ProfileResponse](t, w)
	require.NotNil(t, resp.Session)
	return resp.Session.Token
}

func decode[T any](t testing.TB, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func hasLink(links []view.Link, label, href string) bool {
	for _, l := range links {
		if l.Label == label && l.Href == href {
			return true
		}
	}
	return false
}

func TestSignupPage(t *testing.T) {
	a := setupApp(t)

	w := a.request(t, http.MethodGet, "/signup", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[handler.FormResponse](t, w)
	assert.Equal(t, "Sign up", resp.Heading)
	assert.Equal(t, "Sample App | Sign up", resp.Title)
}

func TestSignup(t *testing.T) {
	t.Run("with invalid information", func(t *testing.T) {
		a := setupApp(t)
		before := a.count(t)

		w := a.request(t, http.MethodPost, "/users", "", handler.UserForm{})

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, before, a.count(t))
		resp := decode[view.ErrorResponse](t, w)
		assert.Equal(t, "Sample App | Sign up", resp.Title)
		assert.Contains(t, resp.Errors, "Name can't be blank")
	})

	t.Run("with valid information", func(t *testing.T) {
		a := setupApp(t)
		before := a.count(t)

		w := a.request(t, http.MethodPost, "/users", "", handler.UserForm{
			Name:                 "Example User",
			Email:                "user@example.com",
			Password:             "foobar",
			PasswordConfirmation: "foobar",
		})

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, before+1, a.count(t))

		resp := decode[handler.ProfileResponse](t, w)
		assert.Equal(t, "Sample App | Example User", resp.Title)
		require.NotNil(t, resp.Flash)
		assert.Equal(t, view.FlashSuccess, resp.Flash.Type)
		assert.Contains(t, resp.Flash.Message, "Welcome")
		assert.True(t, hasLink(resp.Nav, "Sign out", "/signout"))
		assert.Contains(t, w.Header().Get("Set-Cookie"), cookieName+"=")

		// the new session is live
		require.NotNil(t, resp.Session)
		w = a.request(t, http.MethodGet, "/users", resp.Session.Token, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("while signed in as someone else", func(t *testing.T) {
		a := setupApp(t)
		a.createUser(t, "First", "first@example.com", false)
		oldToken := a.signIn(t, "first@example.com")

		w := a.request(t, http.MethodPost, "/users", oldToken, handler.UserForm{
			Name:                 "Second",
			Email:                "second@example.com",
			Password:             "foobar",
			PasswordConfirmation: "foobar",
		})

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		resp := decode[handler.ProfileResponse](t, w)
		require.NotNil(t, resp.Session)
		assert.NotEqual(t, oldToken, resp.Session.Token)

		assert.Equal(t, http.StatusUnauthorized, a.request(t, http.MethodGet, "/users", oldToken, nil).Code)
		assert.Equal(t, http.StatusOK, a.request(t, http.MethodGet, "/users", resp.Session.Token, nil).Code)
	})

	t.Run("with a taken email", func(t *testing.T) {
		a := setupApp(t)
		a.createUser(t, "First", "user@example.com", false)

		w := a.request(t, http.MethodPost, "/users", "", handler.UserForm{
			Name: "Second", Email: "USER@example.com", Password: "foobar", PasswordConfirmation: "foobar",
		})

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, decode[view.ErrorResponse](t, w).Errors, "Email has already been taken")
	})
}

func TestProfilePage(t *testing.T) {
	a := setupApp(t)
	u := a.createUser(t, "Michael Example", "michael@example.com", false)

	w := a.request(t, http.MethodGet, view.UserPath(u.ID), "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[handler.ProfileResponse](t, w)
	assert.Equal(t, "Michael Example", resp.Heading)
	assert.Equal(t, "Sample App | Michael Example", resp.Title)
	assert.NotContains(t, w.Body.String(), "password")

	w = a.request(t, http.MethodGet, "/users/999", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEdit(t *testing.T) {
	setup := func(t *testing.T) (*app, *domain.User, string) {
		a := setupApp(t)
		u := a.createUser(t, "Example User", "user@example.com", false)
		return a, u, a.signIn(t, u.Email)
	}

	t.Run("page", func(t *testing.T) {
		a, u, token := setup(t)

		w := a.request(t, http.MethodGet, view.EditUserPath(u.ID), token, nil)

		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[handler.FormResponse](t, w)
		assert.Equal(t, "Update your profile", resp.Heading)
		assert.Equal(t, "Sample App | Edit user", resp.Title)
		assert.Equal(t, "http://gravatar.com/emails", resp.GravatarURL)
	})

	t.Run("with invalid information", func(t *testing.T) {
		a, u, token := setup(t)

		w := a.request(t, http.MethodPatch, view.UserPath(u.ID), token, handler.UserForm{Name: u.Name, Email: u.Email})

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "error")
	})

	t.Run("with valid information", func(t *testing.T) {
		a, u, token := setup(t)

		w := a.request(t, http.MethodPatch, view.UserPath(u.ID), token, handler.UserForm{
			Name: "New Name", Email: "new@example.com", Password: "foobar", PasswordConfirmation: "foobar",
		})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode[handler.ProfileResponse](t, w)
		assert.Equal(t, "Sample App | New Name", resp.Title)
		require.NotNil(t, resp.Flash)
		assert.Equal(t, view.FlashSuccess, resp.Flash.Type)
		assert.True(t, hasLink(resp.Nav, "Sign out", "/signout"))

		reloaded, err := a.uc.GetUser(context.Background(), u.ID)
		require.NoError(t, err)
		assert.Equal(t, "New Name", reloaded.Name)
		assert.Equal(t, "new@example.com", reloaded.Email)
	})

	t.Run("someone else's profile", func(t *testing.T) {
		a, _, token := setup(t)
		other := a.createUser(t, "Other", "other@example.com", false)

		w := a.request(t, http.MethodGet, view.EditUserPath(other.ID), token, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("signed out", func(t *testing.T) {
		a, u, _ := setup(t)

		w := a.request(t, http.MethodGet, view.EditUserPath(u.ID), "", nil)

		require.Equal(t, http.StatusUnauthorized, w.Code)
		resp := decode[view.ErrorResponse](t, w)
		require.NotNil(t, resp.Flash)
		assert.Equal(t, "Please sign in.", resp.Flash.Message)
	})
}

func TestIndex(t *testing.T) {
	setup := func(t *testing.T) (*app, *domain.User, string) {
		a := setupApp(t)
		u := a.createUser(t, "Bob", "bob@example.com", false)
		a.createUser(t, "Ben", "ben@example.com", false)
		a.createUser(t, "Dave", "dave@example.com", false)
		return a, u, a.signIn(t, u.Email)
	}

	t.Run("lists each user", func(t *testing.T) {
		a, _, token := setup(t)

		w := a.request(t, http.MethodGet, "/users", token, nil)

		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[handler.IndexResponse](t, w)
		assert.Equal(t, "Sample App | All users", resp.Title)
		assert.Equal(t, "All users", resp.Heading)
		names := make([]string, len(resp.Users))
		for i, row := range resp.Users {
			names[i] = row.Name
		}
		assert.Equal(t, []string{"Ben", "Bob", "Dave"}, names)
	})

	t.Run("pagination", func(t *testing.T) {
		a, _, token := setup(t)
		for i := 0; i < 28; i++ {
			a.createUser(t, fmt.Sprintf("Person %02d", i), fmt.Sprintf("person-%d@example.com", i), false)
		}

		w := a.request(t, http.MethodGet, "/users?page=1", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		first := decode[handler.IndexResponse](t, w)
		assert.Len(t, first.Users, 30)
		assert.True(t, hasLink(first.Pagination.Links, "Next", "/users?order=name&page=2"))
		assert.True(t, hasLink(first.Pagination.Links, "2", "/users?order=name&page=2"))

		w = a.request(t, http.MethodGet, "/users?page=2", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		second := decode[handler.IndexResponse](t, w)
		require.Len(t, second.Users, 1)

		seen := map[int64]bool{}
		for _, row := range first.Users {
			seen[row.ID] = true
		}
		assert.False(t, seen[second.Users[0].ID], "pages do not overlap")
		assert.EqualValues(t, 31, second.Pagination.TotalCount)

		for _, row := range append(first.Users, second.Users...) {
			assert.False(t, row.CanDelete)
		}
	})

	t.Run("search", func(t *testing.T) {
		a, _, token := setup(t)

		w := a.request(t, http.MethodGet, "/users?q=b", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[handler.IndexResponse](t, w).Users, 2)

		w = a.request(t, http.MethodGet, "/users?q=%3Cscript%3E", token, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("signed out", func(t *testing.T) {
		a, _, _ := setup(t)

		w := a.request(t, http.MethodGet, "/users", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestDeleteLinks(t *testing.T) {
	a := setupApp(t)
	first := a.createUser(t, "Alice", "alice@example.com", false)
	a.createUser(t, "Bob", "bob@example.com", false)
	admin := a.createUser(t, "Zed Admin", "admin@example.com", true)
	token := a.signIn(t, admin.Email)

	w := a.request(t, http.MethodGet, "/users", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[handler.IndexResponse](t, w)

	for _, row := range resp.Users {
		if row.ID == admin.ID {
			assert.False(t, row.CanDelete, "no delete link on the admin's own row")
			continue
		}
		assert.True(t, row.CanDelete)
		assert.Equal(t, view.UserPath(row.ID), row.DeleteHref)
	}

	before := a.count(t)
	w = a.request(t, http.MethodDelete, view.UserPath(first.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, before-1, a.count(t))
	msg := decode[handler.MessageResponse](t, w)
	require.NotNil(t, msg.Flash)
	assert.Equal(t, "User destroyed.", msg.Flash.Message)

	w = a.request(t, http.MethodDelete, view.UserPath(admin.ID), token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.request(t, http.MethodDelete, view.UserPath(first.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDelete_Refusals(t *testing.T) {
	a := setupApp(t)
	target := a.createUser(t, "Target", "target@example.com", false)
	plain := a.createUser(t, "Plain", "plain@example.com", false)
	token := a.signIn(t, plain.Email)
	before := a.count(t)

	w := a.request(t, http.MethodDelete, view.UserPath(target.ID), "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.request(t, http.MethodDelete, view.UserPath(target.ID), token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	assert.Equal(t, before, a.count(t))
}

func TestSessions(t *testing.T) {
	a := setupApp(t)
	u := a.createUser(t, "Example User", "user@example.com", false)

	w := a.request(t, http.MethodGet, "/signin", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Sample App | Sign in", decode[handler.FormResponse](t, w).Title)

	w = a.request(t, http.MethodPost, "/sessions", "", handler.SignInForm{Email: u.Email, Password: "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	failed := decode[view.ErrorResponse](t, w)
	require.NotNil(t, failed.Flash)
	assert.Equal(t, view.FlashError, failed.Flash.Type)

	token := a.signIn(t, "USER@example.com")

	w = a.request(t, http.MethodGet, "/", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, hasLink(decode[view.Page](t, w).Nav, "Profile", view.UserPath(u.ID)))

	w = a.request(t, http.MethodDelete, "/signout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/", decode[handler.MessageResponse](t, w).Location)

	w = a.request(t, http.MethodGet, "/users", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	a := setupApp(t)

	w := a.request(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	a.healthy = errors.New("redis down")
	w = a.request(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"cache":"unhealthy"`)

	w = a.request(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "userpages_http_requests_total")

	w = a.request(t, http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func BenchmarkListUsers(b *testing.B) {
	a := setupApp(b)
	for i := 0; i < 100; i++ {
		a.createUser(b, fmt.Sprintf("Person %03d", i), fmt.Sprintf("person-%d@example.com", i), false)
	}
	token := a.signIn(b, "person-0@example.com")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := a.request(b, http.MethodGet, fmt.Sprintf("/users?page=%d", i%4+1), token, nil)
		if w.Code != http.StatusOK {
			b.Fatalf("unexpected status %d", w.Code)
		}
	}
}

func TestRateLimited_KeepsSignedInNav(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	a := setupApp(t, func(d *Deps) {
		// one request per route, refill is negligible over the test's duration
		d.RateLimiter = middleware.NewRateLimiter(client,
			middleware.RateLimiterConfig{RequestsPerSecond: 0.001, BurstCapacity: 1, Enabled: true}, d.Log)
	})
	u := a.createUser(t, "Limited User", "limited@example.com", false)
	token := a.signIn(t, "limited@example.com")

	w := a.request(t, http.MethodGet, "/users", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.request(t, http.MethodGet, "/users", token, nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	resp := decode[view.ErrorResponse](t, w)
	assert.Equal(t, "rate_limit_exceeded", resp.Error)
	assert.True(t, hasLink(resp.Nav, "Sign out", "/signout"))
	assert.True(t, hasLink(resp.Nav, "Profile", view.UserPath(u.ID)))
	assert.False(t, hasLink(resp.Nav, "Sign in", view.PathSignin))
}
