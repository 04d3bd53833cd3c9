package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "user-pages-service/internal/domain/session"
	"user-pages-service/internal/domain/user"
	pkgerrors "user-pages-service/pkg/errors"
)

// DefaultTTL is used when no session lifetime is configured.
const DefaultTTL = 24 * time.Hour

// MsgInvalidCredentials is returned for any failed sign-in, whatever the cause.
const MsgInvalidCredentials = "Invalid email/password combination"

// Config holds session lifetime settings.
type Config struct {
	TTL time.Duration
}

// Manager tracks which user, if any, is signed in for a session token.
type Manager struct {
	store  Store
	users  UserFinder
	hasher PasswordMatcher
	ttl    time.Duration
	log    *zap.Logger
	now    func() time.Time
}

var _ SessionManager = (*Manager)(nil)

// NewManager creates a session manager.
func NewManager(store Store, users UserFinder, hasher PasswordMatcher, log *zap.Logger, cfg Config) *Manager {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		store:  store,
		users:  users,
		hasher: hasher,
		ttl:    ttl,
		log:    log,
		now:    time.Now,
	}
}

// SignIn opens a new session for u.
func (m *Manager) SignIn(ctx context.Context, u *user.User) (*domain.Session, error) {
	if u == nil || u.ID <= 0 {
		return nil, errors.New("cannot sign in without a stored user")
	}

	now := m.now()
	s := &domain.Session{
		Token:     uuid.NewString(),
		UserID:    u.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Create(ctx, s); err != nil {
		m.log.Error("failed to store session", zap.Int64("user_id", u.ID), zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to sign in", err)
	}

	m.log.Info("user signed in", zap.Int64("user_id", u.ID), zap.Time("expires_at", s.ExpiresAt))
	return s, nil
}

// Authenticate checks an email/password pair and signs the user in.
// Unknown emails and wrong passwords fail the same way.
func (m *Manager) Authenticate(ctx context.Context, email, password string) (*domain.Session, *user.User, error) {
	u, err := m.users.FindByEmail(ctx, email)
	if err != nil {
		var nf *pkgerrors.NotFoundError
		if errors.As(err, &nf) {
			m.log.Warn("sign in failed", zap.String("email", email), zap.String("reason", "unknown email"))
			return nil, nil, pkgerrors.NewUnauthorizedError(MsgInvalidCredentials)
		}
		return nil, nil, err
	}

	ok, err := m.hasher.Matches(u.PasswordDigest, password)
	if err != nil {
		m.log.Error("failed to compare password", zap.Int64("user_id", u.ID), zap.Error(err))
	}
	if !ok {
		m.log.Warn("sign in failed", zap.Int64("user_id", u.ID), zap.String("reason", "wrong password"))
		return nil, nil, pkgerrors.NewUnauthorizedError(MsgInvalidCredentials)
	}

	s, err := m.SignIn(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	return s, u, nil
}

// SignOut ends the session. Unknown tokens are ignored.
func (m *Manager) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.store.Delete(ctx, token); err != nil {
		m.log.Error("failed to delete session", zap.Error(err))
		return pkgerrors.NewInternalError("failed to sign out", err)
	}
	return nil
}

// CurrentUser returns the signed-in user for token, or nil when the session
// is missing, expired or points at a deleted user.
func (m *Manager) CurrentUser(ctx context.Context, token string) (*user.User, error) {
	if token == "" {
		return nil, nil
	}

	s, err := m.store.Get(ctx, token)
	if err != nil {
		m.log.Error("failed to load session", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to load session", err)
	}
	if s == nil {
		return nil, nil
	}
	if s.Expired(m.now()) {
		m.log.Debug("session expired", zap.Int64("user_id", s.UserID))
		_ = m.store.Delete(ctx, token)
		return nil, nil
	}

	u, err := m.users.GetUser(ctx, s.UserID)
	if err != nil {
		var nf *pkgerrors.NotFoundError
		if errors.As(err, &nf) {
			m.log.Info("session user no longer exists", zap.Int64("user_id", s.UserID))
			_ = m.store.Delete(ctx, token)
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}
