package session

import (
	"context"

	domain "user-pages-service/internal/domain/session"
	"user-pages-service/internal/domain/user"
)

// Store persists sessions by token. Get returns nil, nil for an unknown token.
type Store interface {
	Create(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, token string) (*domain.Session, error)
	Delete(ctx context.Context, token string) error
}

// UserFinder resolves the user behind a session or a sign-in form.
type UserFinder interface {
	GetUser(ctx context.Context, id int64) (*user.User, error)
	FindByEmail(ctx context.Context, email string) (*user.User, error)
}

// PasswordMatcher checks a plaintext password against a stored digest.
type PasswordMatcher interface {
	Matches(digest, plain string) (bool, error)
}

// SessionManager defines the sign-in state operations used by the transport layer.
type SessionManager interface {
	SignIn(ctx context.Context, u *user.User) (*domain.Session, error)
	Authenticate(ctx context.Context, email, password string) (*domain.Session, *user.User, error)
	SignOut(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, token string) (*user.User, error)
}
