package user

import (
	"context"

	domain "user-pages-service/internal/domain/user"
)

// Repository defines the interface for user data access operations.
// It abstracts the data layer, allowing different implementations
// (e.g., PostgreSQL, SQLite, a cache-aside decorator) to be used interchangeably.
type Repository interface {
	Create(ctx context.Context, u *domain.User) (int64, error)                // Create a new user
	GetByID(ctx context.Context, id int64) (*domain.User, error)              // Retrieve user by ID
	GetByEmail(ctx context.Context, email string) (*domain.User, error)       // Retrieve user by email, nil when absent
	Update(ctx context.Context, u *domain.User) (int64, error)                // Update existing user
	Delete(ctx context.Context, id int64) (int64, error)                      // Delete user by ID
	Count(ctx context.Context, query string) (int64, error)                   // Count users matching query
	List(ctx context.Context, opts domain.ListOptions) ([]domain.User, error) // List one ordered window
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Matches(digest, plain string) (bool, error)
}

// UserUsecase defines the interface for user business logic operations.
type UserUsecase interface {
	CreateUser(ctx context.Context, in CreateUserRequest) (*domain.User, error)
	UpdateUser(ctx context.Context, in UpdateUserRequest) (*domain.User, error)
	DeleteUser(ctx context.Context, actor *domain.User, id int64) error
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	CountUsers(ctx context.Context) (int64, error)
	ListUsers(ctx context.Context, in ListUsersRequest) (domain.Page, error)
}
