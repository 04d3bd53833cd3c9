package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-pages-service/internal/domain/user"
	pkgerrors "user-pages-service/pkg/errors"
	"user-pages-service/pkg/security"
)

// UserRepoPG implements the user Repository with GORM. It runs on PostgreSQL in
// production and on SQLite for local runs and tests.
type UserRepoPG struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

// NewUserRepoPG creates a new instance of UserRepoPG.
func NewUserRepoPG(db *gorm.DB, log *zap.Logger) *UserRepoPG {
	return &UserRepoPG{db: db, log: log}
}

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	Name           string `gorm:"size:50;not null;index"`
	Email          string `gorm:"size:255;not null;uniqueIndex"` // stored lower-cased
	PasswordDigest string `gorm:"not null"`
	IsAdmin        bool   `gorm:"not null;default:false"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

// Migrate creates or updates the users table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&UserSchema{}); err != nil {
		return fmt.Errorf("failed to migrate users table: %w", err)
	}
	return nil
}

func toDomain(m UserSchema) user.User {
	return user.User{
		ID:             m.ID,
		Name:           m.Name,
		Email:          m.Email,
		PasswordDigest: m.PasswordDigest,
		IsAdmin:        m.IsAdmin,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// isDuplicateKey recognises unique violations from both drivers.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// Create inserts a new user into the database.
func (r *UserRepoPG) Create(ctx context.Context, u *user.User) (int64, error) {
	if u == nil {
		return 0, errors.New("user cannot be nil")
	}

	model := UserSchema{
		Name:           u.Name,
		Email:          u.Email,
		PasswordDigest: u.PasswordDigest,
		IsAdmin:        u.IsAdmin,
	}

	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isDuplicateKey(err) {
			r.log.Warn("duplicate email on insert", zap.String("email", u.Email))
			return 0, pkgerrors.NewAlreadyExistsError("user", "email already exists")
		}
		r.log.Error("failed to create user in db", zap.Error(err), zap.String("email", u.Email))
		return 0, fmt.Errorf("failed to create user: %w", err)
	}

	u.ID = model.ID
	u.CreatedAt = model.CreatedAt
	u.UpdatedAt = model.UpdatedAt

	r.log.Info("user created in db", zap.Int64("id", model.ID))
	return model.ID, nil
}

// Update writes name, email, digest and admin flag of an existing user.
func (r *UserRepoPG) Update(ctx context.Context, u *user.User) (int64, error) {
	if u == nil {
		return 0, errors.New("user cannot be nil")
	}

	now := time.Now()
	res := r.db.WithContext(ctx).Model(&UserSchema{ID: u.ID}).Updates(map[string]any{
		"name":            u.Name,
		"email":           u.Email,
		"password_digest": u.PasswordDigest,
		"is_admin":        u.IsAdmin,
		"updated_at":      now,
	})
	if err := res.Error; err != nil {
		if isDuplicateKey(err) {
			r.log.Warn("duplicate email on update", zap.Int64("id", u.ID), zap.String("email", u.Email))
			return 0, pkgerrors.NewAlreadyExistsError("user", "email already exists")
		}
		r.log.Error("failed to update user in db", zap.Error(err), zap.Int64("id", u.ID))
		return 0, fmt.Errorf("failed to update user: %w", err)
	}
	if res.RowsAffected == 0 {
		return 0, pkgerrors.NewNotFoundError("user", fmt.Sprintf("user not found: id=%d", u.ID))
	}

	u.UpdatedAt = now
	r.log.Info("user updated in db", zap.Int64("id", u.ID))
	return u.ID, nil
}

// Delete removes a user from the database by ID.
func (r *UserRepoPG) Delete(ctx context.Context, id int64) (int64, error) {
	if id <= 0 {
		return 0, errors.New("invalid user id")
	}

	res := r.db.WithContext(ctx).Delete(&UserSchema{}, id)
	if err := res.Error; err != nil {
		r.log.Error("failed to delete user in db", zap.Error(err), zap.Int64("id", id))
		return 0, fmt.Errorf("failed to delete user: %w", err)
	}
	if res.RowsAffected == 0 {
		return 0, pkgerrors.NewNotFoundError("user", fmt.Sprintf("user not found: id=%d", id))
	}

	r.log.Info("user deleted in db", zap.Int64("id", id))
	return id, nil
}

// GetByID retrieves a user from the database by their unique ID.
func (r *UserRepoPG) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found", zap.Int64("id", id))
			return nil, pkgerrors.NewNotFoundError("user", fmt.Sprintf("user not found: id=%d", id))
		}
		r.log.Error("failed to get user from db", zap.Error(err), zap.Int64("id", id))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u := toDomain(model)
	return &u, nil
}

// GetByEmail retrieves a user by email address. A miss returns nil, nil.
func (r *UserRepoPG) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).Where("email = ?", user.NormalizeEmail(email)).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found by email", zap.String("email", email))
			return nil, nil
		}
		r.log.Error("failed to get user by email from db", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	u := toDomain(model)
	return &u, nil
}

// filtered applies the optional name/email search.
func (r *UserRepoPG) filtered(ctx context.Context, query string) (*gorm.DB, error) {
	tx := r.db.WithContext(ctx).Model(&UserSchema{})

	query, err := security.ValidateSearchQuery(query)
	if err != nil {
		return nil, fmt.Errorf("invalid search query: %w", err)
	}
	if query == "" {
		return tx, nil
	}

	pattern := "%" + security.EscapeLike(strings.ToLower(query)) + "%"
	return tx.Where(`LOWER(name) LIKE ? ESCAPE '\' OR email LIKE ? ESCAPE '\'`, pattern, pattern), nil
}

// Count returns how many users match query.
func (r *UserRepoPG) Count(ctx context.Context, query string) (int64, error) {
	tx, err := r.filtered(ctx, query)
	if err != nil {
		return 0, err
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		r.log.Error("failed to count users", zap.Error(err))
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return total, nil
}

// orderClause maps an order key to a stable ORDER BY.
func orderClause(key string) string {
	switch key {
	case user.OrderByEmail:
		return "email ASC, id ASC"
	case user.OrderByCreatedAt:
		return "created_at ASC, id ASC"
	case user.OrderByID:
		return "id ASC"
	default:
		return "name ASC, id ASC"
	}
}

// List retrieves one ordered window of users. A negative offset selects nothing.
func (r *UserRepoPG) List(ctx context.Context, opts user.ListOptions) ([]user.User, error) {
	if opts.Offset < 0 {
		return []user.User{}, nil
	}

	tx, err := r.filtered(ctx, opts.Query)
	if err != nil {
		r.log.Warn("rejected search query", zap.String("query", opts.Query), zap.Error(err))
		return nil, err
	}

	tx = tx.Order(orderClause(opts.Order))
	if opts.Limit > 0 {
		tx = tx.Limit(opts.Limit)
		if opts.Offset > 0 {
			tx = tx.Offset(opts.Offset)
		}
	}

	var models []UserSchema
	if err := tx.Find(&models).Error; err != nil {
		r.log.Error("failed to list users from db", zap.Error(err),
			zap.String("query", opts.Query), zap.Int("offset", opts.Offset), zap.Int("limit", opts.Limit))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]user.User, len(models))
	for i, model := range models {
		users[i] = toDomain(model)
	}
	return users, nil
}
