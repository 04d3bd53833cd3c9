package user

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	domain "user-pages-service/internal/domain/user"
	pkgerrors "user-pages-service/pkg/errors"
	"user-pages-service/pkg/security"
)

// Field name used for index search failures.
const FieldSearch = "Search"

// Config holds the tunables of the user usecase.
type Config struct {
	PerPage int // PerPage is the index page size; <= 0 means domain.DefaultPerPage
}

// Usecase implements the business logic for user management operations.
// It provides a clean separation between the transport layer and data layer.
type Usecase struct {
	repo    Repository     // Repository for data access
	hasher  PasswordHasher // Hasher for password digests
	log     *zap.Logger    // Logger for structured logging
	form    *formValidator // Validator for signup and edit forms
	perPage int

	// mu serializes mutations so the email uniqueness check and the write
	// that follows it are atomic within this process.
	mu sync.Mutex
}

var _ UserUsecase = (*Usecase)(nil)

// New creates a new instance of Usecase with the provided repository, hasher and logger.
func New(r Repository, h PasswordHasher, log *zap.Logger, cfg Config) *Usecase {
	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = domain.DefaultPerPage
	}
	return &Usecase{
		repo:    r,
		hasher:  h,
		log:     log,
		form:    newFormValidator(),
		perPage: perPage,
	}
}

// checkEmailTaken records "has already been taken" when another user holds email.
// selfID is excluded so an unchanged email on edit is accepted.
func (uc *Usecase) checkEmailTaken(ctx context.Context, ve *pkgerrors.ValidationError, email string, selfID int64) error {
	if email == "" || len(ve.On(FieldEmail)) > 0 {
		return nil
	}

	existing, err := uc.repo.GetByEmail(ctx, email)
	if err != nil {
		uc.log.Error("failed to check existing email", zap.String("email", email), zap.Error(err))
		return pkgerrors.NewInternalError("failed to validate email uniqueness", err)
	}
	if existing != nil && existing.ID != selfID {
		uc.log.Warn("email already exists", zap.String("email", email), zap.Int64("existing_id", existing.ID))
		ve.Add(FieldEmail, msgTaken)
	}
	return nil
}

// takenOnWrite turns a unique-index violation that slipped past the check into the form error.
func takenOnWrite(err error) error {
	var exists *pkgerrors.AlreadyExistsError
	if errors.As(err, &exists) {
		return pkgerrors.NewValidationError(FieldEmail, msgTaken)
	}
	return err
}

// CreateUser validates the signup form, hashes the password and stores the new user.
// On any failed rule nothing is persisted and every message is returned.
func (uc *Usecase) CreateUser(ctx context.Context, in CreateUserRequest) (*domain.User, error) {
	p := normalizeProfile(in.Name, in.Email, in.Password, in.PasswordConfirmation)
	uc.log.Info("creating user", zap.String("name", p.Name), zap.String("email", p.Email))

	uc.mu.Lock()
	defer uc.mu.Unlock()

	ve := uc.form.check(p)
	if err := uc.checkEmailTaken(ctx, ve, p.Email, 0); err != nil {
		return nil, err
	}
	if ve.HasErrors() {
		uc.log.Warn("validate failed", zap.Strings("errors", ve.FullMessages()))
		return nil, ve
	}

	digest, err := uc.hasher.Hash(p.Password)
	if err != nil {
		uc.log.Error("failed to hash password", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to create user", err)
	}

	u := &domain.User{
		Name:           p.Name,
		Email:          p.Email,
		PasswordDigest: digest,
	}
	if _, err := uc.repo.Create(ctx, u); err != nil {
		uc.log.Error("failed to create user", zap.Error(err))
		return nil, takenOnWrite(err)
	}

	uc.log.Info("user created", zap.Int64("id", u.ID))
	return u, nil
}

// UpdateUser re-validates the edit form and applies it to an existing user.
// A password equal to the current one keeps the stored digest.
func (uc *Usecase) UpdateUser(ctx context.Context, in UpdateUserRequest) (*domain.User, error) {
	p := normalizeProfile(in.Name, in.Email, in.Password, in.PasswordConfirmation)
	uc.log.Info("updating user", zap.Int64("id", in.ID), zap.String("name", p.Name), zap.String("email", p.Email))

	uc.mu.Lock()
	defer uc.mu.Unlock()

	current, err := uc.GetUser(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	ve := uc.form.check(p)
	if err := uc.checkEmailTaken(ctx, ve, p.Email, current.ID); err != nil {
		return nil, err
	}
	if ve.HasErrors() {
		uc.log.Warn("validate failed", zap.Int64("id", in.ID), zap.Strings("errors", ve.FullMessages()))
		return nil, ve
	}

	digest := current.PasswordDigest
	same, err := uc.hasher.Matches(current.PasswordDigest, p.Password)
	if err != nil {
		uc.log.Warn("stored digest unreadable, re-hashing", zap.Int64("id", in.ID), zap.Error(err))
	}
	if !same {
		if digest, err = uc.hasher.Hash(p.Password); err != nil {
			uc.log.Error("failed to hash password", zap.Error(err))
			return nil, pkgerrors.NewInternalError("failed to update user", err)
		}
	}

	updated := *current
	updated.Name = p.Name
	updated.Email = p.Email
	updated.PasswordDigest = digest

	if _, err := uc.repo.Update(ctx, &updated); err != nil {
		uc.log.Error("failed to update user", zap.Int64("id", in.ID), zap.Error(err))
		return nil, takenOnWrite(err)
	}

	return &updated, nil
}

// DeleteUser removes the user with id on behalf of actor.
// Only admins may delete, and never their own account.
func (uc *Usecase) DeleteUser(ctx context.Context, actor *domain.User, id int64) error {
	if actor == nil {
		return pkgerrors.ErrUnauthorized
	}
	uc.log.Info("deleting user", zap.Int64("id", id), zap.Int64("actor_id", actor.ID))

	if !actor.IsAdmin {
		uc.log.Warn("delete refused", zap.Int64("id", id), zap.Int64("actor_id", actor.ID), zap.String("reason", "not an admin"))
		return pkgerrors.NewPermissionDeniedError("Only admins can delete users.")
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	target, err := uc.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if !domain.CanDelete(actor, target) {
		uc.log.Warn("delete refused", zap.Int64("id", id), zap.Int64("actor_id", actor.ID), zap.String("reason", "self"))
		return pkgerrors.NewPermissionDeniedError("Admins cannot delete themselves.")
	}

	if _, err := uc.repo.Delete(ctx, id); err != nil {
		uc.log.Error("failed to delete user", zap.Int64("id", id), zap.Error(err))
		return err
	}
	return nil
}

// GetUser retrieves a user by ID.
func (uc *Usecase) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	if id <= 0 {
		uc.log.Warn("get user validation failed", zap.Int64("id", id), zap.String("reason", "invalid id"))
		return nil, pkgerrors.NewNotFoundError("user", fmt.Sprintf("user not found: id=%d", id))
	}

	u, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		var nf *pkgerrors.NotFoundError
		if !errors.As(err, &nf) {
			uc.log.Error("failed to get user", zap.Int64("id", id), zap.Error(err))
		}
		return nil, err
	}
	return u, nil
}

// FindByEmail retrieves a user by email address, case-insensitively.
func (uc *Usecase) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := uc.repo.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		uc.log.Error("failed to find user by email", zap.String("email", email), zap.Error(err))
		return nil, err
	}
	if u == nil {
		return nil, pkgerrors.NewNotFoundError("user", "user not found: email="+domain.NormalizeEmail(email))
	}
	return u, nil
}

// CountUsers returns the number of stored users.
func (uc *Usecase) CountUsers(ctx context.Context) (int64, error) {
	return uc.repo.Count(ctx, "")
}

// ListUsers returns one page of the ordered, optionally filtered user listing.
// Pages past the end are empty rather than an error.
func (uc *Usecase) ListUsers(ctx context.Context, in ListUsersRequest) (domain.Page, error) {
	size := in.PerPage
	if size <= 0 {
		size = uc.perPage
	}
	number := max(in.Page, 1)

	order := in.Order
	if !domain.ValidOrder(order) {
		if order != "" {
			uc.log.Warn("unknown order key, using name", zap.String("order", order))
		}
		order = domain.OrderByName
	}

	query, err := security.ValidateSearchQuery(in.Query)
	if err != nil {
		uc.log.Warn("invalid search query in usecase", zap.String("query", in.Query), zap.Error(err))
		return domain.Page{}, searchError(err)
	}

	uc.log.Info("listing users", zap.String("query", query), zap.String("order", order),
		zap.Int("page", number), zap.Int("per_page", size))

	total, err := uc.repo.Count(ctx, query)
	if err != nil {
		uc.log.Error("failed to count users", zap.String("query", query), zap.Error(err))
		return domain.Page{}, err
	}

	offset := domain.Offset(number, size)
	if int64(offset) >= total {
		return domain.NewPage(nil, number, size, total), nil
	}

	users, err := uc.repo.List(ctx, domain.ListOptions{
		Query:  query,
		Order:  order,
		Offset: offset,
		Limit:  size,
	})
	if err != nil {
		uc.log.Error("failed to list users", zap.String("query", query), zap.Int("page", number), zap.Error(err))
		return domain.Page{}, err
	}

	return domain.NewPage(users, number, size, total), nil
}

func searchError(err error) *pkgerrors.ValidationError {
	if errors.Is(err, security.ErrSearchQueryTooLong) {
		return pkgerrors.NewValidationError(FieldSearch, fmt.Sprintf("is too long (maximum is %d characters)", security.MaxSearchQueryLength))
	}
	return pkgerrors.NewValidationError(FieldSearch, "contains invalid characters")
}
