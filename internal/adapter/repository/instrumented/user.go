package instrumented

import (
	"context"

	domain "user-pages-service/internal/domain/user"
	"user-pages-service/internal/observability"
	"user-pages-service/internal/usecase/user"
)

// UserRepository records latency and error class of every repository call.
type UserRepository struct {
	next user.Repository
	prom *observability.Prom
}

// NewUserRepository wraps next with DB-op metrics.
func NewUserRepository(next user.Repository, prom *observability.Prom) user.Repository {
	return &UserRepository{next: next, prom: prom}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) (id int64, err error) {
	err = r.prom.ObserveDB("users.create", func() error {
		id, err = r.next.Create(ctx, u)
		return err
	})
	return id, err
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (u *domain.User, err error) {
	err = r.prom.ObserveDB("users.get_by_id", func() error {
		u, err = r.next.GetByID(ctx, id)
		return err
	})
	return u, err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (u *domain.User, err error) {
	err = r.prom.ObserveDB("users.get_by_email", func() error {
		u, err = r.next.GetByEmail(ctx, email)
		return err
	})
	return u, err
}

func (r *UserRepository) Update(ctx context.Context, u *domain.User) (id int64, err error) {
	err = r.prom.ObserveDB("users.update", func() error {
		id, err = r.next.Update(ctx, u)
		return err
	})
	return id, err
}

func (r *UserRepository) Delete(ctx context.Context, id int64) (deleted int64, err error) {
	err = r.prom.ObserveDB("users.delete", func() error {
		deleted, err = r.next.Delete(ctx, id)
		return err
	})
	return deleted, err
}

func (r *UserRepository) Count(ctx context.Context, query string) (n int64, err error) {
	err = r.prom.ObserveDB("users.count", func() error {
		n, err = r.next.Count(ctx, query)
		return err
	})
	return n, err
}

func (r *UserRepository) List(ctx context.Context, opts domain.ListOptions) (users []domain.User, err error) {
	err = r.prom.ObserveDB("users.list", func() error {
		users, err = r.next.List(ctx, opts)
		return err
	})
	return users, err
}
