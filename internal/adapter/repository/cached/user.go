package cached

import (
	"context"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"user-pages-service/internal/adapter/cache"
	domain "user-pages-service/internal/domain/user"
	"user-pages-service/internal/usecase/user"
)

// CachedUserRepository puts a user cache in front of another user.Repository.
// Profile lookups by id are served cache-aside; every write goes to the store
// first and then evicts or refreshes the cached copy. A nil cache turns the
// repository into a plain pass-through.
type CachedUserRepository struct {
	store user.Repository
	cache cache.UserCache
	log   *zap.Logger
	loads singleflight.Group
}

// NewCachedUserRepository creates a new instance of CachedUserRepository.
func NewCachedUserRepository(store user.Repository, cache cache.UserCache, log *zap.Logger) user.Repository {
	return &CachedUserRepository{
		store: store,
		cache: cache,
		log:   log,
	}
}

// cached returns the cached copy of a user, or nil on a miss or a cache failure.
func (r *CachedUserRepository) cached(ctx context.Context, id int64) *domain.User {
	if r.cache == nil {
		return nil
	}
	u, err := r.cache.Get(ctx, id)
	if err != nil {
		r.log.Warn("user cache unavailable, reading from store", zap.Int64("id", id), zap.Error(err))
		return nil
	}
	return u
}

func (r *CachedUserRepository) remember(ctx context.Context, u *domain.User) {
	if r.cache == nil || u == nil {
		return
	}
	if err := r.cache.Set(ctx, u); err != nil {
		r.log.Warn("failed to cache user", zap.Int64("id", u.ID), zap.Error(err))
	}
}

func (r *CachedUserRepository) forget(ctx context.Context, id int64, after string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, id); err != nil {
		r.log.Warn("failed to evict cached user", zap.String("after", after), zap.Int64("id", id), zap.Error(err))
	}
}

// Create stores the new user and primes the cache with it, since a fresh
// signup is shown its own profile right away.
func (r *CachedUserRepository) Create(ctx context.Context, u *domain.User) (int64, error) {
	id, err := r.store.Create(ctx, u)
	if err != nil {
		return 0, err
	}
	r.remember(ctx, u)
	return id, nil
}

// GetByID serves from the cache when it can. Concurrent misses for one id
// share a single store read.
func (r *CachedUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if u := r.cached(ctx, id); u != nil {
		r.log.Debug("user cache hit", zap.Int64("id", id))
		return u, nil
	}

	v, err, shared := r.loads.Do(strconv.FormatInt(id, 10), func() (any, error) {
		// a load that finished while we queued may have filled the cache
		if u := r.cached(ctx, id); u != nil {
			return u, nil
		}
		u, err := r.store.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		r.remember(ctx, u)
		return u, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		r.log.Debug("user load shared between callers", zap.Int64("id", id))
	}

	loaded, _ := v.(*domain.User)
	if loaded == nil {
		return nil, nil
	}
	// callers of a shared load each get their own copy
	u := *loaded
	return &u, nil
}

// GetByEmail always reads the store. Sign-in needs the current digest,
// which the cache may hold stale for up to one TTL after an edit on another node.
func (r *CachedUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.store.GetByEmail(ctx, email)
}

// Update writes through and evicts the cached copy.
func (r *CachedUserRepository) Update(ctx context.Context, u *domain.User) (int64, error) {
	id, err := r.store.Update(ctx, u)
	if err != nil {
		return 0, err
	}
	r.forget(ctx, u.ID, "update")
	return id, nil
}

// Delete removes the user from the store and the cache.
func (r *CachedUserRepository) Delete(ctx context.Context, id int64) (int64, error) {
	deleted, err := r.store.Delete(ctx, id)
	if err != nil {
		return 0, err
	}
	r.forget(ctx, id, "delete")
	return deleted, nil
}

// Count reads the store.
func (r *CachedUserRepository) Count(ctx context.Context, query string) (int64, error) {
	return r.store.Count(ctx, query)
}

// List reads the store. Index pages change with every signup,
// so only single users are cached.
func (r *CachedUserRepository) List(ctx context.Context, opts domain.ListOptions) ([]domain.User, error) {
	return r.store.List(ctx, opts)
}
