package postgres

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"user-pages-service/internal/domain/user"
	pkgerrors "user-pages-service/pkg/errors"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)

	// every pooled connection would get its own :memory: database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(db))
	return db
}

func setupRepo(t *testing.T) *UserRepoPG {
	return NewUserRepoPG(setupTestDB(t), zaptest.NewLogger(t))
}

func seed(t *testing.T, repo *UserRepoPG, users ...user.User) []user.User {
	out := make([]user.User, 0, len(users))
	for _, u := range users {
		u := u
		if u.PasswordDigest == "" {
			u.PasswordDigest = "digest"
		}
		_, err := repo.Create(context.Background(), &u)
		require.NoError(t, err)
		out = append(out, u)
	}
	return out
}

func TestUserRepoPG_CreateAndGet(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	u := &user.User{Name: "Example User", Email: "user@example.com", PasswordDigest: "digest"}
	id, err := repo.Create(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Example User", got.Name)
	assert.Equal(t, "digest", got.PasswordDigest)
	assert.False(t, got.IsAdmin)

	byEmail, err := repo.GetByEmail(ctx, "USER@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, id, byEmail.ID)
}

func TestUserRepoPG_GetMisses(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, 99)
	var nf *pkgerrors.NotFoundError
	require.ErrorAs(t, err, &nf)

	u, err := repo.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestUserRepoPG_CreateDuplicateEmail(t *testing.T) {
	repo := setupRepo(t)
	seed(t, repo, user.User{Name: "First", Email: "dup@example.com"})

	_, err := repo.Create(context.Background(), &user.User{Name: "Second", Email: "dup@example.com", PasswordDigest: "x"})
	var exists *pkgerrors.AlreadyExistsError
	require.ErrorAs(t, err, &exists)

	count, err := repo.Count(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUserRepoPG_Update(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	users := seed(t, repo,
		user.User{Name: "Old Name", Email: "old@example.com"},
		user.User{Name: "Other", Email: "other@example.com"},
	)

	u := users[0]
	u.Name = "New Name"
	u.Email = "new@example.com"
	_, err := repo.Update(ctx, &u)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Name", got.Name)
	assert.Equal(t, "new@example.com", got.Email)

	u.Email = "other@example.com"
	_, err = repo.Update(ctx, &u)
	var exists *pkgerrors.AlreadyExistsError
	assert.ErrorAs(t, err, &exists)

	_, err = repo.Update(ctx, &user.User{ID: 404, Name: "x", Email: "x@example.com"})
	var nf *pkgerrors.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestUserRepoPG_Delete(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	users := seed(t, repo, user.User{Name: "Gone", Email: "gone@example.com"})

	_, err := repo.Delete(ctx, users[0].ID)
	require.NoError(t, err)

	count, err := repo.Count(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = repo.Delete(ctx, users[0].ID)
	var nf *pkgerrors.NotFoundError
	assert.ErrorAs(t, err, &nf)

	_, err = repo.Delete(ctx, 0)
	assert.Error(t, err)
}

func TestUserRepoPG_List_OrderedAndStable(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	seed(t, repo,
		user.User{Name: "Carol", Email: "carol@example.com"},
		user.User{Name: "alice", Email: "alice2@example.com"},
		user.User{Name: "Bob", Email: "bob@example.com"},
		user.User{Name: "Bob", Email: "bob2@example.com"},
	)

	users, err := repo.List(ctx, user.ListOptions{Order: user.OrderByName, Limit: 10})
	require.NoError(t, err)
	require.Len(t, users, 4)

	names := []string{users[0].Name, users[1].Name, users[2].Name, users[3].Name}
	assert.Equal(t, []string{"Bob", "Bob", "Carol", "alice"}, names)
	assert.Less(t, users[0].ID, users[1].ID, "ties are broken by id")

	byID, err := repo.List(ctx, user.ListOptions{Order: user.OrderByID, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, "Carol", byID[0].Name)
}

func TestUserRepoPG_List_Windows(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	for i := 1; i <= 31; i++ {
		seed(t, repo, user.User{Name: fmt.Sprintf("Person %02d", i), Email: fmt.Sprintf("person-%d@example.com", i)})
	}

	first, err := repo.List(ctx, user.ListOptions{Limit: 30})
	require.NoError(t, err)
	second, err := repo.List(ctx, user.ListOptions{Offset: 30, Limit: 30})
	require.NoError(t, err)
	beyond, err := repo.List(ctx, user.ListOptions{Offset: 60, Limit: 30})
	require.NoError(t, err)
	negative, err := repo.List(ctx, user.ListOptions{Offset: -30, Limit: 30})
	require.NoError(t, err)
	farOut, err := repo.List(ctx, user.ListOptions{Offset: math.MaxInt, Limit: 30})
	require.NoError(t, err)

	require.Len(t, first, 30)
	require.Len(t, second, 1)
	assert.Empty(t, beyond)
	assert.Empty(t, negative)
	assert.Empty(t, farOut)
	assert.Equal(t, "Person 31", second[0].Name)
	for _, u := range first {
		assert.NotEqual(t, second[0].ID, u.ID)
	}
}

func TestUserRepoPG_List_Search(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	seed(t, repo,
		user.User{Name: "John%Test", Email: "john@example.com"},
		user.User{Name: "Jane_Test", Email: "jane@example.com"},
		user.User{Name: "ADMIN User", Email: "root@example.org"},
	)

	tests := []struct {
		name        string
		query       string
		expectCount int
		expectError bool
	}{
		{name: "empty query lists everyone", query: "", expectCount: 3},
		{name: "case-insensitive name", query: "admin", expectCount: 1},
		{name: "email domain", query: "example.com", expectCount: 2},
		{name: "percent is literal", query: "john%", expectCount: 1},
		{name: "underscore is literal", query: "e_T", expectCount: 1},
		{name: "no match", query: "zed", expectCount: 0},
		{name: "rejected characters", query: "john; DROP TABLE users", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, err := repo.List(ctx, user.ListOptions{Query: tt.query, Limit: 10})
			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid search query")
				return
			}
			require.NoError(t, err)
			assert.Len(t, users, tt.expectCount)

			count, err := repo.Count(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, int64(tt.expectCount), count)
		})
	}
}
