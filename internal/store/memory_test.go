package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopfront/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCreateAndGet(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, types.User{ID: "u-1", Name: "Jane", Email: "jane@example.com"})
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())

	byID, err := repo.GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, created, byID)

	byEmail, err := repo.GetByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, created, byEmail)

	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryEmailUnique(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, types.User{ID: "u-1", Email: "jane@example.com"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, types.User{ID: "u-2", Email: "jane@example.com"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = repo.Create(ctx, types.User{ID: "u-2", Email: "john@example.com"})
	require.NoError(t, err)
	_, err = repo.Update(ctx, types.User{ID: "u-2", Email: "jane@example.com"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestMemoryUpdateMovesEmailIndex(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, types.User{ID: "u-1", Name: "Jane", Email: "old@example.com"})
	require.NoError(t, err)

	updated, err := repo.Update(ctx, types.User{ID: "u-1", Name: "Jane", Email: "new@example.com"})
	require.NoError(t, err)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	_, err = repo.GetByEmail(ctx, "old@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := repo.GetByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)

	_, err = repo.Update(ctx, types.User{ID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryDelete(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	_, err := repo.Create(ctx, types.User{ID: "u-1", Email: "jane@example.com"})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "u-1"))
	assert.ErrorIs(t, repo.Delete(ctx, "u-1"), ErrNotFound)

	_, err = repo.GetByID(ctx, "u-1")
	assert.ErrorIs(t, err, ErrNotFound)

	// the email is free again
	_, err = repo.Create(ctx, types.User{ID: "u-2", Email: "jane@example.com"})
	assert.NoError(t, err)
}

func TestMemoryListOrder(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	for _, id := range []string{"c", "a", "b"} {
		_, err := repo.Create(ctx, types.User{ID: id, Email: id + "@example.com"})
		require.NoError(t, err)
	}

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{users[0].ID, users[1].ID, users[2].ID})
}

func TestMemoryConcurrentRegistrationSameEmail(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Create(ctx, types.User{ID: string(rune('a' + i)), Email: "race@example.com"})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrConflict)
		}
	}
	assert.Equal(t, 1, succeeded)
}
