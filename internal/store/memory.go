package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopfront/apiserver/types"
)

// MemoryUserRepository keeps users in process memory. It enforces the same
// email uniqueness as the postgres schema.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]types.User
	byEmail map[string]string
	now     func() time.Time
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:    make(map[string]types.User),
		byEmail: make(map[string]string),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryUserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryUserRepository) List(ctx context.Context) ([]types.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]types.User, 0, len(r.byID))
	for _, user := range r.byID {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return strings.Compare(users[i].ID, users[j].ID) < 0
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (r *MemoryUserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[user.ID]; exists {
		return types.User{}, ErrConflict
	}
	if _, exists := r.byEmail[user.Email]; exists {
		return types.User{}, ErrConflict
	}

	now := r.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.byID[user.ID] = user
	r.byEmail[user.Email] = user.ID
	return user, nil
}

func (r *MemoryUserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[user.ID]
	if !ok {
		return types.User{}, ErrNotFound
	}
	if owner, taken := r.byEmail[user.Email]; taken && owner != user.ID {
		return types.User{}, ErrConflict
	}

	user.CreatedAt = current.CreatedAt
	user.UpdatedAt = r.now()
	delete(r.byEmail, current.Email)
	r.byEmail[user.Email] = user.ID
	r.byID[user.ID] = user
	return user, nil
}

func (r *MemoryUserRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.byEmail, user.Email)
	delete(r.byID, id)
	return nil
}
