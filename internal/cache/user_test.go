package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopfront/apiserver/config"
	"github.com/shopfront/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestUserCacheFailuresAreMisses(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c := NewUserCache(unreachableClient(t), time.Minute, zap.New(core))
	ctx := context.Background()

	c.Set(ctx, types.User{ID: "u-1", Email: "jane@example.com"})
	_, ok := c.Get(ctx, "u-1")
	c.Delete(ctx, "u-1")

	assert.False(t, ok)
	assert.Equal(t, 1, logs.FilterMessage("user cache write failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("user cache read failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("user cache delete failed").Len())
}

func TestUserKey(t *testing.T) {
	assert.Equal(t, "user:abc", userKey("abc"))
}

func TestNewClientFailsWhenUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewClient(ctx, config.RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

// memoryRedis implements the redis commands the user cache issues.
type memoryRedis struct {
	redis.Cmdable
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (m *memoryRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	value, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(value), nil)
}

func (m *memoryRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		m.data[key] = append([]byte(nil), v...)
	case string:
		m.data[key] = []byte(v)
	default:
		return redis.NewStatusResult("", fmt.Errorf("unsupported value %T", value))
	}
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *memoryRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, key := range keys {
		if _, ok := m.data[key]; ok {
			delete(m.data, key)
			delete(m.ttls, key)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestUserCacheRoundTrip(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	client := newMemoryRedis()
	c := NewUserCache(client, 5*time.Minute, zap.New(core))
	ctx := context.Background()

	user := types.User{
		ID:           "5f0c6a8e-1d2b-4c3d-9e8f-0a1b2c3d4e5f",
		Name:         "Jane",
		Email:        "jane@example.com",
		PasswordHash: "$2a$04$abcdefghijklmnopqrstuv",
		IsAdmin:      true,
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt:    time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC),
	}

	_, ok := c.Get(ctx, user.ID)
	assert.False(t, ok)

	c.Set(ctx, user)
	assert.Equal(t, 5*time.Minute, client.ttls[userKey(user.ID)])

	got, ok := c.Get(ctx, user.ID)
	require.True(t, ok)
	assert.Equal(t, user.PasswordHash, got.PasswordHash)
	assert.True(t, got.IsAdmin)
	assert.True(t, user.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, user.UpdatedAt.Equal(got.UpdatedAt))
	assert.Equal(t, user.Name, got.Name)
	assert.Equal(t, user.Email, got.Email)

	c.Delete(ctx, user.ID)
	_, ok = c.Get(ctx, user.ID)
	assert.False(t, ok)
	assert.Empty(t, client.data)
	assert.Zero(t, logs.Len())
}

func TestUserCacheCorruptEntryIsMiss(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	client := newMemoryRedis()
	client.data[userKey("u-1")] = []byte("{not json")
	c := NewUserCache(client, time.Minute, zap.New(core))

	_, ok := c.Get(context.Background(), "u-1")
	assert.False(t, ok)
	assert.Equal(t, 1, logs.FilterMessage("user cache decode failed").Len())
}
