package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopfront/apiserver/types"
	"go.uber.org/zap"
)

const userKeyPrefix = "user:"

// UserCache stores user records as JSON in redis, keyed by user id.
// Cache failures are logged and treated as misses.
type UserCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

func NewUserCache(client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *UserCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserCache{client: client, ttl: ttl, logger: logger}
}

// cachedUser mirrors types.User but keeps the password hash, which the
// public JSON form drops.
type cachedUser struct {
	types.User
	PasswordHash string `json:"passwordHash"`
}

func userKey(id string) string {
	return userKeyPrefix + id
}

func (c *UserCache) Get(ctx context.Context, id string) (types.User, bool) {
	data, err := c.client.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("user cache read failed", zap.String("user_id", id), zap.Error(err))
		}
		return types.User{}, false
	}
	var cached cachedUser
	if err := json.Unmarshal(data, &cached); err != nil {
		c.logger.Warn("user cache decode failed", zap.String("user_id", id), zap.Error(err))
		return types.User{}, false
	}
	user := cached.User
	user.PasswordHash = cached.PasswordHash
	return user, true
}

func (c *UserCache) Set(ctx context.Context, user types.User) {
	data, err := json.Marshal(cachedUser{User: user, PasswordHash: user.PasswordHash})
	if err != nil {
		c.logger.Warn("user cache encode failed", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, userKey(user.ID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("user cache write failed", zap.String("user_id", user.ID), zap.Error(err))
	}
}

func (c *UserCache) Delete(ctx context.Context, id string) {
	if err := c.client.Del(ctx, userKey(id)).Err(); err != nil {
		c.logger.Warn("user cache delete failed", zap.String("user_id", id), zap.Error(err))
	}
}
