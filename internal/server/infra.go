package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/shopfront/apiserver/config"
	"github.com/shopfront/apiserver/internal/cache"
	"github.com/shopfront/apiserver/internal/db"
	"github.com/shopfront/apiserver/internal/mq"
	"github.com/shopfront/apiserver/internal/services"
	"github.com/shopfront/apiserver/internal/storage"
	"github.com/shopfront/apiserver/internal/store"
	"go.uber.org/zap"
)

// infra holds the external connections the server owns.
type infra struct {
	closers []io.Closer
}

// Close releases connections in reverse order of opening and returns the
// first error.
func (i *infra) Close() error {
	var first error
	for j := len(i.closers) - 1; j >= 0; j-- {
		if err := i.closers[j].Close(); err != nil && first == nil {
			first = err
		}
	}
	i.closers = nil
	return first
}

// OpenRepository connects the user store selected by cfg.StoreBackend. The
// returned *sql.DB is nil for the memory backend.
func OpenRepository(ctx context.Context, cfg config.Config) (services.UserRepository, *sql.DB, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendMemory:
		return store.NewMemoryUserRepository(), nil, nil
	case config.StoreBackendPostgres, "":
		dbConn, err := db.Open(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		return store.NewUserRepository(dbConn), dbConn, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// OpenEvents connects the configured broker. It returns nil when events are
// disabled.
func OpenEvents(ctx context.Context, cfg config.MQConfig) (*mq.AccountEvents, *mq.MQ, error) {
	backend, err := mq.NewBackend(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open mq: %w", err)
	}
	if backend == nil {
		return nil, nil, nil
	}
	queue := mq.New(backend)
	return mq.NewAccountEvents(queue, cfg.Channel), queue, nil
}

// OpenArchive connects the configured object store and makes sure its bucket
// exists. It returns nil when archiving is disabled.
func OpenArchive(ctx context.Context, cfg config.StorageConfig) (*storage.UserArchive, error) {
	backend, err := storage.NewBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if backend == nil {
		return nil, nil
	}
	if err := backend.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", backend.Bucket(), err)
	}
	return storage.NewUserArchive(backend, cfg.ArchivePrefix), nil
}

// NewUserService wires the account service and every optional dependency
// enabled in cfg. The returned closer releases the connections it opened.
func NewUserService(ctx context.Context, cfg config.Config, tokens services.TokenIssuer, logger *zap.Logger) (*services.UserService, io.Closer, error) {
	res := &infra{}

	repo, dbConn, err := OpenRepository(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if dbConn != nil {
		res.closers = append(res.closers, dbConn)
	}
	logger.Info("user store ready", zap.String("backend", cfg.StoreBackend))

	opts := []services.UserServiceOption{
		services.WithLogger(logger.Named("users")),
		services.WithPasswordCost(cfg.Auth.PasswordCost),
	}

	if cfg.Redis.Addr != "" {
		client, err := cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			_ = res.Close()
			return nil, nil, fmt.Errorf("open redis: %w", err)
		}
		res.closers = append(res.closers, client)
		opts = append(opts, services.WithCache(cache.NewUserCache(client, cfg.Redis.TTL, logger.Named("cache"))))
		logger.Info("user cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	events, queue, err := OpenEvents(ctx, cfg.MQ)
	if err != nil {
		_ = res.Close()
		return nil, nil, err
	}
	if events != nil {
		res.closers = append(res.closers, queue)
		opts = append(opts, services.WithEvents(events))
		logger.Info("account events enabled",
			zap.String("backend", cfg.MQ.Backend),
			zap.String("channel", cfg.MQ.Channel))
	}

	archive, err := OpenArchive(ctx, cfg.Storage)
	if err != nil {
		_ = res.Close()
		return nil, nil, err
	}
	if archive != nil {
		opts = append(opts, services.WithArchive(archive))
		logger.Info("deleted user archive enabled", zap.String("backend", cfg.Storage.Backend))
	}

	return services.NewUserService(repo, tokens, opts...), res, nil
}
