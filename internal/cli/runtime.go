package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/chat"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/config"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/engine"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/geo"
	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/store"
)

// runtime is a fully wired engine plus the resources it owns.
type runtime struct {
	cfg    config.Config
	store  *store.Store
	redis  *redis.Client
	engine *engine.Engine
	logger *slog.Logger
}

// openRuntime loads configuration and wires store, geo index, chat
// provisioner and publisher from the root flags.
//
// Without --redis the geo index lives in memory and is rebuilt from the
// store. Without --chat-url rooms live in memory and vanish on exit.
func openRuntime(ctx context.Context, opts *RootOptions, logger *slog.Logger) (*runtime, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid activity catalog", err)
	}
	if opts.Database == "" {
		return nil, NewExitError(ExitCommandError, "no database given (use --db or WAVE_DB)")
	}

	st, err := store.OpenDriver(opts.Driver, opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	rt := &runtime{cfg: cfg, store: st, logger: logger}

	var (
		index     geo.Index
		publisher engine.Publisher = engine.NopPublisher{}
	)
	if opts.RedisAddr != "" {
		rt.redis = redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
		if err := rt.redis.Ping(ctx).Err(); err != nil {
			rt.Close()
			return nil, WrapExitError(ExitCommandError, "failed to reach redis", err)
		}
		index = geo.NewRedisIndex(rt.redis, geo.DefaultRedisPrefix, cfg.GeoOptions())
		publisher = engine.NewRedisPublisher(rt.redis)
	} else {
		index = geo.NewMemoryIndex(cfg.GeoOptions())
	}

	var provisioner chat.Provisioner
	if opts.ChatURL != "" {
		httpOpts := []chat.HTTPOption{}
		if opts.ChatToken != "" {
			httpOpts = append(httpOpts, chat.WithBearerToken(opts.ChatToken))
		}
		hp, err := chat.NewHTTPProvisioner(opts.ChatURL, httpOpts...)
		if err != nil {
			rt.Close()
			return nil, WrapExitError(ExitCommandError, "invalid chat service URL", err)
		}
		provisioner = hp
	} else {
		provisioner = chat.NewMemoryProvisioner()
	}
	retryOpts := append(cfg.RetryOptions(), chat.WithRetryLogger(logger))
	provisioner = chat.NewRetrying(provisioner, retryOpts...)

	rt.engine = engine.New(st, index, provisioner, catalog,
		engine.WithSettings(cfg.Settings()),
		engine.WithLogger(logger),
		engine.WithPublisher(publisher),
	)

	if rt.redis == nil {
		if _, err := rt.engine.Lifecycle.WarmIndex(ctx); err != nil {
			rt.Close()
			return nil, WrapExitError(ExitCommandError, "failed to load geo index", err)
		}
	}
	return rt, nil
}

// Close releases the store and Redis connections.
func (r *runtime) Close() error {
	var firstErr error
	if r.redis != nil {
		if err := r.redis.Close(); err != nil {
			firstErr = fmt.Errorf("close redis: %w", err)
		}
	}
	if err := r.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close database: %w", err)
	}
	if firstErr != nil {
		r.logger.Error("error closing runtime", "error", firstErr)
	}
	return firstErr
}
