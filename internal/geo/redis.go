package geo

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces the index keys.
const DefaultRedisPrefix = "wave:geo:"

// RedisIndex keeps buckets in Redis so several API processes share one index.
//
// Layout:
//
//	{prefix}cell:{geohash}  set of wave ids, one key per cell and precision
//	{prefix}loc             hash of wave id -> full-precision geohash
type RedisIndex struct {
	rdb    redis.UniversalClient
	opts   Options
	prefix string
}

// NewRedisIndex creates an index over rdb. An empty prefix selects DefaultRedisPrefix.
func NewRedisIndex(rdb redis.UniversalClient, prefix string, opts Options) *RedisIndex {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisIndex{rdb: rdb, opts: opts.withDefaults(), prefix: prefix}
}

func (r *RedisIndex) cellKey(cell string) string { return r.prefix + "cell:" + cell }
func (r *RedisIndex) locKey() string             { return r.prefix + "loc" }

func (r *RedisIndex) Put(ctx context.Context, id string, p Point) error {
	if err := p.Validate(); err != nil {
		return err
	}

	old, err := r.location(ctx, id)
	if err != nil {
		return err
	}
	cells := cellsFor(p, r.opts.Precision)

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i := 1; i <= len(old); i++ {
			pipe.SRem(ctx, r.cellKey(old[:i]), id)
		}
		for _, cell := range cells {
			pipe.SAdd(ctx, r.cellKey(cell), id)
		}
		pipe.HSet(ctx, r.locKey(), id, cells[len(cells)-1])
		return nil
	})
	if err != nil {
		return fmt.Errorf("geo put %s: %w", id, err)
	}
	return nil
}

func (r *RedisIndex) Remove(ctx context.Context, id string) error {
	old, err := r.location(ctx, id)
	if err != nil {
		return err
	}
	if old == "" {
		return nil
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i := 1; i <= len(old); i++ {
			pipe.SRem(ctx, r.cellKey(old[:i]), id)
		}
		pipe.HDel(ctx, r.locKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("geo remove %s: %w", id, err)
	}
	return nil
}

// location returns the stored full-precision geohash of id, or "" when unknown.
func (r *RedisIndex) location(ctx context.Context, id string) (string, error) {
	hash, err := r.rdb.HGet(ctx, r.locKey(), id).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("geo lookup %s: %w", id, err)
	}
	return hash, nil
}

func (r *RedisIndex) CandidatesNear(ctx context.Context, center Point, radiusKm float64) ([]string, error) {
	cells, all := selectCover(center, radiusKm, r.opts)

	var (
		ids []string
		err error
	)
	if all {
		ids, err = r.rdb.HKeys(ctx, r.locKey()).Result()
	} else {
		keys := make([]string, len(cells))
		for i, cell := range cells {
			keys[i] = r.cellKey(cell)
		}
		ids, err = r.rdb.SUnion(ctx, keys...).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("geo candidates: %w", err)
	}

	sort.Strings(ids)
	return ids, nil
}

func (r *RedisIndex) Len(ctx context.Context) (int, error) {
	n, err := r.rdb.HLen(ctx, r.locKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("geo len: %w", err)
	}
	return int(n), nil
}
