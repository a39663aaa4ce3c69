package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pomelocare/dagster/types"
)

const (
	backendRedis = "redis"

	// DefaultRedisKeyPrefix prefixes every Redis key the store writes.
	DefaultRedisKeyPrefix = "dagster:dynamic_partitions"
)

// Redis stores dynamic partitions in Redis sorted sets.
//
// Each definition name maps to a sorted set "<prefix>:<name>" whose scores come from
// the counter "<prefix>:<name>:seq". ZADD NX keeps the first score of a key, so keys
// stay in insertion order and re-adding a key is a no-op.
type Redis struct {
	client redis.UniversalClient
	opts   options
}

var _ types.DynamicPartitionsStore = (*Redis)(nil)

// NewRedis creates a store on top of a go-redis client.
//
// Example:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	st := store.NewRedis(client, store.WithKeyPrefix("etl:partitions"))
func NewRedis(client redis.UniversalClient, opts ...Option) *Redis {
	return &Redis{client: client, opts: applyOptions(opts)}
}

func (s *Redis) setKey(name string) string {
	return s.opts.keyPrefix + ":" + name
}

func (s *Redis) seqKey(name string) string {
	return s.setKey(name) + ":seq"
}

// GetDynamicPartitions implements types.DynamicPartitionsStore.
func (s *Redis) GetDynamicPartitions(ctx context.Context, name string) (keys []string, err error) {
	start := time.Now()
	defer func() { s.opts.observe(backendRedis, "get", start, err) }()

	keys, err = s.client.ZRange(ctx, s.setKey(name), 0, -1).Result()
	if err != nil {
		return nil, classifyRedis("get dynamic partitions", err)
	}
	if keys == nil {
		keys = []string{}
	}

	return keys, nil
}

// AddDynamicPartitions implements types.DynamicPartitionsStore.
func (s *Redis) AddDynamicPartitions(ctx context.Context, name string, keys []string) (err error) {
	start := time.Now()
	defer func() { s.opts.observe(backendRedis, "add", start, err) }()

	unique, _ := appendMissing(nil, keys)
	if len(unique) == 0 {
		return nil
	}

	last, err := s.client.IncrBy(ctx, s.seqKey(name), int64(len(unique))).Result()
	if err != nil {
		return classifyRedis("reserve partition sequence", err)
	}

	first := last - int64(len(unique)) + 1
	members := make([]redis.Z, len(unique))
	for i, key := range unique {
		members[i] = redis.Z{Score: float64(first + int64(i)), Member: key}
	}

	if err := s.client.ZAddNX(ctx, s.setKey(name), members...).Err(); err != nil {
		return classifyRedis("add dynamic partitions", err)
	}

	return nil
}

// HasDynamicPartition implements types.DynamicPartitionsStore.
func (s *Redis) HasDynamicPartition(ctx context.Context, name string, key string) (found bool, err error) {
	start := time.Now()
	defer func() { s.opts.observe(backendRedis, "has", start, err) }()

	err = s.client.ZScore(ctx, s.setKey(name), key).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, classifyRedis("check dynamic partition", err)
	}

	return true, nil
}

// DeleteDynamicPartition implements types.DynamicPartitionsStore.
func (s *Redis) DeleteDynamicPartition(ctx context.Context, name string, key string) (err error) {
	start := time.Now()
	defer func() { s.opts.observe(backendRedis, "delete", start, err) }()

	if err := s.client.ZRem(ctx, s.setKey(name), key).Err(); err != nil {
		return classifyRedis("delete dynamic partition", err)
	}

	return nil
}

func classifyRedis(op string, err error) error {
	var netErr net.Error
	if errors.Is(err, redis.ErrClosed) || errors.As(err, &netErr) {
		return fmt.Errorf("%s: %w: %w", op, types.ErrStoreUnavailable, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
