package store

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/pomelocare/dagster/internal/kvutil"
	"github.com/pomelocare/dagster/internal/natsutil"
	"github.com/pomelocare/dagster/types"
)

const (
	backendNATS = "nats"

	// DefaultNATSBucket is the KV bucket NATSKV uses when none is configured.
	DefaultNATSBucket = "dagster-dynamic-partitions"

	natsKeyPrefix = "defs."
)

// NATSKV stores dynamic partitions in a NATS JetStream KeyValue bucket.
//
// Each definition name maps to one KV entry holding a JSON array of keys. Writes use
// the entry revision for compare-and-swap, so concurrent adds from different processes
// never lose keys.
type NATSKV struct {
	kv   jetstream.KeyValue
	opts options
}

var _ types.DynamicPartitionsStore = (*NATSKV)(nil)

// NewNATSKV creates (or opens) the bucket and returns a store on top of it.
//
// Parameters:
//   - ctx: Context for bucket creation
//   - js: JetStream context
//   - bucket: KV bucket name (DefaultNATSBucket when empty)
//   - opts: Optional settings
//
// Returns:
//   - *NATSKV: The store
//   - error: Bucket creation error
//
// Example:
//
//	js, _ := jetstream.New(nc)
//	st, err := store.NewNATSKV(ctx, js, "", store.WithLogger(logger))
func NewNATSKV(ctx context.Context, js jetstream.JetStream, bucket string, opts ...Option) (*NATSKV, error) {
	if bucket == "" {
		bucket = DefaultNATSBucket
	}
	o := applyOptions(opts)

	kv, err := kvutil.EnsureBucket(ctx, js, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "Dynamic partition keys by definition name",
		History:     1,
	}, o.maxRetries)
	if err != nil {
		return nil, natsutil.Classify("ensure bucket", err)
	}

	return &NATSKV{kv: kv, opts: o}, nil
}

// NewNATSKVFromBucket wraps an existing KV bucket.
func NewNATSKVFromBucket(kv jetstream.KeyValue, opts ...Option) *NATSKV {
	return &NATSKV{kv: kv, opts: applyOptions(opts)}
}

// kvKey maps an arbitrary definition name onto the KV key alphabet.
func kvKey(name string) string {
	return natsKeyPrefix + base64.RawURLEncoding.EncodeToString([]byte(name))
}

func decodeKeys(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return []string{}, nil
	}

	var keys []string
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, fmt.Errorf("corrupt dynamic partitions entry: %w", err)
	}
	if keys == nil {
		keys = []string{}
	}

	return keys, nil
}

// GetDynamicPartitions implements types.DynamicPartitionsStore.
func (s *NATSKV) GetDynamicPartitions(ctx context.Context, name string) (keys []string, err error) {
	start := time.Now()
	defer func() { s.opts.observe(backendNATS, "get", start, err) }()

	entry, err := s.kv.Get(ctx, kvKey(name))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, natsutil.Classify("get dynamic partitions", err)
	}

	return decodeKeys(entry.Value())
}

// AddDynamicPartitions implements types.DynamicPartitionsStore.
func (s *NATSKV) AddDynamicPartitions(ctx context.Context, name string, keys []string) (err error) {
	start := time.Now()
	defer func() { s.opts.observe(backendNATS, "add", start, err) }()

	err = kvutil.Update(ctx, s.kv, kvKey(name), s.opts.maxRetries, func(current []byte) ([]byte, bool, error) {
		existing, err := decodeKeys(current)
		if err != nil {
			return nil, false, err
		}
		next, changed := appendMissing(existing, keys)
		if !changed {
			return nil, false, nil
		}
		encoded, err := json.Marshal(next)

		return encoded, true, err
	})

	return natsutil.Classify("add dynamic partitions", err)
}

// HasDynamicPartition implements types.DynamicPartitionsStore.
func (s *NATSKV) HasDynamicPartition(ctx context.Context, name string, key string) (bool, error) {
	keys, err := s.GetDynamicPartitions(ctx, name)
	if err != nil {
		return false, err
	}

	return slices.Contains(keys, key), nil
}

// DeleteDynamicPartition implements types.DynamicPartitionsStore.
func (s *NATSKV) DeleteDynamicPartition(ctx context.Context, name string, key string) (err error) {
	start := time.Now()
	defer func() { s.opts.observe(backendNATS, "delete", start, err) }()

	err = kvutil.Update(ctx, s.kv, kvKey(name), s.opts.maxRetries, func(current []byte) ([]byte, bool, error) {
		existing, err := decodeKeys(current)
		if err != nil {
			return nil, false, err
		}
		idx := slices.Index(existing, key)
		if idx < 0 {
			return nil, false, nil
		}
		encoded, err := json.Marshal(slices.Delete(existing, idx, idx+1))

		return encoded, true, err
	})

	return natsutil.Classify("delete dynamic partition", err)
}

// Watch calls onChange with the full key list of name every time it changes, until ctx
// is done. The current keys are delivered first when the entry exists.
//
// Returns:
//   - error: nil when ctx ends the watch, otherwise the watcher error
func (s *NATSKV) Watch(ctx context.Context, name string, onChange func(keys []string)) error {
	watcher, err := s.kv.Watch(ctx, kvKey(name))
	if err != nil {
		return natsutil.Classify("watch dynamic partitions", err)
	}
	defer func() { _ = watcher.Stop() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case entry, ok := <-watcher.Updates():
			if !ok {
				return nil
			}
			// nil marks the end of the initial values
			if entry == nil {
				continue
			}

			switch entry.Operation() {
			case jetstream.KeyValueDelete, jetstream.KeyValuePurge:
				onChange([]string{})
			default:
				keys, err := decodeKeys(entry.Value())
				if err != nil {
					s.opts.logger.Warn("skipping undecodable dynamic partitions entry", "name", name, "error", err)

					continue
				}
				onChange(keys)
			}
		}
	}
}
