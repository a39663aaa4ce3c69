// Package kvutil provides helpers for NATS JetStream KeyValue buckets.
package kvutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// DefaultMaxRetries bounds bucket creation attempts and compare-and-swap loops.
const DefaultMaxRetries = 5

const maxBackoff = time.Second

// ErrConflict is returned when a compare-and-swap update keeps losing to concurrent writers.
var ErrConflict = errors.New("kv update conflict")

// EnsureBucket creates a KV bucket, or opens it when another process created it first.
//
// Transient failures are retried with exponential backoff (10ms, 20ms, 40ms, ... capped at 1s).
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - js: JetStream context
//   - config: KV bucket configuration
//   - maxRetries: Maximum number of attempts (DefaultMaxRetries when <= 0)
//
// Returns:
//   - jetstream.KeyValue: The KV bucket
//   - error: The last error once all attempts fail
//
// Example:
//
//	kv, err := kvutil.EnsureBucket(ctx, js, jetstream.KeyValueConfig{Bucket: "dynamic-partitions"}, 0)
func EnsureBucket(ctx context.Context, js jetstream.JetStream, config jetstream.KeyValueConfig, maxRetries int) (jetstream.KeyValue, error) {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	var lastErr error
	for attempt := range maxRetries {
		kv, err := js.CreateKeyValue(ctx, config)
		if err == nil {
			return kv, nil
		}

		if errors.Is(err, jetstream.ErrBucketExists) {
			kv, openErr := js.KeyValue(ctx, config.Bucket)
			if openErr == nil {
				return kv, nil
			}
			lastErr = fmt.Errorf("bucket exists but failed to open: %w", openErr)
		} else {
			lastErr = err
		}

		if err := backoff(ctx, attempt, maxRetries); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("failed to create/open KV bucket %s after %d attempts: %w", config.Bucket, maxRetries, lastErr)
}

// MutateFunc computes the next value of a key from its current value.
//
// current is nil when the key does not exist. Returning changed == false leaves the key
// untouched and ends the update successfully.
type MutateFunc func(current []byte) (next []byte, changed bool, err error)

// Update applies mutate to key with optimistic concurrency.
//
// The key is read, mutated and written back with its read revision (or created when
// absent). When another writer got there first the loop waits a jittered delay, then
// re-reads and retries.
//
// Returns:
//   - error: mutate's error, a KV error, or ErrConflict after maxRetries lost races
func Update(ctx context.Context, kv jetstream.KeyValue, key string, maxRetries int, mutate MutateFunc) error {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	var delay time.Duration
	for attempt := range maxRetries {
		var (
			current  []byte
			revision uint64
			exists   bool
		)

		entry, err := kv.Get(ctx, key)
		switch {
		case err == nil:
			current, revision, exists = entry.Value(), entry.Revision(), true
		case errors.Is(err, jetstream.ErrKeyNotFound):
		default:
			return err
		}

		next, changed, err := mutate(current)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}

		if exists {
			_, err = kv.Update(ctx, key, next, revision)
		} else {
			_, err = kv.Create(ctx, key, next)
		}
		if err == nil {
			return nil
		}
		if !errors.Is(err, jetstream.ErrKeyExists) {
			return err
		}

		if attempt < maxRetries-1 {
			if delay, err = conflictWait(ctx, delay); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("%w: key %s after %d attempts", ErrConflict, key, maxRetries)
}

func backoff(ctx context.Context, attempt, maxRetries int) error {
	if ctx.Err() != nil {
		return fmt.Errorf("context cancelled during KV operation: %w", ctx.Err())
	}
	if attempt >= maxRetries-1 {
		return nil
	}

	delay := maxBackoff
	if attempt < 7 {
		delay = time.Duration(1<<uint(attempt)) * 10 * time.Millisecond //nolint:gosec // attempt < 7
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}
