package types

import "context"

// DynamicPartitionsStore tracks named sets of dynamically registered partition keys.
//
// A name-addressed dynamic partitions definition holds no keys of its own; it asks the
// store for the keys registered under its name every time it is evaluated.
//
// Implementations:
//   - store.Memory: process-local, for tests and single-process schedulers
//   - store.NATSKV: JetStream KV bucket shared across processes
//   - store.Redis: Redis sorted set per definition name
//
// Implementations own their concurrency control; callers may invoke any method from
// multiple goroutines at once.
type DynamicPartitionsStore interface {
	// GetDynamicPartitions returns the keys registered under name in insertion order.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - name: Dynamic partitions definition name
	//
	// Returns:
	//   - []string: Registered keys (empty, not nil, when none)
	//   - error: Backend error (nil on success)
	GetDynamicPartitions(ctx context.Context, name string) ([]string, error)

	// AddDynamicPartitions registers keys under name. Keys already present are skipped.
	AddDynamicPartitions(ctx context.Context, name string, keys []string) error

	// HasDynamicPartition reports whether key is registered under name.
	HasDynamicPartition(ctx context.Context, name string, key string) (bool, error)

	// DeleteDynamicPartition removes key from name. Removing an absent key is a no-op.
	DeleteDynamicPartition(ctx context.Context, name string, key string) error
}
