package store

import (
	"context"
	"slices"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/pomelocare/dagster/types"
)

const backendMemory = "memory"

// Memory is an in-process DynamicPartitionsStore.
//
// Key lists are copy-on-write: an update builds a new slice inside an atomic Compute
// call, so readers never observe a partially applied add or delete.
type Memory struct {
	partitions *xsync.Map[string, []string]
	opts       options
}

var _ types.DynamicPartitionsStore = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
//
// Example:
//
//	st := store.NewMemory()
//	_ = st.AddDynamicPartitions(ctx, "customers", []string{"acme", "globex"})
func NewMemory(opts ...Option) *Memory {
	return &Memory{
		partitions: xsync.NewMap[string, []string](),
		opts:       applyOptions(opts),
	}
}

// GetDynamicPartitions implements types.DynamicPartitionsStore.
func (m *Memory) GetDynamicPartitions(_ context.Context, name string) ([]string, error) {
	start := time.Now()
	defer m.opts.observe(backendMemory, "get", start, nil)

	keys, ok := m.partitions.Load(name)
	if !ok {
		return []string{}, nil
	}

	return slices.Clone(keys), nil
}

// AddDynamicPartitions implements types.DynamicPartitionsStore.
func (m *Memory) AddDynamicPartitions(_ context.Context, name string, keys []string) error {
	start := time.Now()
	defer m.opts.observe(backendMemory, "add", start, nil)

	m.partitions.Compute(name, func(old []string, _ bool) ([]string, xsync.ComputeOp) {
		next, changed := appendMissing(old, keys)
		if !changed {
			return old, xsync.CancelOp
		}

		return next, xsync.UpdateOp
	})

	return nil
}

// HasDynamicPartition implements types.DynamicPartitionsStore.
func (m *Memory) HasDynamicPartition(_ context.Context, name string, key string) (bool, error) {
	start := time.Now()
	defer m.opts.observe(backendMemory, "has", start, nil)

	keys, ok := m.partitions.Load(name)

	return ok && slices.Contains(keys, key), nil
}

// DeleteDynamicPartition implements types.DynamicPartitionsStore.
func (m *Memory) DeleteDynamicPartition(_ context.Context, name string, key string) error {
	start := time.Now()
	defer m.opts.observe(backendMemory, "delete", start, nil)

	m.partitions.Compute(name, func(old []string, loaded bool) ([]string, xsync.ComputeOp) {
		idx := slices.Index(old, key)
		if !loaded || idx < 0 {
			return old, xsync.CancelOp
		}
		if len(old) == 1 {
			return nil, xsync.DeleteOp
		}

		return slices.Delete(slices.Clone(old), idx, idx+1), xsync.UpdateOp
	})

	return nil
}

// Names returns the definition names that currently hold at least one key.
func (m *Memory) Names() []string {
	names := make([]string, 0, m.partitions.Size())
	m.partitions.Range(func(name string, _ []string) bool {
		names = append(names, name)

		return true
	})
	slices.Sort(names)

	return names
}
