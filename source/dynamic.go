package source

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/pomelocare/dagster/types"
)

// PartitionFunc produces the partitions of a function-based dynamic definition.
//
// currentTime is zero when the caller did not supply an evaluation time.
type PartitionFunc func(currentTime time.Time) ([]types.Partition, error)

// KeysFunc adapts a function returning plain keys to a PartitionFunc.
func KeysFunc(fn func(currentTime time.Time) ([]string, error)) PartitionFunc {
	return func(currentTime time.Time) ([]types.Partition, error) {
		keys, err := fn(currentTime)
		if err != nil {
			return nil, err
		}
		partitions := make([]types.Partition, len(keys))
		for i, key := range keys {
			partitions[i] = types.NewPartition(key)
		}

		return partitions, nil
	}
}

// RawFunc adapts a function returning a mix of types.Partition and string items.
//
// Strings become partitions named by themselves. Any other item type fails the
// evaluation with ErrInvalidDefinition.
func RawFunc(fn func(currentTime time.Time) ([]any, error)) PartitionFunc {
	return func(currentTime time.Time) ([]types.Partition, error) {
		items, err := fn(currentTime)
		if err != nil {
			return nil, err
		}

		partitions := make([]types.Partition, len(items))
		for i, item := range items {
			switch v := item.(type) {
			case types.Partition:
				partitions[i] = v
			case *types.Partition:
				partitions[i] = *v
			case string:
				partitions[i] = types.NewPartition(v)
			default:
				return nil, fmt.Errorf("%w: partition function returned %T, expected Partition or string",
					types.ErrInvalidDefinition, item)
			}
		}

		return partitions, nil
	}
}

// Dynamic is a partitions definition whose keys are not known at definition time.
//
// A Dynamic definition is either name-addressed, in which case its keys live in a
// types.DynamicPartitionsStore under that name, or function-based, in which case a
// PartitionFunc produces them on every evaluation.
type Dynamic struct {
	fn   PartitionFunc
	name string
}

var _ Definition = (*Dynamic)(nil)

// NewDynamic creates a dynamic partitions definition from exactly one of fn and name.
//
// Returns:
//   - *Dynamic: Initialized definition
//   - error: ErrInvalidDefinition when both or neither of fn and name are set
func NewDynamic(fn PartitionFunc, name string) (*Dynamic, error) {
	if fn == nil && name == "" {
		return nil, fmt.Errorf("%w: must provide either partition function or name to %s",
			types.ErrInvalidDefinition, KindDynamic)
	}
	if fn != nil && name != "" {
		return nil, fmt.Errorf("%w: cannot provide both partition function and name to %s",
			types.ErrInvalidDefinition, KindDynamic)
	}

	return &Dynamic{fn: fn, name: name}, nil
}

// NewNamedDynamic creates a store-backed dynamic partitions definition.
//
// Example:
//
//	customers, err := source.NewNamedDynamic("customers")
//	err = customers.AddPartitions(ctx, store, []string{"acme"})
func NewNamedDynamic(name string) (*Dynamic, error) {
	return NewDynamic(nil, name)
}

// NewDynamicFromFunc creates a function-based dynamic partitions definition.
func NewDynamicFromFunc(fn PartitionFunc) (*Dynamic, error) {
	return NewDynamic(fn, "")
}

// Name returns the store name, or "" for a function-based definition.
func (d *Dynamic) Name() string {
	return d.name
}

// Kind implements Definition.
func (d *Dynamic) Kind() Kind {
	return KindDynamic
}

// Partitions calls the partition function, or loads the keys registered under the
// definition's name from store.
//
// Returns:
//   - []types.Partition: Partitions in function or insertion order
//   - error: ErrDynamicStoreRequired when a name-addressed definition gets a nil store
func (d *Dynamic) Partitions(ctx context.Context, currentTime time.Time, store types.DynamicPartitionsStore) ([]types.Partition, error) {
	if d.fn != nil {
		partitions, err := d.fn(currentTime)
		if err != nil {
			return nil, err
		}
		if partitions == nil {
			partitions = []types.Partition{}
		}

		return partitions, nil
	}

	if store == nil {
		return nil, fmt.Errorf("%w: the instance is not available to load partitions for %q; "+
			"this usually means the scheduler host is too old to support dynamic partitions",
			types.ErrDynamicStoreRequired, d.name)
	}

	keys, err := store.GetDynamicPartitions(ctx, d.name)
	if err != nil {
		return nil, fmt.Errorf("failed to load dynamic partitions %q: %w", d.name, err)
	}

	partitions := make([]types.Partition, len(keys))
	for i, key := range keys {
		partitions[i] = types.NewPartition(key)
	}

	return partitions, nil
}

// AddPartitions registers keys under the definition's name. Existing keys are skipped.
func (d *Dynamic) AddPartitions(ctx context.Context, store types.DynamicPartitionsStore, keys []string) error {
	if err := d.checkStore(store); err != nil {
		return err
	}
	if err := ValidateKeys(keys); err != nil {
		return err
	}

	return store.AddDynamicPartitions(ctx, d.name, keys)
}

// HasPartition reports whether key is registered under the definition's name.
func (d *Dynamic) HasPartition(ctx context.Context, store types.DynamicPartitionsStore, key string) (bool, error) {
	if err := d.checkStore(store); err != nil {
		return false, err
	}

	return store.HasDynamicPartition(ctx, d.name, key)
}

// DeletePartition removes key from the definition's name. Removing an absent key is a no-op.
func (d *Dynamic) DeletePartition(ctx context.Context, store types.DynamicPartitionsStore, key string) error {
	if err := d.checkStore(store); err != nil {
		return err
	}

	return store.DeleteDynamicPartition(ctx, d.name, key)
}

func (d *Dynamic) checkStore(store types.DynamicPartitionsStore) error {
	if d.name == "" {
		return fmt.Errorf("%w: dynamic partitions definition must have a name to manage dynamic partitions",
			types.ErrDynamicNameRequired)
	}
	if store == nil {
		return fmt.Errorf("%w: %q", types.ErrDynamicStoreRequired, d.name)
	}

	return nil
}

// Equal implements Definition. Function-based definitions are equal only when they wrap
// the same function value.
func (d *Dynamic) Equal(other Definition) bool {
	o, ok := other.(*Dynamic)
	if !ok {
		return false
	}
	if d == o {
		return true
	}
	if d.name != o.name || (d.fn == nil) != (o.fn == nil) {
		return false
	}
	if d.fn == nil {
		return true
	}

	return reflect.ValueOf(d.fn).Pointer() == reflect.ValueOf(o.fn).Pointer()
}

// String implements Definition.
func (d *Dynamic) String() string {
	if d.name != "" {
		return "Dynamic partitions definition " + d.name
	}

	return d.repr()
}

func (d *Dynamic) repr() string {
	if d.name != "" {
		return fmt.Sprintf("%s(name=%s)", KindDynamic, d.name)
	}

	return fmt.Sprintf("%s(partition_fn=%#x)", KindDynamic, reflect.ValueOf(d.fn).Pointer())
}

func (*Dynamic) isDefinition() {}
