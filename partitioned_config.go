package dagster

import (
	"context"
	"fmt"
	"time"

	"github.com/pomelocare/dagster/source"
)

// RunConfigFunc produces the run config for one partition.
type RunConfigFunc func(p Partition) (map[string]any, error)

// TagsFunc produces the user tags for one partition.
type TagsFunc func(p Partition) (map[string]string, error)

// PartitionedConfig computes job run config from a partition key.
//
// It pairs a partitions definition with the functions that turn one of its partitions
// into run config and tags. A PartitionedConfig is immutable after construction.
type PartitionedConfig struct {
	def         source.Definition
	runConfigFn RunConfigFunc
	tagsFn      TagsFunc
	decoratedFn func(key string) (map[string]any, error)
}

// PartitionedConfigOption configures a PartitionedConfig.
type PartitionedConfigOption func(*PartitionedConfig)

// WithConfigTagsFn sets the function producing tags for each partition.
func WithConfigTagsFn(fn TagsFunc) PartitionedConfigOption {
	return func(c *PartitionedConfig) {
		c.tagsFn = fn
	}
}

// WithDecoratedConfigFn attaches the key-based function the config was built from so
// the config can be called directly with Invoke.
func WithDecoratedConfigFn(fn func(key string) (map[string]any, error)) PartitionedConfigOption {
	return func(c *PartitionedConfig) {
		c.decoratedFn = fn
	}
}

// NewPartitionedConfig creates a partitioned config.
//
// Parameters:
//   - def: Definition the partition keys come from
//   - runConfigFn: Function producing run config for a partition
//   - opts: Optional tags and decorated functions
//
// Returns:
//   - *PartitionedConfig: The config
//   - error: ErrInvalidDefinition if def or runConfigFn is nil
func NewPartitionedConfig(def source.Definition, runConfigFn RunConfigFunc, opts ...PartitionedConfigOption) (*PartitionedConfig, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: partitioned config requires a partitions definition", ErrInvalidDefinition)
	}
	if runConfigFn == nil {
		return nil, fmt.Errorf("%w: partitioned config requires a run config function", ErrInvalidDefinition)
	}

	c := &PartitionedConfig{def: def, runConfigFn: runConfigFn}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// StaticPartitionedConfig builds a config over a fixed list of partition keys.
//
// fn and tagsFn receive the partition key. tagsFn may be nil.
//
// Example:
//
//	cfg, err := dagster.StaticPartitionedConfig([]string{"us", "eu"},
//	    func(key string) (map[string]any, error) {
//	        return map[string]any{"region": key}, nil
//	    }, nil)
func StaticPartitionedConfig(keys []string, fn func(key string) (map[string]any, error), tagsFn func(key string) (map[string]string, error)) (*PartitionedConfig, error) {
	def, err := source.NewStatic(keys)
	if err != nil {
		return nil, err
	}

	return keyedConfig(def, fn, tagsFn)
}

// DynamicPartitionedConfig builds a config over keys produced by partitionFn at
// evaluation time.
//
// fn and tagsFn receive the partition key. tagsFn may be nil.
func DynamicPartitionedConfig(partitionFn func(currentTime time.Time) ([]string, error), fn func(key string) (map[string]any, error), tagsFn func(key string) (map[string]string, error)) (*PartitionedConfig, error) {
	if partitionFn == nil {
		return nil, fmt.Errorf("%w: dynamic partitioned config requires a partition function", ErrInvalidDefinition)
	}
	def, err := source.NewDynamicFromFunc(source.KeysFunc(partitionFn))
	if err != nil {
		return nil, err
	}

	return keyedConfig(def, fn, tagsFn)
}

func keyedConfig(def source.Definition, fn func(key string) (map[string]any, error), tagsFn func(key string) (map[string]string, error)) (*PartitionedConfig, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: partitioned config requires a run config function", ErrInvalidDefinition)
	}

	opts := []PartitionedConfigOption{WithDecoratedConfigFn(fn)}
	if tagsFn != nil {
		opts = append(opts, WithConfigTagsFn(func(p Partition) (map[string]string, error) {
			return tagsFn(p.Name)
		}))
	}

	return NewPartitionedConfig(def, func(p Partition) (map[string]any, error) {
		return fn(p.Name)
	}, opts...)
}

// Definition returns the partitions definition.
func (c *PartitionedConfig) Definition() source.Definition {
	return c.def
}

// RunConfigFn returns the run config function.
func (c *PartitionedConfig) RunConfigFn() RunConfigFunc {
	return c.runConfigFn
}

// TagsFn returns the tags function, nil when none was set.
func (c *PartitionedConfig) TagsFn() TagsFunc {
	return c.tagsFn
}

// Keys returns the partition keys valid at currentTime.
func (c *PartitionedConfig) Keys(ctx context.Context, currentTime time.Time, store DynamicPartitionsStore) ([]string, error) {
	return source.Keys(ctx, c.def, currentTime, store)
}

// RunConfigForKey returns the run config of the partition named key.
//
// Returns:
//   - map[string]any: Run config
//   - error: ErrUnknownPartition when no current partition has that key, or the run
//     config function's error
func (c *PartitionedConfig) RunConfigForKey(ctx context.Context, key string, store DynamicPartitionsStore) (map[string]any, error) {
	p, err := source.GetPartition(ctx, c.def, key, time.Time{}, store)
	if err != nil {
		return nil, err
	}

	return c.runConfigFn(p)
}

// TagsForKey returns the user tags of the partition named key. It returns an empty map
// when the config has no tags function.
func (c *PartitionedConfig) TagsForKey(ctx context.Context, key string, store DynamicPartitionsStore) (map[string]string, error) {
	p, err := source.GetPartition(ctx, c.def, key, time.Time{}, store)
	if err != nil {
		return nil, err
	}
	if c.tagsFn == nil {
		return map[string]string{}, nil
	}

	return c.tagsFn(p)
}

// Invoke calls the key-based function the config was built from.
//
// Returns:
//   - map[string]any: Run config for key
//   - error: ErrInvalidInvocation when the config was not built by StaticPartitionedConfig,
//     DynamicPartitionedConfig or with WithDecoratedConfigFn
func (c *PartitionedConfig) Invoke(key string) (map[string]any, error) {
	if c.decoratedFn == nil {
		return nil, fmt.Errorf("%w: only partitioned configs created from a key function can be directly invoked",
			ErrInvalidInvocation)
	}

	return c.decoratedFn(key)
}

// ConfigMapping rewrites a job's outer config into the config of its ops.
//
// A ConfigMapping cannot be combined with a partitions definition.
type ConfigMapping struct {
	ConfigFn    func(config map[string]any) (map[string]any, error)
	Description string
}

// FromFlexibleConfig normalizes the config argument of a partitioned job.
//
// Accepted values:
//   - nil: every partition gets an empty config
//   - map[string]any: every partition gets a copy of the map
//   - *PartitionedConfig: returned as is when its definition equals def
//
// Returns:
//   - *PartitionedConfig: The normalized config
//   - error: ErrInvalidDefinition for a ConfigMapping, a PartitionedConfig over another
//     definition or an unsupported type
func FromFlexibleConfig(config any, def source.Definition) (*PartitionedConfig, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: partitions definition is required", ErrInvalidDefinition)
	}

	switch c := config.(type) {
	case nil:
		return NewPartitionedConfig(def, func(Partition) (map[string]any, error) {
			return map[string]any{}, nil
		})
	case map[string]any:
		constant, err := deepCopyConfig(c)
		if err != nil {
			return nil, err
		}
		if constant == nil {
			constant = map[string]any{}
		}

		return NewPartitionedConfig(def, func(Partition) (map[string]any, error) {
			return deepCopyConfig(constant)
		})
	case *ConfigMapping, ConfigMapping:
		return nil, fmt.Errorf("%w: can't supply a ConfigMapping for config when a partitions definition is supplied",
			ErrInvalidDefinition)
	case *PartitionedConfig:
		if !c.def.Equal(def) {
			return nil, fmt.Errorf("%w: can't supply a PartitionedConfig for config with a different partitions definition (%s) than supplied (%s)",
				ErrInvalidDefinition, c.def, def)
		}

		return c, nil
	default:
		return nil, fmt.Errorf("%w: unsupported config type %T", ErrInvalidDefinition, config)
	}
}
