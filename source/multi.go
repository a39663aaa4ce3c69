package source

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pomelocare/dagster/types"
)

const invalidMultiKeyChars = "|,[]"

// Dimension is one named axis of a Multi definition.
type Dimension struct {
	Name       string
	Definition Definition
}

// Multi is the cartesian product of two partitions definitions.
//
// Partition keys join the per-dimension keys with "|" in dimension-name order, and the
// partition value is a map from dimension name to that dimension's partition.
type Multi struct {
	dims []Dimension
}

var _ Definition = (*Multi)(nil)

// NewMulti creates a multi-dimensional partitions definition.
//
// Exactly two dimensions are supported, each a *Static or *TimeBased. Static keys may
// not contain '|', ',', '[' or ']'.
//
// Example:
//
//	multi, err := source.NewMulti(map[string]source.Definition{
//	    "date":   daily,
//	    "region": regions,
//	})
func NewMulti(defs map[string]Definition) (*Multi, error) {
	if len(defs) != 2 {
		return nil, fmt.Errorf("%w: multi-partitions definitions support exactly 2 dimensions, got %d",
			types.ErrInvalidDefinition, len(defs))
	}

	dims := make([]Dimension, 0, len(defs))
	for name, def := range defs {
		switch d := def.(type) {
		case *TimeBased:
		case *Static:
			for _, key := range d.keys {
				if strings.ContainsAny(key, invalidMultiKeyChars) {
					return nil, fmt.Errorf("%w: invalid character in partition key %q for dimension %s; "+
						"multi-partition keys cannot contain |, [, ] or ,", types.ErrInvalidDefinition, key, name)
				}
			}
		default:
			return nil, fmt.Errorf("%w: invalid partitions definition for dimension %s; "+
				"a multi-partitions definition can only contain %s or %s dimensions",
				types.ErrInvalidDefinition, name, KindStatic, KindTimeBased)
		}
		dims = append(dims, Dimension{Name: name, Definition: def})
	}
	sort.Slice(dims, func(i, j int) bool { return dims[i].Name < dims[j].Name })

	return &Multi{dims: dims}, nil
}

// Kind implements Definition.
func (m *Multi) Kind() Kind {
	return KindMulti
}

// Dimensions returns the dimensions sorted by name.
func (m *Multi) Dimensions() []Dimension {
	out := make([]Dimension, len(m.dims))
	copy(out, m.dims)

	return out
}

// DimensionNames returns the sorted dimension names.
func (m *Multi) DimensionNames() []string {
	names := make([]string, len(m.dims))
	for i, dim := range m.dims {
		names[i] = dim.Name
	}

	return names
}

// Partitions returns the cartesian product of the dimension partitions. The first
// dimension varies slowest.
func (m *Multi) Partitions(ctx context.Context, currentTime time.Time, store types.DynamicPartitionsStore) ([]types.Partition, error) {
	perDim := make([][]types.Partition, len(m.dims))
	total := 1
	for i, dim := range m.dims {
		partitions, err := dim.Definition.Partitions(ctx, currentTime, store)
		if err != nil {
			return nil, fmt.Errorf("dimension %s: %w", dim.Name, err)
		}
		perDim[i] = partitions
		total *= len(partitions)
	}

	result := make([]types.Partition, 0, total)
	idx := make([]int, len(m.dims))
	for total > 0 {
		byDim := make(map[string]types.Partition, len(m.dims))
		keys := make(map[string]string, len(m.dims))
		for i, dim := range m.dims {
			p := perDim[i][idx[i]]
			byDim[dim.Name] = p
			keys[dim.Name] = p.Name
		}
		result = append(result, types.NewNamedPartition(byDim, types.NewMultiPartitionKey(keys).String()))

		// advance the odometer, last dimension fastest
		pos := len(idx) - 1
		for pos >= 0 {
			idx[pos]++
			if idx[pos] < len(perDim[pos]) {
				break
			}
			idx[pos] = 0
			pos--
		}
		if pos < 0 {
			break
		}
	}

	return result, nil
}

// KeyFromString parses a "|"-joined key into its per-dimension parts.
//
// Returns:
//   - types.MultiPartitionKey: The parsed key
//   - error: ErrUnknownPartition when the number of parts does not match the dimensions
func (m *Multi) KeyFromString(key string) (types.MultiPartitionKey, error) {
	parts := strings.Split(key, types.MultiPartitionKeyDelimiter)
	if len(parts) != len(m.dims) {
		return types.MultiPartitionKey{}, fmt.Errorf("%w: expected %d partition keys in partition key string %q, but got %d",
			types.ErrUnknownPartition, len(m.dims), key, len(parts))
	}

	keys := make(map[string]string, len(parts))
	for i, dim := range m.dims {
		keys[dim.Name] = parts[i]
	}

	return types.NewMultiPartitionKey(keys), nil
}

// KeyFromTags rebuilds a multi-partition key from per-dimension run tags.
func KeyFromTags(tags map[string]string) types.MultiPartitionKey {
	keys := make(map[string]string)
	for tag, value := range tags {
		if dim, ok := strings.CutPrefix(tag, types.MultiPartitionTagPrefix); ok {
			keys[dim] = value
		}
	}

	return types.NewMultiPartitionKey(keys)
}

// PrimaryDimension returns the time-based dimension when there is exactly one, else the
// first dimension by name.
func (m *Multi) PrimaryDimension() Dimension {
	primary, _ := m.primaryAndSecondary()

	return primary
}

// SecondaryDimension returns the dimension that is not primary.
func (m *Multi) SecondaryDimension() Dimension {
	_, secondary := m.primaryAndSecondary()

	return secondary
}

func (m *Multi) primaryAndSecondary() (Dimension, Dimension) {
	timeIdx := -1
	for i, dim := range m.dims {
		if _, ok := dim.Definition.(*TimeBased); ok {
			if timeIdx >= 0 {
				return m.dims[0], m.dims[1]
			}
			timeIdx = i
		}
	}
	if timeIdx < 0 {
		return m.dims[0], m.dims[1]
	}

	return m.dims[timeIdx], m.dims[1-timeIdx]
}

// Equal implements Definition.
func (m *Multi) Equal(other Definition) bool {
	o, ok := other.(*Multi)
	if !ok {
		return false
	}
	if len(m.dims) != len(o.dims) {
		return false
	}
	for i := range m.dims {
		if m.dims[i].Name != o.dims[i].Name || !m.dims[i].Definition.Equal(o.dims[i].Definition) {
			return false
		}
	}

	return true
}

// String implements Definition.
func (m *Multi) String() string {
	var b strings.Builder
	b.WriteString("Multi-partitioned, with dimensions:")
	for _, dim := range m.dims {
		fmt.Fprintf(&b, "\n%s: %s", dim.Name, dim.Definition)
	}

	return b.String()
}

func (*Multi) isDefinition() {}
