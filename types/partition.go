package types

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// Partition represents one slice of a job's total workload.
//
// A partition pairs an arbitrary value (a time.Time for time-based definitions, the key
// itself for static ones) with the stable string name that addresses it. Partitions are
// values: copy them freely, never mutate them after construction.
type Partition struct {
	// Value is the payload the partition represents.
	Value any `json:"value"`

	// Name is the partition key. It is derived from Value when not supplied.
	Name string `json:"name"`
}

// NewPartition creates a partition whose name is the textual form of value.
//
// Example:
//
//	p := types.NewPartition("us-east")  // Name == "us-east"
func NewPartition(value any) Partition {
	return Partition{Value: value, Name: fmt.Sprint(value)}
}

// NewNamedPartition creates a partition with an explicit name.
//
// An empty name falls back to the textual form of value, matching NewPartition.
//
// Parameters:
//   - value: Partition payload
//   - name: Partition key
//
// Returns:
//   - Partition: The constructed partition
func NewNamedPartition(value any, name string) Partition {
	if name == "" {
		name = fmt.Sprint(value)
	}

	return Partition{Value: value, Name: name}
}

// Equal reports whether two partitions have the same name and value.
//
// time.Time values are compared with time.Time.Equal so that the same instant in two
// locations is considered equal.
func (p Partition) Equal(q Partition) bool {
	if p.Name != q.Name {
		return false
	}

	pt, pok := p.Value.(time.Time)
	qt, qok := q.Value.(time.Time)
	if pok && qok {
		return pt.Equal(qt)
	}

	return reflect.DeepEqual(p.Value, q.Value)
}

// String returns the partition name.
func (p Partition) String() string {
	return p.Name
}

// PartitionNames returns the names of the given partitions in order.
func PartitionNames(partitions []Partition) []string {
	names := make([]string, len(partitions))
	for i, p := range partitions {
		names[i] = p.Name
	}

	return names
}

// PartitionKeyRange identifies a contiguous run of partitions by its boundary keys.
//
// Both ends are inclusive. Whether a range is contiguous depends on the canonical order
// of the definition it is resolved against.
type PartitionKeyRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// String renders the range using the "start...end" selection syntax.
func (r PartitionKeyRange) String() string {
	return r.Start + "..." + r.End
}

// MultiPartitionKeyDelimiter joins the per-dimension keys of a MultiPartitionKey.
const MultiPartitionKeyDelimiter = "|"

// MultiPartitionKey is a partition key composed from one key per dimension.
//
// The string form joins the dimension keys with MultiPartitionKeyDelimiter in
// dimension-name order, so the same mapping always yields the same key.
type MultiPartitionKey struct {
	keysByDimension map[string]string
	key             string
}

// NewMultiPartitionKey builds a key from a dimension name to dimension key mapping.
//
// Parameters:
//   - keysByDimension: Dimension name to partition key mapping (copied)
//
// Returns:
//   - MultiPartitionKey: The composed key
func NewMultiPartitionKey(keysByDimension map[string]string) MultiPartitionKey {
	dims := make([]string, 0, len(keysByDimension))
	copied := make(map[string]string, len(keysByDimension))
	for dim, key := range keysByDimension {
		dims = append(dims, dim)
		copied[dim] = key
	}
	sort.Strings(dims)

	parts := make([]string, len(dims))
	for i, dim := range dims {
		parts[i] = copied[dim]
	}

	return MultiPartitionKey{keysByDimension: copied, key: strings.Join(parts, MultiPartitionKeyDelimiter)}
}

// String returns the delimiter-joined key.
func (k MultiPartitionKey) String() string {
	return k.key
}

// Dimensions returns the sorted dimension names.
func (k MultiPartitionKey) Dimensions() []string {
	dims := make([]string, 0, len(k.keysByDimension))
	for dim := range k.keysByDimension {
		dims = append(dims, dim)
	}
	sort.Strings(dims)

	return dims
}

// KeysByDimension returns a copy of the dimension name to key mapping.
func (k MultiPartitionKey) KeysByDimension() map[string]string {
	out := make(map[string]string, len(k.keysByDimension))
	for dim, key := range k.keysByDimension {
		out[dim] = key
	}

	return out
}

// DimensionKey returns the key for one dimension.
func (k MultiPartitionKey) DimensionKey(dimension string) (string, bool) {
	key, ok := k.keysByDimension[dimension]

	return key, ok
}
