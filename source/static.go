package source

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/pomelocare/dagster/types"
)

// Static implements a partitions definition with a fixed list of keys.
type Static struct {
	keys []string
}

var _ Definition = (*Static)(nil)

// NewStatic creates a static partitions definition.
//
// Partition order is the order of keys.
//
// Parameters:
//   - keys: Partition keys
//
// Returns:
//   - *Static: Initialized definition
//   - error: ErrInvalidDefinition when a key contains a reserved substring
//
// Example:
//
//	oceans, err := source.NewStatic([]string{"arctic", "atlantic", "indian", "pacific", "southern"})
//	if err != nil { /* handle */ }
func NewStatic(keys []string) (*Static, error) {
	if err := ValidateKeys(keys); err != nil {
		return nil, fmt.Errorf("static partition keys contain invalid characters: %w", err)
	}

	return &Static{keys: slices.Clone(keys)}, nil
}

// Kind implements Definition.
func (s *Static) Kind() Kind {
	return KindStatic
}

// Partitions returns one partition per key. currentTime and store are ignored.
func (s *Static) Partitions(_ context.Context, _ time.Time, _ types.DynamicPartitionsStore) ([]types.Partition, error) {
	result := make([]types.Partition, len(s.keys))
	for i, key := range s.keys {
		result[i] = types.NewPartition(key)
	}

	return result, nil
}

// PartitionKeys returns a copy of the keys.
func (s *Static) PartitionKeys() []string {
	return slices.Clone(s.keys)
}

// Equal implements Definition.
func (s *Static) Equal(other Definition) bool {
	o, ok := other.(*Static)
	if !ok {
		return false
	}

	return s == o || slices.Equal(s.keys, o.keys)
}

// String implements Definition.
func (s *Static) String() string {
	return quotedKeys(s.keys)
}

func (*Static) isDefinition() {}
