package source

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/pomelocare/dagster/internal/hash"
	"github.com/pomelocare/dagster/types"
)

// Kind identifies a Definition variant. The value doubles as the class name recorded
// next to persisted subsets.
type Kind string

const (
	KindStatic    Kind = "StaticPartitionsDefinition"
	KindTimeBased Kind = "ScheduleTimeBasedPartitionsDefinition"
	KindDynamic   Kind = "DynamicPartitionsDefinition"
	KindMulti     Kind = "MultiPartitionsDefinition"
)

// Definition enumerates the partitions of a job.
//
// Partitions must return the same ordered list for the same inputs; that order is the
// canonical order used for ranges, first/last lookups and subset range compression.
type Definition interface {
	// Kind returns the variant identifier.
	Kind() Kind

	// Partitions returns the ordered partitions valid at currentTime.
	//
	// Parameters:
	//   - ctx: Context for store lookups
	//   - currentTime: Evaluation time (zero means time.Now())
	//   - store: Dynamic partitions store (nil when none is available)
	//
	// Returns:
	//   - []types.Partition: Partitions in canonical order
	//   - error: Store errors or ErrDynamicStoreRequired
	Partitions(ctx context.Context, currentTime time.Time, store types.DynamicPartitionsStore) ([]types.Partition, error)

	// Equal reports whether other describes the same partition universe.
	Equal(other Definition) bool

	// String returns a human-readable description.
	String() string

	isDefinition()
}

var invalidKeySubstrings = []string{"...", "\a", "\b", "\f", "\n", "\r", "\t", "\v", "\x00"}

// ValidateKeys checks that no key contains a reserved substring.
//
// "..." is the range selection syntax and control characters are unsafe in tags and
// UIs. Every offending key is reported, not just the first one.
//
// Returns:
//   - error: ErrInvalidDefinition (possibly several, combined with multierr), nil if valid
func ValidateKeys(keys []string) error {
	var err error
	for _, key := range keys {
		for _, sub := range invalidKeySubstrings {
			if strings.Contains(key, sub) {
				err = multierr.Append(err, fmt.Errorf("%w: partition key %q contains reserved substring %q",
					types.ErrInvalidDefinition, key, sub))

				break
			}
		}
	}

	return err
}

// Keys returns the names of the partitions of def.
func Keys(ctx context.Context, def Definition, currentTime time.Time, store types.DynamicPartitionsStore) ([]string, error) {
	partitions, err := def.Partitions(ctx, currentTime, store)
	if err != nil {
		return nil, err
	}

	return types.PartitionNames(partitions), nil
}

// FirstKey returns the first partition key, or false when def has no partitions.
func FirstKey(ctx context.Context, def Definition, currentTime time.Time, store types.DynamicPartitionsStore) (string, bool, error) {
	partitions, err := def.Partitions(ctx, currentTime, store)
	if err != nil || len(partitions) == 0 {
		return "", false, err
	}

	return partitions[0].Name, true, nil
}

// LastKey returns the last partition key, or false when def has no partitions.
func LastKey(ctx context.Context, def Definition, currentTime time.Time, store types.DynamicPartitionsStore) (string, bool, error) {
	partitions, err := def.Partitions(ctx, currentTime, store)
	if err != nil || len(partitions) == 0 {
		return "", false, err
	}

	return partitions[len(partitions)-1].Name, true, nil
}

// Count returns the number of partitions of def.
func Count(ctx context.Context, def Definition, currentTime time.Time, store types.DynamicPartitionsStore) (int, error) {
	partitions, err := def.Partitions(ctx, currentTime, store)
	if err != nil {
		return 0, err
	}

	return len(partitions), nil
}

// KeysInRange expands a key range to the keys between its endpoints in canonical order.
//
// Parameters:
//   - ctx: Context for store lookups
//   - def: Definition to resolve against (evaluated at time.Now())
//   - r: Inclusive key range
//   - store: Dynamic partitions store (may be nil)
//
// Returns:
//   - []string: Keys from r.Start through r.End
//   - error: ErrInvalidPartitionKeyRange naming every endpoint that is not a current key
func KeysInRange(ctx context.Context, def Definition, r types.PartitionKeyRange, store types.DynamicPartitionsStore) ([]string, error) {
	keys, err := Keys(ctx, def, time.Time{}, store)
	if err != nil {
		return nil, err
	}

	startIdx := slices.Index(keys, r.Start)
	endIdx := slices.Index(keys, r.End)

	var missing []string
	if startIdx < 0 {
		missing = append(missing, r.Start)
	}
	if endIdx < 0 && r.End != r.Start {
		missing = append(missing, r.End)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: partition range %s to %s is not a valid range, nonexistent partition keys: %q",
			types.ErrInvalidPartitionKeyRange, r.Start, r.End, missing)
	}
	if endIdx < startIdx {
		return []string{}, nil
	}

	return slices.Clone(keys[startIdx : endIdx+1]), nil
}

// GetPartition returns the partition named key.
//
// Returns:
//   - types.Partition: The matching partition
//   - error: ErrUnknownPartition when no partition has that name
func GetPartition(ctx context.Context, def Definition, key string, currentTime time.Time, store types.DynamicPartitionsStore) (types.Partition, error) {
	partitions, err := def.Partitions(ctx, currentTime, store)
	if err != nil {
		return types.Partition{}, err
	}
	for _, p := range partitions {
		if p.Name == key {
			return p, nil
		}
	}

	return types.Partition{}, fmt.Errorf("%w: no partition for partition key %s", types.ErrUnknownPartition, key)
}

// TagsForKey returns the run tags identifying key.
//
// Every definition tags the partition name. Multi definitions also tag the key of each
// dimension.
func TagsForKey(def Definition, key string) (map[string]string, error) {
	tags := map[string]string{types.PartitionNameTag: key}

	multi, ok := def.(*Multi)
	if !ok {
		return tags, nil
	}

	mk, err := multi.KeyFromString(key)
	if err != nil {
		return nil, err
	}
	for dim, dimKey := range mk.KeysByDimension() {
		tags[types.MultiPartitionTag(dim)] = dimKey
	}

	return tags, nil
}

// UniqueID returns a fingerprint of the partition universe of def.
//
// A persisted subset records the UniqueID it was computed against; a different value
// later means the universe has changed. Name-addressed dynamic definitions are identified
// by their name rather than their current keys, which change as keys are added.
func UniqueID(ctx context.Context, def Definition, store types.DynamicPartitionsStore) (string, error) {
	if dyn, ok := def.(*Dynamic); ok && dyn.name != "" {
		return hash.Fingerprint(dyn.repr()), nil
	}

	keys, err := Keys(ctx, def, time.Time{}, store)
	if err != nil {
		return "", err
	}

	return hash.KeysFingerprint(keys), nil
}

// quotedKeys renders keys as 'a', 'b', 'c'.
func quotedKeys(keys []string) string {
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = "'" + k + "'"
	}

	return strings.Join(quoted, ", ")
}

func nowIfZero(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}

	return t
}
