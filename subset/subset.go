package subset

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/pomelocare/dagster/source"
	"github.com/pomelocare/dagster/types"
)

// Subset is a set of partition keys drawn from one definition.
type Subset interface {
	// Definition returns the definition the subset is bound to.
	Definition() source.Definition

	// Keys returns the selected keys in lexical order.
	Keys() []string

	// KeysNotInSubset returns the definition's keys that are not selected, in canonical order.
	KeysNotInSubset(ctx context.Context, currentTime time.Time, store types.DynamicPartitionsStore) ([]string, error)

	// KeyRanges compresses the selected keys into maximal runs of consecutive keys in the
	// definition's canonical order. Selected keys that are not current keys of the
	// definition are not covered by any range.
	KeyRanges(ctx context.Context, currentTime time.Time, store types.DynamicPartitionsStore) ([]types.PartitionKeyRange, error)

	// WithKeys returns a subset that also contains keys. Keys are not checked against the
	// definition.
	WithKeys(keys ...string) Subset

	// WithKeyRange expands r with the definition's canonical order and adds the result.
	WithKeyRange(ctx context.Context, r types.PartitionKeyRange, store types.DynamicPartitionsStore) (Subset, error)

	// Union returns a subset containing the keys of both subsets.
	Union(other Subset) Subset

	// Contains reports whether key is selected.
	Contains(key string) bool

	// Len returns the number of selected keys.
	Len() int

	// Serialize encodes the subset in the current serialization format.
	Serialize() (string, error)

	// Equal reports whether other has the same variant, an equal definition and the same keys.
	Equal(other Subset) bool
}

// DefaultSubset is a Subset backed by a set of key strings.
type DefaultSubset struct {
	def  source.Definition
	keys map[string]struct{}
}

// MultiSubset is the Subset of a *source.Multi definition.
//
// Only well-formed multi-partition keys are kept: a key without the "|" delimiter, or
// with a part count that does not match the dimensions, is dropped. Kept keys are
// normalized through the definition's key parser.
type MultiSubset struct {
	DefaultSubset
}

var (
	_ Subset = (*DefaultSubset)(nil)
	_ Subset = (*MultiSubset)(nil)
)

// Empty returns a subset of def with no keys.
func Empty(def source.Definition) Subset {
	return newSubset(def, nil)
}

// WithKeys returns a subset of def containing keys.
//
// Example:
//
//	s := subset.WithKeys(daily, "2022-01-01", "2022-01-02")
func WithKeys(def source.Definition, keys ...string) Subset {
	return newSubset(def, keys)
}

// All returns a subset of def containing every partition key valid at currentTime.
func All(ctx context.Context, def source.Definition, currentTime time.Time, store types.DynamicPartitionsStore) (Subset, error) {
	keys, err := source.Keys(ctx, def, currentTime, store)
	if err != nil {
		return nil, err
	}

	return newSubset(def, keys), nil
}

// newSubset picks the variant for def and copies keys into a fresh set.
func newSubset(def source.Definition, keys []string) Subset {
	multi, ok := def.(*source.Multi)
	if !ok {
		set := make(map[string]struct{}, len(keys))
		for _, k := range keys {
			set[k] = struct{}{}
		}

		return &DefaultSubset{def: def, keys: set}
	}

	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if !strings.Contains(k, types.MultiPartitionKeyDelimiter) {
			continue
		}
		mk, err := multi.KeyFromString(k)
		if err != nil {
			continue
		}
		set[mk.String()] = struct{}{}
	}

	return &MultiSubset{DefaultSubset{def: def, keys: set}}
}

// Definition implements Subset.
func (s *DefaultSubset) Definition() source.Definition {
	return s.def
}

// Keys implements Subset.
func (s *DefaultSubset) Keys() []string {
	keys := slices.AppendSeq(make([]string, 0, len(s.keys)), maps.Keys(s.keys))
	slices.Sort(keys)

	return keys
}

// KeysNotInSubset implements Subset.
func (s *DefaultSubset) KeysNotInSubset(ctx context.Context, currentTime time.Time, store types.DynamicPartitionsStore) ([]string, error) {
	all, err := source.Keys(ctx, s.def, currentTime, store)
	if err != nil {
		return nil, err
	}

	missing := make([]string, 0, len(all))
	for _, k := range all {
		if _, ok := s.keys[k]; !ok {
			missing = append(missing, k)
		}
	}

	return missing, nil
}

// KeyRanges implements Subset.
func (s *DefaultSubset) KeyRanges(ctx context.Context, currentTime time.Time, store types.DynamicPartitionsStore) ([]types.PartitionKeyRange, error) {
	all, err := source.Keys(ctx, s.def, currentTime, store)
	if err != nil {
		return nil, err
	}

	ranges := []types.PartitionKeyRange{}
	inRun := false
	var cur types.PartitionKeyRange
	for _, k := range all {
		if _, ok := s.keys[k]; ok {
			if !inRun {
				cur.Start = k
				inRun = true
			}
			cur.End = k

			continue
		}
		if inRun {
			ranges = append(ranges, cur)
			inRun = false
		}
	}
	if inRun {
		ranges = append(ranges, cur)
	}

	return ranges, nil
}

// WithKeys implements Subset.
func (s *DefaultSubset) WithKeys(keys ...string) Subset {
	merged := make([]string, 0, len(s.keys)+len(keys))
	for k := range s.keys {
		merged = append(merged, k)
	}

	return newSubset(s.def, append(merged, keys...))
}

// WithKeyRange implements Subset.
func (s *DefaultSubset) WithKeyRange(ctx context.Context, r types.PartitionKeyRange, store types.DynamicPartitionsStore) (Subset, error) {
	keys, err := source.KeysInRange(ctx, s.def, r, store)
	if err != nil {
		return nil, err
	}

	return s.WithKeys(keys...), nil
}

// Union implements Subset. The result is bound to s's definition.
func (s *DefaultSubset) Union(other Subset) Subset {
	if other == nil {
		return s.WithKeys()
	}

	return s.WithKeys(other.Keys()...)
}

// Contains implements Subset.
func (s *DefaultSubset) Contains(key string) bool {
	_, ok := s.keys[key]

	return ok
}

// Len implements Subset.
func (s *DefaultSubset) Len() int {
	return len(s.keys)
}

// Serialize implements Subset. Keys are written in lexical order.
func (s *DefaultSubset) Serialize() (string, error) {
	return encode(s.Keys())
}

// Equal implements Subset.
func (s *DefaultSubset) Equal(other Subset) bool {
	var o *DefaultSubset
	switch v := other.(type) {
	case *DefaultSubset:
		if _, multi := s.def.(*source.Multi); multi {
			return false
		}
		o = v
	case *MultiSubset:
		if _, multi := s.def.(*source.Multi); !multi {
			return false
		}
		o = &v.DefaultSubset
	default:
		return false
	}

	return s.def.Equal(o.def) && maps.Equal(s.keys, o.keys)
}

// String returns a debug representation.
func (s *DefaultSubset) String() string {
	name := "DefaultSubset"
	if _, multi := s.def.(*source.Multi); multi {
		name = "MultiSubset"
	}

	return fmt.Sprintf("%s(subset=%q, definition=%s)", name, s.Keys(), s.def)
}
