package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/pomelocare/dagster/store"
	"github.com/pomelocare/dagster/types"
)

func mustStatic(t *testing.T, keys ...string) *Static {
	t.Helper()

	def, err := NewStatic(keys)
	require.NoError(t, err)

	return def
}

func TestValidateKeys(t *testing.T) {
	require.NoError(t, ValidateKeys([]string{"a", "b.c", "2022-01-01"}))

	err := ValidateKeys([]string{"a...b", "ok", "c\x00"})
	require.ErrorIs(t, err, types.ErrInvalidDefinition)
	require.Len(t, multierr.Errors(err), 2)
}

func TestFirstLastCount(t *testing.T) {
	ctx := t.Context()

	t.Run("non-empty", func(t *testing.T) {
		def := mustStatic(t, "a", "b", "c")

		first, ok, err := FirstKey(ctx, def, time.Time{}, nil)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "a", first)

		last, ok, err := LastKey(ctx, def, time.Time{}, nil)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "c", last)

		n, err := Count(ctx, def, time.Time{}, nil)
		require.NoError(t, err)
		require.Equal(t, 3, n)
	})

	t.Run("empty", func(t *testing.T) {
		def := mustStatic(t)

		_, ok, err := FirstKey(ctx, def, time.Time{}, nil)
		require.NoError(t, err)
		require.False(t, ok)

		_, ok, err = LastKey(ctx, def, time.Time{}, nil)
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestKeysInRange(t *testing.T) {
	ctx := t.Context()
	def := mustStatic(t, "a", "b", "c", "d")

	t.Run("inclusive", func(t *testing.T) {
		keys, err := KeysInRange(ctx, def, types.PartitionKeyRange{Start: "b", End: "d"}, nil)
		require.NoError(t, err)
		require.Equal(t, []string{"b", "c", "d"}, keys)
	})

	t.Run("single key", func(t *testing.T) {
		keys, err := KeysInRange(ctx, def, types.PartitionKeyRange{Start: "c", End: "c"}, nil)
		require.NoError(t, err)
		require.Equal(t, []string{"c"}, keys)
	})

	t.Run("reversed is empty", func(t *testing.T) {
		keys, err := KeysInRange(ctx, def, types.PartitionKeyRange{Start: "d", End: "a"}, nil)
		require.NoError(t, err)
		require.Empty(t, keys)
	})

	t.Run("missing endpoint", func(t *testing.T) {
		_, err := KeysInRange(ctx, def, types.PartitionKeyRange{Start: "a", End: "x"}, nil)
		require.ErrorIs(t, err, types.ErrInvalidPartitionKeyRange)
		require.Contains(t, err.Error(), `"x"`)
		require.NotContains(t, err.Error(), `"a"`)
	})
}

func TestGetPartition(t *testing.T) {
	def := mustStatic(t, "a", "b")

	p, err := GetPartition(t.Context(), def, "b", time.Time{}, nil)
	require.NoError(t, err)
	require.Equal(t, "b", p.Name)

	_, err = GetPartition(t.Context(), def, "z", time.Time{}, nil)
	require.ErrorIs(t, err, types.ErrUnknownPartition)
	require.EqualError(t, err, "unknown partition: no partition for partition key z")
}

func TestTagsForKey(t *testing.T) {
	t.Run("single dimension", func(t *testing.T) {
		tags, err := TagsForKey(mustStatic(t, "a"), "a")
		require.NoError(t, err)
		require.Equal(t, map[string]string{types.PartitionNameTag: "a"}, tags)
	})

	t.Run("multi", func(t *testing.T) {
		multi, err := NewMulti(map[string]Definition{
			"color": mustStatic(t, "red", "blue"),
			"size":  mustStatic(t, "s", "m"),
		})
		require.NoError(t, err)

		tags, err := TagsForKey(multi, "red|m")
		require.NoError(t, err)
		require.Equal(t, map[string]string{
			"dagster/partition":       "red|m",
			"dagster/partition/color": "red",
			"dagster/partition/size":  "m",
		}, tags)

		_, err = TagsForKey(multi, "red")
		require.ErrorIs(t, err, types.ErrUnknownPartition)
	})
}

func TestUniqueID(t *testing.T) {
	ctx := t.Context()

	t.Run("static depends on keys and order", func(t *testing.T) {
		a, err := UniqueID(ctx, mustStatic(t, "a", "b"), nil)
		require.NoError(t, err)
		b, err := UniqueID(ctx, mustStatic(t, "a", "b"), nil)
		require.NoError(t, err)
		c, err := UniqueID(ctx, mustStatic(t, "b", "a"), nil)
		require.NoError(t, err)

		require.Equal(t, a, b)
		require.NotEqual(t, a, c)
		require.Len(t, a, 32)
	})

	t.Run("named dynamic ignores current keys", func(t *testing.T) {
		st := store.NewMemory()
		def, err := NewNamedDynamic("customers")
		require.NoError(t, err)

		before, err := UniqueID(ctx, def, st)
		require.NoError(t, err)

		require.NoError(t, def.AddPartitions(ctx, st, []string{"acme"}))
		after, err := UniqueID(ctx, def, st)
		require.NoError(t, err)
		require.Equal(t, before, after)

		other, err := NewNamedDynamic("vendors")
		require.NoError(t, err)
		otherID, err := UniqueID(ctx, other, nil)
		require.NoError(t, err)
		require.NotEqual(t, before, otherID)
	})
}
