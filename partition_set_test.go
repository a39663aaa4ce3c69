package dagster

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pomelocare/dagster/source"
	"github.com/pomelocare/dagster/store"
	dagstertest "github.com/pomelocare/dagster/testing"
)

func mustStatic(t *testing.T, keys ...string) *source.Static {
	t.Helper()
	def, err := source.NewStatic(keys)
	require.NoError(t, err)

	return def
}

func TestNewPartitionSet(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		set, err := NewPartitionSet("regions", "sync_job", WithPartitionsDefinition(mustStatic(t, "us", "eu")))
		require.NoError(t, err)

		require.Equal(t, "regions", set.Name())
		require.Equal(t, "sync_job", set.JobName())
		require.Equal(t, DefaultMode, set.Mode())
		require.Nil(t, set.OpSelection())

		cfg, err := set.RunConfigForPartition(NewPartition("us"))
		require.NoError(t, err)
		require.Empty(t, cfg)
	})

	t.Run("custom settings", func(t *testing.T) {
		set, err := NewPartitionSet("regions", "sync_job",
			WithPartitionsDefinition(mustStatic(t, "us")),
			WithMode("prod"),
			WithOpSelection("extract", "load"),
		)
		require.NoError(t, err)
		require.Equal(t, "prod", set.Mode())
		require.Equal(t, []string{"extract", "load"}, set.OpSelection())
	})

	t.Run("rejects invalid names", func(t *testing.T) {
		_, err := NewPartitionSet("bad name", "job", WithPartitionsDefinition(mustStatic(t, "a")))
		require.ErrorIs(t, err, ErrInvalidDefinition)

		_, err = NewPartitionSet("ok", "", WithPartitionsDefinition(mustStatic(t, "a")))
		require.ErrorIs(t, err, ErrInvalidDefinition)
	})

	t.Run("requires exactly one partition source", func(t *testing.T) {
		_, err := NewPartitionSet("set", "job")
		require.ErrorIs(t, err, ErrInvalidDefinition)

		fn := source.KeysFunc(func(time.Time) ([]string, error) { return []string{"a"}, nil })
		_, err = NewPartitionSet("set", "job", WithPartitionsDefinition(mustStatic(t, "a")), WithPartitionFunc(fn))
		require.ErrorIs(t, err, ErrInvalidDefinition)
	})

	t.Run("partition function becomes a dynamic definition", func(t *testing.T) {
		var seen time.Time
		fn := source.KeysFunc(func(now time.Time) ([]string, error) {
			seen = now
			return []string{"a", "b"}, nil
		})
		set, err := NewPartitionSet("set", "job", WithPartitionFunc(fn))
		require.NoError(t, err)
		require.Equal(t, source.KindDynamic, set.Definition().Kind())

		chicago, err := time.LoadLocation("America/Chicago")
		require.NoError(t, err)
		at := time.Date(2022, 1, 1, 6, 0, 0, 0, chicago)

		names, err := set.PartitionNames(t.Context(), at, nil)
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b"}, names)
		require.Equal(t, time.UTC, seen.Location())
		require.True(t, seen.Equal(at))

		_, err = set.PartitionNames(t.Context(), time.Time{}, nil)
		require.NoError(t, err)
		require.False(t, seen.IsZero())
	})
}

func TestPartitionSet_RunConfigForPartition(t *testing.T) {
	shared := map[string]any{"ops": map[string]any{"load": map[string]any{"config": map[string]any{"date": "x"}}}}
	set, err := NewPartitionSet("set", "job",
		WithPartitionsDefinition(mustStatic(t, "a")),
		WithRunConfigFn(func(Partition) (map[string]any, error) { return shared, nil }),
	)
	require.NoError(t, err)

	cfg, err := set.RunConfigForPartition(NewPartition("a"))
	require.NoError(t, err)
	require.Equal(t, shared, cfg)

	cfg["ops"].(map[string]any)["load"].(map[string]any)["config"].(map[string]any)["date"] = "mutated"
	require.Equal(t, "x", shared["ops"].(map[string]any)["load"].(map[string]any)["config"].(map[string]any)["date"])

	boom := errors.New("boom")
	failing, err := NewPartitionSet("set", "job",
		WithPartitionsDefinition(mustStatic(t, "a")),
		WithRunConfigFn(func(Partition) (map[string]any, error) { return nil, boom }),
	)
	require.NoError(t, err)
	_, err = failing.RunConfigForPartition(NewPartition("a"))
	require.ErrorIs(t, err, boom)
}

func TestPartitionSet_TagsForPartition(t *testing.T) {
	t.Run("merges system tags", func(t *testing.T) {
		set, err := NewPartitionSet("regions", "job",
			WithPartitionsDefinition(mustStatic(t, "us")),
			WithTagsFn(func(p Partition) (map[string]string, error) {
				return map[string]string{"team": "data", "region": p.Name}, nil
			}),
		)
		require.NoError(t, err)

		tags, err := set.TagsForPartition(NewPartition("us"))
		require.NoError(t, err)
		require.Equal(t, map[string]string{
			"team":           "data",
			"region":         "us",
			PartitionNameTag: "us",
			PartitionSetTag:  "regions",
		}, tags)
	})

	t.Run("rejects reserved tags", func(t *testing.T) {
		set, err := NewPartitionSet("regions", "job",
			WithPartitionsDefinition(mustStatic(t, "us")),
			WithTagsFn(func(Partition) (map[string]string, error) {
				return map[string]string{PartitionNameTag: "spoofed"}, nil
			}),
		)
		require.NoError(t, err)

		_, err = set.TagsForPartition(NewPartition("us"))
		require.ErrorIs(t, err, ErrReservedTag)
	})

	t.Run("default tags", func(t *testing.T) {
		set, err := NewPartitionSet("regions", "job", WithPartitionsDefinition(mustStatic(t, "us")))
		require.NoError(t, err)

		tags, err := set.TagsForPartition(NewPartition("us"))
		require.NoError(t, err)
		require.Len(t, tags, 2)
	})
}

func TestPartitionSet_GetPartition(t *testing.T) {
	set, err := NewPartitionSet("set", "job", WithPartitionsDefinition(mustStatic(t, "a", "b")))
	require.NoError(t, err)

	p, err := set.GetPartition(t.Context(), "b", nil)
	require.NoError(t, err)
	require.Equal(t, "b", p.Name)

	_, err = set.GetPartition(t.Context(), "z", nil)
	require.ErrorIs(t, err, ErrUnknownPartition)
	require.Contains(t, err.Error(), "could not find a partition with key `z`")
}

func TestPartitionSet_DynamicStore(t *testing.T) {
	def, err := source.NewNamedDynamic("customers")
	require.NoError(t, err)
	set, err := NewPartitionSet("customers", "job",
		WithPartitionsDefinition(def),
		WithLogger(dagstertest.NewTestLogger(t)),
	)
	require.NoError(t, err)

	_, err = set.PartitionNames(t.Context(), time.Time{}, nil)
	require.ErrorIs(t, err, ErrDynamicStoreRequired)

	st := store.NewMemory()
	require.NoError(t, def.AddPartitions(t.Context(), st, []string{"acme", "globex"}))

	names, err := set.PartitionNames(t.Context(), time.Time{}, st)
	require.NoError(t, err)
	require.Equal(t, []string{"acme", "globex"}, names)
}
