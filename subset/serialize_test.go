package subset

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/pomelocare/dagster/internal/metrics"
	"github.com/pomelocare/dagster/source"
	"github.com/pomelocare/dagster/types"
)

func TestSerialize(t *testing.T) {
	def := letters(t)

	out, err := WithKeys(def, "c", "a").Serialize()
	require.NoError(t, err)
	require.Equal(t, `{"version":1,"subset":["a","c"]}`, out)

	out, err = Empty(def).Serialize()
	require.NoError(t, err)
	require.Equal(t, `{"version":1,"subset":[]}`, out)
}

func TestDeserialize(t *testing.T) {
	def := letters(t)

	t.Run("round trip", func(t *testing.T) {
		for _, keys := range [][]string{nil, {"a"}, {"f", "b", "d"}} {
			s := WithKeys(def, keys...)
			out, err := s.Serialize()
			require.NoError(t, err)

			back, err := Deserialize(def, out)
			require.NoError(t, err)
			require.True(t, s.Equal(back))
		}
	})

	t.Run("empty subset", func(t *testing.T) {
		out, err := Empty(def).Serialize()
		require.NoError(t, err)
		require.True(t, CanDeserialize(def, out, "", ""))

		back, err := Deserialize(def, out)
		require.NoError(t, err)
		require.Equal(t, 0, back.Len())
		require.NotNil(t, back.Keys())
	})

	t.Run("empty multi subset", func(t *testing.T) {
		a, err := source.NewStatic([]string{"1", "2"})
		require.NoError(t, err)
		b, err := source.NewStatic([]string{"x"})
		require.NoError(t, err)
		multi, err := source.NewMulti(map[string]source.Definition{"a": a, "b": b})
		require.NoError(t, err)

		out, err := Empty(multi).Serialize()
		require.NoError(t, err)
		require.Equal(t, `{"version":1,"subset":[]}`, out)

		back, err := Deserialize(multi, out)
		require.NoError(t, err)
		_, ok := back.(*MultiSubset)
		require.True(t, ok)
		require.Equal(t, 0, back.Len())
	})

	t.Run("float version", func(t *testing.T) {
		s, err := Deserialize(def, `{"version": 1.0, "subset": ["a"]}`)
		require.NoError(t, err)
		require.Equal(t, []string{"a"}, s.Keys())

		_, err = Deserialize(def, `{"version": 1.5, "subset": ["a"]}`)
		require.ErrorIs(t, err, types.ErrUnsupportedSerializationVersion)
	})

	t.Run("legacy array", func(t *testing.T) {
		s, err := Deserialize(def, `["a","b"]`)
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b"}, s.Keys())
	})

	t.Run("unsupported version", func(t *testing.T) {
		_, err := Deserialize(def, `{"version": 999, "subset": []}`)
		require.ErrorIs(t, err, types.ErrUnsupportedSerializationVersion)
		require.NotErrorIs(t, err, types.ErrInvalidSerializedSubset)
		require.Contains(t, err.Error(), "version 999")
		require.Contains(t, err.Error(), "only version 1")
	})

	t.Run("missing version", func(t *testing.T) {
		_, err := Deserialize(def, `{"subset": ["a"]}`)
		require.ErrorIs(t, err, types.ErrUnsupportedSerializationVersion)
		require.Contains(t, err.Error(), "version none")
	})

	t.Run("malformed", func(t *testing.T) {
		for _, payload := range []string{``, `{`, `"a"`, `[1, 2]`, `{"version": 1}`, `{"version": 1, "subset": "a"}`} {
			_, err := Deserialize(def, payload)
			require.ErrorIs(t, err, types.ErrInvalidSerializedSubset, payload)
		}
	})

	t.Run("multi keys are normalized", func(t *testing.T) {
		a, err := source.NewStatic([]string{"1", "2"})
		require.NoError(t, err)
		b, err := source.NewStatic([]string{"x"})
		require.NoError(t, err)
		multi, err := source.NewMulti(map[string]source.Definition{"a": a, "b": b})
		require.NoError(t, err)

		s, err := Deserialize(multi, `{"version":1,"subset":["1|x","junk"]}`)
		require.NoError(t, err)
		require.Equal(t, []string{"1|x"}, s.Keys())
	})
}

func TestDeserialize_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewPrometheus(reg, "test")
	def := letters(t)

	_, _ = Deserialize(def, `["a"]`, WithMetrics(m))
	_, _ = Deserialize(def, `{"version":1,"subset":[]}`, WithMetrics(m))
	_, _ = Deserialize(def, `{"version":2,"subset":[]}`, WithMetrics(m))
	_, _ = Deserialize(def, `nope`, WithMetrics(m))

	count, err := testutil.GatherAndCount(reg, "test_subset_deserialize_total")
	require.NoError(t, err)
	require.Equal(t, 4, count)
}

func TestCanDeserialize(t *testing.T) {
	def := letters(t)

	tests := []struct {
		name       string
		serialized string
		className  string
		want       bool
	}{
		{"current version", `{"version":1,"subset":["a"]}`, "", true},
		{"legacy array", `["a"]`, "", true},
		{"empty subset", `{"version":1,"subset":[]}`, "", true},
		{"float version", `{"version":1.0,"subset":["a"]}`, "", true},
		{"future version", `{"version":2,"subset":["a"]}`, "", false},
		{"no subset", `{"version":1}`, "", false},
		{"garbage", `not json`, "", false},
		{"empty", ``, "", false},
		{"matching class name", `garbage`, "StaticPartitionsDefinition", true},
		{"other class name", `{"version":1,"subset":["a"]}`, "TimeWindowPartitionsDefinition", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, CanDeserialize(def, tt.serialized, "", tt.className))
		})
	}
}
