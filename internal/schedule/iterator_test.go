package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pomelocare/dagster/types"
)

func take(it *Iterator, n int) []time.Time {
	out := make([]time.Time, 0, n)
	for range n {
		out = append(out, it.Next())
	}

	return out
}

func TestIterator(t *testing.T) {
	t.Run("start on a trigger is included", func(t *testing.T) {
		start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
		it, err := NewIterator("0 0 * * *", start, time.UTC)
		require.NoError(t, err)

		require.Equal(t, []time.Time{
			start,
			time.Date(2022, 1, 2, 0, 0, 0, 0, time.UTC),
			time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC),
		}, take(it, 3))
	})

	t.Run("start between triggers", func(t *testing.T) {
		start := time.Date(2022, 1, 1, 10, 30, 0, 500, time.UTC)
		it, err := NewIterator("0 * * * *", start, time.UTC)
		require.NoError(t, err)
		require.Equal(t, time.Date(2022, 1, 1, 11, 0, 0, 0, time.UTC), it.Next())
	})

	t.Run("weekly sunday", func(t *testing.T) {
		start := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
		it, err := NewIterator("0 0 * * 0", start, time.UTC)
		require.NoError(t, err)
		require.Equal(t, []time.Time{
			time.Date(2022, 1, 9, 0, 0, 0, 0, time.UTC),
			time.Date(2022, 1, 16, 0, 0, 0, 0, time.UTC),
		}, take(it, 2))
	})

	t.Run("evaluated on the wall clock of the location", func(t *testing.T) {
		chicago, err := time.LoadLocation("America/Chicago")
		require.NoError(t, err)

		start := time.Date(2022, 3, 12, 0, 0, 0, 0, chicago)
		it, err := NewIterator("0 0 * * *", start, chicago)
		require.NoError(t, err)

		got := take(it, 3)
		for i, ts := range got {
			require.Equal(t, chicago, ts.Location())
			require.Equal(t, 0, ts.Hour())
			require.Equal(t, 12+i, ts.Day())
		}
		require.Equal(t, 23*time.Hour, got[2].Sub(got[1]))
	})

	t.Run("utc start converted to location", func(t *testing.T) {
		tokyo, err := time.LoadLocation("Asia/Tokyo")
		require.NoError(t, err)

		// 2022-01-01 00:00 UTC is 09:00 in Tokyo
		it, err := NewIterator("0 0 * * *", time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), tokyo)
		require.NoError(t, err)
		require.Equal(t, time.Date(2022, 1, 2, 0, 0, 0, 0, tokyo), it.Next())
	})

	t.Run("invalid expression", func(t *testing.T) {
		_, err := NewIterator("not a cron", time.Now(), nil)
		require.ErrorIs(t, err, types.ErrInvalidDefinition)
	})
}
