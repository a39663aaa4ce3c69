package schedule

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pomelocare/dagster/types"
)

func TestCronString(t *testing.T) {
	tests := []struct {
		st   types.ScheduleType
		want string
	}{
		{types.ScheduleTypeHourly, "15 * * * *"},
		{types.ScheduleTypeDaily, "15 9 * * *"},
		{types.ScheduleTypeWeekly, "15 9 * * 3"},
		{types.ScheduleTypeMonthly, "15 9 3 * *"},
	}

	for _, tt := range tests {
		t.Run(tt.st.String(), func(t *testing.T) {
			got, err := CronString(tt.st, 9, 15, 3)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := CronString(types.ScheduleType(99), 0, 0, 0)
	require.ErrorIs(t, err, types.ErrInvalidDefinition)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate("0 1 * * *"))
	require.NoError(t, Validate("*/5 * * * 1-5"))

	err := Validate("not a cron")
	require.ErrorIs(t, err, types.ErrInvalidDefinition)
	require.Contains(t, err.Error(), `"not a cron"`)

	require.ErrorIs(t, Validate("0 0 0 1 * *"), types.ErrInvalidDefinition)
}
