package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSentinelErrors(t *testing.T) {
	t.Run("wrapped errors maintain identity", func(t *testing.T) {
		wrapped := fmt.Errorf("%w: start after end", ErrInvalidDefinition)
		require.True(t, errors.Is(wrapped, ErrInvalidDefinition))
		require.False(t, errors.Is(wrapped, ErrUnknownPartition))
	})

	t.Run("all errors are distinct", func(t *testing.T) {
		allErrors := []error{
			ErrInvalidDefinition,
			ErrReservedTag,
			ErrInvalidConfig,
			ErrUnknownPartition,
			ErrInvalidPartitionKeyRange,
			ErrUnsupportedSerializationVersion,
			ErrInvalidSerializedSubset,
			ErrDynamicStoreRequired,
			ErrDynamicNameRequired,
			ErrStoreUnavailable,
			ErrInvalidInvocation,
			ErrScheduleExecution,
		}

		for i, err1 := range allErrors {
			for j, err2 := range allErrors {
				if i == j {
					require.True(t, errors.Is(err1, err2), "error should equal itself: %v", err1)
				} else {
					require.False(t, errors.Is(err1, err2), "errors should be distinct: %v vs %v", err1, err2)
				}
			}
		}
	})
}

func TestScheduleExecutionError(t *testing.T) {
	cause := errors.New("boom")
	err := error(&ScheduleExecutionError{Schedule: "daily_sched", Phase: PhaseRunConfigFn, Err: cause})

	require.ErrorIs(t, err, ErrScheduleExecution)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "error occurred during the execution of run_config_fn for schedule daily_sched: boom", err.Error())

	var execErr *ScheduleExecutionError
	require.True(t, errors.As(fmt.Errorf("tick: %w", err), &execErr))
	require.Equal(t, PhaseRunConfigFn, execErr.Phase)
}
