package schedule

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/pomelocare/dagster/types"
)

// CronString builds the standard 5-field cron expression for a schedule type.
//
// The layout per schedule type is:
//   - Hourly:  "M * * * *"
//   - Daily:   "M H * * *"
//   - Weekly:  "M H * * D" (D is the day of week, 0 = Sunday)
//   - Monthly: "M H D * *" (D is the day of month)
//
// Parameters:
//   - st: Schedule type
//   - hour: Execution hour (ignored for Hourly)
//   - minute: Execution minute
//   - day: Execution day (ignored for Hourly and Daily)
//
// Returns:
//   - string: Cron expression
//   - error: ErrInvalidDefinition for an unknown schedule type
func CronString(st types.ScheduleType, hour, minute, day int) (string, error) {
	switch st {
	case types.ScheduleTypeHourly:
		return fmt.Sprintf("%d * * * *", minute), nil
	case types.ScheduleTypeDaily:
		return fmt.Sprintf("%d %d * * *", minute, hour), nil
	case types.ScheduleTypeWeekly:
		return fmt.Sprintf("%d %d * * %d", minute, hour, day), nil
	case types.ScheduleTypeMonthly:
		return fmt.Sprintf("%d %d %d * *", minute, hour, day), nil
	default:
		return "", fmt.Errorf("%w: unknown schedule type %s", types.ErrInvalidDefinition, st)
	}
}

// Validate reports whether expr is a standard 5-field cron expression.
//
// Returns:
//   - error: ErrInvalidDefinition naming expr, nil when it parses
func Validate(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("%w: invalid cron expression %q: %w", types.ErrInvalidDefinition, expr, err)
	}

	return nil
}
