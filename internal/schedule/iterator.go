package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pomelocare/dagster/types"
)

// Iterator yields successive trigger times of a cron expression in a fixed location.
//
// Iterator is not safe for concurrent use; create one per walk.
type Iterator struct {
	schedule cron.Schedule
	next     time.Time
}

// NewIterator creates an iterator whose first value is the earliest trigger time at or
// after start.
//
// Trigger times are computed on the wall clock of loc: a daily "0 0 * * *" expression
// fires at local midnight on both sides of a DST change.
//
// Parameters:
//   - expr: Standard 5-field cron expression
//   - start: First instant to consider (inclusive)
//   - loc: Location the expression is evaluated in
//
// Returns:
//   - *Iterator: The iterator
//   - error: ErrInvalidDefinition if expr does not parse
func NewIterator(expr string, start time.Time, loc *time.Location) (*Iterator, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid cron expression %q: %w", types.ErrInvalidDefinition, expr, err)
	}
	if loc == nil {
		loc = time.UTC
	}

	// Next returns the first match strictly after its argument, truncated to the second.
	from := start.In(loc).Truncate(time.Second)
	if !from.Equal(start) {
		from = from.Add(time.Second)
	}

	return &Iterator{schedule: sched, next: sched.Next(from.Add(-time.Second))}, nil
}

// Next returns the current trigger time and advances the iterator.
//
// A zero time is returned once the expression can no longer match.
func (it *Iterator) Next() time.Time {
	current := it.next
	if !current.IsZero() {
		it.next = it.schedule.Next(current)
	}

	return current
}
