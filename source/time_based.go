package source

import (
	"context"
	"fmt"
	"slices"
	"time"
	_ "time/tzdata" // zone database for hosts without /usr/share/zoneinfo

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pomelocare/dagster/internal/schedule"
	"github.com/pomelocare/dagster/types"
)

const (
	// DefaultDateFormat is the default partition key layout of time-based definitions.
	DefaultDateFormat = "2006-01-02"

	// DefaultTimezone is the timezone time-based definitions are evaluated in by default.
	DefaultTimezone = "UTC"

	// DefaultOffset is the number of periods a trigger time is mapped back by.
	DefaultOffset = 1

	partitionCacheSize = 32
)

// TimeBased derives partitions from the trigger times of a cron schedule.
//
// Each trigger time represents the period that just finished: a daily schedule firing on
// Jan 2 (offset 1) represents the Jan 1 partition. Partitions run from start to the
// partition represented by "now", or to end when that is earlier.
type TimeBased struct {
	scheduleType types.ScheduleType
	start        time.Time
	end          time.Time
	hour         int
	minute       int
	executionDay int
	format       string
	timezone     string
	loc          *time.Location
	offset       int
	cron         string

	// keyed by the end partition instant
	cache *lru.Cache[int64, []types.Partition]
}

var _ Definition = (*TimeBased)(nil)

type timeBasedOptions struct {
	hour         int
	minute       int
	executionDay *int
	end          time.Time
	format       string
	timezone     string
	offset       int
}

// TimeBasedOption configures a TimeBased definition.
type TimeBasedOption func(*timeBasedOptions)

// WithExecutionTime sets the wall-clock time of day the schedule fires at (default 00:00).
func WithExecutionTime(hour, minute int) TimeBasedOption {
	return func(o *timeBasedOptions) {
		o.hour = hour
		o.minute = minute
	}
}

// WithExecutionDay sets the day the schedule fires on.
//
// Weekly schedules take a day of week in [0,6] (0 = Sunday, default 0). Monthly schedules
// take a day of month in [1,31] (default 1). Hourly and daily schedules reject a non-zero day.
func WithExecutionDay(day int) TimeBasedOption {
	return func(o *timeBasedOptions) {
		o.executionDay = &day
	}
}

// WithEnd caps the last partition at end.
func WithEnd(end time.Time) TimeBasedOption {
	return func(o *timeBasedOptions) {
		o.end = end
	}
}

// WithFormat sets the time layout used to render partition keys (default "2006-01-02").
func WithFormat(layout string) TimeBasedOption {
	return func(o *timeBasedOptions) {
		o.format = layout
	}
}

// WithTimezone sets the IANA timezone the schedule is evaluated in (default "UTC").
func WithTimezone(name string) TimeBasedOption {
	return func(o *timeBasedOptions) {
		o.timezone = name
	}
}

// WithOffset sets how many periods a trigger time is mapped back by (default 1).
func WithOffset(n int) TimeBasedOption {
	return func(o *timeBasedOptions) {
		o.offset = n
	}
}

// NewTimeBased creates a schedule time-based partitions definition.
//
// start and end are instants; they are converted into the definition's timezone. A start
// time built with time.Date in that timezone is the usual way to express "midnight local".
//
// Parameters:
//   - scheduleType: Partition cadence
//   - start: First partition start (inclusive)
//   - opts: Optional settings
//
// Returns:
//   - *TimeBased: Initialized definition
//   - error: ErrInvalidDefinition on an invalid combination of settings
//
// Example:
//
//	def, err := source.NewTimeBased(types.ScheduleTypeDaily,
//	    time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
//	    source.WithExecutionTime(1, 30),
//	)
func NewTimeBased(scheduleType types.ScheduleType, start time.Time, opts ...TimeBasedOption) (*TimeBased, error) {
	o := timeBasedOptions{
		format:   DefaultDateFormat,
		timezone: DefaultTimezone,
		offset:   DefaultOffset,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if !scheduleType.IsValid() {
		return nil, fmt.Errorf("%w: unknown schedule type %s", types.ErrInvalidDefinition, scheduleType)
	}
	if start.IsZero() {
		return nil, fmt.Errorf("%w: start is required", types.ErrInvalidDefinition)
	}
	if o.format == "" {
		o.format = DefaultDateFormat
	}
	if o.timezone == "" {
		o.timezone = DefaultTimezone
	}

	loc, err := time.LoadLocation(o.timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q: %w", types.ErrInvalidDefinition, o.timezone, err)
	}

	start = start.In(loc)
	end := o.end
	if !end.IsZero() {
		end = end.In(loc)
		if start.After(end) {
			return nil, fmt.Errorf("%w: selected date range start %q is after date range end %q",
				types.ErrInvalidDefinition, start.Format(o.format), end.Format(o.format))
		}
	}

	if o.hour < 0 || o.hour > 23 || o.minute < 0 || o.minute > 59 {
		return nil, fmt.Errorf("%w: invalid execution time %02d:%02d", types.ErrInvalidDefinition, o.hour, o.minute)
	}

	day, err := resolveExecutionDay(scheduleType, o.executionDay)
	if err != nil {
		return nil, err
	}

	cronExpr, err := schedule.CronString(scheduleType, o.hour, o.minute, day)
	if err != nil {
		return nil, err
	}

	cache, err := lru.New[int64, []types.Partition](partitionCacheSize)
	if err != nil {
		return nil, err
	}

	return &TimeBased{
		scheduleType: scheduleType,
		start:        start,
		end:          end,
		hour:         o.hour,
		minute:       o.minute,
		executionDay: day,
		format:       o.format,
		timezone:     o.timezone,
		loc:          loc,
		offset:       o.offset,
		cron:         cronExpr,
		cache:        cache,
	}, nil
}

func resolveExecutionDay(st types.ScheduleType, day *int) (int, error) {
	switch st {
	case types.ScheduleTypeHourly, types.ScheduleTypeDaily:
		if day != nil && *day != 0 {
			return 0, fmt.Errorf("%w: execution day should not be provided for schedule type %q",
				types.ErrInvalidDefinition, st)
		}

		return 0, nil
	case types.ScheduleTypeWeekly:
		if day == nil {
			return 0, nil
		}
		if *day < 0 || *day > 6 {
			return 0, fmt.Errorf("%w: execution day %q must be between 0 and 6 for schedule type %q",
				types.ErrInvalidDefinition, fmt.Sprint(*day), st)
		}

		return *day, nil
	default:
		if day == nil {
			return 1, nil
		}
		if *day < 1 || *day > 31 {
			return 0, fmt.Errorf("%w: execution day %q must be between 1 and 31 for schedule type %q",
				types.ErrInvalidDefinition, fmt.Sprint(*day), st)
		}

		return *day, nil
	}
}

// Kind implements Definition.
func (d *TimeBased) Kind() Kind {
	return KindTimeBased
}

// Partitions walks the cron schedule from start and returns the partitions whose
// represented period has completed by currentTime. store is ignored.
func (d *TimeBased) Partitions(_ context.Context, currentTime time.Time, _ types.DynamicPartitionsStore) ([]types.Partition, error) {
	endPartition := d.ExecutionTimeToPartition(nowIfZero(currentTime))
	if !d.end.IsZero() && d.end.Before(endPartition) {
		endPartition = d.end
	}

	cacheKey := endPartition.UnixNano()
	if cached, ok := d.cache.Get(cacheKey); ok {
		return slices.Clone(cached), nil
	}

	it, err := schedule.NewIterator(d.cron, d.start, d.loc)
	if err != nil {
		return nil, err
	}

	partitions := []types.Partition{}
	for next := it.Next(); !next.IsZero(); next = it.Next() {
		partitionTime := d.ExecutionTimeToPartition(next)
		if partitionTime.After(endPartition) {
			break
		}
		if partitionTime.Before(d.start) {
			continue
		}
		partitions = append(partitions, types.NewNamedPartition(partitionTime, partitionTime.Format(d.format)))
	}

	d.cache.Add(cacheKey, partitions)

	return slices.Clone(partitions), nil
}

// ExecutionTimeToPartition maps a trigger time to the start of the partition it represents.
//
// The mapping per schedule type is:
//   - Hourly: top of the hour, offset hours back
//   - Daily: local midnight, offset days back
//   - Weekly: local midnight, offset weeks back, then back to the weekday of start
//   - Monthly: local midnight, offset months back (clamped), then back execution day - 1 days
func (d *TimeBased) ExecutionTimeToPartition(t time.Time) time.Time {
	t = t.In(d.loc)

	switch d.scheduleType {
	case types.ScheduleTypeHourly:
		// Subtracting elapsed time rather than rebuilding the wall clock keeps the
		// second 01:00 of a DST fall-back distinct from the first.
		elapsed := time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second + time.Duration(t.Nanosecond())

		return t.Add(-elapsed - time.Duration(d.offset)*time.Hour)
	case types.ScheduleTypeDaily:
		return midnight(t).AddDate(0, 0, -d.offset)
	case types.ScheduleTypeWeekly:
		dayDiff := ((d.executionDay-int(d.start.Weekday()))%7 + 7) % 7

		return midnight(t).AddDate(0, 0, -7*d.offset-dayDiff)
	default:
		return types.ScheduleTypeMonthly.AddTo(midnight(t), -d.offset).AddDate(0, 0, -(d.executionDay - 1))
	}
}

func midnight(t time.Time) time.Time {
	y, m, day := t.Date()

	return time.Date(y, m, day, 0, 0, 0, 0, t.Location())
}

// ScheduleType returns the partition cadence.
func (d *TimeBased) ScheduleType() types.ScheduleType {
	return d.scheduleType
}

// Start returns the first partition start in the definition's timezone.
func (d *TimeBased) Start() time.Time {
	return d.start
}

// End returns the explicit end, or false when the definition is open-ended.
func (d *TimeBased) End() (time.Time, bool) {
	return d.end, !d.end.IsZero()
}

// ExecutionTime returns the hour and minute the schedule fires at.
func (d *TimeBased) ExecutionTime() (hour, minute int) {
	return d.hour, d.minute
}

// ExecutionDay returns the day of week (weekly) or day of month (monthly) the schedule fires on.
func (d *TimeBased) ExecutionDay() int {
	return d.executionDay
}

// Format returns the partition key layout.
func (d *TimeBased) Format() string {
	return d.format
}

// Timezone returns the IANA timezone name.
func (d *TimeBased) Timezone() string {
	return d.timezone
}

// Location returns the loaded timezone.
func (d *TimeBased) Location() *time.Location {
	return d.loc
}

// Offset returns the number of periods trigger times are mapped back by.
func (d *TimeBased) Offset() int {
	return d.offset
}

// CronSchedule returns the cron expression the definition walks.
func (d *TimeBased) CronSchedule() string {
	return d.cron
}

// Equal implements Definition.
func (d *TimeBased) Equal(other Definition) bool {
	o, ok := other.(*TimeBased)
	if !ok {
		return false
	}
	if d == o {
		return true
	}

	return d.scheduleType == o.scheduleType &&
		d.start.Equal(o.start) &&
		d.end.Equal(o.end) &&
		d.hour == o.hour &&
		d.minute == o.minute &&
		d.executionDay == o.executionDay &&
		d.format == o.format &&
		d.timezone == o.timezone &&
		d.offset == o.offset
}

// String implements Definition.
func (d *TimeBased) String() string {
	end := "none"
	if !d.end.IsZero() {
		end = d.end.Format(time.RFC3339)
	}

	return fmt.Sprintf("%s(schedule_type=%s, start=%s, end=%s, execution_time=%02d:%02d, execution_day=%d, fmt=%q, timezone=%s, offset=%d)",
		KindTimeBased, d.scheduleType, d.start.Format(time.RFC3339), end, d.hour, d.minute, d.executionDay, d.format, d.timezone, d.offset)
}

func (*TimeBased) isDefinition() {}
