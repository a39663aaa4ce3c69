package types

import (
	"fmt"
	"strings"
	"time"
)

// ScheduleType is the cadence a time-based partition definition is cut at.
//
// Schedule types are totally ordered: Hourly < Daily < Weekly < Monthly.
type ScheduleType int

const (
	// ScheduleTypeHourly cuts one partition per hour.
	ScheduleTypeHourly ScheduleType = iota + 1
	// ScheduleTypeDaily cuts one partition per calendar day.
	ScheduleTypeDaily
	// ScheduleTypeWeekly cuts one partition per calendar week.
	ScheduleTypeWeekly
	// ScheduleTypeMonthly cuts one partition per calendar month.
	ScheduleTypeMonthly
)

var scheduleTypeNames = map[ScheduleType]string{
	ScheduleTypeHourly:  "HOURLY",
	ScheduleTypeDaily:   "DAILY",
	ScheduleTypeWeekly:  "WEEKLY",
	ScheduleTypeMonthly: "MONTHLY",
}

// String returns the upper-case name of the schedule type.
func (s ScheduleType) String() string {
	if name, ok := scheduleTypeNames[s]; ok {
		return name
	}

	return fmt.Sprintf("ScheduleType(%d)", int(s))
}

// IsValid reports whether s is one of the four defined schedule types.
func (s ScheduleType) IsValid() bool {
	_, ok := scheduleTypeNames[s]

	return ok
}

// Less reports whether s is a finer cadence than other.
func (s ScheduleType) Less(other ScheduleType) bool {
	return s < other
}

// AddTo moves t by n periods of the schedule type.
//
// Days, weeks and months are calendar periods in t's location, so a daily step across a
// DST change stays at the same wall-clock time. Month steps clamp the day of month to the
// last day of the target month (Jan 31 + 1 month = Feb 28 or 29).
//
// Parameters:
//   - t: Starting instant
//   - n: Number of periods, may be negative
//
// Returns:
//   - time.Time: The shifted instant
func (s ScheduleType) AddTo(t time.Time, n int) time.Time {
	switch s {
	case ScheduleTypeHourly:
		return t.Add(time.Duration(n) * time.Hour)
	case ScheduleTypeDaily:
		return t.AddDate(0, 0, n)
	case ScheduleTypeWeekly:
		return t.AddDate(0, 0, 7*n)
	case ScheduleTypeMonthly:
		return addMonthsClamped(t, n)
	default:
		return t
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s ScheduleType) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: unknown schedule type %d", ErrInvalidDefinition, int(s))
	}

	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ScheduleType) UnmarshalText(text []byte) error {
	parsed, err := ParseScheduleType(string(text))
	if err != nil {
		return err
	}
	*s = parsed

	return nil
}

// ParseScheduleType parses a schedule type name, ignoring case.
//
// Example:
//
//	st, err := types.ParseScheduleType("daily")  // ScheduleTypeDaily
func ParseScheduleType(name string) (ScheduleType, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for st, n := range scheduleTypeNames {
		if n == upper {
			return st, nil
		}
	}

	return 0, fmt.Errorf("%w: unknown schedule type %q", ErrInvalidDefinition, name)
}

func addMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}

	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
