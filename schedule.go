package dagster

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pomelocare/dagster/internal/schedule"
	"github.com/pomelocare/dagster/types"
)

// DefaultScheduleStatus is the status a schedule starts in when first loaded.
type DefaultScheduleStatus string

const (
	DefaultScheduleStatusRunning DefaultScheduleStatus = "RUNNING"
	DefaultScheduleStatusStopped DefaultScheduleStatus = "STOPPED"
)

// ScheduleContext carries the inputs of one schedule tick.
type ScheduleContext struct {
	// ScheduledExecutionTime is the cron trigger time being evaluated. Zero means now.
	ScheduledExecutionTime time.Time

	// Store resolves name-addressed dynamic partitions. May be nil.
	Store DynamicPartitionsStore
}

// Selection is the result of a partition selector: either the partitions a tick targets
// or a reason to skip it.
type Selection struct {
	Partitions []Partition
	Skip       *SkipReason
}

// Select returns a selection of the given partitions.
func Select(partitions ...Partition) Selection {
	return Selection{Partitions: partitions}
}

// SkipSelection returns a selection that skips the tick with message.
func SkipSelection(message string) Selection {
	return Selection{Skip: &SkipReason{Message: message}}
}

// PartitionSelector chooses the partitions a schedule tick targets.
type PartitionSelector func(ctx context.Context, sc ScheduleContext, set *PartitionSet) (Selection, error)

type decoratedScheduleFn struct {
	paramName string
	fn        func(date time.Time) (map[string]any, error)
}

// PartitionSchedule launches runs from a partition set on a cron schedule.
//
// Each tick is evaluated independently by Evaluate. A PartitionSchedule holds no tick
// state and is safe for concurrent use.
type PartitionSchedule struct {
	name              string
	cronSchedule      string
	set               *PartitionSet
	selector          PartitionSelector
	shouldExecute     ShouldExecuteFunc
	executionTimezone string
	loc               *time.Location
	description       string
	environmentVars   map[string]string
	defaultStatus     DefaultScheduleStatus
	decorated         *decoratedScheduleFn
}

func newPartitionSchedule(set *PartitionSet, name, cronSchedule string, selector PartitionSelector, opts ...ScheduleOption) (*PartitionSchedule, error) {
	o := scheduleOptions{defaultStatus: DefaultScheduleStatusStopped}
	for _, opt := range opts {
		opt(&o)
	}

	if err := checkValidName("schedule", name); err != nil {
		return nil, err
	}
	if err := schedule.Validate(cronSchedule); err != nil {
		return nil, err
	}
	if selector == nil {
		return nil, fmt.Errorf("%w: schedule %s requires a partition selector", ErrInvalidDefinition, name)
	}

	loc := time.UTC
	if o.executionTimezone != "" {
		var err error
		if loc, err = time.LoadLocation(o.executionTimezone); err != nil {
			return nil, fmt.Errorf("%w: schedule %s has invalid execution timezone %q: %w",
				ErrInvalidDefinition, name, o.executionTimezone, err)
		}
	}

	switch o.defaultStatus {
	case DefaultScheduleStatusRunning, DefaultScheduleStatusStopped:
	default:
		return nil, fmt.Errorf("%w: schedule %s has invalid default status %q", ErrInvalidDefinition, name, o.defaultStatus)
	}

	return &PartitionSchedule{
		name:              name,
		cronSchedule:      cronSchedule,
		set:               set,
		selector:          selector,
		shouldExecute:     o.shouldExecute,
		executionTimezone: o.executionTimezone,
		loc:               loc,
		description:       o.description,
		environmentVars:   o.environmentVars,
		defaultStatus:     o.defaultStatus,
		decorated:         o.decorated,
	}, nil
}

// Name returns the schedule name.
func (s *PartitionSchedule) Name() string {
	return s.name
}

// CronSchedule returns the cron expression.
func (s *PartitionSchedule) CronSchedule() string {
	return s.cronSchedule
}

// PartitionSet returns the partition set the schedule launches runs from.
func (s *PartitionSchedule) PartitionSet() *PartitionSet {
	return s.set
}

// JobName returns the job the schedule launches.
func (s *PartitionSchedule) JobName() string {
	return s.set.jobName
}

// ExecutionTimezone returns the configured IANA timezone, "" for UTC.
func (s *PartitionSchedule) ExecutionTimezone() string {
	return s.executionTimezone
}

// Description returns the description.
func (s *PartitionSchedule) Description() string {
	return s.description
}

// EnvironmentVars returns a copy of the environment variables.
func (s *PartitionSchedule) EnvironmentVars() map[string]string {
	out := make(map[string]string, len(s.environmentVars))
	for k, v := range s.environmentVars {
		out[k] = v
	}

	return out
}

// DefaultStatus returns the status the schedule starts in.
func (s *PartitionSchedule) DefaultStatus() DefaultScheduleStatus {
	return s.defaultStatus
}

// NextExecutionTimes returns the next n trigger times strictly after after, in the
// schedule's execution timezone.
func (s *PartitionSchedule) NextExecutionTimes(after time.Time, n int) ([]time.Time, error) {
	it, err := schedule.NewIterator(s.cronSchedule, after.Add(time.Second), s.loc)
	if err != nil {
		return nil, err
	}

	times := make([]time.Time, 0, n)
	for len(times) < n {
		next := it.Next()
		if next.IsZero() {
			break
		}
		times = append(times, next)
	}

	return times, nil
}

// Evaluate runs one tick of the schedule.
//
// The tick proceeds in order:
//  1. The selector chooses partitions, or skips the tick.
//  2. An empty selection skips the tick.
//  3. A selection naming partitions outside the set skips the tick.
//  4. The should-execute hook, when set, may skip the tick.
//  5. One RunRequest per selected partition is built, keyed by the partition name.
//
// Parameters:
//   - ctx: Context for store lookups and user hooks
//   - sc: Tick inputs
//
// Returns:
//   - TickResult: Run requests or a skip reason
//   - error: *ScheduleExecutionError when a user hook failed or panicked, or the error
//     resolving the partition set
func (s *PartitionSchedule) Evaluate(ctx context.Context, sc ScheduleContext) (TickResult, error) {
	if sc.ScheduledExecutionTime.IsZero() {
		sc.ScheduledExecutionTime = time.Now()
	}
	sc.ScheduledExecutionTime = sc.ScheduledExecutionTime.In(s.loc)

	result, err := s.evaluate(ctx, sc)

	outcome := "requested"
	switch {
	case err != nil:
		outcome = "failed"
	case result.Skipped():
		outcome = "skipped"
		s.set.logger.Debug("schedule tick skipped",
			"schedule", s.name, "scheduledTime", sc.ScheduledExecutionTime, "reason", result.SkipMessage())
	default:
		s.set.logger.Debug("schedule tick requested runs",
			"schedule", s.name, "scheduledTime", sc.ScheduledExecutionTime, "runs", len(result.RunRequests))
	}
	s.set.metrics.RecordScheduleTick(s.name, outcome)

	return result, err
}

func (s *PartitionSchedule) evaluate(ctx context.Context, sc ScheduleContext) (TickResult, error) {
	var selection Selection
	err := s.runUserCode(types.PhasePartitionSelector, func() (err error) {
		selection, err = s.selector(ctx, sc, s.set)
		return err
	})
	if err != nil {
		return TickResult{}, err
	}
	if selection.Skip != nil {
		return TickResult{Skip: selection.Skip}, nil
	}
	if len(selection.Partitions) == 0 {
		return types.Skip("Partition selector returned an empty list of partitions."), nil
	}

	names, err := s.set.PartitionNames(ctx, sc.ScheduledExecutionTime, sc.Store)
	if err != nil {
		return TickResult{}, fmt.Errorf("failed to resolve partitions of partition set %s: %w", s.set.name, err)
	}
	known := make(map[string]struct{}, len(names))
	for _, name := range names {
		known[name] = struct{}{}
	}

	var missing []string
	for _, p := range selection.Partitions {
		if _, ok := known[p.Name]; !ok {
			missing = append(missing, p.Name)
		}
	}
	if len(missing) > 0 {
		plural := ""
		if len(missing) > 1 {
			plural = "s"
		}

		return types.Skip(fmt.Sprintf("Partition selector returned partition%s not in the partition set: %s.",
			plural, strings.Join(missing, ", "))), nil
	}

	if s.shouldExecute != nil {
		var ok bool
		err := s.runUserCode(types.PhaseShouldExecute, func() (err error) {
			ok, err = s.shouldExecute(ctx, sc)
			return err
		})
		if err != nil {
			return TickResult{}, err
		}
		if !ok {
			return types.Skip(fmt.Sprintf("should_execute function for %s returned false.", s.name)), nil
		}
	}

	requests := make([]RunRequest, 0, len(selection.Partitions))
	for _, p := range selection.Partitions {
		var runConfig map[string]any
		err := s.runUserCode(types.PhaseRunConfigFn, func() (err error) {
			runConfig, err = s.set.RunConfigForPartition(p)
			return err
		})
		if err != nil {
			return TickResult{}, err
		}

		var tags map[string]string
		err = s.runUserCode(types.PhaseTagsFn, func() (err error) {
			tags, err = s.set.TagsForPartition(p)
			return err
		})
		if err != nil {
			return TickResult{}, err
		}

		requests = append(requests, RunRequest{RunKey: p.Name, RunConfig: runConfig, Tags: tags})
	}

	return TickResult{RunRequests: requests}, nil
}

// runUserCode calls fn and wraps its error or panic in a *ScheduleExecutionError.
func (s *PartitionSchedule) runUserCode(phase types.SchedulePhase, fn func() error) error {
	err := recoverCall(fn)
	if err == nil {
		return nil
	}

	s.set.metrics.RecordUserCodeError(s.name, string(phase))
	s.set.logger.Warn("schedule user code failed", "schedule", s.name, "phase", phase, "error", err)

	return &types.ScheduleExecutionError{Schedule: s.name, Phase: phase, Err: err}
}

func recoverCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return fn()
}

// Invoke calls the decorated function directly with a date.
//
// Exactly one date must be supplied, either positionally in args or in named under the
// parameter name given to WithDecoratedFn.
//
// Returns:
//   - map[string]any: The decorated function's run config
//   - error: ErrInvalidInvocation when the schedule has no decorated function or the
//     arguments do not match
func (s *PartitionSchedule) Invoke(args []time.Time, named map[string]time.Time) (map[string]any, error) {
	if s.decorated == nil {
		return nil, fmt.Errorf("%w: only partition schedules created with a decorated function can be directly invoked",
			ErrInvalidInvocation)
	}

	switch n := len(args) + len(named); {
	case n == 0:
		return nil, fmt.Errorf("%w: schedule decorated function has date argument, but no date argument was provided when invoking",
			ErrInvalidInvocation)
	case n > 1:
		return nil, fmt.Errorf("%w: schedule invocation received multiple arguments, only a first positional date parameter should be provided when invoking",
			ErrInvalidInvocation)
	}

	if len(args) == 1 {
		return s.decorated.fn(args[0])
	}

	date, ok := named[s.decorated.paramName]
	if !ok {
		return nil, fmt.Errorf("%w: schedule invocation expected argument %q", ErrInvalidInvocation, s.decorated.paramName)
	}

	return s.decorated.fn(date)
}
