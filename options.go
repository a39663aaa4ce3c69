package dagster

import (
	"context"
	"time"

	"github.com/pomelocare/dagster/source"
)

// SetOption configures a PartitionSet.
type SetOption func(*setOptions)

// setOptions holds optional PartitionSet configuration.
type setOptions struct {
	def         source.Definition
	partitionFn source.PartitionFunc
	runConfigFn RunConfigFunc
	tagsFn      TagsFunc
	opSelection []string
	mode        string
	logger      Logger
	metrics     MetricsCollector
}

// WithPartitionsDefinition sets the definition that enumerates the partition set.
//
// Exactly one of WithPartitionsDefinition and WithPartitionFunc must be supplied.
//
// Parameters:
//   - def: Partitions definition
//
// Returns:
//   - SetOption: Functional option for NewPartitionSet
//
// Example:
//
//	def, _ := source.NewStatic([]string{"us", "eu"})
//	set, err := dagster.NewPartitionSet("regions", "sync_job", dagster.WithPartitionsDefinition(def))
func WithPartitionsDefinition(def source.Definition) SetOption {
	return func(o *setOptions) {
		o.def = def
	}
}

// WithPartitionFunc enumerates the partition set with a legacy partition function.
//
// The function is wrapped in a function-based dynamic definition. It receives the
// evaluation time in UTC, or time.Now() when the caller supplied none.
//
// Parameters:
//   - fn: Partition function
//
// Returns:
//   - SetOption: Functional option for NewPartitionSet
//
// Example:
//
//	set, err := dagster.NewPartitionSet("backfill", "etl_job",
//	    dagster.WithPartitionFunc(source.KeysFunc(func(time.Time) ([]string, error) {
//	        return []string{"a", "b"}, nil
//	    })),
//	)
func WithPartitionFunc(fn source.PartitionFunc) SetOption {
	return func(o *setOptions) {
		o.partitionFn = fn
	}
}

// WithRunConfigFn sets the function producing run config for each partition.
//
// The default returns an empty config.
func WithRunConfigFn(fn RunConfigFunc) SetOption {
	return func(o *setOptions) {
		o.runConfigFn = fn
	}
}

// WithTagsFn sets the function producing user tags for each partition.
//
// Tags returned by fn may not use the reserved "dagster/" prefix.
func WithTagsFn(fn TagsFunc) SetOption {
	return func(o *setOptions) {
		o.tagsFn = fn
	}
}

// WithOpSelection restricts the runs launched from the set to the named ops.
func WithOpSelection(ops ...string) SetOption {
	return func(o *setOptions) {
		o.opSelection = append([]string(nil), ops...)
	}
}

// WithMode sets the mode runs are launched in. Default: "default".
func WithMode(mode string) SetOption {
	return func(o *setOptions) {
		o.mode = mode
	}
}

// WithLogger sets a logger.
//
// Schedules created from the set share it.
//
// Parameters:
//   - logger: Logger implementation (compatible with zap.SugaredLogger)
//
// Returns:
//   - SetOption: Functional option for NewPartitionSet
//
// Example:
//
//	set, err := dagster.NewPartitionSet("regions", "sync_job",
//	    dagster.WithPartitionsDefinition(def),
//	    dagster.WithLogger(dagster.NewSlogLogger(slog.Default())),
//	)
func WithLogger(logger Logger) SetOption {
	return func(o *setOptions) {
		o.logger = logger
	}
}

// WithMetrics sets a metrics collector.
//
// Schedules created from the set share it.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - SetOption: Functional option for NewPartitionSet
//
// Example:
//
//	metrics := dagster.NewPrometheusMetrics(prometheus.DefaultRegisterer, "")
//	set, err := dagster.NewPartitionSet("regions", "sync_job",
//	    dagster.WithPartitionsDefinition(def),
//	    dagster.WithMetrics(metrics),
//	)
func WithMetrics(metrics MetricsCollector) SetOption {
	return func(o *setOptions) {
		o.metrics = metrics
	}
}

// ScheduleOption configures a PartitionSchedule.
type ScheduleOption func(*scheduleOptions)

// scheduleOptions holds optional PartitionSchedule configuration.
type scheduleOptions struct {
	shouldExecute     ShouldExecuteFunc
	executionTimezone string
	description       string
	environmentVars   map[string]string
	defaultStatus     DefaultScheduleStatus
	decorated         *decoratedScheduleFn
}

// ShouldExecuteFunc decides whether a tick that selected valid partitions launches runs.
type ShouldExecuteFunc func(ctx context.Context, sc ScheduleContext) (bool, error)

// WithShouldExecute sets the hook consulted after partition selection.
//
// Returning false skips the tick. Errors are reported as a *ScheduleExecutionError with
// phase PhaseShouldExecute.
//
// Parameters:
//   - fn: Gate function
//
// Returns:
//   - ScheduleOption: Functional option for CreateSchedule
//
// Example:
//
//	sched, err := set.CreateSchedule("weekdays", "0 1 * * *", dagster.LastPartitionSelector,
//	    dagster.WithShouldExecute(func(_ context.Context, sc dagster.ScheduleContext) (bool, error) {
//	        return sc.ScheduledExecutionTime.Weekday() != time.Sunday, nil
//	    }),
//	)
func WithShouldExecute(fn ShouldExecuteFunc) ScheduleOption {
	return func(o *scheduleOptions) {
		o.shouldExecute = fn
	}
}

// WithExecutionTimezone sets the IANA timezone the cron schedule is evaluated in.
func WithExecutionTimezone(tz string) ScheduleOption {
	return func(o *scheduleOptions) {
		o.executionTimezone = tz
	}
}

// WithDescription sets a human-readable description.
func WithDescription(description string) ScheduleOption {
	return func(o *scheduleOptions) {
		o.description = description
	}
}

// WithEnvironmentVars sets environment variables exposed to the schedule's user code.
func WithEnvironmentVars(env map[string]string) ScheduleOption {
	return func(o *scheduleOptions) {
		o.environmentVars = make(map[string]string, len(env))
		for k, v := range env {
			o.environmentVars[k] = v
		}
	}
}

// WithDefaultStatus sets whether the schedule starts running when first loaded.
// Default: DefaultScheduleStatusStopped.
func WithDefaultStatus(status DefaultScheduleStatus) ScheduleOption {
	return func(o *scheduleOptions) {
		o.defaultStatus = status
	}
}

// WithDecoratedFn attaches the function behind a decorated schedule so the schedule can
// be invoked directly with Invoke.
//
// Parameters:
//   - paramName: Name of the date parameter fn declares
//   - fn: Function computing run config for a date
//
// Returns:
//   - ScheduleOption: Functional option for CreateSchedule
func WithDecoratedFn(paramName string, fn func(date time.Time) (map[string]any, error)) ScheduleOption {
	return func(o *scheduleOptions) {
		o.decorated = &decoratedScheduleFn{paramName: paramName, fn: fn}
	}
}
