package dagster

import "github.com/pomelocare/dagster/types"

// Re-export types from the types package.
//
// Definitions, subsets and stores live in subpackages that cannot import the root
// package. The aliases below let callers write dagster.Partition, dagster.RunRequest and
// so on without importing types directly.
type (
	Partition         = types.Partition
	PartitionKeyRange = types.PartitionKeyRange
	ScheduleType      = types.ScheduleType
	MultiPartitionKey = types.MultiPartitionKey
	RunRequest        = types.RunRequest
	SkipReason        = types.SkipReason
	TickResult        = types.TickResult
	SchedulePhase     = types.SchedulePhase
)

// Re-export interfaces from the types package.
type (
	DynamicPartitionsStore = types.DynamicPartitionsStore
	MetricsCollector       = types.MetricsCollector
	Logger                 = types.Logger
)

// ScheduleExecutionError wraps a failure raised by user code during a schedule tick.
type ScheduleExecutionError = types.ScheduleExecutionError

// Re-export ScheduleType constants.
const (
	ScheduleTypeHourly  = types.ScheduleTypeHourly
	ScheduleTypeDaily   = types.ScheduleTypeDaily
	ScheduleTypeWeekly  = types.ScheduleTypeWeekly
	ScheduleTypeMonthly = types.ScheduleTypeMonthly
)

// Re-export SchedulePhase constants.
const (
	PhasePartitionSelector = types.PhasePartitionSelector
	PhaseShouldExecute     = types.PhaseShouldExecute
	PhaseRunConfigFn       = types.PhaseRunConfigFn
	PhaseTagsFn            = types.PhaseTagsFn
)

// Re-export reserved tag names.
const (
	PartitionNameTag = types.PartitionNameTag
	PartitionSetTag  = types.PartitionSetTag
)

// NewPartition creates a partition whose name is the textual form of value.
func NewPartition(value any) Partition {
	return types.NewPartition(value)
}

// NewNamedPartition creates a partition with an explicit name.
func NewNamedPartition(value any, name string) Partition {
	return types.NewNamedPartition(value, name)
}
