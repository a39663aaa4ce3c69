package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the partition packages.
//
// These errors provide type-safe error checking using errors.Is() and errors.As().
// Components wrap them with context using fmt.Errorf("%w: ...", ErrX, ...) so the
// sentinel stays matchable while the message names the offending value.

// Definition errors - raised synchronously while constructing definitions, partition
// sets, schedules and configs.
var (
	// ErrInvalidDefinition is returned when a definition violates a construction rule
	// (bad date range, out-of-range execution day, conflicting arguments, reserved
	// substrings in keys).
	ErrInvalidDefinition = errors.New("invalid partitions definition")

	// ErrReservedTag is returned when user tags use the reserved system prefix.
	ErrReservedTag = errors.New("reserved tag")

	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Lookup errors - the requested partition is not part of the current universe.
var (
	// ErrUnknownPartition is returned when no partition matches a key.
	ErrUnknownPartition = errors.New("unknown partition")

	// ErrInvalidPartitionKeyRange is returned when a range endpoint is not a current key.
	ErrInvalidPartitionKeyRange = errors.New("invalid partition key range")
)

// Serialization errors - a persisted subset cannot be decoded.
var (
	// ErrUnsupportedSerializationVersion is returned when a persisted subset carries a
	// version this build does not read. It is distinct from ErrInvalidSerializedSubset so
	// callers can tell a stale format from corrupt data.
	ErrUnsupportedSerializationVersion = errors.New("unsupported subset serialization version")

	// ErrInvalidSerializedSubset is returned when a persisted subset is not valid JSON of a
	// recognized shape.
	ErrInvalidSerializedSubset = errors.New("invalid serialized subset")
)

// Capability errors - a required collaborator is missing.
var (
	// ErrDynamicStoreRequired is returned when a name-addressed dynamic definition is
	// evaluated without a dynamic partitions store.
	ErrDynamicStoreRequired = errors.New("dynamic partitions store is required")

	// ErrDynamicNameRequired is returned when store-backed operations are called on a
	// function-based dynamic definition.
	ErrDynamicNameRequired = errors.New("dynamic partitions definition has no name")

	// ErrStoreUnavailable is returned when the dynamic partitions store cannot be reached.
	ErrStoreUnavailable = errors.New("dynamic partitions store unavailable")

	// ErrInvalidInvocation is returned when a schedule is invoked directly with the wrong
	// arguments or without a decorated function.
	ErrInvalidInvocation = errors.New("invalid schedule invocation")
)

// ErrScheduleExecution matches every *ScheduleExecutionError via errors.Is.
var ErrScheduleExecution = errors.New("schedule execution error")

// SchedulePhase names the user-code hook that failed during a schedule tick.
type SchedulePhase string

const (
	PhasePartitionSelector SchedulePhase = "partition_selector"
	PhaseShouldExecute     SchedulePhase = "should_execute"
	PhaseRunConfigFn       SchedulePhase = "run_config_fn"
	PhaseTagsFn            SchedulePhase = "tags_fn"
)

// ScheduleExecutionError wraps a failure raised by user code during a schedule tick.
//
// The wrapped error is preserved for errors.Is/errors.As. The error also matches
// ErrScheduleExecution.
type ScheduleExecutionError struct {
	Schedule string
	Phase    SchedulePhase
	Err      error
}

// Error implements the error interface.
func (e *ScheduleExecutionError) Error() string {
	return fmt.Sprintf("error occurred during the execution of %s for schedule %s: %v", e.Phase, e.Schedule, e.Err)
}

// Unwrap returns the user error.
func (e *ScheduleExecutionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrScheduleExecution.
func (e *ScheduleExecutionError) Is(target error) bool {
	return target == ErrScheduleExecution
}
