package dagster

import "github.com/pomelocare/dagster/types"

// Sentinel errors, re-exported from the types package so callers can match them with
// errors.Is without an extra import.
var (
	ErrInvalidDefinition               = types.ErrInvalidDefinition
	ErrReservedTag                     = types.ErrReservedTag
	ErrInvalidConfig                   = types.ErrInvalidConfig
	ErrUnknownPartition                = types.ErrUnknownPartition
	ErrInvalidPartitionKeyRange        = types.ErrInvalidPartitionKeyRange
	ErrUnsupportedSerializationVersion = types.ErrUnsupportedSerializationVersion
	ErrInvalidSerializedSubset         = types.ErrInvalidSerializedSubset
	ErrDynamicStoreRequired            = types.ErrDynamicStoreRequired
	ErrDynamicNameRequired             = types.ErrDynamicNameRequired
	ErrStoreUnavailable                = types.ErrStoreUnavailable
	ErrInvalidInvocation               = types.ErrInvalidInvocation
	ErrScheduleExecution               = types.ErrScheduleExecution
)
