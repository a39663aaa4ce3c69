package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations should be non-blocking and must be safe for concurrent use: definitions
// and schedules are shared value objects that may be evaluated from many goroutines.
//
// This interface composes smaller, domain-focused interfaces.
type MetricsCollector interface {
	DefinitionMetrics
	ScheduleMetrics
	SubsetMetrics
	StoreMetrics
}

// DefinitionMetrics defines metrics for partition enumeration.
type DefinitionMetrics interface {
	// RecordPartitionsResolved records one evaluation of a definition.
	//
	// Parameters:
	//   - kind: Definition kind (e.g. "TimeBasedPartitionsDefinition")
	//   - count: Number of partitions produced
	RecordPartitionsResolved(kind string, count int)
}

// ScheduleMetrics defines metrics for partition schedule ticks.
type ScheduleMetrics interface {
	// RecordScheduleTick records the outcome of one tick.
	//
	// Parameters:
	//   - schedule: Schedule name
	//   - outcome: "requested", "skipped" or "failed"
	RecordScheduleTick(schedule string, outcome string)

	// RecordUserCodeError records a failure raised by a user-supplied hook.
	//
	// Parameters:
	//   - schedule: Schedule name
	//   - phase: Failing hook (see SchedulePhase)
	RecordUserCodeError(schedule string, phase string)
}

// SubsetMetrics defines metrics for subset decoding.
type SubsetMetrics interface {
	// RecordSubsetDeserialize records one decode attempt.
	//
	// Parameters:
	//   - result: "ok", "legacy", "unsupported_version" or "invalid"
	RecordSubsetDeserialize(result string)
}

// StoreMetrics defines metrics for dynamic partition store calls.
type StoreMetrics interface {
	// RecordStoreOperation records the latency of one store call.
	//
	// Parameters:
	//   - backend: "memory", "nats" or "redis"
	//   - operation: "get", "add", "has" or "delete"
	//   - duration: Time taken in seconds
	//   - success: true if the call returned no error
	RecordStoreOperation(backend string, operation string, duration float64, success bool)
}
