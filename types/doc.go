// Package types provides the core value types and contracts shared by the partition packages.
//
// Keeping these types in a leaf package avoids import cycles between the root dagster
// package, the definition variants in source, the subset encoders in subset and the
// dynamic partition stores in store.
//
// Key types:
//   - Partition: One named, valued slice of a job's workload
//   - PartitionKeyRange: A pair of boundary partition keys
//   - ScheduleType: Hourly, daily, weekly or monthly cadence
//   - MultiPartitionKey: A partition key composed from several dimensions
//   - DynamicPartitionsStore: External store of dynamically registered keys
//   - RunRequest, SkipReason, TickResult: Outcome of one schedule tick
//   - Logger: Structured logging interface
//   - MetricsCollector: Metrics recording interface
package types
