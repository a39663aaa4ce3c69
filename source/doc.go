// Package source provides the partitions definitions that enumerate a job's partitions.
//
// A Definition produces the canonical, ordered partition list for a point in time.
// The package includes:
//
//   - Static: Fixed list of keys
//   - TimeBased: Keys derived by walking a cron schedule between a start and "now"
//   - Dynamic: Keys registered in an external types.DynamicPartitionsStore, or
//     produced by a user function
//   - Multi: Cartesian product of two static or time-based dimensions
//
// Definition is a closed interface: the variants above are the only implementations.
// Operations that only need the partition list (Keys, KeysInRange, GetPartition, ...)
// are package functions built on Definition.Partitions.
package source
