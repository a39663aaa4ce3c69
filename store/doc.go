// Package store provides types.DynamicPartitionsStore implementations.
//
// The package includes:
//
//   - Memory: process-local store backed by a concurrent map
//   - NATSKV: NATS JetStream KeyValue bucket, one entry per definition name
//   - Redis: one Redis sorted set per definition name, scored by insertion sequence
//
// Every store keeps keys in insertion order, ignores duplicate adds and treats deleting
// an absent key as a no-op.
package store
