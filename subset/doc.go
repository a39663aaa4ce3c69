// Package subset provides persistable subsets of a partitions definition's keys.
//
// A Subset is bound to one source.Definition and records which of its partition keys
// are selected, for example the partitions a backfill should run or the partitions an
// incremental job has already materialized. Subsets are immutable: WithKeys, WithKeyRange
// and Union return new subsets.
//
// Subsets persist as versioned JSON:
//
//	{"version": 1, "subset": ["2022-01-01", "2022-01-02"]}
//
// A bare JSON array of keys is accepted as a version 1 payload. Use CanDeserialize to probe
// a stored payload before calling Deserialize.
package subset
