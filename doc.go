// Package dagster provides partition definitions, partition sets and partition schedules
// for jobs whose workload is split into named slices.
//
// A partitions definition enumerates the partitions of a job: a fixed list of keys, a
// time window cut at an hourly, daily, weekly or monthly cadence, a dynamic set resolved
// from a function or an external store, or the cartesian product of two of those. A
// partition set binds a definition to a job and turns each partition into run config and
// tags. A partition schedule evaluates a partition set on every cron tick and emits one
// run request per selected partition.
//
// # Quick Start
//
//	import (
//	    "github.com/pomelocare/dagster"
//	    "github.com/pomelocare/dagster/source"
//	)
//
//	def, err := source.NewTimeBased(dagster.ScheduleTypeDaily,
//	    time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC))
//	if err != nil {
//	    return err
//	}
//
//	set, err := dagster.NewPartitionSet("daily_etl", "etl_job",
//	    dagster.WithPartitionsDefinition(def),
//	    dagster.WithRunConfigFn(func(p dagster.Partition) (map[string]any, error) {
//	        return map[string]any{"date": p.Name}, nil
//	    }),
//	)
//	if err != nil {
//	    return err
//	}
//
//	sched, err := set.CreateSchedule("daily_etl_schedule", def.CronSchedule(),
//	    dagster.LastPartitionSelector)
//	if err != nil {
//	    return err
//	}
//
//	result, err := sched.Evaluate(ctx, dagster.ScheduleContext{ScheduledExecutionTime: time.Now()})
//
// # Packages
//
//   - source: The partitions definition variants and derived lookups
//   - subset: Partition subsets and their persisted form
//   - store: Dynamic partitions stores backed by memory, NATS JetStream KV or Redis
//   - types: Shared value types, sentinel errors, logger and metrics contracts
//
// # Tick Evaluation
//
// Each call to PartitionSchedule.Evaluate runs the partition selector, rejects selections
// that are empty or name partitions outside the set, consults the should-execute hook and
// finally builds one RunRequest per partition. Errors and panics raised by user hooks are
// returned as *ScheduleExecutionError naming the failing phase.
//
// # Configuration
//
// Definitions and the dynamic partitions store can be declared in YAML and loaded with
// LoadConfig. See Config for the schema.
package dagster
