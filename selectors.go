package dagster

import (
	"context"
	"fmt"

	"github.com/pomelocare/dagster/source"
	"github.com/pomelocare/dagster/types"
)

// LastPartitionSelector selects the last partition of the set at the scheduled
// execution time.
//
// It skips the tick when the set has no partitions yet.
func LastPartitionSelector(ctx context.Context, sc ScheduleContext, set *PartitionSet) (Selection, error) {
	partitions, err := set.Partitions(ctx, sc.ScheduledExecutionTime, sc.Store)
	if err != nil {
		return Selection{}, err
	}
	if len(partitions) == 0 {
		return SkipSelection(fmt.Sprintf("Partition set %s has no partitions at %s.",
			set.Name(), sc.ScheduledExecutionTime.Format("2006-01-02T15:04:05Z07:00"))), nil
	}

	return Select(partitions[len(partitions)-1]), nil
}

// IdentityPartitionSelector selects the partition a time-based set maps the scheduled
// execution time to.
//
// It honors the definition's offset: with the default offset of 1 a daily set selects
// the previous day. The selected partition may lie outside the set (before its start or
// after its end), in which case the tick is skipped by the membership check.
//
// Returns:
//   - Selection: The mapped partition
//   - error: ErrInvalidDefinition when the set is not time-based
func IdentityPartitionSelector(_ context.Context, sc ScheduleContext, set *PartitionSet) (Selection, error) {
	def, ok := set.Definition().(*source.TimeBased)
	if !ok {
		return Selection{}, fmt.Errorf("%w: identity selector requires a time-based partition set, %s is %s",
			ErrInvalidDefinition, set.Name(), set.Definition().Kind())
	}

	start := def.ExecutionTimeToPartition(sc.ScheduledExecutionTime)

	return Select(types.NewNamedPartition(start, start.Format(def.Format()))), nil
}
