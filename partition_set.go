package dagster

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/imdario/mergo"

	"github.com/pomelocare/dagster/internal/logging"
	"github.com/pomelocare/dagster/internal/metrics"
	"github.com/pomelocare/dagster/source"
	"github.com/pomelocare/dagster/types"
)

// DefaultMode is the mode runs are launched in when WithMode is not supplied.
const DefaultMode = "default"

var validName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

func checkValidName(kind, name string) error {
	if !validName.MatchString(name) {
		return fmt.Errorf("%w: %s name %q must match %s", ErrInvalidDefinition, kind, name, validName)
	}

	return nil
}

// PartitionSet binds a partitions definition to a job.
//
// It turns each partition of the definition into the run config and tags of a run of the
// job. A PartitionSet is immutable after construction and safe for concurrent use.
type PartitionSet struct {
	name        string
	jobName     string
	opSelection []string
	mode        string
	runConfigFn RunConfigFunc
	tagsFn      TagsFunc
	def         source.Definition
	logger      Logger
	metrics     MetricsCollector
}

// NewPartitionSet creates a partition set for jobName.
//
// Parameters:
//   - name: Partition set name ([A-Za-z0-9_]+)
//   - jobName: Job the runs are launched for
//   - opts: Exactly one of WithPartitionsDefinition and WithPartitionFunc, plus optional
//     settings
//
// Returns:
//   - *PartitionSet: The partition set
//   - error: ErrInvalidDefinition on an invalid name or conflicting partition sources
//
// Example:
//
//	set, err := dagster.NewPartitionSet("regions", "sync_job",
//	    dagster.WithPartitionsDefinition(def),
//	    dagster.WithTagsFn(func(p dagster.Partition) (map[string]string, error) {
//	        return map[string]string{"region": p.Name}, nil
//	    }),
//	)
func NewPartitionSet(name, jobName string, opts ...SetOption) (*PartitionSet, error) {
	o := setOptions{mode: DefaultMode}
	for _, opt := range opts {
		opt(&o)
	}

	if err := checkValidName("partition set", name); err != nil {
		return nil, err
	}
	if jobName == "" {
		return nil, fmt.Errorf("%w: partition set %s requires a job name", ErrInvalidDefinition, name)
	}

	def := o.def
	switch {
	case o.def != nil && o.partitionFn != nil:
		return nil, fmt.Errorf("%w: only one of partitions definition and partition function may be supplied",
			ErrInvalidDefinition)
	case o.def == nil && o.partitionFn == nil:
		return nil, fmt.Errorf("%w: one of partitions definition and partition function must be supplied",
			ErrInvalidDefinition)
	case o.partitionFn != nil:
		dyn, err := source.NewDynamicFromFunc(utcPartitionFunc(o.partitionFn))
		if err != nil {
			return nil, err
		}
		def = dyn
	}

	if o.mode == "" {
		o.mode = DefaultMode
	}
	if o.runConfigFn == nil {
		o.runConfigFn = func(Partition) (map[string]any, error) { return map[string]any{}, nil }
	}
	if o.tagsFn == nil {
		o.tagsFn = func(Partition) (map[string]string, error) { return map[string]string{}, nil }
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	if o.metrics == nil {
		o.metrics = metrics.NewNop()
	}

	return &PartitionSet{
		name:        name,
		jobName:     jobName,
		opSelection: o.opSelection,
		mode:        o.mode,
		runConfigFn: o.runConfigFn,
		tagsFn:      o.tagsFn,
		def:         def,
		logger:      o.logger,
		metrics:     o.metrics,
	}, nil
}

// utcPartitionFunc hands fn the evaluation time in UTC, defaulting to now.
func utcPartitionFunc(fn source.PartitionFunc) source.PartitionFunc {
	return func(currentTime time.Time) ([]types.Partition, error) {
		if currentTime.IsZero() {
			currentTime = time.Now()
		}

		return fn(currentTime.UTC())
	}
}

// Name returns the partition set name.
func (s *PartitionSet) Name() string {
	return s.name
}

// JobName returns the job the runs are launched for.
func (s *PartitionSet) JobName() string {
	return s.jobName
}

// OpSelection returns the op selection, nil when the whole job runs.
func (s *PartitionSet) OpSelection() []string {
	return append([]string(nil), s.opSelection...)
}

// Mode returns the mode runs are launched in.
func (s *PartitionSet) Mode() string {
	return s.mode
}

// Definition returns the partitions definition.
func (s *PartitionSet) Definition() source.Definition {
	return s.def
}

// RunConfigForPartition returns the run config for p.
//
// The result is a deep copy of what the run config function returned, so callers may
// mutate it freely.
func (s *PartitionSet) RunConfigForPartition(p Partition) (map[string]any, error) {
	cfg, err := s.runConfigFn(p)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return map[string]any{}, nil
	}

	return deepCopyConfig(cfg)
}

// TagsForPartition returns the run tags for p.
//
// User tags are validated against the reserved "dagster/" prefix, then merged with the
// partition name and partition set tags.
//
// Returns:
//   - map[string]string: Merged tags
//   - error: ErrReservedTag when the tags function set a reserved tag, or its own error
func (s *PartitionSet) TagsForPartition(p Partition) (map[string]string, error) {
	userTags, err := s.tagsFn(p)
	if err != nil {
		return nil, err
	}
	if err := types.ValidateTags(userTags); err != nil {
		return nil, err
	}

	tags := make(map[string]string, len(userTags)+2)
	for k, v := range userTags {
		tags[k] = v
	}
	system := map[string]string{
		types.PartitionNameTag: p.Name,
		types.PartitionSetTag:  s.name,
	}
	if err := mergo.Merge(&tags, system, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge partition tags: %w", err)
	}

	return tags, nil
}

// Partitions returns the partitions valid at currentTime.
//
// Parameters:
//   - ctx: Context for store lookups
//   - currentTime: Evaluation time (zero means now)
//   - store: Dynamic partitions store, nil when none is available
func (s *PartitionSet) Partitions(ctx context.Context, currentTime time.Time, store DynamicPartitionsStore) ([]Partition, error) {
	partitions, err := s.def.Partitions(ctx, currentTime, store)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordPartitionsResolved(string(s.def.Kind()), len(partitions))

	return partitions, nil
}

// PartitionNames returns the names of the partitions valid at currentTime.
func (s *PartitionSet) PartitionNames(ctx context.Context, currentTime time.Time, store DynamicPartitionsStore) ([]string, error) {
	partitions, err := s.Partitions(ctx, currentTime, store)
	if err != nil {
		return nil, err
	}

	return types.PartitionNames(partitions), nil
}

// GetPartition returns the current partition named name.
//
// Returns:
//   - Partition: The partition
//   - error: ErrUnknownPartition when no current partition has that name
func (s *PartitionSet) GetPartition(ctx context.Context, name string, store DynamicPartitionsStore) (Partition, error) {
	partitions, err := s.Partitions(ctx, time.Time{}, store)
	if err != nil {
		return Partition{}, err
	}
	for _, p := range partitions {
		if p.Name == name {
			return p, nil
		}
	}

	return Partition{}, fmt.Errorf("%w: could not find a partition with key `%s`", ErrUnknownPartition, name)
}

// CreateSchedule creates a schedule that launches runs from this partition set.
//
// Parameters:
//   - name: Schedule name ([A-Za-z0-9_]+)
//   - cronSchedule: Standard 5-field cron expression
//   - selector: Chooses the partitions each tick targets
//   - opts: Optional settings
//
// Returns:
//   - *PartitionSchedule: The schedule
//   - error: ErrInvalidDefinition on an invalid name, cron expression or timezone
//
// Example:
//
//	sched, err := set.CreateSchedule("regions_hourly", "0 * * * *", dagster.LastPartitionSelector,
//	    dagster.WithExecutionTimezone("America/Chicago"),
//	)
func (s *PartitionSet) CreateSchedule(name, cronSchedule string, selector PartitionSelector, opts ...ScheduleOption) (*PartitionSchedule, error) {
	return newPartitionSchedule(s, name, cronSchedule, selector, opts...)
}
