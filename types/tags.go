package types

import (
	"fmt"
	"sort"
	"strings"
)

// Reserved run tags.
const (
	// SystemTagPrefix prefixes every tag owned by the system. User tag functions may not
	// emit tags starting with it.
	SystemTagPrefix = "dagster/"

	// PartitionNameTag records the partition a run was launched for.
	PartitionNameTag = SystemTagPrefix + "partition"

	// PartitionSetTag records the partition set a run was launched from.
	PartitionSetTag = SystemTagPrefix + "partition_set"

	// MultiPartitionTagPrefix prefixes the per-dimension tags of a multi-dimensional partition.
	MultiPartitionTagPrefix = PartitionNameTag + "/"
)

// MultiPartitionTag returns the tag name carrying the key of one dimension.
func MultiPartitionTag(dimension string) string {
	return MultiPartitionTagPrefix + dimension
}

// ValidateTags rejects tags that use the reserved system prefix.
//
// Returns:
//   - error: ErrReservedTag naming every offending tag, nil when all tags are allowed
func ValidateTags(tags map[string]string) error {
	var reserved []string
	for name := range tags {
		if strings.HasPrefix(name, SystemTagPrefix) {
			reserved = append(reserved, name)
		}
	}
	if len(reserved) == 0 {
		return nil
	}
	sort.Strings(reserved)

	return fmt.Errorf("%w: attempted to set tag with reserved system prefix %q: %s",
		ErrReservedTag, SystemTagPrefix, strings.Join(reserved, ", "))
}
