package dagster

import (
	"fmt"

	"github.com/mitchellh/copystructure"
)

// deepCopyConfig returns a copy of cfg sharing no maps or slices with it.
func deepCopyConfig(cfg map[string]any) (map[string]any, error) {
	if cfg == nil {
		return nil, nil
	}

	copied, err := copystructure.Copy(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to copy run config: %w", err)
	}

	out, ok := copied.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("failed to copy run config: unexpected type %T", copied)
	}

	return out, nil
}
