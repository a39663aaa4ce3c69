package subset

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pomelocare/dagster/internal/metrics"
	"github.com/pomelocare/dagster/source"
	"github.com/pomelocare/dagster/types"
)

// SerializationVersion is the version written by Serialize. Bump it whenever the payload
// layout changes so older readers reject new payloads instead of misreading them.
const SerializationVersion = 1

// Deserialize results reported to types.MetricsCollector.
const (
	ResultOK                 = "ok"
	ResultLegacy             = "legacy"
	ResultUnsupportedVersion = "unsupported_version"
	ResultInvalid            = "invalid"
)

type payload struct {
	Version int      `json:"version"`
	Subset  []string `json:"subset"`
}

// probe tolerates any field types so that version mismatches can be told apart from
// malformed payloads.
type probe struct {
	Version json.RawMessage `json:"version"`
	Subset  json.RawMessage `json:"subset"`
}

func encode(keys []string) (string, error) {
	if keys == nil {
		keys = []string{}
	}
	b, err := json.Marshal(payload{Version: SerializationVersion, Subset: keys})
	if err != nil {
		return "", fmt.Errorf("failed to serialize subset: %w", err)
	}

	return string(b), nil
}

// Option configures Deserialize.
type Option func(*options)

type options struct {
	metrics types.MetricsCollector
}

// WithMetrics records the outcome of each Deserialize call.
func WithMetrics(m types.MetricsCollector) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// Deserialize decodes a persisted subset of def.
//
// Both the versioned object form and the legacy bare array are accepted.
//
// Returns:
//   - Subset: The decoded subset
//   - error: ErrUnsupportedSerializationVersion when the version is not
//     SerializationVersion, ErrInvalidSerializedSubset for malformed payloads
//
// Example:
//
//	s, err := subset.Deserialize(daily, `{"version": 1, "subset": ["2022-01-01"]}`)
func Deserialize(def source.Definition, serialized string, opts ...Option) (Subset, error) {
	o := options{metrics: metrics.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	keys, result, err := decode([]byte(serialized))
	o.metrics.RecordSubsetDeserialize(result)
	if err != nil {
		return nil, err
	}

	return newSubset(def, keys), nil
}

func decode(data []byte) ([]string, string, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var keys []string
		if err := json.Unmarshal(data, &keys); err != nil {
			return nil, ResultInvalid, fmt.Errorf("%w: %w", types.ErrInvalidSerializedSubset, err)
		}

		return keys, ResultLegacy, nil
	}

	var p probe
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, ResultInvalid, fmt.Errorf("%w: %w", types.ErrInvalidSerializedSubset, err)
	}

	if !isCurrentVersion(p.Version) {
		found := "none"
		if len(p.Version) > 0 {
			found = string(p.Version)
		}

		return nil, ResultUnsupportedVersion, fmt.Errorf("%w: attempted to deserialize partition subset with version %s, but only version %d is supported",
			types.ErrUnsupportedSerializationVersion, found, SerializationVersion)
	}

	var keys []string
	if len(p.Subset) == 0 || bytes.Equal(p.Subset, []byte("null")) {
		return nil, ResultInvalid, fmt.Errorf("%w: missing subset field", types.ErrInvalidSerializedSubset)
	}
	if err := json.Unmarshal(p.Subset, &keys); err != nil {
		return nil, ResultInvalid, fmt.Errorf("%w: subset field: %w", types.ErrInvalidSerializedSubset, err)
	}

	return keys, ResultOK, nil
}

// isCurrentVersion compares numerically, so 1 and 1.0 are the same version.
func isCurrentVersion(raw json.RawMessage) bool {
	var v float64
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return false
	}

	return v == SerializationVersion
}

// CanDeserialize reports whether serialized can be decoded as a subset of def.
//
// When className is set it decides alone: the payload was written for a definition of
// that kind. Otherwise the payload must be a bare array, or an object with a subset
// field and the current version. CanDeserialize never fails; anything it cannot
// interpret yields false. uniqueID is accepted for callers that record it but is not
// consulted.
func CanDeserialize(def source.Definition, serialized string, uniqueID string, className string) bool {
	if className != "" {
		return className == string(def.Kind())
	}

	_, _, err := decode([]byte(serialized))

	return err == nil
}
