package dagster

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/imdario/mergo"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/pomelocare/dagster/source"
	"github.com/pomelocare/dagster/store"
	"github.com/pomelocare/dagster/types"
)

// StoreBackend names a dynamic partitions store implementation.
type StoreBackend string

const (
	StoreBackendMemory StoreBackend = "memory"
	StoreBackendNATS   StoreBackend = "nats"
	StoreBackendRedis  StoreBackend = "redis"
)

// DefinitionType names a partitions definition variant in configuration.
type DefinitionType string

const (
	DefinitionTypeStatic  DefinitionType = "static"
	DefinitionTypeTime    DefinitionType = "time"
	DefinitionTypeDynamic DefinitionType = "dynamic"
	DefinitionTypeMulti   DefinitionType = "multi"
)

// StoreConfig selects and configures the dynamic partitions store.
type StoreConfig struct {
	// Backend is one of "memory", "nats" or "redis".
	Backend StoreBackend `yaml:"backend"`

	// NATSURL is dialed by OpenStore when no connection is supplied.
	NATSURL string `yaml:"natsUrl"`

	// NATSBucket is the JetStream KV bucket holding dynamic partition keys.
	NATSBucket string `yaml:"natsBucket"`

	// RedisAddr is dialed by OpenStore when no client is supplied.
	RedisAddr string `yaml:"redisAddr"`

	// RedisPrefix prefixes every Redis key the store writes.
	RedisPrefix string `yaml:"redisPrefix"`

	// OperationTimeout bounds store setup (bucket creation, connectivity checks).
	OperationTimeout time.Duration `yaml:"operationTimeout"`

	// MaxRetries bounds the compare-and-swap attempts of NATS KV writes.
	MaxRetries int `yaml:"maxRetries"`
}

// DefinitionConfig declares one partitions definition.
//
// Which fields apply depends on Type:
//   - static: Keys
//   - time: ScheduleType, Start, End, ExecutionTime, ExecutionDay, Format, Timezone, Offset
//   - dynamic: Name (the store key)
//   - multi: Dimensions (exactly two, each static or time)
type DefinitionConfig struct {
	Name          string                      `yaml:"name,omitempty"`
	Type          DefinitionType              `yaml:"type"`
	Keys          []string                    `yaml:"keys,omitempty"`
	ScheduleType  string                      `yaml:"scheduleType,omitempty"`
	Start         string                      `yaml:"start,omitempty"`
	End           string                      `yaml:"end,omitempty"`
	ExecutionTime string                      `yaml:"executionTime,omitempty"` // "HH:MM"
	ExecutionDay  *int                        `yaml:"executionDay,omitempty"`
	Format        string                      `yaml:"format,omitempty"`
	Timezone      string                      `yaml:"timezone,omitempty"`
	Offset        *int                        `yaml:"offset,omitempty"`
	Dimensions    map[string]DefinitionConfig `yaml:"dimensions,omitempty"`
}

// Config declares the partitions definitions of a deployment and the store backing its
// dynamic definitions.
//
// Example:
//
//	store:
//	  backend: nats
//	  natsUrl: nats://localhost:4222
//	definitions:
//	  - name: daily
//	    type: time
//	    scheduleType: daily
//	    start: "2022-01-01"
//	    executionTime: "01:30"
//	  - name: customers
//	    type: dynamic
type Config struct {
	Store       StoreConfig        `yaml:"store"`
	Definitions []DefinitionConfig `yaml:"definitions"`
}

// DefaultConfig returns the default configuration: an in-memory store and no
// definitions.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Backend:          StoreBackendMemory,
			NATSBucket:       store.DefaultNATSBucket,
			RedisPrefix:      store.DefaultRedisKeyPrefix,
			OperationTimeout: 10 * time.Second,
			MaxRetries:       10,
		},
	}
}

// SetDefaults fills in missing configuration values with defaults.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	// Merge only fails when dst and src have different types.
	_ = mergo.Merge(cfg, DefaultConfig())
}

// Validate checks the configuration without building anything.
//
// Every problem is reported, combined with multierr.
//
// Returns:
//   - error: ErrInvalidConfig describing each problem, nil if valid
func (cfg *Config) Validate() error {
	var err error

	switch cfg.Store.Backend {
	case StoreBackendMemory, StoreBackendNATS, StoreBackendRedis:
	default:
		err = multierr.Append(err, fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, cfg.Store.Backend))
	}
	if cfg.Store.OperationTimeout < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: operationTimeout must be >= 0, got %v",
			ErrInvalidConfig, cfg.Store.OperationTimeout))
	}
	if cfg.Store.MaxRetries < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: maxRetries must be >= 0, got %d", ErrInvalidConfig, cfg.Store.MaxRetries))
	}

	seen := make(map[string]bool, len(cfg.Definitions))
	for i, dc := range cfg.Definitions {
		if dc.Name == "" {
			err = multierr.Append(err, fmt.Errorf("%w: definitions[%d] has no name", ErrInvalidConfig, i))
		} else if seen[dc.Name] {
			err = multierr.Append(err, fmt.Errorf("%w: duplicate definition name %q", ErrInvalidConfig, dc.Name))
		}
		seen[dc.Name] = true
		err = multierr.Append(err, dc.validate(fmt.Sprintf("definitions[%d]", i)))
	}

	return err
}

func (dc DefinitionConfig) validate(path string) error {
	var err error

	switch dc.Type {
	case DefinitionTypeStatic:
		if len(dc.Keys) == 0 {
			err = multierr.Append(err, fmt.Errorf("%w: %s: static definition requires keys", ErrInvalidConfig, path))
		}
	case DefinitionTypeTime:
		if _, perr := types.ParseScheduleType(dc.ScheduleType); perr != nil {
			err = multierr.Append(err, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, perr))
		}
		if dc.Start == "" {
			err = multierr.Append(err, fmt.Errorf("%w: %s: time definition requires start", ErrInvalidConfig, path))
		}
		if dc.ExecutionTime != "" {
			if _, _, perr := parseClock(dc.ExecutionTime); perr != nil {
				err = multierr.Append(err, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, perr))
			}
		}
	case DefinitionTypeDynamic:
		if dc.Name == "" {
			err = multierr.Append(err, fmt.Errorf("%w: %s: dynamic definition requires a name", ErrInvalidConfig, path))
		}
	case DefinitionTypeMulti:
		if len(dc.Dimensions) != 2 {
			err = multierr.Append(err, fmt.Errorf("%w: %s: multi definition requires exactly 2 dimensions, got %d",
				ErrInvalidConfig, path, len(dc.Dimensions)))
		}
		for dim, sub := range dc.Dimensions {
			if sub.Type != DefinitionTypeStatic && sub.Type != DefinitionTypeTime {
				err = multierr.Append(err, fmt.Errorf("%w: %s.dimensions.%s: dimension must be static or time, got %q",
					ErrInvalidConfig, path, dim, sub.Type))
				continue
			}
			err = multierr.Append(err, sub.validate(path+".dimensions."+dim))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("%w: %s: unknown definition type %q", ErrInvalidConfig, path, dc.Type))
	}

	return err
}

// parseClock parses "HH:MM".
func parseClock(s string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("execution time %q must be HH:MM", s)
	}
	if hour, err = strconv.Atoi(h); err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("execution time %q has invalid hour", s)
	}
	if minute, err = strconv.Atoi(m); err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("execution time %q has invalid minute", s)
	}

	return hour, minute, nil
}

// LoadConfig reads, defaults and validates a YAML configuration file.
//
// Parameters:
//   - path: Path to the YAML file
//
// Returns:
//   - *Config: The loaded configuration
//   - error: Read, parse or validation error
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	return ParseConfig(data)
}

// ParseConfig parses, defaults and validates a YAML configuration.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// BuildDefinitions constructs every configured definition, keyed by name.
//
// Start and end values are parsed with dateparse in the definition's timezone, so
// "2022-01-01" means local midnight there.
//
// Returns:
//   - map[string]source.Definition: Definitions by name
//   - error: ErrInvalidConfig or ErrInvalidDefinition for the first definition that
//     fails to build
func (cfg *Config) BuildDefinitions() (map[string]source.Definition, error) {
	defs := make(map[string]source.Definition, len(cfg.Definitions))
	for _, dc := range cfg.Definitions {
		def, err := dc.Build()
		if err != nil {
			return nil, fmt.Errorf("definition %s: %w", dc.Name, err)
		}
		defs[dc.Name] = def
	}

	return defs, nil
}

// Build constructs the definition dc declares.
func (dc DefinitionConfig) Build() (source.Definition, error) {
	switch dc.Type {
	case DefinitionTypeStatic:
		return source.NewStatic(dc.Keys)
	case DefinitionTypeTime:
		return dc.buildTimeBased()
	case DefinitionTypeDynamic:
		return source.NewNamedDynamic(dc.Name)
	case DefinitionTypeMulti:
		dims := make(map[string]source.Definition, len(dc.Dimensions))
		for name, sub := range dc.Dimensions {
			def, err := sub.Build()
			if err != nil {
				return nil, fmt.Errorf("dimension %s: %w", name, err)
			}
			dims[name] = def
		}

		return source.NewMulti(dims)
	default:
		return nil, fmt.Errorf("%w: unknown definition type %q", ErrInvalidConfig, dc.Type)
	}
}

func (dc DefinitionConfig) buildTimeBased() (*source.TimeBased, error) {
	st, err := types.ParseScheduleType(dc.ScheduleType)
	if err != nil {
		return nil, err
	}

	tz := dc.Timezone
	if tz == "" {
		tz = source.DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q: %w", ErrInvalidConfig, tz, err)
	}

	start, err := dateparse.ParseIn(dc.Start, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid start %q: %w", ErrInvalidConfig, dc.Start, err)
	}

	opts := []source.TimeBasedOption{source.WithTimezone(tz)}
	if dc.End != "" {
		end, err := dateparse.ParseIn(dc.End, loc)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid end %q: %w", ErrInvalidConfig, dc.End, err)
		}
		opts = append(opts, source.WithEnd(end))
	}
	if dc.ExecutionTime != "" {
		hour, minute, err := parseClock(dc.ExecutionTime)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		opts = append(opts, source.WithExecutionTime(hour, minute))
	}
	if dc.ExecutionDay != nil {
		opts = append(opts, source.WithExecutionDay(*dc.ExecutionDay))
	}
	if dc.Format != "" {
		opts = append(opts, source.WithFormat(dc.Format))
	}
	if dc.Offset != nil {
		opts = append(opts, source.WithOffset(*dc.Offset))
	}

	return source.NewTimeBased(st, start, opts...)
}

// StoreDeps supplies connections and observability to OpenStore.
//
// Connections supplied here are never closed by the returned close function.
type StoreDeps struct {
	NATS    *nats.Conn
	Redis   redis.UniversalClient
	Logger  Logger
	Metrics MetricsCollector
}

// OpenStore builds the dynamic partitions store cfg selects.
//
// When the backend needs a connection that deps does not supply, OpenStore dials the
// configured address and the returned close function closes it.
//
// Parameters:
//   - ctx: Context for connectivity checks and bucket creation
//   - cfg: Store configuration (defaults applied)
//   - deps: Optional connections, logger and metrics
//
// Returns:
//   - DynamicPartitionsStore: The store
//   - func() error: Releases connections OpenStore dialed
//   - error: ErrInvalidConfig for an unknown backend or a missing address,
//     ErrStoreUnavailable when the backend cannot be reached
func OpenStore(ctx context.Context, cfg StoreConfig, deps StoreDeps) (DynamicPartitionsStore, func() error, error) {
	noop := func() error { return nil }

	var opts []store.Option
	if deps.Logger != nil {
		opts = append(opts, store.WithLogger(deps.Logger))
	}
	if deps.Metrics != nil {
		opts = append(opts, store.WithMetrics(deps.Metrics))
	}

	if cfg.OperationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.OperationTimeout)
		defer cancel()
	}

	switch cfg.Backend {
	case StoreBackendMemory, "":
		return store.NewMemory(opts...), noop, nil

	case StoreBackendNATS:
		nc, closeFn := deps.NATS, noop
		if nc == nil {
			if cfg.NATSURL == "" {
				return nil, nil, fmt.Errorf("%w: nats store requires a connection or natsUrl", ErrInvalidConfig)
			}
			var err error
			if nc, err = nats.Connect(cfg.NATSURL); err != nil {
				return nil, nil, fmt.Errorf("%w: failed to connect to %s: %w", ErrStoreUnavailable, cfg.NATSURL, err)
			}
			closeFn = func() error {
				nc.Close()
				return nil
			}
		}
		js, err := jetstream.New(nc)
		if err != nil {
			_ = closeFn()
			return nil, nil, fmt.Errorf("%w: failed to create JetStream context: %w", ErrStoreUnavailable, err)
		}
		st, err := store.NewNATSKV(ctx, js, cfg.NATSBucket, append(opts, store.WithMaxRetries(cfg.MaxRetries))...)
		if err != nil {
			_ = closeFn()
			return nil, nil, err
		}

		return st, closeFn, nil

	case StoreBackendRedis:
		client, closeFn := deps.Redis, noop
		if client == nil {
			if cfg.RedisAddr == "" {
				return nil, nil, fmt.Errorf("%w: redis store requires a client or redisAddr", ErrInvalidConfig)
			}
			c := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			if err := c.Ping(ctx).Err(); err != nil {
				_ = c.Close()
				return nil, nil, fmt.Errorf("%w: failed to reach %s: %w", ErrStoreUnavailable, cfg.RedisAddr, err)
			}
			client, closeFn = c, c.Close
		}

		return store.NewRedis(client, append(opts, store.WithKeyPrefix(cfg.RedisPrefix))...), closeFn, nil

	default:
		return nil, nil, fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, cfg.Backend)
	}
}
