package dagster

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/pomelocare/dagster/source"
	"github.com/pomelocare/dagster/store"
	dagstertest "github.com/pomelocare/dagster/testing"
)

const sampleConfig = `
store:
  backend: redis
  redisAddr: localhost:6379
  operationTimeout: 3s
definitions:
  - name: regions
    type: static
    keys: [us, eu]
  - name: daily
    type: time
    scheduleType: daily
    start: "2024-03-08"
    end: "2024-03-12"
    executionTime: "01:30"
    timezone: America/Chicago
  - name: customers
    type: dynamic
  - name: region_daily
    type: multi
    dimensions:
      region:
        type: static
        keys: [us, eu]
      date:
        type: time
        scheduleType: daily
        start: "2024-01-01"
        end: "2024-01-02"
`

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.Equal(t, StoreBackendMemory, cfg.Store.Backend)
	require.Equal(t, store.DefaultNATSBucket, cfg.Store.NATSBucket)
	require.Equal(t, store.DefaultRedisKeyPrefix, cfg.Store.RedisPrefix)
	require.Equal(t, 10*time.Second, cfg.Store.OperationTimeout)
	require.Equal(t, 10, cfg.Store.MaxRetries)
	require.Empty(t, cfg.Definitions)
	require.NoError(t, cfg.Validate())
}

func TestSetDefaults(t *testing.T) {
	t.Run("applies defaults to empty config", func(t *testing.T) {
		cfg := Config{}
		SetDefaults(&cfg)
		require.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("preserves custom values", func(t *testing.T) {
		cfg := Config{Store: StoreConfig{Backend: StoreBackendNATS, NATSBucket: "custom", MaxRetries: 3}}
		SetDefaults(&cfg)

		require.Equal(t, StoreBackendNATS, cfg.Store.Backend)
		require.Equal(t, "custom", cfg.Store.NATSBucket)
		require.Equal(t, 3, cfg.Store.MaxRetries)
		require.Equal(t, 10*time.Second, cfg.Store.OperationTimeout)
	})
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)

	require.Equal(t, StoreBackendRedis, cfg.Store.Backend)
	require.Equal(t, "localhost:6379", cfg.Store.RedisAddr)
	require.Equal(t, 3*time.Second, cfg.Store.OperationTimeout)
	require.Equal(t, store.DefaultRedisKeyPrefix, cfg.Store.RedisPrefix)
	require.Len(t, cfg.Definitions, 4)

	t.Run("round trip", func(t *testing.T) {
		data, err := yaml.Marshal(cfg)
		require.NoError(t, err)

		again, err := ParseConfig(data)
		require.NoError(t, err)
		require.Equal(t, cfg, again)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := ParseConfig([]byte("store: ["))
		require.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partitions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Definitions, 4)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Backend = "etcd"
	cfg.Store.MaxRetries = -1
	cfg.Definitions = []DefinitionConfig{
		{Name: "a", Type: DefinitionTypeStatic},
		{Name: "a", Type: DefinitionTypeTime, ScheduleType: "yearly", ExecutionTime: "25:00"},
		{Type: "graph"},
		{Name: "m", Type: DefinitionTypeMulti, Dimensions: map[string]DefinitionConfig{
			"d": {Type: DefinitionTypeDynamic, Name: "d"},
		}},
	}

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)

	// backend, retries, static keys, duplicate name, schedule type, start, execution
	// time, missing name, unknown type, dimension count, dimension type
	require.Len(t, multierr.Errors(err), 11)
}

func TestConfig_BuildDefinitions(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)

	defs, err := cfg.BuildDefinitions()
	require.NoError(t, err)
	require.Len(t, defs, 4)

	t.Run("static", func(t *testing.T) {
		keys, err := source.Keys(t.Context(), defs["regions"], time.Time{}, nil)
		require.NoError(t, err)
		require.Equal(t, []string{"us", "eu"}, keys)
	})

	t.Run("time in timezone", func(t *testing.T) {
		daily, ok := defs["daily"].(*source.TimeBased)
		require.True(t, ok)
		require.Equal(t, "America/Chicago", daily.Timezone())
		require.Equal(t, "30 1 * * *", daily.CronSchedule())

		chicago, err := time.LoadLocation("America/Chicago")
		require.NoError(t, err)
		require.True(t, daily.Start().Equal(time.Date(2024, 3, 8, 0, 0, 0, 0, chicago)))

		keys, err := source.Keys(t.Context(), daily, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), nil)
		require.NoError(t, err)
		require.Equal(t, []string{"2024-03-08", "2024-03-09", "2024-03-10", "2024-03-11", "2024-03-12"}, keys)
	})

	t.Run("dynamic", func(t *testing.T) {
		dyn, ok := defs["customers"].(*source.Dynamic)
		require.True(t, ok)
		require.Equal(t, "customers", dyn.Name())
	})

	t.Run("multi", func(t *testing.T) {
		keys, err := source.Keys(t.Context(), defs["region_daily"], time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), nil)
		require.NoError(t, err)
		require.Equal(t, []string{"2024-01-01|us", "2024-01-01|eu", "2024-01-02|us", "2024-01-02|eu"}, keys)
	})

	t.Run("invalid start", func(t *testing.T) {
		bad := Config{Definitions: []DefinitionConfig{
			{Name: "d", Type: DefinitionTypeTime, ScheduleType: "daily", Start: "not a date"},
		}}
		_, err := bad.BuildDefinitions()
		require.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestOpenStore(t *testing.T) {
	ctx := t.Context()

	t.Run("memory", func(t *testing.T) {
		st, closeFn, err := OpenStore(ctx, DefaultConfig().Store, StoreDeps{})
		require.NoError(t, err)
		require.IsType(t, &store.Memory{}, st)
		require.NoError(t, closeFn())
	})

	t.Run("redis with client", func(t *testing.T) {
		mini, client := dagstertest.StartMiniredis(t)
		cfg := DefaultConfig().Store
		cfg.Backend = StoreBackendRedis
		cfg.RedisPrefix = "etl"

		st, closeFn, err := OpenStore(ctx, cfg, StoreDeps{Redis: client})
		require.NoError(t, err)
		require.NoError(t, st.AddDynamicPartitions(ctx, "customers", []string{"acme"}))
		require.NoError(t, closeFn())

		members, err := mini.ZMembers("etl:customers")
		require.NoError(t, err)
		require.Equal(t, []string{"acme"}, members)

		// The supplied client stays open.
		require.NoError(t, client.Ping(ctx).Err())
	})

	t.Run("redis with address", func(t *testing.T) {
		mini, _ := dagstertest.StartMiniredis(t)
		cfg := DefaultConfig().Store
		cfg.Backend = StoreBackendRedis
		cfg.RedisAddr = mini.Addr()

		st, closeFn, err := OpenStore(ctx, cfg, StoreDeps{})
		require.NoError(t, err)
		defer func() { require.NoError(t, closeFn()) }()

		require.NoError(t, st.AddDynamicPartitions(ctx, "customers", []string{"acme"}))
		ok, err := st.HasDynamicPartition(ctx, "customers", "acme")
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("nats with connection", func(t *testing.T) {
		_, nc := dagstertest.StartEmbeddedNATS(t)
		cfg := DefaultConfig().Store
		cfg.Backend = StoreBackendNATS
		cfg.NATSBucket = "config-test"

		st, closeFn, err := OpenStore(ctx, cfg, StoreDeps{NATS: nc, Logger: dagstertest.NewTestLogger(t)})
		require.NoError(t, err)
		require.NoError(t, st.AddDynamicPartitions(ctx, "customers", []string{"acme", "globex"}))

		keys, err := st.GetDynamicPartitions(ctx, "customers")
		require.NoError(t, err)
		require.Equal(t, []string{"acme", "globex"}, keys)
		require.NoError(t, closeFn())
		require.True(t, nc.IsConnected())
	})

	t.Run("nats with url", func(t *testing.T) {
		ns, _ := dagstertest.StartEmbeddedNATS(t)
		cfg := DefaultConfig().Store
		cfg.Backend = StoreBackendNATS
		cfg.NATSURL = ns.ClientURL()

		st, closeFn, err := OpenStore(ctx, cfg, StoreDeps{})
		require.NoError(t, err)
		require.NoError(t, st.AddDynamicPartitions(ctx, "customers", []string{"acme"}))
		require.NoError(t, closeFn())
	})

	t.Run("missing connection settings", func(t *testing.T) {
		for _, backend := range []StoreBackend{StoreBackendNATS, StoreBackendRedis} {
			_, _, err := OpenStore(ctx, StoreConfig{Backend: backend}, StoreDeps{})
			require.ErrorIs(t, err, ErrInvalidConfig)
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, _, err := OpenStore(ctx, StoreConfig{Backend: "etcd"}, StoreDeps{})
		require.ErrorIs(t, err, ErrInvalidConfig)
	})
}
