package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ProductCatalog/internal/catalog"
)

var envKeys = []string{
	FileEnv, "PORT", "CATALOG_LOG_LEVEL", "CATALOG_STORE", "CATALOG_DB_DSN",
	"CATALOG_ID_STRATEGY", "CATALOG_STRICT_VALIDATION", "CATALOG_WRITE_LIMIT_PER_MIN",
	"CATALOG_NATS_URL", "CATALOG_NATS_SUBJECT_PREFIX", "CATALOG_METRICS_ENABLED",
	"CATALOG_METRICS_TOKEN", "CATALOG_BASE_URL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, "8082", cfg.Port)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.False(t, cfg.StrictValidation)
	assert.True(t, cfg.MetricsEnabled)
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
store: postgres
db_dsn: postgres://catalog@db/catalog
id_strategy: clock
strict_validation: true
write_limit_per_min: 30
nats_url: nats://nats:4222
metrics_enabled: false
`), 0o600))

	t.Setenv(FileEnv, path)
	t.Setenv("PORT", "9100")
	t.Setenv("CATALOG_METRICS_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, "postgres://catalog@db/catalog", cfg.DBDSN)
	assert.Equal(t, IDStrategyClock, cfg.IDStrategy)
	assert.True(t, cfg.StrictValidation)
	assert.Equal(t, 30, cfg.WriteLimitPerMin)
	assert.Equal(t, "nats://nats:4222", cfg.NATSURL)
	assert.Equal(t, "catalog", cfg.NATSSubjectPrefix)
	assert.True(t, cfg.MetricsEnabled)
}

func TestLoadEnvParseErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("CATALOG_STRICT_VALIDATION", "maybe")
	t.Setenv("CATALOG_WRITE_LIMIT_PER_MIN", "lots")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CATALOG_STRICT_VALIDATION")
	assert.Contains(t, err.Error(), "CATALOG_WRITE_LIMIT_PER_MIN")
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(FileEnv, filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown store":     func(c *Config) { c.Store = "redis" },
		"sql without dsn":   func(c *Config) { c.Store = StoreMySQL },
		"unknown id":        func(c *Config) { c.IDStrategy = "uuid" },
		"empty port":        func(c *Config) { c.Port = "" },
		"negative limiting": func(c *Config) { c.WriteLimitPerMin = -1 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Defaults()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Defaults().Validate())
}

func TestIDStrategiesBuildGenerators(t *testing.T) {
	for _, strategy := range []string{IDStrategySequence, IDStrategyClock} {
		cfg := Defaults()
		cfg.IDStrategy = strategy
		require.NoError(t, cfg.Validate(), strategy)

		_, err := catalog.NewIDGenerator(cfg.IDStrategy)
		assert.NoError(t, err, strategy)
	}
}

func TestLoadBaseURL(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8082", cfg.BaseURL)

	t.Setenv("CATALOG_BASE_URL", "http://catalog:9000")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "http://catalog:9000", cfg.BaseURL)
}
