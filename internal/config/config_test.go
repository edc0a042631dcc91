package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/vitalsd/internal/config"
	"codeberg.org/mutker/vitalsd/internal/errors"
	"codeberg.org/mutker/vitalsd/internal/publish"
	"codeberg.org/mutker/vitalsd/internal/scheduler"
	"codeberg.org/mutker/vitalsd/internal/simulation"
	"codeberg.org/mutker/vitalsd/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the loader at files that do not exist so a developer's
// .env or /etc config never leaks into a test.
func isolate(t *testing.T) []config.Option {
	t.Helper()
	t.Setenv("VITALSD_CONFIG", "")
	return []config.Option{config.WithEnvFile(filepath.Join(t.TempDir(), "missing.env"))}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(nil, isolate(t)...)
	require.NoError(t, err, "Failed to load config")

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, store.DefaultConfig(), cfg.StoreConfig())
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.True(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.Simulation.Enabled)
	assert.Equal(t, "patient", cfg.Simulation.Role)
	assert.Equal(t, publish.DefaultConfig(), cfg.PublishConfig())

	assert.Equal(t, []scheduler.Entry{
		{Job: simulation.JobHeartRate, Interval: time.Minute},
		{Job: simulation.JobBloodPressure, Interval: 5 * time.Minute},
		{Job: simulation.JobSpO2, Interval: time.Minute},
		{Job: simulation.JobDaily, Interval: 24 * time.Hour},
	}, cfg.Schedule())
}

func TestLoadFromFile(t *testing.T) {
	opts := isolate(t)
	path := writeFile(t, "vitalsd.toml", `
log_level = "debug"
timezone = "Europe/Stockholm"

[database]
driver = "postgres"
dsn = "postgres://vitals@localhost/vitals?sslmode=disable"

[simulation]
enabled = true
role = ""
heart_rate_interval = "30s"

[publish]
backend = "kafka"

[publish.kafka]
brokers = ["k1:9092", "k2:9092"]
topic = "readings"
`)

	cfg, err := config.Load([]string{"--config", path}, opts...)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, store.DriverPostgres, cfg.Database.Driver)
	assert.True(t, cfg.Simulation.Enabled)
	assert.Equal(t, "", cfg.Simulation.Role)
	assert.Equal(t, 30*time.Second, cfg.Simulation.HeartRateInterval)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Publish.Kafka.Brokers)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Stockholm", loc.String())
}

func TestPrecedence(t *testing.T) {
	opts := isolate(t)
	path := writeFile(t, "vitalsd.toml", `
log_level = "error"

[http]
addr = ":7000"

[simulation]
workers = 2
`)
	t.Setenv("VITALSD_CONFIG", path)
	t.Setenv("VITALSD_HTTP_ADDR", ":7100")
	t.Setenv("VITALSD_SIMULATION_WORKERS", "3")

	cfg, err := config.Load([]string{"--workers", "4"}, opts...)
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.LogLevel, "file over default")
	assert.Equal(t, ":7100", cfg.HTTP.Addr, "env over file")
	assert.Equal(t, 4, cfg.Simulation.Workers, "flag over env")
}

func TestDotEnvFile(t *testing.T) {
	isolate(t)
	const key = "VITALSD_PUBLISH_REDIS_STREAM"
	t.Cleanup(func() { os.Unsetenv(key) })

	envFile := writeFile(t, "test.env", key+"=from-dotenv\n")
	cfg, err := config.Load([]string{"--env-file", envFile})
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Publish.Redis.Stream)
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	opts := isolate(t)
	path := writeFile(t, "vitalsd.toml", "This is not a valid TOML file\n")

	_, err := config.Load([]string{"--config", path}, opts...)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))

	_, err = config.Load(nil, append(opts, config.WithConfigFile(filepath.Join(t.TempDir(), "nope.toml")))...)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestLoadRejectsUnknownFlag(t *testing.T) {
	_, err := config.Load([]string{"--fanspeed", "80"}, isolate(t)...)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidArgument))
}

func TestValidate(t *testing.T) {
	valid := func(t *testing.T) *config.Config {
		cfg, err := config.Load(nil, isolate(t)...)
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
		code   errors.ErrorCode
	}{
		{"log level", func(c *config.Config) { c.LogLevel = "loud" }, errors.ErrInvalidLogLevel},
		{"log format", func(c *config.Config) { c.LogFormat = "xml" }, errors.ErrInvalidConfig},
		{"timezone", func(c *config.Config) { c.Timezone = "Mars/Olympus" }, errors.ErrInvalidConfig},
		{"driver", func(c *config.Config) { c.Database.Driver = "mysql" }, store.ErrUnsupportedDriver},
		{"workers", func(c *config.Config) { c.Simulation.Workers = 0 }, errors.ErrInvalidConfig},
		{"role", func(c *config.Config) { c.Simulation.Role = "patients" }, errors.ErrInvalidConfig},
		{"interval", func(c *config.Config) { c.Simulation.SpO2Interval = 0 }, errors.ErrInvalidInterval},
		{"publish backend", func(c *config.Config) { c.Publish.Backend = "nats" }, publish.ErrUnsupportedBackend},
		{"http addr", func(c *config.Config) { c.HTTP.Addr = "" }, errors.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid(t)
			tt.mutate(cfg)
			assert.True(t, errors.HasCode(cfg.Validate(), tt.code))
		})
	}
}

func TestValidateAllowsEmptyRole(t *testing.T) {
	cfg, err := config.Load(nil, isolate(t)...)
	require.NoError(t, err)
	cfg.Simulation.Role = ""
	assert.NoError(t, cfg.Validate())
}
