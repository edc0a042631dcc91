// Package config loads the service configuration from defaults, a TOML
// file, a dotenv file, the environment and command-line flags, in
// increasing order of precedence.
package config

import (
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/vitalsd/internal/errors"
	"codeberg.org/mutker/vitalsd/internal/logger"
	"codeberg.org/mutker/vitalsd/internal/publish"
	"codeberg.org/mutker/vitalsd/internal/scheduler"
	"codeberg.org/mutker/vitalsd/internal/simulation"
	"codeberg.org/mutker/vitalsd/internal/store"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultEnvPrefix  = "VITALSD"
	defaultConfigFile = "/etc/vitalsd.toml"
	defaultEnvFile    = ".env"
)

type Config struct {
	LogLevel   string           `mapstructure:"log_level"`
	LogFormat  string           `mapstructure:"log_format"`
	LogFile    string           `mapstructure:"log_file"`
	Timezone   string           `mapstructure:"timezone"`
	PIDFile    string           `mapstructure:"pid_file"`
	Database   DatabaseConfig   `mapstructure:"database"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Publish    PublishConfig    `mapstructure:"publish"`
}

type DatabaseConfig struct {
	Driver    string `mapstructure:"driver"`
	DSN       string `mapstructure:"dsn"`
	BackupDir string `mapstructure:"backup_dir"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type SimulationConfig struct {
	Enabled               bool          `mapstructure:"enabled"`
	Role                  string        `mapstructure:"role"`
	Workers               int           `mapstructure:"workers"`
	RunOnStart            bool          `mapstructure:"run_on_start"`
	HeartRateInterval     time.Duration `mapstructure:"heart_rate_interval"`
	BloodPressureInterval time.Duration `mapstructure:"blood_pressure_interval"`
	SpO2Interval          time.Duration `mapstructure:"spo2_interval"`
	DailyInterval         time.Duration `mapstructure:"daily_interval"`
}

type PublishConfig struct {
	Backend string      `mapstructure:"backend"`
	Redis   RedisConfig `mapstructure:"redis"`
	Kafka   KafkaConfig `mapstructure:"kafka"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Stream   string `mapstructure:"stream"`
	MaxLen   int64  `mapstructure:"max_len"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

func setDefaults(v *viper.Viper) {
	db := store.DefaultConfig()
	pub := publish.DefaultConfig()

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("log_file", "")
	v.SetDefault("timezone", "UTC")
	v.SetDefault("pid_file", "/run/vitalsd.pid")

	v.SetDefault("database.driver", db.Driver)
	v.SetDefault("database.dsn", db.DSN)
	v.SetDefault("database.backup_dir", db.BackupDir)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("metrics.enabled", true)

	v.SetDefault("simulation.enabled", false)
	v.SetDefault("simulation.role", "patient")
	v.SetDefault("simulation.workers", 8)
	v.SetDefault("simulation.run_on_start", false)
	v.SetDefault("simulation.heart_rate_interval", 60*time.Second)
	v.SetDefault("simulation.blood_pressure_interval", 5*time.Minute)
	v.SetDefault("simulation.spo2_interval", 60*time.Second)
	v.SetDefault("simulation.daily_interval", 24*time.Hour)

	v.SetDefault("publish.backend", pub.Backend)
	v.SetDefault("publish.redis.addr", pub.Redis.Addr)
	v.SetDefault("publish.redis.password", "")
	v.SetDefault("publish.redis.db", 0)
	v.SetDefault("publish.redis.stream", pub.Redis.Stream)
	v.SetDefault("publish.redis.max_len", pub.Redis.MaxLen)
	v.SetDefault("publish.kafka.brokers", pub.Kafka.Brokers)
	v.SetDefault("publish.kafka.topic", pub.Kafka.Topic)
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"log-level":  "log_level",
	"log-format": "log_format",
	"log-file":   "log_file",
	"timezone":   "timezone",
	"pid-file":   "pid_file",
	"db-driver":  "database.driver",
	"db-dsn":     "database.dsn",
	"http-addr":  "http.addr",
	"simulate":   "simulation.enabled",
	"role":       "simulation.role",
	"workers":    "simulation.workers",
	"publish":    "publish.backend",
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("vitalsd", pflag.ContinueOnError)
	fs.String("config", "", "Path to a TOML configuration file")
	fs.String("env-file", "", "Path to a dotenv file")
	fs.String("log-level", "info", "Log level: debug, info, warn, error")
	fs.String("log-format", "json", "Log format: json or console")
	fs.String("log-file", "", "Write logs to this file, rotated daily")
	fs.String("timezone", "UTC", "IANA zone used for time-of-day and calendar-day analytics")
	fs.String("pid-file", "/run/vitalsd.pid", "PID file path")
	fs.String("db-driver", store.DriverSQLite, "Database driver: sqlite3 or postgres")
	fs.String("db-dsn", "", "Database file path or connection string")
	fs.String("http-addr", ":8080", "HTTP listen address")
	fs.Bool("simulate", false, "Run the synthetic data generator")
	fs.String("role", "patient", "Generate data for users with this role; empty for all users")
	fs.Int("workers", 8, "Concurrent users per generation batch")
	fs.String("publish", publish.BackendNone, "Reading event backend: none, redis or kafka")
	return fs
}

// Load reads the configuration. args are the command-line arguments
// without the program name.
func Load(args []string, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := options{envPrefix: defaultEnvPrefix, envFile: defaultEnvFile}
	for _, opt := range opts {
		opt(&o)
	}

	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidArgument, err)
	}
	if path, _ := fs.GetString("env-file"); path != "" {
		o.envFile = path
	}
	if path, _ := fs.GetString("config"); path != "" {
		o.configPath = path
	}

	// dotenv values never override the real environment
	if err := godotenv.Load(o.envFile); err != nil && !os.IsNotExist(err) {
		return nil, errFactory.WithData(errors.ErrReadConfig, struct {
			Path  string
			Error string
		}{
			Path:  o.envFile,
			Error: err.Error(),
		})
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if o.configPath == "" {
		o.configPath = os.Getenv(o.envPrefix + "_CONFIG")
	}
	if err := readConfigFile(v, o.configPath); err != nil {
		return nil, err
	}

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// readConfigFile reads an explicit path, which must exist, or the system
// default if one is present.
func readConfigFile(v *viper.Viper, path string) error {
	explicit := path != ""
	if !explicit {
		if _, err := os.Stat(defaultConfigFile); err != nil {
			return nil
		}
		path = defaultConfigFile
	}

	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return errors.New().WithData(errors.ErrReadConfig, struct {
			Path  string
			Error string
		}{
			Path:  path,
			Error: err.Error(),
		})
	}

	logger.Debug().Str("path", v.ConfigFileUsed()).Msg("Configuration file loaded")
	return nil
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return errFactory.WithMessage(errors.ErrInvalidConfig, "log_format must be json or console")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if err := c.StoreConfig().Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "http.addr is required")
	}
	if role := store.Role(c.Simulation.Role); role != "" && !role.IsValid() {
		return errFactory.WithData(errors.ErrInvalidConfig, struct {
			Field string
			Value string
		}{
			Field: "simulation.role",
			Value: c.Simulation.Role,
		})
	}
	if c.Simulation.Workers <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, struct {
			Field string
			Value int
		}{
			Field: "simulation.workers",
			Value: c.Simulation.Workers,
		})
	}
	for _, e := range c.Schedule() {
		if e.Interval <= 0 {
			return errFactory.WithData(errors.ErrInvalidInterval, struct {
				Job      string
				Interval string
			}{
				Job:      string(e.Job),
				Interval: e.Interval.String(),
			})
		}
	}
	return c.PublishConfig().Validate()
}

// Location resolves the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.New().WithData(errors.ErrInvalidConfig, struct {
			Field string
			Value string
			Error string
		}{
			Field: "timezone",
			Value: c.Timezone,
			Error: err.Error(),
		})
	}
	return loc, nil
}

func (c *Config) LoggerOptions() logger.Options {
	return logger.Options{Level: c.LogLevel, Format: c.LogFormat, File: c.LogFile}
}

func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Driver:    c.Database.Driver,
		DSN:       c.Database.DSN,
		BackupDir: c.Database.BackupDir,
	}
}

func (c *Config) PublishConfig() publish.Config {
	return publish.Config{
		Backend: c.Publish.Backend,
		Redis: publish.RedisConfig{
			Addr:     c.Publish.Redis.Addr,
			Password: c.Publish.Redis.Password,
			DB:       c.Publish.Redis.DB,
			Stream:   c.Publish.Redis.Stream,
			MaxLen:   c.Publish.Redis.MaxLen,
		},
		Kafka: publish.KafkaConfig{
			Brokers: c.Publish.Kafka.Brokers,
			Topic:   c.Publish.Kafka.Topic,
		},
	}
}

// Schedule lists the generation jobs with their configured intervals.
func (c *Config) Schedule() []scheduler.Entry {
	return []scheduler.Entry{
		{Job: simulation.JobHeartRate, Interval: c.Simulation.HeartRateInterval},
		{Job: simulation.JobBloodPressure, Interval: c.Simulation.BloodPressureInterval},
		{Job: simulation.JobSpO2, Interval: c.Simulation.SpO2Interval},
		{Job: simulation.JobDaily, Interval: c.Simulation.DailyInterval},
	}
}
