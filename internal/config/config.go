package config

import (
	"fmt"
	"math"
	"math/bits"
	"os"
	"strconv"
	"strings"
	"time"

	"gopi/internal"
	"gopi/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Experiment ExperimentConfig
	Server     ServerConfig
	Jobs       JobsConfig
	Database   DatabaseConfig
	Log        LogConfig
}

// ExperimentConfig holds defaults and limits for experiment runs
type ExperimentConfig struct {
	Trials            int
	PointsPerTrial    int
	Confidence        float64
	SeedKey           []uint32
	Workers           int
	MaxTrials         int
	MaxPointsPerTrial int
	MaxBatchRuns      int
	CriticalValues    string // "exact" or "reference"
}

// MaxStreamOffset is the furthest a batch can advance its stream: two draws
// per point over MaxBatchRuns runs of the largest size. It saturates at
// math.MaxInt64 so offsets always fit a signed 64-bit column.
func (e ExperimentConfig) MaxStreamOffset() uint64 {
	limit := uint64(2)
	for _, f := range []int{e.MaxTrials, e.MaxPointsPerTrial, e.MaxBatchRuns} {
		if f <= 0 {
			return 0
		}
		hi, lo := bits.Mul64(limit, uint64(f))
		if hi != 0 || lo > math.MaxInt64 {
			return math.MaxInt64
		}
		limit = lo
	}
	return limit
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// JobsConfig sizes the background experiment queue
type JobsConfig struct {
	Workers   int
	QueueSize int
	Retention time.Duration // finished jobs older than this are dropped
}

// DatabaseConfig holds the optional run archive connection. An empty URL
// disables the archive.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Enabled reports whether a database URL is configured
func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// LogConfig holds logging settings
type LogConfig struct {
	Level internal.LogLevel
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	experimentConfig, err := loadExperimentConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load experiment configuration")
	}
	config.Experiment = *experimentConfig

	config.Server = *loadServerConfig()
	config.Jobs = *loadJobsConfig()
	config.Database = *loadDatabaseConfig()

	logConfig, err := loadLogConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load log configuration")
	}
	config.Log = *logConfig

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// Default returns the configuration Load produces with an empty environment
func Default() *Config {
	return &Config{
		Experiment: ExperimentConfig{
			Trials:            10,
			PointsPerTrial:    1000000,
			Confidence:        0.95,
			SeedKey:           []uint32{0x123, 0x234, 0x345, 0x456},
			Workers:           1,
			MaxTrials:         100000,
			MaxPointsPerTrial: 1000000000,
			MaxBatchRuns:      1000,
			CriticalValues:    "exact",
		},
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 5 * time.Minute,
		},
		Jobs: JobsConfig{
			Workers:   2,
			QueueSize: 64,
			Retention: 2 * time.Hour,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Log: LogConfig{Level: internal.LogLevelInfo},
	}
}

func loadExperimentConfig() (*ExperimentConfig, error) {
	defaults := Default().Experiment

	key := defaults.SeedKey
	if raw := os.Getenv("PI_SEED_KEY"); raw != "" {
		parsed, err := ParseSeedKey(raw)
		if err != nil {
			return nil, err
		}
		key = parsed
	}

	return &ExperimentConfig{
		Trials:            getEnvIntOrDefault("PI_TRIALS", defaults.Trials),
		PointsPerTrial:    getEnvIntOrDefault("PI_POINTS", defaults.PointsPerTrial),
		Confidence:        getEnvFloatOrDefault("PI_CONFIDENCE", defaults.Confidence),
		SeedKey:           key,
		Workers:           getEnvIntOrDefault("PI_WORKERS", defaults.Workers),
		MaxTrials:         getEnvIntOrDefault("PI_MAX_TRIALS", defaults.MaxTrials),
		MaxPointsPerTrial: getEnvIntOrDefault("PI_MAX_POINTS", defaults.MaxPointsPerTrial),
		MaxBatchRuns:      getEnvIntOrDefault("PI_MAX_BATCH_RUNS", defaults.MaxBatchRuns),
		CriticalValues:    strings.ToLower(getEnvOrDefault("PI_CRITICAL_VALUES", defaults.CriticalValues)),
	}, nil
}

func loadServerConfig() *ServerConfig {
	defaults := Default().Server
	return &ServerConfig{
		Port:         getEnvOrDefault("PORT", defaults.Port),
		ReadTimeout:  getEnvDurationOrDefault("SERVER_READ_TIMEOUT", defaults.ReadTimeout),
		WriteTimeout: getEnvDurationOrDefault("SERVER_WRITE_TIMEOUT", defaults.WriteTimeout),
	}
}

func loadJobsConfig() *JobsConfig {
	defaults := Default().Jobs
	return &JobsConfig{
		Workers:   getEnvIntOrDefault("PI_JOB_WORKERS", defaults.Workers),
		QueueSize: getEnvIntOrDefault("PI_JOB_QUEUE", defaults.QueueSize),
		Retention: getEnvDurationOrDefault("PI_JOB_RETENTION", defaults.Retention),
	}
}

func loadDatabaseConfig() *DatabaseConfig {
	defaults := Default().Database
	return &DatabaseConfig{
		URL:             os.Getenv("DATABASE_URL"),
		MaxOpenConns:    getEnvIntOrDefault("DB_MAX_OPEN_CONNS", defaults.MaxOpenConns),
		MaxIdleConns:    getEnvIntOrDefault("DB_MAX_IDLE_CONNS", defaults.MaxIdleConns),
		ConnMaxLifetime: getEnvDurationOrDefault("DB_CONN_MAX_LIFETIME", defaults.ConnMaxLifetime),
	}
}

func loadLogConfig() (*LogConfig, error) {
	raw := os.Getenv("LOG_LEVEL")
	if raw == "" {
		return &LogConfig{Level: internal.LogLevelInfo}, nil
	}
	level, ok := internal.ParseLogLevel(raw)
	if !ok {
		return nil, errors.ConfigInvalid(fmt.Sprintf("LOG_LEVEL %q is not one of ERROR, WARN, INFO, DEBUG, TRACE", raw))
	}
	return &LogConfig{Level: level}, nil
}

func validateConfig(config *Config) error {
	e := config.Experiment
	if e.Trials < 2 {
		return errors.ConfigInvalid("PI_TRIALS must be >= 2")
	}
	if e.PointsPerTrial < 1 {
		return errors.ConfigInvalid("PI_POINTS must be >= 1")
	}
	if e.Confidence <= 0 || e.Confidence >= 1 {
		return errors.ConfigInvalid("PI_CONFIDENCE must be in (0, 1)")
	}
	if e.Workers < 1 {
		return errors.ConfigInvalid("PI_WORKERS must be >= 1")
	}
	if e.MaxTrials < e.Trials {
		return errors.ConfigInvalid("PI_MAX_TRIALS must be >= PI_TRIALS")
	}
	if e.MaxPointsPerTrial < e.PointsPerTrial {
		return errors.ConfigInvalid("PI_MAX_POINTS must be >= PI_POINTS")
	}
	if e.MaxBatchRuns < 1 {
		return errors.ConfigInvalid("PI_MAX_BATCH_RUNS must be >= 1")
	}
	if e.CriticalValues != "exact" && e.CriticalValues != "reference" {
		return errors.ConfigInvalid(fmt.Sprintf("PI_CRITICAL_VALUES %q is not one of exact, reference", e.CriticalValues))
	}
	if config.Jobs.Workers < 1 {
		return errors.ConfigInvalid("PI_JOB_WORKERS must be >= 1")
	}
	if config.Jobs.QueueSize < 1 {
		return errors.ConfigInvalid("PI_JOB_QUEUE must be >= 1")
	}
	if r := config.Jobs.Retention; r != 0 && r < time.Second {
		return errors.ConfigInvalid("PI_JOB_RETENTION must be 0 (keep forever) or >= 1s")
	}
	if config.Database.Enabled() && config.Database.MaxOpenConns < 1 {
		return errors.ConfigInvalid("DB_MAX_OPEN_CONNS must be >= 1")
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	return nil
}

// ParseSeedKey parses comma-separated 32-bit words, decimal or 0x-prefixed hex
func ParseSeedKey(raw string) ([]uint32, error) {
	parts := strings.Split(raw, ",")
	key := make([]uint32, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseUint(p, 0, 32)
		if err != nil {
			return nil, errors.ConfigInvalid(fmt.Sprintf("seed key word %q is not a 32-bit unsigned integer", p))
		}
		key = append(key, uint32(v))
	}
	if len(key) == 0 {
		return nil, errors.ConfigInvalid("seed key must contain at least one word")
	}
	return key, nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
