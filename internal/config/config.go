package config

import (
	"os"
	"strconv"
	"time"

	"invlearn/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Learning LearningConfig
	Database DatabaseConfig
	Server   ServerConfig
	Batch    BatchConfig
}

// LearningConfig holds the learning loop and solver parameters
type LearningConfig struct {
	Precision        int
	MaxIterations    int
	InitialRuns      int // per variable
	AfterRuns        int // per variable
	RandomRuns       int // per variable
	TrainingCapacity int
	SolveAttempts    int
	MinInput         int
	MaxInput         int
	Seed             int64
	SolverC          float64
	SolverTolerance  float64
	SolverMaxPasses  int
	OracleSlack      float64
	Timeout          time.Duration
}

// DatabaseConfig holds database connection settings. An empty URL disables
// persistence.
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// Enabled reports whether a database is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// BatchConfig holds batch runner settings
type BatchConfig struct {
	Parallelism int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Learning: *loadLearningConfig(),
		Database: *loadDatabaseConfig(),
		Server:   *loadServerConfig(),
		Batch:    *loadBatchConfig(),
	}

	// Validate required fields
	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// Default returns the configuration Load produces with an empty environment
func Default() *Config {
	return &Config{
		Learning: LearningConfig{
			Precision:        3,
			MaxIterations:    512,
			InitialRuns:      16,
			AfterRuns:        16,
			RandomRuns:       4,
			TrainingCapacity: 10000,
			SolveAttempts:    10,
			MinInput:         -100,
			MaxInput:         100,
			Seed:             1,
			SolverC:          100,
			SolverTolerance:  1e-3,
			SolverMaxPasses:  2000,
			OracleSlack:      1e-7,
			Timeout:          5 * time.Minute,
		},
		Database: DatabaseConfig{SSLMode: "disable"},
		Server:   ServerConfig{Port: "8080"},
		Batch:    BatchConfig{Parallelism: 4},
	}
}

func loadLearningConfig() *LearningConfig {
	def := Default().Learning
	return &LearningConfig{
		Precision:        getEnvIntOrDefault("LEARN_PRECISION", def.Precision),
		MaxIterations:    getEnvIntOrDefault("LEARN_MAX_ITERATIONS", def.MaxIterations),
		InitialRuns:      getEnvIntOrDefault("LEARN_INITIAL_RUNS", def.InitialRuns),
		AfterRuns:        getEnvIntOrDefault("LEARN_AFTER_RUNS", def.AfterRuns),
		RandomRuns:       getEnvIntOrDefault("LEARN_RANDOM_RUNS", def.RandomRuns),
		TrainingCapacity: getEnvIntOrDefault("LEARN_TRAINING_CAPACITY", def.TrainingCapacity),
		SolveAttempts:    getEnvIntOrDefault("LEARN_SOLVE_ATTEMPTS", def.SolveAttempts),
		MinInput:         getEnvIntOrDefault("LEARN_MIN_INPUT", def.MinInput),
		MaxInput:         getEnvIntOrDefault("LEARN_MAX_INPUT", def.MaxInput),
		Seed:             int64(getEnvIntOrDefault("LEARN_SEED", int(def.Seed))),
		SolverC:          getEnvFloatOrDefault("SVM_C", def.SolverC),
		SolverTolerance:  getEnvFloatOrDefault("SVM_TOLERANCE", def.SolverTolerance),
		SolverMaxPasses:  getEnvIntOrDefault("SVM_MAX_PASSES", def.SolverMaxPasses),
		OracleSlack:      getEnvFloatOrDefault("ORACLE_SLACK", def.OracleSlack),
		Timeout:          getEnvDurationOrDefault("LEARN_TIMEOUT", def.Timeout),
	}
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		URL:     getEnvOrDefault("DATABASE_URL", ""),
		SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port: getEnvOrDefault("PORT", "8080"),
	}
}

func loadBatchConfig() *BatchConfig {
	return &BatchConfig{
		Parallelism: getEnvIntOrDefault("BATCH_PARALLELISM", Default().Batch.Parallelism),
	}
}

func validateConfig(config *Config) error {
	l := config.Learning
	if l.Precision < 1 || l.Precision > 12 {
		return errors.ConfigInvalid("precision must be between 1 and 12")
	}
	if l.MaxIterations < 1 {
		return errors.ConfigInvalid("max iterations must be positive")
	}
	if l.InitialRuns < 1 || l.AfterRuns < 1 || l.RandomRuns < 0 {
		return errors.ConfigInvalid("run counts must be positive")
	}
	if l.TrainingCapacity < 1 {
		return errors.ConfigInvalid("training capacity must be positive")
	}
	if l.MinInput > l.MaxInput {
		return errors.ConfigInvalid("min input exceeds max input")
	}
	if l.SolverC <= 0 || l.SolverTolerance <= 0 || l.SolverMaxPasses < 1 {
		return errors.ConfigInvalid("solver parameters must be positive")
	}
	if l.OracleSlack <= 0 {
		return errors.ConfigInvalid("oracle slack must be positive")
	}
	if config.Batch.Parallelism < 1 {
		return errors.ConfigInvalid("batch parallelism must be positive")
	}
	return nil
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
