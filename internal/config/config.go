// Package config provides configuration loading, validation, and management
// for the EcoBot application. It handles reading from YAML files, environment
// variables, setting default values, and validating configuration parameters.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config defines the application configuration parameters for all components
// of the EcoBot system, including logging, the webhook server, AI integration,
// vision integration, and database configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	AI        AIConfig        `mapstructure:"ai"`
	Vision    VisionConfig    `mapstructure:"vision"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Memory    MemoryConfig    `mapstructure:"memory"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LogConfig controls log level and output format.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// ServerConfig holds the webhook HTTP server settings.
type ServerConfig struct {
	ListenAddr     string        `mapstructure:"listen_addr"     validate:"required"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"min=1s,max=10m"`
}

// AIConfig holds the chat-completion endpoint settings. An empty Token puts
// the agent into templated fallback mode instead of failing at startup.
type AIConfig struct {
	Token         string        `mapstructure:"token"`
	BaseURL       string        `mapstructure:"base_url"       validate:"url"`
	Model         string        `mapstructure:"model"          validate:"required"`
	Temperature   float32       `mapstructure:"temperature"    validate:"min=0,max=2"`
	MaxTokens     int           `mapstructure:"max_tokens"     validate:"min=1,max=32000"`
	Timeout       time.Duration `mapstructure:"timeout"        validate:"min=1s,max=10m"`
	MaxAttempts   int           `mapstructure:"max_attempts"   validate:"min=1,max=10"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff"  validate:"min=100ms,max=1m"`
	HistoryBudget int           `mapstructure:"history_budget" validate:"min=500,max=100000"`
	HistoryTurns  int           `mapstructure:"history_turns"  validate:"min=1,max=200"`
}

// VisionConfig holds the waste-image classification endpoint settings.
type VisionConfig struct {
	Token   string        `mapstructure:"token"`
	BaseURL string        `mapstructure:"base_url" validate:"url"`
	Model   string        `mapstructure:"model"    validate:"required"`
	Timeout time.Duration `mapstructure:"timeout"  validate:"min=1s,max=10m"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// MemoryConfig controls conversation-history retention.
type MemoryConfig struct {
	RetentionDays int `mapstructure:"retention_days" validate:"min=1,max=3650"`
}

// SchedulerConfig holds the background task schedules keyed by task name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig enables a named task and sets its cron schedule.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// Load loads and validates configuration from:
// 1. Default values
// 2. config.yaml file
// 3. ECOBOT_* environment variables
func Load(configPath string) (*Config, error) {
	setDefaults()

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("ECOBOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Allow missing config file; defaults plus env vars are a valid setup.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Scheduler.Tasks == nil {
		cfg.Scheduler.Tasks = DefaultSchedulerTasks
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values for optional configuration parameters.
func setDefaults() {
	viper.SetDefault("log.level", DefaultLogLevel)
	viper.SetDefault("log.json", DefaultLogJSON)

	viper.SetDefault("server.listen_addr", DefaultServerListenAddr)
	viper.SetDefault("server.request_timeout", DefaultServerRequestTimeout)

	viper.SetDefault("ai.base_url", DefaultAIBaseURL)
	viper.SetDefault("ai.model", DefaultAIModel)
	viper.SetDefault("ai.temperature", DefaultAITemperature)
	viper.SetDefault("ai.max_tokens", DefaultAIMaxTokens)
	viper.SetDefault("ai.timeout", DefaultAITimeout)
	viper.SetDefault("ai.max_attempts", DefaultAIMaxAttempts)
	viper.SetDefault("ai.retry_backoff", DefaultAIRetryBackoff)
	viper.SetDefault("ai.history_budget", DefaultAIHistoryBudget)
	viper.SetDefault("ai.history_turns", DefaultAIHistoryTurns)

	viper.SetDefault("vision.base_url", DefaultVisionBaseURL)
	viper.SetDefault("vision.model", DefaultVisionModel)
	viper.SetDefault("vision.timeout", DefaultVisionTimeout)

	viper.SetDefault("database.path", DefaultDBPath)

	viper.SetDefault("memory.retention_days", DefaultMemoryRetentionDays)
}
