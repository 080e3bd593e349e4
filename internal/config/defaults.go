package config

import "time"

// Default values for configuration
const (
	// Log defaults
	DefaultLogLevel = "info"
	DefaultLogJSON  = true

	// Database defaults
	DefaultDBPath = "ecobot.db"

	// Server defaults
	DefaultServerListenAddr     = ":8080"
	DefaultServerRequestTimeout = 2 * time.Minute

	// AI defaults
	DefaultAIBaseURL       = "https://api.lunos.tech/v1"
	DefaultAIModel         = "google/gemini-2.0-flash"
	DefaultAITemperature   = 0.7
	DefaultAIMaxTokens     = 800
	DefaultAITimeout       = 30 * time.Second
	DefaultAIMaxAttempts   = 3
	DefaultAIRetryBackoff  = 1500 * time.Millisecond
	DefaultAIHistoryBudget = 4000 // character budget for replayed history
	DefaultAIHistoryTurns  = 20

	// Vision defaults
	DefaultVisionBaseURL = "https://api.unli.dev/v1"
	DefaultVisionModel   = "auto"
	DefaultVisionTimeout = 45 * time.Second

	// Memory defaults
	DefaultMemoryRetentionDays = 30
)

// Default scheduler tasks. Both run while the bot is otherwise idle.
var DefaultSchedulerTasks = map[string]TaskConfig{
	"memory_retention": {Enabled: true, Schedule: "0 30 3 * * *"},
	"sql_maintenance":  {Enabled: true, Schedule: "0 0 4 * * 0"},
}
