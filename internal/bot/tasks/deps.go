// Package tasks implements the scheduled maintenance tasks: conversation
// retention sweeps and SQLite maintenance.
package tasks

import (
	"log/slog"

	"github.com/ecobot-id/ecobot/internal/database"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger        *slog.Logger
	Store         database.Store
	RetentionDays int
}
