package tasks

import (
	"context"
	"fmt"
	"time"
)

// newMemoryRetentionTask creates the scheduled task that deletes
// conversation turns older than the configured retention window. Long-term
// facts are kept indefinitely; only raw history is swept.
func newMemoryRetentionTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "memory_retention")

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting conversation retention sweep", "retention_days", deps.RetentionDays)
		startTime := time.Now()

		deleted, err := deps.Store.DeleteTurnsOlderThan(ctx, deps.RetentionDays)

		duration := time.Since(startTime)
		if err != nil {
			log.ErrorContext(ctx, "Retention sweep failed", "error", err, "duration", duration)
			return fmt.Errorf("retention sweep failed: %w", err)
		}

		log.InfoContext(ctx, "Retention sweep completed", "deleted_turns", deleted, "duration", duration)
		return nil
	}
}
