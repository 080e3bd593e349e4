package tasks

import "context"

// ScheduledTaskFunc is the standard signature for all scheduled tasks. The
// scheduler-provided context must be respected for cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks returns the map of all scheduled tasks. The keys match
// the task names used in the scheduler configuration section.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := make(map[string]ScheduledTaskFunc)

	tasks["memory_retention"] = newMemoryRetentionTask(deps)
	tasks["sql_maintenance"] = newSQLMaintenanceTask(deps)

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
