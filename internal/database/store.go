package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for database operations.
// Methods accept context.Context for cancellation and timeouts. All methods
// return errors; the graceful-degradation policy (empty defaults on read
// failure, swallowed write failures) is applied by the agent's memory layer,
// not here, so callers that care can still distinguish "empty" from "failed".
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// --- long-term memory (facts) ---

	// GetAllFacts retrieves every fact for a user, most recently updated first.
	GetAllFacts(ctx context.Context, phone string) ([]Fact, error)

	// SaveFact inserts or updates a fact by (phone, key). Saving the same
	// value twice leaves exactly one row.
	SaveFact(ctx context.Context, phone, key, value string) error

	// GetFact retrieves a single fact value. The bool reports whether the
	// fact exists.
	GetFact(ctx context.Context, phone, key string) (string, bool, error)

	// DeleteFact removes a fact and reports whether a row was deleted.
	DeleteFact(ctx context.Context, phone, key string) (bool, error)

	// --- conversation history ---

	// AppendTurn inserts one conversation turn. Insert-only.
	AppendTurn(ctx context.Context, phone, role, content string) error

	// RecentTurns retrieves the most recent 'limit' turns for a user,
	// returned oldest first.
	RecentTurns(ctx context.Context, phone string, limit int) ([]ConversationTurn, error)

	// TurnCount returns the total number of stored turns for a user.
	TurnCount(ctx context.Context, phone string) (int, error)

	// SummarizeConversation aggregates a user's history over the trailing
	// 'days' window.
	SummarizeConversation(ctx context.Context, phone string, days int) (*ConversationSummary, error)

	// RecentUserMessages returns the content of the most recent 'limit'
	// user-role turns, newest first. Used for topic scanning.
	RecentUserMessages(ctx context.Context, phone string, limit int) ([]string, error)

	// DeleteTurnsOlderThan removes turns older than 'days' days across all
	// users and returns the number of rows removed.
	DeleteTurnsOlderThan(ctx context.Context, days int) (int64, error)

	// --- users ---

	// GetUser retrieves a user by phone number. Returns nil, nil if not found.
	GetUser(ctx context.Context, phone string) (*User, error)

	// TouchUser upserts the user row for an inbound message: creates the row
	// on first contact, bumps the message or image counter, and refreshes
	// last_active.
	TouchUser(ctx context.Context, phone string, image bool) error

	// --- collection data (read-only for the query extractor) ---

	// CollectionPoints lists collection points; activeOnly restricts to
	// rows with the active flag set.
	CollectionPoints(ctx context.Context, activeOnly bool) ([]CollectionPoint, error)

	// Schedules lists collection schedules joined with their point details.
	Schedules(ctx context.Context, activeOnly bool) ([]ScheduleInfo, error)

	// CommunityStats returns the count of active users and their summed points.
	CommunityStats(ctx context.Context) (*CommunityStats, error)

	// WasteTypeCounts groups historical classifications by waste type.
	WasteTypeCounts(ctx context.Context) ([]WasteTypeCount, error)

	// SaveClassification records one waste-image classification result.
	SaveClassification(ctx context.Context, phone, wasteType string, confidence float64, method string) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetAllFacts retrieves every fact for a user, most recently updated first.
func (s *sqlxStore) GetAllFacts(ctx context.Context, phone string) ([]Fact, error) {
	if phone == "" {
		return nil, fmt.Errorf("phone cannot be empty")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var facts []Fact
	query := `
        SELECT id, user_phone, memory_key, memory_value, created_at, updated_at
        FROM user_memory
        WHERE user_phone = ?
        ORDER BY updated_at DESC;
    `
	if err := s.db.SelectContext(ctx, &facts, query, phone); err != nil {
		s.logger.ErrorContext(ctx, "Error getting user facts", "phone", phone, "error", err)
		return nil, fmt.Errorf("failed to get facts for %s: %w", phone, err)
	}

	return facts, nil
}

// SaveFact inserts or updates a fact by (phone, key).
// The unique index on (user_phone, memory_key) makes this an atomic upsert,
// avoiding the check-then-write race of a two-statement approach.
func (s *sqlxStore) SaveFact(ctx context.Context, phone, key, value string) error {
	if phone == "" || key == "" {
		return fmt.Errorf("phone and key must be non-empty")
	}

	now := time.Now().UTC()
	query := `
        INSERT INTO user_memory (user_phone, memory_key, memory_value, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (user_phone, memory_key)
        DO UPDATE SET memory_value = excluded.memory_value, updated_at = excluded.updated_at;
    `
	if _, err := s.db.ExecContext(ctx, query, phone, key, value, now, now); err != nil {
		s.logger.ErrorContext(ctx, "Error saving fact", "phone", phone, "key", key, "error", err)
		return fmt.Errorf("failed to save fact %q for %s: %w", key, phone, err)
	}

	s.logger.DebugContext(ctx, "Fact saved", "phone", phone, "key", key)
	return nil
}

// GetFact retrieves a single fact value for a user.
func (s *sqlxStore) GetFact(ctx context.Context, phone, key string) (string, bool, error) {
	var value string
	query := `SELECT memory_value FROM user_memory WHERE user_phone = ? AND memory_key = ?`

	err := s.db.GetContext(ctx, &value, query, phone, key)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting fact", "phone", phone, "key", key, "error", err)
		return "", false, fmt.Errorf("failed to get fact %q for %s: %w", key, phone, err)
	}

	return value, true, nil
}

// DeleteFact removes a fact and reports whether a row was deleted.
func (s *sqlxStore) DeleteFact(ctx context.Context, phone, key string) (bool, error) {
	query := `DELETE FROM user_memory WHERE user_phone = ? AND memory_key = ?`
	result, err := s.db.ExecContext(ctx, query, phone, key)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting fact", "phone", phone, "key", key, "error", err)
		return false, fmt.Errorf("failed to delete fact %q for %s: %w", key, phone, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not get affected row count when deleting fact",
			"phone", phone, "key", key, "error", err)
		return false, nil
	}
	return affected > 0, nil
}

// AppendTurn inserts one conversation turn.
func (s *sqlxStore) AppendTurn(ctx context.Context, phone, role, content string) error {
	if phone == "" {
		return fmt.Errorf("phone cannot be empty")
	}
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("invalid turn role %q", role)
	}
	if content == "" {
		return fmt.Errorf("turn content cannot be empty")
	}

	query := `
        INSERT INTO conversation_history (user_phone, message_role, message_content, created_at)
        VALUES (?, ?, ?, ?);
    `
	if _, err := s.db.ExecContext(ctx, query, phone, role, content, time.Now().UTC()); err != nil {
		s.logger.ErrorContext(ctx, "Error appending conversation turn", "phone", phone, "role", role, "error", err)
		return fmt.Errorf("failed to append turn for %s: %w", phone, err)
	}

	return nil
}

// RecentTurns retrieves the most recent 'limit' turns, returned oldest first.
// Implemented as newest-first fetch then in-place reverse; callers must not
// assume more than 'limit' turns are available.
func (s *sqlxStore) RecentTurns(ctx context.Context, phone string, limit int) ([]ConversationTurn, error) {
	if phone == "" {
		return nil, fmt.Errorf("phone cannot be empty")
	}
	if limit <= 0 {
		limit = 20
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var turns []ConversationTurn
	query := `
        SELECT id, user_phone, message_role, message_content, created_at
        FROM conversation_history
        WHERE user_phone = ?
        ORDER BY id DESC
        LIMIT ?;
    `
	if err := s.db.SelectContext(ctx, &turns, query, phone, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error getting recent turns", "phone", phone, "limit", limit, "error", err)
		return nil, fmt.Errorf("failed to get recent turns for %s: %w", phone, err)
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}

	return turns, nil
}

// TurnCount returns the total number of stored turns for a user.
func (s *sqlxStore) TurnCount(ctx context.Context, phone string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM conversation_history WHERE user_phone = ?`
	if err := s.db.GetContext(ctx, &count, query, phone); err != nil {
		s.logger.ErrorContext(ctx, "Error counting turns", "phone", phone, "error", err)
		return 0, fmt.Errorf("failed to count turns for %s: %w", phone, err)
	}
	return count, nil
}

// SummarizeConversation aggregates a user's history over the trailing window.
// MIN/MAX over created_at are bare aggregate expressions without a column
// decltype, so the driver hands them back as strings; they are scanned as
// strings here and parsed explicitly.
func (s *sqlxStore) SummarizeConversation(ctx context.Context, phone string, days int) (*ConversationSummary, error) {
	if days <= 0 {
		days = 7
	}

	var row struct {
		TotalMessages     int            `db:"total_messages"`
		UserMessages      int            `db:"user_messages"`
		AssistantMessages int            `db:"assistant_messages"`
		FirstMessage      sql.NullString `db:"first_message"`
		LastMessage       sql.NullString `db:"last_message"`
	}
	query := `
        SELECT
            COUNT(*) AS total_messages,
            COUNT(CASE WHEN message_role = 'user' THEN 1 END) AS user_messages,
            COUNT(CASE WHEN message_role = 'assistant' THEN 1 END) AS assistant_messages,
            MIN(created_at) AS first_message,
            MAX(created_at) AS last_message
        FROM conversation_history
        WHERE user_phone = ? AND created_at >= ?;
    `
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	if err := s.db.GetContext(ctx, &row, query, phone, cutoff); err != nil {
		s.logger.ErrorContext(ctx, "Error summarizing conversation", "phone", phone, "days", days, "error", err)
		return nil, fmt.Errorf("failed to summarize conversation for %s: %w", phone, err)
	}

	summary := ConversationSummary{
		TotalMessages:     row.TotalMessages,
		UserMessages:      row.UserMessages,
		AssistantMessages: row.AssistantMessages,
	}

	var err error
	if summary.FirstMessage, err = parseStoredTime(row.FirstMessage); err != nil {
		s.logger.ErrorContext(ctx, "Error parsing first message timestamp", "phone", phone, "error", err)
		return nil, fmt.Errorf("failed to parse first message timestamp for %s: %w", phone, err)
	}
	if summary.LastMessage, err = parseStoredTime(row.LastMessage); err != nil {
		s.logger.ErrorContext(ctx, "Error parsing last message timestamp", "phone", phone, "error", err)
		return nil, fmt.Errorf("failed to parse last message timestamp for %s: %w", phone, err)
	}

	return &summary, nil
}

// Timestamp layouts the driver may have written, tried in order: Go's default
// time.Time string form (the driver's write format), RFC3339, and the SQLite
// datetime forms.
var storedTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999 -0700 MST",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
}

// parseStoredTime converts a raw timestamp string from an aggregate column
// into a NullTime. NULL (no rows in the window) stays invalid, not an error.
func parseStoredTime(raw sql.NullString) (sql.NullTime, error) {
	if !raw.Valid || raw.String == "" {
		return sql.NullTime{}, nil
	}

	for _, layout := range storedTimeLayouts {
		if t, err := time.Parse(layout, raw.String); err == nil {
			return sql.NullTime{Time: t, Valid: true}, nil
		}
	}
	return sql.NullTime{}, fmt.Errorf("unrecognized stored timestamp %q", raw.String)
}

// RecentUserMessages returns the content of the most recent user-role turns,
// newest first.
func (s *sqlxStore) RecentUserMessages(ctx context.Context, phone string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}

	var contents []string
	query := `
        SELECT message_content
        FROM conversation_history
        WHERE user_phone = ? AND message_role = 'user'
        ORDER BY id DESC
        LIMIT ?;
    `
	if err := s.db.SelectContext(ctx, &contents, query, phone, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error getting recent user messages", "phone", phone, "error", err)
		return nil, fmt.Errorf("failed to get recent user messages for %s: %w", phone, err)
	}
	return contents, nil
}

// DeleteTurnsOlderThan removes turns older than 'days' days across all users.
func (s *sqlxStore) DeleteTurnsOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("retention days must be positive, got %d", days)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	result, err := s.db.ExecContext(ctx, `DELETE FROM conversation_history WHERE created_at < ?`, cutoff)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error pruning old conversation turns", "days", days, "error", err)
		return 0, fmt.Errorf("failed to prune turns older than %d days: %w", days, err)
	}

	count, _ := result.RowsAffected()
	s.logger.InfoContext(ctx, "Pruned old conversation turns", "days", days, "count", count)
	return count, nil
}

// GetUser retrieves a user by phone number. Returns nil, nil if not found.
func (s *sqlxStore) GetUser(ctx context.Context, phone string) (*User, error) {
	if phone == "" {
		return nil, fmt.Errorf("phone cannot be empty")
	}

	var user User
	query := `
        SELECT id, phone_number, name, address, role, registration_status,
               first_seen, last_active, total_messages, total_images, points, is_active
        FROM users WHERE phone_number = ?;
    `
	err := s.db.GetContext(ctx, &user, query, phone)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No user found", "phone", phone)
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user", "phone", phone, "error", err)
		return nil, fmt.Errorf("failed to get user %s: %w", phone, err)
	}

	return &user, nil
}

// TouchUser upserts the user row for an inbound message.
func (s *sqlxStore) TouchUser(ctx context.Context, phone string, image bool) error {
	if phone == "" {
		return fmt.Errorf("phone cannot be empty")
	}

	msgInc, imgInc := 1, 0
	if image {
		msgInc, imgInc = 0, 1
	}

	now := time.Now().UTC()
	query := `
        INSERT INTO users (phone_number, first_seen, last_active, total_messages, total_images)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (phone_number) DO UPDATE SET
            last_active = excluded.last_active,
            total_messages = users.total_messages + ?,
            total_images = users.total_images + ?;
    `
	if _, err := s.db.ExecContext(ctx, query, phone, now, now, msgInc, imgInc, msgInc, imgInc); err != nil {
		s.logger.ErrorContext(ctx, "Error touching user", "phone", phone, "error", err)
		return fmt.Errorf("failed to touch user %s: %w", phone, err)
	}

	return nil
}

// CollectionPoints lists collection points, optionally active-only.
func (s *sqlxStore) CollectionPoints(ctx context.Context, activeOnly bool) ([]CollectionPoint, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	query := `
        SELECT id, name, type, latitude, longitude, accepted_waste_types,
               schedule, contact, description, is_active
        FROM collection_points
    `
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY name;`

	var points []CollectionPoint
	if err := s.db.SelectContext(ctx, &points, query); err != nil {
		s.logger.ErrorContext(ctx, "Error getting collection points", "active_only", activeOnly, "error", err)
		return nil, fmt.Errorf("failed to get collection points: %w", err)
	}

	return points, nil
}

// Schedules lists collection schedules joined with their point details.
func (s *sqlxStore) Schedules(ctx context.Context, activeOnly bool) ([]ScheduleInfo, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	query := `
        SELECT cs.id, cp.name AS point_name, cs.day_of_week, cs.start_time, cs.end_time,
               cp.accepted_waste_types, cp.contact
        FROM collection_schedules cs
        JOIN collection_points cp ON cp.id = cs.point_id
    `
	if activeOnly {
		query += ` WHERE cs.is_active = 1 AND cp.is_active = 1`
	}
	query += ` ORDER BY cs.id;`

	var schedules []ScheduleInfo
	if err := s.db.SelectContext(ctx, &schedules, query); err != nil {
		s.logger.ErrorContext(ctx, "Error getting schedules", "active_only", activeOnly, "error", err)
		return nil, fmt.Errorf("failed to get schedules: %w", err)
	}

	return schedules, nil
}

// CommunityStats returns the count of active users and their summed points.
func (s *sqlxStore) CommunityStats(ctx context.Context) (*CommunityStats, error) {
	var stats CommunityStats
	query := `
        SELECT COUNT(*) AS active_users, COALESCE(SUM(points), 0) AS total_points
        FROM users WHERE is_active = 1;
    `
	if err := s.db.GetContext(ctx, &stats, query); err != nil {
		s.logger.ErrorContext(ctx, "Error getting community stats", "error", err)
		return nil, fmt.Errorf("failed to get community stats: %w", err)
	}
	return &stats, nil
}

// WasteTypeCounts groups historical classifications by waste type.
func (s *sqlxStore) WasteTypeCounts(ctx context.Context) ([]WasteTypeCount, error) {
	var counts []WasteTypeCount
	query := `
        SELECT waste_type, COUNT(*) AS count
        FROM waste_classifications
        GROUP BY waste_type
        ORDER BY count DESC;
    `
	if err := s.db.SelectContext(ctx, &counts, query); err != nil {
		s.logger.ErrorContext(ctx, "Error getting waste type counts", "error", err)
		return nil, fmt.Errorf("failed to get waste type counts: %w", err)
	}
	return counts, nil
}

// SaveClassification records one waste-image classification result.
func (s *sqlxStore) SaveClassification(ctx context.Context, phone, wasteType string, confidence float64, method string) error {
	if phone == "" || wasteType == "" {
		return fmt.Errorf("phone and waste type must be non-empty")
	}

	query := `
        INSERT INTO waste_classifications (user_phone, waste_type, confidence, classification_method, created_at)
        VALUES (?, ?, ?, ?, ?);
    `
	if _, err := s.db.ExecContext(ctx, query, phone, wasteType, confidence, method, time.Now().UTC()); err != nil {
		s.logger.ErrorContext(ctx, "Error saving classification", "phone", phone, "waste_type", wasteType, "error", err)
		return fmt.Errorf("failed to save classification for %s: %w", phone, err)
	}

	return nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite.
	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	return nil
}
