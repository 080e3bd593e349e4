package database

import (
	"database/sql"
	"time"
)

// User represents a registered chat participant, identified by their
// normalized phone number. Activity counters are bumped on every inbound
// message; role and points are changed by admin actions.
type User struct {
	ID         uint           `db:"id"`
	Phone      string         `db:"phone_number"`
	Name       sql.NullString `db:"name"`
	Address    sql.NullString `db:"address"`
	Role       string         `db:"role"`
	Status     string         `db:"registration_status"`
	FirstSeen  time.Time      `db:"first_seen"`
	LastActive time.Time      `db:"last_active"`

	TotalMessages int  `db:"total_messages"`
	TotalImages   int  `db:"total_images"`
	Points        int  `db:"points"`
	IsActive      bool `db:"is_active"`
}

// Fact is a single key/value long-term memory entry scoped to one user.
// At most one live value exists per (user, key); writes are upserts.
type Fact struct {
	ID        uint      `db:"id"`
	Phone     string    `db:"user_phone"`
	Key       string    `db:"memory_key"`
	Value     string    `db:"memory_value"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ConversationTurn is one message in a user's history. Append-only,
// ordered by insertion; never mutated after insert.
type ConversationTurn struct {
	ID        uint      `db:"id"`
	Phone     string    `db:"user_phone"`
	Role      string    `db:"message_role"`
	Content   string    `db:"message_content"`
	CreatedAt time.Time `db:"created_at"`
}

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// CollectionPoint is a waste drop-off location.
type CollectionPoint struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Type        string         `db:"type"`
	Latitude    float64        `db:"latitude"`
	Longitude   float64        `db:"longitude"`
	WasteTypes  string         `db:"accepted_waste_types"`
	Schedule    string         `db:"schedule"`
	Contact     sql.NullString `db:"contact"`
	Description sql.NullString `db:"description"`
	IsActive    bool           `db:"is_active"`
}

// ScheduleInfo is a collection schedule joined with its point's details,
// shaped for chat replies.
type ScheduleInfo struct {
	ID         int            `db:"id"`
	PointName  string         `db:"point_name"`
	DayOfWeek  string         `db:"day_of_week"`
	StartTime  string         `db:"start_time"`
	EndTime    string         `db:"end_time"`
	WasteTypes string         `db:"accepted_waste_types"`
	Contact    sql.NullString `db:"contact"`
}

// CommunityStats aggregates active users and their accumulated points.
type CommunityStats struct {
	ActiveUsers int `db:"active_users"`
	TotalPoints int `db:"total_points"`
}

// WasteTypeCount is one row of the historical classification breakdown.
type WasteTypeCount struct {
	WasteType string `db:"waste_type"`
	Count     int    `db:"count"`
}

// ConversationSummary aggregates a user's history over a trailing window.
type ConversationSummary struct {
	TotalMessages     int          `db:"total_messages"`
	UserMessages      int          `db:"user_messages"`
	AssistantMessages int          `db:"assistant_messages"`
	FirstMessage      sql.NullTime `db:"first_message"`
	LastMessage       sql.NullTime `db:"last_message"`
}
