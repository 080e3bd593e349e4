package agent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ecobot-id/ecobot/internal/database"
)

// FactValue is one long-term memory value with its last update time.
type FactValue struct {
	Value     string
	UpdatedAt time.Time
}

// Memory wraps the Store with the agent's graceful-degradation policy:
// reads degrade to empty defaults on storage error, writes log and swallow.
// A storage outage degrades personalization but never aborts a turn.
type Memory struct {
	store  database.Store
	logger *slog.Logger
}

// NewMemory creates the memory layer over a Store.
func NewMemory(store database.Store, logger *slog.Logger) *Memory {
	return &Memory{
		store:  store,
		logger: logger.With("component", "memory"),
	}
}

// AllFacts returns every fact for a user keyed by fact key.
// Returns an empty map on storage error.
func (m *Memory) AllFacts(ctx context.Context, phone string) map[string]FactValue {
	rows, err := m.store.GetAllFacts(ctx, phone)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to load facts, degrading to empty", "phone", phone, "error", err)
		return map[string]FactValue{}
	}

	facts := make(map[string]FactValue, len(rows))
	for _, row := range rows {
		facts[row.Key] = FactValue{Value: row.Value, UpdatedAt: row.UpdatedAt}
	}
	return facts
}

// Fact returns a single fact value; absent on miss or storage error.
func (m *Memory) Fact(ctx context.Context, phone, key string) (string, bool) {
	value, ok, err := m.store.GetFact(ctx, phone, key)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to read fact, degrading to absent", "phone", phone, "key", key, "error", err)
		return "", false
	}
	return value, ok
}

// SaveFact upserts a fact; failures are logged and dropped.
func (m *Memory) SaveFact(ctx context.Context, phone, key, value string) {
	if err := m.store.SaveFact(ctx, phone, key, value); err != nil {
		m.logger.ErrorContext(ctx, "Failed to save fact, dropping", "phone", phone, "key", key, "error", err)
	}
}

// DeleteFact removes a fact, reporting whether a row was removed.
func (m *Memory) DeleteFact(ctx context.Context, phone, key string) bool {
	removed, err := m.store.DeleteFact(ctx, phone, key)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to delete fact", "phone", phone, "key", key, "error", err)
		return false
	}
	return removed
}

// AppendTurn records one conversation turn; failures are logged and dropped.
func (m *Memory) AppendTurn(ctx context.Context, phone, role, content string) {
	if err := m.store.AppendTurn(ctx, phone, role, content); err != nil {
		m.logger.ErrorContext(ctx, "Failed to append conversation turn, dropping", "phone", phone, "role", role, "error", err)
	}
}

// RecentTurns returns the most recent turns oldest-first; empty on error.
func (m *Memory) RecentTurns(ctx context.Context, phone string, limit int) []database.ConversationTurn {
	turns, err := m.store.RecentTurns(ctx, phone, limit)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to load conversation history, degrading to empty", "phone", phone, "error", err)
		return nil
	}
	return turns
}

// TurnCount returns the stored turn count; zero on error.
func (m *Memory) TurnCount(ctx context.Context, phone string) int {
	count, err := m.store.TurnCount(ctx, phone)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to count turns, degrading to zero", "phone", phone, "error", err)
		return 0
	}
	return count
}

// Summary aggregates the trailing window; zero-valued on error.
func (m *Memory) Summary(ctx context.Context, phone string, days int) database.ConversationSummary {
	summary, err := m.store.SummarizeConversation(ctx, phone, days)
	if err != nil || summary == nil {
		if err != nil {
			m.logger.ErrorContext(ctx, "Failed to summarize conversation, degrading to zero", "phone", phone, "error", err)
		}
		return database.ConversationSummary{}
	}
	return *summary
}

// topicKeywords maps keyword families to topic labels, scanned in order.
var topicKeywords = []struct {
	words []string
	label string
}{
	{[]string{"sampah", "waste"}, "Waste Management"},
	{[]string{"jadwal", "schedule"}, "Collection Schedule"},
	{[]string{"lokasi", "location"}, "Collection Points"},
	{[]string{"organik", "organic"}, "Organic Waste"},
	{[]string{"daur ulang", "recycle"}, "Recycling"},
	{[]string{"foto", "image"}, "Image Analysis"},
	{[]string{"poin", "points"}, "Reward Points"},
}

// Topics derives topic labels from the most recent 'limit' user turns,
// duplicates collapsed, first-seen order. Empty on error.
func (m *Memory) Topics(ctx context.Context, phone string, limit int) []string {
	contents, err := m.store.RecentUserMessages(ctx, phone, limit)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to load user messages for topics, degrading to empty", "phone", phone, "error", err)
		return nil
	}

	seen := make(map[string]bool)
	var topics []string
	for _, content := range contents {
		lower := strings.ToLower(content)
		for _, family := range topicKeywords {
			for _, word := range family.words {
				if strings.Contains(lower, word) {
					if !seen[family.label] {
						seen[family.label] = true
						topics = append(topics, family.label)
					}
					break
				}
			}
		}
	}
	return topics
}
