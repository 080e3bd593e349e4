package agent

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecobot-id/ecobot/internal/ai"
	"github.com/ecobot-id/ecobot/internal/config"
	"github.com/ecobot-id/ecobot/internal/database"
)

// fakeStore is an in-memory Store for pipeline tests.
type fakeStore struct {
	facts     map[string]map[string]string
	turns     map[string][]database.ConversationTurn
	users     map[string]*database.User
	points    []database.CollectionPoint
	schedules []database.ScheduleInfo
	nextID    uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		facts: make(map[string]map[string]string),
		turns: make(map[string][]database.ConversationTurn),
		users: make(map[string]*database.User),
	}
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func (f *fakeStore) GetAllFacts(_ context.Context, phone string) ([]database.Fact, error) {
	var out []database.Fact
	for k, v := range f.facts[phone] {
		out = append(out, database.Fact{Phone: phone, Key: k, Value: v, UpdatedAt: time.Now()})
	}
	return out, nil
}

func (f *fakeStore) SaveFact(_ context.Context, phone, key, value string) error {
	if f.facts[phone] == nil {
		f.facts[phone] = make(map[string]string)
	}
	f.facts[phone][key] = value
	return nil
}

func (f *fakeStore) GetFact(_ context.Context, phone, key string) (string, bool, error) {
	v, ok := f.facts[phone][key]
	return v, ok, nil
}

func (f *fakeStore) DeleteFact(_ context.Context, phone, key string) (bool, error) {
	if _, ok := f.facts[phone][key]; !ok {
		return false, nil
	}
	delete(f.facts[phone], key)
	return true, nil
}

func (f *fakeStore) AppendTurn(_ context.Context, phone, role, content string) error {
	f.nextID++
	f.turns[phone] = append(f.turns[phone], database.ConversationTurn{
		ID: f.nextID, Phone: phone, Role: role, Content: content, CreatedAt: time.Now(),
	})
	return nil
}

func (f *fakeStore) RecentTurns(_ context.Context, phone string, limit int) ([]database.ConversationTurn, error) {
	turns := f.turns[phone]
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns, nil
}

func (f *fakeStore) TurnCount(_ context.Context, phone string) (int, error) {
	return len(f.turns[phone]), nil
}

func (f *fakeStore) SummarizeConversation(_ context.Context, phone string, _ int) (*database.ConversationSummary, error) {
	summary := &database.ConversationSummary{}
	for _, t := range f.turns[phone] {
		summary.TotalMessages++
		if t.Role == database.RoleUser {
			summary.UserMessages++
		} else {
			summary.AssistantMessages++
		}
	}
	return summary, nil
}

func (f *fakeStore) RecentUserMessages(_ context.Context, phone string, limit int) ([]string, error) {
	var out []string
	turns := f.turns[phone]
	for i := len(turns) - 1; i >= 0 && len(out) < limit; i-- {
		if turns[i].Role == database.RoleUser {
			out = append(out, turns[i].Content)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteTurnsOlderThan(context.Context, int) (int64, error) { return 0, nil }

func (f *fakeStore) GetUser(_ context.Context, phone string) (*database.User, error) {
	return f.users[phone], nil
}

func (f *fakeStore) TouchUser(_ context.Context, phone string, image bool) error {
	u, ok := f.users[phone]
	if !ok {
		u = &database.User{Phone: phone, Role: "warga", IsActive: true}
		f.users[phone] = u
	}
	if image {
		u.TotalImages++
	} else {
		u.TotalMessages++
	}
	u.LastActive = time.Now()
	return nil
}

func (f *fakeStore) CollectionPoints(context.Context, bool) ([]database.CollectionPoint, error) {
	return f.points, nil
}

func (f *fakeStore) Schedules(context.Context, bool) ([]database.ScheduleInfo, error) {
	return f.schedules, nil
}

func (f *fakeStore) CommunityStats(context.Context) (*database.CommunityStats, error) {
	return &database.CommunityStats{ActiveUsers: len(f.users)}, nil
}

func (f *fakeStore) WasteTypeCounts(context.Context) ([]database.WasteTypeCount, error) {
	return nil, nil
}

func (f *fakeStore) SaveClassification(context.Context, string, string, float64, string) error {
	return nil
}

func (f *fakeStore) RunSQLMaintenance(context.Context) error { return nil }

// stubAIClient returns a fixed reply and records what it was sent.
type stubAIClient struct {
	reply    string
	messages []ai.Message
}

func (s *stubAIClient) ChatCompletion(_ context.Context, messages []ai.Message) (string, error) {
	s.messages = messages
	return s.reply, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAIConfig() config.AIConfig {
	return config.AIConfig{HistoryTurns: 20, HistoryBudget: 4000}
}

func newTestAgent(store database.Store, client ai.Client) *Agent {
	return New(store, client, nil, testAIConfig(), testLogger())
}

func TestProcessMessageNewUserGreeting(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	a := newTestAgent(store, nil) // AI disabled

	result := a.ProcessMessage(context.Background(), "6281234567890", "halo", DefaultMode)

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Contains(t, result.Reply, "soeco7890")

	alias, ok, err := store.GetFact(context.Background(), "6281234567890", userAliasFactKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "soeco7890", alias)

	// Both sides of the exchange were recorded.
	turns, err := store.RecentTurns(context.Background(), "6281234567890", 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, database.RoleUser, turns[0].Role)
	assert.Equal(t, database.RoleAssistant, turns[1].Role)
}

func TestProcessMessageLearnsNameAcrossTurns(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	a := newTestAgent(store, nil)
	ctx := context.Background()

	a.ProcessMessage(ctx, "628111", "Nama saya budi", DefaultMode)

	name, ok, err := store.GetFact(ctx, "628111", userNameFactKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Budi", name)

	// Next turn addresses the user by the learned name, not the alias.
	result := a.ProcessMessage(ctx, "628111", "halo", DefaultMode)
	assert.Contains(t, result.Reply, "Budi")
	assert.NotContains(t, result.Reply, "soeco")
}

func TestProcessMessageHybridAlwaysEndsWithConfirmation(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	client := &stubAIClient{reply: "Sampah organik bisa dikompos."}
	a := newTestAgent(store, client)

	result := a.ProcessMessage(context.Background(), "628222", "apa itu kompos?", ModeHybrid)

	assert.Equal(t, StatusSuccess, result.Status)
	assert.True(t, strings.HasSuffix(result.Reply, hybridConfirmTail))

	// System prompt was built for the hybrid mode.
	require.NotEmpty(t, client.messages)
	assert.Equal(t, ai.RoleSystem, client.messages[0].Role)
	assert.Contains(t, client.messages[0].Content, "Hybrid")
}

func TestProcessMessageEcobotNoDataPrependsGuidance(t *testing.T) {
	t.Parallel()

	store := newFakeStore() // no points, no schedules
	client := &stubAIClient{reply: "Maaf, saya tidak punya data itu."}
	a := newTestAgent(store, client)
	ctx := context.Background()

	require.NoError(t, store.SaveFact(ctx, "628333", aiModeFactKey, "ecobot"))

	result := a.ProcessMessage(ctx, "628333", "dimana lokasi pembuangan sampah?", DefaultMode)

	assert.True(t, strings.HasPrefix(result.Reply, ecobotNoDataGuidance))
}

func TestProcessMessageEcobotWithRowsSkipsModel(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.points = []database.CollectionPoint{
		{Name: "TPS Kampung Hijau", Type: "fixed", WasteTypes: "organik, anorganik", Schedule: "Senin & Kamis", IsActive: true},
		{Name: "Bank Sampah RW 02", Type: "community", WasteTypes: "anorganik", Schedule: "Sabtu", IsActive: true},
	}
	client := &stubAIClient{reply: "should not be used"}
	a := newTestAgent(store, client)
	ctx := context.Background()

	require.NoError(t, store.SaveFact(ctx, "628444", aiModeFactKey, "ecobot"))

	result := a.ProcessMessage(ctx, "628444", "dimana lokasi tps terdekat?", DefaultMode)

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Contains(t, result.Reply, "TPS Kampung Hijau")
	assert.Contains(t, result.Reply, "Bank Sampah RW 02")
	assert.NotContains(t, result.Reply, ecobotNoDataGuidance)
	assert.Empty(t, client.messages, "matched rows must answer without a model call")
}

func TestSwitchModePersistsAndSticks(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	client := &stubAIClient{reply: "edukasi umum"}
	a := newTestAgent(store, client)
	ctx := context.Background()

	reply := a.SwitchMode(ctx, "628555", "general")
	assert.Contains(t, reply, "General Waste Management")

	saved, ok, err := store.GetFact(ctx, "628555", aiModeFactKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "general", saved)

	// The saved preference overrides the caller-supplied default mode.
	a.ProcessMessage(ctx, "628555", "apa itu daur ulang?", DefaultMode)
	require.NotEmpty(t, client.messages)
	assert.Contains(t, client.messages[0].Content, "General Waste Management")
}

func TestSwitchModeRejectsUnknownWithoutWriting(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	a := newTestAgent(store, nil)
	ctx := context.Background()

	reply := a.SwitchMode(ctx, "628666", "turbo")
	assert.Contains(t, reply, "tidak dikenal")
	assert.Contains(t, reply, "ecobot, general, hybrid")

	_, ok, err := store.GetFact(ctx, "628666", aiModeFactKey)
	require.NoError(t, err)
	assert.False(t, ok, "invalid mode must not be persisted")
}

func TestGetMemoryStats(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	a := newTestAgent(store, nil)
	ctx := context.Background()

	a.ProcessMessage(ctx, "628777", "dimana lokasi pembuangan sampah?", DefaultMode)
	a.ProcessMessage(ctx, "628777", "kapan jadwal pengumpulan?", DefaultMode)

	stats := a.GetMemoryStats(ctx, "628777")

	assert.Equal(t, 4, stats.ConversationCount)
	assert.GreaterOrEqual(t, stats.FactCount, 1)
	assert.Contains(t, stats.MemoryKeys, userAliasFactKey)
	assert.Contains(t, stats.CommonTopics, "Collection Points")
	assert.Contains(t, stats.CommonTopics, "Collection Schedule")
}

func TestGetMemoryStatsEmptyUser(t *testing.T) {
	t.Parallel()

	a := newTestAgent(newFakeStore(), nil)
	stats := a.GetMemoryStats(context.Background(), "620000")

	assert.Zero(t, stats.FactCount)
	assert.Zero(t, stats.ConversationCount)
	assert.Empty(t, stats.CommonTopics)
}

func TestTrimHistory(t *testing.T) {
	t.Parallel()

	turn := func(id uint, content string) database.ConversationTurn {
		return database.ConversationTurn{ID: id, Content: content}
	}

	tests := []struct {
		name    string
		turns   []database.ConversationTurn
		budget  int
		wantIDs []uint
	}{
		{
			name:    "all fit",
			turns:   []database.ConversationTurn{turn(1, "aa"), turn(2, "bb")},
			budget:  100,
			wantIDs: []uint{1, 2},
		},
		{
			name:    "newest kept when over budget",
			turns:   []database.ConversationTurn{turn(1, strings.Repeat("x", 50)), turn(2, strings.Repeat("y", 50)), turn(3, strings.Repeat("z", 50))},
			budget:  100,
			wantIDs: []uint{2, 3},
		},
		{
			name:    "single oversized turn drops everything",
			turns:   []database.ConversationTurn{turn(1, strings.Repeat("x", 200))},
			budget:  100,
			wantIDs: nil,
		},
		{
			name:    "zero budget disables trimming",
			turns:   []database.ConversationTurn{turn(1, strings.Repeat("x", 9000))},
			budget:  0,
			wantIDs: []uint{1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := trimHistory(tt.turns, tt.budget)

			var ids []uint
			for _, tr := range got {
				ids = append(ids, tr.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestGenerateAlias(t *testing.T) {
	t.Parallel()

	tests := []struct {
		phone string
		want  string
	}{
		{"6281234567890", "soeco7890"},
		{"+62 812-3456-7890", "soeco7890"},
		{"123", "soeco123"},
		{"", "soeco"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, GenerateAlias(tt.phone), "phone %q", tt.phone)
	}
}

// The first resolution persists the generated alias, so a second resolution
// for the same user must return the identical name.
func TestDisplayNameResolutionStable(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	a := newTestAgent(store, nil)
	ctx := context.Background()

	first := a.buildContext(ctx, "6289999", DefaultMode)
	second := a.buildContext(ctx, "6289999", DefaultMode)

	assert.Equal(t, "soeco9999", first.DisplayName)
	assert.Equal(t, first.DisplayName, second.DisplayName)
}

func TestBuildContextProfileNameWinsOverFacts(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.users["628888"] = &database.User{
		Phone: "628888",
		Role:  "koordinator",
	}
	a := newTestAgent(store, nil)
	ctx := context.Background()

	require.NoError(t, store.SaveFact(ctx, "628888", userNameFactKey, "Siti"))

	c := a.buildContext(ctx, "628888", DefaultMode)
	assert.Equal(t, "Siti", c.DisplayName, "placeholder profile name must lose to the name fact")
	assert.Equal(t, "koordinator", c.Role)
}
