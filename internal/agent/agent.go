package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ecobot-id/ecobot/internal/ai"
	"github.com/ecobot-id/ecobot/internal/config"
	"github.com/ecobot-id/ecobot/internal/database"
	"github.com/ecobot-id/ecobot/internal/vision"
)

// ImageAnalyzer classifies a waste photo.
type ImageAnalyzer interface {
	AnalyzeWasteImage(ctx context.Context, image []byte) (*vision.Analysis, error)
}

// Result statuses returned from message processing.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the outcome of processing one inbound message. A turn always
// produces a sendable Reply; Status distinguishes AI-generated and
// deterministic replies from degraded fallback ones.
type Result struct {
	Status string
	Reply  string
}

// Agent is the conversational core. It owns the per-turn pipeline: context
// assembly, query extraction, mode-routed generation, post-processing, and
// memory writes.
type Agent struct {
	store     database.Store
	memory    *Memory
	extractor *QueryExtractor
	facts     FactExtractor
	client    ai.Client     // nil disables AI generation
	vision    ImageAnalyzer // nil disables image classification
	logger    *slog.Logger

	historyTurns  int
	historyBudget int
}

// New creates the agent. A nil AI client puts the agent in templated-fallback
// mode; a nil analyzer disables image classification.
func New(store database.Store, client ai.Client, analyzer ImageAnalyzer, cfg config.AIConfig, logger *slog.Logger) *Agent {
	agentLogger := logger.With("component", "agent")
	return &Agent{
		store:         store,
		memory:        NewMemory(store, logger),
		extractor:     NewQueryExtractor(store, logger),
		facts:         NewFactExtractor(),
		client:        client,
		vision:        analyzer,
		logger:        agentLogger,
		historyTurns:  cfg.HistoryTurns,
		historyBudget: cfg.HistoryBudget,
	}
}

// ProcessMessage runs the full pipeline for one text message and returns a
// sendable reply. Storage failures degrade the reply rather than abort it.
func (a *Agent) ProcessMessage(ctx context.Context, phone, message string, requested Mode) Result {
	start := time.Now()

	if err := a.store.TouchUser(ctx, phone, false); err != nil {
		a.logger.ErrorContext(ctx, "Failed to record user activity", "phone", phone, "error", err)
	}

	c := a.buildContext(ctx, phone, requested)
	bag := a.extractor.Extract(ctx, message)

	status := StatusSuccess
	var reply string
	switch {
	case c.Mode == ModeEcobot && bag.DatabaseShaped() && bag.HasMatches():
		// Matched database rows answer the question directly; no model call.
		reply = formatDataReply(c, bag)

	case a.client == nil:
		reply = fallbackReply(c, message)

	default:
		generated, err := a.generate(ctx, c, bag, message)
		if err != nil {
			a.logger.ErrorContext(ctx, "Generation failed, using templated fallback",
				"phone", phone, "mode", c.Mode.String(), "error", err)
			status = StatusError
			reply = fallbackReply(c, message)
		} else {
			reply = generated
		}
	}

	reply = PostProcess(c.Mode, bag, reply)

	a.saveExtractedFacts(ctx, phone, message)
	a.memory.AppendTurn(ctx, phone, database.RoleUser, message)
	a.memory.AppendTurn(ctx, phone, database.RoleAssistant, reply)

	a.logger.InfoContext(ctx, "Message processed",
		"phone", phone,
		"mode", c.Mode.String(),
		"status", status,
		"duration_ms", time.Since(start).Milliseconds())

	return Result{Status: status, Reply: reply}
}

// generate calls the model with the mode prompt, a budgeted slice of the
// conversation history, and the new message.
func (a *Agent) generate(ctx context.Context, c *Context, bag *QueryBag, message string) (string, error) {
	messages := make([]ai.Message, 0, len(c.History)+2)
	messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: BuildPrompt(c, bag)})

	for _, turn := range trimHistory(c.History, a.historyBudget) {
		role := ai.RoleUser
		if turn.Role == database.RoleAssistant {
			role = ai.RoleAssistant
		}
		messages = append(messages, ai.Message{Role: role, Content: turn.Content})
	}

	messages = append(messages, ai.Message{Role: ai.RoleUser, Content: message})

	return a.client.ChatCompletion(ctx, messages)
}

// trimHistory selects the newest turns whose combined content fits the
// character budget, returned oldest-first so the replay keeps chronology.
func trimHistory(turns []database.ConversationTurn, budget int) []database.ConversationTurn {
	if budget <= 0 {
		return turns
	}

	total := 0
	start := len(turns)
	for i := len(turns) - 1; i >= 0; i-- {
		total += len(turns[i].Content)
		if total > budget {
			break
		}
		start = i
	}
	return turns[start:]
}

// saveExtractedFacts runs the fact extractor over the message and upserts
// every derived fact. Best-effort, consistent with the memory write policy.
func (a *Agent) saveExtractedFacts(ctx context.Context, phone, message string) {
	for _, fact := range a.facts.Extract(message) {
		a.memory.SaveFact(ctx, phone, fact.Key, fact.Value)
	}
}

// formatDataReply renders matched database rows into a direct reply without
// involving the model. Used by the database-only mode when rows matched.
func formatDataReply(c *Context, bag *QueryBag) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Halo %s! Ini data dari EcoBot:\n", c.DisplayName)

	if len(bag.Points) > 0 {
		sb.WriteString("\n📍 Titik pengumpulan sampah:\n")
		for i, p := range bag.Points {
			if i >= maxPromptRows {
				fmt.Fprintf(&sb, "... dan %d titik lainnya\n", len(bag.Points)-maxPromptRows)
				break
			}
			fmt.Fprintf(&sb, "%d. %s (%s) - menerima %s, jadwal %s\n", i+1, p.Name, p.Type, p.WasteTypes, p.Schedule)
		}
	}

	if len(bag.Schedules) > 0 {
		sb.WriteString("\n📅 Jadwal pengumpulan:\n")
		for i, s := range bag.Schedules {
			if i >= maxPromptRows {
				fmt.Fprintf(&sb, "... dan %d jadwal lainnya\n", len(bag.Schedules)-maxPromptRows)
				break
			}
			fmt.Fprintf(&sb, "%d. %s: %s %s-%s (%s)\n", i+1, s.PointName, s.DayOfWeek, s.StartTime, s.EndTime, s.WasteTypes)
		}
	}

	sb.WriteString("\nAda lagi yang mau dicek dari data EcoBot?")
	return sb.String()
}

// SwitchMode persists the user's mode preference and returns the confirmation
// text. An unknown mode name writes nothing and returns guidance instead.
func (a *Agent) SwitchMode(ctx context.Context, phone, modeName string) string {
	mode, ok := ParseMode(modeName)
	if !ok {
		return fmt.Sprintf("Mode %q tidak dikenal. Mode yang tersedia: ecobot, general, hybrid.", modeName)
	}

	a.memory.SaveFact(ctx, phone, aiModeFactKey, mode.String())
	a.logger.InfoContext(ctx, "Mode switched", "phone", phone, "mode", mode.String())

	return fmt.Sprintf("✅ Mode *%s* aktif!\n\nSekarang saya menjawab dengan %s.", mode.Title(), mode.Description())
}

// Encouragement lines per classification outcome.
var classificationEncouragement = map[string]string{
	vision.WasteOrganic:   "Sampah organik bisa jadi kompos yang berguna untuk kebun! 🌱",
	vision.WasteInorganic: "Sampah anorganik bisa didaur ulang, jangan lupa dipilah ya! ♻️",
	vision.WasteHazardous: "Hati-hati, sampah B3 harus dibuang ke titik khusus ya! ⚠️",
}

const imageHistoryNote = "Mengirim foto sampah untuk dianalisis"

// ProcessImageMessage classifies a waste photo and returns the personalized
// verdict reply. The classification is recorded for community statistics and
// the exchange is written to conversation history.
func (a *Agent) ProcessImageMessage(ctx context.Context, phone string, image []byte, requested Mode) Result {
	if err := a.store.TouchUser(ctx, phone, true); err != nil {
		a.logger.ErrorContext(ctx, "Failed to record user activity", "phone", phone, "error", err)
	}

	c := a.buildContext(ctx, phone, requested)

	status := StatusSuccess
	var reply string
	switch {
	case a.vision == nil:
		reply = fmt.Sprintf("Maaf %s, fitur analisis foto sedang tidak tersedia. Coba tanya langsung jenis sampahnya ya!", c.DisplayName)

	default:
		analysis, err := a.vision.AnalyzeWasteImage(ctx, image)
		switch {
		case errors.Is(err, vision.ErrNotWasteImage):
			reply = fmt.Sprintf("Hehe, sepertinya itu stiker, bukan foto sampah %s! 😄 Kirim foto sampah asli ya kalau mau saya klasifikasikan.", c.DisplayName)

		case err != nil:
			a.logger.ErrorContext(ctx, "Image classification failed", "phone", phone, "error", err)
			status = StatusError
			reply = fmt.Sprintf("Maaf %s, saya gagal menganalisis fotonya. Coba kirim ulang dengan pencahayaan yang lebih jelas ya! 🙏", c.DisplayName)

		default:
			reply = formatClassificationReply(c, analysis)
			if err := a.store.SaveClassification(ctx, phone, analysis.WasteType, analysis.Confidence, "vision"); err != nil {
				a.logger.ErrorContext(ctx, "Failed to record classification", "phone", phone, "error", err)
			}
		}
	}

	a.memory.AppendTurn(ctx, phone, database.RoleUser, imageHistoryNote)
	a.memory.AppendTurn(ctx, phone, database.RoleAssistant, reply)

	return Result{Status: status, Reply: reply}
}

// formatClassificationReply renders a classification verdict as a chat reply.
func formatClassificationReply(c *Context, analysis *vision.Analysis) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Halo %s! Ini hasil analisis fotomu:\n\n", c.DisplayName)
	fmt.Fprintf(&sb, "🗑️ Jenis sampah: *%s*\n", analysis.WasteType)
	fmt.Fprintf(&sb, "📊 Tingkat keyakinan: %.0f%%\n", analysis.Confidence*100)
	if analysis.Description != "" {
		fmt.Fprintf(&sb, "📝 %s\n", analysis.Description)
	}
	if analysis.Tips != "" {
		fmt.Fprintf(&sb, "\n💡 Tips: %s\n", analysis.Tips)
	}
	if line, ok := classificationEncouragement[analysis.WasteType]; ok {
		sb.WriteString("\n")
		sb.WriteString(line)
	}

	return sb.String()
}

// ActivitySummary describes a user's trailing-window conversation activity.
type ActivitySummary struct {
	TotalMessages     int    `json:"total_messages"`
	UserMessages      int    `json:"user_messages"`
	AssistantMessages int    `json:"assistant_messages"`
	FirstMessage      string `json:"first_message,omitempty"`
	LastMessage       string `json:"last_message,omitempty"`
}

// MemoryStats summarizes what the agent remembers about one user.
type MemoryStats struct {
	FactCount         int             `json:"user_facts_count"`
	ConversationCount int             `json:"conversation_count"`
	RecentActivity    ActivitySummary `json:"recent_activity"`
	CommonTopics      []string        `json:"common_topics"`
	MemoryKeys        []string        `json:"memory_keys"`
	LastConversation  string          `json:"last_conversation,omitempty"`
}

// GetMemoryStats reports the memory footprint for a user. Reads degrade to
// zero values; the call itself never fails.
func (a *Agent) GetMemoryStats(ctx context.Context, phone string) MemoryStats {
	facts := a.memory.AllFacts(ctx, phone)
	summary := a.memory.Summary(ctx, phone, 7)

	stats := MemoryStats{
		FactCount:         len(facts),
		ConversationCount: a.memory.TurnCount(ctx, phone),
		RecentActivity: ActivitySummary{
			TotalMessages:     summary.TotalMessages,
			UserMessages:      summary.UserMessages,
			AssistantMessages: summary.AssistantMessages,
		},
		CommonTopics: a.memory.Topics(ctx, phone, 10),
		MemoryKeys:   sortedFactKeys(facts),
	}

	if summary.FirstMessage.Valid {
		stats.RecentActivity.FirstMessage = summary.FirstMessage.Time.Format(time.RFC3339)
	}
	if summary.LastMessage.Valid {
		stats.RecentActivity.LastMessage = summary.LastMessage.Time.Format(time.RFC3339)
		stats.LastConversation = stats.RecentActivity.LastMessage
	}

	return stats
}
