package agent

import (
	"context"
	"sort"
	"strings"

	"github.com/ecobot-id/ecobot/internal/database"
)

// Context carries everything a prompt builder needs for one turn: resolved
// identity, long-term facts, conversation history, the derived style profile,
// and the resolved mode. Built once per inbound message.
type Context struct {
	Phone       string
	DisplayName string
	Role        string
	Points      int
	Profile     *database.User // nil when the user row is missing

	Facts   map[string]FactValue
	History []database.ConversationTurn
	Summary database.ConversationSummary
	Topics  []string
	Style   StyleProfile

	Mode Mode
}

// Fact keys written and read by the context builder.
const (
	userNameFactKey  = "user_name"
	userAliasFactKey = "user_alias"
)

// aliasPrefix is prepended to the last four digits of the phone number when
// generating a display alias for users with no stored name.
const aliasPrefix = "soeco"

// placeholder profile names that must not win the display-name resolution.
var namePlaceholders = map[string]bool{
	"":               true,
	"Teman":          true,
	"Belum dikenali": true,
}

// buildContext assembles the per-turn context for a user. It resolves the
// display name through the name → fact → alias chain (persisting a freshly
// generated alias), and resolves the active mode: a previously saved ai_mode
// fact overrides the caller-supplied mode.
func (a *Agent) buildContext(ctx context.Context, phone string, requested Mode) *Context {
	profile, err := a.store.GetUser(ctx, phone)
	if err != nil {
		a.logger.ErrorContext(ctx, "Failed to load user profile, degrading", "phone", phone, "error", err)
		profile = nil
	}

	facts := a.memory.AllFacts(ctx, phone)
	history := a.memory.RecentTurns(ctx, phone, a.historyTurns)
	summary := a.memory.Summary(ctx, phone, 7)
	topics := a.memory.Topics(ctx, phone, 10)
	style := AnalyzeStyle(history)

	mode := requested
	if saved, ok := facts[aiModeFactKey]; ok {
		if parsed, valid := ParseMode(saved.Value); valid {
			mode = parsed
		}
	}

	role := "warga"
	points := 0
	if profile != nil {
		role = profile.Role
		points = profile.Points
	}

	c := &Context{
		Phone:   phone,
		Role:    role,
		Points:  points,
		Profile: profile,
		Facts:   facts,
		History: history,
		Summary: summary,
		Topics:  topics,
		Style:   style,
		Mode:    mode,
	}
	c.DisplayName = a.resolveDisplayName(ctx, phone, profile, facts)

	return c
}

// resolveDisplayName walks the resolution chain: stored profile name (if not
// a placeholder) → user_name fact → user_alias fact → generated alias. A
// newly generated alias is persisted so repeated calls stay stable.
func (a *Agent) resolveDisplayName(ctx context.Context, phone string, profile *database.User, facts map[string]FactValue) string {
	if profile != nil && profile.Name.Valid && !namePlaceholders[profile.Name.String] {
		return profile.Name.String
	}

	if fact, ok := facts[userNameFactKey]; ok && fact.Value != "" {
		return fact.Value
	}

	if fact, ok := facts[userAliasFactKey]; ok && fact.Value != "" {
		return fact.Value
	}

	alias := GenerateAlias(phone)
	a.memory.SaveFact(ctx, phone, userAliasFactKey, alias)
	a.logger.DebugContext(ctx, "Generated display alias", "phone", phone, "alias", alias)
	return alias
}

// GenerateAlias derives a deterministic display alias from the last four
// digits of the phone-derived identifier.
func GenerateAlias(phone string) string {
	var digits []rune
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) > 4 {
		digits = digits[len(digits)-4:]
	}
	return aliasPrefix + string(digits)
}

// FactLines renders the fact map as prompt bullet lines, or the
// "nothing known" placeholder when empty.
func (c *Context) FactLines() string {
	if len(c.Facts) == 0 {
		return "- Belum ada fakta personal yang diketahui tentang user ini"
	}

	var sb strings.Builder
	for _, key := range sortedFactKeys(c.Facts) {
		sb.WriteString("- ")
		sb.WriteString(key)
		sb.WriteString(": ")
		sb.WriteString(c.Facts[key].Value)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func sortedFactKeys(facts map[string]FactValue) []string {
	keys := make([]string, 0, len(facts))
	for key := range facts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
