// Package agent implements the conversational core: per-user long-term
// memory, communication-style analysis, mode-routed prompt building,
// response generation with deterministic post-processing, and best-effort
// fact extraction.
package agent

import "fmt"

// Mode selects the response-generation strategy for a conversation turn.
// The active mode is resolved once at the start of processing and used
// consistently through prompt building and post-processing for that turn.
type Mode int

const (
	// ModeEcobot answers from the database only.
	ModeEcobot Mode = iota
	// ModeGeneral answers from open-domain knowledge.
	ModeGeneral
	// ModeHybrid prefers database rows and falls back to open-domain knowledge.
	ModeHybrid
)

// DefaultMode is used when the caller supplies no mode and the user has no
// persisted preference.
const DefaultMode = ModeHybrid

// aiModeFactKey is the fact key holding a user's sticky mode preference.
const aiModeFactKey = "ai_mode"

// ParseMode maps a mode name to its Mode value. The bool reports whether
// the name is one of the three known modes.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "ecobot":
		return ModeEcobot, true
	case "general":
		return ModeGeneral, true
	case "hybrid":
		return ModeHybrid, true
	default:
		return DefaultMode, false
	}
}

// String returns the persisted mode name.
func (m Mode) String() string {
	switch m {
	case ModeEcobot:
		return "ecobot"
	case ModeGeneral:
		return "general"
	case ModeHybrid:
		return "hybrid"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Title returns the user-facing mode name shown in confirmations.
func (m Mode) Title() string {
	switch m {
	case ModeEcobot:
		return "EcoBot Service"
	case ModeGeneral:
		return "General Waste Management"
	case ModeHybrid:
		return "Hybrid"
	default:
		return m.String()
	}
}

// Description returns the human description embedded in prompts.
func (m Mode) Description() string {
	switch m {
	case ModeEcobot:
		return "layanan data EcoBot (khusus database)"
	case ModeGeneral:
		return "edukasi pengelolaan sampah umum"
	case ModeHybrid:
		return "gabungan data EcoBot dan pengetahuan umum"
	default:
		return m.String()
	}
}

// Scope states which knowledge sources the mode may draw on.
func (m Mode) Scope() string {
	switch m {
	case ModeEcobot:
		return "database only"
	case ModeGeneral:
		return "general knowledge"
	case ModeHybrid:
		return "database first, AI knowledge fallback"
	default:
		return m.String()
	}
}
