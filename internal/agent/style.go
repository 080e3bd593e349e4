package agent

import (
	"strings"

	"github.com/ecobot-id/ecobot/internal/database"
)

// StyleProfile is a coarse communication-style profile derived from a user's
// recent turns. Labels are embedded verbatim in prompts.
type StyleProfile struct {
	Formality       string
	EmojiUsage      string
	MessageLength   string
	PreferredTopics string
}

var (
	formalIndicators   = []string{"terima kasih", "mohon", "silakan", "bapak", "ibu"}
	informalIndicators = []string{"hai", "halo", "gimana", "oke", "thanks", "makasih"}
	environmentalWords = []string{"sampah", "lingkungan", "daur ulang", "kompos", "organik"}
)

// AnalyzeStyle derives a style profile from conversation turns. Pure function
// of its input: identical turns always produce identical output. Only
// user-role turns are considered.
func AnalyzeStyle(turns []database.ConversationTurn) StyleProfile {
	var userTurns []string
	for _, t := range turns {
		if t.Role == database.RoleUser {
			userTurns = append(userTurns, t.Content)
		}
	}

	if len(userTurns) == 0 {
		return StyleProfile{
			Formality:       "Netral",
			EmojiUsage:      "Jarang",
			MessageLength:   "Sedang",
			PreferredTopics: "Belum teridentifikasi",
		}
	}

	var formalCount, informalCount int
	for _, content := range userTurns {
		lower := strings.ToLower(content)
		for _, indicator := range formalIndicators {
			if strings.Contains(lower, indicator) {
				formalCount++
			}
		}
		for _, indicator := range informalIndicators {
			if strings.Contains(lower, indicator) {
				informalCount++
			}
		}
	}

	formality := "Netral"
	switch {
	case formalCount > informalCount:
		formality = "Formal"
	case informalCount > formalCount:
		formality = "Informal"
	}

	// Any code point above ASCII counts as "emoji". This also matches
	// accented letters and other non-ASCII text; kept for parity with the
	// established behavior.
	var emojiTurns int
	for _, content := range userTurns {
		for _, r := range content {
			if r > 127 {
				emojiTurns++
				break
			}
		}
	}

	emojiUsage := "Jarang"
	switch {
	case float64(emojiTurns) > float64(len(userTurns))*0.7:
		emojiUsage = "Sering"
	case float64(emojiTurns) > float64(len(userTurns))*0.3:
		emojiUsage = "Sedang"
	}

	var totalLength int
	for _, content := range userTurns {
		totalLength += len(content)
	}
	avgLength := float64(totalLength) / float64(len(userTurns))

	messageLength := "Pendek"
	switch {
	case avgLength > 100:
		messageLength = "Panjang"
	case avgLength > 30:
		messageLength = "Sedang"
	}

	var topicMentions int
	for _, content := range userTurns {
		lower := strings.ToLower(content)
		for _, keyword := range environmentalWords {
			if strings.Contains(lower, keyword) {
				topicMentions++
			}
		}
	}

	preferredTopics := "Umum"
	if float64(topicMentions) > float64(len(userTurns))*0.5 {
		preferredTopics = "Lingkungan dan sampah"
	}

	return StyleProfile{
		Formality:       formality,
		EmojiUsage:      emojiUsage,
		MessageLength:   messageLength,
		PreferredTopics: preferredTopics,
	}
}
