package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ecobot-id/ecobot/internal/database"
)

func TestPostProcess(t *testing.T) {
	t.Parallel()

	dbShapedNoRows := &QueryBag{LocationAsked: true}
	dbShapedWithRows := &QueryBag{
		LocationAsked: true,
		Points:        []database.CollectionPoint{{Name: "TPS 1"}},
	}
	offTopic := &QueryBag{}

	tests := []struct {
		name  string
		mode  Mode
		bag   *QueryBag
		reply string
		want  string
	}{
		{
			name:  "ecobot no data prepends guidance",
			mode:  ModeEcobot,
			bag:   dbShapedNoRows,
			reply: "Tidak ada data.",
			want:  ecobotNoDataGuidance + "\n\nTidak ada data.",
		},
		{
			name:  "ecobot with rows passes through",
			mode:  ModeEcobot,
			bag:   dbShapedWithRows,
			reply: "Ini datanya.",
			want:  "Ini datanya.",
		},
		{
			name:  "ecobot off-topic passes through",
			mode:  ModeEcobot,
			bag:   offTopic,
			reply: "Halo!",
			want:  "Halo!",
		},
		{
			name:  "general db-shaped appends redirect",
			mode:  ModeGeneral,
			bag:   dbShapedNoRows,
			reply: "Secara umum, TPS ada di tiap kelurahan.",
			want:  "Secara umum, TPS ada di tiap kelurahan.\n\n" + generalRedirectTail,
		},
		{
			name:  "general off-topic passes through",
			mode:  ModeGeneral,
			bag:   offTopic,
			reply: "Kompos itu mudah.",
			want:  "Kompos itu mudah.",
		},
		{
			name:  "hybrid always appends confirmation",
			mode:  ModeHybrid,
			bag:   offTopic,
			reply: "Jawaban.",
			want:  "Jawaban.\n\n" + hybridConfirmTail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, PostProcess(tt.mode, tt.bag, tt.reply))
		})
	}
}

// Running the post-processor twice must never duplicate a tail.
func TestPostProcessIdempotent(t *testing.T) {
	t.Parallel()

	bag := &QueryBag{ScheduleAsked: true}

	for _, mode := range []Mode{ModeEcobot, ModeGeneral, ModeHybrid} {
		once := PostProcess(mode, bag, "Jawaban awal.")
		twice := PostProcess(mode, bag, once)
		assert.Equal(t, once, twice, "mode %s", mode)
	}

	// Hybrid specifically: the confirmation question appears exactly once.
	twice := PostProcess(ModeHybrid, bag, PostProcess(ModeHybrid, bag, "Jawaban."))
	assert.Equal(t, 1, strings.Count(twice, hybridConfirmTail))
}
