package agent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ecobot-id/ecobot/internal/database"
)

// QueryBag holds the rows pulled from storage for one request, keyed off
// topic keywords found in the raw message. Ephemeral: lives only for the
// duration of one request.
type QueryBag struct {
	LocationAsked       bool
	ScheduleAsked       bool
	StatsAsked          bool
	ClassificationAsked bool

	Points      []database.CollectionPoint
	Schedules   []database.ScheduleInfo
	Stats       *database.CommunityStats
	WasteCounts []database.WasteTypeCount
}

// DatabaseShaped reports whether the message asked a question the database
// is expected to answer (location or schedule).
func (b *QueryBag) DatabaseShaped() bool {
	return b.LocationAsked || b.ScheduleAsked
}

// HasMatches reports whether any location or schedule rows came back for a
// database-shaped question.
func (b *QueryBag) HasMatches() bool {
	return len(b.Points) > 0 || len(b.Schedules) > 0
}

// Keyword families. Independent and non-exclusive: one message can trigger
// several.
var (
	locationKeywords       = []string{"lokasi", "dimana", "di mana", "tempat", "pembuangan", "tps", "titik kumpul"}
	scheduleKeywords       = []string{"jadwal", "kapan", "hari apa", "jam berapa", "pengumpulan", "pengangkutan"}
	statsKeywords          = []string{"statistik", "jumlah warga", "total poin", "berapa pengguna", "berapa user"}
	classificationKeywords = []string{"klasifikasi", "jenis sampah", "kategori sampah"}
)

// QueryExtractor turns an inbound message into targeted read queries against
// the collection-point, schedule, and user tables.
type QueryExtractor struct {
	store  database.Store
	logger *slog.Logger
}

// NewQueryExtractor creates an extractor over the given store.
func NewQueryExtractor(store database.Store, logger *slog.Logger) *QueryExtractor {
	return &QueryExtractor{
		store:  store,
		logger: logger.With("component", "query_extractor"),
	}
}

// Extract matches the message against the four keyword families and runs the
// queries for each matched family. Read failures degrade to an empty section
// of the bag; the bag itself is always returned.
func (e *QueryExtractor) Extract(ctx context.Context, message string) *QueryBag {
	lower := strings.ToLower(message)
	bag := &QueryBag{
		LocationAsked:       containsAny(lower, locationKeywords),
		ScheduleAsked:       containsAny(lower, scheduleKeywords),
		StatsAsked:          containsAny(lower, statsKeywords),
		ClassificationAsked: containsAny(lower, classificationKeywords),
	}

	if bag.LocationAsked {
		bag.Points = e.collectionPoints(ctx)
	}
	if bag.ScheduleAsked {
		bag.Schedules = e.schedules(ctx)
	}
	if bag.StatsAsked {
		stats, err := e.store.CommunityStats(ctx)
		if err != nil {
			e.logger.ErrorContext(ctx, "Failed to load community stats, degrading", "error", err)
		} else {
			bag.Stats = stats
		}
	}
	if bag.ClassificationAsked {
		counts, err := e.store.WasteTypeCounts(ctx)
		if err != nil {
			e.logger.ErrorContext(ctx, "Failed to load waste type counts, degrading", "error", err)
		} else {
			bag.WasteCounts = counts
		}
	}

	return bag
}

// collectionPoints prefers active rows and falls back to an unfiltered query
// when none exist. The fallback tolerates datasets where the active flag was
// never populated.
func (e *QueryExtractor) collectionPoints(ctx context.Context) []database.CollectionPoint {
	points, err := e.store.CollectionPoints(ctx, true)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to load active collection points, degrading", "error", err)
		return nil
	}
	if len(points) > 0 {
		return points
	}

	points, err = e.store.CollectionPoints(ctx, false)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to load fallback collection points, degrading", "error", err)
		return nil
	}
	return points
}

// schedules mirrors collectionPoints' active-then-fallback behavior.
func (e *QueryExtractor) schedules(ctx context.Context) []database.ScheduleInfo {
	schedules, err := e.store.Schedules(ctx, true)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to load active schedules, degrading", "error", err)
		return nil
	}
	if len(schedules) > 0 {
		return schedules
	}

	schedules, err = e.store.Schedules(ctx, false)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to load fallback schedules, degrading", "error", err)
		return nil
	}
	return schedules
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
