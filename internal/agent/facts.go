package agent

import (
	"fmt"
	"regexp"
	"strings"
)

// ExtractedFact is one key/value pair produced by fact extraction.
type ExtractedFact struct {
	Key   string
	Value string
}

// FactExtractor derives long-term facts from a raw user message. Extraction
// is inherently heuristic; implementations must be pure so they can be
// swapped and tested independently of the conversational flow.
type FactExtractor interface {
	Extract(message string) []ExtractedFact
}

// heuristicExtractor is the default extractor: fixed substring and regex
// heuristics over the raw message.
type heuristicExtractor struct{}

// NewFactExtractor returns the default heuristic fact extractor.
func NewFactExtractor() FactExtractor {
	return heuristicExtractor{}
}

var (
	namePattern      = regexp.MustCompile(`(?i)nama\s+saya\s+([a-zA-Z]+)`)
	shortNamePattern = regexp.MustCompile(`(?i)^saya\s+([a-zA-Z]+)\s*$`)
	rtPattern        = regexp.MustCompile(`(?i)\brt\s*(\d+)`)
)

// Waste-topic keywords scanned in order; only the first match sets an
// interest fact for the turn.
var interestKeywords = []struct {
	word string
	key  string
}{
	{"organik", "organic_interest"},
	{"daur ulang", "recycling_interest"},
	{"kompos", "composting_interest"},
	{"b3", "hazardous_interest"},
	{"jadwal", "schedule_interest"},
	{"lokasi", "location_interest"},
}

// Extract applies the heuristics. All extraction is best-effort: a message
// matching nothing yields only the conversation_style shape fact.
func (heuristicExtractor) Extract(message string) []ExtractedFact {
	var facts []ExtractedFact
	lower := strings.ToLower(message)

	if name := extractName(message); name != "" {
		facts = append(facts, ExtractedFact{Key: userNameFactKey, Value: name})
	}

	if strings.Contains(lower, "kampung hijau") {
		facts = append(facts, ExtractedFact{Key: "location", Value: "Kampung Hijau"})
	}
	if m := rtPattern.FindStringSubmatch(message); m != nil {
		facts = append(facts, ExtractedFact{Key: "rt", Value: m[1]})
	}

	style := "brief"
	switch {
	case strings.Contains(message, "?"):
		style = "questioner"
	case len(message) > 50:
		style = "detailed"
	}
	facts = append(facts, ExtractedFact{Key: "conversation_style", Value: style})

	for _, interest := range interestKeywords {
		if strings.Contains(lower, interest.word) {
			facts = append(facts, ExtractedFact{Key: interest.key, Value: "high"})
			break
		}
	}

	return facts
}

// extractName pulls a single-token name from a self-introduction.
func extractName(message string) string {
	m := namePattern.FindStringSubmatch(message)
	if m == nil {
		m = shortNamePattern.FindStringSubmatch(strings.TrimSpace(message))
	}
	if m == nil {
		return ""
	}
	return titleCase(m[1])
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return fmt.Sprintf("%s%s", strings.ToUpper(s[:1]), strings.ToLower(s[1:]))
}
