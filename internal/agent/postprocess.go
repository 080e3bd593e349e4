package agent

import "strings"

// Deterministic reply tails applied after generation. Each append checks for
// presence first so running the post-processor twice never duplicates a tail.
const (
	ecobotNoDataGuidance = "Data yang kamu cari belum tersedia di database EcoBot. Coba mode /hybrid-ecobot atau /general-ecobot untuk jawaban yang lebih luas."

	generalRedirectTail = "Untuk data lokasi dan jadwal yang akurat dari database, gunakan mode /layanan-ecobot ya!"

	hybridConfirmTail = "Apakah informasi ini membantu? Sebutkan lokasimu kalau mau saya carikan alternatif terdekat ya! 😊"
)

// PostProcess applies the mode's deterministic business rules to the raw
// reply. It runs on both AI-generated and templated-fallback output so the
// tail behavior is consistent regardless of generation source.
func PostProcess(mode Mode, bag *QueryBag, reply string) string {
	switch mode {
	case ModeEcobot:
		// A database-shaped question that matched no rows gets redirection
		// guidance prepended; otherwise the reply passes through untouched.
		if bag.DatabaseShaped() && !bag.HasMatches() && !strings.Contains(reply, ecobotNoDataGuidance) {
			return ecobotNoDataGuidance + "\n\n" + reply
		}
		return reply

	case ModeGeneral:
		if bag.DatabaseShaped() && !strings.Contains(reply, generalRedirectTail) {
			return reply + "\n\n" + generalRedirectTail
		}
		return reply

	case ModeHybrid:
		if !strings.Contains(reply, hybridConfirmTail) {
			return reply + "\n\n" + hybridConfirmTail
		}
		return reply

	default:
		return reply
	}
}
