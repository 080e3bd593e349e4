package webhook

import "strings"

// Mode-switch chat commands.
const (
	cmdEcobot  = "/layanan-ecobot"
	cmdGeneral = "/general-ecobot"
	cmdHybrid  = "/hybrid-ecobot"
)

// Guidance appended to the switch confirmation so users know what the new
// mode is good at.
var modeGuidance = map[string]string{
	"ecobot":  "Contoh: \"dimana lokasi pembuangan terdekat?\" atau \"kapan jadwal pengumpulan?\"",
	"general": "Contoh: \"bagaimana cara membuat kompos?\" atau \"apa itu sampah B3?\"",
	"hybrid":  "Tanya apa saja, saya gabungkan data EcoBot dengan pengetahuan umum.",
}

// parseModeCommand maps a mode-switch command to its mode name. The bool is
// false for anything that is not one of the three commands.
func parseModeCommand(body string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(body)) {
	case cmdEcobot:
		return "ecobot", true
	case cmdGeneral:
		return "general", true
	case cmdHybrid:
		return "hybrid", true
	default:
		return "", false
	}
}
