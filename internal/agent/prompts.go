package agent

import (
	"fmt"
	"strings"
)

// maxPromptRows caps how many collection points and schedules are embedded
// in a single system prompt.
const maxPromptRows = 5

// BuildPrompt renders the mode-specific system prompt from the per-turn
// context and the query bag. Pure function of its inputs.
func BuildPrompt(c *Context, bag *QueryBag) string {
	switch c.Mode {
	case ModeEcobot:
		return buildEcobotPrompt(c, bag)
	case ModeGeneral:
		return buildGeneralPrompt(c, bag)
	case ModeHybrid:
		return buildHybridPrompt(c, bag)
	default:
		return buildHybridPrompt(c, bag)
	}
}

// userBlock renders the identity, fact, and style sections shared by all
// three prompt builders.
func userBlock(c *Context) string {
	var sb strings.Builder

	sb.WriteString("INFORMASI USER:\n")
	fmt.Fprintf(&sb, "- Nama: %s\n", c.DisplayName)
	fmt.Fprintf(&sb, "- Role: %s\n", c.Role)
	fmt.Fprintf(&sb, "- Poin yang dimiliki: %d\n", c.Points)

	sb.WriteString("\nFAKTA PERSONAL YANG KAMU KETAHUI:\n")
	sb.WriteString(c.FactLines())

	sb.WriteString("\n\nANALISIS GAYA KOMUNIKASI USER:\n")
	fmt.Fprintf(&sb, "- Formalitas: %s\n", c.Style.Formality)
	fmt.Fprintf(&sb, "- Penggunaan emoji: %s\n", c.Style.EmojiUsage)
	fmt.Fprintf(&sb, "- Panjang pesan: %s\n", c.Style.MessageLength)
	fmt.Fprintf(&sb, "- Topik favorit: %s\n", c.Style.PreferredTopics)

	return sb.String()
}

// dataBlock renders the matched database rows, truncated to maxPromptRows
// per section.
func dataBlock(bag *QueryBag) string {
	var sb strings.Builder

	if len(bag.Points) > 0 {
		sb.WriteString("\nTITIK PENGUMPULAN SAMPAH (dari database):\n")
		for i, p := range bag.Points {
			if i >= maxPromptRows {
				fmt.Fprintf(&sb, "- ... dan %d titik lainnya\n", len(bag.Points)-maxPromptRows)
				break
			}
			fmt.Fprintf(&sb, "- %s (%s): terima %s, jadwal %s", p.Name, p.Type, p.WasteTypes, p.Schedule)
			if p.Contact.Valid && p.Contact.String != "" {
				fmt.Fprintf(&sb, ", kontak %s", p.Contact.String)
			}
			sb.WriteString("\n")
		}
	}

	if len(bag.Schedules) > 0 {
		sb.WriteString("\nJADWAL PENGUMPULAN (dari database):\n")
		for i, s := range bag.Schedules {
			if i >= maxPromptRows {
				fmt.Fprintf(&sb, "- ... dan %d jadwal lainnya\n", len(bag.Schedules)-maxPromptRows)
				break
			}
			fmt.Fprintf(&sb, "- %s: %s %s-%s (%s)\n", s.PointName, s.DayOfWeek, s.StartTime, s.EndTime, s.WasteTypes)
		}
	}

	if bag.Stats != nil {
		sb.WriteString("\nSTATISTIK KOMUNITAS (dari database):\n")
		fmt.Fprintf(&sb, "- Pengguna aktif: %d\n", bag.Stats.ActiveUsers)
		fmt.Fprintf(&sb, "- Total poin terkumpul: %d\n", bag.Stats.TotalPoints)
	}

	if len(bag.WasteCounts) > 0 {
		sb.WriteString("\nRIWAYAT KLASIFIKASI SAMPAH (dari database):\n")
		for _, wc := range bag.WasteCounts {
			fmt.Fprintf(&sb, "- %s: %d kali\n", wc.WasteType, wc.Count)
		}
	}

	return sb.String()
}

func buildEcobotPrompt(c *Context, bag *QueryBag) string {
	var sb strings.Builder

	sb.WriteString("Kamu adalah EcoBot dalam mode EcoBot Service: database first.\n\n")
	sb.WriteString("ATURAN MODE:\n")
	sb.WriteString("1. Jawab LANGSUNG dari data database yang diberikan di bawah.\n")
	sb.WriteString("2. Jika data tidak tersedia, JANGAN berpanjang-panjang dengan pengetahuan umum.\n")
	sb.WriteString("3. Jika database tidak punya jawaban yang relevan, arahkan user ke mode /hybrid-ecobot atau /general-ecobot.\n")
	sb.WriteString("4. Maksimal 3-4 kalimat agar mudah dibaca di WhatsApp.\n\n")

	sb.WriteString(userBlock(c))
	sb.WriteString(dataBlock(bag))

	return sb.String()
}

func buildGeneralPrompt(c *Context, bag *QueryBag) string {
	var sb strings.Builder

	sb.WriteString("Kamu adalah EcoBot dalam mode General Waste Management: general knowledge first.\n\n")
	sb.WriteString("ATURAN MODE:\n")
	sb.WriteString("1. Jawab dengan edukasi pengelolaan sampah dan lingkungan dari pengetahuan umum.\n")
	sb.WriteString("2. Jika pertanyaan menyangkut data spesifik (lokasi/jadwal), jawab singkat secara umum dan sarankan pindah ke mode /layanan-ecobot.\n")
	sb.WriteString("3. JANGAN menyarankan pindah mode jika pertanyaan tidak menyangkut data database.\n")
	sb.WriteString("4. Maksimal 4-5 kalimat agar mudah dibaca di WhatsApp.\n\n")

	sb.WriteString(userBlock(c))

	return sb.String()
}

func buildHybridPrompt(c *Context, bag *QueryBag) string {
	var sb strings.Builder

	sb.WriteString("Kamu adalah EcoBot dalam mode Hybrid: database first, AI knowledge sebagai fallback.\n\n")
	sb.WriteString("ATURAN MODE:\n")
	sb.WriteString("1. Prioritaskan data database yang diberikan di bawah; lengkapi dengan pengetahuan umum bila perlu.\n")
	sb.WriteString("2. Gabungkan kedua sumber menjadi jawaban yang utuh dan personal.\n")
	sb.WriteString("3. SELALU akhiri dengan pertanyaan konfirmasi yang mengajak user menyebutkan lokasinya untuk hasil yang lebih spesifik.\n")
	sb.WriteString("4. Maksimal 4-5 kalimat agar mudah dibaca di WhatsApp.\n\n")

	sb.WriteString(userBlock(c))
	sb.WriteString(dataBlock(bag))

	return sb.String()
}
