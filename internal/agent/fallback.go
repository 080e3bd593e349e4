package agent

import (
	"fmt"
	"strings"
)

// fallbackReply produces a templated reply when AI is disabled or generation
// failed. Branches mirror the keyword families users actually hit; the reply
// is still personalized from the resolved context and still goes through the
// mode post-processor afterwards.
func fallbackReply(c *Context, message string) string {
	lower := strings.ToLower(strings.TrimSpace(message))

	if containsAny(lower, []string{"hai", "halo", "hello", "hi", "alo"}) {
		return fmt.Sprintf("Halo %s! Senang bertemu denganmu! 😊 Saya EcoBot, asisten pengelolaan sampah yang siap membantu. Ada yang bisa saya bantu hari ini?", c.DisplayName)
	}

	if containsAny(lower, []string{"nama", "panggil"}) {
		return fmt.Sprintf("Senang berkenalan denganmu %s! 😊 Saya akan mengingat namamu. Ada yang bisa saya bantu seputar pengelolaan sampah?", c.DisplayName)
	}

	if containsAny(lower, locationKeywords) {
		if fact, ok := c.Facts["location"]; ok {
			return fmt.Sprintf("Baik %s! Berdasarkan lokasimu di %s, coba cek titik pengumpulan terdekat ya. Mau tahu jadwal pengumpulannya juga?", c.DisplayName, fact.Value)
		}
		return "Untuk lokasi pembuangan sampah, saya bisa bantu! Tapi dulu, bisa sebutkan alamatmu dimana? Jadi saya bisa kasih rekomendasi yang paling dekat dengan rumahmu."
	}

	if containsAny(lower, scheduleKeywords) {
		return "Jadwal pengumpulan sampah di desa kita: Senin (Organik), Rabu (Anorganik), Jumat (B3). Mau tahu detail jamnya atau ada yang spesifik?"
	}

	if containsAny(lower, []string{"sampah", "jenis", "organik", "anorganik", "b3"}) {
		return "Sampah ada 3 jenis utama: Organik (sisa makanan, daun), Anorganik (plastik, kertas), dan B3 (baterai, obat). Kirim foto sampah kalau mau saya bantu klasifikasi!"
	}

	if containsAny(lower, []string{"bantuan", "help", "tolong", "gimana"}) {
		return "Saya bisa bantu: 📸 Klasifikasi sampah dari foto, 📍 Info lokasi pembuangan, 📅 Jadwal pengumpulan, 🎓 Tips pengelolaan sampah. Mau coba yang mana dulu?"
	}

	return fmt.Sprintf("Hmm, menarik %s! 😊 Kalau mau belajar tentang sampah, kirim foto atau tanya tentang lokasi/jadwal pembuangan. Saya siap bantu!", c.DisplayName)
}
