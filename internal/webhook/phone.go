package webhook

import "strings"

// NormalizePhone canonicalizes a WhatsApp sender identifier: the @c.us JID
// suffix, surrounding whitespace, and a leading + are stripped so the same
// user always maps to the same stored phone key.
func NormalizePhone(raw string) string {
	phone := strings.TrimSpace(raw)
	if idx := strings.Index(phone, "@"); idx != -1 {
		phone = phone[:idx]
	}
	phone = strings.TrimPrefix(phone, "+")
	phone = strings.ReplaceAll(phone, " ", "")
	phone = strings.ReplaceAll(phone, "-", "")
	return phone
}
