package analysis

import (
	"strings"
)

// BuildPrompt asks for a Turkish report on the table, grounded on the
// reference text when there is any.
func BuildPrompt(tableMarkdown, flagged, references string) string {
	parts := []string{
		"Aşağıdaki tablo verilerini analiz et ve fazla ya da düşük değerleri tespit et:",
		tableMarkdown,
		"Lütfen şunları analiz et:\n" +
			"1. Hangi değerler normal aralığın dışında?\n" +
			"2. Hangi değerler yüksek risk taşıyor?\n" +
			"3. Hangi değerler düşük risk taşıyor?\n" +
			"4. Genel sağlık durumu hakkında öneriler?\n" +
			"5. Anormal değerler için spesifik tedavi önerileri?",
	}
	if f := strings.TrimSpace(flagged); f != "" {
		parts = append(parts, "İncelenmesi gereken değerler:\n"+f)
	}
	if r := strings.TrimSpace(references); r != "" {
		parts = append(parts, r)
	}
	parts = append(parts,
		"Yukarıdaki referans bilgileri kullanarak, anormal değerler için spesifik nedenler ve tedavi önerileri sun. Her anormal değer için:\n"+
			"- Olası nedenleri\n"+
			"- Nasıl düzeltileceği\n"+
			"- Hangi doktora başvurulması gerektiği\n"+
			"- Yaşam tarzı değişiklikleri",
		"Türkçe olarak detaylı bir analiz raporu hazırla.",
	)
	return strings.Join(parts, "\n\n")
}
