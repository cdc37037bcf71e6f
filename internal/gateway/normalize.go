package gateway

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxOrderInfoLength = 255

// dStroke covers the Vietnamese letters that carry no combining mark under NFD.
var dStroke = strings.NewReplacer("đ", "d", "Đ", "D")

// NormalizeOrderInfo strips diacritics, keeps ASCII letters, digits and
// spaces, collapses whitespace and caps the result length.
func NormalizeOrderInfo(raw string) string {
	folded := dStroke.Replace(raw)
	// Transformers are stateful; build one per call.
	stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, errTransform := transform.String(stripper, folded); errTransform == nil {
		folded = out
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte(' ')
	}

	cleaned := strings.Join(strings.Fields(b.String()), " ")
	if len(cleaned) > maxOrderInfoLength {
		cleaned = strings.TrimSpace(cleaned[:maxOrderInfoLength])
	}
	return cleaned
}
