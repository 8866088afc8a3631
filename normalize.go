package ubigeo

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// diacritics is the fixed substitution table applied after case folding.
// It is intentionally explicit so results never depend on locale data.
var diacritics = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ä", "a", "ã", "a",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"í", "i", "ì", "i", "î", "i", "ï", "i",
	"ó", "o", "ò", "o", "ô", "o", "ö", "o", "õ", "o",
	"ú", "u", "ù", "u", "û", "u", "ü", "u",
	"ñ", "n", "ç", "c",
	"’", "'", "‘", "'",
	// Combining marks left by decomposed input.
	"\u0300", "", "\u0301", "", "\u0302", "", "\u0303", "", "\u0307", "", "\u0308", "",
)

// Normalize lowercases, trims and collapses whitespace, and strips accents
// using a fixed table. It is idempotent and never fails:
//
//	Normalize("  Áncash ") == "ancash"
//	Normalize("San  Juan de\tLurigancho") == "san juan de lurigancho"
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	// A fresh Caser per call: cases.Caser is stateful and not safe for
	// concurrent use. cases.Fold is not idempotent on Cherokee.
	lowered := diacritics.Replace(cases.Lower(language.Und).String(s))
	return strings.Join(strings.Fields(lowered), " ")
}
