package nlp

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// punctuation is replaced with a single space before whitespace is collapsed.
var punctuation = strings.NewReplacer(
	"\u0964", " ", // danda
	"\u0965", " ", // double danda
	",", " ",
	".", " ",
	"?", " ",
	"!", " ",
	":", " ",
	";", " ",
	"\"", " ",
	"'", " ",
	"\u2018", " ",
	"\u2019", " ",
	"\u201C", " ",
	"\u201D", " ",
)

// joiners are deleted outright. ZWJ/ZWNJ only affect ligature rendering.
var joiners = strings.NewReplacer(
	"\u200B", "",
	"\u200C", "",
	"\u200D", "",
	"\uFEFF", "",
)

// Normalize canonicalizes text for matching: NFC composition, punctuation to
// spaces, zero-width joiners removed, whitespace trimmed and collapsed.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	s := norm.NFC.String(text)
	s = punctuation.Replace(s)
	if stripped := joiners.Replace(s); stripped != s {
		// A removed joiner can leave a base and a combining mark adjacent;
		// recompose so Normalize stays idempotent.
		s = norm.NFC.String(stripped)
	}

	return strings.Join(strings.Fields(s), " ")
}
