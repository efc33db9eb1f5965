package nlp

import (
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// minStemmableLen is the shortest word (in runes) the stemmer touches.
	minStemmableLen = 3
	// minStemLen is the shortest stem a suffix strip may leave behind.
	minStemLen = 2
)

// suffixes are postpositions and plural markers, longest first so compound
// forms like "हरूमा" win over "मा".
var suffixes = sortedByLength(
	"हरूमा", "हरूले", "हरूको", "हरूलाई",
	"हरू", "मा", "ले", "को", "लाई", "बाट", "देखि",
	"सँग", "तिर", "भित्र", "बाहिर", "माथि", "मुनि",
	"ज्यू", "साथी", "कहाँ",
)

type suffix struct {
	text  string
	runes int
}

func sortedByLength(list ...string) []suffix {
	out := make([]suffix, len(list))
	for i, s := range list {
		out[i] = suffix{text: s, runes: utf8.RuneCountInString(s)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].runes > out[j].runes })
	return out
}

// Stem strips at most one suffix from word: the longest one that matches and
// leaves at least two runes. Words under three runes are returned unchanged.
// Lengths are counted in runes, not UTF-16 code units, so a character outside
// the BMP counts once: "😀मा" has three runes and is left as is.
func Stem(word string) string {
	n := utf8.RuneCountInString(word)
	if n < minStemmableLen {
		return word
	}
	for _, s := range suffixes {
		if n-s.runes >= minStemLen && strings.HasSuffix(word, s.text) {
			return word[:len(word)-len(s.text)]
		}
	}
	return word
}

// StemText stems every whitespace-separated token independently.
func StemText(text string) string {
	tokens := strings.Fields(text)
	for i, t := range tokens {
		tokens[i] = Stem(t)
	}
	return strings.Join(tokens, " ")
}
