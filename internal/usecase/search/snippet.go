package search

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

const (
	snippetPrefixLen = 200
	snippetContext   = 100
	ellipsis         = "..."
	markOpen         = "<mark>"
	markClose        = "</mark>"
)

// snippetPolicy lets only the highlight element through. It runs after
// escaping, so it only ever sees the markers.
var snippetPolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("mark")
	return p
}()

// Highlight builds an HTML snippet of content around the first
// case-insensitive occurrence of query. Offsets are in runes.
func Highlight(content, query string) string {
	text := []rune(content)
	lower := foldRunes(text)
	needle := foldRunes([]rune(query))

	idx := indexRunes(lower, needle, 0)
	if idx < 0 {
		end := min(len(text), snippetPrefixLen)
		return sanitize(markAll(text[:end], nil, nil) + ellipsis)
	}

	start := max(0, idx-snippetContext)
	end := min(len(text), idx+len(needle)+snippetContext)

	var b strings.Builder
	if start > 0 {
		b.WriteString(ellipsis)
	}
	b.WriteString(markAll(text[start:end], lower[start:end], needle))
	if end < len(text) {
		b.WriteString(ellipsis)
	}
	return sanitize(b.String())
}

// markAll wraps every non-overlapping occurrence of needle in window.
// lower is the case-folded window; nil needle disables marking. Content is
// plain text, so each segment is escaped and the only tags in the output are
// the markers themselves.
func markAll(window, lower, needle []rune) string {
	var b strings.Builder
	i := 0
	for len(needle) > 0 {
		j := indexRunes(lower, needle, i)
		if j < 0 {
			break
		}
		b.WriteString(html.EscapeString(string(window[i:j])))
		b.WriteString(markOpen)
		b.WriteString(html.EscapeString(string(window[j : j+len(needle)])))
		b.WriteString(markClose)
		i = j + len(needle)
	}
	b.WriteString(html.EscapeString(string(window[i:])))
	return b.String()
}

func sanitize(s string) string {
	return snippetPolicy.Sanitize(s)
}

// foldRunes lowercases rune by rune so indices line up with the source.
func foldRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}

// indexRunes returns the first index >= from where needle occurs in hay, or -1.
func indexRunes(hay, needle []rune, from int) int {
	if len(needle) == 0 {
		return -1
	}
	for i := from; i+len(needle) <= len(hay); i++ {
		match := true
		for k := range needle {
			if hay[i+k] != needle[k] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
