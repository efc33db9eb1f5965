package nlp

import "strings"

// stopwords holds high-frequency Nepali function words, pronouns and copulas.
var stopwords = newWordSet(
	"छ", "छन्", "छैन", "हो", "होइन", "हुन्", "थियो", "थिए", "हुने", "गरे", "गरेका",
	"र", "पनि", "अनि", "तर", "वा", "भने", "भनेर", "भन्ने",
	"म", "हामी", "तँ", "तिमी", "तपाईं", "ऊ", "उनीहरू", "यो", "त्यो",
	"को", "ले", "मा", "लाई", "बाट", "देखि", "द्वारा",
	"का", "की", "के", "कसरी", "किन", "कति", "कहिले", "कहाँ",
	"मेरो", "हाम्रो", "तेरो", "तिम्रो", "उसको", "उनीहरूको",
	"सबै", "धेरै", "थोरै", "अलिकति", "निकै",
	"भएको", "गरेको", "सक्ने", "चाहने", "लाग्ने",
)

type wordSet map[string]struct{}

func newWordSet(words ...string) wordSet {
	s := make(wordSet, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

// IsStopword reports whether word is in the stopword set.
func IsStopword(word string) bool {
	_, ok := stopwords[word]
	return ok
}

// RemoveStopwords drops stopword tokens and rejoins the rest with single spaces.
// Text made only of stopwords yields "".
func RemoveStopwords(text string) string {
	tokens := strings.Fields(text)
	kept := tokens[:0]
	for _, t := range tokens {
		if !IsStopword(t) {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, " ")
}
