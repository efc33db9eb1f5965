package nlp

import "strings"

// PipelineVersion identifies the current normalisation, stemming and ranking
// behaviour. Bump it whenever any of them change so cached results keyed on
// the old behaviour stop being served.
const PipelineVersion = "v1"

// Process turns a raw query into a search term:
// StemText(RemoveStopwords(Normalize(raw))).
//
// If nothing survives the pipeline (e.g. the query is a lone pronoun) the raw
// query is returned unchanged so it stays searchable.
func Process(raw string) string {
	term := StemText(RemoveStopwords(Normalize(raw)))
	if strings.TrimSpace(term) == "" {
		return raw
	}
	return term
}
