// Package document describes what the search pipeline asks of the document store.
package document

// Query is a single page request against the document store.
type Query struct {
	Term      string    // processed query text
	Embedding []float32 // nil disables the vector channel
	Language  string    // empty means any language
	Offset    int
	Limit     int
}

// Source is the raw material for recomputing a document's derived columns.
type Source struct {
	ID           string
	ContentText  string
	HasEmbedding bool
}
