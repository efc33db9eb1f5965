// Package result holds the presentation shapes returned by search.
package result

// Result is a single search hit projected for presentation.
type Result struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// Response is one page of search results.
// IsDone is true iff the page is short; ContinueCursor is "" when IsDone.
type Response struct {
	Results        []Result `json:"results"`
	ContinueCursor string   `json:"continueCursor"`
	IsDone         bool     `json:"isDone"`
}
