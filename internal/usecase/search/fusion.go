package search

import (
	"sort"
	"strconv"

	"github.com/kailas-cloud/khoj/internal/domain/search/result"
	"github.com/kailas-cloud/khoj/internal/domain/search/row"
)

// Weights are the per-channel coefficients of the fused score.
type Weights struct {
	Lexical float64
	Fuzzy   float64
	Vector  float64
}

// DefaultWeights returns the stock lexical/fuzzy/vector balance.
func DefaultWeights() Weights {
	return Weights{Lexical: 0.4, Fuzzy: 0.2, Vector: 0.4}
}

// Fuse returns the weighted sum of the present signals. A missing signal
// contributes 0 and the weights are not renormalised, so a row confirmed by
// several channels outranks one with a single equally strong signal.
func (w Weights) Fuse(r *row.Ranked) float64 {
	var s float64
	if r.Lexical.Valid {
		s += w.Lexical * r.Lexical.Value
	}
	if r.Fuzzy.Valid {
		s += w.Fuzzy * r.Fuzzy.Value
	}
	if r.Vector.Valid {
		s += w.Vector * r.Vector.Value
	}
	return s
}

// Rank orders rows by fused score and projects them into results with a
// presentational score and a highlighted snippet of the original query.
// Ties keep rows with more signals first, then order by ID.
func Rank(rows []row.Ranked, originalQuery string, w Weights) []result.Result {
	type scored struct {
		r     *row.Ranked
		fused float64
		n     int
	}

	ss := make([]scored, len(rows))
	for i := range rows {
		ss[i] = scored{r: &rows[i], fused: w.Fuse(&rows[i]), n: rows[i].SignalCount()}
	}

	sort.SliceStable(ss, func(i, j int) bool {
		if ss[i].fused != ss[j].fused {
			return ss[i].fused > ss[j].fused
		}
		if ss[i].n != ss[j].n {
			return ss[i].n > ss[j].n
		}
		return ss[i].r.ID < ss[j].r.ID
	})

	out := make([]result.Result, 0, len(ss))
	for _, s := range ss {
		out = append(out, result.Result{
			ID:      s.r.ID,
			Title:   s.r.Title,
			URL:     s.r.URL,
			Snippet: Highlight(s.r.ContentText, originalQuery),
			Score:   displayScore(s.r, s.fused, s.n),
		})
	}
	return out
}

// displayScore is the fused score when channels corroborate each other,
// otherwise the lone signal as-is (vector, then lexical, then fuzzy).
func displayScore(r *row.Ranked, fused float64, signals int) float64 {
	if signals >= 2 {
		return fused
	}
	switch {
	case r.Vector.Valid:
		return r.Vector.Value
	case r.Lexical.Valid:
		return r.Lexical.Value
	case r.Fuzzy.Valid:
		return r.Fuzzy.Value
	}
	return 0
}

// Paginate derives the continuation cursor for a page of n rows fetched at offset.
// A short page ends the result set.
func Paginate(offset, limit, n int) (cursor string, done bool) {
	if n < limit {
		return "", true
	}
	return strconv.Itoa(offset + limit), false
}
