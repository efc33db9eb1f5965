// Package row models a document row returned by the document store together
// with whichever relevance channels matched it.
package row

// Signal is an optional relevance score from one channel.
type Signal struct {
	Value float64
	Valid bool
}

// Some returns a present signal.
func Some(v float64) Signal { return Signal{Value: v, Valid: true} }

// FromPtr converts a nullable database column into a Signal.
func FromPtr(v *float64) Signal {
	if v == nil {
		return Signal{}
	}
	return Some(*v)
}

// Ranked is a document surrogate with its per-channel ranks.
// Lexical and Fuzzy are >= 0, Vector is in [0,1].
type Ranked struct {
	ID          string
	Title       string
	URL         string
	ContentText string
	Lexical     Signal
	Fuzzy       Signal
	Vector      Signal
}

// SignalCount returns how many channels matched the row.
func (r *Ranked) SignalCount() int {
	n := 0
	for _, s := range [...]Signal{r.Lexical, r.Fuzzy, r.Vector} {
		if s.Valid {
			n++
		}
	}
	return n
}
