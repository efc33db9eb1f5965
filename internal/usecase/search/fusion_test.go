package search

import (
	"math"
	"testing"

	"github.com/kailas-cloud/khoj/internal/domain/search/result"
	"github.com/kailas-cloud/khoj/internal/domain/search/row"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestWeights_Fuse(t *testing.T) {
	w := DefaultWeights()

	tests := []struct {
		name string
		row  row.Ranked
		want float64
	}{
		{"none", row.Ranked{}, 0},
		{"lexical only", row.Ranked{Lexical: row.Some(1)}, 0.4},
		{"fuzzy only", row.Ranked{Fuzzy: row.Some(1)}, 0.2},
		{"vector only", row.Ranked{Vector: row.Some(0.5)}, 0.2},
		{"all", row.Ranked{Lexical: row.Some(1), Fuzzy: row.Some(1), Vector: row.Some(1)}, 1.0},
		{"zero value present", row.Ranked{Lexical: row.Some(0)}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := w.Fuse(&tc.row); !approx(got, tc.want) {
				t.Errorf("Fuse = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRank_MultiSignalOutranksEqualSingle(t *testing.T) {
	rows := []row.Ranked{
		{ID: "single", Lexical: row.Some(0.8)},
		{ID: "multi", Lexical: row.Some(0.8), Vector: row.Some(0.8)},
	}
	got := Rank(rows, "", DefaultWeights())
	if got[0].ID != "multi" {
		t.Errorf("expected corroborated row first, got %s", got[0].ID)
	}
}

func TestRank_TieBreaks(t *testing.T) {
	rows := []row.Ranked{
		{ID: "c", Lexical: row.Some(0.5)},
		{ID: "b", Vector: row.Some(0.25), Fuzzy: row.Some(0.5)}, // 0.1 + 0.1 = 0.2
		{ID: "a", Lexical: row.Some(0.5)},
	}
	got := Rank(rows, "", DefaultWeights())

	want := []string{"b", "a", "c"}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("order = %v, want %v", ids(got), want)
		}
	}
}

func TestRank_DisplayScore(t *testing.T) {
	w := DefaultWeights()

	tests := []struct {
		name string
		row  row.Ranked
		want float64
	}{
		{"vector preferred when alone", row.Ranked{ID: "v", Vector: row.Some(0.7)}, 0.7},
		{"lexical alone", row.Ranked{ID: "l", Lexical: row.Some(0.3)}, 0.3},
		{"fuzzy alone", row.Ranked{ID: "f", Fuzzy: row.Some(0.9)}, 0.9},
		{"fused when two", row.Ranked{ID: "lf", Lexical: row.Some(0.5), Fuzzy: row.Some(0.5)}, 0.3},
		{"no signals", row.Ranked{ID: "n"}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Rank([]row.Ranked{tc.row}, "", w)
			if !approx(got[0].Score, tc.want) {
				t.Errorf("Score = %v, want %v", got[0].Score, tc.want)
			}
		})
	}
}

func TestRank_ProjectsFields(t *testing.T) {
	rows := []row.Ranked{{
		ID: "x", Title: "शीर्षक", URL: "https://x", ContentText: "The quick brown fox",
		Lexical: row.Some(1),
	}}
	got := Rank(rows, "quick", DefaultWeights())
	if got[0].Title != "शीर्षक" || got[0].URL != "https://x" {
		t.Errorf("fields not projected: %+v", got[0])
	}
	if got[0].Snippet != "The <mark>quick</mark> brown fox" {
		t.Errorf("unexpected snippet: %q", got[0].Snippet)
	}
}

func TestRank_Empty(t *testing.T) {
	got := Rank(nil, "q", DefaultWeights())
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		offset, limit, n int
		cursor           string
		done             bool
	}{
		{0, 10, 10, "10", false},
		{10, 10, 10, "20", false},
		{20, 10, 5, "", true},
		{0, 10, 0, "", true},
		{40, 20, 20, "60", false},
	}
	for _, tc := range tests {
		cursor, done := Paginate(tc.offset, tc.limit, tc.n)
		if cursor != tc.cursor || done != tc.done {
			t.Errorf("Paginate(%d,%d,%d) = (%q,%v), want (%q,%v)",
				tc.offset, tc.limit, tc.n, cursor, done, tc.cursor, tc.done)
		}
	}
}

func ids(rs []result.Result) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
