// Package request holds the validated search query.
package request

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/khoj/internal/domain"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed query length in runes.
	MaxQueryLength = 512
	DefaultLimit   = 10
	MaxLimit       = 50
)

// Query is a validated search request.
type Query struct {
	q        string
	limit    int
	cursor   string
	offset   int
	language string
}

// New validates search parameters.
// An empty cursor means offset 0; otherwise it must be a non-negative decimal.
// limit <= 0 selects DefaultLimit, limit above maxLimit is clamped.
func New(q string, limit int, cursor, language string, maxLimit int) (Query, error) {
	if strings.TrimSpace(q) == "" {
		return Query{}, fmt.Errorf("%w: q is required", domain.ErrInvalidQuery)
	}
	if utf8.RuneCountInString(q) > MaxQueryLength {
		return Query{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidQuery, MaxQueryLength)
	}
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset, err := ParseCursor(cursor)
	if err != nil {
		return Query{}, err
	}

	return Query{
		q:        q,
		limit:    limit,
		cursor:   cursor,
		offset:   offset,
		language: strings.TrimSpace(language),
	}, nil
}

// ParseCursor decodes a decimal row offset. "" decodes to 0.
func ParseCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(cursor)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidCursor, cursor)
	}
	return n, nil
}

// Q returns the raw, unprocessed query text.
func (r *Query) Q() string { return r.q }

// Limit returns the page size.
func (r *Query) Limit() int { return r.limit }

// Cursor returns the cursor exactly as the caller sent it.
func (r *Query) Cursor() string { return r.cursor }

// Offset returns the decoded row offset.
func (r *Query) Offset() int { return r.offset }

// Language returns the language filter, "" for none.
func (r *Query) Language() string { return r.language }
