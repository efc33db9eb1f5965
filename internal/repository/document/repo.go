// Package document queries the crawled documents table for hybrid search
// candidates and maintains its derived columns during reindexing.
package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/khoj/internal/db"
	"github.com/kailas-cloud/khoj/internal/domain"
	domdoc "github.com/kailas-cloud/khoj/internal/domain/document"
	"github.com/kailas-cloud/khoj/internal/domain/search/row"
)

// querier is the consumer interface over the pgx pool (ISP).
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Config tunes candidate selection and store-side ordering.
type Config struct {
	LexicalWeight           float64
	FuzzyWeight             float64
	VectorWeight            float64
	FuzzyThreshold          float64
	VectorDistanceThreshold float64
}

// Repo implements the document store on PostgreSQL with pg_trgm and pgvector.
type Repo struct {
	db  querier
	cfg Config
}

// New creates a document repository.
func New(q querier, cfg Config) *Repo {
	return &Repo{db: q, cfg: cfg}
}

// A channel column is NULL when that channel did not match the row.
const searchSQL = `
WITH scored AS (
	SELECT id, url, title, content_text,
		CASE WHEN to_tsvector('simple', searchable_text) @@ plainto_tsquery('simple', $1)
			THEN ts_rank(to_tsvector('simple', searchable_text), plainto_tsquery('simple', $1))::float8
		END AS lexical,
		CASE WHEN similarity(searchable_text, $1) > $2
			THEN similarity(searchable_text, $1)::float8
		END AS fuzzy,
		CASE WHEN $3::vector IS NOT NULL AND embedding IS NOT NULL AND (embedding <=> $3::vector) < $4
			THEN LEAST(GREATEST(1 - (embedding <=> $3::vector), 0), 1)::float8
		END AS vector
	FROM documents
	WHERE ($5 = '' OR language = $5)
)
SELECT id, title, url, content_text, lexical, fuzzy, vector
FROM scored
WHERE lexical IS NOT NULL OR fuzzy IS NOT NULL OR vector IS NOT NULL
ORDER BY COALESCE(lexical, 0) * $6 + COALESCE(fuzzy, 0) * $7 + COALESCE(vector, 0) * $8 DESC, id ASC
OFFSET $9 LIMIT $10`

// Search returns one page of candidate rows with their per-channel ranks.
func (r *Repo) Search(ctx context.Context, q domdoc.Query) ([]row.Ranked, error) {
	var emb *pgvector.Vector
	if len(q.Embedding) > 0 {
		v := pgvector.NewVector(q.Embedding)
		emb = &v
	}

	rows, err := r.db.Query(ctx, searchSQL,
		q.Term,
		r.cfg.FuzzyThreshold,
		emb,
		r.cfg.VectorDistanceThreshold,
		q.Language,
		r.cfg.LexicalWeight,
		r.cfg.FuzzyWeight,
		r.cfg.VectorWeight,
		q.Offset,
		q.Limit,
	)
	if err != nil {
		return nil, storeErr(db.OpQuery, err)
	}
	defer rows.Close()

	out := make([]row.Ranked, 0, q.Limit)
	for rows.Next() {
		var (
			rk                     row.Ranked
			lexical, fuzzy, vector *float64
		)
		if err := rows.Scan(&rk.ID, &rk.Title, &rk.URL, &rk.ContentText, &lexical, &fuzzy, &vector); err != nil {
			return nil, storeErr(db.OpQuery, fmt.Errorf("scan: %w", err))
		}
		rk.Lexical = row.FromPtr(lexical)
		rk.Fuzzy = row.FromPtr(fuzzy)
		rk.Vector = row.FromPtr(vector)
		out = append(out, rk)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(db.OpQuery, err)
	}
	return out, nil
}

// storeErr marks a database failure as ErrStoreUnavailable while keeping the
// cause (including context errors) in the chain.
func storeErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &db.Error{Op: op, Err: err}
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, &db.Error{Op: op, Err: err})
}
