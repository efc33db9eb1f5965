package document

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/khoj/internal/db"
	domdoc "github.com/kailas-cloud/khoj/internal/domain/document"
)

const listBatchSQL = `
SELECT id, content_text, embedding IS NOT NULL
FROM documents
WHERE id > $1
ORDER BY id ASC
LIMIT $2`

// ListBatch returns up to limit documents with id greater than afterID, in id order.
func (r *Repo) ListBatch(ctx context.Context, afterID string, limit int) ([]domdoc.Source, error) {
	rows, err := r.db.Query(ctx, listBatchSQL, afterID, limit)
	if err != nil {
		return nil, storeErr(db.OpQuery, err)
	}
	defer rows.Close()

	var out []domdoc.Source
	for rows.Next() {
		var s domdoc.Source
		if err := rows.Scan(&s.ID, &s.ContentText, &s.HasEmbedding); err != nil {
			return nil, storeErr(db.OpQuery, fmt.Errorf("scan: %w", err))
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(db.OpQuery, err)
	}
	return out, nil
}

// UpdateSearchable stores the processed text used by the lexical and fuzzy channels.
func (r *Repo) UpdateSearchable(ctx context.Context, id, text string) error {
	tag, err := r.db.Exec(ctx, `UPDATE documents SET searchable_text = $2 WHERE id = $1`, id, text)
	if err != nil {
		return storeErr(db.OpExec, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update searchable %s: %w", id, db.ErrKeyNotFound)
	}
	return nil
}

// UpdateEmbedding stores a document embedding for the vector channel.
func (r *Repo) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	tag, err := r.db.Exec(ctx, `UPDATE documents SET embedding = $2 WHERE id = $1`,
		id, pgvector.NewVector(embedding))
	if err != nil {
		return storeErr(db.OpExec, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update embedding %s: %w", id, db.ErrKeyNotFound)
	}
	return nil
}
