package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"cmsapi/internal/model"
	"cmsapi/internal/repository"
)

// ContentPostgres is a PostgreSQL implementation of repository.ContentRepository.
// Every collection shares one documents table; the per-document field map is
// stored as JSONB so the upsert merge can happen inside the database.
type ContentPostgres struct {
	db *sql.DB
}

// NewContentPostgres creates a new ContentPostgres repository.
func NewContentPostgres(db *sql.DB) *ContentPostgres {
	return &ContentPostgres{db: db}
}

var _ repository.ContentRepository = (*ContentPostgres)(nil)

const documentColumns = `collection, id, fields, created_at, updated_at`

// Create inserts a new document row. The id is generated here and the
// creation timestamp is assigned by the database.
func (r *ContentPostgres) Create(ctx context.Context, collection string, fields map[string]string) (*model.Document, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}

	const q = `
		INSERT INTO documents (collection, id, fields)
		VALUES ($1, $2, $3)
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q, collection, uuid.New().String(), raw)
	return scanDocument(row)
}

// Upsert merges fields into the document with the fixed id, creating it when
// absent. Previously stored fields missing from this write survive; supplied
// fields win (last write wins per field).
func (r *ContentPostgres) Upsert(ctx context.Context, collection, id string, fields map[string]string) (*model.Document, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}

	const q = `
		INSERT INTO documents (collection, id, fields)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, id)
		DO UPDATE SET fields = documents.fields || EXCLUDED.fields, updated_at = now()
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q, collection, id, raw)
	return scanDocument(row)
}

// FindByID fetches a single document by collection and id.
func (r *ContentPostgres) FindByID(ctx context.Context, collection, id string) (*model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE collection = $1 AND id = $2
	`
	row := r.db.QueryRowContext(ctx, q, collection, id)
	return scanDocument(row)
}

// List returns documents of one collection in a total order: created_at with
// id as tie-break, ascending or descending.
func (r *ContentPostgres) List(ctx context.Context, collection string, lq repository.ListQuery) ([]model.Document, error) {
	limit := lq.Limit
	if limit <= 0 {
		limit = 100
	}

	q := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE collection = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	if lq.Ascending {
		q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE collection = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`
	}

	rows, err := r.db.QueryContext(ctx, q, collection, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Delete removes a document. Missing rows are not an error.
func (r *ContentPostgres) Delete(ctx context.Context, collection, id string) error {
	const q = `DELETE FROM documents WHERE collection = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, q, collection, id)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		doc model.Document
		raw []byte
	)
	if err := row.Scan(
		&doc.Collection,
		&doc.ID,
		&raw,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &doc.Fields); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	return &doc, nil
}
