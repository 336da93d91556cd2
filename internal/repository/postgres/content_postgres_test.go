package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cmsapi/internal/model"
	"cmsapi/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func documentRows(docs ...model.Document) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"collection", "id", "fields", "created_at", "updated_at"})
	for _, d := range docs {
		raw, _ := json.Marshal(d.Fields)
		rows.AddRow(d.Collection, d.ID, raw, d.CreatedAt, d.UpdatedAt)
	}
	return rows
}

func TestContentPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewContentPostgres(db)
	ctx := context.Background()

	now := time.Now().UTC()
	stored := model.Document{
		Collection: model.CollectionSections,
		ID:         "11111111-2222-3333-4444-555555555555",
		Fields:     map[string]string{"title": "news"},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	mock.ExpectQuery("INSERT INTO documents").
		WithArgs(model.CollectionSections, sqlmock.AnyArg(), []byte(`{"title":"news"}`)).
		WillReturnRows(documentRows(stored))

	doc, err := repo.Create(ctx, model.CollectionSections, map[string]string{"title": "news"})

	require.NoError(t, err)
	assert.Equal(t, stored.ID, doc.ID)
	assert.Equal(t, "news", doc.Fields["title"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentPostgres_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewContentPostgres(db)
	ctx := context.Background()

	now := time.Now().UTC()
	merged := model.Document{
		Collection: model.CollectionAdmin,
		ID:         model.ProfileDocumentID,
		Fields:     map[string]string{"name": "A", "description": "B"},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	mock.ExpectQuery("ON CONFLICT \\(collection, id\\)").
		WithArgs(model.CollectionAdmin, model.ProfileDocumentID, []byte(`{"description":"B"}`)).
		WillReturnRows(documentRows(merged))

	doc, err := repo.Upsert(ctx, model.CollectionAdmin, model.ProfileDocumentID, map[string]string{"description": "B"})

	require.NoError(t, err)
	// The database merge keeps fields from earlier writes.
	assert.Equal(t, "A", doc.Fields["name"])
	assert.Equal(t, "B", doc.Fields["description"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentPostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewContentPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		now := time.Now().UTC()
		stored := model.Document{
			Collection: model.CollectionPosts,
			ID:         "post-1",
			Fields:     map[string]string{"title": "hello"},
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		mock.ExpectQuery("SELECT (.+) FROM documents").
			WithArgs(model.CollectionPosts, "post-1").
			WillReturnRows(documentRows(stored))

		doc, err := repo.FindByID(ctx, model.CollectionPosts, "post-1")
		require.NoError(t, err)
		assert.Equal(t, "hello", doc.Fields["title"])
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM documents").
			WithArgs(model.CollectionPosts, "missing").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.FindByID(ctx, model.CollectionPosts, "missing")
		assert.True(t, errors.Is(err, sql.ErrNoRows))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentPostgres_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewContentPostgres(db)
	ctx := context.Background()

	base := time.Now().UTC()
	first := model.Document{Collection: model.CollectionSections, ID: "a", Fields: map[string]string{"title": "one"}, CreatedAt: base, UpdatedAt: base}
	second := model.Document{Collection: model.CollectionSections, ID: "b", Fields: map[string]string{"title": "two"}, CreatedAt: base.Add(time.Second), UpdatedAt: base.Add(time.Second)}

	t.Run("ascending", func(t *testing.T) {
		mock.ExpectQuery("ORDER BY created_at ASC, id ASC").
			WithArgs(model.CollectionSections, 100).
			WillReturnRows(documentRows(first, second))

		items, err := repo.List(ctx, model.CollectionSections, repository.ListQuery{Ascending: true})
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "a", items[0].ID)
		assert.Equal(t, "b", items[1].ID)
	})

	t.Run("descending with limit", func(t *testing.T) {
		mock.ExpectQuery("ORDER BY created_at DESC, id DESC").
			WithArgs(model.CollectionSections, 1).
			WillReturnRows(documentRows(second))

		items, err := repo.List(ctx, model.CollectionSections, repository.ListQuery{Limit: 1})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "b", items[0].ID)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContentPostgres_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewContentPostgres(db)
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM documents").
		WithArgs(model.CollectionAdmin, model.ProfileDocumentID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Delete(ctx, model.CollectionAdmin, model.ProfileDocumentID)
	assert.NoError(t, err)

	// Deleting a missing row is not an error.
	mock.ExpectExec("DELETE FROM documents").
		WithArgs(model.CollectionAdmin, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.Delete(ctx, model.CollectionAdmin, "missing")
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
