package repository

// Package repository contains data access layer abstractions.
// Implementations live in subpackages (e.g., postgres) inside this directory.

import (
	"context"

	"cmsapi/internal/model"
)

// ContentRepository is the typed CRUD façade over the document store.
// No business logic here — strictly persistence operations. Creation
// timestamps are assigned by the store, never by callers, so ordered reads
// stay well defined under clock skew.
type ContentRepository interface {
	// Create inserts a new document with a generated id into the collection.
	// It never overwrites an existing document.
	Create(ctx context.Context, collection string, fields map[string]string) (*model.Document, error)

	// Upsert merges the supplied fields into the document with the given id,
	// creating it if absent, and bumps its updated_at timestamp. Fields not
	// present in this write are preserved.
	Upsert(ctx context.Context, collection, id string, fields map[string]string) (*model.Document, error)

	// FindByID returns a document by collection and id.
	// Not-found is reported as sql.ErrNoRows.
	FindByID(ctx context.Context, collection, id string) (*model.Document, error)

	// List returns documents of one collection ordered by creation time with
	// id as tie-break, so the order is total and deterministic.
	List(ctx context.Context, collection string, q ListQuery) ([]model.Document, error)

	// Delete removes a document. It returns nil if the row did not exist.
	Delete(ctx context.Context, collection, id string) error
}

// ListQuery holds ordering direction and result cap for List.
type ListQuery struct {
	Ascending bool
	Limit     int
}
