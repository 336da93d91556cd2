package model

import "time"

// Collection names used by the content store. The admin collection holds a
// single profile document with a fixed id; the others are append-only.
const (
	CollectionVisitors = "visitors"
	CollectionSections = "sections"
	CollectionPosts    = "posts"
	CollectionAdmin    = "admin"

	// ProfileDocumentID is the fixed id of the singleton profile document
	// inside the admin collection.
	ProfileDocumentID = "profile"
)

// Document represents one record in a named collection.
// This is a pure domain model with no database-specific dependencies or tags.
// Fields is a flat string-to-string map (title, text, description, imageUrl,
// imageName, author, section, name); which keys are required depends on the
// collection and is enforced at the service boundary, not here.
type Document struct {
	ID         string            `json:"id"`
	Collection string            `json:"collection"`
	Fields     map[string]string `json:"fields"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}
