package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"cmsapi/internal/model"
	"cmsapi/internal/notify"
	"cmsapi/internal/repository"
	"cmsapi/internal/storage"
)

var ErrNotFound = errors.New("document not found")

// ValidationError reports a rejected input field. It short-circuits the
// request at the boundary, before anything reaches the repository or the
// object store.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// allowedImageTypes is the MIME allow-list for uploaded images.
var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

// Event names pushed to open dashboard streams.
const (
	EventNewEntry   = "new-entry"
	EventNewSection = "new-section"
	EventNewPost    = "new-post"
)

// VisitorInput is the anonymous entry submission.
type VisitorInput struct {
	Name string `json:"name" validate:"required"`
}

// SectionInput creates one section document.
type SectionInput struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

// PostInput creates one post document.
type PostInput struct {
	Title   string `json:"title" validate:"required"`
	Text    string `json:"text" validate:"required"`
	Author  string `json:"author"`
	Section string `json:"section"`
}

// ProfileInput carries the singleton profile fields; every field is optional
// because writes merge into what is already stored.
type ProfileInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Title       string `json:"title"`
}

// ImageUpload is an attached image payload. The bytes never enter a
// document; only the storage reference does.
type ImageUpload struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	Size        int64
}

// Publisher fans events out to open dashboard connections.
type Publisher interface {
	Broadcast(event string, payload any)
}

// ContentService defines the publish/read use cases of the backend.
type ContentService interface {
	// RecordVisitor persists an anonymous entry, broadcasts it to open
	// dashboards and dispatches an external notification. The notification
	// outcome never affects the returned result.
	RecordVisitor(ctx context.Context, in VisitorInput) (*model.Document, error)
	ListVisitors(ctx context.Context) ([]model.Document, error)

	PublishSection(ctx context.Context, in SectionInput) (*model.Document, error)
	ListSections(ctx context.Context) ([]model.Document, error)

	PublishPost(ctx context.Context, in PostInput) (*model.Document, error)
	ListPosts(ctx context.Context) ([]model.Document, error)

	// GetProfile returns the singleton profile document or ErrNotFound.
	GetProfile(ctx context.Context) (*model.Document, error)
	// UpsertProfile merges the supplied fields into the profile. When an
	// image is attached its type is checked against the allow-list before
	// any storage call, and the document reference is set only after the
	// binary is durably stored.
	UpsertProfile(ctx context.Context, in ProfileInput, img *ImageUpload) (*model.Document, error)
	// DeleteProfile removes the profile document. The referenced image is
	// deleted from object storage best-effort: a failure there is logged
	// and the document delete proceeds regardless.
	DeleteProfile(ctx context.Context) error
}

type contentService struct {
	repo     repository.ContentRepository
	store    storage.Storage
	events   Publisher
	notifier notify.Notifier
	validate *validator.Validate
}

// NewContentService constructs the service with all collaborators injected.
func NewContentService(repo repository.ContentRepository, store storage.Storage, events Publisher, notifier notify.Notifier) ContentService {
	return &contentService{
		repo:     repo,
		store:    store,
		events:   events,
		notifier: notifier,
		validate: validator.New(),
	}
}

func (s *contentService) RecordVisitor(ctx context.Context, in VisitorInput) (*model.Document, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return nil, &ValidationError{Field: "name", Message: "name must not be empty"}
	}

	doc, err := s.repo.Create(ctx, model.CollectionVisitors, map[string]string{"name": in.Name})
	if err != nil {
		return nil, fmt.Errorf("create visitor entry: %w", err)
	}

	// Persistence is acknowledged before anything becomes observable.
	s.events.Broadcast(EventNewEntry, doc)
	s.notifier.Notify(fmt.Sprintf("New visitor entry: %s", in.Name))

	return doc, nil
}

func (s *contentService) ListVisitors(ctx context.Context) ([]model.Document, error) {
	return s.repo.List(ctx, model.CollectionVisitors, repository.ListQuery{Ascending: true})
}

func (s *contentService) PublishSection(ctx context.Context, in SectionInput) (*model.Document, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := s.validate.Struct(in); err != nil {
		return nil, &ValidationError{Field: "title", Message: "title must not be empty"}
	}

	fields := map[string]string{"title": in.Title}
	if in.Description != "" {
		fields["description"] = in.Description
	}

	doc, err := s.repo.Create(ctx, model.CollectionSections, fields)
	if err != nil {
		return nil, fmt.Errorf("create section: %w", err)
	}

	s.events.Broadcast(EventNewSection, doc)
	return doc, nil
}

func (s *contentService) ListSections(ctx context.Context) ([]model.Document, error) {
	return s.repo.List(ctx, model.CollectionSections, repository.ListQuery{Ascending: true})
}

func (s *contentService) PublishPost(ctx context.Context, in PostInput) (*model.Document, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Text = strings.TrimSpace(in.Text)
	if err := s.validate.Struct(in); err != nil {
		field := "title"
		if in.Title != "" {
			field = "text"
		}
		return nil, &ValidationError{Field: field, Message: field + " must not be empty"}
	}

	fields := map[string]string{"title": in.Title, "text": in.Text}
	if in.Author != "" {
		fields["author"] = in.Author
	}
	if in.Section != "" {
		fields["section"] = in.Section
	}

	doc, err := s.repo.Create(ctx, model.CollectionPosts, fields)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	s.events.Broadcast(EventNewPost, doc)
	return doc, nil
}

func (s *contentService) ListPosts(ctx context.Context) ([]model.Document, error) {
	return s.repo.List(ctx, model.CollectionPosts, repository.ListQuery{Ascending: false})
}

func (s *contentService) GetProfile(ctx context.Context) (*model.Document, error) {
	doc, err := s.repo.FindByID(ctx, model.CollectionAdmin, model.ProfileDocumentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *contentService) UpsertProfile(ctx context.Context, in ProfileInput, img *ImageUpload) (*model.Document, error) {
	fields := map[string]string{}
	if in.Name != "" {
		fields["name"] = in.Name
	}
	if in.Description != "" {
		fields["description"] = in.Description
	}
	if in.Title != "" {
		fields["title"] = in.Title
	}

	if img != nil {
		if _, ok := allowedImageTypes[img.ContentType]; !ok {
			return nil, &ValidationError{Field: "image", Message: "unsupported image type " + img.ContentType}
		}

		key := fmt.Sprintf("images/%d-%s", time.Now().UnixMilli(), img.Filename)
		if _, err := s.store.Put(ctx, key, img.Reader, storage.PutObjectOptions{
			Size:        img.Size,
			ContentType: img.ContentType,
			Metadata:    map[string]string{"original-filename": img.Filename},
		}); err != nil {
			return nil, fmt.Errorf("upload image: %w", err)
		}

		fields["imageUrl"] = s.store.PublicURL(key)
		fields["imageName"] = key
	}

	if len(fields) == 0 {
		return nil, &ValidationError{Field: "profile", Message: "at least one field is required"}
	}

	doc, err := s.repo.Upsert(ctx, model.CollectionAdmin, model.ProfileDocumentID, fields)
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	return doc, nil
}

func (s *contentService) DeleteProfile(ctx context.Context) error {
	doc, err := s.repo.FindByID(ctx, model.CollectionAdmin, model.ProfileDocumentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	// Image cleanup is best-effort; the document delete proceeds regardless.
	if key := doc.Fields["imageName"]; key != "" {
		if err := s.store.Delete(ctx, key); err != nil {
			log.Printf("service: delete profile image %s: %v", key, err)
		}
	}

	return s.repo.Delete(ctx, model.CollectionAdmin, model.ProfileDocumentID)
}
