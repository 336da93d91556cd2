package handler

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"cmsapi/internal/service"
)

// HealthCheck reports whether the document store is reachable.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a bare process-up check.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// CreateVisitor handles the anonymous entry submission. The response does
// not depend on the outcome of the notification dispatch.
func CreateVisitor(svc service.ContentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.VisitorInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		doc, err := svc.RecordVisitor(c.UserContext(), in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "id": doc.ID})
	}
}

// ListVisitors returns all visitor entries, oldest first.
func ListVisitors(svc service.ContentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := svc.ListVisitors(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(items)
	}
}

// CreateSection publishes a new section.
func CreateSection(svc service.ContentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.SectionInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		doc, err := svc.PublishSection(c.UserContext(), in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// ListSections returns sections ordered by creation time ascending.
func ListSections(svc service.ContentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := svc.ListSections(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(items)
	}
}

// CreatePost publishes a new post.
func CreatePost(svc service.ContentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.PostInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		doc, err := svc.PublishPost(c.UserContext(), in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// ListPosts returns posts, newest first.
func ListPosts(svc service.ContentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := svc.ListPosts(c.UserContext())
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(items)
	}
}

// GetProfile serves the public profile document. An unset profile answers
// with an empty object rather than 404.
func GetProfile(svc service.ContentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := svc.GetProfile(c.UserContext())
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return c.JSON(fiber.Map{})
			}
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// UpsertProfile merges submitted fields (and an optional image) into the
// profile document. Accepts multipart form data or a plain JSON body.
func UpsertProfile(svc service.ContentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var (
			in  service.ProfileInput
			img *service.ImageUpload
		)

		if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
			in.Name = c.FormValue("name")
			in.Description = c.FormValue("description")
			in.Title = c.FormValue("title")

			if fh, err := c.FormFile("image"); err == nil {
				f, err := fh.Open()
				if err != nil {
					return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
				}
				defer f.Close()

				img = &service.ImageUpload{
					Reader:      f,
					Filename:    fh.Filename,
					ContentType: fh.Header.Get("Content-Type"),
					Size:        fh.Size,
				}
			}
		} else if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		doc, err := svc.UpsertProfile(c.UserContext(), in, img)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// DeleteProfile removes the profile document and, best-effort, its image.
func DeleteProfile(svc service.ContentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.DeleteProfile(c.UserContext()); err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"success": true})
	}
}
