package catalog

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"media-console/internal/api"
	"media-console/internal/storage"
	"media-console/internal/store"
)

// Handler serves the asset catalog.
type Handler struct {
	assets      *Store
	blobs       storage.BlobStorage
	maxFileSize int64
}

func NewHandler(assets *Store, blobs storage.BlobStorage, maxFileSize int64) *Handler {
	return &Handler{assets: assets, blobs: blobs, maxFileSize: maxFileSize}
}

// RegisterAssetRoutes registers catalog endpoints behind permission
// guards. Each route names the action it needs; upload rides the edit
// grant since it mutates an existing asset.
func RegisterAssetRoutes(app *fiber.App, h *Handler, authMW fiber.Handler, guard func(action string) fiber.Handler) {
	grp := app.Group("/api/assets", authMW)
	grp.Get("/", guard("view"), h.List)
	grp.Get("/:id", guard("view"), h.Get)
	grp.Get("/:id/download", guard("view"), h.Download)
	grp.Post("/", guard("create"), h.Create)
	grp.Put("/:id", guard("edit"), h.Update)
	grp.Post("/:id/upload", guard("edit"), h.Upload)
	grp.Delete("/:id", guard("delete"), h.Delete)
}

func (h *Handler) List(c *fiber.Ctx) error {
	plan, err := ParseSearchParams(c.Queries())
	if err != nil {
		return err
	}

	assets, total, err := h.assets.Search(c.Context(), plan)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": assets,
		"meta": fiber.Map{
			"total":    total,
			"page":     plan.Page,
			"per_page": plan.PerPage,
		},
	})
}

func (h *Handler) Get(c *fiber.Ctx) error {
	a, err := h.assets.Get(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("asset", c.Params("id"))
		}
		return err
	}
	return c.JSON(fiber.Map{"data": a})
}

func (h *Handler) Create(c *fiber.Ctx) error {
	var body struct {
		Title       string         `json:"title"`
		Description string         `json:"description"`
		MediaType   string         `json:"media_type"`
		Metadata    map[string]any `json:"metadata"`
		Tags        []string       `json:"tags"`
	}
	if err := c.BodyParser(&body); err != nil {
		return api.InvalidPayloadError()
	}
	if body.Title == "" {
		return api.ValidationError([]api.ErrorDetail{{Field: "title", Message: "Title is required"}})
	}

	a, err := h.assets.Create(c.Context(), &Asset{
		Title:       body.Title,
		Description: body.Description,
		MediaType:   body.MediaType,
		Metadata:    body.Metadata,
		Tags:        body.Tags,
	})
	if err != nil {
		return err
	}
	return c.Status(201).JSON(fiber.Map{"data": a})
}

func (h *Handler) Update(c *fiber.Ctx) error {
	var body struct {
		Title       string         `json:"title"`
		Description string         `json:"description"`
		MediaType   string         `json:"media_type"`
		Metadata    map[string]any `json:"metadata"`
		Tags        []string       `json:"tags"`
	}
	if err := c.BodyParser(&body); err != nil {
		return api.InvalidPayloadError()
	}
	if body.Title == "" {
		return api.ValidationError([]api.ErrorDetail{{Field: "title", Message: "Title is required"}})
	}

	a, err := h.assets.Update(c.Context(), c.Params("id"), &Asset{
		Title:       body.Title,
		Description: body.Description,
		MediaType:   body.MediaType,
		Metadata:    body.Metadata,
		Tags:        body.Tags,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("asset", c.Params("id"))
		}
		return err
	}
	return c.JSON(fiber.Map{"data": a})
}

// Upload handles POST /api/assets/:id/upload with a multipart "file"
// field. The binary goes to blob storage and the row records where.
func (h *Handler) Upload(c *fiber.Ctx) error {
	a, err := h.assets.Get(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("asset", c.Params("id"))
		}
		return err
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return api.ValidationError([]api.ErrorDetail{{Field: "file", Message: "File is required"}})
	}
	if h.maxFileSize > 0 && fileHeader.Size > h.maxFileSize {
		return &api.AppError{
			Code:    "FILE_TOO_LARGE",
			Status:  413,
			Message: "File exceeds the configured size limit",
		}
	}

	f, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	path, err := h.blobs.Save(c.Context(), a.ID, fileHeader.Filename, f)
	if err != nil {
		return err
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if err := h.assets.AttachFile(c.Context(), a.ID, path, mimeType, fileHeader.Size); err != nil {
		return err
	}

	updated, err := h.assets.Get(c.Context(), a.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": updated})
}

// Download streams the stored binary back.
func (h *Handler) Download(c *fiber.Ctx) error {
	a, err := h.assets.Get(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("asset", c.Params("id"))
		}
		return err
	}
	if a.StoragePath == "" {
		return api.NotFoundError("asset file", a.ID)
	}

	reader, err := h.blobs.Open(c.Context(), a.StoragePath)
	if err != nil {
		return err
	}

	if a.MimeType != "" {
		c.Set("Content-Type", a.MimeType)
	}
	c.Set("Content-Disposition", `attachment; filename="`+a.Title+`"`)
	// fasthttp closes the stream after the response is written.
	return c.SendStream(reader)
}

func (h *Handler) Delete(c *fiber.Ctx) error {
	a, err := h.assets.Get(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("asset", c.Params("id"))
		}
		return err
	}

	if err := h.assets.SoftDelete(c.Context(), a.ID); err != nil {
		return err
	}
	// Best effort: the row is already gone from listings even if the
	// blob delete fails.
	if a.StoragePath != "" {
		_ = h.blobs.Delete(c.Context(), a.StoragePath)
	}
	return c.SendStatus(204)
}
