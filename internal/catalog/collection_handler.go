package catalog

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"media-console/internal/api"
	"media-console/internal/store"
)

// CollectionHandler serves collection CRUD and membership.
type CollectionHandler struct {
	collections *CollectionStore
	assets      *Store
}

func NewCollectionHandler(collections *CollectionStore, assets *Store) *CollectionHandler {
	return &CollectionHandler{collections: collections, assets: assets}
}

func RegisterCollectionRoutes(app *fiber.App, h *CollectionHandler, authMW fiber.Handler, guard func(action string) fiber.Handler) {
	grp := app.Group("/api/collections", authMW)
	grp.Get("/", guard("view"), h.List)
	grp.Get("/:id", guard("view"), h.Get)
	grp.Get("/:id/assets", guard("view"), h.Assets)
	grp.Post("/", guard("create"), h.Create)
	grp.Put("/:id", guard("edit"), h.Update)
	grp.Delete("/:id", guard("delete"), h.Delete)
	grp.Post("/:id/assets/:assetId", guard("edit"), h.AddAsset)
	grp.Delete("/:id/assets/:assetId", guard("edit"), h.RemoveAsset)
}

func (h *CollectionHandler) List(c *fiber.Ctx) error {
	collections, err := h.collections.List(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": collections})
}

func (h *CollectionHandler) Get(c *fiber.Ctx) error {
	col, err := h.collections.Get(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("collection", c.Params("id"))
		}
		return err
	}
	return c.JSON(fiber.Map{"data": col})
}

func (h *CollectionHandler) Assets(c *fiber.Ctx) error {
	if _, err := h.collections.Get(c.Context(), c.Params("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("collection", c.Params("id"))
		}
		return err
	}
	assets, err := h.collections.Assets(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assets})
}

func (h *CollectionHandler) Create(c *fiber.Ctx) error {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&body); err != nil {
		return api.InvalidPayloadError()
	}
	if body.Name == "" {
		return api.ValidationError([]api.ErrorDetail{{Field: "name", Message: "Name is required"}})
	}

	col, err := h.collections.Create(c.Context(), body.Name, body.Description)
	if err != nil {
		if errors.Is(err, store.ErrUniqueViolation) {
			return api.ConflictError("Collection already exists: " + body.Name)
		}
		return err
	}
	return c.Status(201).JSON(fiber.Map{"data": col})
}

func (h *CollectionHandler) Update(c *fiber.Ctx) error {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&body); err != nil {
		return api.InvalidPayloadError()
	}
	if body.Name == "" {
		return api.ValidationError([]api.ErrorDetail{{Field: "name", Message: "Name is required"}})
	}

	col, err := h.collections.Update(c.Context(), c.Params("id"), body.Name, body.Description)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("collection", c.Params("id"))
		}
		if errors.Is(err, store.ErrUniqueViolation) {
			return api.ConflictError("Collection already exists: " + body.Name)
		}
		return err
	}
	return c.JSON(fiber.Map{"data": col})
}

func (h *CollectionHandler) Delete(c *fiber.Ctx) error {
	if err := h.collections.Delete(c.Context(), c.Params("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("collection", c.Params("id"))
		}
		return err
	}
	return c.SendStatus(204)
}

func (h *CollectionHandler) AddAsset(c *fiber.Ctx) error {
	if _, err := h.collections.Get(c.Context(), c.Params("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("collection", c.Params("id"))
		}
		return err
	}
	if _, err := h.assets.Get(c.Context(), c.Params("assetId")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("asset", c.Params("assetId"))
		}
		return err
	}

	if err := h.collections.AddAsset(c.Context(), c.Params("id"), c.Params("assetId")); err != nil {
		return err
	}
	return c.SendStatus(204)
}

func (h *CollectionHandler) RemoveAsset(c *fiber.Ctx) error {
	if err := h.collections.RemoveAsset(c.Context(), c.Params("id"), c.Params("assetId")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("collection asset", c.Params("assetId"))
		}
		return err
	}
	return c.SendStatus(204)
}
