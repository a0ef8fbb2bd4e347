package settings

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"media-console/internal/api"
	"media-console/internal/store"
)

// Handler serves the settings surface: user accounts, regions, and
// system key/value settings.
type Handler struct {
	settings *Store
}

func NewHandler(settings *Store) *Handler {
	return &Handler{settings: settings}
}

// RegisterSettingsRoutes registers settings endpoints. Each sub-surface
// has its own grant under the settings resource; the UI's summary
// "edit" toggle fans out to the concrete grants when saved.
func RegisterSettingsRoutes(app *fiber.App, h *Handler, authMW fiber.Handler, guard func(action string) fiber.Handler) {
	grp := app.Group("/api/settings", authMW)

	grp.Get("/users", guard("users.view"), h.ListUsers)
	grp.Get("/users/:id", guard("users.view"), h.GetUser)
	grp.Post("/users", guard("users.edit"), h.CreateUser)
	grp.Put("/users/:id/roles", guard("users.edit"), h.UpdateUserRoles)
	grp.Put("/users/:id/active", guard("users.edit"), h.SetUserActive)

	grp.Get("/regions", guard("regions.edit"), h.ListRegions)
	grp.Post("/regions", guard("regions.edit"), h.CreateRegion)
	grp.Delete("/regions/:id", guard("regions.edit"), h.DeleteRegion)

	grp.Get("/system", guard("system.edit"), h.GetSystem)
	grp.Put("/system/:key", guard("system.edit"), h.PutSystem)
}

func (h *Handler) ListUsers(c *fiber.Ctx) error {
	users, err := h.settings.ListUsers(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": users})
}

func (h *Handler) GetUser(c *fiber.Ctx) error {
	u, err := h.settings.GetUser(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("user", c.Params("id"))
		}
		return err
	}
	return c.JSON(fiber.Map{"data": u})
}

func (h *Handler) CreateUser(c *fiber.Ctx) error {
	var body struct {
		Email    string   `json:"email"`
		Password string   `json:"password"`
		Roles    []string `json:"roles"`
	}
	if err := c.BodyParser(&body); err != nil {
		return api.InvalidPayloadError()
	}

	var details []api.ErrorDetail
	if body.Email == "" || !strings.Contains(body.Email, "@") {
		details = append(details, api.ErrorDetail{Field: "email", Message: "A valid email is required"})
	}
	if len(body.Password) < 8 {
		details = append(details, api.ErrorDetail{Field: "password", Message: "Password must be at least 8 characters"})
	}
	if len(details) > 0 {
		return api.ValidationError(details)
	}

	u, err := h.settings.CreateUser(c.Context(), body.Email, body.Password, body.Roles)
	if err != nil {
		if errors.Is(err, store.ErrUniqueViolation) {
			return api.ConflictError("User already exists: " + body.Email)
		}
		return err
	}
	return c.Status(201).JSON(fiber.Map{"data": u})
}

func (h *Handler) UpdateUserRoles(c *fiber.Ctx) error {
	var body struct {
		Roles []string `json:"roles"`
	}
	if err := c.BodyParser(&body); err != nil {
		return api.InvalidPayloadError()
	}

	u, err := h.settings.UpdateUserRoles(c.Context(), c.Params("id"), body.Roles)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("user", c.Params("id"))
		}
		return err
	}
	return c.JSON(fiber.Map{"data": u})
}

func (h *Handler) SetUserActive(c *fiber.Ctx) error {
	var body struct {
		Active bool `json:"active"`
	}
	if err := c.BodyParser(&body); err != nil {
		return api.InvalidPayloadError()
	}

	u, err := h.settings.SetUserActive(c.Context(), c.Params("id"), body.Active)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("user", c.Params("id"))
		}
		return err
	}
	return c.JSON(fiber.Map{"data": u})
}

func (h *Handler) ListRegions(c *fiber.Ctx) error {
	regions, err := h.settings.ListRegions(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": regions})
}

func (h *Handler) CreateRegion(c *fiber.Ctx) error {
	var body struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&body); err != nil {
		return api.InvalidPayloadError()
	}
	if body.Name == "" {
		return api.ValidationError([]api.ErrorDetail{{Field: "name", Message: "Name is required"}})
	}

	r, err := h.settings.CreateRegion(c.Context(), body.Name)
	if err != nil {
		if errors.Is(err, store.ErrUniqueViolation) {
			return api.ConflictError("Region already exists: " + body.Name)
		}
		return err
	}
	return c.Status(201).JSON(fiber.Map{"data": r})
}

func (h *Handler) DeleteRegion(c *fiber.Ctx) error {
	if err := h.settings.DeleteRegion(c.Context(), c.Params("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("region", c.Params("id"))
		}
		return err
	}
	return c.SendStatus(204)
}

func (h *Handler) GetSystem(c *fiber.Ctx) error {
	settings, err := h.settings.GetSystemSettings(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": settings})
}

func (h *Handler) PutSystem(c *fiber.Ctx) error {
	var body struct {
		Value any `json:"value"`
	}
	if err := c.BodyParser(&body); err != nil {
		return api.InvalidPayloadError()
	}

	key := c.Params("key")
	if err := h.settings.PutSystemSetting(c.Context(), key, body.Value); err != nil {
		return err
	}

	settings, err := h.settings.GetSystemSettings(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": settings})
}
