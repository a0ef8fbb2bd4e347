package role

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"

	"media-console/internal/api"
	"media-console/internal/audit"
	"media-console/internal/auth"
	"media-console/internal/permission"
	"media-console/internal/store"
)

// Handler serves role administration and the permission matrix.
type Handler struct {
	roles    *Store
	recorder audit.Recorder
}

func NewHandler(roles *Store, recorder audit.Recorder) *Handler {
	return &Handler{roles: roles, recorder: recorder}
}

// RegisterRoleRoutes registers role endpoints. Role administration is
// admin-only.
func RegisterRoleRoutes(app *fiber.App, h *Handler, authMW, adminMW fiber.Handler) {
	grp := app.Group("/api/roles", authMW, adminMW)
	grp.Get("/", h.List)
	grp.Get("/taxonomy", h.Taxonomy)
	grp.Post("/", h.Create)
	grp.Get("/:id", h.Get)
	grp.Put("/:id", h.Update)
	grp.Delete("/:id", h.Delete)
	grp.Get("/:id/matrix", h.GetMatrix)
	grp.Put("/:id/matrix", h.UpdateMatrix)
	grp.Put("/:id/permissions", h.ReplacePermissions)
}

func (h *Handler) List(c *fiber.Ctx) error {
	roles, err := h.roles.List(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": roles})
}

// Taxonomy handles GET /api/roles/taxonomy so the matrix UI can
// enumerate resources and legal actions without hardcoding them.
func (h *Handler) Taxonomy(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": permission.Taxonomy})
}

func (h *Handler) Get(c *fiber.Ctx) error {
	r, err := h.roles.Get(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("role", c.Params("id"))
		}
		return err
	}
	return c.JSON(fiber.Map{"data": r})
}

func (h *Handler) Create(c *fiber.Ctx) error {
	var body struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Permissions json.RawMessage `json:"permissions"`
	}
	if err := c.BodyParser(&body); err != nil {
		return api.InvalidPayloadError()
	}
	if body.Name == "" {
		return api.ValidationError([]api.ErrorDetail{{Field: "name", Message: "Name is required"}})
	}

	set, err := permission.DecodeSet(body.Permissions)
	if err != nil {
		return api.ValidationError([]api.ErrorDetail{{Field: "permissions", Message: err.Error()}})
	}

	r, err := h.roles.Create(c.Context(), body.Name, body.Description, set)
	if err != nil {
		if errors.Is(err, store.ErrUniqueViolation) {
			return api.ConflictError("Role already exists: " + body.Name)
		}
		return err
	}
	return c.Status(201).JSON(fiber.Map{"data": r})
}

func (h *Handler) Update(c *fiber.Ctx) error {
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

	if err := h.roles.UpdateMeta(c.Context(), c.Params("id"), body.Name, body.Description); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("role", c.Params("id"))
		}
		if errors.Is(err, store.ErrUniqueViolation) {
			return api.ConflictError("Role already exists: " + body.Name)
		}
		return err
	}
	r, err := h.roles.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": r})
}

func (h *Handler) Delete(c *fiber.Ctx) error {
	if err := h.roles.Delete(c.Context(), c.Params("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("role", c.Params("id"))
		}
		return err
	}
	return c.JSON(fiber.Map{"message": "Role deleted"})
}

// GetMatrix handles GET /api/roles/:id/matrix: the full taxonomy with
// each cell's resolved status, including composite summary cells.
func (h *Handler) GetMatrix(c *fiber.Ctx) error {
	r, err := h.roles.Get(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("role", c.Params("id"))
		}
		return err
	}
	return c.JSON(fiber.Map{"data": BuildMatrix(r.Permissions)})
}

// UpdateMatrix handles PUT /api/roles/:id/matrix: applies a batch of
// cell edits and persists the whole document (last-write-wins).
func (h *Handler) UpdateMatrix(c *fiber.Ctx) error {
	var body struct {
		Updates []CellUpdate `json:"updates"`
	}
	if err := c.BodyParser(&body); err != nil {
		return api.InvalidPayloadError()
	}
	if len(body.Updates) == 0 {
		return api.ValidationError([]api.ErrorDetail{{Field: "updates", Message: "At least one update is required"}})
	}

	r, err := h.roles.Get(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("role", c.Params("id"))
		}
		return err
	}

	updated, err := ApplyUpdates(r.Permissions, body.Updates)
	if err != nil {
		return api.ValidationError([]api.ErrorDetail{{Field: "updates", Message: err.Error()}})
	}

	if err := h.roles.UpdatePermissions(c.Context(), r.ID, updated); err != nil {
		return err
	}

	user := auth.GetUser(c)
	for _, u := range body.Updates {
		h.recorder.Record(audit.Event{
			EventType: "matrix",
			Resource:  u.Resource,
			Action:    u.Action,
			Decision:  u.Status.String(),
			UserID:    userID(user),
			Detail:    map[string]any{"role": r.Name},
		})
	}

	return c.JSON(fiber.Map{"data": BuildMatrix(updated)})
}

// ReplacePermissions handles PUT /api/roles/:id/permissions: swaps the
// whole document, accepting any of the three shape families.
func (h *Handler) ReplacePermissions(c *fiber.Ctx) error {
	set, err := permission.DecodeSet(c.Body())
	if err != nil {
		return api.ValidationError([]api.ErrorDetail{{Field: "permissions", Message: err.Error()}})
	}
	if err := h.roles.UpdatePermissions(c.Context(), c.Params("id"), set); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("role", c.Params("id"))
		}
		return err
	}
	return c.JSON(fiber.Map{"data": BuildMatrix(set)})
}

func userID(u *auth.UserContext) string {
	if u == nil {
		return ""
	}
	return u.ID
}
