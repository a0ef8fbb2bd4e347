package connector

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"media-console/internal/api"
	"media-console/internal/store"
)

// Handler serves connector administration.
type Handler struct {
	connectors *Store
}

func NewHandler(connectors *Store) *Handler {
	return &Handler{connectors: connectors}
}

func RegisterConnectorRoutes(app *fiber.App, h *Handler, authMW fiber.Handler, guard func(action string) fiber.Handler) {
	grp := app.Group("/api/connectors", authMW)
	grp.Get("/", guard("view"), h.List)
	grp.Get("/:id", guard("view"), h.Get)
	grp.Post("/", guard("create"), h.Create)
	grp.Put("/:id", guard("edit"), h.Update)
	grp.Delete("/:id", guard("delete"), h.Delete)
	grp.Post("/:id/test", guard("test"), h.Test)
}

func (h *Handler) List(c *fiber.Ctx) error {
	connectors, err := h.connectors.List(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": connectors})
}

func (h *Handler) Get(c *fiber.Ctx) error {
	conn, err := h.connectors.Get(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("connector", c.Params("id"))
		}
		return err
	}
	return c.JSON(fiber.Map{"data": conn})
}

func (h *Handler) Create(c *fiber.Ctx) error {
	var body Connector
	if err := c.BodyParser(&body); err != nil {
		return api.InvalidPayloadError()
	}
	if details := validateConnector(&body); len(details) > 0 {
		return api.ValidationError(details)
	}

	conn, err := h.connectors.Create(c.Context(), &body)
	if err != nil {
		if errors.Is(err, store.ErrUniqueViolation) {
			return api.ConflictError("Connector already exists: " + body.Name)
		}
		return err
	}
	return c.Status(201).JSON(fiber.Map{"data": conn})
}

func (h *Handler) Update(c *fiber.Ctx) error {
	var body Connector
	if err := c.BodyParser(&body); err != nil {
		return api.InvalidPayloadError()
	}
	if details := validateConnector(&body); len(details) > 0 {
		return api.ValidationError(details)
	}

	conn, err := h.connectors.Update(c.Context(), c.Params("id"), &body)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("connector", c.Params("id"))
		}
		if errors.Is(err, store.ErrUniqueViolation) {
			return api.ConflictError("Connector already exists: " + body.Name)
		}
		return err
	}
	return c.JSON(fiber.Map{"data": conn})
}

func (h *Handler) Delete(c *fiber.Ctx) error {
	if err := h.connectors.Delete(c.Context(), c.Params("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("connector", c.Params("id"))
		}
		return err
	}
	return c.SendStatus(204)
}

// Test handles POST /api/connectors/:id/test: a single probe delivery
// so operators can verify endpoint and credentials without running a
// pipeline.
func (h *Handler) Test(c *fiber.Ctx) error {
	conn, err := h.connectors.Get(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("connector", c.Params("id"))
		}
		return err
	}

	payload, _ := json.Marshal(fiber.Map{
		"event":     "connector.test",
		"connector": conn.Name,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})

	result := Dispatch(c.Context(), conn, payload, 1)
	ok := result.Error == ""
	return c.JSON(fiber.Map{"data": fiber.Map{
		"ok":          ok,
		"status_code": result.StatusCode,
		"error":       result.Error,
	}})
}

func validateConnector(c *Connector) []api.ErrorDetail {
	var details []api.ErrorDetail
	if c.Name == "" {
		details = append(details, api.ErrorDetail{Field: "name", Message: "Name is required"})
	}
	if c.Kind == "" {
		details = append(details, api.ErrorDetail{Field: "kind", Message: "Kind is required"})
	}
	if c.Endpoint == "" {
		details = append(details, api.ErrorDetail{Field: "endpoint", Message: "Endpoint is required"})
	}
	return details
}
