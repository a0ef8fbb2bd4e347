package pipeline

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"media-console/internal/api"
	"media-console/internal/store"
)

// Handler serves pipeline definitions and executions.
type Handler struct {
	pipelines *Store
	evaluator *ExprLangEvaluator
}

func NewHandler(pipelines *Store, evaluator *ExprLangEvaluator) *Handler {
	return &Handler{pipelines: pipelines, evaluator: evaluator}
}

// RegisterPipelineRoutes registers definition CRUD behind pipelines
// guards. Running a pipeline needs the admin grant since it spends
// downstream quota.
func RegisterPipelineRoutes(app *fiber.App, h *Handler, authMW fiber.Handler, guard func(action string) fiber.Handler) {
	grp := app.Group("/api/pipelines", authMW)
	grp.Get("/", guard("view"), h.List)
	grp.Get("/:id", guard("view"), h.Get)
	grp.Post("/", guard("create"), h.Create)
	grp.Put("/:id", guard("edit"), h.Update)
	grp.Delete("/:id", guard("delete"), h.Delete)
	grp.Post("/:id/run", guard("admin"), h.Run)
}

// RegisterExecutionRoutes registers execution monitoring and control
// behind pipelineExecutions guards.
func RegisterExecutionRoutes(app *fiber.App, h *Handler, authMW fiber.Handler, guard func(action string) fiber.Handler) {
	grp := app.Group("/api/executions", authMW)
	grp.Get("/", guard("view"), h.ListExecutions)
	grp.Get("/:id", guard("view"), h.GetExecution)
	grp.Post("/:id/retry", guard("retry"), h.Retry)
	grp.Post("/:id/cancel", guard("cancel"), h.Cancel)
}

func (h *Handler) List(c *fiber.Ctx) error {
	pipelines, err := h.pipelines.List(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": pipelines})
}

func (h *Handler) Get(c *fiber.Ctx) error {
	p, err := h.pipelines.Get(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("pipeline", c.Params("id"))
		}
		return err
	}
	return c.JSON(fiber.Map{"data": p})
}

func (h *Handler) Create(c *fiber.Ctx) error {
	var body Pipeline
	if err := c.BodyParser(&body); err != nil {
		return api.InvalidPayloadError()
	}
	if err := body.Validate(h.evaluator); err != nil {
		return api.ValidationError([]api.ErrorDetail{{Field: "steps", Message: err.Error()}})
	}

	p, err := h.pipelines.Create(c.Context(), &body)
	if err != nil {
		if errors.Is(err, store.ErrUniqueViolation) {
			return api.ConflictError("Pipeline already exists: " + body.Name)
		}
		return err
	}
	return c.Status(201).JSON(fiber.Map{"data": p})
}

func (h *Handler) Update(c *fiber.Ctx) error {
	var body Pipeline
	if err := c.BodyParser(&body); err != nil {
		return api.InvalidPayloadError()
	}
	if err := body.Validate(h.evaluator); err != nil {
		return api.ValidationError([]api.ErrorDetail{{Field: "steps", Message: err.Error()}})
	}

	p, err := h.pipelines.Update(c.Context(), c.Params("id"), &body)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("pipeline", c.Params("id"))
		}
		if errors.Is(err, store.ErrUniqueViolation) {
			return api.ConflictError("Pipeline already exists: " + body.Name)
		}
		return err
	}
	return c.JSON(fiber.Map{"data": p})
}

func (h *Handler) Delete(c *fiber.Ctx) error {
	if err := h.pipelines.Delete(c.Context(), c.Params("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("pipeline", c.Params("id"))
		}
		return err
	}
	return c.SendStatus(204)
}

// Run handles POST /api/pipelines/:id/run: enqueue an execution with
// the request body as initial context. The scheduler picks it up.
func (h *Handler) Run(c *fiber.Ctx) error {
	p, err := h.pipelines.Get(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("pipeline", c.Params("id"))
		}
		return err
	}
	if !p.Active {
		return &api.AppError{
			Code:    "PIPELINE_INACTIVE",
			Status:  409,
			Message: "Pipeline is not active",
		}
	}

	var body struct {
		Context map[string]any `json:"context"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return api.InvalidPayloadError()
		}
	}

	e, err := h.pipelines.CreateExecution(c.Context(), p, body.Context, "")
	if err != nil {
		return err
	}
	return c.Status(202).JSON(fiber.Map{"data": e})
}

func (h *Handler) ListExecutions(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit"))
	executions, err := h.pipelines.ListExecutions(c.Context(),
		c.Query("pipeline_id"), c.Query("status"), limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": executions})
}

func (h *Handler) GetExecution(c *fiber.Ctx) error {
	e, err := h.pipelines.GetExecution(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("execution", c.Params("id"))
		}
		return err
	}
	return c.JSON(fiber.Map{"data": e})
}

// Retry handles POST /api/executions/:id/retry. Only terminal failed
// or cancelled executions can be retried; the retry is a fresh pending
// row linked back to the original, so history stays intact.
func (h *Handler) Retry(c *fiber.Ctx) error {
	orig, err := h.pipelines.GetExecution(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("execution", c.Params("id"))
		}
		return err
	}
	if orig.Status != StatusFailed && orig.Status != StatusCancelled {
		return &api.AppError{
			Code:    "NOT_RETRYABLE",
			Status:  409,
			Message: "Only failed or cancelled executions can be retried",
		}
	}

	p, err := h.pipelines.Get(c.Context(), orig.PipelineID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("pipeline", orig.PipelineID)
		}
		return err
	}

	e, err := h.pipelines.CreateExecution(c.Context(), p, orig.Context, orig.ID)
	if err != nil {
		return err
	}
	return c.Status(202).JSON(fiber.Map{"data": e})
}

// Cancel handles POST /api/executions/:id/cancel.
func (h *Handler) Cancel(c *fiber.Ctx) error {
	e, err := h.pipelines.Cancel(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return api.NotFoundError("execution", c.Params("id"))
		}
		if errors.Is(err, ErrNotCancellable) {
			return &api.AppError{
				Code:    "NOT_CANCELLABLE",
				Status:  409,
				Message: "Execution is already finished",
			}
		}
		return err
	}
	return c.JSON(fiber.Map{"data": e})
}
