package audit

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"media-console/internal/store"
)

// Handler exposes the audit log to administrators.
type Handler struct {
	store *store.Store
}

func NewHandler(s *store.Store) *Handler {
	return &Handler{store: s}
}

// RegisterAuditRoutes registers audit endpoints. Both are admin-only.
func RegisterAuditRoutes(app *fiber.App, h *Handler, authMW, adminMW fiber.Handler) {
	grp := app.Group("/api/audit", authMW, adminMW)
	grp.Get("/events", h.ListEvents)
	grp.Get("/stats", h.Stats)
}

// ListEvents handles GET /api/audit/events with optional event_type and
// user_id filters, newest first.
func (h *Handler) ListEvents(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "100"))
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	pb := h.store.Dialect.NewParamBuilder()
	where := "1=1"
	if et := c.Query("event_type"); et != "" {
		where += " AND event_type = " + pb.Add(et)
	}
	if uid := c.Query("user_id"); uid != "" {
		where += " AND user_id = " + pb.Add(uid)
	}

	rows, err := store.QueryRows(c.Context(), h.store.DB, fmt.Sprintf(
		`SELECT id, event_type, resource, action, decision, user_id, detail, created_at
		 FROM audit_events WHERE %s ORDER BY created_at DESC LIMIT %s`,
		where, pb.Add(limit)), pb.Params()...)
	if err != nil {
		return fmt.Errorf("list audit events: %w", err)
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return c.JSON(fiber.Map{"data": rows})
}

// Stats handles GET /api/audit/stats, summarizing guard decisions.
func (h *Handler) Stats(c *fiber.Ctx) error {
	d := h.store.Dialect
	row, err := store.QueryRow(c.Context(), h.store.DB, fmt.Sprintf(
		`SELECT COUNT(*) AS total,
		        %s AS denied,
		        %s AS allowed
		 FROM audit_events WHERE event_type = 'guard'`,
		d.FilterCountExpr("decision = 'deny'"),
		d.FilterCountExpr("decision = 'allow'")))
	if err != nil {
		return fmt.Errorf("audit stats: %w", err)
	}
	return c.JSON(fiber.Map{"data": row})
}
