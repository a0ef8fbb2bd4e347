package role

import (
	"github.com/gofiber/fiber/v2"

	"media-console/internal/api"
	"media-console/internal/audit"
	"media-console/internal/auth"
	"media-console/internal/permission"
)

// RequirePermission returns a Fiber middleware guarding a route with a
// (resource, action) pair from the taxonomy. The user's roles are
// resolved against their permission documents and combined with
// deny-overrides: any explicit Deny blocks, otherwise any Allow
// admits. NotSet across the board is refused, but the audit trail
// records whether the refusal was an explicit deny or simply
// unspecified.
//
// Admin bypasses all permission checks.
func RequirePermission(roles *Store, recorder audit.Recorder, resource, action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := auth.GetUser(c)
		if user == nil {
			return api.UnauthorizedError("Missing auth token")
		}
		if user.IsAdmin() {
			return c.Next()
		}

		sets, err := roles.SetsForRoles(c.Context(), user.Roles)
		if err != nil {
			return err
		}

		statuses := make([]permission.Status, 0, len(sets))
		for _, set := range sets {
			statuses = append(statuses, permission.Resolve(set, resource, action))
		}
		decision := permission.Combine(statuses...)

		if decision == permission.Allow {
			return c.Next()
		}

		recorder.Record(audit.Event{
			EventType: "guard",
			Resource:  resource,
			Action:    action,
			Decision:  decision.String(),
			UserID:    user.ID,
			Detail:    map[string]any{"path": c.Path(), "roles": user.Roles},
		})
		return api.ForbiddenError("Permission denied for " + action + " on " + resource)
	}
}
