package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sentrydesk/access-system/internal/core/domain"
)

// RoleSource reports the role of the currently authenticated session user.
// The session manager satisfies it.
type RoleSource interface {
	CurrentRole() (domain.Role, bool)
}

// RequireRole gates a route on the session user's role.
func RequireRole(roles RoleSource, allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := roles.CurrentRole()
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
			}
			if _, ok := allowed[role]; !ok {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
