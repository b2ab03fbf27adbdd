package auth

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole returns middleware that admits only callers whose active role
// is one of the listed roles. Anonymous requests get 401, authenticated
// callers without a matching role get 403. There is no implicit admin
// bypass; grant admin explicitly on routes that need it.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session := SessionFromContext(c.Request().Context())
			if session == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			for _, required := range roles {
				if session.ActiveRole == required {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("insufficient role: %s", session.ActiveRole))
		}
	}
}
