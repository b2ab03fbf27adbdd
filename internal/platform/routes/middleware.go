package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dermahub/dermahub/internal/platform/auth"
)

// Middleware gates a route group with the tree. The wrapped group must run
// after auth.OptionalMiddleware so anonymous callers reach the guard and
// receive a sign-in redirect instead of a blanket 401.
func Middleware(tree *Tree, prefix string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			state := stateFromContext(c)
			path := c.Request().URL.Path
			if prefix != "" && len(path) >= len(prefix) && path[:len(prefix)] == prefix {
				path = path[len(prefix):]
			}

			switch tree.Evaluate(path, state) {
			case DecisionAllow:
				return next(c)
			case DecisionSignIn:
				return echo.NewHTTPError(http.StatusUnauthorized, "sign in required")
			case DecisionLoading:
				return echo.NewHTTPError(http.StatusServiceUnavailable, "session not ready")
			default:
				return echo.NewHTTPError(http.StatusForbidden, "access denied")
			}
		}
	}
}

// Handler exposes navigation decisions to the client shell so it can gate
// screen transitions against the same tree the server enforces.
type Handler struct {
	tree *Tree
}

func NewHandler(tree *Tree) *Handler {
	return &Handler{tree: tree}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/navigation/decision", h.Decide)
}

type decisionResponse struct {
	Path     string `json:"path"`
	Decision string `json:"decision"`
}

func (h *Handler) Decide(c echo.Context) error {
	path := c.QueryParam("path")
	if path == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "path query parameter is required")
	}

	d := h.tree.Evaluate(path, stateFromContext(c))
	return c.JSON(http.StatusOK, decisionResponse{Path: path, Decision: d.String()})
}

func stateFromContext(c echo.Context) SessionState {
	session := auth.SessionFromContext(c.Request().Context())
	if session == nil {
		return SessionState{}
	}
	return SessionState{
		Authenticated: true,
		RolesLoaded:   true,
		ActiveRole:    session.ActiveRole,
	}
}
