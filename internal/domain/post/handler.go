package post

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dermahub/dermahub/internal/platform/auth"
	"github.com/dermahub/dermahub/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/posts", h.Publish)
	g.GET("/posts/feed", h.Feed)
	g.GET("/posts/mine", h.ListMine)
	g.GET("/posts/:id", h.Get)
	g.DELETE("/posts/:id", h.Remove)
	g.POST("/posts/:id/feedback", h.Comment)
	g.GET("/posts/:id/feedback", h.ListFeedback)
	g.DELETE("/feedback/:id", h.RemoveFeedback)
}

func isModerator(role auth.Role) bool {
	return role == auth.RoleModerator || role == auth.RoleAdmin
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrPostNotFound), errors.Is(err, ErrFeedbackNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotAuthor):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}

func (h *Handler) Publish(c echo.Context) error {
	sess := auth.SessionFromContext(c.Request().Context())

	var in PublishInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	p, err := h.svc.Publish(c.Request().Context(), sess.UserID, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Feed(c echo.Context) error {
	sess := auth.SessionFromContext(c.Request().Context())
	params := pagination.FromContext(c)

	items, total, err := h.svc.Feed(c.Request().Context(), sess.UserID, params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, params.Limit, params.Offset))
}

func (h *Handler) ListMine(c echo.Context) error {
	sess := auth.SessionFromContext(c.Request().Context())
	params := pagination.FromContext(c)

	items, total, err := h.svc.ListByAuthor(c.Request().Context(), sess.UserID, params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, params.Limit, params.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid post id")
	}

	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Remove(c echo.Context) error {
	sess := auth.SessionFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid post id")
	}

	if err := h.svc.Remove(c.Request().Context(), id, sess.UserID, isModerator(sess.ActiveRole)); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Comment(c echo.Context) error {
	sess := auth.SessionFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid post id")
	}

	var in struct {
		Body string `json:"body"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	f, err := h.svc.Comment(c.Request().Context(), id, sess.UserID, in.Body)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, f)
}

func (h *Handler) ListFeedback(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid post id")
	}
	params := pagination.FromContext(c)

	items, total, err := h.svc.ListFeedback(c.Request().Context(), id, params.Limit, params.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, params.Limit, params.Offset))
}

func (h *Handler) RemoveFeedback(c echo.Context) error {
	sess := auth.SessionFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid feedback id")
	}

	if err := h.svc.RemoveFeedback(c.Request().Context(), id, sess.UserID, isModerator(sess.ActiveRole)); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
