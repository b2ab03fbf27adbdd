package connection

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

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/connections", h.Create)
	api.POST("/connections/:id/accept", h.Accept)
	api.POST("/connections/:id/reject", h.Reject)
	api.GET("/connections/pending", h.ListPending)
	api.GET("/connections/pending/count", h.CountPending)
	api.GET("/connections/sent", h.ListSent)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrRequestNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAlreadyResolved), errors.Is(err, ErrDuplicateRequest), errors.Is(err, ErrAlreadyConnected):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotApprover):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}

func (h *Handler) Create(c echo.Context) error {
	session := auth.SessionFromContext(c.Request().Context())
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req, err := h.svc.Create(c.Request().Context(), session.UserID, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, req)
}

func (h *Handler) Accept(c echo.Context) error {
	session := auth.SessionFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	req, err := h.svc.Accept(c.Request().Context(), id, session)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) Reject(c echo.Context) error {
	session := auth.SessionFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	req, err := h.svc.Reject(c.Request().Context(), id, session)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) ListPending(c echo.Context) error {
	session := auth.SessionFromContext(c.Request().Context())
	kind := Kind(c.QueryParam("kind"))
	pg := pagination.FromContext(c)

	items, total, err := h.svc.ListPending(c.Request().Context(), session, kind, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	if items == nil {
		items = []*Request{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CountPending(c echo.Context) error {
	session := auth.SessionFromContext(c.Request().Context())
	kind := Kind(c.QueryParam("kind"))

	count, err := h.svc.CountPending(c.Request().Context(), session, kind)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"count": count})
}

func (h *Handler) ListSent(c echo.Context) error {
	session := auth.SessionFromContext(c.Request().Context())
	pg := pagination.FromContext(c)

	items, total, err := h.svc.ListSent(c.Request().Context(), session.UserID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*Request{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
