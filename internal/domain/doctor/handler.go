package doctor

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
	g.GET("/doctors", h.ListDoctors)
	g.GET("/doctors/:id", h.GetDoctor)
	g.GET("/doctors/me/patients", h.ListMyPatients, auth.RequireRole(auth.RoleDoctor))
	g.GET("/patients/me/doctors", h.ListMyDoctors)
	g.DELETE("/patients/me/doctors/:id", h.Disconnect)
	g.GET("/institutions", h.ListInstitutions)
	g.GET("/institutions/:id/doctors", h.ListInstitutionDoctors)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	params := pagination.FromContext(c)
	city := c.QueryParam("city")

	items, total, err := h.svc.ListDoctors(c.Request().Context(), city, params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, params.Limit, params.Offset))
}

func (h *Handler) GetDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}

	profile, err := h.svc.GetProfile(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "doctor not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *Handler) ListMyPatients(c echo.Context) error {
	sess := auth.SessionFromContext(c.Request().Context())
	params := pagination.FromContext(c)

	items, total, err := h.svc.ListMyPatients(c.Request().Context(), sess.UserID, params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, params.Limit, params.Offset))
}

func (h *Handler) ListMyDoctors(c echo.Context) error {
	sess := auth.SessionFromContext(c.Request().Context())
	params := pagination.FromContext(c)

	items, total, err := h.svc.ListMyDoctors(c.Request().Context(), sess.UserID, params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, params.Limit, params.Offset))
}

func (h *Handler) Disconnect(c echo.Context) error {
	sess := auth.SessionFromContext(c.Request().Context())
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}

	if err := h.svc.Disconnect(c.Request().Context(), sess.UserID, doctorID); err != nil {
		if errors.Is(err, ErrNotLinked) {
			return echo.NewHTTPError(http.StatusNotFound, "no active link with this doctor")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListInstitutions(c echo.Context) error {
	params := pagination.FromContext(c)

	items, total, err := h.svc.ListInstitutions(c.Request().Context(), params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, params.Limit, params.Offset))
}

func (h *Handler) ListInstitutionDoctors(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid institution id")
	}
	params := pagination.FromContext(c)

	items, total, err := h.svc.ListInstitutionDoctors(c.Request().Context(), id, params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, params.Limit, params.Offset))
}
