package care

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
	doctorOnly := auth.RequireRole(auth.RoleDoctor)

	g.POST("/treatments", h.Prescribe, doctorOnly)
	g.PUT("/treatments/:id/active", h.SetActive, doctorOnly)
	g.GET("/treatments/mine", h.ListMyTreatments)
	g.GET("/treatments/prescribed", h.ListPrescribed, doctorOnly)

	g.POST("/questions", h.Ask)
	g.POST("/questions/:id/answer", h.Answer, doctorOnly)
	g.GET("/questions/mine", h.ListMyQuestions)
	g.GET("/questions/inbox", h.ListInbox, doctorOnly)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrTreatmentNotFound), errors.Is(err, ErrQuestionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotLinked), errors.Is(err, ErrNotPrescriber), errors.Is(err, ErrNotAddressee):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrAlreadyAnswered):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}

func (h *Handler) Prescribe(c echo.Context) error {
	sess := auth.SessionFromContext(c.Request().Context())

	var in PrescribeInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	t, err := h.svc.Prescribe(c.Request().Context(), sess.UserID, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) SetActive(c echo.Context) error {
	sess := auth.SessionFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid treatment id")
	}

	var body struct {
		Active bool `json:"active"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	t, err := h.svc.SetTreatmentActive(c.Request().Context(), sess.UserID, id, body.Active)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) ListMyTreatments(c echo.Context) error {
	sess := auth.SessionFromContext(c.Request().Context())
	params := pagination.FromContext(c)
	activeOnly := c.QueryParam("active") == "true"

	items, total, err := h.svc.ListMyTreatments(c.Request().Context(), sess.UserID, activeOnly, params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, params.Limit, params.Offset))
}

func (h *Handler) ListPrescribed(c echo.Context) error {
	sess := auth.SessionFromContext(c.Request().Context())
	params := pagination.FromContext(c)

	items, total, err := h.svc.ListPrescribed(c.Request().Context(), sess.UserID, params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, params.Limit, params.Offset))
}

func (h *Handler) Ask(c echo.Context) error {
	sess := auth.SessionFromContext(c.Request().Context())

	var in struct {
		DoctorID uuid.UUID `json:"doctor_id"`
		Body     string    `json:"body"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	q, err := h.svc.Ask(c.Request().Context(), sess.UserID, in.DoctorID, in.Body)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, q)
}

func (h *Handler) Answer(c echo.Context) error {
	sess := auth.SessionFromContext(c.Request().Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid question id")
	}

	var in struct {
		Answer string `json:"answer"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	q, err := h.svc.Answer(c.Request().Context(), sess.UserID, id, in.Answer)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, q)
}

func (h *Handler) ListMyQuestions(c echo.Context) error {
	sess := auth.SessionFromContext(c.Request().Context())
	params := pagination.FromContext(c)

	items, total, err := h.svc.ListMyQuestions(c.Request().Context(), sess.UserID, params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, params.Limit, params.Offset))
}

func (h *Handler) ListInbox(c echo.Context) error {
	sess := auth.SessionFromContext(c.Request().Context())
	params := pagination.FromContext(c)
	unansweredOnly := c.QueryParam("unanswered") == "true"

	items, total, err := h.svc.ListInbox(c.Request().Context(), sess.UserID, unansweredOnly, params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, params.Limit, params.Offset))
}
