package queue

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicq/clinicq/internal/platform/auth"
	"github.com/clinicq/clinicq/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	patient := api.Group("/queue", auth.RequireRole(auth.RolePatient))
	patient.POST("/join", h.Join)
	patient.POST("/entries/:id/leave", h.Leave)
	patient.GET("/patients/:id/status", h.PatientStatus)

	doc := api.Group("/queue", auth.RequireRole(auth.RoleDoctor))
	doc.POST("/entries/:id/start", h.Start)
	doc.POST("/entries/:id/complete", h.Complete)
	doc.POST("/entries/:id/skip", h.Skip)
	doc.GET("/doctors/:id", h.DoctorQueue)
	doc.GET("/doctors/:id/history", h.DoctorHistory)
}

// httpError maps domain failures onto the HTTP surface. The body carries a
// machine-readable code so clients can distinguish the two 409 causes.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, echo.Map{"code": "conflict", "message": err.Error()})
	case errors.Is(err, ErrInvalidState):
		return echo.NewHTTPError(http.StatusConflict, echo.Map{"code": "invalid_state", "message": err.Error()})
	case errors.Is(err, ErrUnavailable):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, echo.Map{"code": "unavailable", "message": err.Error()})
	case errors.Is(err, ErrBusy):
		return echo.NewHTTPError(http.StatusTooManyRequests, echo.Map{"code": "busy", "message": err.Error()})
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, echo.Map{"code": "not_found", "message": err.Error()})
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

type joinRequest struct {
	DoctorID  uuid.UUID `json:"doctor_id"`
	PatientID uuid.UUID `json:"patient_id"`
	Priority  string    `json:"priority"`
	Notes     *string   `json:"notes"`
}

func (h *Handler) Join(c echo.Context) error {
	var req joinRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.DoctorID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "doctor_id is required")
	}

	ctx := c.Request().Context()
	if req.PatientID == uuid.Nil {
		pid, err := uuid.Parse(auth.UserIDFromContext(ctx))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
		}
		req.PatientID = pid
	}
	// Patients join for themselves; admins may join on a patient's behalf.
	if auth.RoleFromContext(ctx) == auth.RolePatient && req.PatientID.String() != auth.UserIDFromContext(ctx) {
		return echo.NewHTTPError(http.StatusForbidden, "patients may only join for themselves")
	}

	entry, err := h.svc.Join(ctx, req.DoctorID, req.PatientID, req.Priority, req.Notes)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, entry)
}

func (h *Handler) Leave(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	if auth.RoleFromContext(ctx) == auth.RolePatient {
		e, err := h.svc.Get(ctx, id)
		if err != nil {
			return httpError(err)
		}
		if e.PatientID.String() != auth.UserIDFromContext(ctx) {
			return echo.NewHTTPError(http.StatusForbidden, "patients may only leave their own entry")
		}
	}
	entry, err := h.svc.Leave(ctx, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *Handler) Start(c echo.Context) error {
	return h.doctorTransition(c, h.svc.StartConsultation)
}

func (h *Handler) Complete(c echo.Context) error {
	return h.doctorTransition(c, h.svc.CompleteConsultation)
}

func (h *Handler) Skip(c echo.Context) error {
	return h.doctorTransition(c, h.svc.Skip)
}

func (h *Handler) doctorTransition(c echo.Context, op func(ctx context.Context, entryID uuid.UUID) (*Entry, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	if auth.RoleFromContext(ctx) == auth.RoleDoctor {
		e, err := h.svc.Get(ctx, id)
		if err != nil {
			return httpError(err)
		}
		if e.DoctorID.String() != auth.UserIDFromContext(ctx) {
			return echo.NewHTTPError(http.StatusForbidden, "doctors may only manage their own queue")
		}
	}
	entry, err := op(ctx, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *Handler) DoctorQueue(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	if auth.RoleFromContext(ctx) == auth.RoleDoctor && id.String() != auth.UserIDFromContext(ctx) {
		return echo.NewHTTPError(http.StatusForbidden, "doctors may only view their own queue")
	}
	view, err := h.svc.QueueForDoctor(ctx, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) DoctorHistory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	if auth.RoleFromContext(ctx) == auth.RoleDoctor && id.String() != auth.UserIDFromContext(ctx) {
		return echo.NewHTTPError(http.StatusForbidden, "doctors may only view their own history")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.HistoryForDoctor(ctx, id, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) PatientStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	if auth.RoleFromContext(ctx) == auth.RolePatient && id.String() != auth.UserIDFromContext(ctx) {
		return echo.NewHTTPError(http.StatusForbidden, "patients may only view their own status")
	}
	entry, err := h.svc.StatusForPatient(ctx, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, entry)
}
