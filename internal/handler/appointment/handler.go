package appointment

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	appointmentService "github.com/jwalitptl/clinic-api/internal/service/appointment"
)

type Handler struct {
	service appointmentService.AppointmentServicer
}

func NewHandler(service appointmentService.AppointmentServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(clinic *gin.RouterGroup) {
	appointments := clinic.Group("/appointments")
	{
		appointments.POST("", h.CreateAppointment)
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PUT("/:id", h.UpdateAppointment)
		appointments.DELETE("/:id", h.DeleteAppointment)
	}
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	clinicID, ok := handler.ParamUUID(c, "clinicId")
	if !ok {
		return
	}

	var req model.AppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	appointment, err := h.service.CreateAppointment(c.Request.Context(), clinicID, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(appointment))
}

// listQuery binds the optional filters; from and to are RFC 3339.
type listQuery struct {
	DoctorID  string `form:"doctor_id" binding:"omitempty,uuid"`
	PatientID string `form:"patient_id" binding:"omitempty,uuid"`
	From      string `form:"from" binding:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	To        string `form:"to" binding:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

func (q listQuery) filters(clinicID uuid.UUID) *model.AppointmentFilters {
	f := &model.AppointmentFilters{ClinicID: clinicID}
	if id, err := uuid.Parse(q.DoctorID); err == nil {
		f.DoctorID = &id
	}
	if id, err := uuid.Parse(q.PatientID); err == nil {
		f.PatientID = &id
	}
	if t, err := time.Parse(time.RFC3339, q.From); err == nil {
		f.From = &t
	}
	if t, err := time.Parse(time.RFC3339, q.To); err == nil {
		f.To = &t
	}
	return f
}

func (h *Handler) ListAppointments(c *gin.Context) {
	clinicID, ok := handler.ParamUUID(c, "clinicId")
	if !ok {
		return
	}

	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	appointments, err := h.service.ListAppointments(c.Request.Context(), q.filters(clinicID))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(appointments))
}

func (h *Handler) GetAppointment(c *gin.Context) {
	clinicID, ok := handler.ParamUUID(c, "clinicId")
	if !ok {
		return
	}
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	appointment, err := h.service.GetAppointment(c.Request.Context(), clinicID, id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(appointment))
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	clinicID, ok := handler.ParamUUID(c, "clinicId")
	if !ok {
		return
	}
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	var req model.AppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	appointment, err := h.service.UpdateAppointment(c.Request.Context(), clinicID, id, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(appointment))
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
	clinicID, ok := handler.ParamUUID(c, "clinicId")
	if !ok {
		return
	}
	id, ok := handler.ParamUUID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteAppointment(c.Request.Context(), clinicID, id); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
