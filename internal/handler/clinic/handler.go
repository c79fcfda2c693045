package clinic

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	clinicService "github.com/jwalitptl/clinic-api/internal/service/clinic"
)

type Handler struct {
	service clinicService.ClinicServicer
}

func NewHandler(service clinicService.ClinicServicer) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the routes open to any signed-in user on r and the
// per-clinic routes on clinic, which must already check membership of
// :clinicId.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, clinic *gin.RouterGroup) {
	r.POST("/clinics", h.CreateClinic)
	r.GET("/clinics", h.ListClinics)

	clinic.GET("", h.GetClinic)
	clinic.PUT("", h.UpdateClinic)
	clinic.DELETE("", h.DeleteClinic)
	clinic.GET("/members", h.ListMembers)
	clinic.POST("/members", h.AddMember)
	clinic.DELETE("/members/:userId", h.RemoveMember)
}

func (h *Handler) CreateClinic(c *gin.Context) {
	var req model.CreateClinicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	clinic, err := h.service.CreateClinic(c.Request.Context(), handler.CurrentUser(c).ID, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(clinic))
}

func (h *Handler) ListClinics(c *gin.Context) {
	clinics, err := h.service.ListUserClinics(c.Request.Context(), handler.CurrentUser(c).ID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(clinics))
}

func (h *Handler) GetClinic(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "clinicId")
	if !ok {
		return
	}

	clinic, err := h.service.GetClinic(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(clinic))
}

func (h *Handler) UpdateClinic(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "clinicId")
	if !ok {
		return
	}

	var req model.UpdateClinicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	clinic, err := h.service.UpdateClinic(c.Request.Context(), id, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(clinic))
}

func (h *Handler) DeleteClinic(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "clinicId")
	if !ok {
		return
	}

	if err := h.service.DeleteClinic(c.Request.Context(), id); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) ListMembers(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "clinicId")
	if !ok {
		return
	}

	members, err := h.service.ListMembers(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(members))
}

func (h *Handler) AddMember(c *gin.Context) {
	id, ok := handler.ParamUUID(c, "clinicId")
	if !ok {
		return
	}

	var req model.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	membership, err := h.service.AddMember(c.Request.Context(), id, req.Email)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(membership))
}

func (h *Handler) RemoveMember(c *gin.Context) {
	clinicID, ok := handler.ParamUUID(c, "clinicId")
	if !ok {
		return
	}
	userID, ok := handler.ParamUUID(c, "userId")
	if !ok {
		return
	}

	if err := h.service.RemoveMember(c.Request.Context(), clinicID, userID); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
