package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	userService "github.com/jwalitptl/clinic-api/internal/service/user"
)

type Handler struct {
	service userService.UserServicer
	cookie  handler.SessionCookie
}

func NewHandler(service userService.UserServicer, cookie handler.SessionCookie) *Handler {
	return &Handler{service: service, cookie: cookie}
}

// RegisterRoutes expects r to require a session.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	me := r.Group("/users/me")
	{
		me.GET("", h.GetMe)
		me.PUT("", h.UpdateMe)
		me.DELETE("", h.DeleteMe)
	}
}

func (h *Handler) GetMe(c *gin.Context) {
	user, err := h.service.GetUser(c.Request.Context(), handler.CurrentUser(c).ID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(user))
}

func (h *Handler) UpdateMe(c *gin.Context) {
	var req model.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	user, err := h.service.UpdateUser(c.Request.Context(), handler.CurrentUser(c).ID, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(user))
}

// DeleteMe removes the account; sessions go with it.
func (h *Handler) DeleteMe(c *gin.Context) {
	if err := h.service.DeleteUser(c.Request.Context(), handler.CurrentUser(c).ID); err != nil {
		handler.RespondError(c, err)
		return
	}
	h.cookie.Clear(c)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
