package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	dashboardService "github.com/jwalitptl/clinic-api/internal/service/dashboard"
)

// Handler is the JSON form of the dashboard page: it returns the navigation
// decision instead of redirecting.
type Handler struct {
	resolver dashboardService.Resolver
}

func NewHandler(resolver dashboardService.Resolver) *Handler {
	return &Handler{resolver: resolver}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/dashboard", h.GetDashboard)
}

func (h *Handler) GetDashboard(c *gin.Context) {
	decision, err := h.resolver.Resolve(c.Request.Context(), handler.CurrentSession(c))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(decision))
}
