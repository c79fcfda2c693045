package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	authService "github.com/jwalitptl/clinic-api/internal/service/auth"
)

type Handler struct {
	service authService.AuthServicer
	cookie  handler.SessionCookie
}

func NewHandler(service authService.AuthServicer, cookie handler.SessionCookie) *Handler {
	return &Handler{service: service, cookie: cookie}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up/email", h.SignUp)
		auth.POST("/sign-in/email", h.SignIn)
		auth.POST("/sign-out", h.SignOut)
		auth.GET("/get-session", h.GetSession)
		auth.POST("/send-verification-email", h.SendVerificationEmail)
		auth.GET("/verify-email", h.VerifyEmail)
		auth.POST("/forget-password", h.ForgetPassword)
		auth.POST("/reset-password", h.ResetPassword)
	}
}

func (h *Handler) SignUp(c *gin.Context) {
	var req model.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	result, err := h.service.SignUpEmail(c.Request.Context(), &req, handler.RequestMeta(c))
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	h.cookie.Set(c, result.Token)
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(result))
}

func (h *Handler) SignIn(c *gin.Context) {
	var req model.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	result, err := h.service.SignInEmail(c.Request.Context(), &req, handler.RequestMeta(c))
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	h.cookie.Set(c, result.Token)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}

func (h *Handler) SignOut(c *gin.Context) {
	if err := h.service.SignOut(c.Request.Context(), h.cookie.Token(c)); err != nil {
		handler.RespondError(c, err)
		return
	}

	h.cookie.Clear(c)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

// GetSession answers 200 with null data when there is no session.
func (h *Handler) GetSession(c *gin.Context) {
	session, err := h.service.GetSession(c.Request.Context(), h.cookie.Token(c))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(session))
}

func (h *Handler) SendVerificationEmail(c *gin.Context) {
	var req model.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	if err := h.service.SendVerificationEmail(c.Request.Context(), req.Email); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, handler.NewSuccessResponse(nil))
}

func (h *Handler) VerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("token is required"))
		return
	}

	user, err := h.service.VerifyEmail(c.Request.Context(), token)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(user))
}

func (h *Handler) ForgetPassword(c *gin.Context) {
	var req model.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	if err := h.service.ForgetPassword(c.Request.Context(), req.Email); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, handler.NewSuccessResponse(nil))
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req model.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), &req); err != nil {
		handler.RespondError(c, err)
		return
	}
	h.cookie.Clear(c)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
