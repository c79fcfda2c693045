package pages

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	authService "github.com/jwalitptl/clinic-api/internal/service/auth"
	clinicService "github.com/jwalitptl/clinic-api/internal/service/clinic"
	dashboardService "github.com/jwalitptl/clinic-api/internal/service/dashboard"
	"github.com/jwalitptl/clinic-api/pkg/validator"
)

const (
	pageLanding        = "landing"
	pageAuthentication = "authentication"
	pageClinicForm     = "clinic_form"
	pageDashboard      = "dashboard"
	pageError          = "error"
)

//go:embed templates/*.html
var templateFS embed.FS

type pageData struct {
	Title      string
	User       *model.User
	Error      string
	Notice     string
	Email      string
	ResetToken string
	View       *dashboardService.View
}

// Handler serves the HTML pages. Every page reads the session LoadSession
// stored; none of them caches navigation state.
type Handler struct {
	auth      authService.AuthServicer
	clinics   clinicService.ClinicServicer
	dashboard dashboardService.Resolver
	cookie    handler.SessionCookie
	templates map[string]*template.Template
}

func NewHandler(
	auth authService.AuthServicer,
	clinics clinicService.ClinicServicer,
	dashboard dashboardService.Resolver,
	cookie handler.SessionCookie,
) (*Handler, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &Handler{
		auth:      auth,
		clinics:   clinics,
		dashboard: dashboard,
		cookie:    cookie,
		templates: templates,
	}, nil
}

func parseTemplates() (map[string]*template.Template, error) {
	pages := []string{pageLanding, pageAuthentication, pageClinicForm, pageDashboard, pageError}
	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", page, err)
		}
		templates[page] = t
	}
	return templates, nil
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/", h.Landing)
	r.GET(dashboardService.AuthenticationPath, h.sessionLoaded, h.Authentication)
	r.POST(dashboardService.AuthenticationPath+"/sign-in", h.SignIn)
	r.POST(dashboardService.AuthenticationPath+"/sign-up", h.SignUp)
	r.POST(dashboardService.AuthenticationPath+"/forget-password", h.ForgetPassword)
	r.POST(dashboardService.AuthenticationPath+"/reset-password", h.ResetPassword)
	r.POST("/sign-out", h.SignOut)
	r.GET(dashboardService.ClinicFormPath, h.sessionLoaded, h.ClinicForm)
	r.POST(dashboardService.ClinicFormPath, h.sessionLoaded, h.CreateClinic)
	r.GET(dashboardService.DashboardPath, h.sessionLoaded, h.Dashboard)
}

// sessionLoaded shows the error page when the session lookup failed, rather
// than treating the visitor as signed out.
func (h *Handler) sessionLoaded(c *gin.Context) {
	if err := handler.SessionError(c); err != nil {
		h.fail(c, pageError, pageData{Title: "Error"}, err)
		c.Abort()
		return
	}
	c.Next()
}

func (h *Handler) render(c *gin.Context, status int, page string, data pageData) {
	if data.User == nil {
		data.User = handler.CurrentUser(c)
	}
	c.Header("Cache-Control", "no-store")
	c.Render(status, render.HTML{Template: h.templates[page], Name: "layout", Data: data})
}

// fail re-renders page with a message for err. Server errors get the generic
// error page and are left on the context for the error middleware to log.
func (h *Handler) fail(c *gin.Context, page string, data pageData, err error) {
	status, message := handler.ErrorStatus(err)
	_ = c.Error(err)
	if status >= http.StatusInternalServerError {
		h.render(c, status, pageError, pageData{Title: "Error"})
		return
	}
	data.Error = message
	h.render(c, status, page, data)
}

// bindFailed reports form validation errors field by field.
func (h *Handler) bindFailed(c *gin.Context, page string, data pageData, err error) {
	_ = c.Error(err).SetType(gin.ErrorTypeBind)
	fields := validator.Describe(err)
	if len(fields) == 0 {
		data.Error = "The form could not be read."
	} else {
		parts := make([]string, 0, len(fields))
		for _, f := range fields {
			parts = append(parts, strings.ReplaceAll(f.Field, "_", " ")+" "+f.Message)
		}
		data.Error = "Please check the form: " + strings.Join(parts, "; ") + "."
	}
	h.render(c, http.StatusBadRequest, page, data)
}

func (h *Handler) Landing(c *gin.Context) {
	h.render(c, http.StatusOK, pageLanding, pageData{Title: "Welcome"})
}

// Authentication shows the sign-in and sign-up forms, or the new password
// form when reached through a reset link.
func (h *Handler) Authentication(c *gin.Context) {
	data := pageData{Title: "Sign in", ResetToken: c.Query("reset_token")}
	if data.ResetToken == "" && handler.CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, dashboardService.DashboardPath)
		return
	}
	if data.ResetToken != "" {
		data.Title = "Reset password"
	}
	h.render(c, http.StatusOK, pageAuthentication, data)
}

func (h *Handler) SignIn(c *gin.Context) {
	data := pageData{Title: "Sign in"}
	var req model.SignInRequest
	if err := c.ShouldBind(&req); err != nil {
		h.bindFailed(c, pageAuthentication, data, err)
		return
	}
	data.Email = req.Email

	result, err := h.auth.SignInEmail(c.Request.Context(), &req, handler.RequestMeta(c))
	if err != nil {
		h.fail(c, pageAuthentication, data, err)
		return
	}

	h.cookie.Set(c, result.Token)
	c.Redirect(http.StatusSeeOther, dashboardService.DashboardPath)
}

func (h *Handler) SignUp(c *gin.Context) {
	data := pageData{Title: "Sign in"}
	var req model.SignUpRequest
	if err := c.ShouldBind(&req); err != nil {
		h.bindFailed(c, pageAuthentication, data, err)
		return
	}

	result, err := h.auth.SignUpEmail(c.Request.Context(), &req, handler.RequestMeta(c))
	if err != nil {
		h.fail(c, pageAuthentication, data, err)
		return
	}

	h.cookie.Set(c, result.Token)
	c.Redirect(http.StatusSeeOther, dashboardService.DashboardPath)
}

func (h *Handler) ForgetPassword(c *gin.Context) {
	data := pageData{Title: "Sign in"}
	var req model.EmailRequest
	if err := c.ShouldBind(&req); err != nil {
		h.bindFailed(c, pageAuthentication, data, err)
		return
	}

	if err := h.auth.ForgetPassword(c.Request.Context(), req.Email); err != nil {
		h.fail(c, pageAuthentication, data, err)
		return
	}

	data.Notice = "If that address has an account, a reset link is on its way."
	h.render(c, http.StatusOK, pageAuthentication, data)
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req model.ResetPasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		h.bindFailed(c, pageAuthentication, pageData{Title: "Reset password", ResetToken: c.PostForm("token")}, err)
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), &req); err != nil {
		h.fail(c, pageAuthentication, pageData{Title: "Sign in"}, err)
		return
	}

	// every session was revoked, this browser's included
	h.cookie.Clear(c)
	h.render(c, http.StatusOK, pageAuthentication, pageData{
		Title:  "Sign in",
		Notice: "Your password was changed. Sign in with the new one.",
	})
}

func (h *Handler) SignOut(c *gin.Context) {
	if err := h.auth.SignOut(c.Request.Context(), h.cookie.Token(c)); err != nil {
		h.fail(c, pageLanding, pageData{Title: "Welcome"}, err)
		return
	}
	h.cookie.Clear(c)
	c.Redirect(http.StatusSeeOther, dashboardService.AuthenticationPath)
}

func (h *Handler) ClinicForm(c *gin.Context) {
	if handler.CurrentUser(c) == nil {
		c.Redirect(http.StatusFound, dashboardService.AuthenticationPath)
		return
	}
	h.render(c, http.StatusOK, pageClinicForm, pageData{Title: "New clinic"})
}

func (h *Handler) CreateClinic(c *gin.Context) {
	user := handler.CurrentUser(c)
	if user == nil {
		c.Redirect(http.StatusSeeOther, dashboardService.AuthenticationPath)
		return
	}

	data := pageData{Title: "New clinic"}
	var req model.CreateClinicRequest
	if err := c.ShouldBind(&req); err != nil {
		h.bindFailed(c, pageClinicForm, data, err)
		return
	}

	if _, err := h.clinics.CreateClinic(c.Request.Context(), user.ID, &req); err != nil {
		h.fail(c, pageClinicForm, data, err)
		return
	}
	c.Redirect(http.StatusSeeOther, dashboardService.DashboardPath)
}

// Dashboard runs the navigation decision: unauthenticated visitors go to
// sign in, members of no clinic go to the clinic form, everyone else sees
// their clinics.
func (h *Handler) Dashboard(c *gin.Context) {
	decision, err := h.dashboard.Resolve(c.Request.Context(), handler.CurrentSession(c))
	if err != nil {
		h.fail(c, pageError, pageData{Title: "Error"}, err)
		return
	}

	if decision.State != dashboardService.StateReady {
		c.Redirect(http.StatusFound, decision.Redirect)
		return
	}
	h.render(c, http.StatusOK, pageDashboard, pageData{Title: "Dashboard", View: decision.View})
}
