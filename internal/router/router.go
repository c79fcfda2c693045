package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler/appointment"
	"github.com/jwalitptl/clinic-api/internal/handler/auth"
	"github.com/jwalitptl/clinic-api/internal/handler/clinic"
	"github.com/jwalitptl/clinic-api/internal/handler/dashboard"
	"github.com/jwalitptl/clinic-api/internal/handler/doctor"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	"github.com/jwalitptl/clinic-api/internal/handler/pages"
	"github.com/jwalitptl/clinic-api/internal/handler/patient"
	"github.com/jwalitptl/clinic-api/internal/handler/prometheus"
	"github.com/jwalitptl/clinic-api/internal/handler/user"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

type Handlers struct {
	Health      *health.Handler
	Metrics     *prometheus.Handler
	Pages       *pages.Handler
	Auth        *auth.Handler
	User        *user.Handler
	Dashboard   *dashboard.Handler
	Clinic      *clinic.Handler
	Doctor      *doctor.Handler
	Patient     *patient.Handler
	Appointment *appointment.Handler
}

type RouterConfig struct {
	Mode           string
	RequestTimeout time.Duration
	RateLimit      middleware.RateLimiterConfig
	CORS           middleware.CORSConfig
	Security       middleware.SecurityConfig
	SizeLimit      middleware.SizeLimitConfig
}

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	handlers Handlers
	config   RouterConfig
}

func NewRouter(auth *middleware.AuthMiddleware, handlers Handlers, m *metrics.Metrics, config RouterConfig) (*Router, error) {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if err := middleware.RegisterValidators(); err != nil {
		return nil, err
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	// Add core middlewares
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.ErrorHandler(),
		middleware.Metrics(m),
		middleware.SecurityHeaders(config.Security),
	)

	r := &Router{
		engine:   engine,
		auth:     auth,
		handlers: handlers,
		config:   config,
	}
	r.setup()
	return r, nil
}

func (r *Router) setup() {
	// Probes and scraping skip rate limiting and sessions
	r.handlers.Health.RegisterRoutes(r.engine)
	r.handlers.Metrics.RegisterRoutes(r.engine)

	rateLimiter := middleware.NewRateLimiter(r.config.RateLimit)
	app := r.engine.Group("",
		middleware.CORS(r.config.CORS),
		middleware.SizeLimit(r.config.SizeLimit),
		rateLimiter.RateLimit(),
		middleware.Timeout(middleware.TimeoutConfig{Duration: r.config.RequestTimeout}),
		r.auth.LoadSession(),
	)

	r.handlers.Pages.RegisterRoutes(app)

	api := app.Group("/api/v1", r.auth.RejectSessionErrors())
	r.handlers.Auth.RegisterRoutes(api)

	protected := api.Group("", r.auth.RequireSession())
	r.handlers.User.RegisterRoutes(protected)
	r.handlers.Dashboard.RegisterRoutes(protected)

	member := protected.Group("/clinics/:clinicId", r.auth.RequireClinicMember("clinicId"))
	r.handlers.Clinic.RegisterRoutes(protected, member)
	r.handlers.Doctor.RegisterRoutes(member)
	r.handlers.Patient.RegisterRoutes(member)
	r.handlers.Appointment.RegisterRoutes(member)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
