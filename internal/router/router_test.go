package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/handler"
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
	"github.com/jwalitptl/clinic-api/internal/model"
	dashboardService "github.com/jwalitptl/clinic-api/internal/service/dashboard"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

type noSessions struct{}

func (noSessions) GetSession(context.Context, string) (*model.SessionWithUser, error) {
	return nil, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	cookie := handler.SessionCookie{Name: "clinic_session"}
	registry := promclient.NewRegistry()

	pagesHandler, err := pages.NewHandler(nil, nil, dashboardService.NewService(nil, nil), cookie)
	require.NoError(t, err)

	r, err := NewRouter(
		middleware.NewAuthMiddleware(noSessions{}, nil, cookie),
		Handlers{
			Health:      health.NewHandler(nil),
			Metrics:     prometheus.New(registry),
			Pages:       pagesHandler,
			Auth:        auth.NewHandler(nil, cookie),
			User:        user.NewHandler(nil, cookie),
			Dashboard:   dashboard.NewHandler(nil),
			Clinic:      clinic.NewHandler(nil),
			Doctor:      doctor.NewHandler(nil),
			Patient:     patient.NewHandler(nil),
			Appointment: appointment.NewHandler(nil),
		},
		metrics.New("test", registry),
		RouterConfig{
			Mode:      gin.TestMode,
			RateLimit: middleware.RateLimiterConfig{Rate: 100, Burst: 100},
			CORS:      middleware.DefaultCORSConfig(),
			Security:  middleware.DefaultSecurityConfig(false),
			SizeLimit: middleware.DefaultSizeLimitConfig(),
		},
	)
	require.NoError(t, err)
	return r.Engine()
}

func TestRoutes(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health/live", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/dashboard", http.StatusFound}, // no session, off to sign in
		{http.MethodGet, "/api/v1/users/me", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/clinics", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/clinics/00000000-0000-0000-0000-000000000001/doctors", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/nope", http.StatusNotFound},
		{http.MethodPatch, "/api/v1/users/me", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, w.Code)
			assert.NotEmpty(t, w.Header().Get(middleware.HeaderXRequestID))
		})
	}
}
