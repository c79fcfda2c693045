package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) handler.Response {
	t.Helper()
	var resp handler.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	w := do(r, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(HeaderXRequestID)
	_, err := uuid.Parse(generated)
	assert.NoError(t, err)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, "abc-123")
	w = do(r, req)
	assert.Equal(t, "abc-123", w.Header().Get(HeaderXRequestID))
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/missing", func(c *gin.Context) {
		_ = c.Error(apperrors.NotFound("clinic", nil))
	})
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(errors.New("pq: connection refused"))
	})
	r.GET("/written", func(c *gin.Context) {
		handler.RespondError(c, apperrors.Conflict("taken", nil))
	})

	w := do(r, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "error", decode(t, w).Status)

	w = do(r, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decode(t, w).Message, "internal detail is hidden")

	w = do(r, httptest.NewRequest(http.MethodGet, "/written", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "taken", decode(t, w).Message)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/", func(c *gin.Context) { panic("kaboom") })

	w := do(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "error", decode(t, w).Status)
}

func TestCORS(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"https://app.example.com"}

	r := gin.New()
	r.Use(CORS(cfg))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := do(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = do(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders(DefaultSecurityConfig(false)))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "frame-ancestors 'none'")
}

func TestSizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(SizeLimit(SizeLimitConfig{MaxBodySize: 8, MaxHeaderSize: 1 << 10}))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = do(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("ok")))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitPerClient(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 2})
	r := gin.New()
	r.Use(rl.RateLimit())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	from := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		return do(r, req).Code
	}

	assert.Equal(t, http.StatusOK, from("10.0.0.1"))
	assert.Equal(t, http.StatusOK, from("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, from("10.0.0.1"))
	assert.Equal(t, http.StatusOK, from("10.0.0.2"), "buckets are per client")
}

func TestMetrics(t *testing.T) {
	m := metrics.New("test", prometheus.NewRegistry())
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/clinics/:clinicId", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	do(r, httptest.NewRequest(http.MethodGet, "/clinics/"+uuid.NewString(), nil))
	do(r, httptest.NewRequest(http.MethodGet, "/clinics/"+uuid.NewString(), nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/clinics/:clinicId", "404")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPErrorsTotal.WithLabelValues("GET", "/clinics/:clinicId", "4xx")))
}

type fakeSessions struct {
	byToken map[string]*model.SessionWithUser
	err     error
}

func (f *fakeSessions) GetSession(_ context.Context, token string) (*model.SessionWithUser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byToken[token], nil
}

type fakeMembers map[uuid.UUID]uuid.UUID

func (f fakeMembers) IsMember(_ context.Context, userID, clinicID uuid.UUID) (bool, error) {
	return f[userID] == clinicID, nil
}

func TestAuthMiddleware(t *testing.T) {
	user := &model.User{Name: "Ada", Email: "ada@example.com"}
	user.ID = uuid.New()
	clinicID := uuid.New()

	sessions := &fakeSessions{byToken: map[string]*model.SessionWithUser{
		"good": {Session: &model.Session{UserID: user.ID}, User: user},
	}}
	cookie := handler.SessionCookie{Name: "clinic_session"}
	m := NewAuthMiddleware(sessions, fakeMembers{user.ID: clinicID}, cookie)

	r := gin.New()
	r.Use(m.LoadSession())
	r.GET("/optional", func(c *gin.Context) {
		if u := handler.CurrentUser(c); u != nil {
			c.String(http.StatusOK, u.Email)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})
	authed := r.Group("/", m.RequireSession())
	authed.GET("/me", func(c *gin.Context) { c.String(http.StatusOK, handler.CurrentToken(c)) })
	authed.GET("/clinics/:clinicId", m.RequireClinicMember("clinicId"), func(c *gin.Context) { c.Status(http.StatusOK) })

	withCookie := func(path, token string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.AddCookie(&http.Cookie{Name: "clinic_session", Value: token})
		return req
	}

	w := do(r, httptest.NewRequest(http.MethodGet, "/optional", nil))
	assert.Equal(t, "anonymous", w.Body.String())

	w = do(r, withCookie("/optional", "good"))
	assert.Equal(t, "ada@example.com", w.Body.String())

	w = do(r, withCookie("/me", "stale"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	w = do(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "good", w.Body.String())

	w = do(r, withCookie("/clinics/"+clinicID.String(), "good"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, withCookie("/clinics/"+uuid.NewString(), "good"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, withCookie("/clinics/not-a-uuid", "good"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	sessions.err = errors.New("db down")
	w = do(r, withCookie("/optional", "good"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestLoadSessionReissuesRefreshedCookie(t *testing.T) {
	user := &model.User{Email: "ada@example.com"}
	user.ID = uuid.New()
	sessions := &fakeSessions{byToken: map[string]*model.SessionWithUser{
		"sid":   {Session: &model.Session{UserID: user.ID}, User: user, Refreshed: true},
		"still": {Session: &model.Session{UserID: user.ID}, User: user},
	}}
	cookie := handler.SessionCookie{Name: "clinic_session", TTL: 7 * 24 * time.Hour}
	m := NewAuthMiddleware(sessions, nil, cookie)

	r := gin.New()
	r.Use(m.LoadSession())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "clinic_session", Value: "sid"})
	w := do(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	setCookie := w.Header().Get("Set-Cookie")
	assert.Contains(t, setCookie, "clinic_session=sid")
	assert.Contains(t, setCookie, "Max-Age=604800")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "clinic_session", Value: "still"})
	w = do(r, req)
	assert.Empty(t, w.Header().Get("Set-Cookie"), "unchanged expiry keeps the cookie")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer sid")
	w = do(r, req)
	assert.Empty(t, w.Header().Get("Set-Cookie"), "bearer clients get no cookie")
}

func TestLoadSessionDefersLookupErrorsForHTML(t *testing.T) {
	sessions := &fakeSessions{err: errors.New("db down")}
	cookie := handler.SessionCookie{Name: "clinic_session"}
	m := NewAuthMiddleware(sessions, nil, cookie)

	r := gin.New()
	r.Use(m.LoadSession())
	r.GET("/page", func(c *gin.Context) {
		if handler.SessionError(c) != nil {
			c.String(http.StatusInternalServerError, "page error")
			return
		}
		c.Status(http.StatusOK)
	})
	r.GET("/api", m.RejectSessionErrors(), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/page", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")
	req.AddCookie(&http.Cookie{Name: "clinic_session", Value: "good"})
	w := do(r, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "page error", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api", nil)
	req.Header.Set("Accept", "text/html")
	req.AddCookie(&http.Cookie{Name: "clinic_session", Value: "good"})
	w = do(r, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decode(t, w).Message)
}
