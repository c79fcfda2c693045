package pages

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	authService "github.com/jwalitptl/clinic-api/internal/service/auth"
	clinicService "github.com/jwalitptl/clinic-api/internal/service/clinic"
	dashboardService "github.com/jwalitptl/clinic-api/internal/service/dashboard"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

const cookieName = "clinic_session"

type fakeSessions map[string]*model.SessionWithUser

func (f fakeSessions) GetSession(_ context.Context, token string) (*model.SessionWithUser, error) {
	if token == "unreadable" {
		return nil, errors.New("connection reset")
	}
	return f[token], nil
}

type fakeAuth struct {
	authService.AuthServicer
	signedOut []string
}

func (f *fakeAuth) SignInEmail(_ context.Context, req *model.SignInRequest, _ model.RequestMeta) (*model.AuthResult, error) {
	if req.Password != "correct horse" {
		return nil, authService.ErrInvalidCredentials
	}
	return &model.AuthResult{Token: "new-token"}, nil
}

func (f *fakeAuth) SignOut(_ context.Context, token string) error {
	f.signedOut = append(f.signedOut, token)
	return nil
}

type fakeClinics struct {
	clinicService.ClinicServicer
	created []*model.CreateClinicRequest
}

func (f *fakeClinics) CreateClinic(_ context.Context, _ uuid.UUID, req *model.CreateClinicRequest) (*model.Clinic, error) {
	f.created = append(f.created, req)
	return &model.Clinic{Name: req.Name}, nil
}

type fakeMemberships struct {
	repository.MembershipRepository
	rows []*model.UserToClinic
	err  error
}

func (f *fakeMemberships) ListByUser(_ context.Context, userID uuid.UUID) ([]*model.UserToClinic, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*model.UserToClinic
	for _, m := range f.rows {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeClinicRepo struct {
	repository.ClinicRepository
	clinics []*model.Clinic
}

func (f *fakeClinicRepo) ListByUser(context.Context, uuid.UUID) ([]*model.Clinic, error) {
	return f.clinics, nil
}

type fixture struct {
	router      *gin.Engine
	user        *model.User
	memberships *fakeMemberships
	clinicRepo  *fakeClinicRepo
	auth        *fakeAuth
	clinics     *fakeClinics
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, middleware.RegisterValidators())

	user := &model.User{Name: "Ada Lovelace", Email: "ada@example.com"}
	user.ID = uuid.New()

	f := &fixture{
		user:        user,
		memberships: &fakeMemberships{},
		clinicRepo:  &fakeClinicRepo{},
		auth:        &fakeAuth{},
		clinics:     &fakeClinics{},
	}

	cookie := handler.SessionCookie{Name: cookieName, TTL: time.Hour}
	sessions := fakeSessions{"valid": {Session: &model.Session{UserID: user.ID}, User: user}}

	h, err := NewHandler(f.auth, f.clinics, dashboardService.NewService(f.memberships, f.clinicRepo), cookie)
	require.NoError(t, err)

	r := gin.New()
	r.Use(middleware.ErrorHandler(), middleware.NewAuthMiddleware(sessions, nil, cookie).LoadSession())
	h.RegisterRoutes(r)
	f.router = r
	return f
}

func (f *fixture) get(path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) post(path, token string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) join(clinicIDs ...uuid.UUID) {
	for i, id := range clinicIDs {
		f.memberships.rows = append(f.memberships.rows, &model.UserToClinic{
			UserID:    f.user.ID,
			ClinicID:  id,
			CreatedAt: time.Date(2024, 1, 1, 0, i, 0, 0, time.UTC),
		})
	}
}

func TestDashboardWithoutSessionRedirectsToAuthentication(t *testing.T) {
	f := setup(t)

	w := f.get("/dashboard", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/authentication", w.Header().Get("Location"))

	// an unknown token counts as no session
	w = f.get("/dashboard", "expired")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/authentication", w.Header().Get("Location"))
}

func TestDashboardWithoutClinicRedirectsToClinicForm(t *testing.T) {
	f := setup(t)

	w := f.get("/dashboard", "valid")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/clinic-form", w.Header().Get("Location"))
}

func TestDashboardShowsUserDetails(t *testing.T) {
	f := setup(t)
	clinicID := uuid.New()
	f.join(clinicID)
	f.clinicRepo.clinics = []*model.Clinic{{Name: "Harbor Clinic"}}

	w := f.get("/dashboard", "valid")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `<dd id="user-name">Ada Lovelace</dd>`)
	assert.Contains(t, body, `<dd id="user-email">ada@example.com</dd>`)
	assert.Contains(t, body, clinicID.String())
	assert.Contains(t, body, "Harbor Clinic")
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestDashboardListsEachClinicOnce(t *testing.T) {
	f := setup(t)
	first, second := uuid.New(), uuid.New()
	f.join(first, second)

	w := f.get("/dashboard", "valid")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Equal(t, 1, strings.Count(body, first.String()))
	assert.Equal(t, 1, strings.Count(body, second.String()))
	assert.Less(t, strings.Index(body, first.String()), strings.Index(body, second.String()))
}

func TestDashboardLookupFailure(t *testing.T) {
	f := setup(t)
	f.memberships.err = errors.New("connection reset")

	w := f.get("/dashboard", "valid")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Something went wrong")
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestSessionLookupFailureRendersErrorPage(t *testing.T) {
	f := setup(t)

	for _, path := range []string{"/dashboard", "/clinic-form", "/authentication"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")
		req.AddCookie(&http.Cookie{Name: cookieName, Value: "unreadable"})
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code, path)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html", path)
		assert.Contains(t, w.Body.String(), "Something went wrong", path)
		assert.NotContains(t, w.Body.String(), "connection reset", path)
	}
}

func TestSignInForm(t *testing.T) {
	f := setup(t)

	w := f.post("/authentication/sign-in", "", url.Values{"email": {"ada@example.com"}, "password": {"nope"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid email or password")
	assert.Contains(t, w.Body.String(), `value="ada@example.com"`)

	w = f.post("/authentication/sign-in", "", url.Values{"email": {"ada@example.com"}, "password": {"correct horse"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
	assert.Contains(t, w.Header().Get("Set-Cookie"), cookieName+"=new-token")
	assert.Contains(t, w.Header().Get("Set-Cookie"), "HttpOnly")

	w = f.post("/authentication/sign-in", "", url.Values{"email": {"not-an-email"}, "password": {"x"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "email must be a valid email address")
}

func TestAuthenticationPage(t *testing.T) {
	f := setup(t)

	w := f.get("/authentication", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/authentication/sign-in"`)

	w = f.get("/authentication", "valid")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))

	w = f.get("/authentication?reset_token=abc", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/authentication/reset-password"`)
	assert.Contains(t, w.Body.String(), `value="abc"`)
}

func TestSignOut(t *testing.T) {
	f := setup(t)

	w := f.post("/sign-out", "valid", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/authentication", w.Header().Get("Location"))
	assert.Equal(t, []string{"valid"}, f.auth.signedOut)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestClinicForm(t *testing.T) {
	f := setup(t)

	w := f.get("/clinic-form", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/authentication", w.Header().Get("Location"))

	w = f.get("/clinic-form", "valid")
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.post("/clinic-form", "valid", url.Values{"name": {""}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.clinics.created)

	w = f.post("/clinic-form", "valid", url.Values{"name": {"Harbor Clinic"}, "address": {"1 Pier Rd"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
	require.Len(t, f.clinics.created, 1)
	assert.Equal(t, "Harbor Clinic", f.clinics.created[0].Name)
}

func TestFailureKeepsAppErrorMessage(t *testing.T) {
	status, message := handler.ErrorStatus(apperrors.Conflict("email is already registered", nil))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "email is already registered", message)
}
