package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
)

// Context keys set by the session middleware.
const (
	ContextSession      = "session"
	ContextSessionToken = "session_token"
	ContextSessionError = "session_error"
)

// SetSession stores a resolved session and the raw token it came from.
func SetSession(c *gin.Context, token string, s *model.SessionWithUser) {
	c.Set(ContextSessionToken, token)
	c.Set(ContextSession, s)
}

// SetSessionError records a failed session lookup that was left for the
// route to report.
func SetSessionError(c *gin.Context, err error) {
	c.Set(ContextSessionError, err)
}

func SessionError(c *gin.Context) error {
	v, ok := c.Get(ContextSessionError)
	if !ok {
		return nil
	}
	err, _ := v.(error)
	return err
}

// CurrentSession returns the request's session, or nil when there is none.
func CurrentSession(c *gin.Context) *model.SessionWithUser {
	v, ok := c.Get(ContextSession)
	if !ok {
		return nil
	}
	s, _ := v.(*model.SessionWithUser)
	return s
}

// CurrentUser is the signed-in user, or nil.
func CurrentUser(c *gin.Context) *model.User {
	if s := CurrentSession(c); s != nil {
		return s.User
	}
	return nil
}

func CurrentToken(c *gin.Context) string {
	return c.GetString(ContextSessionToken)
}

// RequestMeta describes the client for new sessions.
func RequestMeta(c *gin.Context) model.RequestMeta {
	return model.RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// ParamUUID parses a path parameter. On failure it writes a 400 and returns false.
func ParamUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, NewErrorResponse("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// SessionCookie writes and clears the browser session cookie.
type SessionCookie struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

func (sc SessionCookie) Set(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sc.Name, token, int(sc.TTL.Seconds()), "/", "", sc.Secure, true)
}

func (sc SessionCookie) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sc.Name, "", -1, "/", "", sc.Secure, true)
}

// FromCookie reports whether token is the one the request's cookie carries.
func (sc SessionCookie) FromCookie(c *gin.Context, token string) bool {
	v, err := c.Cookie(sc.Name)
	return err == nil && v == token
}

// Token reads the session token from the cookie, falling back to a bearer
// Authorization header.
func (sc SessionCookie) Token(c *gin.Context) string {
	if v, err := c.Cookie(sc.Name); err == nil && v != "" {
		return v
	}
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
