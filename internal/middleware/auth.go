package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
)

type SessionResolver interface {
	GetSession(ctx context.Context, token string) (*model.SessionWithUser, error)
}

type MembershipChecker interface {
	IsMember(ctx context.Context, userID, clinicID uuid.UUID) (bool, error)
}

type AuthMiddleware struct {
	sessions SessionResolver
	members  MembershipChecker
	cookie   handler.SessionCookie
}

func NewAuthMiddleware(sessions SessionResolver, members MembershipChecker, cookie handler.SessionCookie) *AuthMiddleware {
	return &AuthMiddleware{
		sessions: sessions,
		members:  members,
		cookie:   cookie,
	}
}

// LoadSession resolves the cookie or bearer token, when present, and stores
// the session on the context. A lookup failure answers JSON clients with an
// error; browsers asking for HTML get it left on the context so the page
// can render it. A session whose expiry moved has its cookie re-issued.
func (m *AuthMiddleware) LoadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := m.cookie.Token(c)
		if token == "" {
			c.Next()
			return
		}

		session, err := m.sessions.GetSession(c.Request.Context(), token)
		if err != nil {
			if c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) != gin.MIMEHTML {
				handler.RespondError(c, err)
				return
			}
			handler.SetSessionError(c, err)
			c.Next()
			return
		}
		if session != nil {
			handler.SetSession(c, token, session)
			if session.Refreshed && m.cookie.FromCookie(c, token) {
				m.cookie.Set(c, token)
			}
		}
		c.Next()
	}
}

// RejectSessionErrors fails requests whose session lookup LoadSession
// deferred. JSON routes use it; pages render the failure themselves.
func (m *AuthMiddleware) RejectSessionErrors() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := handler.SessionError(c); err != nil {
			handler.RespondError(c, err)
			return
		}
		c.Next()
	}
}

// RequireSession rejects requests LoadSession found no session for.
func (m *AuthMiddleware) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if handler.CurrentSession(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
			return
		}
		c.Next()
	}
}

// RequireClinicMember checks the signed-in user belongs to the clinic named by
// the path parameter. Unknown clinics are indistinguishable from foreign ones.
func (m *AuthMiddleware) RequireClinicMember(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := handler.CurrentUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
			return
		}

		clinicID, ok := handler.ParamUUID(c, param)
		if !ok {
			return
		}

		member, err := m.members.IsMember(c.Request.Context(), user.ID, clinicID)
		if err != nil {
			handler.RespondError(c, err)
			return
		}
		if !member {
			c.AbortWithStatusJSON(http.StatusForbidden, handler.NewErrorResponse("not a member of this clinic"))
			return
		}
		c.Next()
	}
}
