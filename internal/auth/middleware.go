package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Byiringiro215/lms/internal/apperr"
	"github.com/Byiringiro215/lms/internal/config"
	"github.com/Byiringiro215/lms/internal/entities"
)

// Context keys for identity data
const (
	ContextKeyUserID   = "auth_user_id"
	ContextKeyRole     = "auth_role"
	ContextKeyAuthType = "auth_type" // "cookie", "bearer", or "none"
	ContextKeyAuthErr  = "auth_error"
)

// AuthType indicates how the caller was authenticated
type AuthType string

const (
	AuthTypeNone   AuthType = "none"
	AuthTypeCookie AuthType = "cookie"
	AuthTypeBearer AuthType = "bearer"
)

// Middleware resolves the session token on each request.
type Middleware struct {
	issuer *SessionIssuer
}

func NewMiddleware(issuer *SessionIssuer) *Middleware {
	return &Middleware{issuer: issuer}
}

// Handler puts the caller's identity into the context when a valid session
// token is present. Requests without one pass through anonymously so public
// routes keep working; protected routes add RequireAuth.
//
// An invalid or expired token is dropped (and its cookie cleared); the
// reason is kept for RequireAuth to report.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, authType := extractToken(c)
		if token == "" {
			c.Set(ContextKeyAuthType, AuthTypeNone)
			c.Next()
			return
		}

		identity, err := m.issuer.Parse(token)
		if err != nil {
			if authType == AuthTypeCookie {
				m.issuer.ClearSessionCookie(c)
			}
			c.Set(ContextKeyAuthType, AuthTypeNone)
			c.Set(ContextKeyAuthErr, err)
			c.Next()
			return
		}

		c.Set(ContextKeyUserID, identity.UserID)
		c.Set(ContextKeyRole, identity.Role)
		c.Set(ContextKeyAuthType, authType)
		c.Next()
	}
}

// extractToken prefers a Bearer header (API clients) over the cookie.
func extractToken(c *gin.Context) (string, AuthType) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") && strings.TrimSpace(parts[1]) != "" {
			return strings.TrimSpace(parts[1]), AuthTypeBearer
		}
	}
	if cookie, err := c.Cookie(config.SessionCookieName); err == nil && cookie != "" {
		return cookie, AuthTypeCookie
	}
	return "", AuthTypeNone
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetIdentity(c); !ok {
			abortWithError(c, http.StatusUnauthorized, authError(c))
			return
		}
		c.Next()
	}
}

// RequireRole rejects callers outside roles with 403, and anonymous callers
// with 401.
func RequireRole(roles ...entities.Role) gin.HandlerFunc {
	roleSet := make(map[entities.Role]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}

	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, authError(c))
			return
		}
		if !roleSet[identity.Role] {
			abortWithError(c, http.StatusForbidden, apperr.Authorization("Insufficient permissions"))
			return
		}
		c.Next()
	}
}

// RequirePrivileged allows librarians and admins.
func RequirePrivileged() gin.HandlerFunc {
	return RequireRole(entities.RoleLibrarian, entities.RoleAdmin)
}

func authError(c *gin.Context) error {
	if v, exists := c.Get(ContextKeyAuthErr); exists {
		if err, ok := v.(error); ok {
			return err
		}
	}
	return apperr.Unauthenticated("Authentication required")
}

func abortWithError(c *gin.Context, status int, err error) {
	message := err.Error()
	if appErr, ok := err.(*apperr.Error); ok {
		message = appErr.Message
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": message,
		"code":  string(apperr.KindOf(err)),
	})
}

// GetIdentity returns the authenticated caller, if any.
func GetIdentity(c *gin.Context) (entities.Identity, bool) {
	id := GetUserID(c)
	if id == "" {
		return entities.Identity{}, false
	}
	return entities.Identity{UserID: id, Role: GetUserRole(c)}, true
}

// GetUserID retrieves the authenticated user's ID from the context.
func GetUserID(c *gin.Context) string {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(string); ok {
			return userID
		}
	}
	return ""
}

func GetUserRole(c *gin.Context) entities.Role {
	if r, exists := c.Get(ContextKeyRole); exists {
		if role, ok := r.(entities.Role); ok {
			return role
		}
	}
	return ""
}

func GetAuthType(c *gin.Context) AuthType {
	if t, exists := c.Get(ContextKeyAuthType); exists {
		if authType, ok := t.(AuthType); ok {
			return authType
		}
	}
	return AuthTypeNone
}
