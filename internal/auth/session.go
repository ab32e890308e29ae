package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"github.com/Byiringiro215/lms/internal/apperr"
	"github.com/Byiringiro215/lms/internal/config"
	"github.com/Byiringiro215/lms/internal/entities"
)

const defaultTokenExpiry = 24 * time.Hour

// SessionClaims is the payload of a session token.
type SessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// SessionIssuer signs and validates session tokens.
type SessionIssuer struct {
	secret        []byte
	expiry        time.Duration
	secureCookies bool
	now           func() time.Time
}

// NewSessionIssuer fails when no signing secret is configured.
func NewSessionIssuer(cfg config.Auth) (*SessionIssuer, error) {
	if cfg.JWTSecret == "" {
		return nil, apperr.Configuration("JWT_SECRET is required")
	}
	expiry := cfg.TokenExpiry
	if expiry <= 0 {
		expiry = defaultTokenExpiry
	}
	return &SessionIssuer{
		secret:        []byte(cfg.JWTSecret),
		expiry:        expiry,
		secureCookies: cfg.SecureCookies,
		now:           time.Now,
	}, nil
}

func (s *SessionIssuer) Expiry() time.Duration {
	return s.expiry
}

// Issue signs a token for user. It returns the token and its expiry time.
func (s *SessionIssuer) Issue(user *entities.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.expiry)

	claims := SessionClaims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, expiresAt, nil
}

// Parse validates a token and returns the identity it carries.
func (s *SessionIssuer) Parse(token string) (entities.Identity, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil || !parsed.Valid {
		return entities.Identity{}, apperr.Unauthenticated("Invalid session token")
	}

	if claims.ExpiresAt == nil || !s.now().Before(claims.ExpiresAt.Time) {
		return entities.Identity{}, apperr.Unauthenticated("Session expired")
	}
	if claims.Subject == "" {
		return entities.Identity{}, apperr.Unauthenticated("Invalid session token")
	}

	role, err := entities.ParseRole(claims.Role)
	if err != nil {
		return entities.Identity{}, apperr.Unauthenticated("Invalid session token")
	}
	return entities.Identity{UserID: claims.Subject, Role: role}, nil
}

// SetSessionCookie writes the session cookie.
func (s *SessionIssuer) SetSessionCookie(c *gin.Context, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     config.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.expiry.Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearSessionCookie expires the session cookie.
func (s *SessionIssuer) ClearSessionCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     config.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}
