package http

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Byiringiro215/lms/internal/apperr"
	"github.com/Byiringiro215/lms/internal/auth"
	"github.com/Byiringiro215/lms/internal/entities"
)

// AuthController handles sign-in through the external identity service and
// Google, and sign-out.
type AuthController struct {
	auth           Authenticator
	sessions       *auth.SessionIssuer
	limiter        *auth.RateLimiter
	loginURL       string
	appRedirectURL string
	frontendURL    string
}

func NewAuthController(cfg RouterConfig) *AuthController {
	return &AuthController{
		auth:           cfg.Auth,
		sessions:       cfg.Sessions,
		limiter:        cfg.RateLimiter,
		loginURL:       cfg.LoginURL,
		appRedirectURL: cfg.AppRedirectURL,
		frontendURL:    strings.TrimRight(cfg.FrontendURL, "/"),
	}
}

type loginResponse struct {
	Message   string         `json:"message"`
	User      *entities.User `json:"user"`
	ExpiresAt time.Time      `json:"expiresAt"`
}

type googleLoginRequest struct {
	IDToken string `json:"idToken" binding:"required"`
}

// Login redirects the browser to the identity service.
// GET /auth/login
func (ac *AuthController) Login(c *gin.Context) {
	if ac.loginURL == "" {
		respondAppError(c, apperr.Configuration("Identity login URL is not configured"))
		return
	}
	target, err := url.Parse(ac.loginURL)
	if err != nil {
		respondAppError(c, apperr.Configuration("Identity login URL is invalid"))
		return
	}
	q := target.Query()
	q.Set("redirect", ac.appRedirectURL)
	target.RawQuery = q.Encode()

	c.Redirect(http.StatusFound, target.String())
}

// Callback exchanges the identity service token for a session.
// GET /auth/callback?token=
func (ac *AuthController) Callback(c *gin.Context) {
	result, err := ac.auth.Login(c.Request.Context(), auth.ProviderProfile, c.Query("token"), clientInfo(c))
	if err != nil {
		ac.recordFailure(c, err)
		respondAppError(c, err)
		return
	}
	ac.recordSuccess(c)
	ac.sessions.SetSessionCookie(c, result.Token)

	if wantsJSON(c) {
		c.JSON(http.StatusOK, newLoginResponse(result))
		return
	}
	c.Redirect(http.StatusFound, ac.frontendURL+auth.SanitizeRedirectPath(c.Query("redirect")))
}

// Google signs in with a Google ID token.
// POST /auth/google
func (ac *AuthController) Google(c *gin.Context) {
	if !ac.auth.HasProvider(auth.ProviderGoogle) {
		respondAppError(c, apperr.NotFound("Google sign-in is not enabled"))
		return
	}

	var req googleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := ac.auth.Login(c.Request.Context(), auth.ProviderGoogle, req.IDToken, clientInfo(c))
	if err != nil {
		ac.recordFailure(c, err)
		respondAppError(c, err)
		return
	}
	ac.recordSuccess(c)
	ac.sessions.SetSessionCookie(c, result.Token)
	c.JSON(http.StatusOK, newLoginResponse(result))
}

// Logout clears the session cookie.
// POST /auth/logout
func (ac *AuthController) Logout(c *gin.Context) {
	ac.auth.Logout(identity(c), clientInfo(c))
	ac.sessions.ClearSessionCookie(c)
	respondSuccess(c, "Logged out")
}

// recordFailure counts rejected credentials against the client; service
// outages do not count.
func (ac *AuthController) recordFailure(c *gin.Context, err error) {
	if ac.limiter == nil {
		return
	}
	switch apperr.KindOf(err) {
	case apperr.KindUnauthenticated, apperr.KindValidation:
		ac.limiter.RecordFailure(c.ClientIP())
	}
}

func (ac *AuthController) recordSuccess(c *gin.Context) {
	if ac.limiter != nil {
		ac.limiter.RecordSuccess(c.ClientIP())
	}
}

func newLoginResponse(result *auth.LoginResult) loginResponse {
	return loginResponse{
		Message:   "Login successful",
		User:      result.User,
		ExpiresAt: result.ExpiresAt.UTC(),
	}
}

func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}
