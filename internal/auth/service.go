package auth

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Byiringiro215/lms/internal/apperr"
	"github.com/Byiringiro215/lms/internal/entities"
)

// Provider names accepted by Service.Login.
const (
	ProviderProfile = "profile"
	ProviderGoogle  = "google"
)

// UserDirectory creates or refreshes the local record of an external user.
type UserDirectory interface {
	Upsert(ctx context.Context, ext entities.ExternalIdentity) (*entities.User, error)
}

// Auditor records sign-in activity.
type Auditor interface {
	LogAuth(userID, action, ipAddr, userAgent string, success bool)
}

// ClientInfo identifies the caller's client for auditing.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// LoginResult is a freshly issued session.
type LoginResult struct {
	User      *entities.User
	Token     string
	ExpiresAt time.Time
}

// Service turns external tokens into sessions.
type Service struct {
	issuer    *SessionIssuer
	users     UserDirectory
	providers map[string]IdentityProvider
	auditor   Auditor
	log       *zap.Logger
}

func NewService(issuer *SessionIssuer, users UserDirectory, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		issuer:    issuer,
		users:     users,
		providers: make(map[string]IdentityProvider),
		auditor:   nopAuditor{},
		log:       log,
	}
}

func (s *Service) SetAuditor(a Auditor) {
	if a != nil {
		s.auditor = a
	}
}

// RegisterProvider makes a provider available under name.
func (s *Service) RegisterProvider(name string, p IdentityProvider) {
	s.providers[name] = p
}

func (s *Service) HasProvider(name string) bool {
	_, ok := s.providers[name]
	return ok
}

// Login exchanges token with the named provider, records the user and issues
// a session token.
func (s *Service) Login(ctx context.Context, provider, token string, client ClientInfo) (*LoginResult, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, apperr.Configuration("Sign-in with %s is not configured", provider)
	}

	ext, err := p.Exchange(ctx, token)
	if err != nil {
		s.log.Info("Identity exchange failed",
			zap.String("provider", provider),
			zap.String("ip", client.IP),
			zap.Error(err),
		)
		s.auditor.LogAuth("", "login_"+provider, client.IP, client.UserAgent, false)
		return nil, err
	}

	user, err := s.users.Upsert(ctx, *ext)
	if err != nil {
		s.auditor.LogAuth("", "login_"+provider, client.IP, client.UserAgent, false)
		return nil, err
	}

	signed, expiresAt, err := s.issuer.Issue(user)
	if err != nil {
		return nil, apperr.Service(err, "Failed to issue session")
	}

	s.auditor.LogAuth(user.ID, "login_"+provider, client.IP, client.UserAgent, true)
	s.log.Info("User signed in",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("provider", provider),
	)

	return &LoginResult{User: user, Token: signed, ExpiresAt: expiresAt}, nil
}

// Logout only records the event; session tokens are stateless.
func (s *Service) Logout(identity entities.Identity, client ClientInfo) {
	if identity.UserID == "" {
		return
	}
	s.auditor.LogAuth(identity.UserID, "logout", client.IP, client.UserAgent, true)
}

type nopAuditor struct{}

func (nopAuditor) LogAuth(string, string, string, string, bool) {}
