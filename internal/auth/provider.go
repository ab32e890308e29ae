package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	googleAuthIDTokenVerifier "github.com/futurenda/google-auth-id-token-verifier"
	jsoniter "github.com/json-iterator/go"

	"github.com/Byiringiro215/lms/internal/apperr"
	"github.com/Byiringiro215/lms/internal/entities"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxProfileBody = 1 << 20

// IdentityProvider exchanges an opaque external token for the identity the
// provider vouches for.
type IdentityProvider interface {
	Exchange(ctx context.Context, token string) (*entities.ExternalIdentity, error)
}

// ProfileProvider calls an external profile endpoint with the token as a
// bearer credential.
type ProfileProvider struct {
	httpClient *http.Client
	profileURL string
}

func NewProfileProvider(profileURL string) *ProfileProvider {
	return &ProfileProvider{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		profileURL: profileURL,
	}
}

type profileResponse struct {
	Data struct {
		User struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
		Roles []struct {
			RoleName string `json:"roleName"`
		} `json:"roles"`
		Person struct {
			FirstName string `json:"firstName"`
			LastName  string `json:"lastName"`
		} `json:"person"`
	} `json:"data"`
}

func (p *ProfileProvider) Exchange(ctx context.Context, token string) (*entities.ExternalIdentity, error) {
	if p.profileURL == "" {
		return nil, apperr.Configuration("IDENTITY_PROFILE_URL is not configured")
	}
	if strings.TrimSpace(token) == "" {
		return nil, apperr.Validation("No token provided")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Service(err, "Identity provider unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Unauthenticated("Failed to fetch profile: status %d", resp.StatusCode)
	}

	var profile profileResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxProfileBody)).Decode(&profile); err != nil {
		return nil, apperr.Unauthenticated("Failed to fetch profile: malformed response")
	}

	data := profile.Data
	name := strings.TrimSpace(data.Person.FirstName + " " + data.Person.LastName)
	if data.User.ID == "" || data.User.Email == "" || name == "" || len(data.Roles) == 0 {
		return nil, apperr.Validation("Incomplete profile data from identity provider")
	}

	return &entities.ExternalIdentity{
		ExternalID: data.User.ID,
		Email:      data.User.Email,
		Name:       name,
		Role:       providerRole(data.Roles[0].RoleName),
	}, nil
}

// providerRole maps a provider role name onto a Role. Names that are not
// roles of this system get the least privileged role.
func providerRole(name string) entities.Role {
	role, err := entities.ParseRole(name)
	if err != nil {
		return entities.RoleStudent
	}
	return role
}

type idTokenVerifier interface {
	VerifyIDToken(idToken string, audience []string) error
}

// GoogleProvider exchanges Google ID tokens issued for clientID.
type GoogleProvider struct {
	clientID string
	verifier idTokenVerifier
	decode   func(idToken string) (*googleAuthIDTokenVerifier.ClaimSet, error)
}

func NewGoogleProvider(clientID string) *GoogleProvider {
	return &GoogleProvider{
		clientID: clientID,
		verifier: &googleAuthIDTokenVerifier.Verifier{},
		decode:   googleAuthIDTokenVerifier.Decode,
	}
}

func (p *GoogleProvider) Exchange(_ context.Context, idToken string) (*entities.ExternalIdentity, error) {
	if p.clientID == "" {
		return nil, apperr.Configuration("GOOGLE_CLIENT_ID is not configured")
	}
	if strings.TrimSpace(idToken) == "" {
		return nil, apperr.Validation("idToken is required")
	}

	if err := p.verifier.VerifyIDToken(idToken, []string{p.clientID}); err != nil {
		return nil, apperr.Unauthenticated("Invalid Google ID token")
	}

	claims, err := p.decode(idToken)
	if err != nil {
		return nil, apperr.Unauthenticated("Invalid Google ID token")
	}
	if claims.Sub == "" || claims.Email == "" {
		return nil, apperr.Validation("Google ID token has no subject or email")
	}

	name := claims.Name
	if name == "" {
		name = claims.Email
	}
	return &entities.ExternalIdentity{
		ExternalID: "google:" + claims.Sub,
		Email:      claims.Email,
		Name:       name,
		Role:       entities.RoleStudent,
	}, nil
}
