package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Byiringiro215/lms/internal/apperr"
	"github.com/Byiringiro215/lms/internal/entities"
)

type fakeProvider struct {
	ext *entities.ExternalIdentity
	err error
}

func (f fakeProvider) Exchange(context.Context, string) (*entities.ExternalIdentity, error) {
	return f.ext, f.err
}

type fakeDirectory struct {
	got entities.ExternalIdentity
}

func (f *fakeDirectory) Upsert(_ context.Context, ext entities.ExternalIdentity) (*entities.User, error) {
	f.got = ext
	return &entities.User{ID: "local-1", ExternalID: ext.ExternalID, Email: ext.Email, Role: ext.Role}, nil
}

type authEvent struct {
	userID, action string
	success        bool
}

type recordingAuditor struct {
	events []authEvent
}

func (a *recordingAuditor) LogAuth(userID, action, _, _ string, success bool) {
	a.events = append(a.events, authEvent{userID, action, success})
}

func TestService_Login(t *testing.T) {
	issuer := newTestIssuer(t)
	dir := &fakeDirectory{}
	auditor := &recordingAuditor{}

	svc := NewService(issuer, dir, nil)
	svc.SetAuditor(auditor)
	svc.RegisterProvider(ProviderProfile, fakeProvider{ext: &entities.ExternalIdentity{
		ExternalID: "mis-1", Email: "a@b.c", Name: "A", Role: entities.RoleTeacher,
	}})

	result, err := svc.Login(context.Background(), ProviderProfile, "token", ClientInfo{IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, "local-1", result.User.ID)
	assert.Equal(t, "mis-1", dir.got.ExternalID)

	identity, err := issuer.Parse(result.Token)
	require.NoError(t, err)
	assert.Equal(t, entities.Identity{UserID: "local-1", Role: entities.RoleTeacher}, identity)

	assert.Equal(t, []authEvent{{"local-1", "login_profile", true}}, auditor.events)

	svc.Logout(identity, ClientInfo{})
	svc.Logout(entities.Identity{}, ClientInfo{})
	assert.Len(t, auditor.events, 2)
}

func TestService_LoginFailures(t *testing.T) {
	auditor := &recordingAuditor{}
	svc := NewService(newTestIssuer(t), &fakeDirectory{}, nil)
	svc.SetAuditor(auditor)
	svc.RegisterProvider(ProviderProfile, fakeProvider{err: apperr.Unauthenticated("nope")})

	_, err := svc.Login(context.Background(), ProviderProfile, "token", ClientInfo{})
	assert.True(t, apperr.IsKind(err, apperr.KindUnauthenticated))
	assert.Equal(t, []authEvent{{"", "login_profile", false}}, auditor.events)

	assert.False(t, svc.HasProvider(ProviderGoogle))
	_, err = svc.Login(context.Background(), ProviderGoogle, "token", ClientInfo{})
	assert.True(t, apperr.IsKind(err, apperr.KindConfiguration))
}
