package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tecem/srma/internal/backend"
	"github.com/tecem/srma/internal/domain"
	"github.com/tecem/srma/internal/nav"
	"github.com/tecem/srma/internal/session"
	"github.com/tecem/srma/internal/store"
)

type fakeExchanger struct {
	resp *backend.LoginResponse
	err  error
	got  string
}

func (f *fakeExchanger) GoogleToken(_ context.Context, googleToken string) (*backend.LoginResponse, error) {
	f.got = googleToken
	return f.resp, f.err
}

func newService(t *testing.T, ex TokenExchanger) (*Service, *session.Manager, *nav.Recorder) {
	t.Helper()
	sm := session.NewManager(store.NewMemory())
	rec := nav.NewRecorder(nav.Login)
	return NewService(sm, ex, rec, AdminCredentials{User: "admin", Password: "adminpass"}, nil), sm, rec
}

func TestLoginWithGoogle(t *testing.T) {
	ex := &fakeExchanger{resp: &backend.LoginResponse{Token: "app-token", Role: "1"}}
	svc, sm, rec := newService(t, ex)
	ctx := context.Background()

	sess, err := svc.LoginWithGoogle(ctx, " google-jwt ")
	require.NoError(t, err)
	assert.Equal(t, "google-jwt", ex.got)
	assert.Equal(t, domain.Session{Token: "app-token", Role: domain.RoleStandard}, sess)

	stored, err := sm.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sess, stored)
	assert.Equal(t, nav.Home, rec.Current())
}

func TestLoginRejectsUnmappableRole(t *testing.T) {
	for name, resp := range map[string]*backend.LoginResponse{
		"no token":     {Role: "2"},
		"unknown role": {Token: "tok", Role: "7"},
		"no role":      {Token: "tok"},
	} {
		t.Run(name, func(t *testing.T) {
			svc, sm, rec := newService(t, &fakeExchanger{resp: resp})
			_, err := svc.LoginWithGoogle(context.Background(), "cred")
			assert.ErrorIs(t, err, ErrInvalidLogin)

			s, _ := sm.Load(context.Background())
			assert.False(t, s.Authenticated())
			assert.Empty(t, rec.History())
		})
	}
}

func TestLoginBackendFailure(t *testing.T) {
	ex := &fakeExchanger{err: &backend.APIError{Op: "google token exchange", Status: 401, Message: "bad credential"}}
	svc, _, _ := newService(t, ex)

	_, err := svc.LoginWithGoogle(context.Background(), "cred")
	require.Error(t, err)
	assert.True(t, backend.IsAuthError(err))
}

func TestEnterLoginAndLogoutClearSession(t *testing.T) {
	svc, sm, rec := newService(t, nil)
	ctx := context.Background()

	require.NoError(t, sm.Save(ctx, domain.Session{Token: "tok", Role: domain.RoleConsultant}))
	require.NoError(t, svc.EnterLogin(ctx))
	s, _ := sm.Load(ctx)
	assert.False(t, s.Authenticated())

	require.NoError(t, sm.Save(ctx, domain.Session{Token: "tok", Role: domain.RoleConsultant}))
	require.NoError(t, svc.Logout(ctx))
	s, _ = sm.Load(ctx)
	assert.Equal(t, domain.Session{Role: domain.RoleGuest}, s)
	assert.Equal(t, nav.Login, rec.Current())
}

func TestAdminGate(t *testing.T) {
	svc, sm, rec := newService(t, nil)
	ctx := context.Background()

	assert.ErrorIs(t, svc.RequireAdmin(ctx), ErrAdminRequired)
	assert.Equal(t, nav.AdminLogin, rec.Current())

	assert.ErrorIs(t, svc.AdminLogin(ctx, "admin", "wrong"), ErrBadCredentials)
	require.NoError(t, svc.AdminLogin(ctx, "admin", "adminpass"))
	assert.Equal(t, nav.UserManager, rec.Current())
	require.NoError(t, svc.RequireAdmin(ctx))

	ok, err := sm.IsAdmin(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, svc.AdminLogout(ctx))
	assert.Equal(t, nav.AdminLogin, rec.Current())
	assert.ErrorIs(t, svc.RequireAdmin(ctx), ErrAdminRequired)
}

func TestAdminDisabledWithoutCredentials(t *testing.T) {
	sm := session.NewManager(store.NewMemory())
	svc := NewService(sm, nil, nav.NewRecorder(nav.AdminLogin), AdminCredentials{}, nil)
	assert.ErrorIs(t, svc.AdminLogin(context.Background(), "", ""), ErrAdminDisabled)
}
