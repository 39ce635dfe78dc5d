package roles

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tecem/srma/internal/backend"
	"github.com/tecem/srma/internal/domain"
	"github.com/tecem/srma/internal/nav"
	"github.com/tecem/srma/internal/session"
	"github.com/tecem/srma/internal/store"
)

type fakeProfile struct {
	mu     sync.Mutex
	code   string
	err    error
	calls  int
	tokens []string
	block  chan struct{}
}

func (f *fakeProfile) Profile(ctx context.Context, token string) (*backend.Profile, error) {
	f.mu.Lock()
	f.calls++
	f.tokens = append(f.tokens, token)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &backend.Profile{RoleCode: f.code}, nil
}

func (f *fakeProfile) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func setup(t *testing.T, s domain.Session, p *fakeProfile) (*Resolver, *session.Manager, *store.MemoryStore, *nav.Recorder) {
	t.Helper()
	kv := store.NewMemory()
	sm := session.NewManager(kv)
	if s.Authenticated() {
		require.NoError(t, sm.Save(context.Background(), s))
	}
	rec := nav.NewRecorder(nav.Home)
	return NewResolver(sm, p, rec, nil), sm, kv, rec
}

func TestResolveWithoutTokenRedirects(t *testing.T) {
	p := &fakeProfile{code: "2"}
	r, _, _, rec := setup(t, domain.Session{}, p)

	res, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Redirected)
	assert.Equal(t, nav.Login, rec.Current())
	assert.Zero(t, p.callCount(), "no network call without a token")
}

func TestResolveUpgradesRole(t *testing.T) {
	p := &fakeProfile{code: "2"}
	r, sm, _, rec := setup(t, domain.Session{Token: "tok", Role: domain.RoleStandard}, p)

	res, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RoleProfessional, res.Role)
	assert.True(t, res.Changed)
	assert.Equal(t, nav.Home, rec.Current())
	assert.Equal(t, []string{"tok"}, p.tokens)

	stored, err := sm.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RoleProfessional, stored.Role)
}

func TestResolveUnchangedRole(t *testing.T) {
	p := &fakeProfile{code: "3"}
	r, _, _, _ := setup(t, domain.Session{Token: "tok", Role: domain.RoleConsultant}, p)

	res, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RoleConsultant, res.Role)
	assert.False(t, res.Changed)
}

func TestResolveUnknownCodeIsGuest(t *testing.T) {
	p := &fakeProfile{code: "9"}
	r, _, _, _ := setup(t, domain.Session{Token: "tok", Role: domain.RoleStandard}, p)

	res, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.RoleGuest, res.Role)
	assert.True(t, res.Changed)
}

func TestResolveForbiddenClearsSession(t *testing.T) {
	p := &fakeProfile{err: &backend.APIError{Op: "profile", Status: 403, Message: "Forbidden"}}
	r, _, kv, rec := setup(t, domain.Session{Token: "tok", Role: domain.RoleProfessional}, p)

	res, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Redirected)
	assert.Equal(t, nav.Login, rec.Current())

	for _, key := range []string{domain.KeyUserToken, domain.KeyUserRole} {
		_, ok, _ := kv.Get(context.Background(), key)
		assert.False(t, ok, key)
	}
}

func TestResolveServerErrorKeepsStoredRole(t *testing.T) {
	cases := []error{
		&backend.APIError{Op: "profile", Status: 500, Message: "boom"},
		errors.New("dial tcp: connection refused"),
		backend.ErrRoleUnrecognized,
	}
	for _, cause := range cases {
		p := &fakeProfile{err: cause}
		r, sm, _, rec := setup(t, domain.Session{Token: "tok", Role: domain.RoleProfessional}, p)

		res, err := r.Resolve(context.Background())
		require.NoError(t, err)
		assert.True(t, res.Stale)
		assert.ErrorIs(t, res.Err, cause)
		assert.Equal(t, domain.RoleProfessional, res.Role)
		assert.Equal(t, nav.Home, rec.Current())

		s, _ := sm.Load(context.Background())
		assert.Equal(t, "tok", s.Token)
	}
}

func TestResolveAsyncDeliversResult(t *testing.T) {
	p := &fakeProfile{code: "1"}
	r, _, _, _ := setup(t, domain.Session{Token: "tok", Role: domain.RoleGuest}, p)

	done := make(chan Result, 1)
	r.ResolveAsync(context.Background(), func(res Result, err error) {
		assert.NoError(t, err)
		done <- res
	})

	select {
	case res := <-done:
		assert.Equal(t, domain.RoleStandard, res.Role)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for async resolution")
	}
}

func TestResolveAsyncDropsLateResult(t *testing.T) {
	p := &fakeProfile{code: "2", block: make(chan struct{})}
	r, _, _, _ := setup(t, domain.Session{Token: "tok", Role: domain.RoleStandard}, p)

	ctx, cancel := context.WithCancel(context.Background())
	called := make(chan struct{}, 1)
	r.ResolveAsync(ctx, func(Result, error) { called <- struct{}{} })

	require.Eventually(t, func() bool { return p.callCount() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-called:
		t.Fatal("callback ran after teardown")
	case <-time.After(100 * time.Millisecond):
	}
}
