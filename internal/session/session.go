// Package session owns the persisted authentication state of the client.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/tecem/srma/internal/domain"
	"github.com/tecem/srma/internal/store"
)

// Manager is the single writer of the session keys. Views receive it
// explicitly instead of reaching into storage.
type Manager struct {
	kv store.KV
	mu sync.Mutex
}

// NewManager creates a session manager over the given storage.
func NewManager(kv store.KV) *Manager {
	return &Manager{kv: kv}
}

// Load reads the current session. A missing role loads as guest.
func (m *Manager) Load(ctx context.Context) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(ctx)
}

func (m *Manager) load(ctx context.Context) (domain.Session, error) {
	token, _, err := m.kv.Get(ctx, domain.KeyUserToken)
	if err != nil {
		return domain.Session{}, fmt.Errorf("load token: %w", err)
	}
	role, _, err := m.kv.Get(ctx, domain.KeyUserRole)
	if err != nil {
		return domain.Session{}, fmt.Errorf("load role: %w", err)
	}
	return domain.Session{Token: token, Role: domain.ParseRole(role)}, nil
}

// Token returns the bearer token, or "" when logged out.
func (m *Manager) Token(ctx context.Context) (string, error) {
	s, err := m.Load(ctx)
	if err != nil {
		return "", err
	}
	return s.Token, nil
}

// Save persists a freshly authenticated session.
func (m *Manager) Save(ctx context.Context, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.kv.Set(ctx, domain.KeyUserToken, s.Token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	if err := m.kv.Set(ctx, domain.KeyUserRole, s.Role.String()); err != nil {
		return fmt.Errorf("save role: %w", err)
	}
	return nil
}

// SetRole overwrites the stored role and reports whether it changed.
func (m *Manager) SetRole(ctx context.Context, role domain.Role) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.load(ctx)
	if err != nil {
		return false, err
	}
	if current.Role == role {
		return false, nil
	}
	if err := m.kv.Set(ctx, domain.KeyUserRole, role.String()); err != nil {
		return false, fmt.Errorf("save role: %w", err)
	}
	return true, nil
}

// Clear removes the user and admin session keys together.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.kv.Delete(ctx, domain.KeyUserToken, domain.KeyUserRole, domain.KeyAdminRole); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// IsAdmin reports whether the admin gate has been passed.
func (m *Manager) IsAdmin(ctx context.Context) (bool, error) {
	v, _, err := m.kv.Get(ctx, domain.KeyAdminRole)
	if err != nil {
		return false, fmt.Errorf("load admin role: %w", err)
	}
	return v == domain.AdminFullAccess, nil
}

// SetAdmin grants or revokes the admin gate.
func (m *Manager) SetAdmin(ctx context.Context, granted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if granted {
		err = m.kv.Set(ctx, domain.KeyAdminRole, domain.AdminFullAccess)
	} else {
		err = m.kv.Delete(ctx, domain.KeyAdminRole)
	}
	if err != nil {
		return fmt.Errorf("update admin role: %w", err)
	}
	return nil
}
