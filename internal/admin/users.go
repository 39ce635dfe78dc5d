// Package admin implements the user manager and role assignment panels.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tecem/srma/internal/backend"
	"github.com/tecem/srma/internal/domain"
)

// ErrUnassignableRole is returned when assigning a role the backend has no code for.
var ErrUnassignableRole = errors.New("role cannot be assigned")

// ErrMissingID is returned for operations on an empty user id.
var ErrMissingID = errors.New("user id is required")

// Backend is the user-management half of the backend client.
type Backend interface {
	ListUsers(ctx context.Context, token string) ([]backend.UserRecord, error)
	UpdateUserRole(ctx context.Context, token, userID, roleCode string) error
	UpdateUserStatus(ctx context.Context, token, userID, statusCode string) error
	DeleteUser(ctx context.Context, token, userID string) error
}

// TokenSource provides the bearer token, if any, sent with admin calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Manager runs admin operations. Failures are returned for an alert-style notice.
type Manager struct {
	backend Backend
	tokens  TokenSource
	logger  *slog.Logger
}

// NewManager creates an admin manager. tokens may be nil.
func NewManager(b Backend, tokens TokenSource, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{backend: b, tokens: tokens, logger: logger}
}

// List returns every user, mapping backend role and status codes.
func (m *Manager) List(ctx context.Context) ([]domain.ManagedUser, error) {
	token, err := m.token(ctx)
	if err != nil {
		return nil, err
	}
	records, err := m.backend.ListUsers(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]domain.ManagedUser, 0, len(records))
	for _, r := range records {
		users = append(users, domain.ManagedUser{
			ID:        string(r.ID),
			Email:     r.Email,
			Role:      domain.RoleFromCode(string(r.Rol.Code)),
			RoleName:  r.Rol.Name,
			Active:    domain.StatusFromCode(r.Status),
			CreatedAt: r.RegisteredAt,
		})
	}
	return users, nil
}

// ToggleStatus flips a user's status and returns the new active flag.
func (m *Manager) ToggleStatus(ctx context.Context, userID string, currentlyActive bool) (bool, error) {
	if userID == "" {
		return currentlyActive, ErrMissingID
	}
	token, err := m.token(ctx)
	if err != nil {
		return currentlyActive, err
	}
	next := !currentlyActive
	if err := m.backend.UpdateUserStatus(ctx, token, userID, domain.StatusCode(next)); err != nil {
		return currentlyActive, fmt.Errorf("update status of %s: %w", userID, err)
	}
	m.logger.Info("user status updated", "user_id", userID, "status", domain.StatusCode(next))
	return next, nil
}

// AssignRole grants a backend role to a user. Guest cannot be assigned.
func (m *Manager) AssignRole(ctx context.Context, userID string, role domain.Role) error {
	if userID == "" {
		return ErrMissingID
	}
	code, ok := role.Code()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnassignableRole, role)
	}
	token, err := m.token(ctx)
	if err != nil {
		return err
	}
	if err := m.backend.UpdateUserRole(ctx, token, userID, code); err != nil {
		return fmt.Errorf("assign role to %s: %w", userID, err)
	}
	m.logger.Info("user role assigned", "user_id", userID, "role", role)
	return nil
}

// Delete removes a user.
func (m *Manager) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrMissingID
	}
	token, err := m.token(ctx)
	if err != nil {
		return err
	}
	if err := m.backend.DeleteUser(ctx, token, userID); err != nil {
		return fmt.Errorf("delete user %s: %w", userID, err)
	}
	m.logger.Info("user deleted", "user_id", userID)
	return nil
}

func (m *Manager) token(ctx context.Context) (string, error) {
	if m.tokens == nil {
		return "", nil
	}
	return m.tokens.Token(ctx)
}
