// Package auth implements the login, logout and admin gate flows.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tecem/srma/internal/backend"
	"github.com/tecem/srma/internal/domain"
	"github.com/tecem/srma/internal/nav"
	"github.com/tecem/srma/internal/session"
)

var (
	// ErrInvalidLogin means the backend did not return a usable token and role.
	ErrInvalidLogin = errors.New("backend returned no valid token or role")
	// ErrBadCredentials is returned for a failed admin login.
	ErrBadCredentials = errors.New("incorrect administrator credentials")
	// ErrAdminDisabled is returned when no admin credentials are configured.
	ErrAdminDisabled = errors.New("admin access is not configured")
	// ErrAdminRequired is returned when an admin view is opened without the gate.
	ErrAdminRequired = errors.New("admin login required")
)

// TokenExchanger swaps a Google credential for an application session.
type TokenExchanger interface {
	GoogleToken(ctx context.Context, googleToken string) (*backend.LoginResponse, error)
}

// AdminCredentials are the configured admin user and password.
type AdminCredentials struct {
	User     string
	Password string
}

// Service runs the authentication flows against one session.
type Service struct {
	session  *session.Manager
	exchange TokenExchanger
	nav      nav.Navigator
	admin    AdminCredentials
	logger   *slog.Logger
}

// NewService creates an auth service.
func NewService(s *session.Manager, ex TokenExchanger, n nav.Navigator, admin AdminCredentials, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{session: s, exchange: ex, nav: n, admin: admin, logger: logger}
}

// EnterLogin is run on arrival at the login view; any previous session is discarded.
func (s *Service) EnterLogin(ctx context.Context) error {
	return s.session.Clear(ctx)
}

// LoginWithGoogle exchanges the credential and persists the resulting session.
func (s *Service) LoginWithGoogle(ctx context.Context, credential string) (domain.Session, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return domain.Session{}, fmt.Errorf("google login: %w: empty credential", ErrInvalidLogin)
	}

	resp, err := s.exchange.GoogleToken(ctx, credential)
	if err != nil {
		return domain.Session{}, fmt.Errorf("google login: %w", err)
	}

	role := domain.RoleFromCode(string(resp.Role))
	if resp.Token == "" || !role.Assignable() {
		s.logger.Warn("login response unusable", "has_token", resp.Token != "", "role_code", string(resp.Role))
		return domain.Session{}, fmt.Errorf("google login: %w", ErrInvalidLogin)
	}

	sess := domain.Session{Token: resp.Token, Role: role}
	if err := s.session.Save(ctx, sess); err != nil {
		return domain.Session{}, fmt.Errorf("google login: %w", err)
	}
	s.logger.Info("signed in", "role", role)
	s.nav.Redirect(nav.Home)
	return sess, nil
}

// Logout clears the session and returns to the login view.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.session.Clear(ctx); err != nil {
		return err
	}
	s.nav.Redirect(nav.Login)
	return nil
}

// AdminLogin checks the configured admin credentials and opens the admin gate.
func (s *Service) AdminLogin(ctx context.Context, user, password string) error {
	if s.admin.User == "" || s.admin.Password == "" {
		return ErrAdminDisabled
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.admin.User)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.admin.Password)) == 1
	if !userOK || !passOK {
		s.logger.Warn("admin login rejected", "user", user)
		return ErrBadCredentials
	}
	if err := s.session.SetAdmin(ctx, true); err != nil {
		return err
	}
	s.nav.Redirect(nav.UserManager)
	return nil
}

// AdminLogout closes the admin gate.
func (s *Service) AdminLogout(ctx context.Context) error {
	if err := s.session.SetAdmin(ctx, false); err != nil {
		return err
	}
	s.nav.Redirect(nav.AdminLogin)
	return nil
}

// RequireAdmin redirects to the admin login when the gate is closed.
func (s *Service) RequireAdmin(ctx context.Context) error {
	ok, err := s.session.IsAdmin(ctx)
	if err != nil {
		return err
	}
	if !ok {
		s.nav.Redirect(nav.AdminLogin)
		return ErrAdminRequired
	}
	return nil
}
