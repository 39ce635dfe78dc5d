// Package roles revalidates the signed-in user's role against the backend.
package roles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tecem/srma/internal/backend"
	"github.com/tecem/srma/internal/domain"
	"github.com/tecem/srma/internal/nav"
	"github.com/tecem/srma/internal/session"
)

// ProfileFetcher is the backend call the resolver depends on.
type ProfileFetcher interface {
	Profile(ctx context.Context, token string) (*backend.Profile, error)
}

// Result describes what a resolution did.
type Result struct {
	// Role is the role the view should use after resolution.
	Role domain.Role
	// Changed is true when the backend role differed from the stored one.
	Changed bool
	// Redirected is true when the user was sent to the login view.
	Redirected bool
	// Stale is true when the backend could not be reached and the stored role was kept.
	Stale bool
	// Err is the non-fatal failure behind Stale, for display.
	Err error
}

// Resolver reconciles the stored role with the backend profile.
type Resolver struct {
	session *session.Manager
	profile ProfileFetcher
	nav     nav.Navigator
	logger  *slog.Logger
}

// NewResolver creates a resolver.
func NewResolver(s *session.Manager, p ProfileFetcher, n nav.Navigator, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{session: s, profile: p, nav: n, logger: logger}
}

// Resolve runs one revalidation. The returned error is only non-nil when
// local storage fails; backend failures are reported through Result.
func (r *Resolver) Resolve(ctx context.Context) (Result, error) {
	current, err := r.session.Load(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("resolve role: %w", err)
	}
	if !current.Authenticated() {
		r.nav.Redirect(nav.Login)
		return Result{Role: domain.RoleGuest, Redirected: true}, nil
	}

	profile, err := r.profile.Profile(ctx, current.Token)
	switch {
	case err == nil:
	case backend.IsAuthError(err):
		r.logger.Info("profile rejected session, signing out", "status", backend.StatusCode(err))
		if clearErr := r.session.Clear(ctx); clearErr != nil {
			return Result{}, fmt.Errorf("resolve role: %w", clearErr)
		}
		r.nav.Redirect(nav.Login)
		return Result{Role: domain.RoleGuest, Redirected: true}, nil
	default:
		if errors.Is(err, backend.ErrRoleUnrecognized) {
			r.logger.Warn("profile response had no role, keeping stored role", "role", current.Role, "error", err)
		} else {
			r.logger.Warn("profile fetch failed, keeping stored role", "role", current.Role, "error", err)
		}
		return Result{Role: current.Role, Stale: true, Err: err}, nil
	}

	resolved := domain.RoleFromCode(profile.RoleCode)
	changed, err := r.session.SetRole(ctx, resolved)
	if err != nil {
		return Result{}, fmt.Errorf("resolve role: %w", err)
	}
	if changed {
		r.logger.Info("role updated from profile", "from", current.Role, "to", resolved)
	}
	return Result{Role: resolved, Changed: changed}, nil
}

// ResolveAsync runs Resolve in the background and calls onDone with the
// outcome. The callback is skipped when ctx ends before the result arrives,
// so a torn-down view never sees a late update.
func (r *Resolver) ResolveAsync(ctx context.Context, onDone func(Result, error)) {
	go func() {
		res, err := r.Resolve(ctx)
		if ctx.Err() != nil {
			r.logger.Debug("dropping role resolution after teardown")
			return
		}
		onDone(res, err)
	}()
}
