// Package nav defines the client's routed views.
package nav

import "sync"

// Route is a view path.
type Route string

const (
	Login           Route = "/login"
	AdminLogin      Route = "/admin-login"
	CreateProject   Route = "/create-project"
	ProjectAnalysis Route = "/project-analysis"
	UserManager     Route = "/user-manager"
	AssignRoles     Route = "/assign-roles"
	Home            Route = "/"
)

// Navigator moves the client to another view.
type Navigator interface {
	Redirect(to Route)
}

// Recorder is a Navigator that remembers where it was sent.
type Recorder struct {
	mu      sync.Mutex
	current Route
	history []Route
}

// NewRecorder starts a recorder at the given route.
func NewRecorder(start Route) *Recorder {
	return &Recorder{current: start}
}

// Redirect records a navigation.
func (r *Recorder) Redirect(to Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = to
	r.history = append(r.history, to)
}

// Current returns the most recent route.
func (r *Recorder) Current() Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// History returns every redirect in order.
func (r *Recorder) History() []Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Route(nil), r.history...)
}
