package domain

// Persisted session keys.
const (
	KeyUserToken = "userToken"
	KeyUserRole  = "userRole"
	KeyAdminRole = "adminRole"
)

// AdminFullAccess is the value stored under KeyAdminRole after admin login.
const AdminFullAccess = "full_access"

// Session is the authenticated state of the client.
type Session struct {
	Token string
	Role  Role
}

// Authenticated returns true if a bearer token is present.
func (s Session) Authenticated() bool {
	return s.Token != ""
}
