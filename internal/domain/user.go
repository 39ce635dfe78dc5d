package domain

// ManagedUser is a user row as shown in the admin user manager.
type ManagedUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	RoleName  string `json:"role_name,omitempty"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

// StatusLabel returns the display label for the user's status.
func (u ManagedUser) StatusLabel() string {
	if u.Active {
		return "active"
	}
	return "inactive"
}
