// Package domain contains core domain types for the assistant client.
package domain

// Role is the frontend permission tier of a user.
type Role string

const (
	RoleStandard     Role = "standard"
	RoleProfessional Role = "professional"
	RoleConsultant   Role = "consultant"
	// RoleGuest is the absence-of-role fallback. The backend never assigns it.
	RoleGuest Role = "guest"
)

var codeToRole = map[string]Role{
	"1": RoleStandard,
	"2": RoleProfessional,
	"3": RoleConsultant,
}

var roleToCode = map[Role]string{
	RoleStandard:     "1",
	RoleProfessional: "2",
	RoleConsultant:   "3",
}

// RoleFromCode maps a backend role code to a Role. Unknown codes resolve to RoleGuest.
func RoleFromCode(code string) Role {
	if r, ok := codeToRole[code]; ok {
		return r
	}
	return RoleGuest
}

// Code returns the backend role code. Guest and unknown roles have none.
func (r Role) Code() (string, bool) {
	code, ok := roleToCode[r]
	return code, ok
}

// ParseRole parses a persisted role name, returning RoleGuest for anything unrecognized.
func ParseRole(s string) Role {
	r := Role(s)
	if _, ok := roleToCode[r]; ok {
		return r
	}
	return RoleGuest
}

// Assignable reports whether the role can be granted by an administrator.
func (r Role) Assignable() bool {
	_, ok := roleToCode[r]
	return ok
}

// Roles lists the backend-assignable roles in code order.
func Roles() []Role {
	return []Role{RoleStandard, RoleProfessional, RoleConsultant}
}

func (r Role) String() string {
	return string(r)
}

// StatusFromCode maps a backend status code ("A" active, "I" inactive).
func StatusFromCode(code string) bool {
	return code == "A"
}

// StatusCode returns the backend status code for an active flag.
func StatusCode(active bool) string {
	if active {
		return "A"
	}
	return "I"
}
