package domain

import (
	"fmt"
	"time"
)

// Role enumerates platform privilege levels.
type Role string

const (
	RoleUser       Role = "user"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// ParseRole validates a role string read from storage or the wire.
// Unknown roles are rejected rather than carried forward.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleManager, RoleAdmin, RoleSuperAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// CanImpersonate reports whether the role may initiate delegation.
// Only super admins may act under another identity.
func (r Role) CanImpersonate() bool {
	return r == RoleSuperAdmin
}

// UserIdentity is the canonical identity record shared between the
// backend and the session subsystem. Field names match the wire and
// persistent-store JSON format.
type UserIdentity struct {
	ID       string `json:"id"`
	Phone    string `json:"phone"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Address  string `json:"address,omitempty"`
}

// User is the stored account backing an identity.
type User struct {
	UserIdentity
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
