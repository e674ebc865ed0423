package model

import "time"

// UserRole represents the role of a user in the system.
type UserRole string

const (
	// RoleUser is a standard authenticated user.
	RoleUser UserRole = "normal"
	// RoleAdmin can list users and moderate assessments.
	RoleAdmin UserRole = "admin"
)

// User represents a Hackloud account as returned by the users API.
type User struct {
	ID        string    `json:"id" yaml:"id"`
	Username  string    `json:"username" yaml:"username"`
	Email     string    `json:"email" yaml:"email"`
	FirstName string    `json:"firstName,omitempty" yaml:"first_name,omitempty"`
	LastName  string    `json:"lastName,omitempty" yaml:"last_name,omitempty"`
	Bio       string    `json:"bio,omitempty" yaml:"bio,omitempty"`
	Role      UserRole  `json:"role" yaml:"role"`
	Avatar    string    `json:"avatar,omitempty" yaml:"avatar,omitempty"` // relative path under the static host
	Active    bool      `json:"active" yaml:"active"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
}

// IsAdmin returns true if the user has admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Clone returns a copy of the user so callers can hand it out without
// sharing mutable state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// ProfileUpdate holds the editable profile fields. Empty fields are left
// unchanged by the backend.
type ProfileUpdate struct {
	Username  string `json:"username,omitempty" validate:"omitempty,min=3,max=30,alphanum"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	FirstName string `json:"firstName,omitempty" validate:"omitempty,max=50"`
	LastName  string `json:"lastName,omitempty" validate:"omitempty,max=50"`
	Bio       string `json:"bio,omitempty" validate:"omitempty,max=500"`
}

// IsEmpty reports whether no field is set.
func (p ProfileUpdate) IsEmpty() bool {
	return p == ProfileUpdate{}
}

// PasswordChange is the body of a password update.
type PasswordChange struct {
	OldPassword     string `json:"oldPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=100,nefield=OldPassword"`
	ConfirmPassword string `json:"-" validate:"required,eqfield=NewPassword"`
}

// Credentials is the body of a login request.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Registration is the body of a register request.
type Registration struct {
	Username string `json:"username" validate:"required,min=3,max=30,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=100"`
}
