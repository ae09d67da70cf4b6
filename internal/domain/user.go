package domain

import "time"

// Role is the authorization tier of a console user.
type Role string

const (
	RoleAdmin    Role = "admin"
	RolePartner  Role = "partner"
	RoleDJ       Role = "dj"
	RoleFinance  Role = "finance"
	RoleManager  Role = "manager"
	RoleProducer Role = "producer"

	// RoleNone is the resolved role when no profile exists or the profile
	// read failed. It grants nothing: gating fails closed on it.
	RoleNone Role = ""
)

// Valid reports whether r is one of the assignable roles.
// RoleNone is not assignable — it only appears as a resolution result.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RolePartner, RoleDJ, RoleFinance, RoleManager, RoleProducer:
		return true
	}
	return false
}

// Principal is an authenticated identity issued by the external
// identity provider. Read-only to this system.
type Principal struct {
	UID         string `json:"uid"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// UserProfile is the console record keyed 1:1 by principal uid.
// DJPercentual is the DJ's share of an event's valor_total, a fraction
// in [0,1], present only when Role is RoleDJ.
type UserProfile struct {
	UID          string     `json:"uid"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"display_name"`
	Role         Role       `json:"role"`
	DJPercentual *float64   `json:"dj_percentual,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// UpdateUserRequest is the body for PATCH /v1/users/{uid}.
// Nil fields are left untouched.
type UpdateUserRequest struct {
	DisplayName  *string  `json:"displayName,omitempty"`
	Role         *Role    `json:"role,omitempty"`
	DJPercentual *float64 `json:"djPercentual,omitempty"`
}
