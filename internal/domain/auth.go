package domain

import "time"

// ============================================================
// Auth — Request / Response types (matches console API contract)
// ============================================================

// LoginRequest is the body for POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the body for 200 from POST /v1/auth/login.
// Profile is nil when the principal has no console profile yet;
// the client then lands on the registration-pending screen.
type LoginResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int          `json:"expiresIn"`
	Profile      *UserProfile `json:"profile,omitempty"`
}

// RefreshRequest is the body for POST /v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken is a console refresh token stored hashed in the store.
type RefreshToken struct {
	ID        string    `json:"id"`
	UID       string    `json:"uid"`
	TokenHash string    `json:"token_hash"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
}

// SessionEventType identifies a session-affecting mutation.
type SessionEventType string

const (
	SessionRoleChanged SessionEventType = "role-changed"
	SessionSignedOut   SessionEventType = "signed-out"
)

// SessionEvent is published when something invalidates a live session's
// current gate decision: a role change or a forced sign-out.
type SessionEvent struct {
	Type SessionEventType `json:"type"`
	UID  string           `json:"uid"`
	Role Role             `json:"role,omitempty"`
	At   time.Time        `json:"at"`
}
