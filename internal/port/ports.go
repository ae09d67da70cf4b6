// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"io"
	"time"

	"github.com/vibra/booking-console-go/internal/domain"
)

// IdentityProvider is the external auth boundary. Password verification
// lives there, not here.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*domain.Principal, error)
	SignOut(ctx context.Context, uid string) error
}

// AuthStateStream pushes auth-state transitions (a principal, or nil when
// signed out) to a subscriber. Subscribe returns the release function; the
// subscriber must call it exactly once on teardown.
type AuthStateStream interface {
	Subscribe(onChange func(*domain.Principal)) (unsubscribe func())
}

// ProfileStore retrieves and mutates console user profiles.
type ProfileStore interface {
	// GetProfile is a single point read by principal uid.
	// Returns ErrNotFound when no profile exists.
	GetProfile(ctx context.Context, uid string) (*domain.UserProfile, error)
	ListProfiles(ctx context.Context) ([]domain.UserProfile, error)
	UpdateProfile(ctx context.Context, uid string, updates map[string]any) (*domain.UserProfile, error)
}

// EventStore defines all data operations for booked events.
type EventStore interface {
	ListEvents(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error)
	GetEvent(ctx context.Context, eventID string) (*domain.Event, error)
	CreateEvent(ctx context.Context, ev *domain.Event) (*domain.Event, error)
	UpdateEvent(ctx context.Context, eventID string, updates map[string]any) (*domain.Event, error)

	// Payment proofs, ordered by upload time.
	AddPaymentProof(ctx context.Context, eventID string, proof *domain.PaymentProof) error
	ListPaymentProofs(ctx context.Context, eventID string) ([]domain.PaymentProof, error)
}

// TokenStore persists hashed console refresh tokens.
type TokenStore interface {
	StoreRefreshToken(ctx context.Context, uid, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllRefreshTokens(ctx context.Context, uid string) error
}

// ProofStorage stores payment-proof objects and issues presigned URLs
// for browser-direct upload/download.
type ProofStorage interface {
	PresignUpload(ctx context.Context, key, contentType string) (string, error)
	PresignDownload(ctx context.Context, key string) (string, error)
	Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) (string, error)
}

// Cache provides generic caching with TTL. Role resolution must never go
// through a Cache — stale roles are a security risk.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// SessionBus fans session events (role changes, forced sign-outs) out to
// live session resolvers, possibly across instances.
type SessionBus interface {
	Publish(ctx context.Context, ev domain.SessionEvent) error
	Subscribe(uid string, handler func(domain.SessionEvent)) (cancel func(), err error)
}
