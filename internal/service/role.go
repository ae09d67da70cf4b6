package service

import (
	"context"
	"errors"

	"github.com/vibra/booking-console-go/internal/domain"
	"github.com/vibra/booking-console-go/internal/infra/observability"
	"github.com/vibra/booking-console-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var roleTracer = otel.Tracer("service/role")

// RoleResolver maps an authenticated principal to its console role with a
// single fresh point read of the profile store. It never caches: serving a
// stale role after a demotion is a security hole, so every resolution pays
// for its own read. Any failure resolves to RoleNone — gating fails closed.
type RoleResolver struct {
	profiles port.ProfileStore
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewRoleResolver creates a role resolver over the given profile store.
func NewRoleResolver(profiles port.ProfileStore, metrics *observability.Metrics, logger *zap.Logger) *RoleResolver {
	return &RoleResolver{
		profiles: profiles,
		metrics:  metrics,
		logger:   logger,
	}
}

// Resolve returns the role for the principal uid, and the profile itself
// when one exists. A missing profile or a fetch failure both come back as
// RoleNone with a nil profile; the failure is logged, never propagated —
// the gate must see an unprivileged state, not an error it could misread.
func (r *RoleResolver) Resolve(ctx context.Context, uid string) (domain.Role, *domain.UserProfile) {
	ctx, span := roleTracer.Start(ctx, "RoleResolver.Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("principal.uid", uid))

	profile, err := r.profiles.GetProfile(ctx, uid)
	if err != nil {
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) {
			r.logger.Debug("role: no profile for principal", zap.String("uid", uid))
		} else {
			r.logger.Warn("role: profile fetch failed, failing closed",
				zap.String("uid", uid),
				zap.Error(err),
			)
			r.metrics.IncrStoreError("profiles")
		}
		return domain.RoleNone, nil
	}
	if profile == nil || !profile.Role.Valid() {
		return domain.RoleNone, nil
	}
	return profile.Role, profile
}
