package service

import (
	"context"
	"errors"
	"time"

	"github.com/vibra/booking-console-go/internal/domain"
	"github.com/vibra/booking-console-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var userTracer = otel.Tracer("service/user")

// UserService manages console user profiles. Role changes flow through
// here and are announced on the session bus so active sessions pick
// them up without waiting for the next full page load.
type UserService struct {
	profiles port.ProfileStore
	bus      port.SessionBus
	logger   *zap.Logger
}

func NewUserService(profiles port.ProfileStore, bus port.SessionBus, logger *zap.Logger) *UserService {
	return &UserService{profiles: profiles, bus: bus, logger: logger}
}

func (s *UserService) ListUsers(ctx context.Context) ([]domain.UserProfile, error) {
	ctx, span := userTracer.Start(ctx, "UserService.ListUsers")
	defer span.End()

	return s.profiles.ListProfiles(ctx)
}

func (s *UserService) GetUser(ctx context.Context, uid string) (*domain.UserProfile, error) {
	ctx, span := userTracer.Start(ctx, "UserService.GetUser")
	defer span.End()
	span.SetAttributes(attribute.String("uid", uid))

	return s.profiles.GetProfile(ctx, uid)
}

func (s *UserService) UpdateUser(ctx context.Context, uid string, req *domain.UpdateUserRequest) (*domain.UserProfile, error) {
	ctx, span := userTracer.Start(ctx, "UserService.UpdateUser")
	defer span.End()
	span.SetAttributes(attribute.String("uid", uid))

	if req.Role != nil && !req.Role.Valid() {
		return nil, &domain.ErrValidation{Field: "role", Message: "Papel inválido"}
	}
	if req.DJPercentual != nil && (*req.DJPercentual < 0 || *req.DJPercentual > 1) {
		return nil, &domain.ErrValidation{Field: "dj_percentual", Message: "Percentual deve estar entre 0 e 1"}
	}

	current, err := s.profiles.GetProfile(ctx, uid)
	if err != nil {
		return nil, err
	}

	roleChanged := req.Role != nil && *req.Role != current.Role

	updates := map[string]any{}
	if req.DisplayName != nil {
		updates["display_name"] = *req.DisplayName
	}
	if req.Role != nil {
		updates["role"] = *req.Role
	}
	if req.DJPercentual != nil {
		updates["dj_percentual"] = *req.DJPercentual
	}
	if len(updates) == 0 {
		return current, nil
	}

	updated, err := s.profiles.UpdateProfile(ctx, uid, updates)
	if err != nil {
		return nil, err
	}

	if roleChanged {
		s.logger.Info("user role changed",
			zap.String("uid", uid),
			zap.String("from", string(current.Role)),
			zap.String("to", string(*req.Role)),
		)
		if pubErr := s.bus.Publish(ctx, domain.SessionEvent{
			Type: domain.SessionRoleChanged,
			UID:  uid,
			Role: *req.Role,
			At:   time.Now(),
		}); pubErr != nil {
			s.logger.Warn("role change event publish failed",
				zap.String("uid", uid),
				zap.Error(pubErr),
			)
		}
	}

	return updated, nil
}

// ListDJs returns only profiles holding the dj role, for event assignment.
func (s *UserService) ListDJs(ctx context.Context) ([]domain.UserProfile, error) {
	ctx, span := userTracer.Start(ctx, "UserService.ListDJs")
	defer span.End()

	all, err := s.profiles.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	djs := make([]domain.UserProfile, 0, len(all))
	for _, p := range all {
		if p.Role == domain.RoleDJ {
			djs = append(djs, p)
		}
	}
	return djs, nil
}

// IsNotFound reports whether err is a missing-record error from any store.
func IsNotFound(err error) bool {
	var nf *domain.ErrNotFound
	return errors.As(err, &nf)
}
