package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/vibra/booking-console-go/internal/domain"
	"github.com/vibra/booking-console-go/internal/infra/observability"
	"github.com/vibra/booking-console-go/internal/service"

	"go.uber.org/zap"
)

type contextKey string

const (
	principalKey contextKey = "principal"
	roleKey      contextKey = "role"
)

// JWTAuthMiddleware validates Bearer tokens and injects the principal into
// context. It performs no role lookup: an invalid or missing token is
// rejected here, before any profile read happens.
func JWTAuthMiddleware(authSvc *service.AuthService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeDenied(w, http.StatusUnauthorized, "Token de autenticação não fornecido")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeDenied(w, http.StatusUnauthorized, "Formato de token inválido")
				return
			}

			claims, err := authSvc.ValidateAccessToken(parts[1])
			if err != nil {
				logger.Warn("auth: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeDenied(w, http.StatusUnauthorized, err.Error())
				return
			}

			principal := &domain.Principal{
				UID:         claims.Sub,
				Email:       claims.Email,
				DisplayName: claims.Name,
			}
			ctx := context.WithValue(r.Context(), principalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles gates a route group on the caller holding one of the given
// roles. The role is read fresh from the profile store on every request —
// a revocation is effective on the very next call. An empty role list
// admits any authenticated principal without touching the store.
func RequireRoles(roles *service.RoleResolver, metrics *observability.Metrics, logger *zap.Logger, required ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			if principal == nil {
				// JWTAuthMiddleware missing from the chain; fail closed.
				metrics.IncrGateDecision(string(service.DecisionRedirect))
				writeDenied(w, http.StatusUnauthorized, "Token de autenticação não fornecido")
				return
			}

			st := service.SessionState{Principal: principal}
			if len(required) > 0 {
				st.Role, _ = roles.Resolve(r.Context(), principal.UID)
			}

			decision := service.Decide(required, st)
			metrics.IncrGateDecision(string(decision))
			if decision != service.DecisionAllow {
				logger.Warn("gate: access denied",
					zap.String("uid", principal.UID),
					zap.String("role", string(st.Role)),
					zap.String("path", r.URL.Path),
				)
				writeDenied(w, http.StatusForbidden, "Acesso negado")
				return
			}

			ctx := context.WithValue(r.Context(), roleKey, st.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext extracts the authenticated principal, or nil.
func PrincipalFromContext(ctx context.Context) *domain.Principal {
	p, _ := ctx.Value(principalKey).(*domain.Principal)
	return p
}

// RoleFromContext extracts the role resolved by RequireRoles for this
// request. domain.RoleNone when the route had no role requirement.
func RoleFromContext(ctx context.Context) domain.Role {
	role, _ := ctx.Value(roleKey).(domain.Role)
	return role
}
