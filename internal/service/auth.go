package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vibra/booking-console-go/internal/domain"
	"github.com/vibra/booking-console-go/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var authTracer = otel.Tracer("service/auth")

const minPasswordLen = 6

// AuthService bridges the external identity provider and the console's own
// session tokens. Passwords never touch this service: the provider verifies
// them and hands back a principal; we mint the console JWT pair from that.
type AuthService struct {
	idp        port.IdentityProvider
	profiles   port.ProfileStore
	tokens     port.TokenStore
	bus        port.SessionBus
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(
	idp port.IdentityProvider,
	profiles port.ProfileStore,
	tokens port.TokenStore,
	bus port.SessionBus,
	jwtSecret string,
	accessTTL, refreshTTL time.Duration,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		idp:        idp,
		profiles:   profiles,
		tokens:     tokens,
		bus:        bus,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		logger:     logger,
	}
}

// ============================================================
// Login — POST /v1/auth/login
// ============================================================

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	span.SetAttributes(attribute.String("email", req.Email))

	if !strings.Contains(req.Email, "@") {
		return nil, &domain.ErrValidation{Field: "email", Message: "E-mail inválido"}
	}
	if len(req.Password) < minPasswordLen {
		return nil, &domain.ErrValidation{Field: "password", Message: fmt.Sprintf("Senha deve ter pelo menos %d caracteres", minPasswordLen)}
	}

	principal, err := s.idp.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		var unauthorized *domain.ErrUnauthorized
		if errors.As(err, &unauthorized) {
			s.logger.Warn("login: invalid credentials", zap.String("email", req.Email))
			return nil, err
		}
		return nil, fmt.Errorf("identity sign-in: %w", err)
	}

	// The profile may not exist yet for a fresh registration; the role
	// resolver treats that as RoleNone and the gate redirects accordingly.
	// Login itself succeeds either way.
	var profile *domain.UserProfile
	if p, pErr := s.profiles.GetProfile(ctx, principal.UID); pErr == nil {
		profile = p
	} else {
		var notFound *domain.ErrNotFound
		if !errors.As(pErr, &notFound) {
			s.logger.Warn("login: profile fetch failed",
				zap.String("uid", principal.UID),
				zap.Error(pErr),
			)
		}
	}

	accessToken, err := s.signAccessToken(principal)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, refreshHash, err := s.generateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.tokens.StoreRefreshToken(ctx, principal.UID, refreshHash, time.Now().Add(s.refreshTTL)); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	s.logger.Info("user logged in", zap.String("uid", principal.UID))

	return &domain.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.accessTTL.Seconds()),
		Profile:      profile,
	}, nil
}

// ============================================================
// Refresh — POST /v1/auth/refresh
// ============================================================

func (s *AuthService) Refresh(ctx context.Context, req *domain.RefreshRequest) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Refresh")
	defer span.End()

	tokenHash := hashToken(req.RefreshToken)

	stored, err := s.tokens.GetRefreshToken(ctx, tokenHash)
	if err != nil {
		return nil, fmt.Errorf("get refresh token: %w", err)
	}
	if stored == nil || stored.Revoked {
		return nil, &domain.ErrUnauthorized{Message: "Token de atualização inválido"}
	}

	if stored.ExpiresAt.Before(time.Now()) {
		s.logger.Warn("refresh: expired token used", zap.String("uid", stored.UID))
		_ = s.tokens.RevokeRefreshToken(ctx, tokenHash)
		return nil, &domain.ErrUnauthorized{Message: "Token de atualização expirado"}
	}

	// Rotation: the old token dies with this exchange.
	_ = s.tokens.RevokeRefreshToken(ctx, tokenHash)

	principal := &domain.Principal{UID: stored.UID}
	var profile *domain.UserProfile
	if p, pErr := s.profiles.GetProfile(ctx, stored.UID); pErr == nil && p != nil {
		profile = p
		principal.Email = p.Email
		principal.DisplayName = p.DisplayName
	}

	accessToken, err := s.signAccessToken(principal)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	newRefreshToken, newRefreshHash, err := s.generateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.tokens.StoreRefreshToken(ctx, stored.UID, newRefreshHash, time.Now().Add(s.refreshTTL)); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &domain.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		ExpiresIn:    int(s.accessTTL.Seconds()),
		Profile:      profile,
	}, nil
}

// ============================================================
// Logout — POST /v1/auth/logout
// ============================================================

func (s *AuthService) Logout(ctx context.Context, uid string) error {
	ctx, span := authTracer.Start(ctx, "AuthService.Logout")
	defer span.End()

	if err := s.tokens.RevokeAllRefreshTokens(ctx, uid); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}

	if err := s.idp.SignOut(ctx, uid); err != nil {
		// Provider-side sessions expiring on their own is acceptable;
		// console tokens are already revoked.
		s.logger.Warn("logout: provider sign-out failed",
			zap.String("uid", uid),
			zap.Error(err),
		)
	}

	if err := s.bus.Publish(ctx, domain.SessionEvent{
		Type: domain.SessionSignedOut,
		UID:  uid,
		At:   time.Now(),
	}); err != nil {
		s.logger.Warn("logout: session event publish failed",
			zap.String("uid", uid),
			zap.Error(err),
		)
	}

	s.logger.Info("user logged out", zap.String("uid", uid))
	return nil
}

// ============================================================
// ValidateToken — used by middleware
// ============================================================

// JWTClaims represents the custom claims in console access tokens.
// Role is deliberately absent: it is resolved fresh on every request.
type JWTClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Type  string `json:"type"`
	jwt.RegisteredClaims
}

func (s *AuthService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido ou expirado"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido"}
	}

	if claims.Type != "access" {
		return nil, &domain.ErrUnauthorized{Message: "Tipo de token inválido"}
	}

	return claims, nil
}

// ============================================================
// Internal helpers
// ============================================================

func (s *AuthService) signAccessToken(p *domain.Principal) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Sub:   p.UID,
		Email: p.Email,
		Name:  p.DisplayName,
		Type:  "access",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			Issuer:    "booking-console",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *AuthService) generateRefreshToken() (raw string, hashed string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(b)
	hashed = hashToken(raw)
	return raw, hashed, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
