package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/vibra/booking-console-go/internal/domain"
	"github.com/vibra/booking-console-go/internal/service"

	"go.uber.org/zap"
)

// --- Mocks ---

type mockIdentityProvider struct {
	principal *domain.Principal
	err       error
	signOuts  int
}

func (m *mockIdentityProvider) SignIn(_ context.Context, _, _ string) (*domain.Principal, error) {
	return m.principal, m.err
}

func (m *mockIdentityProvider) SignOut(_ context.Context, _ string) error {
	m.signOuts++
	return nil
}

type mockTokenStore struct {
	tokens map[string]*domain.RefreshToken
}

func newMockTokenStore() *mockTokenStore {
	return &mockTokenStore{tokens: make(map[string]*domain.RefreshToken)}
}

func (m *mockTokenStore) StoreRefreshToken(_ context.Context, uid, tokenHash string, expiresAt time.Time) error {
	m.tokens[tokenHash] = &domain.RefreshToken{UID: uid, TokenHash: tokenHash, ExpiresAt: expiresAt}
	return nil
}

func (m *mockTokenStore) GetRefreshToken(_ context.Context, tokenHash string) (*domain.RefreshToken, error) {
	return m.tokens[tokenHash], nil
}

func (m *mockTokenStore) RevokeRefreshToken(_ context.Context, tokenHash string) error {
	if tok, ok := m.tokens[tokenHash]; ok {
		tok.Revoked = true
	}
	return nil
}

func (m *mockTokenStore) RevokeAllRefreshTokens(_ context.Context, uid string) error {
	for _, tok := range m.tokens {
		if tok.UID == uid {
			tok.Revoked = true
		}
	}
	return nil
}

type mockSessionBus struct {
	published []domain.SessionEvent
}

func (m *mockSessionBus) Publish(_ context.Context, ev domain.SessionEvent) error {
	m.published = append(m.published, ev)
	return nil
}

func (m *mockSessionBus) Subscribe(_ string, _ func(domain.SessionEvent)) (func(), error) {
	return func() {}, nil
}

func newAuthService(idp *mockIdentityProvider, tokens *mockTokenStore, bus *mockSessionBus) *service.AuthService {
	profiles := &countingProfileStore{profiles: map[string]*domain.UserProfile{
		"u-1": {UID: "u-1", Email: "dj@vibra.com", DisplayName: "DJ Teste", Role: domain.RoleDJ},
	}}
	return service.NewAuthService(
		idp, profiles, tokens, bus,
		"test-secret", 15*time.Minute, 720*time.Hour,
		zap.NewNop(),
	)
}

// --- Tests ---

func TestLogin_Success(t *testing.T) {
	idp := &mockIdentityProvider{principal: &domain.Principal{UID: "u-1", Email: "dj@vibra.com"}}
	tokens := newMockTokenStore()
	svc := newAuthService(idp, tokens, &mockSessionBus{})

	resp, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email:    "DJ@vibra.com",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected a token pair")
	}
	if resp.Profile == nil || resp.Profile.Role != domain.RoleDJ {
		t.Errorf("expected dj profile in response, got %+v", resp.Profile)
	}
	if len(tokens.tokens) != 1 {
		t.Errorf("expected 1 stored refresh token, got %d", len(tokens.tokens))
	}

	claims, err := svc.ValidateAccessToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("minted token failed validation: %v", err)
	}
	if claims.Sub != "u-1" {
		t.Errorf("expected sub u-1, got %q", claims.Sub)
	}
}

func TestLogin_AccessTokenCarriesNoRole(t *testing.T) {
	idp := &mockIdentityProvider{principal: &domain.Principal{UID: "u-1"}}
	svc := newAuthService(idp, newMockTokenStore(), &mockSessionBus{})

	resp, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email:    "dj@vibra.com",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	claims, err := svc.ValidateAccessToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Type != "access" {
		t.Errorf("expected type 'access', got %q", claims.Type)
	}
	// Role is resolved fresh per request, never baked into the token.
}

func TestLogin_InvalidCredentials(t *testing.T) {
	idp := &mockIdentityProvider{err: &domain.ErrUnauthorized{Message: "Credenciais inválidas"}}
	svc := newAuthService(idp, newMockTokenStore(), &mockSessionBus{})

	_, err := svc.Login(context.Background(), &domain.LoginRequest{
		Email:    "dj@vibra.com",
		Password: "wrong-password",
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if err.Error() != "Credenciais inválidas" {
		t.Errorf("expected provider error to pass through, got %q", err.Error())
	}
}

func TestLogin_ValidatesInput(t *testing.T) {
	svc := newAuthService(&mockIdentityProvider{}, newMockTokenStore(), &mockSessionBus{})

	if _, err := svc.Login(context.Background(), &domain.LoginRequest{Email: "not-an-email", Password: "secret123"}); err == nil {
		t.Error("expected validation error for bad email")
	}
	if _, err := svc.Login(context.Background(), &domain.LoginRequest{Email: "a@b.com", Password: "123"}); err == nil {
		t.Error("expected validation error for short password")
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	idp := &mockIdentityProvider{principal: &domain.Principal{UID: "u-1"}}
	tokens := newMockTokenStore()
	svc := newAuthService(idp, tokens, &mockSessionBus{})

	login, err := svc.Login(context.Background(), &domain.LoginRequest{Email: "dj@vibra.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), &domain.RefreshRequest{RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Error("expected a new refresh token after rotation")
	}

	// Old token is dead after rotation.
	if _, err := svc.Refresh(context.Background(), &domain.RefreshRequest{RefreshToken: login.RefreshToken}); err == nil {
		t.Error("expected rotated-out token to be rejected")
	}
}

func TestRefresh_UnknownToken(t *testing.T) {
	svc := newAuthService(&mockIdentityProvider{}, newMockTokenStore(), &mockSessionBus{})

	if _, err := svc.Refresh(context.Background(), &domain.RefreshRequest{RefreshToken: "never-issued"}); err == nil {
		t.Error("expected unknown refresh token to be rejected")
	}
}

func TestLogout_RevokesAndPublishes(t *testing.T) {
	idp := &mockIdentityProvider{principal: &domain.Principal{UID: "u-1"}}
	tokens := newMockTokenStore()
	bus := &mockSessionBus{}
	svc := newAuthService(idp, tokens, bus)

	login, err := svc.Login(context.Background(), &domain.LoginRequest{Email: "dj@vibra.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(context.Background(), "u-1"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if idp.signOuts != 1 {
		t.Errorf("expected provider sign-out, got %d", idp.signOuts)
	}
	if len(bus.published) != 1 || bus.published[0].Type != domain.SessionSignedOut {
		t.Errorf("expected a signed-out session event, got %+v", bus.published)
	}

	if _, err := svc.Refresh(context.Background(), &domain.RefreshRequest{RefreshToken: login.RefreshToken}); err == nil {
		t.Error("expected refresh to fail after logout")
	}
}

func TestValidateAccessToken_RejectsGarbage(t *testing.T) {
	svc := newAuthService(&mockIdentityProvider{}, newMockTokenStore(), &mockSessionBus{})

	if _, err := svc.ValidateAccessToken("not.a.jwt"); err == nil {
		t.Error("expected malformed token to be rejected")
	}
}
