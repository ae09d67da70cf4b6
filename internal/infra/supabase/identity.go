package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/vibra/booking-console-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// IdentityProvider implementation — GoTrue auth API
// ============================================================

type goTrueTokenResponse struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID           string `json:"id"`
		Email        string `json:"email"`
		UserMetadata struct {
			Name string `json:"name"`
		} `json:"user_metadata"`
	} `json:"user"`
}

// SignIn verifies credentials against GoTrue. Password checking stays on
// the provider side; the console only learns who the principal is.
func (c *Client) SignIn(ctx context.Context, email, password string) (*domain.Principal, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SignIn")
	defer span.End()

	var principal *domain.Principal

	err := c.execute(ctx, "supabase/auth", func() error {
		reqBody, err := json.Marshal(map[string]string{
			"email":    email,
			"password": password,
		})
		if err != nil {
			return err
		}

		url := fmt.Sprintf("%s/auth/v1/token?grant_type=password", c.baseURL)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
		if err != nil {
			return err
		}
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Error("gotrue: sign-in request failed", zap.Error(err))
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
			return &domain.ErrUnauthorized{Message: "Credenciais inválidas"}
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			c.logger.Warn("gotrue: sign-in non-2xx",
				zap.Int("status", resp.StatusCode),
				zap.String("body", string(body)),
			)
			return fmt.Errorf("gotrue returned status %d", resp.StatusCode)
		}

		var token goTrueTokenResponse
		if err := json.Unmarshal(body, &token); err != nil {
			return fmt.Errorf("decode gotrue response: %w", err)
		}
		if token.User.ID == "" {
			return &domain.ErrUnauthorized{Message: "Credenciais inválidas"}
		}

		principal = &domain.Principal{
			UID:         token.User.ID,
			Email:       token.User.Email,
			DisplayName: token.User.UserMetadata.Name,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return principal, nil
}

// SignOut invalidates the principal's provider-side sessions.
func (c *Client) SignOut(ctx context.Context, uid string) error {
	ctx, span := tracer.Start(ctx, "Supabase.SignOut")
	defer span.End()

	return c.execute(ctx, "supabase/auth", func() error {
		url := fmt.Sprintf("%s/auth/v1/admin/users/%s/logout", c.baseURL, uid)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Error("gotrue: sign-out request failed",
				zap.String("uid", uid),
				zap.Error(err),
			)
			return err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("gotrue logout returned status %d", resp.StatusCode)
		}
		return nil
	})
}
