package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/vibra/booking-console-go/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// TokenStore implementation — refresh_tokens via PostgREST
// ============================================================

type refreshTokenRow struct {
	ID        string `json:"id"`
	UID       string `json:"uid"`
	TokenHash string `json:"token_hash"`
	ExpiresAt string `json:"expires_at"`
	Revoked   bool   `json:"revoked"`
}

// StoreRefreshToken persists a hashed refresh token. Raw tokens are
// never written anywhere.
func (c *Client) StoreRefreshToken(ctx context.Context, uid, tokenHash string, expiresAt time.Time) error {
	ctx, span := tracer.Start(ctx, "Supabase.StoreRefreshToken")
	defer span.End()
	span.SetAttributes(attribute.String("principal.uid", uid))

	return c.execute(ctx, "supabase/tokens", func() error {
		_, err := c.doPost(ctx, "refresh_tokens", map[string]any{
			"id":         uuid.New().String(),
			"uid":        uid,
			"token_hash": tokenHash,
			"expires_at": expiresAt.Format(time.RFC3339),
			"revoked":    false,
		})
		return err
	})
}

// GetRefreshToken looks a token up by hash. Returns nil without error
// when no such token exists; the auth service treats that as invalid.
func (c *Client) GetRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetRefreshToken")
	defer span.End()

	var token *domain.RefreshToken

	err := c.execute(ctx, "supabase/tokens", func() error {
		path := fmt.Sprintf("refresh_tokens?token_hash=eq.%s&limit=1", url.QueryEscape(tokenHash))
		body, err := c.doGet(ctx, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			return nil
		}

		var rows []refreshTokenRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode refresh_tokens: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}

		r := rows[0]
		t := domain.RefreshToken{
			ID:        r.ID,
			UID:       r.UID,
			TokenHash: r.TokenHash,
			Revoked:   r.Revoked,
		}
		t.ExpiresAt, _ = time.Parse(time.RFC3339, r.ExpiresAt)
		token = &t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

// RevokeRefreshToken marks one token revoked.
func (c *Client) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	ctx, span := tracer.Start(ctx, "Supabase.RevokeRefreshToken")
	defer span.End()

	return c.execute(ctx, "supabase/tokens", func() error {
		path := fmt.Sprintf("refresh_tokens?token_hash=eq.%s", url.QueryEscape(tokenHash))
		_, err := c.doPatch(ctx, path, map[string]any{"revoked": true})
		return err
	})
}

// RevokeAllRefreshTokens marks every live token of a principal revoked.
// Used on logout and forced sign-out.
func (c *Client) RevokeAllRefreshTokens(ctx context.Context, uid string) error {
	ctx, span := tracer.Start(ctx, "Supabase.RevokeAllRefreshTokens")
	defer span.End()
	span.SetAttributes(attribute.String("principal.uid", uid))

	return c.execute(ctx, "supabase/tokens", func() error {
		path := fmt.Sprintf("refresh_tokens?uid=eq.%s&revoked=eq.false", url.QueryEscape(uid))
		_, err := c.doPatch(ctx, path, map[string]any{"revoked": true})
		return err
	})
}
