package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/vibra/booking-console-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// ProfileStore implementation — user_profiles via PostgREST
// ============================================================

// userProfileRow maps the user_profiles table.
type userProfileRow struct {
	UID          string   `json:"uid"`
	Email        string   `json:"email"`
	DisplayName  string   `json:"display_name"`
	Role         string   `json:"role"`
	DJPercentual *float64 `json:"dj_percentual"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    *string  `json:"updated_at"`
}

func (r userProfileRow) toDomain() domain.UserProfile {
	p := domain.UserProfile{
		UID:          r.UID,
		Email:        r.Email,
		DisplayName:  r.DisplayName,
		Role:         domain.Role(r.Role),
		DJPercentual: r.DJPercentual,
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, r.CreatedAt)
	if r.UpdatedAt != nil {
		if t, err := time.Parse(time.RFC3339, *r.UpdatedAt); err == nil {
			p.UpdatedAt = &t
		}
	}
	return p
}

// GetProfile fetches one profile by principal uid.
func (c *Client) GetProfile(ctx context.Context, uid string) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProfile")
	defer span.End()
	span.SetAttributes(attribute.String("principal.uid", uid))

	var profile *domain.UserProfile

	err := c.execute(ctx, "supabase/profiles", func() error {
		path := fmt.Sprintf("user_profiles?uid=eq.%s&limit=1", url.QueryEscape(uid))
		body, err := c.doGet(ctx, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			return &domain.ErrNotFound{Resource: "profile", ID: uid}
		}

		var rows []userProfileRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode user_profiles: %w", err)
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "profile", ID: uid}
		}

		p := rows[0].toDomain()
		profile = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// ListProfiles returns every console profile, newest first.
func (c *Client) ListProfiles(ctx context.Context) ([]domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListProfiles")
	defer span.End()

	var profiles []domain.UserProfile

	err := c.execute(ctx, "supabase/profiles", func() error {
		body, err := c.doGet(ctx, "user_profiles?order=created_at.desc")
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			profiles = []domain.UserProfile{}
			return nil
		}

		var rows []userProfileRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode user_profiles: %w", err)
		}

		profiles = make([]domain.UserProfile, 0, len(rows))
		for _, r := range rows {
			profiles = append(profiles, r.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// UpdateProfile patches a profile and returns the updated record.
func (c *Client) UpdateProfile(ctx context.Context, uid string, updates map[string]any) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateProfile")
	defer span.End()
	span.SetAttributes(attribute.String("principal.uid", uid))

	updates["updated_at"] = time.Now().Format(time.RFC3339)

	var profile *domain.UserProfile

	err := c.execute(ctx, "supabase/profiles", func() error {
		path := fmt.Sprintf("user_profiles?uid=eq.%s", url.QueryEscape(uid))
		body, err := c.doPatch(ctx, path, updates)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			return &domain.ErrNotFound{Resource: "profile", ID: uid}
		}

		var rows []userProfileRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode user_profiles: %w", err)
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "profile", ID: uid}
		}

		p := rows[0].toDomain()
		profile = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}
