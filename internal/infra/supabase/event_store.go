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
// EventStore implementation — events + payment_proofs via PostgREST
// ============================================================

// eventRow maps the events table.
type eventRow struct {
	ID                 string   `json:"id"`
	NomeEvento         string   `json:"nome_evento"`
	DataEvento         string   `json:"data_evento"`
	Local              string   `json:"local"`
	ContratanteNome    string   `json:"contratante_nome"`
	ContratanteContato string   `json:"contratante_contato"`
	ValorTotal         float64  `json:"valor_total"`
	ValorSinal         float64  `json:"valor_sinal"`
	DJCosts            float64  `json:"dj_costs"`
	ContaQueRecebeu    string   `json:"conta_que_recebeu"`
	StatusPagamento    string   `json:"status_pagamento"`
	DJID               string   `json:"dj_id"`
	DJNome             string   `json:"dj_nome"`
	CreatedAt          string   `json:"created_at"`
	UpdatedAt          *string  `json:"updated_at"`
}

func (r eventRow) toDomain() domain.Event {
	ev := domain.Event{
		ID:                 r.ID,
		NomeEvento:         r.NomeEvento,
		Local:              r.Local,
		ContratanteNome:    r.ContratanteNome,
		ContratanteContato: r.ContratanteContato,
		ValorTotal:         r.ValorTotal,
		ValorSinal:         r.ValorSinal,
		DJCosts:            r.DJCosts,
		ContaQueRecebeu:    domain.ReceivingAccount(r.ContaQueRecebeu),
		StatusPagamento:    domain.PaymentStatus(r.StatusPagamento),
		DJID:               r.DJID,
		DJNome:             r.DJNome,
	}
	ev.DataEvento, _ = time.Parse(time.RFC3339, r.DataEvento)
	ev.CreatedAt, _ = time.Parse(time.RFC3339, r.CreatedAt)
	if r.UpdatedAt != nil {
		if t, err := time.Parse(time.RFC3339, *r.UpdatedAt); err == nil {
			ev.UpdatedAt = &t
		}
	}
	return ev
}

func eventToRow(ev *domain.Event) map[string]any {
	return map[string]any{
		"id":                  ev.ID,
		"nome_evento":         ev.NomeEvento,
		"data_evento":         ev.DataEvento.Format(time.RFC3339),
		"local":               ev.Local,
		"contratante_nome":    ev.ContratanteNome,
		"contratante_contato": ev.ContratanteContato,
		"valor_total":         ev.ValorTotal,
		"valor_sinal":         ev.ValorSinal,
		"dj_costs":            ev.DJCosts,
		"conta_que_recebeu":   string(ev.ContaQueRecebeu),
		"status_pagamento":    string(ev.StatusPagamento),
		"dj_id":               ev.DJID,
		"dj_nome":             ev.DJNome,
		"created_at":          ev.CreatedAt.Format(time.RFC3339),
	}
}

// ListEvents returns events matching the filter, soonest first.
func (c *Client) ListEvents(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListEvents")
	defer span.End()

	path := "events?order=data_evento.asc"
	if filter.DJID != "" {
		path += "&dj_id=eq." + url.QueryEscape(filter.DJID)
	}
	if filter.StatusPagamento != "" {
		path += "&status_pagamento=eq." + url.QueryEscape(string(filter.StatusPagamento))
	}
	if !filter.From.IsZero() {
		path += "&data_evento=gte." + url.QueryEscape(filter.From.Format(time.RFC3339))
	}
	if !filter.To.IsZero() {
		path += "&data_evento=lte." + url.QueryEscape(filter.To.Format(time.RFC3339))
	}

	var events []domain.Event

	err := c.execute(ctx, "supabase/events", func() error {
		body, err := c.doGet(ctx, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			events = []domain.Event{}
			return nil
		}

		var rows []eventRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode events: %w", err)
		}

		events = make([]domain.Event, 0, len(rows))
		for _, r := range rows {
			events = append(events, r.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// GetEvent fetches one event with its payment proofs attached.
func (c *Client) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetEvent")
	defer span.End()
	span.SetAttributes(attribute.String("event.id", eventID))

	var event *domain.Event

	err := c.execute(ctx, "supabase/events", func() error {
		path := fmt.Sprintf("events?id=eq.%s&limit=1", url.QueryEscape(eventID))
		body, err := c.doGet(ctx, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			return &domain.ErrNotFound{Resource: "event", ID: eventID}
		}

		var rows []eventRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode events: %w", err)
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "event", ID: eventID}
		}

		ev := rows[0].toDomain()
		event = &ev
		return nil
	})
	if err != nil {
		return nil, err
	}

	proofs, err := c.ListPaymentProofs(ctx, eventID)
	if err == nil {
		event.PaymentProofs = proofs
	}
	return event, nil
}

// CreateEvent inserts an event and returns the stored record.
func (c *Client) CreateEvent(ctx context.Context, ev *domain.Event) (*domain.Event, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateEvent")
	defer span.End()

	var created *domain.Event

	err := c.execute(ctx, "supabase/events", func() error {
		body, err := c.doPost(ctx, "events", eventToRow(ev))
		if err != nil {
			return err
		}

		var rows []eventRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode created event: %w", err)
		}
		if len(rows) == 0 {
			return fmt.Errorf("insert returned no representation")
		}

		e := rows[0].toDomain()
		created = &e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateEvent patches an event and returns the updated record.
func (c *Client) UpdateEvent(ctx context.Context, eventID string, updates map[string]any) (*domain.Event, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateEvent")
	defer span.End()
	span.SetAttributes(attribute.String("event.id", eventID))

	updates["updated_at"] = time.Now().Format(time.RFC3339)

	var updated *domain.Event

	err := c.execute(ctx, "supabase/events", func() error {
		path := fmt.Sprintf("events?id=eq.%s", url.QueryEscape(eventID))
		body, err := c.doPatch(ctx, path, updates)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			return &domain.ErrNotFound{Resource: "event", ID: eventID}
		}

		var rows []eventRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode updated event: %w", err)
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "event", ID: eventID}
		}

		e := rows[0].toDomain()
		updated = &e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ============================================================
// Payment proofs
// ============================================================

type paymentProofRow struct {
	ID         string `json:"id"`
	EventID    string `json:"event_id"`
	ObjectKey  string `json:"object_key"`
	Name       string `json:"name"`
	UploadedAt string `json:"uploaded_at"`
}

// AddPaymentProof registers a proof record for an event.
func (c *Client) AddPaymentProof(ctx context.Context, eventID string, proof *domain.PaymentProof) error {
	ctx, span := tracer.Start(ctx, "Supabase.AddPaymentProof")
	defer span.End()
	span.SetAttributes(attribute.String("event.id", eventID))

	return c.execute(ctx, "supabase/events", func() error {
		_, err := c.doPost(ctx, "payment_proofs", map[string]any{
			"id":          proof.ID,
			"event_id":    eventID,
			"object_key":  proof.URL,
			"name":        proof.Name,
			"uploaded_at": proof.UploadedAt.Format(time.RFC3339),
		})
		return err
	})
}

// ListPaymentProofs returns an event's proofs ordered by upload time.
func (c *Client) ListPaymentProofs(ctx context.Context, eventID string) ([]domain.PaymentProof, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListPaymentProofs")
	defer span.End()
	span.SetAttributes(attribute.String("event.id", eventID))

	var proofs []domain.PaymentProof

	err := c.execute(ctx, "supabase/events", func() error {
		path := fmt.Sprintf("payment_proofs?event_id=eq.%s&order=uploaded_at.asc", url.QueryEscape(eventID))
		body, err := c.doGet(ctx, path)
		if err != nil {
			return err
		}
		if body == nil || string(body) == "[]" {
			proofs = []domain.PaymentProof{}
			return nil
		}

		var rows []paymentProofRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode payment_proofs: %w", err)
		}

		proofs = make([]domain.PaymentProof, 0, len(rows))
		for _, r := range rows {
			p := domain.PaymentProof{ID: r.ID, URL: r.ObjectKey, Name: r.Name}
			p.UploadedAt, _ = time.Parse(time.RFC3339, r.UploadedAt)
			proofs = append(proofs, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return proofs, nil
}
