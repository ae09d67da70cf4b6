package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/vibra/booking-console-go/internal/domain"
	"github.com/vibra/booking-console-go/internal/infra/observability"
	"github.com/vibra/booking-console-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var bookingTracer = otel.Tracer("service/booking")

const eventListCacheKey = "events:all"

var proofContentTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

// BookingService owns the event lifecycle: CRUD, the schedule view with
// per-row cachê estimates, payment tracking and proof attachments.
//
// Event listings can be served from cache; anything role-related cannot
// and never touches the cache.
type BookingService struct {
	events   port.EventStore
	profiles port.ProfileStore
	storage  port.ProofStorage
	cache    port.Cache[[]domain.Event]
	metrics  *observability.Metrics
	logger   *zap.Logger
}

func NewBookingService(
	events port.EventStore,
	profiles port.ProfileStore,
	storage port.ProofStorage,
	cache port.Cache[[]domain.Event],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		events:   events,
		profiles: profiles,
		storage:  storage,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
	}
}

// ============================================================
// Events CRUD
// ============================================================

func (s *BookingService) ListEvents(ctx context.Context, filter domain.EventFilter) ([]domain.Event, error) {
	ctx, span := bookingTracer.Start(ctx, "BookingService.ListEvents")
	defer span.End()

	// Only the unfiltered listing is cacheable; filtered views go straight
	// to the store.
	if filter == (domain.EventFilter{}) {
		if cached, ok := s.cache.Get(eventListCacheKey); ok {
			s.metrics.IncrCacheHit("events")
			return cached, nil
		}
		s.metrics.IncrCacheMiss("events")
	}

	evs, err := s.events.ListEvents(ctx, filter)
	if err != nil {
		s.metrics.IncrStoreError("events")
		return nil, err
	}

	if filter == (domain.EventFilter{}) {
		s.cache.Set(eventListCacheKey, evs)
	}
	return evs, nil
}

func (s *BookingService) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	ctx, span := bookingTracer.Start(ctx, "BookingService.GetEvent")
	defer span.End()
	span.SetAttributes(attribute.String("event_id", eventID))

	return s.events.GetEvent(ctx, eventID)
}

func (s *BookingService) CreateEvent(ctx context.Context, ev *domain.Event) (*domain.Event, error) {
	ctx, span := bookingTracer.Start(ctx, "BookingService.CreateEvent")
	defer span.End()

	if ev.StatusPagamento == "" {
		ev.StatusPagamento = domain.PaymentPendente
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	dj, err := s.profiles.GetProfile(ctx, ev.DJID)
	if err != nil {
		if IsNotFound(err) {
			return nil, &domain.ErrValidation{Field: "dj_id", Message: "DJ não encontrado"}
		}
		return nil, err
	}
	if dj.Role != domain.RoleDJ {
		return nil, &domain.ErrValidation{Field: "dj_id", Message: "Usuário atribuído não é um DJ"}
	}

	ev.ID = uuid.New().String()
	ev.DJNome = dj.DisplayName
	ev.CreatedAt = time.Now()

	created, err := s.events.CreateEvent(ctx, ev)
	if err != nil {
		s.metrics.IncrStoreError("events")
		return nil, &domain.ErrWrite{Resource: "event", Err: err}
	}

	s.cache.Delete(eventListCacheKey)
	s.logger.Info("event created",
		zap.String("event_id", created.ID),
		zap.String("dj_id", created.DJID),
	)
	return created, nil
}

func (s *BookingService) UpdateEvent(ctx context.Context, eventID string, updates map[string]any) (*domain.Event, error) {
	ctx, span := bookingTracer.Start(ctx, "BookingService.UpdateEvent")
	defer span.End()
	span.SetAttributes(attribute.String("event_id", eventID))

	if len(updates) == 0 {
		return s.events.GetEvent(ctx, eventID)
	}

	// Re-resolve the DJ name if the assignment changed.
	if djID, ok := updates["dj_id"].(string); ok {
		dj, err := s.profiles.GetProfile(ctx, djID)
		if err != nil {
			if IsNotFound(err) {
				return nil, &domain.ErrValidation{Field: "dj_id", Message: "DJ não encontrado"}
			}
			return nil, err
		}
		if dj.Role != domain.RoleDJ {
			return nil, &domain.ErrValidation{Field: "dj_id", Message: "Usuário atribuído não é um DJ"}
		}
		updates["dj_nome"] = dj.DisplayName
	}

	// Validate the prospective state before anything is written; a patch
	// must not be able to leave the event violating sinal <= total.
	current, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	prospective := applyEventUpdates(*current, updates)
	if err := prospective.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.events.UpdateEvent(ctx, eventID, updates)
	if err != nil {
		s.metrics.IncrStoreError("events")
		return nil, err
	}

	s.cache.Delete(eventListCacheKey)
	return updated, nil
}

// UpdatePayment changes an event's payment fields.
func (s *BookingService) UpdatePayment(ctx context.Context, eventID string, status domain.PaymentStatus, valorSinal *float64, conta *domain.ReceivingAccount) (*domain.Event, error) {
	ctx, span := bookingTracer.Start(ctx, "BookingService.UpdatePayment")
	defer span.End()
	span.SetAttributes(attribute.String("event_id", eventID))

	badge := domain.ClassifyPaymentStatus(string(status))
	if badge.Variant == domain.VariantUnknown {
		return nil, &domain.ErrValidation{Field: "status_pagamento", Message: "Status de pagamento inválido"}
	}

	updates := map[string]any{"status_pagamento": status}
	if valorSinal != nil {
		if *valorSinal < 0 {
			return nil, &domain.ErrValidation{Field: "valor_sinal", Message: "Valor do sinal não pode ser negativo"}
		}
		updates["valor_sinal"] = *valorSinal
	}
	if conta != nil {
		if *conta != domain.ReceivedByAgencia && *conta != domain.ReceivedByDJ {
			return nil, &domain.ErrValidation{Field: "conta_que_recebeu", Message: "Conta deve ser 'agencia' ou 'dj'"}
		}
		updates["conta_que_recebeu"] = *conta
	}

	current, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if next := applyEventUpdates(*current, updates); next.ValorSinal > next.ValorTotal {
		return nil, &domain.ErrValidation{Field: "valor_sinal", Message: "Sinal não pode exceder o valor total"}
	}

	updated, err := s.events.UpdateEvent(ctx, eventID, updates)
	if err != nil {
		s.metrics.IncrStoreError("events")
		return nil, err
	}

	s.cache.Delete(eventListCacheKey)
	s.logger.Info("payment updated",
		zap.String("event_id", eventID),
		zap.String("status", string(status)),
	)
	return updated, nil
}

// applyEventUpdates projects a patch onto a copy of the event so the
// resulting state can be validated before the store takes the write.
// Numeric values arrive as float64 when decoded from JSON bodies.
func applyEventUpdates(ev domain.Event, updates map[string]any) domain.Event {
	for k, v := range updates {
		switch k {
		case "nome_evento":
			if s, ok := v.(string); ok {
				ev.NomeEvento = s
			}
		case "local":
			if s, ok := v.(string); ok {
				ev.Local = s
			}
		case "contratante_nome":
			if s, ok := v.(string); ok {
				ev.ContratanteNome = s
			}
		case "contratante_contato":
			if s, ok := v.(string); ok {
				ev.ContratanteContato = s
			}
		case "valor_total":
			if f, ok := toFloat(v); ok {
				ev.ValorTotal = f
			}
		case "valor_sinal":
			if f, ok := toFloat(v); ok {
				ev.ValorSinal = f
			}
		case "dj_costs":
			if f, ok := toFloat(v); ok {
				ev.DJCosts = f
			}
		case "conta_que_recebeu":
			switch c := v.(type) {
			case domain.ReceivingAccount:
				ev.ContaQueRecebeu = c
			case string:
				ev.ContaQueRecebeu = domain.ReceivingAccount(c)
			}
		case "status_pagamento":
			switch st := v.(type) {
			case domain.PaymentStatus:
				ev.StatusPagamento = st
			case string:
				ev.StatusPagamento = domain.PaymentStatus(st)
			}
		case "dj_id":
			if s, ok := v.(string); ok {
				ev.DJID = s
			}
		case "dj_nome":
			if s, ok := v.(string); ok {
				ev.DJNome = s
			}
		}
	}
	return ev
}

func toFloat(v any) (float64, bool) {
	switch f := v.(type) {
	case float64:
		return f, true
	case int:
		return float64(f), true
	}
	return 0, false
}

// ============================================================
// Schedule view
// ============================================================

// Schedule assembles the agenda for a viewer: all events for staff roles,
// only the viewer's own events for a DJ. Cachê estimates appear only on
// the DJ's own rows; an absent or out-of-range percentual renders "N/A".
func (s *BookingService) Schedule(ctx context.Context, viewerUID string, viewerRole domain.Role) ([]domain.ScheduleRow, error) {
	ctx, span := bookingTracer.Start(ctx, "BookingService.Schedule")
	defer span.End()

	filter := domain.EventFilter{}
	if viewerRole == domain.RoleDJ {
		filter.DJID = viewerUID
	}

	var (
		evs     []domain.Event
		viewer  *domain.UserProfile
		g, gCtx = errgroup.WithContext(ctx)
	)
	g.Go(func() error {
		var err error
		evs, err = s.ListEvents(gCtx, filter)
		return err
	})
	if viewerRole == domain.RoleDJ {
		g.Go(func() error {
			var err error
			viewer, err = s.profiles.GetProfile(gCtx, viewerUID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows := make([]domain.ScheduleRow, 0, len(evs))
	for _, ev := range evs {
		row := domain.ScheduleRow{
			Event:  ev,
			Status: domain.ClassifyPaymentStatus(string(ev.StatusPagamento)),
		}
		if viewerRole == domain.RoleDJ && ev.DJID == viewerUID && viewer != nil {
			est, known := domain.EstimateCacheForDJ(ev.ValorTotal, viewer.DJPercentual)
			row.CacheKnown = known
			row.CacheEstimado = est
			if known {
				row.CacheDisplay = fmt.Sprintf("%.2f", est)
			} else {
				row.CacheDisplay = "N/A"
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ============================================================
// Finance summary
// ============================================================

func (s *BookingService) FinanceSummary(ctx context.Context, filter domain.EventFilter) (*domain.FinanceSummary, error) {
	ctx, span := bookingTracer.Start(ctx, "BookingService.FinanceSummary")
	defer span.End()

	var (
		evs      []domain.Event
		profiles []domain.UserProfile
		g, gCtx  = errgroup.WithContext(ctx)
	)
	g.Go(func() error {
		var err error
		evs, err = s.ListEvents(gCtx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		profiles, err = s.profiles.ListProfiles(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	percentByDJ := make(map[string]*float64, len(profiles))
	for _, p := range profiles {
		if p.Role == domain.RoleDJ {
			percentByDJ[p.UID] = p.DJPercentual
		}
	}

	summary := &domain.FinanceSummary{
		PorStatus: make(map[domain.PaymentStatus]float64),
	}
	for _, ev := range evs {
		if ev.StatusPagamento == domain.PaymentCancelado {
			summary.PorStatus[ev.StatusPagamento] += ev.ValorTotal
			continue
		}
		summary.TotalEventos++
		summary.ValorTotal += ev.ValorTotal
		summary.SinalRecebido += ev.ValorSinal
		switch ev.ContaQueRecebeu {
		case domain.ReceivedByAgencia:
			summary.SinalNaAgencia += ev.ValorSinal
		case domain.ReceivedByDJ:
			summary.SinalComDJ += ev.ValorSinal
		}
		summary.SaldoPendente += ev.ValorTotal - ev.ValorSinal
		summary.PorStatus[ev.StatusPagamento] += ev.ValorTotal

		if est, known := domain.EstimateCacheForDJ(ev.ValorTotal, percentByDJ[ev.DJID]); known {
			summary.CacheTotalEstimado += est
		}
	}
	return summary, nil
}

// ============================================================
// Payment proofs
// ============================================================

// ProofUploadTicket is a presigned PUT issued to the browser; the proof
// record is registered immediately so the listing stays consistent even
// before the object lands.
type ProofUploadTicket struct {
	ProofID   string `json:"proof_id"`
	UploadURL string `json:"upload_url"`
	Key       string `json:"key"`
}

func (s *BookingService) PresignProofUpload(ctx context.Context, eventID, fileName, contentType string) (*ProofUploadTicket, error) {
	ctx, span := bookingTracer.Start(ctx, "BookingService.PresignProofUpload")
	defer span.End()
	span.SetAttributes(attribute.String("event_id", eventID))

	ext, ok := proofContentTypes[strings.ToLower(contentType)]
	if !ok {
		return nil, &domain.ErrValidation{Field: "content_type", Message: "Comprovante deve ser PDF, JPG ou PNG"}
	}

	if _, err := s.events.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}

	proofID := uuid.New().String()
	key := proofKey(eventID, proofID, ext)

	uploadURL, err := s.storage.PresignUpload(ctx, key, contentType)
	if err != nil {
		return nil, fmt.Errorf("presign upload: %w", err)
	}

	proof := &domain.PaymentProof{
		ID:         proofID,
		URL:        key,
		Name:       sanitizeFileName(fileName, ext),
		UploadedAt: time.Now(),
	}
	if err := s.events.AddPaymentProof(ctx, eventID, proof); err != nil {
		s.metrics.IncrStoreError("events")
		return nil, &domain.ErrWrite{Resource: "payment_proof", Err: err}
	}

	return &ProofUploadTicket{ProofID: proofID, UploadURL: uploadURL, Key: key}, nil
}

// UploadProof stores the proof server-side, for clients that cannot do a
// browser-direct PUT.
func (s *BookingService) UploadProof(ctx context.Context, eventID, fileName, contentType string, body io.Reader, size int64) (*domain.PaymentProof, error) {
	ctx, span := bookingTracer.Start(ctx, "BookingService.UploadProof")
	defer span.End()
	span.SetAttributes(attribute.String("event_id", eventID))

	ext, ok := proofContentTypes[strings.ToLower(contentType)]
	if !ok {
		return nil, &domain.ErrValidation{Field: "content_type", Message: "Comprovante deve ser PDF, JPG ou PNG"}
	}

	if _, err := s.events.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}

	proofID := uuid.New().String()
	key := proofKey(eventID, proofID, ext)

	if _, err := s.storage.Upload(ctx, key, contentType, body, size); err != nil {
		return nil, fmt.Errorf("upload proof: %w", err)
	}

	proof := &domain.PaymentProof{
		ID:         proofID,
		URL:        key,
		Name:       sanitizeFileName(fileName, ext),
		UploadedAt: time.Now(),
	}
	if err := s.events.AddPaymentProof(ctx, eventID, proof); err != nil {
		s.metrics.IncrStoreError("events")
		return nil, &domain.ErrWrite{Resource: "payment_proof", Err: err}
	}

	s.logger.Info("payment proof uploaded",
		zap.String("event_id", eventID),
		zap.String("proof_id", proofID),
	)
	return proof, nil
}

// ListProofs returns the event's proofs with short-lived download URLs in
// place of raw object keys.
func (s *BookingService) ListProofs(ctx context.Context, eventID string) ([]domain.PaymentProof, error) {
	ctx, span := bookingTracer.Start(ctx, "BookingService.ListProofs")
	defer span.End()
	span.SetAttributes(attribute.String("event_id", eventID))

	proofs, err := s.events.ListPaymentProofs(ctx, eventID)
	if err != nil {
		return nil, err
	}
	for i := range proofs {
		url, err := s.storage.PresignDownload(ctx, proofs[i].URL)
		if err != nil {
			s.logger.Warn("presign download failed",
				zap.String("proof_id", proofs[i].ID),
				zap.Error(err),
			)
			continue
		}
		proofs[i].URL = url
	}
	return proofs, nil
}

func proofKey(eventID, proofID, ext string) string {
	return fmt.Sprintf("proofs/%s/%s%s", eventID, proofID, ext)
}

func sanitizeFileName(name, ext string) string {
	name = path.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == "/" {
		return "comprovante" + ext
	}
	return name
}
