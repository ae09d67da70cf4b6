package service_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/vibra/booking-console-go/internal/domain"
	"github.com/vibra/booking-console-go/internal/infra/cache"
	"github.com/vibra/booking-console-go/internal/infra/observability"
	"github.com/vibra/booking-console-go/internal/service"

	"go.uber.org/zap"
)

// --- Mocks ---

type mockEventStore struct {
	events map[string]*domain.Event
	proofs map[string][]domain.PaymentProof
	lists  int
	err    error
}

func newMockEventStore(events ...*domain.Event) *mockEventStore {
	m := &mockEventStore{
		events: make(map[string]*domain.Event),
		proofs: make(map[string][]domain.PaymentProof),
	}
	for _, ev := range events {
		m.events[ev.ID] = ev
	}
	return m
}

func (m *mockEventStore) ListEvents(_ context.Context, filter domain.EventFilter) ([]domain.Event, error) {
	m.lists++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Event, 0, len(m.events))
	for _, ev := range m.events {
		if filter.DJID != "" && ev.DJID != filter.DJID {
			continue
		}
		if filter.StatusPagamento != "" && ev.StatusPagamento != filter.StatusPagamento {
			continue
		}
		out = append(out, *ev)
	}
	return out, nil
}

func (m *mockEventStore) GetEvent(_ context.Context, eventID string) (*domain.Event, error) {
	if m.err != nil {
		return nil, m.err
	}
	ev, ok := m.events[eventID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "event", ID: eventID}
	}
	return ev, nil
}

func (m *mockEventStore) CreateEvent(_ context.Context, ev *domain.Event) (*domain.Event, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.events[ev.ID] = ev
	return ev, nil
}

func (m *mockEventStore) UpdateEvent(_ context.Context, eventID string, updates map[string]any) (*domain.Event, error) {
	if m.err != nil {
		return nil, m.err
	}
	ev, ok := m.events[eventID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "event", ID: eventID}
	}
	if v, ok := updates["status_pagamento"].(domain.PaymentStatus); ok {
		ev.StatusPagamento = v
	}
	if v, ok := updates["valor_total"].(float64); ok {
		ev.ValorTotal = v
	}
	if v, ok := updates["valor_sinal"].(float64); ok {
		ev.ValorSinal = v
	}
	if v, ok := updates["conta_que_recebeu"].(domain.ReceivingAccount); ok {
		ev.ContaQueRecebeu = v
	}
	if v, ok := updates["dj_id"].(string); ok {
		ev.DJID = v
	}
	if v, ok := updates["dj_nome"].(string); ok {
		ev.DJNome = v
	}
	return ev, nil
}

func (m *mockEventStore) AddPaymentProof(_ context.Context, eventID string, proof *domain.PaymentProof) error {
	if m.err != nil {
		return m.err
	}
	m.proofs[eventID] = append(m.proofs[eventID], *proof)
	return nil
}

func (m *mockEventStore) ListPaymentProofs(_ context.Context, eventID string) ([]domain.PaymentProof, error) {
	return m.proofs[eventID], m.err
}

type mockProofStorage struct {
	uploads []string
}

func (m *mockProofStorage) PresignUpload(_ context.Context, key, _ string) (string, error) {
	return "https://s3.test/upload/" + key, nil
}

func (m *mockProofStorage) PresignDownload(_ context.Context, key string) (string, error) {
	return "https://s3.test/download/" + key, nil
}

func (m *mockProofStorage) Upload(_ context.Context, key, _ string, _ io.Reader, _ int64) (string, error) {
	m.uploads = append(m.uploads, key)
	return "https://s3.test/" + key, nil
}

func ptrFloat(f float64) *float64 { return &f }

func newBookingService(events *mockEventStore, profiles *countingProfileStore) *service.BookingService {
	return service.NewBookingService(
		events,
		profiles,
		&mockProofStorage{},
		cache.New[[]domain.Event](time.Minute),
		observability.NewMetrics(),
		zap.NewNop(),
	)
}

func testEvent(id, djID string, valorTotal float64) *domain.Event {
	return &domain.Event{
		ID:              id,
		NomeEvento:      "Evento " + id,
		DataEvento:      time.Date(2026, 9, 12, 22, 0, 0, 0, time.UTC),
		Local:           "São Paulo",
		ContratanteNome: "Contratante",
		ValorTotal:      valorTotal,
		ValorSinal:      valorTotal / 2,
		ContaQueRecebeu: domain.ReceivedByAgencia,
		StatusPagamento: domain.PaymentParcial,
		DJID:            djID,
		DJNome:          "DJ " + djID,
	}
}

// --- Tests ---

func TestCreateEvent_AssignsOnlyDJs(t *testing.T) {
	profiles := &countingProfileStore{profiles: map[string]*domain.UserProfile{
		"u-dj":    {UID: "u-dj", DisplayName: "DJ Luna", Role: domain.RoleDJ},
		"u-admin": {UID: "u-admin", DisplayName: "Chefe", Role: domain.RoleAdmin},
	}}
	svc := newBookingService(newMockEventStore(), profiles)

	ev := testEvent("", "u-dj", 3000)
	ev.ID = ""
	created, err := svc.CreateEvent(context.Background(), ev)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if created.ID == "" {
		t.Error("expected a generated event id")
	}
	if created.DJNome != "DJ Luna" {
		t.Errorf("expected dj name denormalized from profile, got %q", created.DJNome)
	}

	bad := testEvent("", "u-admin", 3000)
	bad.ID = ""
	if _, err := svc.CreateEvent(context.Background(), bad); err == nil {
		t.Error("expected rejection when assignee is not a dj")
	}

	ghost := testEvent("", "u-ghost", 3000)
	ghost.ID = ""
	if _, err := svc.CreateEvent(context.Background(), ghost); err == nil {
		t.Error("expected rejection for unknown dj")
	}
}

func TestCreateEvent_ValidatesMoney(t *testing.T) {
	profiles := &countingProfileStore{profiles: map[string]*domain.UserProfile{
		"u-dj": {UID: "u-dj", Role: domain.RoleDJ},
	}}
	svc := newBookingService(newMockEventStore(), profiles)

	ev := testEvent("", "u-dj", 1000)
	ev.ID = ""
	ev.ValorSinal = 1500 // sinal above total
	if _, err := svc.CreateEvent(context.Background(), ev); err == nil {
		t.Error("expected validation error for sinal exceeding total")
	}
}

func TestListEvents_CachesUnfilteredListing(t *testing.T) {
	events := newMockEventStore(testEvent("ev-1", "u-dj", 1000))
	svc := newBookingService(events, &countingProfileStore{})

	for i := 0; i < 3; i++ {
		if _, err := svc.ListEvents(context.Background(), domain.EventFilter{}); err != nil {
			t.Fatalf("list: %v", err)
		}
	}
	if events.lists != 1 {
		t.Errorf("expected 1 store list behind the cache, got %d", events.lists)
	}

	// Filtered listings bypass the cache.
	if _, err := svc.ListEvents(context.Background(), domain.EventFilter{DJID: "u-dj"}); err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if events.lists != 2 {
		t.Errorf("expected filtered list to hit the store, got %d lists", events.lists)
	}
}

func TestUpdatePayment_InvalidStatusRejected(t *testing.T) {
	events := newMockEventStore(testEvent("ev-1", "u-dj", 1000))
	svc := newBookingService(events, &countingProfileStore{})

	if _, err := svc.UpdatePayment(context.Background(), "ev-1", "quitado", nil, nil); err == nil {
		t.Error("expected unknown payment status to be rejected")
	}

	updated, err := svc.UpdatePayment(context.Background(), "ev-1", domain.PaymentPago, nil, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.StatusPagamento != domain.PaymentPago {
		t.Errorf("expected status pago, got %q", updated.StatusPagamento)
	}
}

func TestUpdatePayment_SinalCannotExceedTotal(t *testing.T) {
	events := newMockEventStore(testEvent("ev-1", "u-dj", 1000))
	svc := newBookingService(events, &countingProfileStore{})

	_, err := svc.UpdatePayment(context.Background(), "ev-1", domain.PaymentParcial, ptrFloat(5000), nil)
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error for sinal > total, got %v", err)
	}
	if events.events["ev-1"].ValorSinal != 500 {
		t.Errorf("store took the invalid write: valor_sinal = %v", events.events["ev-1"].ValorSinal)
	}

	// At the limit the update is fine.
	updated, err := svc.UpdatePayment(context.Background(), "ev-1", domain.PaymentPago, ptrFloat(1000), nil)
	if err != nil {
		t.Fatalf("expected sinal == total to pass, got %v", err)
	}
	if updated.ValorSinal != 1000 {
		t.Errorf("expected valor_sinal 1000, got %v", updated.ValorSinal)
	}
}

func TestUpdateEvent_RejectsInvalidProspectiveState(t *testing.T) {
	events := newMockEventStore(testEvent("ev-1", "u-dj", 1000))
	svc := newBookingService(events, &countingProfileStore{})

	// Raising the sinal above the total must fail before the write lands.
	_, err := svc.UpdateEvent(context.Background(), "ev-1", map[string]any{"valor_sinal": 5000.0})
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if events.events["ev-1"].ValorSinal != 500 {
		t.Errorf("store took the invalid write: valor_sinal = %v", events.events["ev-1"].ValorSinal)
	}

	// Lowering the total below the current sinal is the same violation.
	if _, err := svc.UpdateEvent(context.Background(), "ev-1", map[string]any{"valor_total": 100.0}); err == nil {
		t.Error("expected lowering total below sinal to be rejected")
	}

	// A consistent patch of both fields goes through.
	updated, err := svc.UpdateEvent(context.Background(), "ev-1", map[string]any{
		"valor_total": 100.0,
		"valor_sinal": 100.0,
	})
	if err != nil {
		t.Fatalf("expected consistent patch to pass, got %v", err)
	}
	if updated.ValorTotal != 100 || updated.ValorSinal != 100 {
		t.Errorf("expected 100/100, got %v/%v", updated.ValorTotal, updated.ValorSinal)
	}
}

func TestSchedule_DJSeesOwnRowsWithCacheEstimate(t *testing.T) {
	events := newMockEventStore(
		testEvent("ev-mine", "u-dj", 2000),
		testEvent("ev-other", "u-other", 9000),
	)
	profiles := &countingProfileStore{profiles: map[string]*domain.UserProfile{
		"u-dj": {UID: "u-dj", DisplayName: "DJ Luna", Role: domain.RoleDJ, DJPercentual: ptrFloat(0.6)},
	}}
	svc := newBookingService(events, profiles)

	rows, err := svc.Schedule(context.Background(), "u-dj", domain.RoleDJ)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected dj to see only own events, got %d rows", len(rows))
	}

	row := rows[0]
	if !row.CacheKnown {
		t.Fatal("expected a known cachê estimate")
	}
	if row.CacheEstimado != 1200 {
		t.Errorf("expected estimate 1200 (2000 x 0.6), got %v", row.CacheEstimado)
	}
	if row.CacheDisplay != "1200.00" {
		t.Errorf("expected display '1200.00', got %q", row.CacheDisplay)
	}
	if row.Status.Label != "Parcial" {
		t.Errorf("expected badge 'Parcial', got %q", row.Status.Label)
	}
}

func TestSchedule_MissingPercentualRendersNA(t *testing.T) {
	events := newMockEventStore(testEvent("ev-1", "u-dj", 2000))
	profiles := &countingProfileStore{profiles: map[string]*domain.UserProfile{
		"u-dj": {UID: "u-dj", Role: domain.RoleDJ}, // no percentual
	}}
	svc := newBookingService(events, profiles)

	rows, err := svc.Schedule(context.Background(), "u-dj", domain.RoleDJ)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if rows[0].CacheKnown {
		t.Error("expected unknown estimate without a percentual")
	}
	if rows[0].CacheDisplay != "N/A" {
		t.Errorf("expected 'N/A', got %q", rows[0].CacheDisplay)
	}
}

func TestSchedule_StaffSeesAllRowsWithoutEstimates(t *testing.T) {
	events := newMockEventStore(
		testEvent("ev-1", "u-dj", 2000),
		testEvent("ev-2", "u-other", 9000),
	)
	svc := newBookingService(events, &countingProfileStore{})

	rows, err := svc.Schedule(context.Background(), "u-admin", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected all events for staff, got %d", len(rows))
	}
	for _, row := range rows {
		if row.CacheDisplay != "" {
			t.Errorf("expected no estimate on staff rows, got %q", row.CacheDisplay)
		}
	}
}

func TestFinanceSummary_Aggregates(t *testing.T) {
	cancelled := testEvent("ev-cancel", "u-dj", 5000)
	cancelled.StatusPagamento = domain.PaymentCancelado

	djReceived := testEvent("ev-2", "u-dj", 1000)
	djReceived.ContaQueRecebeu = domain.ReceivedByDJ

	events := newMockEventStore(
		testEvent("ev-1", "u-dj", 2000), // sinal 1000 na agência
		djReceived,                      // sinal 500 com o dj
		cancelled,
	)
	profiles := &countingProfileStore{profiles: map[string]*domain.UserProfile{
		"u-dj": {UID: "u-dj", Role: domain.RoleDJ, DJPercentual: ptrFloat(0.5)},
	}}
	svc := newBookingService(events, profiles)

	sum, err := svc.FinanceSummary(context.Background(), domain.EventFilter{})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalEventos != 2 {
		t.Errorf("expected 2 active events, got %d", sum.TotalEventos)
	}
	if sum.ValorTotal != 3000 {
		t.Errorf("expected valor total 3000, got %v", sum.ValorTotal)
	}
	if sum.SinalNaAgencia != 1000 {
		t.Errorf("expected 1000 na agência, got %v", sum.SinalNaAgencia)
	}
	if sum.SinalComDJ != 500 {
		t.Errorf("expected 500 com o dj, got %v", sum.SinalComDJ)
	}
	if sum.SaldoPendente != 1500 {
		t.Errorf("expected saldo pendente 1500, got %v", sum.SaldoPendente)
	}
	if sum.CacheTotalEstimado != 1500 {
		t.Errorf("expected cachê estimado 1500 (0.5 x 3000), got %v", sum.CacheTotalEstimado)
	}
	if sum.PorStatus[domain.PaymentCancelado] != 5000 {
		t.Errorf("expected cancelado bucket 5000, got %v", sum.PorStatus[domain.PaymentCancelado])
	}
}

func TestProofs_ContentTypeValidation(t *testing.T) {
	events := newMockEventStore(testEvent("ev-1", "u-dj", 1000))
	svc := newBookingService(events, &countingProfileStore{})

	if _, err := svc.PresignProofUpload(context.Background(), "ev-1", "virus.exe", "application/octet-stream"); err == nil {
		t.Error("expected non-document content type to be rejected")
	}

	ticket, err := svc.PresignProofUpload(context.Background(), "ev-1", "comprovante.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if ticket.UploadURL == "" || ticket.ProofID == "" {
		t.Errorf("incomplete ticket: %+v", ticket)
	}
	if !strings.HasPrefix(ticket.Key, "proofs/ev-1/") {
		t.Errorf("unexpected object key %q", ticket.Key)
	}
}

func TestListProofs_PresignsDownloadURLs(t *testing.T) {
	events := newMockEventStore(testEvent("ev-1", "u-dj", 1000))
	svc := newBookingService(events, &countingProfileStore{})

	if _, err := svc.UploadProof(context.Background(), "ev-1", "recibo.jpg", "image/jpeg", strings.NewReader("data"), 4); err != nil {
		t.Fatalf("upload: %v", err)
	}

	proofs, err := svc.ListProofs(context.Background(), "ev-1")
	if err != nil {
		t.Fatalf("list proofs: %v", err)
	}
	if len(proofs) != 1 {
		t.Fatalf("expected 1 proof, got %d", len(proofs))
	}
	if !strings.HasPrefix(proofs[0].URL, "https://s3.test/download/") {
		t.Errorf("expected presigned download url, got %q", proofs[0].URL)
	}
}
