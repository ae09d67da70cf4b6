package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/vibra/booking-console-go/internal/domain"
	"github.com/vibra/booking-console-go/internal/infra/storage"
	"github.com/vibra/booking-console-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Eventos — /v1/events
// ============================================================

func parseEventFilter(r *http.Request) domain.EventFilter {
	q := r.URL.Query()
	filter := domain.EventFilter{
		DJID:            q.Get("dj_id"),
		StatusPagamento: domain.PaymentStatus(q.Get("status_pagamento")),
	}
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.From = t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.To = t
		}
	}
	return filter
}

func listEventsHandler(bookingSvc *service.BookingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/events")
		defer span.End()

		// A DJ only ever sees their own events, whatever the query says.
		filter := parseEventFilter(r)
		if RoleFromContext(ctx) == domain.RoleDJ {
			filter.DJID = PrincipalFromContext(ctx).UID
		}

		events, err := bookingSvc.ListEvents(ctx, filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"events": events,
			"total":  len(events),
		})
	}
}

func getEventHandler(bookingSvc *service.BookingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/events/{eventId}")
		defer span.End()

		eventID := chi.URLParam(r, "eventId")
		span.SetAttributes(attribute.String("event.id", eventID))

		event, err := bookingSvc.GetEvent(ctx, eventID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if RoleFromContext(ctx) == domain.RoleDJ && event.DJID != PrincipalFromContext(ctx).UID {
			writeDenied(w, http.StatusForbidden, "Acesso negado")
			return
		}

		writeJSON(w, http.StatusOK, event)
	}
}

func createEventHandler(bookingSvc *service.BookingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/events")
		defer span.End()

		var ev domain.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		created, err := bookingSvc.CreateEvent(ctx, &ev)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, created)
	}
}

func updateEventHandler(bookingSvc *service.BookingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/events/{eventId}")
		defer span.End()

		eventID := chi.URLParam(r, "eventId")
		span.SetAttributes(attribute.String("event.id", eventID))

		var updates map[string]any
		if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		delete(updates, "id")
		delete(updates, "created_at")

		updated, err := bookingSvc.UpdateEvent(ctx, eventID, updates)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, updated)
	}
}

// ============================================================
// Pagamento — /v1/events/{eventId}/payment
// ============================================================

type updatePaymentRequest struct {
	StatusPagamento domain.PaymentStatus     `json:"status_pagamento"`
	ValorSinal      *float64                 `json:"valor_sinal,omitempty"`
	ContaQueRecebeu *domain.ReceivingAccount `json:"conta_que_recebeu,omitempty"`
}

func updatePaymentHandler(bookingSvc *service.BookingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/events/{eventId}/payment")
		defer span.End()

		eventID := chi.URLParam(r, "eventId")
		span.SetAttributes(attribute.String("event.id", eventID))

		var req updatePaymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		updated, err := bookingSvc.UpdatePayment(ctx, eventID, req.StatusPagamento, req.ValorSinal, req.ContaQueRecebeu)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, updated)
	}
}

// ============================================================
// Comprovantes — /v1/events/{eventId}/proofs
// ============================================================

type presignProofRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
}

func presignProofHandler(bookingSvc *service.BookingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/events/{eventId}/proofs/presign")
		defer span.End()

		eventID := chi.URLParam(r, "eventId")
		span.SetAttributes(attribute.String("event.id", eventID))

		var req presignProofRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		ticket, err := bookingSvc.PresignProofUpload(ctx, eventID, req.FileName, req.ContentType)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, ticket)
	}
}

func uploadProofHandler(bookingSvc *service.BookingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/events/{eventId}/proofs")
		defer span.End()

		eventID := chi.URLParam(r, "eventId")
		span.SetAttributes(attribute.String("event.id", eventID))

		r.Body = http.MaxBytesReader(w, r.Body, storage.MaxProofFileSize)
		if err := r.ParseMultipartForm(storage.MaxProofFileSize); err != nil {
			writeError(w, http.StatusBadRequest, "Comprovante excede o tamanho máximo de 10MB")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "Arquivo 'file' é obrigatório")
			return
		}
		defer file.Close()

		proof, err := bookingSvc.UploadProof(ctx, eventID, header.Filename, header.Header.Get("Content-Type"), file, header.Size)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, proof)
	}
}

func listProofsHandler(bookingSvc *service.BookingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/events/{eventId}/proofs")
		defer span.End()

		eventID := chi.URLParam(r, "eventId")
		span.SetAttributes(attribute.String("event.id", eventID))

		proofs, err := bookingSvc.ListProofs(ctx, eventID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"proofs": proofs,
			"total":  len(proofs),
		})
	}
}

// ============================================================
// Agenda — /v1/schedule
// ============================================================

func scheduleHandler(bookingSvc *service.BookingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/schedule")
		defer span.End()

		principal := PrincipalFromContext(ctx)
		rows, err := bookingSvc.Schedule(ctx, principal.UID, RoleFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"schedule": rows,
			"total":    len(rows),
		})
	}
}

// ============================================================
// Financeiro — /v1/finance/summary
// ============================================================

func financeSummaryHandler(bookingSvc *service.BookingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/finance/summary")
		defer span.End()

		summary, err := bookingSvc.FinanceSummary(ctx, parseEventFilter(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, summary)
	}
}
