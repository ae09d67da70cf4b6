package handler

import (
	"encoding/json"
	"net/http"

	"github.com/vibra/booking-console-go/internal/domain"
	"github.com/vibra/booking-console-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Usuários — /v1/users
// ============================================================

func listUsersHandler(userSvc *service.UserService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users")
		defer span.End()

		users, err := userSvc.ListUsers(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"users": users,
			"total": len(users),
		})
	}
}

func listDJsHandler(userSvc *service.UserService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/djs")
		defer span.End()

		djs, err := userSvc.ListDJs(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"djs":   djs,
			"total": len(djs),
		})
	}
}

func getUserHandler(userSvc *service.UserService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{uid}")
		defer span.End()

		uid := chi.URLParam(r, "uid")
		if uid == "" {
			writeError(w, http.StatusBadRequest, "uid is required")
			return
		}
		span.SetAttributes(attribute.String("principal.uid", uid))

		user, err := userSvc.GetUser(ctx, uid)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, user)
	}
}

func updateUserHandler(userSvc *service.UserService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/users/{uid}")
		defer span.End()

		uid := chi.URLParam(r, "uid")
		if uid == "" {
			writeError(w, http.StatusBadRequest, "uid is required")
			return
		}
		span.SetAttributes(attribute.String("principal.uid", uid))

		var req domain.UpdateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		updated, err := userSvc.UpdateUser(ctx, uid, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, updated)
	}
}
