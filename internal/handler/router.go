package handler

import (
	"net/http"
	"time"

	"github.com/vibra/booking-console-go/internal/domain"
	"github.com/vibra/booking-console-go/internal/infra/observability"
	"github.com/vibra/booking-console-go/internal/port"
	"github.com/vibra/booking-console-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Deps carries everything the router wires together.
type Deps struct {
	Auth    *service.AuthService
	Users   *service.UserService
	Booking *service.BookingService
	Roles   *service.RoleResolver
	Bus     port.SessionBus
	Metrics *observability.Metrics
	Logger  *zap.Logger
}

// staffRoles can see the full schedule and event listings.
var staffRoles = []domain.Role{
	domain.RoleAdmin, domain.RolePartner, domain.RoleFinance,
	domain.RoleManager, domain.RoleProducer,
}

// allRoles additionally admits DJs, whose view is scoped to their own
// events by the handlers.
var allRoles = append([]domain.Role{domain.RoleDJ}, staffRoles...)

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(d.Logger))
	r.Use(observability.MetricsMiddleware(d.Metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(d.Users, d.Logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// 1. Autenticação
		// =============================================
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authLoginHandler(d.Auth, d.Logger))
			r.Post("/refresh", authRefreshHandler(d.Auth, d.Logger))

			r.Group(func(r chi.Router) {
				r.Use(JWTAuthMiddleware(d.Auth, d.Logger))
				r.Post("/logout", authLogoutHandler(d.Auth, d.Logger))
				r.Get("/me", authMeHandler(d.Roles, d.Logger))
			})
		})

		// Everything below needs a valid session; the role gates sit per
		// route group and re-read the role on every request.
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(d.Auth, d.Logger))

			// =============================================
			// 2. Sessão ao vivo (WebSocket)
			// =============================================
			r.Get("/session/watch", sessionWatchHandler(d.Roles, d.Bus, d.Logger))

			// =============================================
			// 3. Usuários
			// =============================================
			r.Group(func(r chi.Router) {
				r.Use(RequireRoles(d.Roles, d.Metrics, d.Logger, domain.RoleAdmin, domain.RolePartner))
				r.Get("/users", listUsersHandler(d.Users, d.Logger))
				r.Get("/users/{uid}", getUserHandler(d.Users, d.Logger))
				r.Patch("/users/{uid}", updateUserHandler(d.Users, d.Logger))
			})
			r.Group(func(r chi.Router) {
				r.Use(RequireRoles(d.Roles, d.Metrics, d.Logger, staffRoles...))
				r.Get("/users/djs", listDJsHandler(d.Users, d.Logger))
			})

			// =============================================
			// 4. Eventos
			// =============================================
			r.Group(func(r chi.Router) {
				r.Use(RequireRoles(d.Roles, d.Metrics, d.Logger, allRoles...))
				r.Get("/events", listEventsHandler(d.Booking, d.Logger))
				r.Get("/events/{eventId}", getEventHandler(d.Booking, d.Logger))
				r.Get("/schedule", scheduleHandler(d.Booking, d.Logger))
			})
			r.Group(func(r chi.Router) {
				r.Use(RequireRoles(d.Roles, d.Metrics, d.Logger, domain.RoleAdmin, domain.RolePartner))
				r.Post("/events", createEventHandler(d.Booking, d.Logger))
				r.Patch("/events/{eventId}", updateEventHandler(d.Booking, d.Logger))
			})

			// =============================================
			// 5. Pagamento e comprovantes
			// =============================================
			r.Group(func(r chi.Router) {
				r.Use(RequireRoles(d.Roles, d.Metrics, d.Logger,
					domain.RoleAdmin, domain.RolePartner, domain.RoleFinance))
				r.Patch("/events/{eventId}/payment", updatePaymentHandler(d.Booking, d.Logger))
				r.Post("/events/{eventId}/proofs/presign", presignProofHandler(d.Booking, d.Logger))
				r.Post("/events/{eventId}/proofs", uploadProofHandler(d.Booking, d.Logger))
				r.Get("/events/{eventId}/proofs", listProofsHandler(d.Booking, d.Logger))
			})

			// =============================================
			// 6. Financeiro
			// =============================================
			r.Group(func(r chi.Router) {
				r.Use(RequireRoles(d.Roles, d.Metrics, d.Logger,
					domain.RoleAdmin, domain.RolePartner, domain.RoleFinance))
				r.Get("/finance/summary", financeSummaryHandler(d.Booking, d.Logger))
			})

			// =============================================
			// 7. Métricas do console
			// =============================================
			r.Group(func(r chi.Router) {
				r.Use(RequireRoles(d.Roles, d.Metrics, d.Logger, domain.RoleAdmin))
				r.Get("/metrics/console", consoleMetricsHandler(d.Metrics, d.Logger))
			})
		})
	})

	return r
}

// ============================================================
// Operational handlers
// ============================================================

func healthzHandler(userSvc *service.UserService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "booking-console", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		if userSvc != nil {
			start := time.Now()
			_, err := userSvc.ListUsers(ctx)
			latency := time.Since(start).Milliseconds()
			status := "healthy"
			if err != nil {
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: "supabase", Status: status, LatencyMs: latency, LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		statusCode := http.StatusOK
		if overallStatus == "unhealthy" {
			statusCode = http.StatusServiceUnavailable
		}
		writeJSON(w, statusCode, domain.HealthStatus{Status: overallStatus, Services: services})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func consoleMetricsHandler(metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/metrics/console")
		defer span.End()

		writeJSON(w, http.StatusOK, metrics.GetConsoleSnapshot())
	}
}
