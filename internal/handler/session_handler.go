package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/vibra/booking-console-go/internal/domain"
	"github.com/vibra/booking-console-go/internal/port"
	"github.com/vibra/booking-console-go/internal/service"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ============================================================
// Sessão ao vivo — GET /v1/session/watch (WebSocket)
// ============================================================

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect cross-origin from the console frontend;
	// auth happens via the bearer token, not the origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// sessionWatchMessage is one push frame: the session state plus the gate
// decision for the roles the client asked about.
type sessionWatchMessage struct {
	State    service.SessionState `json:"state"`
	Decision service.Decision     `json:"decision"`
	Redirect string               `json:"redirect,omitempty"`
}

// busAuthStream adapts the session bus into an auth-state stream for one
// principal: it emits the principal immediately, re-emits it on a role
// change (forcing a fresh role read) and emits nil on a forced sign-out.
type busAuthStream struct {
	bus       port.SessionBus
	principal *domain.Principal
	logger    *zap.Logger
}

func (s *busAuthStream) Subscribe(onChange func(*domain.Principal)) (unsubscribe func()) {
	onChange(s.principal)

	cancel, err := s.bus.Subscribe(s.principal.UID, func(ev domain.SessionEvent) {
		switch ev.Type {
		case domain.SessionRoleChanged:
			onChange(s.principal)
		case domain.SessionSignedOut:
			onChange(nil)
		}
	})
	if err != nil {
		s.logger.Warn("session watch: bus subscribe failed",
			zap.String("uid", s.principal.UID),
			zap.Error(err),
		)
		return func() {}
	}
	return cancel
}

func parseRequiredRoles(r *http.Request) []domain.Role {
	raw := r.URL.Query().Get("roles")
	if raw == "" {
		return nil
	}
	var roles []domain.Role
	for _, part := range strings.Split(raw, ",") {
		role := domain.Role(strings.TrimSpace(part))
		if role.Valid() {
			roles = append(roles, role)
		}
	}
	return roles
}

// sessionWatchHandler upgrades to WebSocket and pushes a frame on every
// session-state change until the client disconnects. Teardown always
// releases the resolver and its bus subscription, whichever side closes.
func sessionWatchHandler(roles *service.RoleResolver, bus port.SessionBus, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := PrincipalFromContext(r.Context())
		if principal == nil {
			writeDenied(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		required := parseRequiredRoles(r)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("session watch: upgrade failed", zap.Error(err))
			return
		}

		stream := &busAuthStream{bus: bus, principal: principal, logger: logger}
		resolver := service.NewSessionResolver(stream, roles, logger)
		states, cancelWatch := resolver.Watch()

		defer func() {
			cancelWatch()
			resolver.Close()
			conn.Close()
		}()

		// Read pump: the client sends nothing meaningful, but reads are
		// how we notice the peer going away.
		done := make(chan struct{})
		go func() {
			defer close(done)
			conn.SetReadDeadline(time.Now().Add(pongWait))
			conn.SetPongHandler(func(string) error {
				return conn.SetReadDeadline(time.Now().Add(pongWait))
			})
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case st, ok := <-states:
				if !ok {
					return
				}
				msg := sessionWatchMessage{
					State:    st,
					Decision: service.Decide(required, st),
				}
				if msg.Decision == service.DecisionRedirect {
					msg.Redirect = service.LoginDestination
				}
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(msg); err != nil {
					return
				}
				// A signed-out session has nothing more to push.
				if !st.Loading && st.Principal == nil {
					return
				}
			}
		}
	}
}
