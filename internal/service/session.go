package service

import (
	"context"
	"sync"

	"github.com/vibra/booking-console-go/internal/domain"
	"github.com/vibra/booking-console-go/internal/port"

	"go.uber.org/zap"
)

// SessionResolver observes an identity provider's auth-state stream and
// maintains the current session state (principal + resolved role + loading).
// Each principal transition triggers exactly one fresh role read; rapid
// transitions are disambiguated by a generation counter so a read started
// under an older principal can never overwrite newer state.
//
// Lifecycle: NewSessionResolver starts in the loading state and establishes
// the single upstream subscription. Close releases the subscription and
// detaches all watchers; any in-flight role read completing after Close is
// a no-op. Close is safe on every exit path, including an early teardown
// while still pending.
type SessionResolver struct {
	roles  *RoleResolver
	logger *zap.Logger

	mu          sync.Mutex
	state       SessionState
	gen         uint64
	watchers    map[int]chan SessionState
	nextWatcher int
	unsubscribe func()
	cancel      context.CancelFunc
	ctx         context.Context
	closed      bool
}

// NewSessionResolver subscribes to the stream and returns the resolver.
// The initial state is loading=true with no principal.
func NewSessionResolver(stream port.AuthStateStream, roles *RoleResolver, logger *zap.Logger) *SessionResolver {
	ctx, cancel := context.WithCancel(context.Background())
	r := &SessionResolver{
		roles:    roles,
		logger:   logger,
		state:    SessionState{Loading: true},
		watchers: make(map[int]chan SessionState),
		ctx:      ctx,
		cancel:   cancel,
	}
	r.unsubscribe = stream.Subscribe(r.onAuthChange)
	return r
}

// Current returns the latest session state.
func (r *SessionResolver) Current() SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Watch registers a watcher that receives every state change, starting with
// the current state. The returned cancel detaches the watcher.
func (r *SessionResolver) Watch() (<-chan SessionState, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan SessionState, 8)
	id := r.nextWatcher
	r.nextWatcher++
	if !r.closed {
		r.watchers[id] = ch
		ch <- r.state
	} else {
		close(ch)
	}

	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if w, ok := r.watchers[id]; ok {
			delete(r.watchers, id)
			close(w)
		}
	}
}

// Close releases the upstream subscription and detaches all watchers.
// Idempotent.
func (r *SessionResolver) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	unsub := r.unsubscribe
	r.unsubscribe = nil
	for id, ch := range r.watchers {
		delete(r.watchers, id)
		close(ch)
	}
	r.mu.Unlock()

	r.cancel()
	if unsub != nil {
		unsub()
	}
}

// onAuthChange handles a pushed auth-state transition.
func (r *SessionResolver) onAuthChange(p *domain.Principal) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.gen++
	gen := r.gen

	if p == nil {
		// Signed out: resolved immediately, no role read.
		r.setStateLocked(SessionState{Principal: nil, Role: domain.RoleNone, Loading: false})
		r.mu.Unlock()
		return
	}
	// Back to loading until the fresh role read lands; gates must not
	// evaluate against the previous principal's role.
	r.setStateLocked(SessionState{Principal: p, Role: domain.RoleNone, Loading: true})
	r.mu.Unlock()

	// One fresh role read per transition. The read runs off the callback
	// goroutine so a slow store cannot block the auth stream.
	go func() {
		role, _ := r.roles.Resolve(r.ctx, p.UID)

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed || gen != r.gen {
			// Session moved on (or tore down) while the read was in
			// flight. Discard.
			r.logger.Debug("session: discarding stale role resolution",
				zap.String("uid", p.UID),
			)
			return
		}
		r.setStateLocked(SessionState{Principal: p, Role: role, Loading: false})
	}()
}

// setStateLocked updates state and notifies watchers. r.mu must be held.
func (r *SessionResolver) setStateLocked(st SessionState) {
	r.state = st
	for _, ch := range r.watchers {
		select {
		case ch <- st:
		default:
			// Watcher is not draining; drop rather than block the resolver.
		}
	}
}
