package service_test

import (
	"testing"
	"time"

	"github.com/vibra/booking-console-go/internal/domain"
	"github.com/vibra/booking-console-go/internal/infra/observability"
	"github.com/vibra/booking-console-go/internal/service"

	"go.uber.org/zap"
)

// --- Mocks ---

// fakeAuthStream lets a test push auth transitions by hand and observe
// subscription teardown.
type fakeAuthStream struct {
	onChange     func(*domain.Principal)
	unsubscribed int
}

func (f *fakeAuthStream) Subscribe(onChange func(*domain.Principal)) func() {
	f.onChange = onChange
	return func() { f.unsubscribed++ }
}

func (f *fakeAuthStream) push(p *domain.Principal) {
	f.onChange(p)
}

func waitForState(t *testing.T, r *service.SessionResolver, pred func(service.SessionState) bool) service.SessionState {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st := r.Current()
		if pred(st) {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state never reached expectation; last: %+v", r.Current())
	return service.SessionState{}
}

func newSessionResolver(stream *fakeAuthStream, store *countingProfileStore) *service.SessionResolver {
	roles := service.NewRoleResolver(store, observability.NewMetrics(), zap.NewNop())
	return service.NewSessionResolver(stream, roles, zap.NewNop())
}

// --- Tests ---

func TestSessionResolver_StartsLoading(t *testing.T) {
	stream := &fakeAuthStream{}
	r := newSessionResolver(stream, &countingProfileStore{})
	defer r.Close()

	st := r.Current()
	if !st.Loading {
		t.Error("expected initial state to be loading")
	}
	if st.Principal != nil {
		t.Errorf("expected no principal initially, got %+v", st.Principal)
	}
}

func TestSessionResolver_SignInResolvesRoleOnce(t *testing.T) {
	stream := &fakeAuthStream{}
	store := &countingProfileStore{profiles: map[string]*domain.UserProfile{
		"u-1": {UID: "u-1", Role: domain.RolePartner},
	}}
	r := newSessionResolver(stream, store)
	defer r.Close()

	stream.push(&domain.Principal{UID: "u-1", Email: "p@vibra.com"})

	st := waitForState(t, r, func(st service.SessionState) bool { return !st.Loading })
	if st.Principal == nil || st.Principal.UID != "u-1" {
		t.Fatalf("expected principal u-1, got %+v", st.Principal)
	}
	if st.Role != domain.RolePartner {
		t.Errorf("expected role partner, got %q", st.Role)
	}
	if n := store.reads.Load(); n != 1 {
		t.Errorf("expected exactly one role read per transition, got %d", n)
	}
}

func TestSessionResolver_SignOutResolvesImmediately(t *testing.T) {
	stream := &fakeAuthStream{}
	store := &countingProfileStore{profiles: map[string]*domain.UserProfile{
		"u-1": {UID: "u-1", Role: domain.RoleAdmin},
	}}
	r := newSessionResolver(stream, store)
	defer r.Close()

	stream.push(&domain.Principal{UID: "u-1"})
	waitForState(t, r, func(st service.SessionState) bool { return !st.Loading })

	stream.push(nil)

	st := r.Current()
	if st.Loading {
		t.Error("sign-out must resolve without a loading phase")
	}
	if st.Principal != nil {
		t.Errorf("expected no principal after sign-out, got %+v", st.Principal)
	}
	if st.Role != domain.RoleNone {
		t.Errorf("expected RoleNone after sign-out, got %q", st.Role)
	}
}

func TestSessionResolver_StaleRoleReadIsDiscarded(t *testing.T) {
	stream := &fakeAuthStream{}
	store := &countingProfileStore{profiles: map[string]*domain.UserProfile{
		"u-old": {UID: "u-old", Role: domain.RoleAdmin},
		"u-new": {UID: "u-new", Role: domain.RoleDJ},
	}}
	r := newSessionResolver(stream, store)
	defer r.Close()

	// Two rapid transitions: only the second may win, even if the first
	// read completes later.
	stream.push(&domain.Principal{UID: "u-old"})
	stream.push(&domain.Principal{UID: "u-new"})

	st := waitForState(t, r, func(st service.SessionState) bool {
		return !st.Loading && st.Principal != nil && st.Principal.UID == "u-new"
	})
	if st.Role != domain.RoleDJ {
		t.Errorf("expected role of the latest principal, got %q", st.Role)
	}

	// Settled state must stay pinned to the latest transition.
	time.Sleep(50 * time.Millisecond)
	if got := r.Current().Principal.UID; got != "u-new" {
		t.Errorf("stale resolution overwrote newer state: %q", got)
	}
}

func TestSessionResolver_WatchReceivesTransitions(t *testing.T) {
	stream := &fakeAuthStream{}
	store := &countingProfileStore{profiles: map[string]*domain.UserProfile{
		"u-1": {UID: "u-1", Role: domain.RoleFinance},
	}}
	r := newSessionResolver(stream, store)
	defer r.Close()

	ch, cancel := r.Watch()
	defer cancel()

	first := <-ch
	if !first.Loading {
		t.Error("expected first watched state to be the initial loading state")
	}

	stream.push(&domain.Principal{UID: "u-1"})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-ch:
			if !st.Loading && st.Role == domain.RoleFinance {
				return
			}
		case <-deadline:
			t.Fatal("never observed the resolved state on the watch channel")
		}
	}
}

func TestSessionResolver_CloseIsIdempotentAndTearsDown(t *testing.T) {
	stream := &fakeAuthStream{}
	r := newSessionResolver(stream, &countingProfileStore{})

	ch, _ := r.Watch()
	<-ch // initial state

	r.Close()
	r.Close()

	if stream.unsubscribed != 1 {
		t.Errorf("expected exactly one unsubscribe, got %d", stream.unsubscribed)
	}
	if _, open := <-ch; open {
		t.Error("expected watcher channel to be closed after Close")
	}

	// Transitions after Close are ignored.
	stream.push(&domain.Principal{UID: "u-late"})
	if st := r.Current(); st.Principal != nil {
		t.Errorf("expected no state change after Close, got %+v", st.Principal)
	}
}

func TestSessionResolver_CloseDuringPendingRead(t *testing.T) {
	stream := &fakeAuthStream{}
	store := &countingProfileStore{profiles: map[string]*domain.UserProfile{
		"u-1": {UID: "u-1", Role: domain.RoleAdmin},
	}}
	r := newSessionResolver(stream, store)

	stream.push(&domain.Principal{UID: "u-1"})
	r.Close() // tear down while the role read may still be in flight

	time.Sleep(50 * time.Millisecond)
	if st := r.Current(); !st.Loading && st.Role == domain.RoleAdmin {
		t.Error("role read completing after Close must not mutate state")
	}
	if stream.unsubscribed != 1 {
		t.Errorf("expected unsubscribe on close, got %d", stream.unsubscribed)
	}
}
