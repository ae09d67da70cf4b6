// Package service holds the console's core logic: session and role
// resolution, access gating, and the booking/finance operations.
package service

import "github.com/vibra/booking-console-go/internal/domain"

// LoginDestination is the named route every denied evaluation redirects to.
// There is no separate forbidden destination: an insufficient role lands on
// the same login entry point as an unauthenticated visitor.
const LoginDestination = "login"

// SessionState is the gate's input: the current principal, its resolved
// role, and whether resolution is still in flight.
type SessionState struct {
	Principal *domain.Principal `json:"principal,omitempty"`
	Role      domain.Role       `json:"role"`
	Loading   bool              `json:"loading"`
}

// Decision is the access gate's verdict for a protected view.
type Decision string

const (
	// DecisionPending means session resolution is still loading: render a
	// neutral affordance, perform no redirect.
	DecisionPending Decision = "pending"
	// DecisionAllow grants the view.
	DecisionAllow Decision = "allow"
	// DecisionRedirect denies the view and sends the client to
	// LoginDestination.
	DecisionRedirect Decision = "redirect"
)

// Decide evaluates the gate's decision table, first match wins:
//
//	loading                 -> pending
//	no principal            -> redirect(login)
//	role not in required    -> redirect(login)
//	otherwise               -> allow
//
// An empty required set means any authenticated user. Callers re-evaluate
// on every dependency change; this is never a one-time check.
func Decide(required []domain.Role, st SessionState) Decision {
	if st.Loading {
		return DecisionPending
	}
	if st.Principal == nil {
		return DecisionRedirect
	}
	if len(required) == 0 {
		return DecisionAllow
	}
	for _, r := range required {
		if st.Role != domain.RoleNone && st.Role == r {
			return DecisionAllow
		}
	}
	return DecisionRedirect
}
