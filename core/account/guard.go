package account

// Reason says why a guard check denied access.
type Reason string

const (
	ReasonError           Reason = "error"           // role store failure; never grants access
	ReasonUnauthenticated Reason = "unauthenticated" // no session
	ReasonUnverified      Reason = "unverified"      // known caller, email not confirmed
	ReasonForbidden       Reason = "forbidden"       // role not in the allowed set
)

type (
	// Requirement is a declarative access requirement for a protected view.
	Requirement struct {
		RequireVerified bool
		AllowedRoles    []Role // empty means any role
	}

	// Decision is the guard's verdict. It has no side effects; the caller
	// acts on Reason (redirect, retry affordance, ...).
	Decision struct {
		Allow  bool   `json:"allow"`
		Reason Reason `json:"reason,omitempty"`
	}
)

// Verified requires a verified email plus, optionally, one of roles.
func Verified(roles ...Role) Requirement {
	return Requirement{RequireVerified: true, AllowedRoles: roles}
}

// Authenticated requires only a signed-in caller.
func Authenticated() Requirement {
	return Requirement{}
}

// Check decides access for the given State.
// Checks run in order: error, unauthenticated, unverified, forbidden; each
// later check assumes the prior one passed. Privileged accounts always
// pass the verification gate.
func Check(st State, req Requirement) Decision {
	if st.Err != nil {
		return Decision{Reason: ReasonError}
	}
	s := st.Session
	if s == nil {
		return Decision{Reason: ReasonUnauthenticated}
	}
	if req.RequireVerified && !s.IsVerified() {
		return Decision{Reason: ReasonUnverified}
	}
	if len(req.AllowedRoles) > 0 && !s.Role.In(req.AllowedRoles) {
		return Decision{Reason: ReasonForbidden}
	}
	return Decision{Allow: true}
}
