package account

import (
	"time"

	"github.com/DeathRaider12/HUB-TUTORIUM/core/identity"
)

// Role is the effective permission level of an account.
type Role string

const (
	RolePending  Role = "pending"
	RoleStudent  Role = "student"
	RoleLecturer Role = "lecturer"
	RoleAdmin    Role = "admin"
	RoleRejected Role = "rejected" // terminal; never re-approved without a new signup
)

var (
	// RequestableRoles are the roles a user may ask for at signup.
	RequestableRoles = []Role{RoleStudent, RoleLecturer}

	// AssignableRoles are the roles an admin may transition a record to.
	AssignableRoles = []Role{RoleStudent, RoleLecturer, RolePending, RoleRejected}
)

func (r Role) In(roles []Role) bool {
	for _, role := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// Record is an identity's role record in the role store.
type Record struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"display_name"`
	Role          Role      `json:"role"`
	RequestedRole Role      `json:"requested_role,omitempty"` // advisory; never grants access
	Privileged    bool      `json:"privileged"`               // role fixed to admin by configuration
	CreatedAt     time.Time `json:"created_at"`               // UTC
	UpdatedAt     time.Time `json:"updated_at"`               // UTC
}

// Session is the derived, in-memory authorization state for a signed-in
// identity. It is recomputed whenever the identity or its record changes.
type Session struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Verified    bool   `json:"verified"`
	Role        Role   `json:"role"`
	Privileged  bool   `json:"privileged"`
}

func (s *Session) IsAdmin() bool    { return s.Role == RoleAdmin }
func (s *Session) IsLecturer() bool { return s.Role == RoleLecturer }
func (s *Session) IsStudent() bool  { return s.Role == RoleStudent }
func (s *Session) IsPending() bool  { return s.Role == RolePending }

// IsVerified reports whether the email gate passes.
// Privileged accounts are always treated as verified.
func (s *Session) IsVerified() bool { return s.Privileged || s.Verified }

// State is one emission of the authorization engine.
// Exactly one of the three shapes holds:
// a valid Session, no Session (signed out), or Err (role store failure).
type State struct {
	Session *Session
	Err     error
}

func (st State) Authenticated() bool { return st.Err == nil && st.Session != nil }

// NewSession derives a Session from the latest identity fields and the
// latest record fields.
func NewSession(ident identity.Identity, rec Record) *Session {
	role := rec.Role
	if role == "" {
		role = RolePending
	}
	verified := ident.Verified
	if rec.Privileged {
		verified = true
	}
	return &Session{
		ID:          ident.ID,
		Email:       ident.Email,
		DisplayName: ident.DisplayName,
		Verified:    verified,
		Role:        role,
		Privileged:  rec.Privileged,
	}
}
