package identity

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/DeathRaider12/HUB-TUTORIUM/core"
)

// Identity is an authenticated account as asserted by the identity layer.
// It carries no permission data; roles live in account.Record.
type Identity struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	Verified     bool      `json:"verified"`
	Federated    bool      `json:"federated"` // signed up via an external provider
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLoginAt  time.Time `json:"last_login"` // UTC
}

func (i *Identity) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	i.PasswordHash = hash
	return nil
}

func (i *Identity) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(i.PasswordHash, []byte(pwd))
}

// Event is one observation on an identity stream.
// A nil Identity means "signed out".
type Event struct {
	Identity *Identity
}

// SignedIn returns a sign-in event for ident.
func SignedIn(ident Identity) Event { return Event{Identity: &ident} }

// SignedOut returns the sign-out event.
func SignedOut() Event { return Event{} }

// NewIdentity contains information needed to sign up a new Identity.
type NewIdentity struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (ni *NewIdentity) Validate(svc *Service) error {
	ni.Name = core.CleanString(ni.Name)
	ni.Email = core.CleanString(ni.Email, true /* lower */)

	if err := core.Validate.Struct(ni); err != nil {
		return err
	}
	return svc.checkUniqueness(ni.Email)
}

// FederatedIdentity holds the claims asserted by an external OIDC provider.
type FederatedIdentity struct {
	Subject  string
	Email    string
	Name     string
	Verified bool
}
