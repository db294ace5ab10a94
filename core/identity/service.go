package identity

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/DeathRaider12/HUB-TUTORIUM/core"
)

var (
	ErrNotFound             = errors.New("identity not found")
	ErrEmailExists          = errors.New("an account with this email already exists")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrAlreadyVerified      = errors.New("email already verified")
)

type (
	Repository interface {
		CreateIdentity(ctx context.Context, ident Identity) (Identity, error)
		GetIdentityByID(ctx context.Context, id string) (Identity, error)
		GetIdentityByEmail(ctx context.Context, email string) (Identity, error)
		UpdateIdentity(ctx context.Context, ident Identity) (Identity, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		logger  core.Logger
	}
)

func NewService(repo Repository, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, logger: logger}
}

func (svc *Service) checkUniqueness(email string) error {
	if _, err := svc.repo.GetIdentityByEmail(context.Background(), email); err == nil {
		return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return err
	}
	return nil
}

// Signup creates a new unverified Identity and sends it a verification email.
func (svc *Service) Signup(ctx context.Context, ni NewIdentity) (Identity, error) {
	now := time.Now().UTC()
	ident := Identity{
		ID:          uuid.NewString(),
		Email:       ni.Email,
		DisplayName: ni.Name,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := ident.SetPassword(ni.Password); err != nil {
		return Identity{}, errors.Wrap(err, "hashing password")
	}

	ident, err := svc.repo.CreateIdentity(ctx, ident)
	if err != nil {
		return Identity{}, err
	}
	svc.sendVerificationMail(ident)
	return ident, nil
}

// Authenticate checks email+password credentials.
// It does not reveal whether the account exists.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (Identity, error) {
	ident, err := svc.repo.GetIdentityByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return Identity{}, ErrAuthenticationFailed
	}
	if err := ident.CheckPassword(pwd); err != nil {
		return Identity{}, ErrAuthenticationFailed
	}

	ident.LastLoginAt = time.Now().UTC()
	if ident, err = svc.repo.UpdateIdentity(ctx, ident); err != nil {
		return Identity{}, errors.Wrap(err, "stamping last login")
	}
	return ident, nil
}

// GetOrCreateFederated resolves an OIDC assertion to a local Identity,
// creating one on first sign-in. The provider's email_verified claim is
// trusted as-is.
func (svc *Service) GetOrCreateFederated(ctx context.Context, fid FederatedIdentity) (Identity, error) {
	email := core.CleanString(fid.Email, true /* lower */)
	now := time.Now().UTC()

	ident, err := svc.repo.GetIdentityByEmail(ctx, email)
	if err == nil {
		ident.LastLoginAt = now
		if fid.Verified && !ident.Verified {
			ident.Verified = true
			ident.UpdatedAt = now
		}
		return svc.repo.UpdateIdentity(ctx, ident)
	}
	if errors.Cause(err) != ErrNotFound {
		return Identity{}, err
	}

	ident = Identity{
		ID:          uuid.NewString(),
		Email:       email,
		DisplayName: core.CleanString(fid.Name),
		Verified:    fid.Verified,
		Federated:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
		LastLoginAt: now,
	}
	return svc.repo.CreateIdentity(ctx, ident)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Identity, error) {
	return svc.repo.GetIdentityByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Identity, error) {
	return svc.repo.GetIdentityByEmail(ctx, core.CleanString(email, true /* lower */))
}

// RequestVerification re-sends the verification email.
func (svc *Service) RequestVerification(ctx context.Context, email string) error {
	ident, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if ident.Verified {
		return ErrAlreadyVerified
	}
	svc.sendVerificationMail(ident)
	return nil
}

// ConfirmVerification consumes a verification token and flips the verified
// flag. The token is single-use: it binds the unverified state, so a second
// confirmation fails.
func (svc *Service) ConfirmVerification(ctx context.Context, uid, token string) (Identity, error) {
	id, err := decodeUID(uid)
	if err != nil {
		return Identity{}, errInvalidToken
	}
	ident, err := svc.repo.GetIdentityByID(ctx, id)
	if err != nil {
		return Identity{}, errInvalidToken
	}
	if ident.Verified {
		return Identity{}, ErrAlreadyVerified
	}
	if err := verifyToken(ident, token); err != nil {
		return Identity{}, err
	}

	ident.Verified = true
	ident.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateIdentity(ctx, ident)
}

func (svc *Service) sendVerificationMail(ident Identity) {
	token, err := MakeToken(ident)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("generating verification token: %v", err), err)
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: ident.DisplayName, Address: ident.Email}},
		Subject:      "Verify your email",
		TemplateName: "verify_email",
		TemplateData: struct {
			Name  string
			UID   string
			Token string
		}{Name: ident.DisplayName, UID: EncodeUID(ident), Token: token},
	})
}
