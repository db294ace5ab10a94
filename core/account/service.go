package account

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/DeathRaider12/HUB-TUTORIUM/core"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/identity"
)

var (
	ErrNotFound         = errors.New("account record not found")
	ErrAlreadyExists    = errors.New("an account record already exists for this identity")
	ErrForbidden        = errors.New("permission denied")
	ErrInvalidTarget    = errors.New("privileged accounts cannot be modified")
	ErrInvalidRole      = errors.New("invalid role")
	ErrStoreUnavailable = errors.New("role store unavailable")
)

type (
	// RecordEvent is one delivery on a record subscription.
	RecordEvent struct {
		Record Record
		Err    error
	}

	// Store is the role store contract: a keyed document store with point
	// reads, merge writes and a live subscription per key.
	Store interface {
		GetRecord(ctx context.Context, id string) (Record, error)
		// CreateRecord fails with ErrAlreadyExists if a record for the same
		// id is already present.
		CreateRecord(ctx context.Context, rec Record) (Record, error)
		// UpsertRecord writes rec with merge semantics.
		UpsertRecord(ctx context.Context, rec Record) (Record, error)
		// SetRecordRole atomically replaces the record's role and stamps
		// UpdatedAt, leaving RequestedRole untouched.
		SetRecordRole(ctx context.Context, id string, role Role, at time.Time) (Record, error)
		QueryAllRecords(ctx context.Context) ([]Record, error)
		// WatchRecord opens a live subscription to the record keyed by id.
		// The record's current state is delivered first, then every change,
		// in store order. The cancel func tears the subscription down
		// synchronously: no event is delivered after it returns.
		WatchRecord(ctx context.Context, id string) (<-chan RecordEvent, func(), error)
	}

	// Service is the role transition API.
	Service struct {
		store   Store
		admins  *AdminDirectory
		mailSvc core.EmailService
		logger  core.Logger
	}
)

func NewService(store Store, admins *AdminDirectory, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{store: store, admins: admins, mailSvc: mailSvc, logger: logger}
}

// Register creates the role record for a newly signed-up identity.
// Self-registered identities always start at pending; requested is an
// advisory hint for the approving admin. Privileged identities never pass
// through pending.
func (svc *Service) Register(ctx context.Context, ident identity.Identity, requested Role) (Record, error) {
	now := time.Now().UTC()

	if acct, ok := svc.admins.Lookup(ident.Email); ok {
		return svc.store.UpsertRecord(ctx, PrivilegedRecord(ident, acct, now))
	}

	if !requested.In(RequestableRoles) {
		return Record{}, errors.WithMessagef(ErrInvalidRole, "%q is not a requestable role", requested)
	}
	return svc.store.CreateRecord(ctx, Record{
		ID:            ident.ID,
		Email:         ident.Email,
		DisplayName:   ident.DisplayName,
		Role:          RolePending,
		RequestedRole: requested,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

// SetRole transitions the target record's role.
// Only admins may call it; privileged records are immutable and rejected
// records are terminal.
func (svc *Service) SetRole(ctx context.Context, actor *Session, targetID string, newRole Role) (Record, error) {
	if actor == nil || !actor.IsAdmin() {
		return Record{}, ErrForbidden
	}

	target, err := svc.store.GetRecord(ctx, targetID)
	if err != nil {
		return Record{}, err
	}
	if target.Privileged {
		return Record{}, ErrInvalidTarget
	}
	if !newRole.In(AssignableRoles) {
		return Record{}, errors.WithMessagef(ErrInvalidRole, "%q is not an assignable role", newRole)
	}
	if target.Role == RoleRejected {
		return Record{}, errors.WithMessage(ErrInvalidRole, "rejected accounts cannot be re-approved")
	}

	rec, err := svc.store.SetRecordRole(ctx, targetID, newRole, time.Now().UTC())
	if err != nil {
		return Record{}, err
	}

	if newRole == RoleStudent || newRole == RoleLecturer {
		svc.sendApprovalMail(rec)
	}
	return rec, nil
}

// QueryAll lists every record; admin only. RequestedRole hints let the
// caller build the approval dashboard.
func (svc *Service) QueryAll(ctx context.Context, actor *Session) ([]Record, error) {
	if actor == nil || !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return svc.store.QueryAllRecords(ctx)
}

func (svc *Service) Get(ctx context.Context, id string) (Record, error) {
	return svc.store.GetRecord(ctx, id)
}

func (svc *Service) sendApprovalMail(rec Record) {
	if rec.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: rec.DisplayName, Address: rec.Email}},
		Subject:      "Your account has been approved",
		TemplateName: "role_approved",
		TemplateData: struct {
			Name string
			Role Role
		}{Name: rec.DisplayName, Role: rec.Role},
	})
}

// PrivilegedRecord synthesizes the fixed admin record for a privileged
// account.
func PrivilegedRecord(ident identity.Identity, acct AdminAccount, now time.Time) Record {
	name := acct.DisplayName
	if name == "" {
		name = ident.DisplayName
	}
	return Record{
		ID:          ident.ID,
		Email:       ident.Email,
		DisplayName: name,
		Role:        RoleAdmin,
		Privileged:  true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
