package account_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/DeathRaider12/HUB-TUTORIUM/core/account"
	emailsvc "github.com/DeathRaider12/HUB-TUTORIUM/services/email"
)

var adminSession = &account.Session{
	ID:          "a1",
	Email:       adminEmail,
	DisplayName: "The Boss",
	Verified:    true,
	Role:        account.RoleAdmin,
	Privileged:  true,
}

func TestServiceRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := register(t, f, newIdentity("u1", "u1@test.test", false), account.RoleStudent)
	if rec.Role != account.RolePending {
		t.Errorf("role = %q, want %q", rec.Role, account.RolePending)
	}
	if rec.RequestedRole != account.RoleStudent {
		t.Errorf("requested role = %q, want %q", rec.RequestedRole, account.RoleStudent)
	}

	// the requested role is a hint only; admin is never requestable
	if _, err := f.svc.Register(ctx, newIdentity("u2", "u2@test.test", false), account.RoleAdmin); errors.Cause(err) != account.ErrInvalidRole {
		t.Errorf("Register() error = %v, want %v", err, account.ErrInvalidRole)
	}
	if _, err := f.svc.Register(ctx, newIdentity("u3", "u3@test.test", false), account.RolePending); errors.Cause(err) != account.ErrInvalidRole {
		t.Errorf("Register() error = %v, want %v", err, account.ErrInvalidRole)
	}

	// duplicate registration
	if _, err := f.svc.Register(ctx, newIdentity("u1", "u1@test.test", false), account.RoleStudent); errors.Cause(err) != account.ErrAlreadyExists {
		t.Errorf("Register() error = %v, want %v", err, account.ErrAlreadyExists)
	}

	// privileged emails bypass pending entirely
	rec, err := f.svc.Register(ctx, newIdentity("a1", adminEmail, false), account.RoleStudent)
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if rec.Role != account.RoleAdmin || !rec.Privileged {
		t.Errorf("record = %+v, want privileged admin", rec)
	}
}

func TestServiceSetRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	register(t, f, newIdentity("u1", "u1@test.test", true), account.RoleStudent)

	// only admins may transition roles
	student := &account.Session{ID: "s1", Role: account.RoleStudent, Verified: true}
	if _, err := f.svc.SetRole(ctx, student, "u1", account.RoleStudent); errors.Cause(err) != account.ErrForbidden {
		t.Errorf("SetRole() error = %v, want %v", err, account.ErrForbidden)
	}
	if _, err := f.svc.SetRole(ctx, nil, "u1", account.RoleStudent); errors.Cause(err) != account.ErrForbidden {
		t.Errorf("SetRole() error = %v, want %v", err, account.ErrForbidden)
	}

	// unknown target
	if _, err := f.svc.SetRole(ctx, adminSession, "nope", account.RoleStudent); errors.Cause(err) != account.ErrNotFound {
		t.Errorf("SetRole() error = %v, want %v", err, account.ErrNotFound)
	}

	// admin is not assignable
	if _, err := f.svc.SetRole(ctx, adminSession, "u1", account.RoleAdmin); errors.Cause(err) != account.ErrInvalidRole {
		t.Errorf("SetRole() error = %v, want %v", err, account.ErrInvalidRole)
	}

	// approval sends a notification mail
	rec, err := f.svc.SetRole(ctx, adminSession, "u1", account.RoleStudent)
	if err != nil {
		t.Fatalf("SetRole() failed: %v", err)
	}
	if rec.Role != account.RoleStudent {
		t.Errorf("role = %q, want %q", rec.Role, account.RoleStudent)
	}
	if len(emailsvc.SentMessages) != 1 {
		t.Errorf("sent mails = %d, want 1", len(emailsvc.SentMessages))
	}
}

func TestServiceSetRolePrivilegedTarget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Register(ctx, newIdentity("a1", adminEmail, false), account.RoleStudent); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	// configured admins cannot be demoted through the API
	if _, err := f.svc.SetRole(ctx, adminSession, "a1", account.RoleStudent); errors.Cause(err) != account.ErrInvalidTarget {
		t.Errorf("SetRole() error = %v, want %v", err, account.ErrInvalidTarget)
	}
}

func TestServiceSetRoleRejectedIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	register(t, f, newIdentity("u1", "u1@test.test", true), account.RoleStudent)

	if _, err := f.svc.SetRole(ctx, adminSession, "u1", account.RoleRejected); err != nil {
		t.Fatalf("SetRole() failed: %v", err)
	}
	// rejection sends no approval mail
	if len(emailsvc.SentMessages) != 0 {
		t.Errorf("sent mails = %d, want 0", len(emailsvc.SentMessages))
	}

	// once rejected, no transition applies
	for _, role := range []account.Role{account.RoleStudent, account.RoleLecturer, account.RolePending} {
		if _, err := f.svc.SetRole(ctx, adminSession, "u1", role); errors.Cause(err) != account.ErrInvalidRole {
			t.Errorf("SetRole(%q) error = %v, want %v", role, err, account.ErrInvalidRole)
		}
	}
}

func TestServiceQueryAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	register(t, f, newIdentity("u1", "u1@test.test", true), account.RoleStudent)
	register(t, f, newIdentity("u2", "u2@test.test", true), account.RoleLecturer)

	student := &account.Session{ID: "u1", Role: account.RoleStudent, Verified: true}
	if _, err := f.svc.QueryAll(ctx, student); errors.Cause(err) != account.ErrForbidden {
		t.Errorf("QueryAll() error = %v, want %v", err, account.ErrForbidden)
	}

	recs, err := f.svc.QueryAll(ctx, adminSession)
	if err != nil {
		t.Fatalf("QueryAll() failed: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("records = %d, want 2", len(recs))
	}
}
