package account

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/DeathRaider12/HUB-TUTORIUM/core"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/identity"
)

func identTest(id, email string, verified bool) identity.Identity {
	return identity.Identity{
		ID:          id,
		Email:       email,
		DisplayName: "Test",
		Verified:    verified,
	}
}

func hashTest(t *testing.T, pwd string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt failed: %v", err)
	}
	return string(hash)
}

func TestNewAdminDirectory(t *testing.T) {
	hash := hashTest(t, "s3cret")

	dir, err := NewAdminDirectory(&core.Config{
		AdminAccounts: fmt.Sprintf("boss@test.test:The Boss:%s, second@test.test::%s", hash, hash),
	})
	if err != nil {
		t.Fatalf("NewAdminDirectory() failed: %v", err)
	}

	if acct, ok := dir.Lookup("boss@test.test"); !ok {
		t.Error("Lookup() did not find configured account")
	} else if acct.DisplayName != "The Boss" {
		t.Errorf("DisplayName = %q, want %q", acct.DisplayName, "The Boss")
	}

	// lookup is case-insensitive on the whole address and never partial
	if _, ok := dir.Lookup("BOSS@test.test"); !ok {
		t.Error("Lookup() must be case-insensitive")
	}
	if _, ok := dir.Lookup("boss@test.test.evil.com"); ok {
		t.Error("Lookup() must match the exact address only")
	}

	if _, err = dir.Authenticate("boss@test.test", "s3cret"); err != nil {
		t.Errorf("Authenticate() failed: %v", err)
	}
	if _, err = dir.Authenticate("boss@test.test", "wrong"); err != identity.ErrAuthenticationFailed {
		t.Errorf("Authenticate() error = %v, want %v", err, identity.ErrAuthenticationFailed)
	}
	if _, err = dir.Authenticate("nobody@test.test", "s3cret"); err != identity.ErrAuthenticationFailed {
		t.Errorf("Authenticate() error = %v, want %v", err, identity.ErrAuthenticationFailed)
	}
}

func TestNewAdminDirectoryMalformed(t *testing.T) {
	tests := []string{
		"boss@test.test",
		"boss@test.test:The Boss",
		":name:hash",
	}
	for _, entry := range tests {
		if _, err := NewAdminDirectory(&core.Config{AdminAccounts: entry}); err == nil {
			t.Errorf("NewAdminDirectory(%q) expected error", entry)
		}
	}

	// empty config is fine
	dir, err := NewAdminDirectory(&core.Config{})
	if err != nil {
		t.Fatalf("NewAdminDirectory() failed: %v", err)
	}
	if _, ok := dir.Lookup("anyone@test.test"); ok {
		t.Error("empty directory must not match anyone")
	}
}

func TestAdminAccountIdentityID(t *testing.T) {
	boss := AdminAccount{Email: "boss@test.test"}

	// role store columns are uuid typed; the derived id must parse
	id, err := uuid.Parse(boss.IdentityID())
	if err != nil {
		t.Fatalf("IdentityID() = %q, not a UUID: %v", boss.IdentityID(), err)
	}

	// stable across logins, distinct per account
	if boss.IdentityID() != id.String() {
		t.Error("IdentityID() must be deterministic")
	}
	other := AdminAccount{Email: "second@test.test"}
	if other.IdentityID() == boss.IdentityID() {
		t.Error("distinct accounts must derive distinct ids")
	}
}
