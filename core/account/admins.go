package account

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/DeathRaider12/HUB-TUTORIUM/core"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/identity"
)

// AdminAccount is a privileged account fixed to the admin role by
// configuration. Credentials are configured as bcrypt hashes, never
// plaintext.
type AdminAccount struct {
	Email        string
	DisplayName  string
	PasswordHash []byte
}

// IdentityID derives the account's stable identity id. Privileged
// accounts have no identity store row, but the id still ends up in the
// role store's uuid columns, so it must be a valid UUID. Name-based
// derivation keeps it constant across logins.
func (acct AdminAccount) IdentityID() string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+acct.Email)).String()
}

// AdminDirectory is the static privileged-account allow-list.
type AdminDirectory struct {
	accounts []AdminAccount
}

// NewAdminDirectory parses conf.AdminAccounts:
// comma-separated "email:displayName:bcryptHash" entries.
func NewAdminDirectory(conf *core.Config) (*AdminDirectory, error) {
	dir := &AdminDirectory{}
	raw := strings.TrimSpace(conf.AdminAccounts)
	if raw == "" {
		return dir, nil
	}
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
			return nil, errors.Errorf("malformed admin account entry %q", entry)
		}
		dir.accounts = append(dir.accounts, AdminAccount{
			Email:        core.CleanString(parts[0], true /* lower */),
			DisplayName:  core.CleanString(parts[1]),
			PasswordHash: []byte(parts[2]),
		})
	}
	return dir, nil
}

// Lookup finds the privileged account for email.
// Membership is a case-insensitive exact match.
func (dir *AdminDirectory) Lookup(email string) (AdminAccount, bool) {
	email = core.CleanString(email, true /* lower */)
	for _, acct := range dir.accounts {
		if acct.Email == email {
			return acct, true
		}
	}
	return AdminAccount{}, false
}

// Authenticate checks privileged-account credentials.
func (dir *AdminDirectory) Authenticate(email, pwd string) (AdminAccount, error) {
	acct, ok := dir.Lookup(email)
	if !ok {
		return AdminAccount{}, identity.ErrAuthenticationFailed
	}
	if err := bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(pwd)); err != nil {
		return AdminAccount{}, identity.ErrAuthenticationFailed
	}
	return acct, nil
}
