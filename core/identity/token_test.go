package identity

import (
	"testing"
	"time"

	"github.com/DeathRaider12/HUB-TUTORIUM/core"
)

func TestMakeVerifyToken(t *testing.T) {
	core.Conf = &core.Config{
		SecretKey:                []byte("secret"),
		VerificationTimeoutDelta: 3 * 24 * time.Hour,
	}

	now := time.Now()
	ident := Identity{
		ID:          "id-1",
		Email:       "t@test.test",
		DisplayName: "T",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_ = ident.SetPassword("pwd")

	validToken, err := MakeToken(ident)
	if err != nil {
		t.Fatalf("MakeToken() failed: %v", err)
	}

	// generate an expired token
	dayLate := core.Conf.VerificationTimeoutDelta + (24 * time.Hour)
	nowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken, err := MakeToken(ident)
	if err != nil {
		t.Fatalf("MakeToken() failed: %v", err)
	}
	nowFunc = time.Now // reset

	// a token issued before verification no longer matches
	verified := ident
	verified.Verified = true
	staleToken, err := MakeToken(ident)
	if err != nil {
		t.Fatalf("MakeToken() failed: %v", err)
	}

	tests := []struct {
		name    string
		ident   Identity
		token   string
		wantErr error
	}{
		{name: "no token", ident: ident, wantErr: errInvalidToken},
		{name: "invalid parts len", ident: ident, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", ident: ident, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", ident: ident, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", ident: ident, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "expired token", ident: ident, token: expiredToken, wantErr: errTokenExpired},
		{name: "token issued before verification", ident: verified, token: staleToken, wantErr: errInvalidToken},
		{name: "valid token", ident: ident, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := verifyToken(tt.ident, tt.token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	ident := Identity{ID: "id-42"}
	uid := EncodeUID(ident)
	id, err := decodeUID(uid)
	if err != nil {
		t.Fatalf("decodeUID() failed: %v", err)
	}
	if id != ident.ID {
		t.Errorf("decodeUID() = %v, want %v", id, ident.ID)
	}

	if _, err = decodeUID("%%%"); err == nil {
		t.Error("decodeUID() expected error on invalid input")
	}
}
