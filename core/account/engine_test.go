package account_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/DeathRaider12/HUB-TUTORIUM/core/account"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/identity"
)

func TestEngineObserveFirstSignIn(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan identity.Event, 1)
	states := f.engine.Observe(ctx, events)

	// a brand-new identity converges to a pending record
	events <- identity.SignedIn(newIdentity("u1", "u1@test.test", false))

	st := nextState(t, states)
	if !st.Authenticated() {
		t.Fatalf("state = %+v, want session", st)
	}
	if st.Session.Role != account.RolePending {
		t.Errorf("role = %q, want %q", st.Session.Role, account.RolePending)
	}
	if st.Session.IsVerified() {
		t.Error("unverified identity must not pass the verification gate")
	}

	// the record was persisted
	rec, err := f.store.GetRecord(ctx, "u1")
	if err != nil {
		t.Fatalf("GetRecord() failed: %v", err)
	}
	if rec.Role != account.RolePending {
		t.Errorf("stored role = %q, want %q", rec.Role, account.RolePending)
	}
}

func TestEngineObserveRoleChange(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	register(t, f, newIdentity("u1", "u1@test.test", true), account.RoleLecturer)

	events := make(chan identity.Event, 1)
	states := f.engine.Observe(ctx, events)
	events <- identity.SignedIn(newIdentity("u1", "u1@test.test", true))

	if st := nextState(t, states); st.Session.Role != account.RolePending {
		t.Fatalf("role = %q, want %q", st.Session.Role, account.RolePending)
	}

	// an admin approves the requested role; the session updates without
	// a new sign-in
	if _, err := f.store.SetRecordRole(ctx, "u1", account.RoleLecturer, time.Now().UTC()); err != nil {
		t.Fatalf("SetRecordRole() failed: %v", err)
	}

	st := nextState(t, states)
	if st.Session.Role != account.RoleLecturer {
		t.Errorf("role = %q, want %q", st.Session.Role, account.RoleLecturer)
	}
	if !st.Session.IsLecturer() || !st.Session.IsVerified() {
		t.Errorf("session = %+v, want verified lecturer", st.Session)
	}
}

func TestEngineObservePrivileged(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan identity.Event, 1)
	states := f.engine.Observe(ctx, events)

	// privileged accounts never pass through pending, even unverified
	events <- identity.SignedIn(newIdentity("a1", adminEmail, false))

	st := nextState(t, states)
	if !st.Session.IsAdmin() || !st.Session.Privileged {
		t.Fatalf("session = %+v, want privileged admin", st.Session)
	}
	if !st.Session.IsVerified() {
		t.Error("privileged session must pass the verification gate")
	}

	// bookkeeping record is visible to admin tooling
	rec, err := f.store.GetRecord(ctx, "a1")
	if err != nil {
		t.Fatalf("GetRecord() failed: %v", err)
	}
	if rec.Role != account.RoleAdmin || !rec.Privileged {
		t.Errorf("record = %+v, want privileged admin", rec)
	}
	if rec.DisplayName != "The Boss" {
		t.Errorf("DisplayName = %q, want configured name", rec.DisplayName)
	}
}

func TestEngineObserveSignOut(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan identity.Event, 1)
	states := f.engine.Observe(ctx, events)

	events <- identity.SignedIn(newIdentity("u1", "u1@test.test", true))
	nextState(t, states)

	events <- identity.SignedOut()
	if st := nextState(t, states); st.Authenticated() || st.Err != nil {
		t.Fatalf("state = %+v, want signed-out", st)
	}

	// the old subscription is torn down: record changes no longer emit
	if _, err := f.store.SetRecordRole(ctx, "u1", account.RoleStudent, time.Now().UTC()); err != nil {
		t.Fatalf("SetRecordRole() failed: %v", err)
	}
	noState(t, states)
}

func TestEngineObserveIdentitySwitch(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan identity.Event, 1)
	states := f.engine.Observe(ctx, events)

	events <- identity.SignedIn(newIdentity("u1", "u1@test.test", true))
	nextState(t, states)

	events <- identity.SignedIn(newIdentity("u2", "u2@test.test", true))
	if st := nextState(t, states); st.Session.ID != "u2" {
		t.Fatalf("session ID = %q, want u2", st.Session.ID)
	}

	// a late write to the first identity's record must not surface
	if _, err := f.store.SetRecordRole(ctx, "u1", account.RoleStudent, time.Now().UTC()); err != nil {
		t.Fatalf("SetRecordRole() failed: %v", err)
	}
	noState(t, states)

	// the second identity's record is still live
	if _, err := f.store.SetRecordRole(ctx, "u2", account.RoleStudent, time.Now().UTC()); err != nil {
		t.Fatalf("SetRecordRole() failed: %v", err)
	}
	if st := nextState(t, states); st.Session.ID != "u2" || st.Session.Role != account.RoleStudent {
		t.Fatalf("state = %+v, want u2 student", st)
	}
}

func TestEngineObserveEventsClosed(t *testing.T) {
	f := newFixture(t)
	events := make(chan identity.Event)
	states := f.engine.Observe(context.Background(), events)

	close(events)
	if _, ok := <-states; ok {
		t.Error("states must close when the event stream closes")
	}
}

func TestEngineObserveStoreError(t *testing.T) {
	f := newFixture(t)
	f.engine = account.NewEngine(unavailableStore{}, f.admins, logger, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan identity.Event, 1)
	states := f.engine.Observe(ctx, events)
	events <- identity.SignedIn(newIdentity("u1", "u1@test.test", true))

	st := nextState(t, states)
	if st.Authenticated() {
		t.Fatal("store failure must not grant a session")
	}
	if errors.Cause(st.Err) != account.ErrStoreUnavailable {
		t.Errorf("err = %v, want %v", st.Err, account.ErrStoreUnavailable)
	}
}

func TestEngineResolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	st := f.engine.Resolve(ctx, newIdentity("u1", "u1@test.test", false))
	if !st.Authenticated() || st.Session.Role != account.RolePending {
		t.Errorf("state = %+v, want pending session", st)
	}

	st = f.engine.Resolve(ctx, newIdentity("a1", adminEmail, false))
	if !st.Authenticated() || !st.Session.IsAdmin() || !st.Session.IsVerified() {
		t.Errorf("state = %+v, want privileged admin session", st)
	}

	f.engine = account.NewEngine(unavailableStore{}, f.admins, logger, time.Second)
	st = f.engine.Resolve(ctx, newIdentity("u1", "u1@test.test", false))
	if errors.Cause(st.Err) != account.ErrStoreUnavailable {
		t.Errorf("err = %v, want %v", st.Err, account.ErrStoreUnavailable)
	}
}

// unavailableStore fails every operation.
type unavailableStore struct{}

var errDown = errors.New("store down")

func (unavailableStore) GetRecord(context.Context, string) (account.Record, error) {
	return account.Record{}, errDown
}
func (unavailableStore) CreateRecord(context.Context, account.Record) (account.Record, error) {
	return account.Record{}, errDown
}
func (unavailableStore) UpsertRecord(context.Context, account.Record) (account.Record, error) {
	return account.Record{}, errDown
}
func (unavailableStore) SetRecordRole(context.Context, string, account.Role, time.Time) (account.Record, error) {
	return account.Record{}, errDown
}
func (unavailableStore) QueryAllRecords(context.Context) ([]account.Record, error) {
	return nil, errDown
}
func (unavailableStore) WatchRecord(context.Context, string) (<-chan account.RecordEvent, func(), error) {
	return nil, func() {}, errDown
}
