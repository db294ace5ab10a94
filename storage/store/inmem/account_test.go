package inmemstore

import (
	"context"
	"testing"
	"time"

	"github.com/DeathRaider12/HUB-TUTORIUM/core/account"
)

func record(id string, role account.Role) account.Record {
	now := time.Now().UTC()
	return account.Record{
		ID:        id,
		Email:     id + "@test.test",
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func recv(t *testing.T, ch <-chan account.RecordEvent) account.RecordEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("watch channel closed")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for record event")
	}
	return account.RecordEvent{}
}

func TestWatchRecordInitialDelivery(t *testing.T) {
	ctx := context.Background()
	st := NewRecordStore(NewDB())

	if _, err := st.CreateRecord(ctx, record("u1", account.RolePending)); err != nil {
		t.Fatalf("CreateRecord() failed: %v", err)
	}

	ch, cancel, err := st.WatchRecord(ctx, "u1")
	if err != nil {
		t.Fatalf("WatchRecord() failed: %v", err)
	}
	defer cancel()

	// the current state is delivered before any change
	if ev := recv(t, ch); ev.Record.Role != account.RolePending {
		t.Errorf("role = %q, want %q", ev.Record.Role, account.RolePending)
	}

	if _, err = st.SetRecordRole(ctx, "u1", account.RoleStudent, time.Now().UTC()); err != nil {
		t.Fatalf("SetRecordRole() failed: %v", err)
	}
	if ev := recv(t, ch); ev.Record.Role != account.RoleStudent {
		t.Errorf("role = %q, want %q", ev.Record.Role, account.RoleStudent)
	}
}

func TestWatchRecordMissingRecord(t *testing.T) {
	ctx := context.Background()
	st := NewRecordStore(NewDB())

	ch, cancel, err := st.WatchRecord(ctx, "u1")
	if err != nil {
		t.Fatalf("WatchRecord() failed: %v", err)
	}
	defer cancel()

	// nothing to deliver yet
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}

	// creation notifies the waiting watcher
	if _, err = st.CreateRecord(ctx, record("u1", account.RolePending)); err != nil {
		t.Fatalf("CreateRecord() failed: %v", err)
	}
	if ev := recv(t, ch); ev.Record.ID != "u1" {
		t.Errorf("record ID = %q, want u1", ev.Record.ID)
	}
}

func TestWatchRecordCancel(t *testing.T) {
	ctx := context.Background()
	st := NewRecordStore(NewDB())

	if _, err := st.CreateRecord(ctx, record("u1", account.RolePending)); err != nil {
		t.Fatalf("CreateRecord() failed: %v", err)
	}

	ch, cancel, err := st.WatchRecord(ctx, "u1")
	if err != nil {
		t.Fatalf("WatchRecord() failed: %v", err)
	}
	recv(t, ch) // initial delivery

	cancel()
	if _, ok := <-ch; ok {
		t.Error("cancel must close the watch channel")
	}

	// writes after cancel do not panic and reach no one
	if _, err = st.SetRecordRole(ctx, "u1", account.RoleStudent, time.Now().UTC()); err != nil {
		t.Fatalf("SetRecordRole() failed: %v", err)
	}
}

func TestWatchRecordSlowWatcher(t *testing.T) {
	ctx := context.Background()
	st := NewRecordStore(NewDB())

	if _, err := st.CreateRecord(ctx, record("u1", account.RolePending)); err != nil {
		t.Fatalf("CreateRecord() failed: %v", err)
	}

	ch, cancel, err := st.WatchRecord(ctx, "u1")
	if err != nil {
		t.Fatalf("WatchRecord() failed: %v", err)
	}
	defer cancel()

	// overflow the buffer without reading; oldest events are dropped
	for i := 0; i < watcherBuffer+10; i++ {
		role := account.RoleStudent
		if i == watcherBuffer+9 {
			role = account.RoleLecturer
		}
		if _, err = st.SetRecordRole(ctx, "u1", role, time.Now().UTC()); err != nil {
			t.Fatalf("SetRecordRole() failed: %v", err)
		}
	}

	// drain: the latest write must have landed
	var last account.RecordEvent
	for i := 0; i < watcherBuffer; i++ {
		last = recv(t, ch)
	}
	if last.Record.Role != account.RoleLecturer {
		t.Errorf("last role = %q, want %q", last.Record.Role, account.RoleLecturer)
	}
}

func TestUpsertRecordMergesZeroFields(t *testing.T) {
	ctx := context.Background()
	st := NewRecordStore(NewDB())

	rec := record("u1", account.RoleStudent)
	rec.DisplayName = "Original"
	rec.RequestedRole = account.RoleStudent
	if _, err := st.CreateRecord(ctx, rec); err != nil {
		t.Fatalf("CreateRecord() failed: %v", err)
	}

	got, err := st.UpsertRecord(ctx, account.Record{ID: "u1", Email: "new@test.test"})
	if err != nil {
		t.Fatalf("UpsertRecord() failed: %v", err)
	}
	if got.Email != "new@test.test" {
		t.Errorf("email = %q, want updated value", got.Email)
	}
	if got.DisplayName != "Original" || got.Role != account.RoleStudent || got.RequestedRole != account.RoleStudent {
		t.Errorf("zero fields must keep stored values, got %+v", got)
	}
}

func TestWatchRecordConcurrentDrain(t *testing.T) {
	ctx := context.Background()
	st := NewRecordStore(NewDB())

	if _, err := st.CreateRecord(ctx, record("u1", account.RolePending)); err != nil {
		t.Fatalf("CreateRecord() failed: %v", err)
	}
	ch, cancel, err := st.WatchRecord(ctx, "u1")
	if err != nil {
		t.Fatalf("WatchRecord() failed: %v", err)
	}
	defer cancel()

	// a watcher draining while the store drops oldest events must never
	// wedge writers, even when the drain empties the buffer mid-delivery
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for range ch {
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10*watcherBuffer; i++ {
			if _, err := st.SetRecordRole(ctx, "u1", account.RoleStudent, time.Now().UTC()); err != nil {
				t.Errorf("SetRecordRole() failed: %v", err)
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("store writes wedged behind a draining watcher")
	}
	cancel()
	<-drained
}
