package inmemstore

import (
	"context"
	"time"

	"github.com/DeathRaider12/HUB-TUTORIUM/core/account"
)

const watcherBuffer = 32

type recordWatcher struct {
	id string
	ch chan account.RecordEvent
}

type recordStore struct {
	db *recordTable
}

var _ account.Store = (*recordStore)(nil) // interface compliance check

func NewRecordStore(db *DB) account.Store {
	return &recordStore{db: db.records}
}

func (st *recordStore) GetRecord(_ context.Context, id string) (account.Record, error) {
	st.db.RLock()
	defer st.db.RUnlock()

	if rec, ok := st.db.table[id]; ok {
		return *rec, nil
	}
	return account.Record{}, account.ErrNotFound
}

func (st *recordStore) CreateRecord(_ context.Context, rec account.Record) (account.Record, error) {
	st.db.Lock()
	defer st.db.Unlock()

	if _, ok := st.db.table[rec.ID]; ok {
		return account.Record{}, account.ErrAlreadyExists
	}
	st.db.table[rec.ID] = &rec
	st.notify(rec)
	return rec, nil
}

// UpsertRecord merges rec over any existing record: zero fields keep their
// stored values.
func (st *recordStore) UpsertRecord(_ context.Context, rec account.Record) (account.Record, error) {
	st.db.Lock()
	defer st.db.Unlock()

	if old, ok := st.db.table[rec.ID]; ok {
		if rec.Email == "" {
			rec.Email = old.Email
		}
		if rec.DisplayName == "" {
			rec.DisplayName = old.DisplayName
		}
		if rec.Role == "" {
			rec.Role = old.Role
		}
		if rec.RequestedRole == "" {
			rec.RequestedRole = old.RequestedRole
		}
		if rec.CreatedAt.IsZero() || old.CreatedAt.Before(rec.CreatedAt) {
			rec.CreatedAt = old.CreatedAt
		}
	}
	st.db.table[rec.ID] = &rec
	st.notify(rec)
	return rec, nil
}

func (st *recordStore) SetRecordRole(_ context.Context, id string, role account.Role, at time.Time) (account.Record, error) {
	st.db.Lock()
	defer st.db.Unlock()

	rec, ok := st.db.table[id]
	if !ok {
		return account.Record{}, account.ErrNotFound
	}
	rec.Role = role
	rec.UpdatedAt = at
	st.notify(*rec)
	return *rec, nil
}

func (st *recordStore) QueryAllRecords(_ context.Context) ([]account.Record, error) {
	st.db.RLock()
	defer st.db.RUnlock()

	recs := make([]account.Record, 0, len(st.db.table))
	for _, rec := range st.db.table {
		recs = append(recs, *rec)
	}
	return recs, nil
}

func (st *recordStore) WatchRecord(_ context.Context, id string) (<-chan account.RecordEvent, func(), error) {
	st.db.Lock()
	defer st.db.Unlock()

	w := &recordWatcher{id: id, ch: make(chan account.RecordEvent, watcherBuffer)}
	st.db.watchers[id] = append(st.db.watchers[id], w)

	// initial delivery: the record's current state
	if rec, ok := st.db.table[id]; ok {
		w.ch <- account.RecordEvent{Record: *rec}
	}

	cancel := func() {
		st.db.Lock()
		defer st.db.Unlock()
		ws := st.db.watchers[id]
		for i, other := range ws {
			if other == w {
				st.db.watchers[id] = append(ws[:i], ws[i+1:]...)
				close(w.ch)
				return
			}
		}
	}
	return w.ch, cancel, nil
}

// notify delivers rec to every watcher of its key. Callers hold the write
// lock, which also serializes deliveries with cancellation: once a
// watcher's cancel returns, it can no longer be notified.
func (st *recordStore) notify(rec account.Record) {
	for _, w := range st.db.watchers[rec.ID] {
		select {
		case w.ch <- account.RecordEvent{Record: rec}:
		default:
			// slow watcher: drop the oldest buffered event; the drain must
			// not block in case the watcher emptied the buffer meanwhile.
			// The lock serializes writers, so a slot is free after it.
			select {
			case <-w.ch:
			default:
			}
			w.ch <- account.RecordEvent{Record: rec}
		}
	}
}
