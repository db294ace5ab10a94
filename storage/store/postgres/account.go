package pgstore

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/DeathRaider12/HUB-TUTORIUM/core"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/account"
)

const (
	recordsChannel = "role_records"
	watcherBuffer  = 32

	uniqueViolation = "23505"
)

type recordRow struct {
	ID            string      `db:"id"`
	Email         null.String `db:"email"`
	DisplayName   null.String `db:"display_name"`
	Role          string      `db:"role"`
	RequestedRole null.String `db:"requested_role"`
	Privileged    bool        `db:"privileged"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

func (r recordRow) record() account.Record {
	return account.Record{
		ID:            r.ID,
		Email:         r.Email.String,
		DisplayName:   r.DisplayName.String,
		Role:          account.Role(r.Role),
		RequestedRole: account.Role(r.RequestedRole.String),
		Privileged:    r.Privileged,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func rowFromRecord(rec account.Record) recordRow {
	role := rec.Role
	if role == "" {
		role = account.RolePending
	}
	return recordRow{
		ID:            rec.ID,
		Email:         null.NewString(rec.Email, rec.Email != ""),
		DisplayName:   null.NewString(rec.DisplayName, rec.DisplayName != ""),
		Role:          string(role),
		RequestedRole: null.NewString(string(rec.RequestedRole), rec.RequestedRole != ""),
		Privileged:    rec.Privileged,
		CreatedAt:     rec.CreatedAt.UTC(),
		UpdatedAt:     rec.UpdatedAt.UTC(),
	}
}

type recordWatcher struct {
	id string
	ch chan account.RecordEvent
}

// RecordStore is the durable role store. One pq.Listener serves every
// record subscription; the table trigger NOTIFYs the changed record's id.
type RecordStore struct {
	db       *sqlx.DB
	listener *pq.Listener
	logger   core.Logger

	mu       sync.Mutex
	watchers map[string][]*recordWatcher
}

var _ account.Store = (*RecordStore)(nil) // interface compliance check

func NewRecordStore(db *sqlx.DB, conninfo string, logger core.Logger) (*RecordStore, error) {
	st := &RecordStore{
		db:       db,
		logger:   logger,
		watchers: make(map[string][]*recordWatcher),
	}
	st.listener = pq.NewListener(conninfo, 10*time.Second, time.Minute, nil)
	if err := st.listener.Listen(recordsChannel); err != nil {
		return nil, errors.Wrap(err, "listening on "+recordsChannel)
	}
	go st.dispatch()
	return st, nil
}

func (st *RecordStore) Close() error {
	return st.listener.Close()
}

func (st *RecordStore) GetRecord(ctx context.Context, id string) (account.Record, error) {
	var row recordRow
	err := st.db.GetContext(ctx, &row, `SELECT * FROM role_records WHERE id = $1`, id)
	if err != nil {
		return account.Record{}, trapNoRowsErr(err, account.ErrNotFound, "getting record")
	}
	return row.record(), nil
}

func (st *RecordStore) CreateRecord(ctx context.Context, rec account.Record) (account.Record, error) {
	row := rowFromRecord(rec)
	err := st.db.QueryRowxContext(ctx, `
		INSERT INTO role_records (id, email, display_name, role, requested_role, privileged, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING *`,
		row.ID, row.Email, row.DisplayName, row.Role, row.RequestedRole, row.Privileged, row.CreatedAt, row.UpdatedAt,
	).StructScan(&row)
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return account.Record{}, account.ErrAlreadyExists
		}
		return account.Record{}, errors.Wrap(err, "creating record")
	}
	return row.record(), nil
}

func (st *RecordStore) UpsertRecord(ctx context.Context, rec account.Record) (account.Record, error) {
	row := rowFromRecord(rec)
	err := st.db.QueryRowxContext(ctx, `
		INSERT INTO role_records (id, email, display_name, role, requested_role, privileged, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			email          = COALESCE(EXCLUDED.email, role_records.email),
			display_name   = COALESCE(EXCLUDED.display_name, role_records.display_name),
			role           = EXCLUDED.role,
			requested_role = COALESCE(EXCLUDED.requested_role, role_records.requested_role),
			privileged     = EXCLUDED.privileged,
			updated_at     = EXCLUDED.updated_at
		RETURNING *`,
		row.ID, row.Email, row.DisplayName, row.Role, row.RequestedRole, row.Privileged, row.CreatedAt, row.UpdatedAt,
	).StructScan(&row)
	if err != nil {
		return account.Record{}, errors.Wrap(err, "upserting record")
	}
	return row.record(), nil
}

func (st *RecordStore) SetRecordRole(ctx context.Context, id string, role account.Role, at time.Time) (account.Record, error) {
	var row recordRow
	err := st.db.QueryRowxContext(ctx, `
		UPDATE role_records SET role = $2, updated_at = $3 WHERE id = $1
		RETURNING *`,
		id, string(role), at.UTC(),
	).StructScan(&row)
	if err != nil {
		return account.Record{}, trapNoRowsErr(err, account.ErrNotFound, "setting record role")
	}
	return row.record(), nil
}

func (st *RecordStore) QueryAllRecords(ctx context.Context) ([]account.Record, error) {
	var rows []recordRow
	if err := st.db.SelectContext(ctx, &rows, `SELECT * FROM role_records ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "querying records")
	}
	recs := make([]account.Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, row.record())
	}
	return recs, nil
}

func (st *RecordStore) WatchRecord(ctx context.Context, id string) (<-chan account.RecordEvent, func(), error) {
	w := &recordWatcher{id: id, ch: make(chan account.RecordEvent, watcherBuffer)}

	st.mu.Lock()
	st.watchers[id] = append(st.watchers[id], w)
	// initial delivery: the record's current state
	if rec, err := st.GetRecord(ctx, id); err == nil {
		w.ch <- account.RecordEvent{Record: rec}
	} else if errors.Cause(err) != account.ErrNotFound {
		w.ch <- account.RecordEvent{Err: err}
	}
	st.mu.Unlock()

	cancel := func() {
		st.mu.Lock()
		defer st.mu.Unlock()
		ws := st.watchers[id]
		for i, other := range ws {
			if other == w {
				st.watchers[id] = append(ws[:i], ws[i+1:]...)
				close(w.ch)
				return
			}
		}
	}
	return w.ch, cancel, nil
}

// dispatch fans pg_notify deliveries out to record watchers. A nil
// notification means the listener reconnected and may have missed events,
// so every watched record is re-read.
func (st *RecordStore) dispatch() {
	for n := range st.listener.Notify {
		if n == nil {
			st.mu.Lock()
			ids := make([]string, 0, len(st.watchers))
			for id := range st.watchers {
				ids = append(ids, id)
			}
			st.mu.Unlock()
			for _, id := range ids {
				st.deliver(id)
			}
			continue
		}
		st.deliver(n.Extra)
	}
}

func (st *RecordStore) deliver(id string) {
	st.mu.Lock()
	watched := len(st.watchers[id]) > 0
	st.mu.Unlock()
	if !watched {
		return
	}

	rec, err := st.GetRecord(context.Background(), id)
	ev := account.RecordEvent{Record: rec}
	if err != nil {
		if errors.Cause(err) == account.ErrNotFound {
			return
		}
		ev = account.RecordEvent{Err: err}
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	for _, w := range st.watchers[id] {
		select {
		case w.ch <- ev:
		default:
			// slow watcher: drop the oldest buffered event; the drain must
			// not block in case the watcher emptied the buffer meanwhile.
			// The lock serializes writers, so a slot is free after it.
			select {
			case <-w.ch:
			default:
			}
			w.ch <- ev
		}
	}
}

// trapNoRowsErr maps sql "no rows" to the domain's not-found error.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}
