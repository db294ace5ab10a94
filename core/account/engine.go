package account

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/DeathRaider12/HUB-TUTORIUM/core"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/identity"
)

// Engine derives the current authorization State from two live sources:
// the identity stream and the role store. One Observe loop serves one
// client; events are processed to completion in order, so emissions are
// totally ordered per client.
type Engine struct {
	store   Store
	admins  *AdminDirectory
	logger  core.Logger
	timeout time.Duration // bound on record lookup/creation and watch setup
}

func NewEngine(store Store, admins *AdminDirectory, logger core.Logger, timeout time.Duration) *Engine {
	return &Engine{store: store, admins: admins, logger: logger, timeout: timeout}
}

// Resolve derives the signed-in State once, without subscribing.
// Used by request-scoped callers; Observe shares the same derivation.
func (e *Engine) Resolve(ctx context.Context, ident identity.Identity) State {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if acct, ok := e.admins.Lookup(ident.Email); ok {
		rec := e.bookkeepPrivileged(ctx, ident, acct)
		return State{Session: NewSession(ident, rec)}
	}

	rec, err := e.ensureRecord(ctx, ident)
	if err != nil {
		return State{Err: errors.WithMessage(ErrStoreUnavailable, err.Error())}
	}
	return State{Session: NewSession(ident, rec)}
}

// Observe consumes an identity event stream and emits authorization States.
// The returned channel closes when ctx is done or events is closed.
func (e *Engine) Observe(ctx context.Context, events <-chan identity.Event) <-chan State {
	out := make(chan State)
	go e.observe(ctx, events, out)
	return out
}

func (e *Engine) observe(ctx context.Context, events <-chan identity.Event, out chan<- State) {
	defer close(out)

	var (
		cur         *identity.Identity
		recCh       <-chan RecordEvent
		cancelWatch func()
	)

	// teardown is synchronous: once it returns, the old subscription's
	// channel is no longer selected, so a late event from it can never
	// overwrite a newer Session.
	teardown := func() {
		if cancelWatch != nil {
			cancelWatch()
			cancelWatch = nil
			recCh = nil
		}
	}
	defer teardown()

	emit := func(st State) bool {
		select {
		case out <- st:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-events:
			if !ok {
				return
			}
			teardown()
			cur = ev.Identity

			if cur == nil { // signed out
				if !emit(State{}) {
					return
				}
				continue
			}

			if acct, ok := e.admins.Lookup(cur.Email); ok {
				// privileged accounts short-circuit record lookup
				tctx, cancel := context.WithTimeout(ctx, e.timeout)
				rec := e.bookkeepPrivileged(tctx, *cur, acct)
				cancel()
				if !emit(State{Session: NewSession(*cur, rec)}) {
					return
				}
				continue
			}

			tctx, cancel := context.WithTimeout(ctx, e.timeout)
			_, err := e.ensureRecord(tctx, *cur)
			cancel()
			if err != nil {
				if !emit(State{Err: errors.WithMessage(ErrStoreUnavailable, err.Error())}) {
					return
				}
				continue
			}

			recCh, cancelWatch, err = e.store.WatchRecord(ctx, cur.ID)
			if err != nil {
				if !emit(State{Err: errors.WithMessage(ErrStoreUnavailable, err.Error())}) {
					return
				}
				continue
			}
			// first emission comes from the watch's initial delivery

		case rev, ok := <-recCh:
			if !ok {
				recCh = nil
				continue
			}
			if cur == nil {
				continue
			}
			if rev.Err != nil {
				if !emit(State{Err: errors.WithMessage(ErrStoreUnavailable, rev.Err.Error())}) {
					return
				}
				continue
			}
			// last-write-wins by subscription delivery order
			if !emit(State{Session: NewSession(*cur, rev.Record)}) {
				return
			}
		}
	}
}

// bookkeepPrivileged synthesizes the fixed admin record and best-effort
// upserts it so the record is visible to admin tooling.
func (e *Engine) bookkeepPrivileged(ctx context.Context, ident identity.Identity, acct AdminAccount) Record {
	rec := PrivilegedRecord(ident, acct, time.Now().UTC())
	if _, err := e.store.UpsertRecord(ctx, rec); err != nil {
		e.logger.Warn("privileged record bookkeeping failed", err)
	}
	return rec
}

// ensureRecord guarantees every non-privileged identity converges to a
// record: missing records are created at pending before subscribing.
func (e *Engine) ensureRecord(ctx context.Context, ident identity.Identity) (Record, error) {
	rec, err := e.store.GetRecord(ctx, ident.ID)
	if err == nil {
		return rec, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return Record{}, err
	}

	now := time.Now().UTC()
	rec, err = e.store.CreateRecord(ctx, Record{
		ID:          ident.ID,
		Email:       ident.Email,
		DisplayName: ident.DisplayName,
		Role:        RolePending,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if errors.Cause(err) == ErrAlreadyExists { // lost a create race; the record is there
		return e.store.GetRecord(ctx, ident.ID)
	}
	return rec, err
}
