// Package inmemstore is an in-memory store used in DEV and in tests.
package inmemstore

import (
	"sync"

	"github.com/DeathRaider12/HUB-TUTORIUM/core/account"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/group"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/identity"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/question"
)

type (
	identityTable struct {
		sync.RWMutex
		table map[string]*identity.Identity
	}

	recordTable struct {
		sync.RWMutex
		table    map[string]*account.Record
		watchers map[string][]*recordWatcher
	}

	questionTable struct {
		sync.RWMutex
		questions map[string]*question.Question
		answers   map[string]*question.Answer
	}

	groupTable struct {
		sync.RWMutex
		table map[string]*group.Group
	}

	DB struct {
		identities *identityTable
		records    *recordTable
		questions  *questionTable
		groups     *groupTable
	}
)

func NewDB() *DB {
	return &DB{
		identities: &identityTable{table: make(map[string]*identity.Identity)},
		records: &recordTable{
			table:    make(map[string]*account.Record),
			watchers: make(map[string][]*recordWatcher),
		},
		questions: &questionTable{
			questions: make(map[string]*question.Question),
			answers:   make(map[string]*question.Answer),
		},
		groups: &groupTable{table: make(map[string]*group.Group)},
	}
}
