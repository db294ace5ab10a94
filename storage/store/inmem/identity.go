package inmemstore

import (
	"context"

	"github.com/DeathRaider12/HUB-TUTORIUM/core/identity"
)

type identityRepository struct {
	db *identityTable
}

var _ identity.Repository = (*identityRepository)(nil) // interface compliance check

func NewIdentityRepository(db *DB) identity.Repository {
	return &identityRepository{db: db.identities}
}

func (repo *identityRepository) CreateIdentity(_ context.Context, ident identity.Identity) (identity.Identity, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, other := range repo.db.table {
		if other.Email == ident.Email {
			return identity.Identity{}, identity.ErrEmailExists
		}
	}
	repo.db.table[ident.ID] = &ident
	return ident, nil
}

func (repo *identityRepository) GetIdentityByID(_ context.Context, id string) (identity.Identity, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ident, ok := repo.db.table[id]; ok {
		return *ident, nil
	}
	return identity.Identity{}, identity.ErrNotFound
}

func (repo *identityRepository) GetIdentityByEmail(_ context.Context, email string) (identity.Identity, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, ident := range repo.db.table {
		if ident.Email == email {
			return *ident, nil
		}
	}
	return identity.Identity{}, identity.ErrNotFound
}

func (repo *identityRepository) UpdateIdentity(_ context.Context, ident identity.Identity) (identity.Identity, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[ident.ID]; !ok {
		return identity.Identity{}, identity.ErrNotFound
	}
	repo.db.table[ident.ID] = &ident
	return ident, nil
}
