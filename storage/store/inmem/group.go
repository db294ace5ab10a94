package inmemstore

import (
	"context"
	"sort"
	"time"

	"github.com/DeathRaider12/HUB-TUTORIUM/core/group"
)

type groupRepository struct {
	db *groupTable
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db *DB) group.Repository {
	return &groupRepository{db: db.groups}
}

func (repo *groupRepository) CreateGroup(_ context.Context, g group.Group) (group.Group, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.table[g.ID] = &g
	return g, nil
}

func (repo *groupRepository) GetGroupByID(_ context.Context, id string) (group.Group, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if g, ok := repo.db.table[id]; ok {
		return *g, nil
	}
	return group.Group{}, group.ErrNotFound
}

func (repo *groupRepository) QueryAllGroups(_ context.Context) ([]group.Group, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	groups := make([]group.Group, 0, len(repo.db.table))
	for _, g := range repo.db.table {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].CreatedAt.After(groups[j].CreatedAt) })
	return groups, nil
}

func (repo *groupRepository) AddMember(_ context.Context, gid, uid string) (group.Group, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	g, ok := repo.db.table[gid]
	if !ok {
		return group.Group{}, group.ErrNotFound
	}
	if g.HasMember(uid) {
		return group.Group{}, group.ErrAlreadyMember
	}
	g.MemberIDs = append(g.MemberIDs, uid)
	g.UpdatedAt = time.Now().UTC()
	return *g, nil
}

func (repo *groupRepository) RemoveMember(_ context.Context, gid, uid string) (group.Group, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	g, ok := repo.db.table[gid]
	if !ok {
		return group.Group{}, group.ErrNotFound
	}
	for i, mid := range g.MemberIDs {
		if mid == uid {
			g.MemberIDs = append(g.MemberIDs[:i], g.MemberIDs[i+1:]...)
			g.UpdatedAt = time.Now().UTC()
			return *g, nil
		}
	}
	return group.Group{}, group.ErrNotMember
}
