package group

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/DeathRaider12/HUB-TUTORIUM/core/account"
)

var (
	ErrNotFound      = errors.New("study group not found")
	ErrAlreadyMember = errors.New("already a member of this group")
	ErrNotMember     = errors.New("not a member of this group")
	ErrOwnerMustStay = errors.New("the group owner cannot leave their own group")
)

type (
	Repository interface {
		CreateGroup(ctx context.Context, g Group) (Group, error)
		GetGroupByID(ctx context.Context, id string) (Group, error)
		QueryAllGroups(ctx context.Context) ([]Group, error)
		// AddMember fails with ErrAlreadyMember on duplicate joins.
		AddMember(ctx context.Context, gid, uid string) (Group, error)
		// RemoveMember fails with ErrNotMember if uid is not in the group.
		RemoveMember(ctx context.Context, gid, uid string) (Group, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create makes a new study group; the creator joins as owner.
func (svc *Service) Create(ctx context.Context, actor *account.Session, ng NewGroup) (Group, error) {
	now := time.Now().UTC()
	return svc.repo.CreateGroup(ctx, Group{
		ID:          uuid.NewString(),
		Name:        ng.Name,
		Description: ng.Description,
		Subject:     ng.Subject,
		OwnerID:     actor.ID,
		MemberIDs:   []string{actor.ID},
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) QueryAll(ctx context.Context) ([]Group, error) {
	return svc.repo.QueryAllGroups(ctx)
}

func (svc *Service) Get(ctx context.Context, id string) (Group, error) {
	return svc.repo.GetGroupByID(ctx, id)
}

func (svc *Service) Join(ctx context.Context, actor *account.Session, id string) (Group, error) {
	return svc.repo.AddMember(ctx, id, actor.ID)
}

func (svc *Service) Leave(ctx context.Context, actor *account.Session, id string) (Group, error) {
	g, err := svc.repo.GetGroupByID(ctx, id)
	if err != nil {
		return Group{}, err
	}
	if g.OwnerID == actor.ID {
		return Group{}, ErrOwnerMustStay
	}
	return svc.repo.RemoveMember(ctx, id, actor.ID)
}
