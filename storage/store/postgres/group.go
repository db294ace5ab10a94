package pgstore

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/DeathRaider12/HUB-TUTORIUM/core/group"
)

type groupRow struct {
	ID          string      `db:"id"`
	Name        string      `db:"name"`
	Description null.String `db:"description"`
	Subject     null.String `db:"subject"`
	OwnerID     string      `db:"owner_id"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`

	MemberIDs pq.StringArray `db:"member_ids"`
}

func (r groupRow) group() group.Group {
	return group.Group{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description.String,
		Subject:     r.Subject.String,
		OwnerID:     r.OwnerID,
		MemberIDs:   r.MemberIDs,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type groupRepository struct {
	db *sqlx.DB
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db *sqlx.DB) group.Repository {
	return &groupRepository{db: db}
}

const groupQuery = `
	SELECT g.*,
	       COALESCE(array_agg(m.member_id ORDER BY m.joined_at) FILTER (WHERE m.member_id IS NOT NULL), '{}') AS member_ids
	FROM study_groups g
	LEFT JOIN study_group_members m ON m.group_id = g.id`

func (repo *groupRepository) CreateGroup(ctx context.Context, g group.Group) (group.Group, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return group.Group{}, errors.Wrap(err, "creating group")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO study_groups (id, name, description, subject, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		g.ID, g.Name,
		null.NewString(g.Description, g.Description != ""),
		null.NewString(g.Subject, g.Subject != ""),
		g.OwnerID, g.CreatedAt.UTC(), g.UpdatedAt.UTC(),
	)
	if err != nil {
		return group.Group{}, errors.Wrap(err, "creating group")
	}
	for _, mid := range g.MemberIDs {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO study_group_members (group_id, member_id, joined_at)
			VALUES ($1, $2, $3)`,
			g.ID, mid, g.CreatedAt.UTC(),
		); err != nil {
			return group.Group{}, errors.Wrap(err, "adding initial member")
		}
	}
	if err = tx.Commit(); err != nil {
		return group.Group{}, errors.Wrap(err, "creating group")
	}
	return repo.GetGroupByID(ctx, g.ID)
}

func (repo *groupRepository) GetGroupByID(ctx context.Context, id string) (group.Group, error) {
	var row groupRow
	err := repo.db.GetContext(ctx, &row, groupQuery+` WHERE g.id = $1 GROUP BY g.id`, id)
	if err != nil {
		return group.Group{}, trapNoRowsErr(err, group.ErrNotFound, "getting group")
	}
	return row.group(), nil
}

func (repo *groupRepository) QueryAllGroups(ctx context.Context) ([]group.Group, error) {
	var rows []groupRow
	if err := repo.db.SelectContext(ctx, &rows, groupQuery+` GROUP BY g.id ORDER BY g.created_at DESC`); err != nil {
		return nil, errors.Wrap(err, "querying groups")
	}
	groups := make([]group.Group, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, row.group())
	}
	return groups, nil
}

func (repo *groupRepository) AddMember(ctx context.Context, gid, uid string) (group.Group, error) {
	if _, err := repo.GetGroupByID(ctx, gid); err != nil {
		return group.Group{}, err
	}
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO study_group_members (group_id, member_id, joined_at)
		VALUES ($1, $2, $3)`,
		gid, uid, time.Now().UTC(),
	)
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return group.Group{}, group.ErrAlreadyMember
		}
		return group.Group{}, errors.Wrap(err, "adding member")
	}
	return repo.GetGroupByID(ctx, gid)
}

func (repo *groupRepository) RemoveMember(ctx context.Context, gid, uid string) (group.Group, error) {
	if _, err := repo.GetGroupByID(ctx, gid); err != nil {
		return group.Group{}, err
	}
	res, err := repo.db.ExecContext(ctx, `
		DELETE FROM study_group_members WHERE group_id = $1 AND member_id = $2`,
		gid, uid,
	)
	if err != nil {
		return group.Group{}, errors.Wrap(err, "removing member")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return group.Group{}, group.ErrNotMember
	}
	return repo.GetGroupByID(ctx, gid)
}
