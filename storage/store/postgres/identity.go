package pgstore

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/DeathRaider12/HUB-TUTORIUM/core/identity"
)

type identityRow struct {
	ID           string      `db:"id"`
	Email        string      `db:"email"`
	DisplayName  null.String `db:"display_name"`
	Verified     bool        `db:"verified"`
	Federated    bool        `db:"federated"`
	PasswordHash null.Bytes  `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func (r identityRow) identity() identity.Identity {
	return identity.Identity{
		ID:           r.ID,
		Email:        r.Email,
		DisplayName:  r.DisplayName.String,
		Verified:     r.Verified,
		Federated:    r.Federated,
		PasswordHash: r.PasswordHash.Bytes,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		LastLoginAt:  r.LastLogin.Time,
	}
}

func rowFromIdentity(ident identity.Identity) identityRow {
	return identityRow{
		ID:           ident.ID,
		Email:        ident.Email,
		DisplayName:  null.NewString(ident.DisplayName, ident.DisplayName != ""),
		Verified:     ident.Verified,
		Federated:    ident.Federated,
		PasswordHash: null.BytesFrom(ident.PasswordHash),
		CreatedAt:    ident.CreatedAt.UTC(),
		UpdatedAt:    ident.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(ident.LastLoginAt.UTC(), !ident.LastLoginAt.IsZero()),
	}
}

type identityRepository struct {
	db *sqlx.DB
}

var _ identity.Repository = (*identityRepository)(nil) // interface compliance check

func NewIdentityRepository(db *sqlx.DB) identity.Repository {
	return &identityRepository{db: db}
}

func (repo *identityRepository) CreateIdentity(ctx context.Context, ident identity.Identity) (identity.Identity, error) {
	row := rowFromIdentity(ident)
	err := repo.db.QueryRowxContext(ctx, `
		INSERT INTO identities (id, email, display_name, verified, federated, password_hash, created_at, updated_at, last_login)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING *`,
		row.ID, row.Email, row.DisplayName, row.Verified, row.Federated, row.PasswordHash, row.CreatedAt, row.UpdatedAt, row.LastLogin,
	).StructScan(&row)
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return identity.Identity{}, identity.ErrEmailExists
		}
		return identity.Identity{}, errors.Wrap(err, "creating identity")
	}
	return row.identity(), nil
}

func (repo *identityRepository) GetIdentityByID(ctx context.Context, id string) (identity.Identity, error) {
	var row identityRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM identities WHERE id = $1`, id); err != nil {
		return identity.Identity{}, trapNoRowsErr(err, identity.ErrNotFound, "getting identity")
	}
	return row.identity(), nil
}

func (repo *identityRepository) GetIdentityByEmail(ctx context.Context, email string) (identity.Identity, error) {
	var row identityRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM identities WHERE email = $1`, email); err != nil {
		return identity.Identity{}, trapNoRowsErr(err, identity.ErrNotFound, "getting identity by email")
	}
	return row.identity(), nil
}

func (repo *identityRepository) UpdateIdentity(ctx context.Context, ident identity.Identity) (identity.Identity, error) {
	row := rowFromIdentity(ident)
	err := repo.db.QueryRowxContext(ctx, `
		UPDATE identities SET
			email = $2, display_name = $3, verified = $4, federated = $5,
			password_hash = $6, updated_at = $7, last_login = $8
		WHERE id = $1
		RETURNING *`,
		row.ID, row.Email, row.DisplayName, row.Verified, row.Federated, row.PasswordHash, row.UpdatedAt, row.LastLogin,
	).StructScan(&row)
	if err != nil {
		return identity.Identity{}, trapNoRowsErr(err, identity.ErrNotFound, "updating identity")
	}
	return row.identity(), nil
}
