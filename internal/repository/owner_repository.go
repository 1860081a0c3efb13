package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type ownerRepository struct {
	db *sqlx.DB
}

func NewOwnerRepository(db *sqlx.DB) OwnerRepository {
	return &ownerRepository{db: db}
}

func (r *ownerRepository) ListOwners(ctx context.Context) ([]string, error) {
	query := `
		SELECT owner_id FROM purchases WHERE active = TRUE
		UNION
		SELECT owner_id FROM payments
		ORDER BY owner_id
	`

	var owners []string
	if err := r.db.SelectContext(ctx, &owners, query); err != nil {
		return nil, err
	}
	return owners, nil
}
