package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/fatura-engine/internal/domain"

	"github.com/jmoiron/sqlx"
)

const recurringColumns = `id, owner_id, description, category, amount, active, created_at, updated_at`

type recurringRepository struct {
	db  *sqlx.DB
	loc *time.Location
}

func NewRecurringPurchaseRepository(db *sqlx.DB, loc *time.Location) RecurringPurchaseRepository {
	return &recurringRepository{db: db, loc: locOrUTC(loc)}
}

func (r *recurringRepository) Create(ctx context.Context, recurring *domain.RecurringPurchase) error {
	query := `
		INSERT INTO recurring_purchases (` + recurringColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		recurring.ID,
		recurring.OwnerID,
		recurring.Description,
		recurring.Category,
		recurring.Amount,
		recurring.Active,
		recurring.CreatedAt,
		recurring.UpdatedAt,
	)

	return duplicateOr(err)
}

func (r *recurringRepository) Update(ctx context.Context, recurring *domain.RecurringPurchase) error {
	query := `
		UPDATE recurring_purchases
		SET description = $2, category = $3, amount = $4, active = $5, updated_at = $6
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query,
		recurring.ID,
		recurring.Description,
		recurring.Category,
		recurring.Amount,
		recurring.Active,
		recurring.UpdatedAt,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *recurringRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RecurringPurchase, error) {
	query := `
		SELECT ` + recurringColumns + `
		FROM recurring_purchases
		WHERE id = $1
	`

	var recurring domain.RecurringPurchase
	if err := r.db.GetContext(ctx, &recurring, query, id); err != nil {
		return nil, err
	}

	r.normalize(&recurring)
	return &recurring, nil
}

func (r *recurringRepository) ListByOwner(ctx context.Context, ownerID string, activeOnly bool) ([]*domain.RecurringPurchase, error) {
	query := `
		SELECT ` + recurringColumns + `
		FROM recurring_purchases
		WHERE owner_id = $1 AND (active OR NOT $2)
		ORDER BY created_at, id
	`

	var templates []*domain.RecurringPurchase
	if err := r.db.SelectContext(ctx, &templates, query, ownerID, activeOnly); err != nil {
		return nil, err
	}

	for _, t := range templates {
		r.normalize(t)
	}
	return templates, nil
}

func (r *recurringRepository) ListOwners(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT owner_id
		FROM recurring_purchases
		WHERE active = TRUE
		ORDER BY owner_id
	`

	var owners []string
	if err := r.db.SelectContext(ctx, &owners, query); err != nil {
		return nil, err
	}
	return owners, nil
}

func (r *recurringRepository) normalize(t *domain.RecurringPurchase) {
	t.CreatedAt = t.CreatedAt.In(r.loc)
	t.UpdatedAt = t.UpdatedAt.In(r.loc)
}
