package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/fatura-engine/internal/domain"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const purchaseColumns = `id, owner_id, description, category, total_amount, installment_count,
		installment_amount, purchased_at, start_month, start_year, start_day, active, recurring_id, created_at`

type purchaseRepository struct {
	db  *sqlx.DB
	loc *time.Location
}

// NewPurchaseRepository returns a Postgres-backed repository. Timestamps read
// back are normalized to loc.
func NewPurchaseRepository(db *sqlx.DB, loc *time.Location) PurchaseRepository {
	return &purchaseRepository{db: db, loc: locOrUTC(loc)}
}

func (r *purchaseRepository) Create(ctx context.Context, purchase *domain.Purchase) error {
	query := `
		INSERT INTO purchases (` + purchaseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(ctx, query,
		purchase.ID,
		purchase.OwnerID,
		purchase.Description,
		purchase.Category,
		purchase.TotalAmount,
		purchase.InstallmentCount,
		purchase.InstallmentAmount,
		purchase.PurchasedAt,
		purchase.StartMonth,
		purchase.StartYear,
		purchase.StartDay,
		purchase.Active,
		purchase.RecurringID,
		purchase.CreatedAt,
	)

	return duplicateOr(err)
}

func (r *purchaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Purchase, error) {
	query := `
		SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE id = $1
	`

	var purchase domain.Purchase
	if err := r.db.GetContext(ctx, &purchase, query, id); err != nil {
		return nil, err
	}

	r.normalize(&purchase)
	return &purchase, nil
}

func (r *purchaseRepository) ListActiveByOwner(ctx context.Context, ownerID string) ([]*domain.Purchase, error) {
	query := `
		SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE owner_id = $1 AND active = TRUE
		ORDER BY created_at, id
	`

	return r.selectPurchases(ctx, query, ownerID)
}

func (r *purchaseRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Purchase, error) {
	query := `
		SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE owner_id = $1
		ORDER BY created_at, id
	`

	return r.selectPurchases(ctx, query, ownerID)
}

func (r *purchaseRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE purchases
		SET active = FALSE
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query, id)
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

func (r *purchaseRepository) selectPurchases(ctx context.Context, query string, args ...any) ([]*domain.Purchase, error) {
	var purchases []*domain.Purchase
	if err := r.db.SelectContext(ctx, &purchases, query, args...); err != nil {
		return nil, err
	}

	for _, p := range purchases {
		r.normalize(p)
	}
	return purchases, nil
}

func (r *purchaseRepository) normalize(p *domain.Purchase) {
	p.PurchasedAt = p.PurchasedAt.In(r.loc)
	p.CreatedAt = p.CreatedAt.In(r.loc)
}

func locOrUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

const pqUniqueViolation = "23505"

// duplicateOr maps a primary-key conflict to ErrDuplicate.
func duplicateOr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return ErrDuplicate
	}
	return err
}
