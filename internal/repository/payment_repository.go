package repository

import (
	"context"
	"time"

	"github.com/segyhp/fatura-engine/internal/domain"

	"github.com/jmoiron/sqlx"
)

type paymentRepository struct {
	db  *sqlx.DB
	loc *time.Location
}

func NewPaymentRepository(db *sqlx.DB, loc *time.Location) PaymentRepository {
	return &paymentRepository{db: db, loc: locOrUTC(loc)}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, owner_id, amount, description, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.OwnerID,
		payment.Amount,
		payment.Description,
		payment.PaidAt,
		payment.CreatedAt,
	)

	return err
}

func (r *paymentRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Payment, error) {
	query := `
		SELECT id, owner_id, amount, description, paid_at, created_at
		FROM payments
		WHERE owner_id = $1
		ORDER BY created_at, id
	`

	return r.selectPayments(ctx, query, ownerID)
}

func (r *paymentRepository) ListByOwnerInRange(ctx context.Context, ownerID string, start, end time.Time) ([]*domain.Payment, error) {
	query := `
		SELECT id, owner_id, amount, description, paid_at, created_at
		FROM payments
		WHERE owner_id = $1 AND paid_at >= $2 AND paid_at < $3
		ORDER BY created_at, id
	`

	// Postgres keeps microseconds, so the inclusive nanosecond end is sent as
	// an exclusive bound to avoid rounding onto the next period's first instant.
	return r.selectPayments(ctx, query, ownerID, start, end.Add(time.Nanosecond))
}

func (r *paymentRepository) selectPayments(ctx context.Context, query string, args ...any) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, err
	}

	for _, p := range payments {
		p.PaidAt = p.PaidAt.In(r.loc)
		p.CreatedAt = p.CreatedAt.In(r.loc)
	}
	return payments, nil
}
