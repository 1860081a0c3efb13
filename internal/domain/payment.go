package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Payment struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	OwnerID     string          `json:"owner_id" db:"owner_id"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Description string          `json:"description" db:"description"`
	PaidAt      time.Time       `json:"paid_at" db:"paid_at"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// Malformed reports whether the record cannot take part in ledger math.
func (p *Payment) Malformed() bool {
	return !p.Amount.IsPositive() || p.PaidAt.IsZero()
}

type CreatePaymentRequest struct {
	OwnerID     string          `json:"owner_id" validate:"required,max=64"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=200"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
}
