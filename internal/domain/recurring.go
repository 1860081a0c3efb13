package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecurringPurchase is a template charged once per statement period, such as a
// subscription. Applying it creates a single-installment Purchase.
type RecurringPurchase struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	OwnerID     string          `json:"owner_id" db:"owner_id"`
	Description string          `json:"description" db:"description"`
	Category    string          `json:"category,omitempty" db:"category"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Active      bool            `json:"active" db:"active"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// UpsertRecurringRequest creates a template when ID is nil and updates the
// owner's template otherwise. A nil Active keeps the current state (new
// templates start active).
type UpsertRecurringRequest struct {
	ID          *uuid.UUID      `json:"id,omitempty"`
	OwnerID     string          `json:"owner_id" validate:"required,max=64"`
	Description string          `json:"description" validate:"required,max=200"`
	Category    string          `json:"category" validate:"max=50"`
	Amount      decimal.Decimal `json:"amount"`
	Active      *bool           `json:"active,omitempty"`
}

type ApplyRecurringRequest struct {
	// Cycle is MM/YYYY; empty means the period open now.
	Cycle string `json:"cycle"`
}

// ApplyRecurringResult reports one application of an owner's templates.
type ApplyRecurringResult struct {
	OwnerID   string `json:"owner_id"`
	Period    Period `json:"period"`
	Templates int    `json:"total_templates"`
	Created   int    `json:"created"`
	Skipped   int    `json:"skipped"`
}
