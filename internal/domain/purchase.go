package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxInstallments is the hard upper bound on installments per purchase
const MaxInstallments = 60

// Purchase represents a card purchase billed in one or more monthly installments
type Purchase struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	OwnerID           string          `json:"owner_id" db:"owner_id"`
	Description       string          `json:"description" db:"description"`
	Category          string          `json:"category,omitempty" db:"category"`
	TotalAmount       decimal.Decimal `json:"total_amount" db:"total_amount"`
	InstallmentCount  int             `json:"installment_count" db:"installment_count"`
	InstallmentAmount decimal.Decimal `json:"installment_amount" db:"installment_amount"`
	PurchasedAt       time.Time       `json:"purchased_at" db:"purchased_at"`
	// StartMonth, StartYear and StartDay hold the calendar date of PurchasedAt
	// in the ledger zone at registration. StartDay is zero on older records.
	StartMonth        int             `json:"start_month" db:"start_month"`
	StartYear         int             `json:"start_year" db:"start_year"`
	StartDay          int             `json:"start_day" db:"start_day"`
	Active            bool            `json:"active" db:"active"`
	RecurringID       uuid.NullUUID   `json:"recurring_id" db:"recurring_id"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}

// Malformed reports whether the record cannot take part in ledger math.
func (p *Purchase) Malformed() bool {
	return p.InstallmentCount < 1 ||
		p.InstallmentCount > MaxInstallments ||
		!p.InstallmentAmount.IsPositive() ||
		p.PurchasedAt.IsZero()
}

// DTOs for requests and responses

type CreatePurchaseRequest struct {
	OwnerID          string          `json:"owner_id" validate:"required,max=64"`
	Description      string          `json:"description" validate:"max=200"`
	Category         string          `json:"category" validate:"max=50"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	InstallmentCount int             `json:"installment_count" validate:"required,gte=1,lte=60"`
	// PurchasedAt defaults to the current time when omitted.
	PurchasedAt *time.Time `json:"purchased_at,omitempty"`
}

type BalanceResponse struct {
	OwnerID string          `json:"owner_id"`
	AsOf    time.Time       `json:"as_of"`
	Balance decimal.Decimal `json:"balance"`
	Status  string          `json:"status"`
}

// Balance status labels
const (
	BalanceStatusDebtor  = "devedor"
	BalanceStatusCredit  = "credor"
	BalanceStatusSettled = "quitado"
)

// BalanceStatus classifies a balance the way it is shown to the user
func BalanceStatus(balance decimal.Decimal) string {
	switch {
	case balance.IsPositive():
		return BalanceStatusDebtor
	case balance.IsNegative():
		return BalanceStatusCredit
	default:
		return BalanceStatusSettled
	}
}
