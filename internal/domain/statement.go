package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LineKindInstallment = "installment"
	LineKindPayment     = "payment"
)

const (
	StatementKindOpen   = "open"
	StatementKindClosed = "closed"
)

// StatementLine is one displayable entry of a statement
type StatementLine struct {
	Kind        string          `json:"kind"`
	SourceID    uuid.UUID       `json:"source_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	DisplayDate time.Time       `json:"display_date"`
	// Installment metadata, zero for payments.
	InstallmentIndex int `json:"installment_index,omitempty"`
	InstallmentCount int `json:"installment_count,omitempty"`
}

type StatementTotals struct {
	ParcelasTotal   decimal.Decimal `json:"parcelas_total"`
	PagamentosTotal decimal.Decimal `json:"pagamentos_total"`
	SaldoPeriodo    decimal.Decimal `json:"saldo_periodo"`
}

// Statement is a fatura extract for a single period
type Statement struct {
	OwnerID     string          `json:"owner_id"`
	Kind        string          `json:"kind"`
	Period      Period          `json:"period"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	Items       []StatementLine `json:"items"`
	Totals      StatementTotals `json:"totals"`
}

type StatementTextResponse struct {
	Statement *Statement `json:"statement"`
	Messages  []string   `json:"messages"`
}
