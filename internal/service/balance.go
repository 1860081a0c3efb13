package service

import (
	"context"
	"time"

	"github.com/segyhp/fatura-engine/internal/billing"
	"github.com/segyhp/fatura-engine/internal/domain"
	"github.com/segyhp/fatura-engine/internal/logging"
	"github.com/segyhp/fatura-engine/internal/repository"
	customError "github.com/segyhp/fatura-engine/pkg/errors"
	"github.com/segyhp/fatura-engine/pkg/utils"

	"github.com/shopspring/decimal"
)

// BalanceEngine computes an owner's outstanding balance from source records.
// Nothing is cached: every call re-reads purchases and payments.
type BalanceEngine struct {
	purchases repository.PurchaseRepository
	payments  repository.PaymentRepository
	mapper    *billing.Mapper
	logger    logging.Logger
}

func NewBalanceEngine(
	purchases repository.PurchaseRepository,
	payments repository.PaymentRepository,
	mapper *billing.Mapper,
	logger logging.Logger,
) *BalanceEngine {
	return &BalanceEngine{
		purchases: purchases,
		payments:  payments,
		mapper:    mapper,
		logger:    logger,
	}
}

// ComputeBalance returns every installment due through the calendar month of
// asOf minus every payment, rounded to cents once at the end.
//
// Store failures are returned as STORE_UNAVAILABLE and never reported as a
// zero balance.
func (e *BalanceEngine) ComputeBalance(ctx context.Context, ownerID string, asOf time.Time) (decimal.Decimal, error) {
	purchases, err := e.purchases.ListActiveByOwner(ctx, ownerID)
	if err != nil {
		return decimal.Zero, customError.WrapStoreUnavailable(err)
	}

	payments, err := e.payments.ListByOwner(ctx, ownerID)
	if err != nil {
		return decimal.Zero, customError.WrapStoreUnavailable(err)
	}

	local := asOf.In(e.mapper.Cycle().Location())
	period := domain.Period{Month: int(local.Month()), Year: local.Year()}

	totalDue := decimal.Zero
	for _, p := range purchases {
		if !p.Active {
			continue
		}
		if p.Malformed() {
			e.logger.Warn(ctx, "skipping malformed purchase", "owner_id", ownerID, "purchase_id", p.ID)
			continue
		}
		due := e.mapper.DueCountThrough(p, period)
		totalDue = totalDue.Add(p.InstallmentAmount.Mul(decimal.NewFromInt(int64(due))))
	}

	totalPaid := decimal.Zero
	for _, p := range payments {
		if p.Malformed() {
			e.logger.Warn(ctx, "skipping malformed payment", "owner_id", ownerID, "payment_id", p.ID)
			continue
		}
		totalPaid = totalPaid.Add(p.Amount)
	}

	return utils.RoundCurrency(totalDue.Sub(totalPaid)), nil
}
