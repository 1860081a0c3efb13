package service

import (
	"context"
	"sort"
	"time"

	"github.com/segyhp/fatura-engine/internal/billing"
	"github.com/segyhp/fatura-engine/internal/domain"
	"github.com/segyhp/fatura-engine/internal/logging"
	"github.com/segyhp/fatura-engine/internal/repository"
	customError "github.com/segyhp/fatura-engine/pkg/errors"
	"github.com/segyhp/fatura-engine/pkg/utils"

	"github.com/shopspring/decimal"
)

// StatementBuilder produces ordered fatura extracts for open and closed periods.
type StatementBuilder struct {
	purchases repository.PurchaseRepository
	payments  repository.PaymentRepository
	mapper    *billing.Mapper
	cache     StatementCache
	logger    logging.Logger
}

// NewStatementBuilder wires a builder; cache may be nil.
func NewStatementBuilder(
	purchases repository.PurchaseRepository,
	payments repository.PaymentRepository,
	mapper *billing.Mapper,
	cache StatementCache,
	logger logging.Logger,
) *StatementBuilder {
	return &StatementBuilder{
		purchases: purchases,
		payments:  payments,
		mapper:    mapper,
		cache:     cache,
		logger:    logger,
	}
}

// BuildClosedStatement lists the installments billed in (month, year) and the
// payments made inside that period's bounds.
func (b *StatementBuilder) BuildClosedStatement(ctx context.Context, ownerID string, month, year int) (*domain.Statement, error) {
	if err := utils.ValidatePeriod(month, year); err != nil {
		return nil, err
	}
	period := domain.Period{Month: month, Year: year}

	// The version is taken before the store read and reused for Set.
	var (
		version   int64
		cacheable bool
	)
	if b.cache != nil {
		v, err := b.cache.Version(ctx, ownerID)
		if err != nil {
			b.logger.Warn(ctx, "statement cache version read failed", "owner_id", ownerID, "error", err)
		} else {
			version, cacheable = v, true
			cached, err := b.cache.Get(ctx, ownerID, version, period)
			if err != nil {
				b.logger.Warn(ctx, "statement cache read failed", "owner_id", ownerID, "period", period.String(), "error", err)
			} else if cached != nil {
				return cached, nil
			}
		}
	}

	start, end := b.mapper.Cycle().ClosedPeriodBounds(period)

	purchases, err := b.purchases.ListActiveByOwner(ctx, ownerID)
	if err != nil {
		return nil, customError.WrapStoreUnavailable(err)
	}

	payments, err := b.payments.ListByOwnerInRange(ctx, ownerID, start, end)
	if err != nil {
		return nil, customError.WrapStoreUnavailable(err)
	}

	statement := &domain.Statement{
		OwnerID:     ownerID,
		Kind:        domain.StatementKindClosed,
		Period:      period,
		PeriodStart: start,
		PeriodEnd:   end,
		Items:       b.installmentLines(ctx, ownerID, purchases, period),
	}

	for _, p := range payments {
		if p.Malformed() {
			b.logger.Warn(ctx, "skipping malformed payment", "owner_id", ownerID, "payment_id", p.ID)
			continue
		}
		if p.PaidAt.Before(start) || p.PaidAt.After(end) {
			continue
		}
		statement.Items = append(statement.Items, domain.StatementLine{
			Kind:        domain.LineKindPayment,
			SourceID:    p.ID,
			Description: p.Description,
			Amount:      p.Amount,
			DisplayDate: p.PaidAt.In(b.mapper.Cycle().Location()),
		})
	}

	finalize(statement)

	if cacheable {
		if err := b.cache.Set(ctx, statement, version); err != nil {
			b.logger.Warn(ctx, "statement cache write failed", "owner_id", ownerID, "period", period.String(), "error", err)
		}
	}

	return statement, nil
}

// BuildOpenStatement lists the installments of the period still open at asOf.
// Payments always settle a closed statement, so none are shown here.
func (b *StatementBuilder) BuildOpenStatement(ctx context.Context, ownerID string, asOf time.Time) (*domain.Statement, error) {
	period := b.mapper.Cycle().NextOpenPeriod(asOf)
	start, end := b.mapper.Cycle().ClosedPeriodBounds(period)

	purchases, err := b.purchases.ListActiveByOwner(ctx, ownerID)
	if err != nil {
		return nil, customError.WrapStoreUnavailable(err)
	}

	statement := &domain.Statement{
		OwnerID:     ownerID,
		Kind:        domain.StatementKindOpen,
		Period:      period,
		PeriodStart: start,
		PeriodEnd:   end,
		Items:       b.installmentLines(ctx, ownerID, purchases, period),
	}
	finalize(statement)

	return statement, nil
}

func (b *StatementBuilder) installmentLines(ctx context.Context, ownerID string, purchases []*domain.Purchase, period domain.Period) []domain.StatementLine {
	lines := make([]domain.StatementLine, 0, len(purchases))
	for _, p := range purchases {
		if !p.Active {
			continue
		}
		if p.Malformed() {
			b.logger.Warn(ctx, "skipping malformed purchase", "owner_id", ownerID, "purchase_id", p.ID)
			continue
		}
		idx, ok := b.mapper.InstallmentIndex(p, period)
		if !ok {
			continue
		}
		lines = append(lines, domain.StatementLine{
			Kind:             domain.LineKindInstallment,
			SourceID:         p.ID,
			Description:      p.Description,
			Amount:           p.InstallmentAmount,
			DisplayDate:      b.mapper.DisplayDate(p, idx, period),
			InstallmentIndex: idx,
			InstallmentCount: p.InstallmentCount,
		})
	}
	return lines
}

// finalize orders the lines by display date (stable) and fills the totals.
func finalize(s *domain.Statement) {
	sort.SliceStable(s.Items, func(i, j int) bool {
		return s.Items[i].DisplayDate.Before(s.Items[j].DisplayDate)
	})

	parcelas, pagamentos := decimal.Zero, decimal.Zero
	for _, item := range s.Items {
		switch item.Kind {
		case domain.LineKindInstallment:
			parcelas = parcelas.Add(item.Amount)
		case domain.LineKindPayment:
			pagamentos = pagamentos.Add(item.Amount)
		}
	}

	s.Totals = domain.StatementTotals{
		ParcelasTotal:   utils.RoundCurrency(parcelas),
		PagamentosTotal: utils.RoundCurrency(pagamentos),
		SaldoPeriodo:    utils.RoundCurrency(parcelas.Sub(pagamentos)),
	}
}
