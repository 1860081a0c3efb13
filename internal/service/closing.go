package service

import (
	"context"
	"time"

	"github.com/segyhp/fatura-engine/internal/billing"
	"github.com/segyhp/fatura-engine/internal/domain"
	"github.com/segyhp/fatura-engine/internal/logging"
	"github.com/segyhp/fatura-engine/internal/repository"
	customError "github.com/segyhp/fatura-engine/pkg/errors"

	"github.com/shopspring/decimal"
)

// ClosedStatementBuilder is the part of StatementBuilder the closing job needs
type ClosedStatementBuilder interface {
	BuildClosedStatement(ctx context.Context, ownerID string, month, year int) (*domain.Statement, error)
}

// CloseReport summarizes one run of the cycle closing job
type CloseReport struct {
	Period  domain.Period
	Owners  int
	Failed  int
	Balance decimal.Decimal
}

// CycleCloser builds every owner's statement for the period that most
// recently closed. It runs from the scheduler after each closing day.
type CycleCloser struct {
	owners     repository.OwnerRepository
	statements ClosedStatementBuilder
	cycle      *billing.Calculator
	logger     logging.Logger
}

func NewCycleCloser(
	owners repository.OwnerRepository,
	statements ClosedStatementBuilder,
	cycle *billing.Calculator,
	logger logging.Logger,
) *CycleCloser {
	return &CycleCloser{owners: owners, statements: statements, cycle: cycle, logger: logger}
}

// LastClosedPeriod is the period immediately before the open one at now
func (c *CycleCloser) LastClosedPeriod(now time.Time) domain.Period {
	return c.cycle.NextOpenPeriod(now).Prev()
}

// CloseCycle builds the statements. A failing owner is logged and skipped;
// only a failure to list owners aborts the run.
func (c *CycleCloser) CloseCycle(ctx context.Context, now time.Time) (*CloseReport, error) {
	period := c.LastClosedPeriod(now)

	owners, err := c.owners.ListOwners(ctx)
	if err != nil {
		return nil, customError.WrapStoreUnavailable(err)
	}

	report := &CloseReport{Period: period, Balance: decimal.Zero}
	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		statement, err := c.statements.BuildClosedStatement(ctx, owner, period.Month, period.Year)
		if err != nil {
			report.Failed++
			c.logger.Error(ctx, "closing statement failed", "owner_id", owner, "period", period.String(), "error", err)
			continue
		}

		report.Owners++
		report.Balance = report.Balance.Add(statement.Totals.SaldoPeriodo)
		c.logger.Info(ctx, "statement closed",
			"owner_id", owner,
			"period", period.String(),
			"items", len(statement.Items),
			"parcelas_total", statement.Totals.ParcelasTotal.String(),
			"pagamentos_total", statement.Totals.PagamentosTotal.String(),
			"saldo_periodo", statement.Totals.SaldoPeriodo.String(),
		)
	}

	c.logger.Info(ctx, "cycle closed",
		"period", period.String(),
		"owners", report.Owners,
		"failed", report.Failed,
		"saldo_total", report.Balance.String(),
	)
	return report, nil
}
