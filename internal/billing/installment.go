package billing

import (
	"time"

	"github.com/segyhp/fatura-engine/internal/domain"
)

// Mapper places a purchase's installments on statement periods.
type Mapper struct {
	cycle *Calculator
}

func NewMapper(cycle *Calculator) *Mapper {
	return &Mapper{cycle: cycle}
}

func (m *Mapper) Cycle() *Calculator {
	return m.cycle
}

// EffectiveStart is the period holding the purchase's first installment.
// The calendar date recorded at registration wins; records without a full
// date fall back to PurchasedAt in the ledger zone. Month, year and day always
// come from the same source.
func (m *Mapper) EffectiveStart(p *domain.Purchase) domain.Period {
	if p.StartDay > 0 && p.StartMonth > 0 && p.StartYear > 0 {
		return m.cycle.EffectiveStartPeriod(p.StartMonth, p.StartYear, p.StartDay)
	}
	purchased := p.PurchasedAt.In(m.cycle.loc)
	return m.cycle.EffectiveStartPeriod(int(purchased.Month()), purchased.Year(), purchased.Day())
}

// InstallmentIndex returns the 1-based installment billed in period, if any.
func (m *Mapper) InstallmentIndex(p *domain.Purchase, period domain.Period) (int, bool) {
	idx := period.Index() - m.EffectiveStart(p).Index() + 1
	if idx < 1 || idx > p.InstallmentCount {
		return 0, false
	}
	return idx, true
}

// DueCountThrough counts installments billed in period or earlier.
func (m *Mapper) DueCountThrough(p *domain.Purchase, period domain.Period) int {
	elapsed := period.Index() - m.EffectiveStart(p).Index() + 1
	switch {
	case elapsed < 0:
		return 0
	case elapsed > p.InstallmentCount:
		return p.InstallmentCount
	default:
		return elapsed
	}
}

// DisplayDate is the date shown next to an installment line. The first
// installment carries the real purchase date; later ones the 1st of the
// statement month so they never appear to predate the purchase.
func (m *Mapper) DisplayDate(p *domain.Purchase, idx int, period domain.Period) time.Time {
	if idx == 1 {
		return p.PurchasedAt.In(m.cycle.loc)
	}
	return m.cycle.MonthStart(period)
}
