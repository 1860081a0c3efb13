// Package billing holds the fatura calendar: how a closing day carves the
// calendar into statement periods and how installments land on them.
package billing

import (
	"fmt"
	"time"

	"github.com/segyhp/fatura-engine/internal/domain"
)

const (
	DefaultClosingDay = 9
	// MaxClosingDay keeps every closing day present in every month.
	MaxClosingDay = 28
)

// Calculator converts calendar instants into statement periods.
//
// A period (M, Y) covers day closingDay+1 of month M-1 at 00:00 through day
// closingDay of month M at 23:59:59.999999999, both inclusive, in loc.
type Calculator struct {
	closingDay int
	loc        *time.Location
}

func NewCalculator(closingDay int, loc *time.Location) (*Calculator, error) {
	if closingDay < 1 || closingDay > MaxClosingDay {
		return nil, fmt.Errorf("closing day %d outside [1, %d]", closingDay, MaxClosingDay)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Calculator{closingDay: closingDay, loc: loc}, nil
}

func (c *Calculator) ClosingDay() int {
	return c.closingDay
}

func (c *Calculator) Location() *time.Location {
	return c.loc
}

// ClosedPeriodBounds returns the inclusive [start, end] range of a period.
func (c *Calculator) ClosedPeriodBounds(p domain.Period) (time.Time, time.Time) {
	prev := p.Prev()
	start := time.Date(prev.Year, time.Month(prev.Month), c.closingDay+1, 0, 0, 0, 0, c.loc)
	end := time.Date(p.Year, time.Month(p.Month), c.closingDay+1, 0, 0, 0, 0, c.loc).Add(-time.Nanosecond)
	return start, end
}

// NextOpenPeriod returns the period still accumulating charges at now.
func (c *Calculator) NextOpenPeriod(now time.Time) domain.Period {
	n := now.In(c.loc)
	p := domain.Period{Month: int(n.Month()), Year: n.Year()}
	if n.Day() > c.closingDay {
		return p.Next()
	}
	return p
}

// OpenPeriodStart is the first instant after the most recent closing boundary.
func (c *Calculator) OpenPeriodStart(now time.Time) time.Time {
	start, _ := c.ClosedPeriodBounds(c.NextOpenPeriod(now))
	return start
}

// EffectiveStartPeriod applies closing-day deferral to a purchase date:
// purchases made after the closing day bill in the following month.
func (c *Calculator) EffectiveStartPeriod(month, year, day int) domain.Period {
	p := domain.Period{Month: month, Year: year}
	if day > c.closingDay {
		return p.Next()
	}
	return p
}

// PeriodOf returns the period whose bounds contain t.
func (c *Calculator) PeriodOf(t time.Time) domain.Period {
	n := t.In(c.loc)
	return c.EffectiveStartPeriod(int(n.Month()), n.Year(), n.Day())
}

// MonthStart is midnight of the 1st of the period's month.
func (c *Calculator) MonthStart(p domain.Period) time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, c.loc)
}
