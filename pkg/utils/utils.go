package utils

import (
	"fmt"
	"strconv"
	"strings"

	customError "github.com/segyhp/fatura-engine/pkg/errors"

	"github.com/shopspring/decimal"
)

// Accepted statement period range.
const (
	MinPeriodYear = 2000
	MaxPeriodYear = 2100
)

// CalculateInstallmentAmount splits a total into equal installments.
// Formula: Total / Installments, rounded to 2 decimal places.
// The rounding remainder is not redistributed (100.00 / 3 = 33.33).
func CalculateInstallmentAmount(total decimal.Decimal, installments int) decimal.Decimal {
	if installments < 1 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(installments))).Round(2)
}

// IsCurrencyAmount reports whether d is positive and has no fraction below cents.
func IsCurrencyAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Round(2))
}

// RoundCurrency rounds to cents
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ParseAmount parses a user-typed currency amount.
// Accepts "1234.56", "1234,56", "1.234,56", "1,234.56" and an optional "R$" prefix.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero, customError.WrapInvalidAmount(raw)
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return decimal.Zero, customError.WrapInvalidAmount(raw)
		}
		s = strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	if i := strings.Index(s, "."); i >= 0 && len(s)-i-1 > 2 {
		return decimal.Zero, customError.WrapInvalidAmount(raw)
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, customError.WrapInvalidAmount(raw)
	}
	return amount, nil
}

// FormatBRL renders an amount as "R$ 12,34"
func FormatBRL(d decimal.Decimal) string {
	s := strings.Replace(d.StringFixed(2), ".", ",", 1)
	if strings.HasPrefix(s, "-") {
		return "-R$ " + s[1:]
	}
	return "R$ " + s
}

// ValidatePeriod checks a statement month/year pair
func ValidatePeriod(month, year int) error {
	if month < 1 || month > 12 || year < MinPeriodYear || year > MaxPeriodYear {
		return customError.WrapPeriodOutOfRange(month, year)
	}
	return nil
}

// ParseCycle parses "MM/YYYY" (or "M/YYYY") into a month and year.
func ParseCycle(raw string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(raw), "/")
	if len(parts) != 2 {
		return 0, 0, customError.NewBusinessError(
			customError.ErrCodePeriodOutOfRange,
			fmt.Sprintf("Malformed cycle %q, expected MM/YYYY", raw),
			customError.ErrPeriodOutOfRange,
		)
	}
	month, errMonth := strconv.Atoi(parts[0])
	year, errYear := strconv.Atoi(parts[1])
	if errMonth != nil || errYear != nil {
		return 0, 0, customError.WrapPeriodOutOfRange(month, year)
	}
	if err := ValidatePeriod(month, year); err != nil {
		return 0, 0, err
	}
	return month, year, nil
}
