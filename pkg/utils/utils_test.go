package utils

import (
	"errors"
	"testing"

	customError "github.com/segyhp/fatura-engine/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateInstallmentAmount(t *testing.T) {
	tests := []struct {
		name         string
		total        decimal.Decimal
		installments int
		expected     decimal.Decimal
	}{
		{
			name:         "even split",
			total:        decimal.RequireFromString("1200.00"),
			installments: 12,
			expected:     decimal.RequireFromString("100.00"),
		},
		{
			name:         "remainder is dropped",
			total:        decimal.RequireFromString("100.00"),
			installments: 3,
			expected:     decimal.RequireFromString("33.33"),
		},
		{
			name:         "rounds half up",
			total:        decimal.RequireFromString("100.00"),
			installments: 6,
			expected:     decimal.RequireFromString("16.67"),
		},
		{
			name:         "single installment",
			total:        decimal.RequireFromString("59.90"),
			installments: 1,
			expected:     decimal.RequireFromString("59.90"),
		},
		{
			name:         "zero installments",
			total:        decimal.RequireFromString("10"),
			installments: 0,
			expected:     decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateInstallmentAmount(tt.total, tt.installments)
			assert.True(t, result.Equal(tt.expected), "Expected %v, but got %v", tt.expected, result)
		})
	}
}

func TestIsCurrencyAmount(t *testing.T) {
	tests := []struct {
		amount string
		valid  bool
	}{
		{"0.01", true},
		{"1200", true},
		{"10.50", true},
		{"10.500", true},
		{"10.005", false},
		{"0.001", false},
		{"0", false},
		{"-5.00", false},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsCurrencyAmount(decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
		wantErr  bool
	}{
		{raw: "1234.56", expected: "1234.56"},
		{raw: "1234,56", expected: "1234.56"},
		{raw: "1.234,56", expected: "1234.56"},
		{raw: "1,234.56", expected: "1234.56"},
		{raw: "R$ 50", expected: "50"},
		{raw: "1.000.000", expected: "1000000"},
		{raw: "  10,5 ", expected: "10.5"},
		{raw: "", wantErr: true},
		{raw: "abc", wantErr: true},
		{raw: "1,2,3", wantErr: true},
		{raw: "10.123", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			result, err := ParseAmount(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, customError.ErrInvalidAmount))
				return
			}
			require.NoError(t, err)
			assert.True(t, result.Equal(decimal.RequireFromString(tt.expected)), "got %v", result)
		})
	}
}

func TestFormatBRL(t *testing.T) {
	assert.Equal(t, "R$ 100,00", FormatBRL(decimal.NewFromInt(100)))
	assert.Equal(t, "R$ 33,33", FormatBRL(decimal.RequireFromString("33.333")))
	assert.Equal(t, "-R$ 12,50", FormatBRL(decimal.RequireFromString("-12.5")))
	assert.Equal(t, "R$ 0,00", FormatBRL(decimal.Zero))
}

func TestParseCycle(t *testing.T) {
	month, year, err := ParseCycle("09/2025")
	require.NoError(t, err)
	assert.Equal(t, 9, month)
	assert.Equal(t, 2025, year)

	month, year, err = ParseCycle("1/2026")
	require.NoError(t, err)
	assert.Equal(t, 1, month)
	assert.Equal(t, 2026, year)

	for _, raw := range []string{"13/2025", "0/2025", "05/1999", "05/2101", "2025", "aa/bb"} {
		_, _, err := ParseCycle(raw)
		assert.Error(t, err, raw)
		assert.True(t, errors.Is(err, customError.ErrPeriodOutOfRange), raw)
	}
}
