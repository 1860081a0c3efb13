package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/fatura-engine/internal/domain"
	"github.com/segyhp/fatura-engine/internal/logging"
	"github.com/segyhp/fatura-engine/internal/mocks"
	customError "github.com/segyhp/fatura-engine/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRegisterPurchase(t *testing.T) {
	now := time.Date(2025, 8, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name         string
		request      *domain.CreatePurchaseRequest
		opts         []Option
		setupMocks   func(*mocks.MockPurchaseRepository)
		expectedCode string
		validate     func(*testing.T, *domain.Purchase)
	}{
		{
			name: "successful purchase defaults to clock",
			request: &domain.CreatePurchaseRequest{
				OwnerID:          testOwner,
				Description:      "notebook",
				TotalAmount:      decimal.RequireFromString("100.00"),
				InstallmentCount: 3,
			},
			setupMocks: func(repo *mocks.MockPurchaseRepository) {
				repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Purchase")).Return(nil)
			},
			validate: func(t *testing.T, p *domain.Purchase) {
				assert.NotEqual(t, uuid.Nil, p.ID)
				assert.True(t, p.Active)
				assert.Equal(t, now, p.PurchasedAt)
				assert.Equal(t, 8, p.StartMonth)
				assert.Equal(t, 2025, p.StartYear)
				assert.Equal(t, 15, p.StartDay)
				assert.True(t, p.InstallmentAmount.Equal(decimal.RequireFromString("33.33")))
			},
		},
		{
			name: "keeps category",
			request: &domain.CreatePurchaseRequest{
				OwnerID:          testOwner,
				Description:      "mercado",
				Category:         "alimentação",
				TotalAmount:      decimal.RequireFromString("10.50"),
				InstallmentCount: 1,
			},
			setupMocks: func(repo *mocks.MockPurchaseRepository) {
				repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Purchase")).Return(nil)
			},
			validate: func(t *testing.T, p *domain.Purchase) {
				assert.Equal(t, "alimentação", p.Category)
				assert.True(t, p.InstallmentAmount.Equal(decimal.RequireFromString("10.50")))
			},
		},
		{
			name: "installment rounds to zero",
			request: &domain.CreatePurchaseRequest{
				OwnerID:          testOwner,
				TotalAmount:      decimal.RequireFromString("0.04"),
				InstallmentCount: 10,
			},
			expectedCode: customError.ErrCodeInvalidAmount,
		},
		{
			name: "smallest installment accepted",
			request: &domain.CreatePurchaseRequest{
				OwnerID:          testOwner,
				TotalAmount:      decimal.RequireFromString("0.10"),
				InstallmentCount: 10,
			},
			setupMocks: func(repo *mocks.MockPurchaseRepository) {
				repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Purchase")).Return(nil)
			},
			validate: func(t *testing.T, p *domain.Purchase) {
				assert.True(t, p.InstallmentAmount.Equal(decimal.RequireFromString("0.01")))
			},
		},
		{
			name: "fraction below cents",
			request: &domain.CreatePurchaseRequest{
				OwnerID:          testOwner,
				TotalAmount:      decimal.RequireFromString("10.005"),
				InstallmentCount: 1,
			},
			expectedCode: customError.ErrCodeInvalidAmount,
		},
		{
			name: "category too long",
			request: &domain.CreatePurchaseRequest{
				OwnerID:          testOwner,
				Category:         strings.Repeat("c", 51),
				TotalAmount:      decimal.NewFromInt(100),
				InstallmentCount: 1,
			},
			expectedCode: customError.ErrCodeValidationFailed,
		},
		{
			name: "zero amount",
			request: &domain.CreatePurchaseRequest{
				OwnerID:          testOwner,
				TotalAmount:      decimal.Zero,
				InstallmentCount: 1,
			},
			expectedCode: customError.ErrCodeInvalidAmount,
		},
		{
			name: "negative amount",
			request: &domain.CreatePurchaseRequest{
				OwnerID:          testOwner,
				TotalAmount:      decimal.RequireFromString("-10.00"),
				InstallmentCount: 1,
			},
			expectedCode: customError.ErrCodeInvalidAmount,
		},
		{
			name: "zero installments",
			request: &domain.CreatePurchaseRequest{
				OwnerID:          testOwner,
				TotalAmount:      decimal.NewFromInt(100),
				InstallmentCount: 0,
			},
			expectedCode: customError.ErrCodeInvalidInstallmentCount,
		},
		{
			name: "above hard cap",
			request: &domain.CreatePurchaseRequest{
				OwnerID:          testOwner,
				TotalAmount:      decimal.NewFromInt(100),
				InstallmentCount: 61,
			},
			expectedCode: customError.ErrCodeInvalidInstallmentCount,
		},
		{
			name: "above configured cap",
			request: &domain.CreatePurchaseRequest{
				OwnerID:          testOwner,
				TotalAmount:      decimal.NewFromInt(100),
				InstallmentCount: 25,
			},
			opts:         []Option{WithMaxInstallments(24)},
			expectedCode: customError.ErrCodeInvalidInstallmentCount,
		},
		{
			name: "missing owner",
			request: &domain.CreatePurchaseRequest{
				TotalAmount:      decimal.NewFromInt(100),
				InstallmentCount: 2,
			},
			expectedCode: customError.ErrCodeValidationFailed,
		},
		{
			name: "store failure",
			request: &domain.CreatePurchaseRequest{
				OwnerID:          testOwner,
				TotalAmount:      decimal.NewFromInt(100),
				InstallmentCount: 2,
			},
			setupMocks: func(repo *mocks.MockPurchaseRepository) {
				repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full"))
			},
			expectedCode: customError.ErrCodeStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			purchases := &mocks.MockPurchaseRepository{}
			payments := &mocks.MockPaymentRepository{}
			if tt.setupMocks != nil {
				tt.setupMocks(purchases)
			}

			opts := append([]Option{fixedClock(now)}, tt.opts...)
			s := NewBillingService(purchases, payments, testCycle(t), logging.Nop(), opts...)

			purchase, err := s.RegisterPurchase(context.Background(), tt.request)

			if tt.expectedCode != "" {
				require.Error(t, err)
				assert.Nil(t, purchase)
				assert.Equal(t, tt.expectedCode, customError.CodeOf(err))
				if tt.setupMocks == nil {
					purchases.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				}
				return
			}

			require.NoError(t, err)
			tt.validate(t, purchase)
			purchases.AssertExpectations(t)
		})
	}
}

func TestRegisterPurchase_EffectiveStartAfterClosingDay(t *testing.T) {
	s := newMemoryService(t)

	p := registerPurchase(t, s, "100.00", 2, time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC))

	purchases, err := s.ListPurchases(context.Background(), testOwner, false)
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, p.ID, purchases[0].ID)
	assert.Equal(t, domain.Period{Month: 1, Year: 2026}, s.mapper.EffectiveStart(purchases[0]))
}

// A purchase whose installment rounds to zero must never reach the ledger,
// where it would be dropped as malformed.
func TestRegisterPurchase_TinyAmountLeavesLedgerUnchanged(t *testing.T) {
	s := newMemoryService(t)
	at := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

	_, err := s.RegisterPurchase(context.Background(), &domain.CreatePurchaseRequest{
		OwnerID:          testOwner,
		TotalAmount:      decimal.RequireFromString("0.04"),
		InstallmentCount: 10,
		PurchasedAt:      &at,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, customError.ErrInvalidAmount))

	purchases, err := s.ListPurchases(context.Background(), testOwner, true)
	require.NoError(t, err)
	assert.Empty(t, purchases)
}

func TestRegisterPayment(t *testing.T) {
	now := time.Date(2025, 9, 3, 8, 0, 0, 0, time.UTC)

	t.Run("defaults paid_at to clock", func(t *testing.T) {
		purchases := &mocks.MockPurchaseRepository{}
		payments := &mocks.MockPaymentRepository{}
		payments.On("Create", mock.Anything, mock.AnythingOfType("*domain.Payment")).Return(nil)

		s := NewBillingService(purchases, payments, testCycle(t), logging.Nop(), fixedClock(now))
		payment, err := s.RegisterPayment(context.Background(), &domain.CreatePaymentRequest{
			OwnerID: testOwner,
			Amount:  decimal.RequireFromString("75.50"),
		})
		require.NoError(t, err)
		assert.Equal(t, now, payment.PaidAt)
		assert.True(t, payment.Amount.Equal(decimal.RequireFromString("75.50")))
		payments.AssertExpectations(t)
	})

	for _, amount := range []string{"0", "-1.00", "10.005", "0.001"} {
		t.Run("rejects amount "+amount, func(t *testing.T) {
			purchases := &mocks.MockPurchaseRepository{}
			payments := &mocks.MockPaymentRepository{}

			s := NewBillingService(purchases, payments, testCycle(t), logging.Nop(), fixedClock(now))
			_, err := s.RegisterPayment(context.Background(), &domain.CreatePaymentRequest{
				OwnerID: testOwner,
				Amount:  decimal.RequireFromString(amount),
			})
			assert.Equal(t, customError.ErrCodeInvalidAmount, customError.CodeOf(err))
			payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}

	t.Run("store failure", func(t *testing.T) {
		purchases := &mocks.MockPurchaseRepository{}
		payments := &mocks.MockPaymentRepository{}
		payments.On("Create", mock.Anything, mock.Anything).Return(errors.New("read-only transaction"))

		s := NewBillingService(purchases, payments, testCycle(t), logging.Nop(), fixedClock(now))
		_, err := s.RegisterPayment(context.Background(), &domain.CreatePaymentRequest{
			OwnerID: testOwner,
			Amount:  decimal.NewFromInt(10),
		})
		assert.True(t, errors.Is(err, customError.ErrStoreUnavailable))
	})
}

func TestRegister_InvalidatesCache(t *testing.T) {
	purchases := &mocks.MockPurchaseRepository{}
	payments := &mocks.MockPaymentRepository{}
	cache := &mocks.MockStatementCache{}

	purchases.On("Create", mock.Anything, mock.Anything).Return(nil)
	payments.On("Create", mock.Anything, mock.Anything).Return(nil)
	cache.On("Invalidate", mock.Anything, testOwner).Return(errors.New("redis down")).Twice()

	s := NewBillingService(purchases, payments, testCycle(t), logging.Nop(), WithStatementCache(cache))

	_, err := s.RegisterPurchase(context.Background(), &domain.CreatePurchaseRequest{
		OwnerID: testOwner, TotalAmount: decimal.NewFromInt(10), InstallmentCount: 1,
	})
	require.NoError(t, err)
	_, err = s.RegisterPayment(context.Background(), &domain.CreatePaymentRequest{
		OwnerID: testOwner, Amount: decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	cache.AssertExpectations(t)
}

func TestDeactivatePurchase(t *testing.T) {
	id := uuid.New()
	active := func() *domain.Purchase {
		return &domain.Purchase{ID: id, OwnerID: testOwner, Active: true}
	}

	tests := []struct {
		name         string
		ownerID      string
		setupMocks   func(*mocks.MockPurchaseRepository)
		expectedCode string
	}{
		{
			name:    "owner deactivates",
			ownerID: testOwner,
			setupMocks: func(repo *mocks.MockPurchaseRepository) {
				repo.On("GetByID", mock.Anything, id).Return(active(), nil)
				repo.On("Deactivate", mock.Anything, id).Return(nil)
			},
		},
		{
			name:    "admin deactivates any owner",
			ownerID: "",
			setupMocks: func(repo *mocks.MockPurchaseRepository) {
				repo.On("GetByID", mock.Anything, id).Return(active(), nil)
				repo.On("Deactivate", mock.Anything, id).Return(nil)
			},
		},
		{
			name:    "already inactive is a no-op",
			ownerID: testOwner,
			setupMocks: func(repo *mocks.MockPurchaseRepository) {
				repo.On("GetByID", mock.Anything, id).Return(&domain.Purchase{ID: id, OwnerID: testOwner}, nil)
			},
		},
		{
			name:    "unknown id",
			ownerID: testOwner,
			setupMocks: func(repo *mocks.MockPurchaseRepository) {
				repo.On("GetByID", mock.Anything, id).Return(nil, sql.ErrNoRows)
			},
			expectedCode: customError.ErrCodePurchaseNotFound,
		},
		{
			name:    "someone else's purchase",
			ownerID: "2002",
			setupMocks: func(repo *mocks.MockPurchaseRepository) {
				repo.On("GetByID", mock.Anything, id).Return(active(), nil)
			},
			expectedCode: customError.ErrCodePurchaseNotFound,
		},
		{
			name:    "store failure",
			ownerID: testOwner,
			setupMocks: func(repo *mocks.MockPurchaseRepository) {
				repo.On("GetByID", mock.Anything, id).Return(nil, errors.New("broken pipe"))
			},
			expectedCode: customError.ErrCodeStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			purchases := &mocks.MockPurchaseRepository{}
			payments := &mocks.MockPaymentRepository{}
			tt.setupMocks(purchases)

			s := NewBillingService(purchases, payments, testCycle(t), logging.Nop())
			purchase, err := s.DeactivatePurchase(context.Background(), tt.ownerID, id)

			if tt.expectedCode != "" {
				assert.Nil(t, purchase)
				assert.Equal(t, tt.expectedCode, customError.CodeOf(err))
			} else {
				require.NoError(t, err)
				assert.False(t, purchase.Active)
			}
			purchases.AssertExpectations(t)
		})
	}
}

func TestListPurchases(t *testing.T) {
	s := newMemoryService(t)
	ctx := context.Background()

	kept := registerPurchase(t, s, "10.00", 1, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	dropped := registerPurchase(t, s, "20.00", 2, time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC))
	_, err := s.DeactivatePurchase(ctx, testOwner, dropped.ID)
	require.NoError(t, err)

	active, err := s.ListPurchases(ctx, testOwner, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, kept.ID, active[0].ID)

	all, err := s.ListPurchases(ctx, testOwner, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := s.ListPurchases(ctx, "9999", true)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListPayments_StoreFailure(t *testing.T) {
	purchases := &mocks.MockPurchaseRepository{}
	payments := &mocks.MockPaymentRepository{}
	payments.On("ListByOwner", mock.Anything, testOwner).Return(nil, errors.New("timeout"))

	s := NewBillingService(purchases, payments, testCycle(t), logging.Nop())
	_, err := s.ListPayments(context.Background(), testOwner)
	assert.Equal(t, customError.ErrCodeStoreUnavailable, customError.CodeOf(err))
}
