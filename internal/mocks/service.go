package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/fatura-engine/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockBillingService struct {
	mock.Mock
}

func (m *MockBillingService) RegisterPurchase(ctx context.Context, request *domain.CreatePurchaseRequest) (*domain.Purchase, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Purchase), args.Error(1)
}

func (m *MockBillingService) RegisterPayment(ctx context.Context, request *domain.CreatePaymentRequest) (*domain.Payment, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockBillingService) DeactivatePurchase(ctx context.Context, ownerID string, purchaseID uuid.UUID) (*domain.Purchase, error) {
	args := m.Called(ctx, ownerID, purchaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Purchase), args.Error(1)
}

func (m *MockBillingService) ListPurchases(ctx context.Context, ownerID string, includeInactive bool) ([]*domain.Purchase, error) {
	args := m.Called(ctx, ownerID, includeInactive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Purchase), args.Error(1)
}

func (m *MockBillingService) ListPayments(ctx context.Context, ownerID string) ([]*domain.Payment, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

func (m *MockBillingService) ComputeBalance(ctx context.Context, ownerID string, asOf time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, ownerID, asOf)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockBillingService) BuildClosedStatement(ctx context.Context, ownerID string, month, year int) (*domain.Statement, error) {
	args := m.Called(ctx, ownerID, month, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Statement), args.Error(1)
}

func (m *MockBillingService) BuildOpenStatement(ctx context.Context, ownerID string, asOf time.Time) (*domain.Statement, error) {
	args := m.Called(ctx, ownerID, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Statement), args.Error(1)
}

func (m *MockBillingService) UpsertRecurringPurchase(ctx context.Context, request *domain.UpsertRecurringRequest) (*domain.RecurringPurchase, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecurringPurchase), args.Error(1)
}

func (m *MockBillingService) ListRecurringPurchases(ctx context.Context, ownerID string, includeInactive bool) ([]*domain.RecurringPurchase, error) {
	args := m.Called(ctx, ownerID, includeInactive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RecurringPurchase), args.Error(1)
}

func (m *MockBillingService) ApplyRecurring(ctx context.Context, ownerID string, period domain.Period) (*domain.ApplyRecurringResult, error) {
	args := m.Called(ctx, ownerID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ApplyRecurringResult), args.Error(1)
}

func (m *MockBillingService) OpenPeriod(now time.Time) domain.Period {
	args := m.Called(now)
	return args.Get(0).(domain.Period)
}

func (m *MockBillingService) LastClosedPeriod(now time.Time) domain.Period {
	args := m.Called(now)
	return args.Get(0).(domain.Period)
}

func (m *MockBillingService) Now() time.Time {
	args := m.Called()
	return args.Get(0).(time.Time)
}

// NewMockBillingService creates a new mock billing service instance
func NewMockBillingService() *MockBillingService {
	return &MockBillingService{}
}
