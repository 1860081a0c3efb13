package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/fatura-engine/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockPurchaseRepository struct {
	mock.Mock
}

func (m *MockPurchaseRepository) Create(ctx context.Context, purchase *domain.Purchase) error {
	args := m.Called(ctx, purchase)
	return args.Error(0)
}

func (m *MockPurchaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Purchase, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Purchase), args.Error(1)
}

func (m *MockPurchaseRepository) ListActiveByOwner(ctx context.Context, ownerID string) ([]*domain.Purchase, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Purchase), args.Error(1)
}

func (m *MockPurchaseRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Purchase, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Purchase), args.Error(1)
}

func (m *MockPurchaseRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Payment, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) ListByOwnerInRange(ctx context.Context, ownerID string, start, end time.Time) ([]*domain.Payment, error) {
	args := m.Called(ctx, ownerID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

type MockOwnerRepository struct {
	mock.Mock
}

func (m *MockOwnerRepository) ListOwners(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockStatementCache struct {
	mock.Mock
}

func (m *MockStatementCache) Version(ctx context.Context, ownerID string) (int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStatementCache) Get(ctx context.Context, ownerID string, version int64, period domain.Period) (*domain.Statement, error) {
	args := m.Called(ctx, ownerID, version, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Statement), args.Error(1)
}

func (m *MockStatementCache) Set(ctx context.Context, statement *domain.Statement, version int64) error {
	args := m.Called(ctx, statement, version)
	return args.Error(0)
}

func (m *MockStatementCache) Invalidate(ctx context.Context, ownerID string) error {
	args := m.Called(ctx, ownerID)
	return args.Error(0)
}
