package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/fatura-engine/internal/domain"
	"github.com/segyhp/fatura-engine/internal/logging"
	"github.com/segyhp/fatura-engine/internal/mocks"
	"github.com/segyhp/fatura-engine/internal/repository"
	customError "github.com/segyhp/fatura-engine/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func upsertRecurring(t *testing.T, s *BillingService, description, amount string) *domain.RecurringPurchase {
	t.Helper()
	template, err := s.UpsertRecurringPurchase(context.Background(), &domain.UpsertRecurringRequest{
		OwnerID:     testOwner,
		Description: description,
		Category:    "assinaturas",
		Amount:      decimal.RequireFromString(amount),
	})
	require.NoError(t, err)
	return template
}

func TestRecurringPurchaseDate(t *testing.T) {
	cycle := testCycle(t)

	assert.Equal(t, time.Date(2025, 8, 10, 12, 0, 0, 0, time.UTC), RecurringPurchaseDate(cycle, domain.Period{Month: 9, Year: 2025}))
	assert.Equal(t, time.Date(2024, 12, 10, 12, 0, 0, 0, time.UTC), RecurringPurchaseDate(cycle, domain.Period{Month: 1, Year: 2025}))
	assert.Equal(t, domain.Period{Month: 1, Year: 2025}, cycle.PeriodOf(RecurringPurchaseDate(cycle, domain.Period{Month: 1, Year: 2025})))
}

func TestRecurringPurchaseID(t *testing.T) {
	template := uuid.New()
	sep := domain.Period{Month: 9, Year: 2025}

	assert.Equal(t, RecurringPurchaseID(testOwner, template, sep), RecurringPurchaseID(testOwner, template, sep))
	assert.NotEqual(t, RecurringPurchaseID(testOwner, template, sep), RecurringPurchaseID(testOwner, template, sep.Next()))
	assert.NotEqual(t, RecurringPurchaseID(testOwner, template, sep), RecurringPurchaseID("1002", template, sep))
	assert.NotEqual(t, RecurringPurchaseID(testOwner, template, sep), RecurringPurchaseID(testOwner, uuid.New(), sep))
}

func TestApplyRecurring(t *testing.T) {
	ctx := context.Background()
	s := newMemoryService(t)
	sep := domain.Period{Month: 9, Year: 2025}

	streaming := upsertRecurring(t, s, "streaming", "39.90")
	upsertRecurring(t, s, "academia", "120.00")

	result, err := s.ApplyRecurring(ctx, testOwner, sep)
	require.NoError(t, err)
	assert.Equal(t, &domain.ApplyRecurringResult{OwnerID: testOwner, Period: sep, Templates: 2, Created: 2}, result)

	purchases, err := s.ListPurchases(ctx, testOwner, false)
	require.NoError(t, err)
	require.Len(t, purchases, 2)

	p := purchases[0]
	assert.Equal(t, RecurringPurchaseID(testOwner, streaming.ID, sep), p.ID)
	assert.Equal(t, "streaming", p.Description)
	assert.Equal(t, "assinaturas", p.Category)
	assert.Equal(t, 1, p.InstallmentCount)
	assert.True(t, p.InstallmentAmount.Equal(decimal.RequireFromString("39.90")))
	assert.Equal(t, time.Date(2025, 8, 10, 12, 0, 0, 0, time.UTC), p.PurchasedAt)
	assert.Equal(t, uuid.NullUUID{UUID: streaming.ID, Valid: true}, p.RecurringID)
	assert.Equal(t, sep, s.mapper.EffectiveStart(p))

	statement, err := s.BuildClosedStatement(ctx, testOwner, 9, 2025)
	require.NoError(t, err)
	assert.Len(t, statement.Items, 2)
	assert.True(t, statement.Totals.ParcelasTotal.Equal(decimal.RequireFromString("159.90")))

	t.Run("second application skips everything", func(t *testing.T) {
		result, err := s.ApplyRecurring(ctx, testOwner, sep)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Templates)
		assert.Zero(t, result.Created)
		assert.Equal(t, 2, result.Skipped)

		purchases, err := s.ListPurchases(ctx, testOwner, true)
		require.NoError(t, err)
		assert.Len(t, purchases, 2)
	})

	t.Run("next period creates new purchases", func(t *testing.T) {
		result, err := s.ApplyRecurring(ctx, testOwner, sep.Next())
		require.NoError(t, err)
		assert.Equal(t, 2, result.Created)

		statement, err := s.BuildClosedStatement(ctx, testOwner, 10, 2025)
		require.NoError(t, err)
		assert.True(t, statement.Totals.ParcelasTotal.Equal(decimal.RequireFromString("159.90")))
	})
}

func TestApplyRecurring_InactiveTemplateIsIgnored(t *testing.T) {
	ctx := context.Background()
	s := newMemoryService(t)

	template := upsertRecurring(t, s, "jornal", "25.00")
	inactive := false
	_, err := s.UpsertRecurringPurchase(ctx, &domain.UpsertRecurringRequest{
		ID:          &template.ID,
		OwnerID:     testOwner,
		Description: "jornal",
		Amount:      decimal.RequireFromString("25.00"),
		Active:      &inactive,
	})
	require.NoError(t, err)

	result, err := s.ApplyRecurring(ctx, testOwner, domain.Period{Month: 9, Year: 2025})
	require.NoError(t, err)
	assert.Zero(t, result.Templates)
	assert.Zero(t, result.Created)

	all, err := s.ListRecurringPurchases(ctx, testOwner, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	active, err := s.ListRecurringPurchases(ctx, testOwner, false)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestApplyRecurring_SkipsInvalidTemplates(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	s := NewBillingService(store.Purchases(), store.Payments(), testCycle(t), logging.Nop(),
		WithRecurringRepository(store.Recurring()))

	now := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	for _, template := range []domain.RecurringPurchase{
		{ID: uuid.New(), OwnerID: testOwner, Description: "ok", Amount: decimal.NewFromInt(10), Active: true, CreatedAt: now},
		{ID: uuid.New(), OwnerID: testOwner, Description: "", Amount: decimal.NewFromInt(10), Active: true, CreatedAt: now.Add(time.Second)},
		{ID: uuid.New(), OwnerID: testOwner, Description: "zero", Amount: decimal.Zero, Active: true, CreatedAt: now.Add(2 * time.Second)},
		{ID: uuid.New(), OwnerID: testOwner, Description: "mills", Amount: decimal.RequireFromString("1.005"), Active: true, CreatedAt: now.Add(3 * time.Second)},
	} {
		template := template
		require.NoError(t, store.Recurring().Create(ctx, &template))
	}

	result, err := s.ApplyRecurring(ctx, testOwner, domain.Period{Month: 9, Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, 4, result.Templates)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 3, result.Skipped)
}

func TestApplyRecurring_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("period out of range", func(t *testing.T) {
		s := newMemoryService(t)
		_, err := s.ApplyRecurring(ctx, testOwner, domain.Period{Month: 13, Year: 2025})
		assert.Equal(t, customError.ErrCodePeriodOutOfRange, customError.CodeOf(err))
	})

	t.Run("not configured", func(t *testing.T) {
		s := NewBillingService(&mocks.MockPurchaseRepository{}, &mocks.MockPaymentRepository{}, testCycle(t), logging.Nop())
		_, err := s.ApplyRecurring(ctx, testOwner, domain.Period{Month: 9, Year: 2025})
		assert.Equal(t, customError.ErrCodeStoreUnavailable, customError.CodeOf(err))
	})

	t.Run("purchase store failure", func(t *testing.T) {
		store := repository.NewMemoryStore()
		purchases := &mocks.MockPurchaseRepository{}
		purchases.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full"))
		s := NewBillingService(purchases, store.Payments(), testCycle(t), logging.Nop(),
			WithRecurringRepository(store.Recurring()))
		upsertRecurring(t, s, "streaming", "39.90")

		_, err := s.ApplyRecurring(ctx, testOwner, domain.Period{Month: 9, Year: 2025})
		assert.True(t, errors.Is(err, customError.ErrStoreUnavailable))
	})
}

func TestApplyRecurring_InvalidatesCacheOnlyWhenCreating(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	cache := &mocks.MockStatementCache{}
	cache.On("Invalidate", mock.Anything, testOwner).Return(nil).Once()

	s := NewBillingService(store.Purchases(), store.Payments(), testCycle(t), logging.Nop(),
		WithRecurringRepository(store.Recurring()), WithStatementCache(cache))
	upsertRecurring(t, s, "streaming", "39.90")

	sep := domain.Period{Month: 9, Year: 2025}
	_, err := s.ApplyRecurring(ctx, testOwner, sep)
	require.NoError(t, err)
	_, err = s.ApplyRecurring(ctx, testOwner, sep)
	require.NoError(t, err)

	cache.AssertExpectations(t)
}

func TestUpsertRecurringPurchase(t *testing.T) {
	ctx := context.Background()
	s := newMemoryService(t)
	template := upsertRecurring(t, s, "streaming", "39.90")
	assert.True(t, template.Active)

	t.Run("updates fields and keeps active", func(t *testing.T) {
		updated, err := s.UpsertRecurringPurchase(ctx, &domain.UpsertRecurringRequest{
			ID:          &template.ID,
			OwnerID:     testOwner,
			Description: "streaming 4k",
			Amount:      decimal.RequireFromString("55.90"),
		})
		require.NoError(t, err)
		assert.Equal(t, template.ID, updated.ID)
		assert.Equal(t, "streaming 4k", updated.Description)
		assert.Empty(t, updated.Category)
		assert.True(t, updated.Active)
		assert.True(t, updated.Amount.Equal(decimal.RequireFromString("55.90")))
	})

	tests := []struct {
		name         string
		request      *domain.UpsertRecurringRequest
		expectedCode string
	}{
		{
			name:         "unknown id",
			request:      &domain.UpsertRecurringRequest{ID: uuidPtr(uuid.New()), OwnerID: testOwner, Description: "x", Amount: decimal.NewFromInt(1)},
			expectedCode: customError.ErrCodeRecurringNotFound,
		},
		{
			name:         "other owner",
			request:      &domain.UpsertRecurringRequest{ID: &template.ID, OwnerID: "1002", Description: "x", Amount: decimal.NewFromInt(1)},
			expectedCode: customError.ErrCodeRecurringNotFound,
		},
		{
			name:         "missing description",
			request:      &domain.UpsertRecurringRequest{OwnerID: testOwner, Amount: decimal.NewFromInt(1)},
			expectedCode: customError.ErrCodeValidationFailed,
		},
		{
			name:         "zero amount",
			request:      &domain.UpsertRecurringRequest{OwnerID: testOwner, Description: "x", Amount: decimal.Zero},
			expectedCode: customError.ErrCodeInvalidAmount,
		},
		{
			name:         "fraction below cents",
			request:      &domain.UpsertRecurringRequest{OwnerID: testOwner, Description: "x", Amount: decimal.RequireFromString("9.999")},
			expectedCode: customError.ErrCodeInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.UpsertRecurringPurchase(ctx, tt.request)
			require.Error(t, err)
			assert.Equal(t, tt.expectedCode, customError.CodeOf(err))
		})
	}
}

func uuidPtr(id uuid.UUID) *uuid.UUID { return &id }

type stubApplier struct {
	failFor string
	calls   []string
}

func (a *stubApplier) ApplyRecurring(ctx context.Context, ownerID string, period domain.Period) (*domain.ApplyRecurringResult, error) {
	a.calls = append(a.calls, ownerID+"@"+period.String())
	if ownerID == a.failFor {
		return nil, errors.New("boom")
	}
	return &domain.ApplyRecurringResult{OwnerID: ownerID, Period: period, Templates: 2, Created: 1, Skipped: 1}, nil
}

type stubOwners struct {
	owners []string
	err    error
}

func (o stubOwners) ListOwners(context.Context) ([]string, error) { return o.owners, o.err }

func TestOpenCycle(t *testing.T) {
	applier := &stubApplier{failFor: "b"}
	opener := NewCycleOpener(stubOwners{owners: []string{"a", "b", "c"}}, applier, testCycle(t), logging.Nop())

	report, err := opener.OpenCycle(context.Background(), time.Date(2025, 9, 10, 0, 5, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, domain.Period{Month: 10, Year: 2025}, report.Period)
	assert.Equal(t, 2, report.Owners)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, []string{"a@10/2025", "b@10/2025", "c@10/2025"}, applier.calls)
}

func TestOpenCycle_OwnerListingFails(t *testing.T) {
	opener := NewCycleOpener(stubOwners{err: errors.New("conn refused")}, &stubApplier{}, testCycle(t), logging.Nop())

	_, err := opener.OpenCycle(context.Background(), time.Now())
	assert.Equal(t, customError.ErrCodeStoreUnavailable, customError.CodeOf(err))
}

func TestOpenCycle_WithMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	s := NewBillingService(store.Purchases(), store.Payments(), testCycle(t), logging.Nop(),
		WithRecurringRepository(store.Recurring()))
	upsertRecurring(t, s, "streaming", "39.90")

	opener := NewCycleOpener(store.Recurring(), s, s.Cycle(), logging.Nop())
	at := time.Date(2025, 9, 10, 0, 5, 0, 0, time.UTC)

	report, err := opener.OpenCycle(ctx, at)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)

	// a rerun of the same night is a no-op
	report, err = opener.OpenCycle(ctx, at)
	require.NoError(t, err)
	assert.Zero(t, report.Created)
	assert.Equal(t, 1, report.Skipped)

	statement, err := s.BuildOpenStatement(ctx, testOwner, at)
	require.NoError(t, err)
	require.Len(t, statement.Items, 1)
	assert.Equal(t, "streaming", statement.Items[0].Description)
}
