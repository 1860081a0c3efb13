package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/fatura-engine/internal/billing"
	"github.com/segyhp/fatura-engine/internal/domain"
	"github.com/segyhp/fatura-engine/internal/logging"
	"github.com/segyhp/fatura-engine/internal/repository"
	customError "github.com/segyhp/fatura-engine/pkg/errors"
	"github.com/segyhp/fatura-engine/pkg/utils"

	"github.com/go-playground/validator/v10"
)

// BillingService is the entry point used by the HTTP API, the bot and the
// scheduler. Reads go through the embedded BalanceEngine and StatementBuilder.
type BillingService struct {
	*BalanceEngine
	*StatementBuilder

	PurchaseRepo  repository.PurchaseRepository
	PaymentRepo   repository.PaymentRepository
	RecurringRepo repository.RecurringPurchaseRepository

	mapper          *billing.Mapper
	cache           StatementCache
	validator       *validator.Validate
	logger          logging.Logger
	maxInstallments int
	now             func() time.Time
}

type Option func(*BillingService)

// WithClock overrides the time source used for purchases and payments without
// an explicit timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *BillingService) { s.now = now }
}

// WithMaxInstallments lowers the per-purchase installment cap (never above 60).
func WithMaxInstallments(n int) Option {
	return func(s *BillingService) {
		if n >= 1 && n <= domain.MaxInstallments {
			s.maxInstallments = n
		}
	}
}

// WithRecurringRepository enables recurring purchase templates.
func WithRecurringRepository(repo repository.RecurringPurchaseRepository) Option {
	return func(s *BillingService) { s.RecurringRepo = repo }
}

// WithStatementCache enables caching of closed statements.
func WithStatementCache(cache StatementCache) Option {
	return func(s *BillingService) { s.cache = cache }
}

func NewBillingService(
	purchaseRepo repository.PurchaseRepository,
	paymentRepo repository.PaymentRepository,
	cycle *billing.Calculator,
	logger logging.Logger,
	opts ...Option,
) *BillingService {
	if logger == nil {
		logger = logging.Nop()
	}

	s := &BillingService{
		PurchaseRepo:    purchaseRepo,
		PaymentRepo:     paymentRepo,
		mapper:          billing.NewMapper(cycle),
		validator:       validator.New(),
		logger:          logger,
		maxInstallments: domain.MaxInstallments,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.BalanceEngine = NewBalanceEngine(purchaseRepo, paymentRepo, s.mapper, logger)
	s.StatementBuilder = NewStatementBuilder(purchaseRepo, paymentRepo, s.mapper, s.cache, logger)
	return s
}

// Cycle exposes the billing calendar in use
func (s *BillingService) Cycle() *billing.Calculator {
	return s.mapper.Cycle()
}

// Now returns the service clock
func (s *BillingService) Now() time.Time {
	return s.now()
}

// OpenPeriod is the period still accumulating charges at now
func (s *BillingService) OpenPeriod(now time.Time) domain.Period {
	return s.Cycle().NextOpenPeriod(now)
}

// LastClosedPeriod is the most recent period whose closing day has passed at now
func (s *BillingService) LastClosedPeriod(now time.Time) domain.Period {
	return s.Cycle().NextOpenPeriod(now).Prev()
}

// RegisterPurchase validates and stores a purchase. Nothing is written when
// validation fails.
func (s *BillingService) RegisterPurchase(ctx context.Context, request *domain.CreatePurchaseRequest) (*domain.Purchase, error) {
	if !utils.IsCurrencyAmount(request.TotalAmount) {
		return nil, customError.WrapInvalidAmount(request.TotalAmount.String())
	}
	if request.InstallmentCount < 1 || request.InstallmentCount > s.maxInstallments {
		return nil, customError.WrapInvalidInstallmentCount(request.InstallmentCount, s.maxInstallments)
	}
	installmentAmount := utils.CalculateInstallmentAmount(request.TotalAmount, request.InstallmentCount)
	if !installmentAmount.IsPositive() {
		return nil, customError.WrapInstallmentTooSmall(request.TotalAmount.String(), request.InstallmentCount)
	}
	if err := s.validator.Struct(request); err != nil {
		return nil, customError.WrapValidationFailed(err)
	}

	now := s.now()
	purchasedAt := now
	if request.PurchasedAt != nil {
		purchasedAt = *request.PurchasedAt
	}

	purchase := s.newPurchase(uuid.New(), request.OwnerID, purchasedAt, now)
	purchase.Description = request.Description
	purchase.Category = request.Category
	purchase.TotalAmount = request.TotalAmount
	purchase.InstallmentCount = request.InstallmentCount
	purchase.InstallmentAmount = installmentAmount

	if err := s.PurchaseRepo.Create(ctx, purchase); err != nil {
		return nil, customError.WrapStoreUnavailable(err)
	}

	s.invalidate(ctx, purchase.OwnerID)
	s.logger.Info(ctx, "purchase registered",
		"owner_id", purchase.OwnerID,
		"purchase_id", purchase.ID,
		"total", purchase.TotalAmount.String(),
		"installments", purchase.InstallmentCount,
		"first_period", s.mapper.EffectiveStart(purchase).String(),
	)

	return purchase, nil
}

// newPurchase fills identity and the ledger-zone calendar date of purchasedAt.
func (s *BillingService) newPurchase(id uuid.UUID, ownerID string, purchasedAt, now time.Time) *domain.Purchase {
	local := purchasedAt.In(s.Cycle().Location())
	return &domain.Purchase{
		ID:          id,
		OwnerID:     ownerID,
		PurchasedAt: local,
		StartMonth:  int(local.Month()),
		StartYear:   local.Year(),
		StartDay:    local.Day(),
		Active:      true,
		CreatedAt:   now,
	}
}

// RegisterPayment validates and stores a payment.
func (s *BillingService) RegisterPayment(ctx context.Context, request *domain.CreatePaymentRequest) (*domain.Payment, error) {
	if !utils.IsCurrencyAmount(request.Amount) {
		return nil, customError.WrapInvalidAmount(request.Amount.String())
	}
	if err := s.validator.Struct(request); err != nil {
		return nil, customError.WrapValidationFailed(err)
	}

	now := s.now()
	paidAt := now
	if request.PaidAt != nil {
		paidAt = *request.PaidAt
	}

	payment := &domain.Payment{
		ID:          uuid.New(),
		OwnerID:     request.OwnerID,
		Amount:      request.Amount,
		Description: request.Description,
		PaidAt:      paidAt.In(s.Cycle().Location()),
		CreatedAt:   now,
	}

	if err := s.PaymentRepo.Create(ctx, payment); err != nil {
		return nil, customError.WrapStoreUnavailable(err)
	}

	s.invalidate(ctx, payment.OwnerID)
	s.logger.Info(ctx, "payment registered",
		"owner_id", payment.OwnerID,
		"payment_id", payment.ID,
		"amount", payment.Amount.String(),
		"period", s.Cycle().PeriodOf(payment.PaidAt).String(),
	)

	return payment, nil
}

// DeactivatePurchase soft-deletes a purchase. An empty ownerID skips the
// ownership check (admin use).
func (s *BillingService) DeactivatePurchase(ctx context.Context, ownerID string, purchaseID uuid.UUID) (*domain.Purchase, error) {
	purchase, err := s.PurchaseRepo.GetByID(ctx, purchaseID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapPurchaseNotFound(purchaseID.String())
	}
	if err != nil {
		return nil, customError.WrapStoreUnavailable(err)
	}
	if ownerID != "" && purchase.OwnerID != ownerID {
		return nil, customError.WrapPurchaseNotFound(purchaseID.String())
	}

	if purchase.Active {
		err = s.PurchaseRepo.Deactivate(ctx, purchaseID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapPurchaseNotFound(purchaseID.String())
		}
		if err != nil {
			return nil, customError.WrapStoreUnavailable(err)
		}
		purchase.Active = false
		s.invalidate(ctx, purchase.OwnerID)
		s.logger.Info(ctx, "purchase deactivated", "owner_id", purchase.OwnerID, "purchase_id", purchaseID)
	}

	return purchase, nil
}

// ListPurchases returns the owner's purchases, optionally including inactive ones.
func (s *BillingService) ListPurchases(ctx context.Context, ownerID string, includeInactive bool) ([]*domain.Purchase, error) {
	var (
		purchases []*domain.Purchase
		err       error
	)
	if includeInactive {
		purchases, err = s.PurchaseRepo.ListByOwner(ctx, ownerID)
	} else {
		purchases, err = s.PurchaseRepo.ListActiveByOwner(ctx, ownerID)
	}
	if err != nil {
		return nil, customError.WrapStoreUnavailable(err)
	}
	return purchases, nil
}

func (s *BillingService) ListPayments(ctx context.Context, ownerID string) ([]*domain.Payment, error) {
	payments, err := s.PaymentRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, customError.WrapStoreUnavailable(err)
	}
	return payments, nil
}

func (s *BillingService) invalidate(ctx context.Context, ownerID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, ownerID); err != nil {
		s.logger.Warn(ctx, "statement cache invalidation failed", "owner_id", ownerID, "error", err)
	}
}
