package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/fatura-engine/internal/billing"
	"github.com/segyhp/fatura-engine/internal/domain"
	"github.com/segyhp/fatura-engine/internal/logging"
	"github.com/segyhp/fatura-engine/internal/repository"
	customError "github.com/segyhp/fatura-engine/pkg/errors"
	"github.com/segyhp/fatura-engine/pkg/utils"
)

// recurringNamespace seeds the name-based ids of applied templates.
var recurringNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:fatura-engine:recurring"))

var errRecurringDisabled = errors.New("recurring purchases are not configured")

// RecurringPurchaseID is the id of the purchase a template produces in a
// period. Applying the same template twice for a period yields the same id.
func RecurringPurchaseID(ownerID string, templateID uuid.UUID, period domain.Period) uuid.UUID {
	name := fmt.Sprintf("rec_%s_%s_%02d_%d", ownerID, templateID, period.Month, period.Year)
	return uuid.NewSHA1(recurringNamespace, []byte(name))
}

// RecurringPurchaseDate is where an applied template lands: noon of the first
// day of the period.
func RecurringPurchaseDate(cycle *billing.Calculator, period domain.Period) time.Time {
	start, _ := cycle.ClosedPeriodBounds(period)
	return start.Add(12 * time.Hour)
}

// UpsertRecurringPurchase creates a template, or updates one of the owner's
// templates when request.ID is set.
func (s *BillingService) UpsertRecurringPurchase(ctx context.Context, request *domain.UpsertRecurringRequest) (*domain.RecurringPurchase, error) {
	if s.RecurringRepo == nil {
		return nil, customError.WrapStoreUnavailable(errRecurringDisabled)
	}
	if !utils.IsCurrencyAmount(request.Amount) {
		return nil, customError.WrapInvalidAmount(request.Amount.String())
	}
	if err := s.validator.Struct(request); err != nil {
		return nil, customError.WrapValidationFailed(err)
	}

	now := s.now()

	if request.ID == nil {
		template := &domain.RecurringPurchase{
			ID:          uuid.New(),
			OwnerID:     request.OwnerID,
			Description: request.Description,
			Category:    request.Category,
			Amount:      request.Amount,
			Active:      request.Active == nil || *request.Active,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.RecurringRepo.Create(ctx, template); err != nil {
			return nil, customError.WrapStoreUnavailable(err)
		}
		s.logger.Info(ctx, "recurring purchase created", "owner_id", template.OwnerID, "recurring_id", template.ID)
		return template, nil
	}

	template, err := s.RecurringRepo.GetByID(ctx, *request.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapRecurringNotFound(request.ID.String())
	}
	if err != nil {
		return nil, customError.WrapStoreUnavailable(err)
	}
	if template.OwnerID != request.OwnerID {
		return nil, customError.WrapRecurringNotFound(request.ID.String())
	}

	template.Description = request.Description
	template.Category = request.Category
	template.Amount = request.Amount
	if request.Active != nil {
		template.Active = *request.Active
	}
	template.UpdatedAt = now

	err = s.RecurringRepo.Update(ctx, template)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapRecurringNotFound(request.ID.String())
	}
	if err != nil {
		return nil, customError.WrapStoreUnavailable(err)
	}

	s.logger.Info(ctx, "recurring purchase updated",
		"owner_id", template.OwnerID,
		"recurring_id", template.ID,
		"active", template.Active,
	)
	return template, nil
}

// ListRecurringPurchases returns the owner's templates, optionally including inactive ones.
func (s *BillingService) ListRecurringPurchases(ctx context.Context, ownerID string, includeInactive bool) ([]*domain.RecurringPurchase, error) {
	if s.RecurringRepo == nil {
		return nil, customError.WrapStoreUnavailable(errRecurringDisabled)
	}
	templates, err := s.RecurringRepo.ListByOwner(ctx, ownerID, !includeInactive)
	if err != nil {
		return nil, customError.WrapStoreUnavailable(err)
	}
	return templates, nil
}

// ApplyRecurring turns each active template of the owner into a
// single-installment purchase billed in period. Templates already applied to
// the period, and templates that fail validation, are counted as skipped.
func (s *BillingService) ApplyRecurring(ctx context.Context, ownerID string, period domain.Period) (*domain.ApplyRecurringResult, error) {
	if s.RecurringRepo == nil {
		return nil, customError.WrapStoreUnavailable(errRecurringDisabled)
	}
	if err := utils.ValidatePeriod(period.Month, period.Year); err != nil {
		return nil, err
	}

	templates, err := s.RecurringRepo.ListByOwner(ctx, ownerID, true)
	if err != nil {
		return nil, customError.WrapStoreUnavailable(err)
	}

	result := &domain.ApplyRecurringResult{OwnerID: ownerID, Period: period, Templates: len(templates)}
	purchasedAt := RecurringPurchaseDate(s.Cycle(), period)
	now := s.now()

	for _, template := range templates {
		if !template.Active {
			result.Skipped++
			continue
		}
		if template.Description == "" || len(template.Category) > 50 || !utils.IsCurrencyAmount(template.Amount) {
			result.Skipped++
			s.logger.Warn(ctx, "invalid recurring purchase skipped", "owner_id", ownerID, "recurring_id", template.ID)
			continue
		}

		purchase := s.newPurchase(RecurringPurchaseID(ownerID, template.ID, period), ownerID, purchasedAt, now)
		purchase.Description = template.Description
		purchase.Category = template.Category
		purchase.TotalAmount = template.Amount
		purchase.InstallmentCount = 1
		purchase.InstallmentAmount = template.Amount
		purchase.RecurringID = uuid.NullUUID{UUID: template.ID, Valid: true}

		err := s.PurchaseRepo.Create(ctx, purchase)
		if errors.Is(err, repository.ErrDuplicate) {
			result.Skipped++
			continue
		}
		if err != nil {
			return nil, customError.WrapStoreUnavailable(err)
		}
		result.Created++
	}

	if result.Created > 0 {
		s.invalidate(ctx, ownerID)
	}
	s.logger.Info(ctx, "recurring purchases applied",
		"owner_id", ownerID,
		"period", period.String(),
		"total_templates", result.Templates,
		"created", result.Created,
		"skipped", result.Skipped,
	)
	return result, nil
}

// RecurringApplier is the part of BillingService the opening job needs
type RecurringApplier interface {
	ApplyRecurring(ctx context.Context, ownerID string, period domain.Period) (*domain.ApplyRecurringResult, error)
}

// OpenReport summarizes one run of the cycle opening job
type OpenReport struct {
	Period  domain.Period
	Owners  int
	Failed  int
	Created int
	Skipped int
}

// CycleOpener applies recurring templates to the period that opens after each
// closing day.
type CycleOpener struct {
	owners  repository.OwnerRepository
	applier RecurringApplier
	cycle   *billing.Calculator
	logger  logging.Logger
}

func NewCycleOpener(
	owners repository.OwnerRepository,
	applier RecurringApplier,
	cycle *billing.Calculator,
	logger logging.Logger,
) *CycleOpener {
	return &CycleOpener{owners: owners, applier: applier, cycle: cycle, logger: logger}
}

// OpenCycle applies templates for the period open at now. Owners that fail are
// logged and skipped.
func (o *CycleOpener) OpenCycle(ctx context.Context, now time.Time) (*OpenReport, error) {
	period := o.cycle.NextOpenPeriod(now)

	owners, err := o.owners.ListOwners(ctx)
	if err != nil {
		return nil, customError.WrapStoreUnavailable(err)
	}

	report := &OpenReport{Period: period}
	for _, owner := range owners {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result, err := o.applier.ApplyRecurring(ctx, owner, period)
		if err != nil {
			report.Failed++
			o.logger.Error(ctx, "applying recurring purchases failed", "owner_id", owner, "period", period.String(), "error", err)
			continue
		}
		report.Owners++
		report.Created += result.Created
		report.Skipped += result.Skipped
	}

	o.logger.Info(ctx, "cycle opened",
		"period", period.String(),
		"owners", report.Owners,
		"failed", report.Failed,
		"created", report.Created,
		"skipped", report.Skipped,
	)
	return report, nil
}
