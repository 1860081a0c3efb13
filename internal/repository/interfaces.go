package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/fatura-engine/internal/domain"
)

// ErrDuplicate is returned by Create when a record with the same ID exists.
var ErrDuplicate = errors.New("record already exists")

// PurchaseRepository defines the interface for purchase data operations
type PurchaseRepository interface {
	// Create stores a new purchase, returning ErrDuplicate when the ID is taken
	Create(ctx context.Context, purchase *domain.Purchase) error

	// GetByID retrieves a purchase by its ID, returning sql.ErrNoRows when absent
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Purchase, error)

	// ListActiveByOwner retrieves the owner's active purchases in creation order
	ListActiveByOwner(ctx context.Context, ownerID string) ([]*domain.Purchase, error)

	// ListByOwner retrieves every purchase of the owner, including soft-deleted ones
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Purchase, error)

	// Deactivate soft-deletes a purchase, returning sql.ErrNoRows when absent
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// Create stores a new payment
	Create(ctx context.Context, payment *domain.Payment) error

	// ListByOwner retrieves all payments of the owner in creation order
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Payment, error)

	// ListByOwnerInRange retrieves payments with paid_at in [start, end]
	ListByOwnerInRange(ctx context.Context, ownerID string, start, end time.Time) ([]*domain.Payment, error)
}

// OwnerRepository lists owners that have ledger records
type OwnerRepository interface {
	ListOwners(ctx context.Context) ([]string, error)
}

// RecurringPurchaseRepository defines the interface for recurring purchase templates
type RecurringPurchaseRepository interface {
	Create(ctx context.Context, recurring *domain.RecurringPurchase) error

	// Update overwrites description, category, amount and active, returning
	// sql.ErrNoRows when absent
	Update(ctx context.Context, recurring *domain.RecurringPurchase) error

	// GetByID returns sql.ErrNoRows when absent
	GetByID(ctx context.Context, id uuid.UUID) (*domain.RecurringPurchase, error)

	// ListByOwner returns the owner's templates in creation order
	ListByOwner(ctx context.Context, ownerID string, activeOnly bool) ([]*domain.RecurringPurchase, error)

	// ListOwners returns owners with at least one active template
	ListOwners(ctx context.Context) ([]string, error)
}
