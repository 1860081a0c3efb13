package repository

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/fatura-engine/internal/domain"
)

// MemoryStore keeps the ledger in process memory. It implements every
// repository interface and returns copies, so callers never share records
// with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	purchases []domain.Purchase
	payments  []domain.Payment
	recurring []domain.RecurringPurchase
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Purchases exposes the store as a PurchaseRepository
func (s *MemoryStore) Purchases() PurchaseRepository { return memoryPurchases{s} }

// Payments exposes the store as a PaymentRepository
func (s *MemoryStore) Payments() PaymentRepository { return memoryPayments{s} }

// Recurring exposes the store as a RecurringPurchaseRepository
func (s *MemoryStore) Recurring() RecurringPurchaseRepository { return memoryRecurring{s} }

func (s *MemoryStore) ListOwners(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, p := range s.purchases {
		if p.Active {
			seen[p.OwnerID] = struct{}{}
		}
	}
	for _, p := range s.payments {
		seen[p.OwnerID] = struct{}{}
	}

	owners := make([]string, 0, len(seen))
	for owner := range seen {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	return owners, nil
}

type memoryPurchases struct{ s *MemoryStore }

func (m memoryPurchases) Create(ctx context.Context, purchase *domain.Purchase) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for i := range m.s.purchases {
		if m.s.purchases[i].ID == purchase.ID {
			return ErrDuplicate
		}
	}
	m.s.purchases = append(m.s.purchases, *purchase)
	return nil
}

func (m memoryPurchases) GetByID(ctx context.Context, id uuid.UUID) (*domain.Purchase, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for i := range m.s.purchases {
		if m.s.purchases[i].ID == id {
			p := m.s.purchases[i]
			return &p, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m memoryPurchases) ListActiveByOwner(ctx context.Context, ownerID string) ([]*domain.Purchase, error) {
	return m.list(ownerID, true), nil
}

func (m memoryPurchases) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Purchase, error) {
	return m.list(ownerID, false), nil
}

func (m memoryPurchases) Deactivate(ctx context.Context, id uuid.UUID) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for i := range m.s.purchases {
		if m.s.purchases[i].ID == id {
			m.s.purchases[i].Active = false
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m memoryPurchases) list(ownerID string, activeOnly bool) []*domain.Purchase {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	var out []*domain.Purchase
	for i := range m.s.purchases {
		p := m.s.purchases[i]
		if p.OwnerID != ownerID || (activeOnly && !p.Active) {
			continue
		}
		out = append(out, &p)
	}
	return out
}

type memoryPayments struct{ s *MemoryStore }

func (m memoryPayments) Create(ctx context.Context, payment *domain.Payment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.payments = append(m.s.payments, *payment)
	return nil
}

func (m memoryPayments) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Payment, error) {
	return m.list(ownerID, func(*domain.Payment) bool { return true }), nil
}

func (m memoryPayments) ListByOwnerInRange(ctx context.Context, ownerID string, start, end time.Time) ([]*domain.Payment, error) {
	return m.list(ownerID, func(p *domain.Payment) bool {
		return !p.PaidAt.Before(start) && !p.PaidAt.After(end)
	}), nil
}

func (m memoryPayments) list(ownerID string, keep func(*domain.Payment) bool) []*domain.Payment {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	var out []*domain.Payment
	for i := range m.s.payments {
		p := m.s.payments[i]
		if p.OwnerID == ownerID && keep(&p) {
			out = append(out, &p)
		}
	}
	return out
}

type memoryRecurring struct{ s *MemoryStore }

func (m memoryRecurring) Create(ctx context.Context, recurring *domain.RecurringPurchase) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for i := range m.s.recurring {
		if m.s.recurring[i].ID == recurring.ID {
			return ErrDuplicate
		}
	}
	m.s.recurring = append(m.s.recurring, *recurring)
	return nil
}

func (m memoryRecurring) Update(ctx context.Context, recurring *domain.RecurringPurchase) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for i := range m.s.recurring {
		t := &m.s.recurring[i]
		if t.ID == recurring.ID {
			t.Description = recurring.Description
			t.Category = recurring.Category
			t.Amount = recurring.Amount
			t.Active = recurring.Active
			t.UpdatedAt = recurring.UpdatedAt
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m memoryRecurring) GetByID(ctx context.Context, id uuid.UUID) (*domain.RecurringPurchase, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for i := range m.s.recurring {
		if m.s.recurring[i].ID == id {
			t := m.s.recurring[i]
			return &t, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m memoryRecurring) ListByOwner(ctx context.Context, ownerID string, activeOnly bool) ([]*domain.RecurringPurchase, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	var out []*domain.RecurringPurchase
	for i := range m.s.recurring {
		t := m.s.recurring[i]
		if t.OwnerID != ownerID || (activeOnly && !t.Active) {
			continue
		}
		out = append(out, &t)
	}
	return out, nil
}

func (m memoryRecurring) ListOwners(ctx context.Context) ([]string, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, t := range m.s.recurring {
		if t.Active {
			seen[t.OwnerID] = struct{}{}
		}
	}

	owners := make([]string, 0, len(seen))
	for owner := range seen {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	return owners, nil
}
