package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MohsinAliJafery/backend/internal/model"
	"github.com/MohsinAliJafery/backend/internal/ports"
)

// MemoryTransactionRepository keeps transactions in process memory. It backs
// local development (DB_DRIVER=memory) and service tests.
type MemoryTransactionRepository struct {
	mu           sync.RWMutex
	transactions map[string]*model.Transaction
}

func NewMemoryTransactionRepository() *MemoryTransactionRepository {
	return &MemoryTransactionRepository{
		transactions: make(map[string]*model.Transaction),
	}
}

func clone(tx *model.Transaction) *model.Transaction {
	out := *tx
	if tx.CompletedAt != nil {
		completed := *tx.CompletedAt
		out.CompletedAt = &completed
	}
	return &out
}

func (r *MemoryTransactionRepository) Create(_ context.Context, tx *model.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.transactions[tx.OrderID]; exists {
		return ports.ErrDuplicate
	}
	r.transactions[tx.OrderID] = clone(tx)
	return nil
}

func (r *MemoryTransactionRepository) FindByOrderID(_ context.Context, orderID string) (*model.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tx, ok := r.transactions[orderID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return clone(tx), nil
}

func (r *MemoryTransactionRepository) FindByPaymentID(_ context.Context, paymentID string) (*model.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, tx := range r.transactions {
		if tx.PaymentID == paymentID {
			return clone(tx), nil
		}
	}
	return nil, ports.ErrNotFound
}

func (r *MemoryTransactionRepository) FindByUser(_ context.Context, userID string) ([]model.Transaction, error) {
	return r.filter(func(tx *model.Transaction) bool { return tx.UserID == userID }, true, 0), nil
}

func (r *MemoryTransactionRepository) FindPendingBefore(_ context.Context, cutoff time.Time, limit int) ([]model.Transaction, error) {
	return r.filter(func(tx *model.Transaction) bool {
		return tx.Status == model.StatusPending && tx.CreatedAt.Before(cutoff)
	}, false, limit), nil
}

func (r *MemoryTransactionRepository) filter(keep func(*model.Transaction) bool, newestFirst bool, limit int) []model.Transaction {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []model.Transaction
	for _, tx := range r.transactions {
		if keep(tx) {
			out = append(out, *clone(tx))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *MemoryTransactionRepository) AttachPaymentID(_ context.Context, orderID, paymentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, ok := r.transactions[orderID]
	if !ok {
		return ports.ErrNotFound
	}
	if tx.Status != model.StatusPending {
		return ports.ErrConflict
	}
	tx.PaymentID = paymentID
	return nil
}

func (r *MemoryTransactionRepository) UpdateStatus(_ context.Context, orderID string, expected model.Status, update model.StatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, ok := r.transactions[orderID]
	if !ok {
		return ports.ErrNotFound
	}
	if tx.Status != expected {
		return ports.ErrConflict
	}
	update.Apply(tx)
	return nil
}
