package ports

import (
	"context"
	"errors"
	"time"

	"github.com/MohsinAliJafery/backend/internal/model"
)

var (
	ErrNotFound  = errors.New("transaction not found")
	ErrConflict  = errors.New("transaction status changed concurrently")
	ErrDuplicate = errors.New("transaction order id already exists")
)

type ITransactionRepository interface {
	Create(ctx context.Context, tx *model.Transaction) error
	FindByOrderID(ctx context.Context, orderID string) (*model.Transaction, error)
	FindByPaymentID(ctx context.Context, paymentID string) (*model.Transaction, error)
	FindByUser(ctx context.Context, userID string) ([]model.Transaction, error)
	FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.Transaction, error)
	// AttachPaymentID sets the provider id of a pending transaction.
	AttachPaymentID(ctx context.Context, orderID, paymentID string) error
	// UpdateStatus applies update only if the stored status still equals
	// expected, returning ErrConflict otherwise.
	UpdateStatus(ctx context.Context, orderID string, expected model.Status, update model.StatusUpdate) error
}
