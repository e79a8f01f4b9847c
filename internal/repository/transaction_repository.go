package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/MohsinAliJafery/backend/internal/model"
	"github.com/MohsinAliJafery/backend/internal/ports"
)

const pgUniqueViolation = "23505"

// Queryable is the subset of pgx shared by pools and transactions.
type Queryable interface {
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
}

type TransactionRepository struct {
	db Queryable
}

func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: pool}
}

const pgSelectColumns = `id, user_id, amount::text, currency, payment_method, order_id, payment_id,
       tier, status, integrity, gateway_status, gateway_txn_id, payer_email, payer_name,
       created_at, completed_at`

func (r *TransactionRepository) Create(ctx context.Context, tx *model.Transaction) error {
	// Required fields
	fields := []string{"id", "user_id", "amount", "currency", "payment_method", "order_id", "tier", "status", "integrity", "created_at"}
	values := []any{tx.ID, tx.UserID, tx.Amount.String(), tx.Currency, string(tx.PaymentMethod), tx.OrderID,
		string(tx.Tier), string(tx.Status), string(tx.Integrity), tx.CreatedAt}

	// Optional fields
	if tx.PaymentID != "" {
		fields = append(fields, "payment_id")
		values = append(values, tx.PaymentID)
	}

	params := make([]string, len(fields))
	for i, f := range fields {
		params[i] = fmt.Sprintf("$%d", i+1)
		if f == "amount" {
			params[i] += "::numeric"
		}
	}

	query := fmt.Sprintf(`
        INSERT INTO transactions (%s)
        VALUES (%s)`,
		strings.Join(fields, ", "),
		strings.Join(params, ", "),
	)

	if _, err := r.db.Exec(ctx, query, values...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("create transaction %s: %w", tx.OrderID, ports.ErrDuplicate)
		}
		return fmt.Errorf("create transaction %s: %w", tx.OrderID, err)
	}
	return nil
}

func (r *TransactionRepository) FindByOrderID(ctx context.Context, orderID string) (*model.Transaction, error) {
	return r.findOne(ctx, "order_id", orderID)
}

func (r *TransactionRepository) FindByPaymentID(ctx context.Context, paymentID string) (*model.Transaction, error) {
	return r.findOne(ctx, "payment_id", paymentID)
}

func (r *TransactionRepository) findOne(ctx context.Context, column, value string) (*model.Transaction, error) {
	sql := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s = $1`, pgSelectColumns, column)
	tx, err := scanPgTransaction(r.db.QueryRow(ctx, sql, value))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting transaction by %s: %w", column, err)
	}
	return tx, nil
}

func (r *TransactionRepository) FindByUser(ctx context.Context, userID string) ([]model.Transaction, error) {
	sql := fmt.Sprintf(`
        SELECT %s
        FROM transactions
        WHERE user_id = $1
        ORDER BY created_at DESC`, pgSelectColumns)
	return r.queryMany(ctx, sql, userID)
}

func (r *TransactionRepository) FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.Transaction, error) {
	sql := fmt.Sprintf(`
        SELECT %s
        FROM transactions
        WHERE status = $1 AND created_at < $2
        ORDER BY created_at ASC
        LIMIT $3`, pgSelectColumns)
	return r.queryMany(ctx, sql, string(model.StatusPending), cutoff, limit)
}

func (r *TransactionRepository) queryMany(ctx context.Context, sql string, args ...any) ([]model.Transaction, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying transactions: %w", err)
	}
	defer rows.Close()

	var transactions []model.Transaction
	for rows.Next() {
		tx, err := scanPgTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning transaction: %w", err)
		}
		transactions = append(transactions, *tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return transactions, nil
}

func (r *TransactionRepository) AttachPaymentID(ctx context.Context, orderID, paymentID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE transactions SET payment_id = $1 WHERE order_id = $2 AND status = $3`,
		paymentID, orderID, string(model.StatusPending))
	if err != nil {
		return fmt.Errorf("failed to attach payment id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missOrConflict(ctx, orderID)
	}
	return nil
}

func (r *TransactionRepository) UpdateStatus(ctx context.Context, orderID string, expected model.Status, update model.StatusUpdate) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE transactions
        SET status = $1,
            integrity = COALESCE(NULLIF($2, ''), integrity),
            gateway_status = COALESCE(NULLIF($3, ''), gateway_status),
            gateway_txn_id = COALESCE(NULLIF($4, ''), gateway_txn_id),
            payer_email = COALESCE(NULLIF($5, ''), payer_email),
            payer_name = COALESCE(NULLIF($6, ''), payer_name),
            completed_at = $7
        WHERE order_id = $8 AND status = $9`,
		string(update.Status),
		string(update.Integrity),
		update.GatewayStatus,
		update.GatewayTxnID,
		update.PayerEmail,
		update.PayerName,
		update.CompletedAt,
		orderID,
		string(expected),
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missOrConflict(ctx, orderID)
	}
	return nil
}

func (r *TransactionRepository) missOrConflict(ctx context.Context, orderID string) error {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM transactions WHERE order_id = $1)`, orderID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("error checking transaction: %w", err)
	}
	if !exists {
		return ports.ErrNotFound
	}
	return ports.ErrConflict
}

func scanPgTransaction(row pgx.Row) (*model.Transaction, error) {
	var (
		tx                              model.Transaction
		amount                          string
		method, tier, status, integrity string
	)
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&amount,
		&tx.Currency,
		&method,
		&tx.OrderID,
		&tx.PaymentID,
		&tier,
		&status,
		&integrity,
		&tx.GatewayStatus,
		&tx.GatewayTxnID,
		&tx.PayerEmail,
		&tx.PayerName,
		&tx.CreatedAt,
		&tx.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	tx.PaymentMethod = model.PaymentMethod(method)
	tx.Tier = model.Tier(tier)
	tx.Status = model.Status(status)
	tx.Integrity = model.Integrity(integrity)
	return &tx, nil
}
