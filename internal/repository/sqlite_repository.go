package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/MohsinAliJafery/backend/internal/model"
	"github.com/MohsinAliJafery/backend/internal/ports"
)

// Fixed-width UTC layout so created_at compares lexicographically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// OpenSQLite opens a SQLite database. A single connection is kept so that
// ":memory:" databases are shared and writes are serialized.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	return db, nil
}

type SQLiteTransactionRepository struct {
	db *sql.DB
}

func NewSQLiteTransactionRepository(db *sql.DB) *SQLiteTransactionRepository {
	return &SQLiteTransactionRepository{db: db}
}

const sqliteSelectColumns = `id, user_id, amount, currency, payment_method, order_id, payment_id,
       tier, status, integrity, gateway_status, gateway_txn_id, payer_email, payer_name,
       created_at, completed_at`

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func (r *SQLiteTransactionRepository) Create(ctx context.Context, tx *model.Transaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, amount, currency, payment_method, order_id, payment_id,
		                          tier, status, integrity, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, tx.Amount.String(), tx.Currency, string(tx.PaymentMethod), tx.OrderID, tx.PaymentID,
		string(tx.Tier), string(tx.Status), string(tx.Integrity), formatSQLiteTime(tx.CreatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("create transaction %s: %w", tx.OrderID, ports.ErrDuplicate)
		}
		return fmt.Errorf("create transaction %s: %w", tx.OrderID, err)
	}
	return nil
}

func (r *SQLiteTransactionRepository) FindByOrderID(ctx context.Context, orderID string) (*model.Transaction, error) {
	return r.findOne(ctx, "order_id", orderID)
}

func (r *SQLiteTransactionRepository) FindByPaymentID(ctx context.Context, paymentID string) (*model.Transaction, error) {
	return r.findOne(ctx, "payment_id", paymentID)
}

func (r *SQLiteTransactionRepository) findOne(ctx context.Context, column, value string) (*model.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s = ?`, sqliteSelectColumns, column)
	tx, err := scanSQLiteTransaction(r.db.QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting transaction by %s: %w", column, err)
	}
	return tx, nil
}

func (r *SQLiteTransactionRepository) FindByUser(ctx context.Context, userID string) ([]model.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE user_id = ? ORDER BY created_at DESC`, sqliteSelectColumns)
	return r.queryMany(ctx, query, userID)
}

func (r *SQLiteTransactionRepository) FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]model.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE status = ? AND created_at < ? ORDER BY created_at ASC LIMIT ?`, sqliteSelectColumns)
	return r.queryMany(ctx, query, string(model.StatusPending), formatSQLiteTime(cutoff), limit)
}

func (r *SQLiteTransactionRepository) queryMany(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying transactions: %w", err)
	}
	defer rows.Close()

	var transactions []model.Transaction
	for rows.Next() {
		tx, err := scanSQLiteTransaction(rows)
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

func (r *SQLiteTransactionRepository) AttachPaymentID(ctx context.Context, orderID, paymentID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET payment_id = ? WHERE order_id = ? AND status = ?`,
		paymentID, orderID, string(model.StatusPending))
	if err != nil {
		return fmt.Errorf("failed to attach payment id: %w", err)
	}
	return r.checkAffected(ctx, res, orderID)
}

func (r *SQLiteTransactionRepository) UpdateStatus(ctx context.Context, orderID string, expected model.Status, update model.StatusUpdate) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET status = ?,
		    integrity = COALESCE(NULLIF(?, ''), integrity),
		    gateway_status = COALESCE(NULLIF(?, ''), gateway_status),
		    gateway_txn_id = COALESCE(NULLIF(?, ''), gateway_txn_id),
		    payer_email = COALESCE(NULLIF(?, ''), payer_email),
		    payer_name = COALESCE(NULLIF(?, ''), payer_name),
		    completed_at = ?
		WHERE order_id = ? AND status = ?`,
		string(update.Status),
		string(update.Integrity),
		update.GatewayStatus,
		update.GatewayTxnID,
		update.PayerEmail,
		update.PayerName,
		formatSQLiteTime(update.CompletedAt),
		orderID,
		string(expected),
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	return r.checkAffected(ctx, res, orderID)
}

func (r *SQLiteTransactionRepository) checkAffected(ctx context.Context, res sql.Result, orderID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM transactions WHERE order_id = ?`, orderID).Scan(&count); err != nil {
		return fmt.Errorf("error checking transaction: %w", err)
	}
	if count == 0 {
		return ports.ErrNotFound
	}
	return ports.ErrConflict
}

type sqlScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTransaction(row sqlScanner) (*model.Transaction, error) {
	var (
		tx                              model.Transaction
		amount, createdAt               string
		completedAt                     sql.NullString
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
		&createdAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if tx.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	if completedAt.Valid {
		t, err := time.Parse(sqliteTimeLayout, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("invalid completed_at %q: %w", completedAt.String, err)
		}
		tx.CompletedAt = &t
	}
	tx.PaymentMethod = model.PaymentMethod(method)
	tx.Tier = model.Tier(tier)
	tx.Status = model.Status(status)
	tx.Integrity = model.Integrity(integrity)
	return &tx, nil
}
