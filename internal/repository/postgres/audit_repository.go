package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orderflow/platform/internal/domain/audit"
)

// AuditRepository implements audit.Repository using PostgreSQL, relying on
// a unique index on transaction_id to prevent a re-delivered event from
// debiting an account twice.
type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

func (r *AuditRepository) Insert(ctx context.Context, tx *audit.Transaction) (bool, error) {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO processed_transactions (transaction_id, order_id, user_id, amount, status, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (transaction_id) DO NOTHING
		 RETURNING id`,
		tx.TransactionID, tx.OrderID, tx.UserID, tx.Amount, string(tx.Status), tx.ProcessedAt,
	).Scan(&tx.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("insert processed transaction: %w", err)
	}
	return true, nil
}

func (r *AuditRepository) GetByTransactionID(ctx context.Context, transactionID string) (*audit.Transaction, error) {
	tx := &audit.Transaction{}
	var status string
	err := r.db(ctx).QueryRow(ctx,
		`SELECT id, transaction_id, order_id, user_id, amount, status, processed_at
		 FROM processed_transactions WHERE transaction_id = $1`, transactionID,
	).Scan(&tx.ID, &tx.TransactionID, &tx.OrderID, &tx.UserID, &tx.Amount, &status, &tx.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get processed transaction: %w", err)
	}
	tx.Status = audit.Status(status)
	return tx, nil
}
