package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orderflow/platform/internal/domain/account"
	domainErrors "github.com/orderflow/platform/internal/domain/errors"
)

// AccountRepository implements account.Repository using PostgreSQL.
type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func (r *AccountRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

func scanAccount(row pgx.Row) (*account.Account, error) {
	a := &account.Account{}
	err := row.Scan(&a.ID, &a.UserID, &a.Balance, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrAccountNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) Create(ctx context.Context, a *account.Account) error {
	err := r.db(ctx).QueryRow(ctx,
		`INSERT INTO accounts (user_id, balance, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		a.UserID, a.Balance, a.Version, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		var pgErr interface{ SQLState() string }
		if errors.As(err, &pgErr) && pgErr.SQLState() == "23505" {
			return domainErrors.ErrAccountExists
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetByUserID(ctx context.Context, userID int64) (*account.Account, error) {
	return scanAccount(r.db(ctx).QueryRow(ctx,
		`SELECT id, user_id, balance, version, created_at, updated_at
		 FROM accounts WHERE user_id = $1`, userID))
}

// LockByUserID acquires SELECT ... FOR UPDATE and must run inside a
// transaction opened by the caller (see postgres.TxManager).
func (r *AccountRepository) LockByUserID(ctx context.Context, userID int64) (*account.Account, error) {
	return scanAccount(r.db(ctx).QueryRow(ctx,
		`SELECT id, user_id, balance, version, created_at, updated_at
		 FROM accounts WHERE user_id = $1 FOR UPDATE`, userID))
}

func (r *AccountRepository) Update(ctx context.Context, a *account.Account) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE accounts SET balance = $1, version = $2, updated_at = $3 WHERE id = $4`,
		a.Balance, a.Version, a.UpdatedAt, a.ID,
	)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrAccountNotFound
	}
	return nil
}
