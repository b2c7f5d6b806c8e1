// Package account models the Payments service's ledger entity.
package account

import (
	"context"
	"time"

	domainerrors "github.com/orderflow/platform/internal/domain/errors"
)

// Account is one user's balance. There is exactly one per user.
type Account struct {
	ID        int64
	UserID    int64
	Balance   float64
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New constructs a zero-balance account for a user.
func New(userID int64) (*Account, error) {
	if userID <= 0 {
		return nil, domainerrors.ErrInvalidUserID
	}
	now := time.Now()
	return &Account{
		UserID:    userID,
		Balance:   0,
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// TopUp credits the account. Must be called with the account row locked.
func (a *Account) TopUp(amount float64) error {
	if amount <= 0 {
		return domainerrors.ErrInvalidAmount
	}
	a.Balance += amount
	a.Version++
	a.UpdatedAt = time.Now()
	return nil
}

// Debit subtracts amount from the balance. Returns ErrInsufficientFunds
// without mutating the account if the balance would go negative; the state
// machine (internal/statemachine) treats that as a business outcome, not an
// infrastructure error.
func (a *Account) Debit(amount float64) error {
	if a.Balance < amount {
		return domainerrors.ErrInsufficientFunds
	}
	a.Balance -= amount
	a.Version++
	a.UpdatedAt = time.Now()
	return nil
}

// Repository is the persistence port for accounts, backed by C1.
type Repository interface {
	Create(ctx context.Context, a *Account) error
	GetByUserID(ctx context.Context, userID int64) (*Account, error)
	// LockByUserID acquires SELECT ... FOR UPDATE and must run inside a
	// transaction opened by the caller.
	LockByUserID(ctx context.Context, userID int64) (*Account, error)
	Update(ctx context.Context, a *Account) error
}
