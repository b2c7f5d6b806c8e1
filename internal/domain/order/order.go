// Package order models the Orders service's single domain entity.
package order

import (
	"context"
	"time"

	domainerrors "github.com/orderflow/platform/internal/domain/errors"
)

// Status is the tagged sum type an Order's lifecycle is restricted to.
type Status string

const (
	StatusNew       Status = "NEW"
	StatusFinished  Status = "FINISHED"
	StatusCancelled Status = "CANCELLED"
)

// Order is one user's purchase request, tracked through to payment outcome.
type Order struct {
	ID          int64
	UserID      int64
	Amount      float64
	Description string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// New constructs an Order in status NEW. Callers are expected to have already
// validated UserID/Amount at the HTTP boundary; New re-checks the invariants
// that must hold regardless of caller.
func New(userID int64, amount float64, description string) (*Order, error) {
	if userID <= 0 {
		return nil, domainerrors.ErrInvalidUserID
	}
	if amount <= 0 {
		return nil, domainerrors.ErrInvalidAmount
	}
	now := time.Now()
	return &Order{
		UserID:      userID,
		Amount:      amount,
		Description: description,
		Status:      StatusNew,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// IsTerminal reports whether no further status transition is permitted.
func (o *Order) IsTerminal() bool {
	return o.Status == StatusFinished || o.Status == StatusCancelled
}

// Finish transitions NEW -> FINISHED. Terminal orders are left untouched;
// callers check the returned bool to decide whether to persist the change.
func (o *Order) Finish() bool {
	if o.Status != StatusNew {
		return false
	}
	o.Status = StatusFinished
	o.UpdatedAt = time.Now()
	return true
}

// Cancel transitions NEW -> CANCELLED. Same terminal-state guard as Finish.
func (o *Order) Cancel() bool {
	if o.Status != StatusNew {
		return false
	}
	o.Status = StatusCancelled
	o.UpdatedAt = time.Now()
	return true
}

// Repository is the persistence port for orders, backed by C1.
type Repository interface {
	// Create inserts the order, assigning o.ID. Callers append the
	// announcing OutboxMessage separately, inside the same transaction.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	GetByIDForUser(ctx context.Context, id, userID int64) (*Order, error)
	ListByUser(ctx context.Context, userID int64) ([]*Order, error)
	// UpdateStatus applies a terminal transition found by the inbox consumer.
	// It reports (updated bool) so the caller can ack-and-drop on a no-op.
	UpdateStatus(ctx context.Context, id int64, newStatus Status) (bool, error)
}
