// Package statemachine implements the Payment State Machine (C3): for each
// order_created event consumed from the inbox, it attempts to debit the
// paying user's account and produces one of three outcomes (account
// missing, insufficient funds, success), which it then writes back onto
// the outbox as a payment.results event for Orders to consume.
package statemachine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/orderflow/platform/internal/domain/account"
	"github.com/orderflow/platform/internal/domain/audit"
	domainerrors "github.com/orderflow/platform/internal/domain/errors"
	"github.com/orderflow/platform/internal/domain/outbox"
	"github.com/orderflow/platform/internal/events"
	"github.com/orderflow/platform/internal/idgen"
)

// Outcome is the result of attempting to execute one order_created event.
type Outcome string

const (
	OutcomeSuccess           Outcome = "SUCCESS"
	OutcomeAccountMissing    Outcome = "ACCOUNT_MISSING"
	OutcomeInsufficientFunds Outcome = "INSUFFICIENT_FUNDS"
	OutcomeAlreadyProcessed  Outcome = "ALREADY_PROCESSED"
)

// Event is the order_created fact the inbox consumer hands to the state
// machine, after deriving MessageID from the wire payload's order id and
// timestamp (see internal/idgen).
type Event struct {
	OrderID   int64
	UserID    int64
	Amount    float64
	MessageID string
}

// Machine executes the payment state machine inside the Payments service's
// own transaction: locking the account row, applying the outcome, and
// appending the corresponding outbox row all commit or roll back together.
type Machine struct {
	accounts account.Repository
	audit    audit.Repository
	outbox   outbox.Repository
}

func New(accounts account.Repository, audit audit.Repository, outboxRepo outbox.Repository) *Machine {
	return &Machine{accounts: accounts, audit: audit, outbox: outboxRepo}
}

// Execute must be called with ctx carrying an open transaction (see
// postgres.TxManager.WithTransaction): it locks the account, decides the
// outcome, and writes both the audit row and the outbox reply in the same
// unit of work as the caller's inbox row insert/mark.
func (m *Machine) Execute(ctx context.Context, ev Event) (Outcome, error) {
	transactionID := idgen.TransactionID(ev.OrderID, ev.MessageID)

	if existing, err := m.audit.GetByTransactionID(ctx, transactionID); err != nil {
		return "", fmt.Errorf("check processed transaction: %w", err)
	} else if existing != nil {
		return OutcomeAlreadyProcessed, nil
	}

	acct, err := m.accounts.LockByUserID(ctx, ev.UserID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrAccountNotFound) {
			return m.record(ctx, ev, transactionID, OutcomeAccountMissing, nil)
		}
		return "", fmt.Errorf("lock account: %w", err)
	}

	if err := acct.Debit(ev.Amount); err != nil {
		if errors.Is(err, domainerrors.ErrInsufficientFunds) {
			return m.record(ctx, ev, transactionID, OutcomeInsufficientFunds, nil)
		}
		return "", fmt.Errorf("debit account: %w", err)
	}

	if err := m.accounts.Update(ctx, acct); err != nil {
		return "", fmt.Errorf("update account: %w", err)
	}

	return m.record(ctx, ev, transactionID, OutcomeSuccess, acct)
}

// record inserts the ProcessedTransaction row and appends the payment_result
// reply to the outbox, both in the caller's transaction. acct is non-nil
// only on OutcomeSuccess, to populate remaining_balance.
func (m *Machine) record(ctx context.Context, ev Event, transactionID string, outcome Outcome, acct *account.Account) (Outcome, error) {
	status := audit.StatusFailed
	if outcome == OutcomeSuccess {
		status = audit.StatusSuccess
	}

	tx := audit.New(transactionID, ev.OrderID, ev.UserID, ev.Amount, status)
	if ok, err := m.audit.Insert(ctx, tx); err != nil {
		return "", fmt.Errorf("insert processed transaction: %w", err)
	} else if !ok {
		return OutcomeAlreadyProcessed, nil
	}

	result := events.PaymentResult{
		TransactionID: transactionID,
		OrderID:       ev.OrderID,
		UserID:        ev.UserID,
		Success:       outcome == OutcomeSuccess,
		Message:       outcomeMessage(outcome),
	}
	if acct != nil {
		result.RemainingBalance = &acct.Balance
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("marshal payment result: %w", err)
	}

	msg := outbox.New("payment_result", "payment.results", payload)
	if err := m.outbox.Insert(ctx, msg); err != nil {
		return "", fmt.Errorf("insert outbox message: %w", err)
	}

	return outcome, nil
}

func outcomeMessage(outcome Outcome) string {
	switch outcome {
	case OutcomeSuccess:
		return "Payment processed"
	case OutcomeAccountMissing:
		return "Account not found"
	case OutcomeInsufficientFunds:
		return "Insufficient funds"
	default:
		return string(outcome)
	}
}
