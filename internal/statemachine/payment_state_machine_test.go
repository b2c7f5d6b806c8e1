package statemachine

import (
	"context"
	"testing"

	"github.com/orderflow/platform/internal/domain/account"
	"github.com/orderflow/platform/internal/domain/audit"
	domainerrors "github.com/orderflow/platform/internal/domain/errors"
	"github.com/orderflow/platform/internal/domain/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeAccountRepo struct {
	byUserID map[int64]*account.Account
	updated  []*account.Account
}

func newFakeAccountRepo(accounts ...*account.Account) *fakeAccountRepo {
	byUserID := make(map[int64]*account.Account)
	for _, a := range accounts {
		byUserID[a.UserID] = a
	}
	return &fakeAccountRepo{byUserID: byUserID}
}

func (r *fakeAccountRepo) Create(ctx context.Context, a *account.Account) error {
	r.byUserID[a.UserID] = a
	return nil
}

func (r *fakeAccountRepo) GetByUserID(ctx context.Context, userID int64) (*account.Account, error) {
	a, ok := r.byUserID[userID]
	if !ok {
		return nil, domainerrors.ErrAccountNotFound
	}
	return a, nil
}

func (r *fakeAccountRepo) LockByUserID(ctx context.Context, userID int64) (*account.Account, error) {
	return r.GetByUserID(ctx, userID)
}

func (r *fakeAccountRepo) Update(ctx context.Context, a *account.Account) error {
	r.byUserID[a.UserID] = a
	r.updated = append(r.updated, a)
	return nil
}

type fakeAuditRepo struct {
	byTransactionID map[string]*audit.Transaction
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{byTransactionID: make(map[string]*audit.Transaction)}
}

func (r *fakeAuditRepo) Insert(ctx context.Context, tx *audit.Transaction) (bool, error) {
	if _, exists := r.byTransactionID[tx.TransactionID]; exists {
		return false, nil
	}
	r.byTransactionID[tx.TransactionID] = tx
	return true, nil
}

func (r *fakeAuditRepo) GetByTransactionID(ctx context.Context, transactionID string) (*audit.Transaction, error) {
	tx, ok := r.byTransactionID[transactionID]
	if !ok {
		return nil, nil
	}
	return tx, nil
}

type fakeOutboxRepo struct {
	inserted []*outbox.Message
}

func newFakeOutboxRepo() *fakeOutboxRepo {
	return &fakeOutboxRepo{}
}

func (r *fakeOutboxRepo) Insert(ctx context.Context, m *outbox.Message) error {
	r.inserted = append(r.inserted, m)
	return nil
}

func (r *fakeOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	return r.inserted, nil
}

func (r *fakeOutboxRepo) MarkProcessed(ctx context.Context, id int64) error {
	return nil
}

// --- tests ---

func TestExecute_Success(t *testing.T) {
	acct := &account.Account{ID: 1, UserID: 7, Balance: 500}
	accounts := newFakeAccountRepo(acct)
	auditRepo := newFakeAuditRepo()
	outboxRepo := newFakeOutboxRepo()
	m := New(accounts, auditRepo, outboxRepo)

	outcome, err := m.Execute(context.Background(), Event{OrderID: 100, UserID: 7, Amount: 150, MessageID: "msg-1"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)
	assert.Equal(t, float64(350), acct.Balance)
	require.Len(t, outboxRepo.inserted, 1)
	assert.Equal(t, "payment.results", outboxRepo.inserted[0].RoutingKey)
}

func TestExecute_AccountMissing(t *testing.T) {
	accounts := newFakeAccountRepo()
	auditRepo := newFakeAuditRepo()
	outboxRepo := newFakeOutboxRepo()
	m := New(accounts, auditRepo, outboxRepo)

	outcome, err := m.Execute(context.Background(), Event{OrderID: 100, UserID: 9, Amount: 150, MessageID: "msg-2"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccountMissing, outcome)
	require.Len(t, outboxRepo.inserted, 1)
}

func TestExecute_InsufficientFunds(t *testing.T) {
	acct := &account.Account{ID: 2, UserID: 8, Balance: 10}
	accounts := newFakeAccountRepo(acct)
	auditRepo := newFakeAuditRepo()
	outboxRepo := newFakeOutboxRepo()
	m := New(accounts, auditRepo, outboxRepo)

	outcome, err := m.Execute(context.Background(), Event{OrderID: 101, UserID: 8, Amount: 150, MessageID: "msg-3"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeInsufficientFunds, outcome)
	assert.Equal(t, float64(10), acct.Balance)
}

func TestExecute_AlreadyProcessed(t *testing.T) {
	acct := &account.Account{ID: 3, UserID: 11, Balance: 500}
	accounts := newFakeAccountRepo(acct)
	auditRepo := newFakeAuditRepo()
	outboxRepo := newFakeOutboxRepo()
	m := New(accounts, auditRepo, outboxRepo)

	ev := Event{OrderID: 102, UserID: 11, Amount: 50, MessageID: "msg-4"}
	first, err := m.Execute(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, first)

	second, err := m.Execute(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyProcessed, second)
	assert.Equal(t, float64(450), acct.Balance, "balance must not be debited twice")
}
