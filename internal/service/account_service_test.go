package service

import (
	"context"
	"testing"

	"github.com/orderflow/platform/internal/domain/account"
	domainErrors "github.com/orderflow/platform/internal/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTxManager struct{}

func (fakeTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeAccountRepo struct {
	byUserID map[int64]*account.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{byUserID: make(map[int64]*account.Account)}
}

func (r *fakeAccountRepo) Create(ctx context.Context, a *account.Account) error {
	if _, exists := r.byUserID[a.UserID]; exists {
		return domainErrors.ErrAccountExists
	}
	a.ID = int64(len(r.byUserID) + 1)
	r.byUserID[a.UserID] = a
	return nil
}

func (r *fakeAccountRepo) GetByUserID(ctx context.Context, userID int64) (*account.Account, error) {
	a, ok := r.byUserID[userID]
	if !ok {
		return nil, domainErrors.ErrAccountNotFound
	}
	return a, nil
}

func (r *fakeAccountRepo) LockByUserID(ctx context.Context, userID int64) (*account.Account, error) {
	return r.GetByUserID(ctx, userID)
}

func (r *fakeAccountRepo) Update(ctx context.Context, a *account.Account) error {
	r.byUserID[a.UserID] = a
	return nil
}

func TestCreateAccount_Success(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := NewAccountService(repo, fakeTxManager{})

	acct, err := svc.CreateAccount(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), acct.UserID)
	assert.Equal(t, float64(0), acct.Balance)
}

func TestCreateAccount_Duplicate(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := NewAccountService(repo, fakeTxManager{})

	_, err := svc.CreateAccount(context.Background(), 7)
	require.NoError(t, err)

	_, err = svc.CreateAccount(context.Background(), 7)
	assert.ErrorIs(t, err, domainErrors.ErrAccountExists)
}

func TestTopUp_CreditsBalance(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := NewAccountService(repo, fakeTxManager{})
	_, err := svc.CreateAccount(context.Background(), 7)
	require.NoError(t, err)

	acct, err := svc.TopUp(context.Background(), 7, 100)
	require.NoError(t, err)
	assert.Equal(t, float64(100), acct.Balance)
}

func TestTopUp_AccountMissing(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := NewAccountService(repo, fakeTxManager{})

	_, err := svc.TopUp(context.Background(), 99, 100)
	assert.ErrorIs(t, err, domainErrors.ErrAccountNotFound)
}
