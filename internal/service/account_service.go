// Package service holds the request-facing orchestration layer: thin
// wrappers around the domain and repository layers that controllers call
// directly, translating HTTP-shaped requests into domain operations.
package service

import (
	"context"

	"github.com/orderflow/platform/internal/domain/account"
)

// AccountService handles account-related business logic for Payments.
type AccountService struct {
	accountRepo account.Repository
	txManager   TransactionManager
}

func NewAccountService(accountRepo account.Repository, txManager TransactionManager) *AccountService {
	return &AccountService{accountRepo: accountRepo, txManager: txManager}
}

// CreateAccount opens a new zero-balance account for userID. Returns
// domainErrors.ErrAccountExists if one already exists.
func (s *AccountService) CreateAccount(ctx context.Context, userID int64) (*account.Account, error) {
	acct, err := account.New(userID)
	if err != nil {
		return nil, err
	}
	if err := s.accountRepo.Create(ctx, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// GetAccount retrieves an account by its owning user id.
func (s *AccountService) GetAccount(ctx context.Context, userID int64) (*account.Account, error) {
	return s.accountRepo.GetByUserID(ctx, userID)
}

// TopUp credits amount onto userID's account, acquiring the row lock for
// the duration of the update.
func (s *AccountService) TopUp(ctx context.Context, userID int64, amount float64) (*account.Account, error) {
	var acct *account.Account
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		acct, err = s.accountRepo.LockByUserID(txCtx, userID)
		if err != nil {
			return err
		}
		if err := acct.TopUp(amount); err != nil {
			return err
		}
		return s.accountRepo.Update(txCtx, acct)
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}
