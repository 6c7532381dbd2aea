package service

import (
	"context"
	"fmt"

	"github.com/kyzma-platform/kyzmainvest-bot/models"
)

type accountService struct {
	uowFactory      UnitOfWorkFactory
	operatorID      int64
	startingBalance int64
}

// NewAccountService creates a new account service
func NewAccountService(uowFactory UnitOfWorkFactory, operatorID int64, startingBalance int64) AccountService {
	return &accountService{
		uowFactory:      uowFactory,
		operatorID:      operatorID,
		startingBalance: startingBalance,
	}
}

// GetOrCreateAccount retrieves an existing account or creates a new one with
// all numeric fields at zero plus the configured starting balance
func (s *accountService) GetOrCreateAccount(ctx context.Context, userID int64, displayName string) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storeError(err)
	}
	defer uow.Rollback() // No-op if already committed

	account, err := uow.AccountRepository().GetByUserID(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	if account != nil {
		return account, nil
	}

	// Primary key constraint on user_id prevents duplicate accounts
	account, err = uow.AccountRepository().Create(ctx, userID, displayName, s.startingBalance)
	if err != nil {
		return nil, storeError(err)
	}

	history := &models.BalanceHistory{
		UserID:          userID,
		BalanceBefore:   0,
		BalanceAfter:    s.startingBalance,
		ChangeAmount:    s.startingBalance,
		TransactionType: models.TransactionTypeInitial,
		TransactionMetadata: map[string]any{
			"display_name": displayName,
		},
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, storeError(err)
	}

	if err := uow.Commit(); err != nil {
		return nil, storeError(err)
	}

	return account, nil
}

// GetAccount retrieves an account, failing with ErrAccountNotFound if missing
func (s *accountService) GetAccount(ctx context.Context, userID int64) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storeError(err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByUserID(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: user %d", ErrAccountNotFound, userID)
	}
	return account, nil
}

// Top returns the scoreboard by balance, excluding the operator account
func (s *accountService) Top(ctx context.Context, limit int) ([]*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storeError(err)
	}
	defer uow.Rollback()

	accounts, err := uow.AccountRepository().GetTopByBalance(ctx, limit, s.operatorID)
	if err != nil {
		return nil, storeError(err)
	}
	return accounts, nil
}

// NegativeBalances returns accounts below zero, most negative first
func (s *accountService) NegativeBalances(ctx context.Context, limit int) ([]*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storeError(err)
	}
	defer uow.Rollback()

	accounts, err := uow.AccountRepository().GetNegativeBalances(ctx, limit, s.operatorID)
	if err != nil {
		return nil, storeError(err)
	}
	return accounts, nil
}

// Debtors returns accounts with outstanding debt, excluding the operator
func (s *accountService) Debtors(ctx context.Context) ([]*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, storeError(err)
	}
	defer uow.Rollback()

	debtors, err := uow.AccountRepository().GetDebtors(ctx, s.operatorID)
	if err != nil {
		return nil, storeError(err)
	}
	return debtors, nil
}

// GrantAll credits every account with the given amount. This mints coins, so
// conservation deliberately does not apply.
func (s *accountService) GrantAll(ctx context.Context, amount int64) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: grant amount must be positive", ErrInvalidAmount)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, storeError(err)
	}
	defer uow.Rollback()

	accounts, err := uow.AccountRepository().GetAll(ctx)
	if err != nil {
		return 0, storeError(err)
	}

	for _, account := range accounts {
		if err := uow.AccountRepository().AddBalance(ctx, account.UserID, amount); err != nil {
			return 0, storeError(err)
		}
		history := &models.BalanceHistory{
			UserID:          account.UserID,
			BalanceBefore:   account.Balance,
			BalanceAfter:    account.Balance + amount,
			ChangeAmount:    amount,
			TransactionType: models.TransactionTypeGrant,
			TransactionMetadata: map[string]any{
				"grant_amount": amount,
			},
		}
		if err := RecordBalanceChange(ctx, uow, history); err != nil {
			return 0, storeError(err)
		}
	}

	if err := uow.Commit(); err != nil {
		return 0, storeError(err)
	}

	return len(accounts), nil
}
