package app

import (
	"context"
	"fmt"

	"github.com/scholarbridge/request-service/internal/domain"
)

// GetBalance returns the caller's account, creating it with the default balance on first use.
func (s *Service) GetBalance(ctx context.Context, owner domain.UserRef) (*domain.CoinAccount, error) {
	account, err := s.repo.GetOrCreateCoinAccount(ctx, owner, s.defaultCoinBalance)
	if err != nil {
		return nil, fmt.Errorf("failed to load coin account: %w", err)
	}
	return account, nil
}

// Deduct removes amount coins. It fails with store.ErrInsufficientFunds and leaves the
// balance untouched when the account cannot cover it.
func (s *Service) Deduct(ctx context.Context, owner domain.UserRef, amount int64, reason string) (*domain.CoinAccount, error) {
	if !validCoinAmount(amount) {
		return nil, ErrInvalidAmount
	}
	if reason == "" {
		reason = domain.CoinReasonManualDeduct
	}
	return s.repo.DebitCoins(ctx, domain.CoinMutation{
		Owner:          owner,
		Amount:         amount,
		Reason:         reason,
		DefaultBalance: s.defaultCoinBalance,
	})
}

// Add credits amount coins.
func (s *Service) Add(ctx context.Context, owner domain.UserRef, amount int64, reason string) (*domain.CoinAccount, error) {
	if !validCoinAmount(amount) {
		return nil, ErrInvalidAmount
	}
	if reason == "" {
		reason = domain.CoinReasonManualAdd
	}
	return s.repo.CreditCoins(ctx, domain.CoinMutation{
		Owner:          owner,
		Amount:         amount,
		Reason:         reason,
		DefaultBalance: s.defaultCoinBalance,
	})
}

// CheckSufficient reports whether the balance covers required.
func (s *Service) CheckSufficient(ctx context.Context, owner domain.UserRef, required int64) (bool, error) {
	account, err := s.GetBalance(ctx, owner)
	if err != nil {
		return false, err
	}
	return account.Balance >= required, nil
}

// History lists ledger entries, newest first.
func (s *Service) History(ctx context.Context, owner domain.UserRef, limit, offset int) ([]domain.CoinLedgerEntry, error) {
	return s.repo.ListCoinLedgerEntries(ctx, owner, limit, offset)
}

func validCoinAmount(amount int64) bool {
	return amount > 0 && amount <= MaxCoinAmount
}
