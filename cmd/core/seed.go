package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/internal/config"
)

// seedAccounts 建立示範帳戶，已存在的帳號直接略過 (重啟不會重複灌資料)
func seedAccounts(ctx context.Context, accounts usecase.AccountStore, seeds []config.SeedAccount, log *slog.Logger) error {
	now := time.Now().UTC().Truncate(time.Microsecond)
	created := 0
	for _, seed := range seeds {
		account, err := seedAccount(seed, now)
		if err != nil {
			return err
		}
		err = accounts.CreateAccount(ctx, account)
		switch {
		case err == nil:
			created++
		case errors.Is(err, domain.ErrDuplicateAccountNumber):
			log.Debug("seed account exists", "account", seed.AccountNumber)
		default:
			return fmt.Errorf("seed account %s: %w", seed.AccountNumber, err)
		}
	}
	log.Info("seed accounts ready", "created", created, "total", len(seeds))
	return nil
}

func seedAccount(seed config.SeedAccount, now time.Time) (*domain.Account, error) {
	if !domain.IsValidAccountNumber(seed.AccountNumber) {
		return nil, fmt.Errorf("seed account %q: account number must be %d digits", seed.AccountNumber, domain.AccountNumberLength)
	}
	accountType, err := domain.ParseAccountType(seed.AccountType)
	if err != nil {
		return nil, fmt.Errorf("seed account %s: %w", seed.AccountNumber, err)
	}
	account := domain.NewAccount(seed.AccountNumber, seed.OwnerID, accountType, now)
	if seed.Balance != "" {
		balance, err := domain.ParseAmount(seed.Balance)
		if err == nil && balance.IsNegative() {
			err = domain.ErrInvalidAmount
		}
		if err != nil {
			return nil, fmt.Errorf("seed account %s balance: %w", seed.AccountNumber, err)
		}
		account.Balance = balance
	}
	return account, nil
}
