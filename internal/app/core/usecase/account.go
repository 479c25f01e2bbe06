package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// OpenAccount 為客戶開立新帳戶
//
// 參數:
//
//	ctx: 上下文
//	ownerID: 客戶 ID
//	accountType: "savings" 或 "checking"
//
// 回傳:
//
//	*domain.Account: 新帳戶 (Version = 1)
//	error: ErrInvalidAccountType / ErrAllocationExhausted / ErrStorageFailure
func (c *CoreUseCase) OpenAccount(ctx context.Context, ownerID, accountType string) (*domain.Account, error) {
	t, err := domain.ParseAccountType(accountType)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, accountType)
	}

	for i := 0; i < c.allocator.MaxAttempts(); i++ {
		number, err := c.allocator.NewAccountNumber(ctx)
		if err != nil {
			return nil, err
		}
		account := domain.NewAccount(number, ownerID, t, c.now())
		err = c.ledger.CreateAccount(ctx, account)
		if errors.Is(err, domain.ErrDuplicateAccountNumber) {
			// 與其他並發開戶撞號，重新配號
			continue
		}
		if err != nil {
			return nil, err
		}
		c.logger.Info("account opened", "account", number, "owner", ownerID, "type", t)
		c.publish(ctx, domain.NewAccountOpenedEvent(account))
		return account, nil
	}
	return nil, fmt.Errorf("%w: account number", domain.ErrAllocationExhausted)
}

// GetAccountDetails 取得自己名下的帳戶
func (c *CoreUseCase) GetAccountDetails(ctx context.Context, ownerID, accountNumber string) (*domain.Account, error) {
	return c.loadOwnedAccount(ctx, ownerID, accountNumber)
}

// ListAccounts 客戶名下所有帳戶
func (c *CoreUseCase) ListAccounts(ctx context.Context, ownerID string) ([]*domain.Account, error) {
	return c.ledger.ListAccountsByOwner(ctx, ownerID)
}
