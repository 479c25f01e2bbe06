package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// Deposit 存款
//
// 參數:
//
//	ctx: 上下文
//	ownerID: 已驗證的客戶 ID
//	accountNumber: 帳號
//	amount: 金額 (> 0)
//
// 回傳:
//
//	*domain.TransactionRecord: Deposit 紀錄
//	error: ErrAccountNotFound / ErrForbidden / ErrInvalidAmount / ErrContention / ErrStorageFailure
func (c *CoreUseCase) Deposit(ctx context.Context, ownerID, accountNumber string, amount decimal.Decimal) (*domain.TransactionRecord, error) {
	commit, err := c.withRetry(ctx, "deposit", func() (*domain.Commit, error) {
		account, err := c.loadOwnedAccount(ctx, ownerID, accountNumber)
		if err != nil {
			return nil, err
		}
		if err := domain.ValidateAmount(amount); err != nil {
			return nil, err
		}
		newBalance := account.Balance.Add(amount)
		record, err := c.newRecord(ctx, account.AccountNumber, domain.TransactionTypeDeposit, amount, newBalance, "")
		if err != nil {
			return nil, err
		}
		return c.commit(ctx, []domain.BalanceUpdate{updateOf(account, newBalance)}, record)
	})
	if err != nil {
		return nil, err
	}
	c.afterCommit(ctx, commit)
	return commit.Records[0], nil
}

// Withdraw 提款：先檢查單筆提款上限，再檢查餘額
func (c *CoreUseCase) Withdraw(ctx context.Context, ownerID, accountNumber string, amount decimal.Decimal) (*domain.TransactionRecord, error) {
	commit, err := c.withRetry(ctx, "withdraw", func() (*domain.Commit, error) {
		account, err := c.loadOwnedAccount(ctx, ownerID, accountNumber)
		if err != nil {
			return nil, err
		}
		if err := domain.ValidateAmount(amount); err != nil {
			return nil, err
		}
		if err := account.CheckDebit(amount, account.WithdrawalLimit); err != nil {
			return nil, err
		}
		newBalance := account.Balance.Sub(amount)
		record, err := c.newRecord(ctx, account.AccountNumber, domain.TransactionTypeWithdrawal, amount, newBalance, "")
		if err != nil {
			return nil, err
		}
		return c.commit(ctx, []domain.BalanceUpdate{updateOf(account, newBalance)}, record)
	})
	if err != nil {
		return nil, err
	}
	c.afterCommit(ctx, commit)
	return commit.Records[0], nil
}

// Transfer 轉帳
//
// 扣款、入帳與兩筆交易紀錄 (Transfer / Transfer Received) 在同一個 Commit 內完成。
// 目的帳戶不檢查擁有者。回傳來源帳戶的 Transfer 紀錄。
func (c *CoreUseCase) Transfer(ctx context.Context, ownerID, sourceAccountNumber, destinationAccountNumber string, amount decimal.Decimal) (*domain.TransactionRecord, error) {
	commit, err := c.withRetry(ctx, "transfer", func() (*domain.Commit, error) {
		source, err := c.loadOwnedAccount(ctx, ownerID, sourceAccountNumber)
		if err != nil {
			return nil, err
		}
		destination, err := c.ledger.GetAccount(ctx, destinationAccountNumber)
		if err != nil {
			return nil, err
		}
		if source.AccountNumber == destination.AccountNumber {
			return nil, domain.ErrSameAccountTransfer
		}
		if err := domain.ValidateAmount(amount); err != nil {
			return nil, err
		}
		if err := source.CheckDebit(amount, source.TransferLimit); err != nil {
			return nil, err
		}

		sourceBalance := source.Balance.Sub(amount)
		destinationBalance := destination.Balance.Add(amount)
		sent, err := c.newRecord(ctx, source.AccountNumber, domain.TransactionTypeTransfer, amount, sourceBalance, destination.AccountNumber)
		if err != nil {
			return nil, err
		}
		received, err := c.newRecord(ctx, destination.AccountNumber, domain.TransactionTypeTransferReceived, amount, destinationBalance, source.AccountNumber)
		if err != nil {
			return nil, err
		}
		return c.commit(ctx, []domain.BalanceUpdate{
			updateOf(source, sourceBalance),
			updateOf(destination, destinationBalance),
		}, sent, received)
	})
	if err != nil {
		return nil, err
	}
	c.afterCommit(ctx, commit)
	return commit.Records[0], nil
}

func (c *CoreUseCase) commit(ctx context.Context, updates []domain.BalanceUpdate, records ...*domain.TransactionRecord) (*domain.Commit, error) {
	commit := &domain.Commit{Updates: updates, Records: records}
	if err := c.ledger.Commit(ctx, commit); err != nil {
		return nil, err
	}
	return commit, nil
}

func (c *CoreUseCase) newRecord(
	ctx context.Context,
	accountNumber string,
	txType domain.TransactionType,
	amount, balanceAfter decimal.Decimal,
	counterparty string,
) (*domain.TransactionRecord, error) {
	id, err := c.allocator.NewTransactionID(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate transaction id: %w", err)
	}
	return &domain.TransactionRecord{
		TransactionID:             id,
		AccountNumber:             accountNumber,
		Type:                      txType,
		Amount:                    amount,
		BalanceAfter:              balanceAfter,
		Timestamp:                 c.now(),
		Status:                    domain.TransactionStatusCompleted,
		CounterpartyAccountNumber: counterparty,
	}, nil
}

func updateOf(account *domain.Account, balance decimal.Decimal) domain.BalanceUpdate {
	return domain.BalanceUpdate{
		AccountNumber:   account.AccountNumber,
		ExpectedVersion: account.Version,
		Balance:         balance,
	}
}
