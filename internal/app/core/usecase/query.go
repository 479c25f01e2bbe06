package usecase

import (
	"context"
	"fmt"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

const (
	// RecentTransactionsLimit 最近交易筆數
	RecentTransactionsLimit = 10
	DefaultPageSize         = 20
	MaxPageSize             = 100
)

// GetTransaction 依交易編號查詢 (只能查自己帳戶的紀錄)
func (c *CoreUseCase) GetTransaction(ctx context.Context, ownerID, transactionID string) (*domain.TransactionRecord, error) {
	record, err := c.ledger.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if _, err := c.loadOwnedAccount(ctx, ownerID, record.AccountNumber); err != nil {
		return nil, err
	}
	return record, nil
}

// ListTransactions 帳戶的全部交易，依提交順序
func (c *CoreUseCase) ListTransactions(ctx context.Context, ownerID, accountNumber string) ([]*domain.TransactionRecord, error) {
	if _, err := c.loadOwnedAccount(ctx, ownerID, accountNumber); err != nil {
		return nil, err
	}
	return c.ledger.ListTransactions(ctx, accountNumber)
}

// GetRecentTransactions 最近 10 筆交易，新的在前
//
// 快取鍵包含帳戶版本：帳戶每次提交都會換版本，
// 所以讀到的快取不會比呼叫當下看到的帳戶狀態舊。
func (c *CoreUseCase) GetRecentTransactions(ctx context.Context, ownerID, accountNumber string) ([]*domain.TransactionRecord, error) {
	account, err := c.loadOwnedAccount(ctx, ownerID, accountNumber)
	if err != nil {
		return nil, err
	}
	if c.cache == nil {
		return c.ledger.RecentTransactions(ctx, accountNumber, RecentTransactionsLimit)
	}

	key := recentCacheKey(account)
	if records, ok := c.cache.Get(ctx, key); ok {
		return records, nil
	}
	v, err, _ := c.recentGroup.Do(key, func() (any, error) {
		records, err := c.ledger.RecentTransactions(ctx, accountNumber, RecentTransactionsLimit)
		if err != nil {
			return nil, err
		}
		c.cache.Set(ctx, key, records)
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*domain.TransactionRecord), nil
}

func recentCacheKey(account *domain.Account) string {
	return fmt.Sprintf("recent:%s:%d", account.AccountNumber, account.Version)
}

// SearchTransactions 在客戶名下所有帳戶中搜尋，Timestamp DESC
func (c *CoreUseCase) SearchTransactions(ctx context.Context, ownerID string, criteria domain.SearchCriteria) ([]*domain.TransactionRecord, error) {
	criteria = criteria.Normalize()
	if criteria.MatchesNothing() {
		return []*domain.TransactionRecord{}, nil
	}
	records, _, err := c.ledger.SearchTransactions(ctx, domain.SearchQuery{OwnerID: ownerID, Criteria: criteria})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// SearchTransactionsPage 分頁版本 (page 從 0 開始)
func (c *CoreUseCase) SearchTransactionsPage(ctx context.Context, ownerID string, criteria domain.SearchCriteria, page, size int) (*domain.Page, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	criteria = criteria.Normalize()
	if criteria.MatchesNothing() {
		return domain.NewPage(nil, page, size, 0), nil
	}
	records, total, err := c.ledger.SearchTransactions(ctx, domain.SearchQuery{
		OwnerID:  ownerID,
		Criteria: criteria,
		Offset:   page * size,
		Limit:    size,
	})
	if err != nil {
		return nil, err
	}
	return domain.NewPage(records, page, size, total), nil
}
