package usecase

import (
	"context"
	"time"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// AccountStore 帳戶儲存介面
//
// 所有實作都必須保證 CompareAndSwap 與 CreateAccount 的原子性，
// I/O 錯誤一律包成 domain.ErrStorageFailure。
type AccountStore interface {
	// GetAccount 取得帳戶複本，不存在回傳 domain.ErrAccountNotFound
	GetAccount(ctx context.Context, accountNumber string) (*domain.Account, error)
	// CreateAccount 建立帳戶 (Version 從 1 開始)，帳號重複回傳 domain.ErrDuplicateAccountNumber
	CreateAccount(ctx context.Context, account *domain.Account) error
	// CompareAndSwap 只有在版本相符時才覆寫帳戶，成功後版本為 expectedVersion+1
	CompareAndSwap(ctx context.Context, accountNumber string, expectedVersion int64, next *domain.Account) error
	// AccountExists 配號時的存在檢查
	AccountExists(ctx context.Context, accountNumber string) (bool, error)
	// ListAccountsByOwner 依帳號排序
	ListAccountsByOwner(ctx context.Context, ownerID string) ([]*domain.Account, error)
}

// Journal 交易紀錄介面 (只能透過 Ledger.Commit 新增)
type Journal interface {
	// GetTransaction 不存在回傳 domain.ErrTransactionNotFound
	GetTransaction(ctx context.Context, transactionID string) (*domain.TransactionRecord, error)
	TransactionExists(ctx context.Context, transactionID string) (bool, error)
	// ListTransactions 依提交順序 (Sequence ASC)
	ListTransactions(ctx context.Context, accountNumber string) ([]*domain.TransactionRecord, error)
	// RecentTransactions 依 Timestamp DESC, Sequence DESC 取前 limit 筆
	RecentTransactions(ctx context.Context, accountNumber string, limit int) ([]*domain.TransactionRecord, error)
	// SearchTransactions 回傳符合條件的紀錄 (已套用 Offset/Limit) 與總筆數
	SearchTransactions(ctx context.Context, query domain.SearchQuery) ([]*domain.TransactionRecord, int64, error)
}

// Ledger 是帳務系統的儲存介面
type Ledger interface {
	AccountStore
	Journal
	// Commit 原子性地套用所有餘額 CAS 並寫入所有交易紀錄
	//
	// 版本不符回傳 domain.ErrVersionConflict，交易編號重複回傳 domain.ErrDuplicateTransactionID，
	// 任何錯誤都不會留下部分結果。成功後 Records 的 Sequence 會被填入。
	Commit(ctx context.Context, commit *domain.Commit) error
}

// RecentCache 最近交易的讀取快取 (可選)
type RecentCache interface {
	Get(ctx context.Context, key string) ([]*domain.TransactionRecord, bool)
	Set(ctx context.Context, key string, records []*domain.TransactionRecord)
}

// EventPublisher 事件發佈 (可選，失敗只記 log)
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// Clock 方便測試時固定時間
type Clock func() time.Time
