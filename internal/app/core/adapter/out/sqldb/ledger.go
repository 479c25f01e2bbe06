package sqldb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

// SQLLedger 以關聯式資料庫 (MySQL / PostgreSQL) 實作 usecase.Ledger
//
// Commit 在單一資料庫交易內完成：依帳號遞增順序 SELECT ... FOR UPDATE，
// 比對版本後更新餘額，再寫入所有交易紀錄。任何一步失敗整筆 Rollback。
type SQLLedger struct {
	db *gorm.DB
}

// NewSQLLedger 建立 SQL 儲存層
//
// db 需以 TranslateError 開啟，唯一鍵衝突才會轉成 gorm.ErrDuplicatedKey。
func NewSQLLedger(db *gorm.DB) *SQLLedger {
	return &SQLLedger{db: db}
}

// AutoMigrate 建立或更新資料表
func (l *SQLLedger) AutoMigrate(ctx context.Context) error {
	if err := l.db.WithContext(ctx).AutoMigrate(&accountModel{}, &transactionModel{}); err != nil {
		return storageError("migrate", err)
	}
	return nil
}

func storageError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrStorageFailure, op, err)
}

// GetAccount 取得帳戶
func (l *SQLLedger) GetAccount(ctx context.Context, accountNumber string) (*domain.Account, error) {
	var m accountModel
	err := l.db.WithContext(ctx).Where("account_number = ?", accountNumber).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, accountNumber)
	}
	if err != nil {
		return nil, storageError("get account", err)
	}
	return m.toDomain(), nil
}

// AccountExists 配號時的存在檢查
func (l *SQLLedger) AccountExists(ctx context.Context, accountNumber string) (bool, error) {
	var count int64
	if err := l.db.WithContext(ctx).Model(&accountModel{}).Where("account_number = ?", accountNumber).Count(&count).Error; err != nil {
		return false, storageError("account exists", err)
	}
	return count > 0, nil
}

// ListAccountsByOwner 客戶名下帳戶，依帳號排序
func (l *SQLLedger) ListAccountsByOwner(ctx context.Context, ownerID string) ([]*domain.Account, error) {
	var rows []accountModel
	if err := l.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("account_number").Find(&rows).Error; err != nil {
		return nil, storageError("list accounts", err)
	}
	accounts := make([]*domain.Account, len(rows))
	for i := range rows {
		accounts[i] = rows[i].toDomain()
	}
	return accounts, nil
}

// CreateAccount 建立帳戶，主鍵衝突回傳 domain.ErrDuplicateAccountNumber
func (l *SQLLedger) CreateAccount(ctx context.Context, account *domain.Account) error {
	m := toAccountModel(account)
	m.Version = 1
	err := l.db.WithContext(ctx).Create(m).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateAccountNumber, account.AccountNumber)
	}
	if err != nil {
		return storageError("create account", err)
	}
	account.Version = 1
	return nil
}

// CompareAndSwap UPDATE ... WHERE version = expectedVersion
func (l *SQLLedger) CompareAndSwap(ctx context.Context, accountNumber string, expectedVersion int64, next *domain.Account) error {
	now := time.Now().UTC().Truncate(time.Microsecond)
	result := l.db.WithContext(ctx).Model(&accountModel{}).
		Where("account_number = ? AND version = ?", accountNumber, expectedVersion).
		Updates(map[string]any{
			"balance":          next.Balance,
			"status":           string(next.Status),
			"withdrawal_limit": next.WithdrawalLimit,
			"transfer_limit":   next.TransferLimit,
			"minimum_balance":  next.MinimumBalance,
			"updated_at":       now,
			"version":          expectedVersion + 1,
		})
	if result.Error != nil {
		return storageError("compare and swap", result.Error)
	}
	if result.RowsAffected == 0 {
		current, err := l.GetAccount(ctx, accountNumber)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: %s expected version %d, got %d", domain.ErrVersionConflict, accountNumber, expectedVersion, current.Version)
	}
	next.Version = expectedVersion + 1
	next.UpdatedAt = now
	return nil
}

// Commit 原子提交餘額變動與交易紀錄
func (l *SQLLedger) Commit(ctx context.Context, commit *domain.Commit) error {
	now := time.Now().UTC().Truncate(time.Microsecond)
	rows := make([]transactionModel, len(commit.Records))
	for i, record := range commit.Records {
		rows[i] = toTransactionModel(record)
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 鎖定順序固定為帳號遞增，交叉轉帳不會死結
		for _, update := range commit.SortedUpdates() {
			var current accountModel
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("account_number = ?", update.AccountNumber).
				Take(&current).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, update.AccountNumber)
			}
			if err != nil {
				return storageError("lock account", err)
			}
			if current.Version != update.ExpectedVersion {
				return fmt.Errorf("%w: %s expected version %d, got %d",
					domain.ErrVersionConflict, update.AccountNumber, update.ExpectedVersion, current.Version)
			}

			result := tx.Model(&accountModel{}).
				Where("account_number = ? AND version = ?", update.AccountNumber, update.ExpectedVersion).
				Updates(map[string]any{
					"balance":    update.Balance,
					"updated_at": now,
					"version":    update.ExpectedVersion + 1,
				})
			if result.Error != nil {
				return storageError("update balance", result.Error)
			}
			if result.RowsAffected != 1 {
				return fmt.Errorf("%w: %s", domain.ErrVersionConflict, update.AccountNumber)
			}
		}

		if len(rows) == 0 {
			return nil
		}
		err := tx.Create(&rows).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateTransactionID, rows[0].TransactionID)
		}
		if err != nil {
			return storageError("insert transactions", err)
		}
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return err
		}
		return storageError("commit", err)
	}

	for i, record := range commit.Records {
		record.Sequence = rows[i].Seq
	}
	return nil
}

func isDomainError(err error) bool {
	for _, target := range []error{
		domain.ErrAccountNotFound,
		domain.ErrVersionConflict,
		domain.ErrDuplicateTransactionID,
		domain.ErrStorageFailure,
		context.Canceled,
		context.DeadlineExceeded,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// GetTransaction 依交易編號查詢
func (l *SQLLedger) GetTransaction(ctx context.Context, transactionID string) (*domain.TransactionRecord, error) {
	var m transactionModel
	err := l.db.WithContext(ctx).Where("transaction_id = ?", transactionID).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrTransactionNotFound, transactionID)
	}
	if err != nil {
		return nil, storageError("get transaction", err)
	}
	return m.toDomain(), nil
}

// TransactionExists 配號時的存在檢查
func (l *SQLLedger) TransactionExists(ctx context.Context, transactionID string) (bool, error) {
	var count int64
	if err := l.db.WithContext(ctx).Model(&transactionModel{}).Where("transaction_id = ?", transactionID).Count(&count).Error; err != nil {
		return false, storageError("transaction exists", err)
	}
	return count > 0, nil
}

// ListTransactions 依 seq 遞增
func (l *SQLLedger) ListTransactions(ctx context.Context, accountNumber string) ([]*domain.TransactionRecord, error) {
	var rows []transactionModel
	if err := l.db.WithContext(ctx).Where("account_number = ?", accountNumber).Order("seq").Find(&rows).Error; err != nil {
		return nil, storageError("list transactions", err)
	}
	return toRecords(rows), nil
}

// RecentTransactions 最新的 limit 筆
func (l *SQLLedger) RecentTransactions(ctx context.Context, accountNumber string, limit int) ([]*domain.TransactionRecord, error) {
	var rows []transactionModel
	err := l.db.WithContext(ctx).
		Where("account_number = ?", accountNumber).
		Order("created_at DESC, seq DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, storageError("recent transactions", err)
	}
	return toRecords(rows), nil
}

// SearchTransactions 篩選在資料庫執行，語意與 domain.SearchCriteria.Matches 相同
func (l *SQLLedger) SearchTransactions(ctx context.Context, query domain.SearchQuery) ([]*domain.TransactionRecord, int64, error) {
	scope := searchScope(query)

	var total int64
	if err := l.db.WithContext(ctx).Model(&transactionModel{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, storageError("count transactions", err)
	}
	if total == 0 {
		return []*domain.TransactionRecord{}, 0, nil
	}

	q := l.db.WithContext(ctx).Scopes(scope).
		Order("transactions.created_at DESC, transactions.seq DESC").
		Offset(query.Offset)
	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}
	var rows []transactionModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, storageError("search transactions", err)
	}
	return toRecords(rows), total, nil
}

func searchScope(query domain.SearchQuery) func(*gorm.DB) *gorm.DB {
	c := query.Criteria
	return func(db *gorm.DB) *gorm.DB {
		db = db.Joins("JOIN accounts ON accounts.account_number = transactions.account_number").
			Where("accounts.owner_id = ?", query.OwnerID)
		if c.AccountNumber != "" {
			db = db.Where("transactions.account_number = ?", c.AccountNumber)
		}
		if c.Type != "" {
			db = db.Where("transactions.type = ?", c.Type)
		}
		if c.From != nil {
			db = db.Where("transactions.created_at >= ?", c.From.UTC())
		}
		if c.To != nil {
			db = db.Where("transactions.created_at <= ?", c.To.UTC())
		}
		if c.MinAmount != nil {
			db = db.Where("transactions.amount >= ?", *c.MinAmount)
		}
		if c.MaxAmount != nil {
			db = db.Where("transactions.amount <= ?", *c.MaxAmount)
		}
		return db
	}
}

var _ usecase.Ledger = (*SQLLedger)(nil)
