package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType 交易類型 (字串值與對外 API 一致，比對時區分大小寫)
type TransactionType string

const (
	// 存款
	TransactionTypeDeposit TransactionType = "Deposit"
	// 提款
	TransactionTypeWithdrawal TransactionType = "Withdrawal"
	// 轉出
	TransactionTypeTransfer TransactionType = "Transfer"
	// 轉入
	TransactionTypeTransferReceived TransactionType = "Transfer Received"
)

// ParseTransactionType 只接受四種標準字串
func ParseTransactionType(s string) (TransactionType, bool) {
	switch t := TransactionType(s); t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeTransfer, TransactionTypeTransferReceived:
		return t, true
	}
	return "", false
}

// TransactionStatus 交易狀態
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "Completed"
	// Pending / Failed 保留給之後的重試流程
	TransactionStatusPending TransactionStatus = "Pending"
	TransactionStatusFailed  TransactionStatus = "Failed"
)

// TransactionRecord 交易紀錄，寫入後不可修改
type TransactionRecord struct {
	// Sequence: 由 Journal 在 Commit 時分配，依提交順序遞增
	// 同一 Timestamp 時作為第二排序鍵
	Sequence      uint64
	TransactionID string
	AccountNumber string
	Type          TransactionType
	Amount        decimal.Decimal
	// BalanceAfter: 交易後餘額快照，不會再重算
	BalanceAfter decimal.Decimal
	Timestamp    time.Time
	Status       TransactionStatus
	// CounterpartyAccountNumber: 只有 Transfer / Transfer Received 會填
	CounterpartyAccountNumber string
}

// Clone 回傳複本
func (r *TransactionRecord) Clone() *TransactionRecord {
	c := *r
	return &c
}

// BalanceUpdate 單一帳戶的 CAS 更新
type BalanceUpdate struct {
	AccountNumber   string
	ExpectedVersion int64
	Balance         decimal.Decimal
}

// Commit 一次原子提交：所有餘額更新與交易紀錄要嘛全部生效，要嘛全部不生效
type Commit struct {
	Updates []BalanceUpdate
	Records []*TransactionRecord
}

// LockOrder 回傳需要鎖定的帳號，並依帳號遞增排序以避免死鎖
func (c *Commit) LockOrder() []string {
	ids := make([]string, 0, len(c.Updates))
	seen := make(map[string]struct{}, len(c.Updates))
	for _, u := range c.Updates {
		if _, ok := seen[u.AccountNumber]; ok {
			continue
		}
		seen[u.AccountNumber] = struct{}{}
		ids = append(ids, u.AccountNumber)
	}
	sort.Strings(ids)
	return ids
}

// SortedUpdates 依 LockOrder 的順序回傳更新
func (c *Commit) SortedUpdates() []BalanceUpdate {
	updates := make([]BalanceUpdate, len(c.Updates))
	copy(updates, c.Updates)
	sort.SliceStable(updates, func(i, j int) bool {
		return updates[i].AccountNumber < updates[j].AccountNumber
	})
	return updates
}

// SortNewestFirst 依 Timestamp DESC、Sequence DESC 排序
func SortNewestFirst(records []*TransactionRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].Timestamp.After(records[j].Timestamp)
		}
		return records[i].Sequence > records[j].Sequence
	})
}
