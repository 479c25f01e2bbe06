package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType 帳戶類型
type AccountType string

const (
	AccountTypeSavings  AccountType = "savings"
	AccountTypeChecking AccountType = "checking"
)

// ParseAccountType 解析帳戶類型 (大小寫必須完全一致)
func ParseAccountType(s string) (AccountType, error) {
	switch t := AccountType(s); t {
	case AccountTypeSavings, AccountTypeChecking:
		return t, nil
	}
	return "", ErrInvalidAccountType
}

// AccountStatus 帳戶狀態 (僅供參考，引擎不依狀態擋交易)
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "Active"
	AccountStatusInactive AccountStatus = "Inactive"
	AccountStatusFrozen   AccountStatus = "Frozen"
)

const (
	DefaultBranchName = "Main Branch"
	DefaultBranchCode = "BR001"
)

var (
	DefaultWithdrawalLimit = decimal.RequireFromString("10000.00")
	DefaultTransferLimit   = decimal.RequireFromString("10000.00")
	DefaultMinimumBalance  = decimal.RequireFromString("200.00")
	SavingsInterestRate    = decimal.RequireFromString("2.5")
	CheckingMonthlyFee     = decimal.RequireFromString("5.00")
)

// Account 帳戶
//
// Balance 只能透過 Ledger Engine 的 Commit 變動；
// Version 由儲存層在每次成功寫入時 +1 (樂觀鎖)。
type Account struct {
	AccountNumber   string
	OwnerID         string
	Type            AccountType
	Status          AccountStatus
	Balance         decimal.Decimal
	WithdrawalLimit decimal.Decimal
	TransferLimit   decimal.Decimal
	// MinimumBalance 僅供顯示，提款時不檢查
	MinimumBalance decimal.Decimal
	MonthlyFee     decimal.Decimal
	InterestRate   decimal.Decimal
	BranchName     string
	BranchCode     string
	Version        int64
	OpenedAt       time.Time
	UpdatedAt      time.Time
}

// NewAccount 依帳戶類型建立一個餘額為 0 的新帳戶
//
// 參數:
//
//	accountNumber: 11 位數帳號
//	ownerID: 客戶 ID
//	accountType: savings 或 checking
//	now: 開戶時間
//
// 回傳:
//
//	*Account: 新帳戶 (尚未寫入儲存層)
func NewAccount(accountNumber, ownerID string, accountType AccountType, now time.Time) *Account {
	account := &Account{
		AccountNumber:   accountNumber,
		OwnerID:         ownerID,
		Type:            accountType,
		Status:          AccountStatusActive,
		Balance:         decimal.Zero,
		WithdrawalLimit: DefaultWithdrawalLimit,
		TransferLimit:   DefaultTransferLimit,
		MinimumBalance:  decimal.Zero,
		MonthlyFee:      decimal.Zero,
		InterestRate:    decimal.Zero,
		BranchName:      DefaultBranchName,
		BranchCode:      DefaultBranchCode,
		OpenedAt:        now,
		UpdatedAt:       now,
	}
	switch accountType {
	case AccountTypeSavings:
		account.InterestRate = SavingsInterestRate
		account.MinimumBalance = DefaultMinimumBalance
	case AccountTypeChecking:
		account.MonthlyFee = CheckingMonthlyFee
	}
	return account
}

// Clone 回傳複本，避免呼叫端改到儲存層內部的資料
func (a *Account) Clone() *Account {
	c := *a
	return &c
}

// OwnedBy 檢查帳戶是否屬於該客戶
func (a *Account) OwnedBy(ownerID string) bool {
	return a.OwnerID == ownerID
}

// CheckDebit 檢查扣款：先檢查單筆上限，再檢查餘額
//
// 超過上限的請求不論餘額多少都回傳 ErrLimitExceeded。
func (a *Account) CheckDebit(amount, limit decimal.Decimal) error {
	if amount.GreaterThan(limit) {
		return ErrLimitExceeded
	}
	if a.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	return nil
}
