package sqldb

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// accountModel 對應資料庫的 accounts 表
type accountModel struct {
	AccountNumber   string          `gorm:"column:account_number;type:varchar(11);primaryKey"`
	OwnerID         string          `gorm:"column:owner_id;type:varchar(32);not null;index"`
	AccountType     string          `gorm:"column:account_type;type:varchar(16);not null"`
	Status          string          `gorm:"column:status;type:varchar(16);not null"`
	Balance         decimal.Decimal `gorm:"column:balance;type:decimal(19,2);not null"`
	WithdrawalLimit decimal.Decimal `gorm:"column:withdrawal_limit;type:decimal(19,2);not null"`
	TransferLimit   decimal.Decimal `gorm:"column:transfer_limit;type:decimal(19,2);not null"`
	MinimumBalance  decimal.Decimal `gorm:"column:minimum_balance;type:decimal(19,2);not null"`
	MonthlyFee      decimal.Decimal `gorm:"column:monthly_fee;type:decimal(19,2);not null"`
	InterestRate    decimal.Decimal `gorm:"column:interest_rate;type:decimal(5,2);not null"`
	BranchName      string          `gorm:"column:branch_name;type:varchar(64)"`
	BranchCode      string          `gorm:"column:branch_code;type:varchar(16)"`
	Version         int64           `gorm:"column:version;not null"`
	OpenedAt        time.Time       `gorm:"column:opened_at;precision:6;not null"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;precision:6;autoUpdateTime:false"`
}

func (*accountModel) TableName() string {
	return "accounts"
}

// transactionModel 對應資料庫的 transactions 表
//
// seq 由資料庫遞增產生，就是 TransactionRecord.Sequence。
type transactionModel struct {
	Seq                       uint64          `gorm:"column:seq;primaryKey;autoIncrement"`
	TransactionID             string          `gorm:"column:transaction_id;type:varchar(16);uniqueIndex;not null"`
	AccountNumber             string          `gorm:"column:account_number;type:varchar(11);not null;index:idx_transactions_account_created,priority:1"`
	Type                      string          `gorm:"column:type;type:varchar(32);not null"`
	Amount                    decimal.Decimal `gorm:"column:amount;type:decimal(19,2);not null"`
	BalanceAfter              decimal.Decimal `gorm:"column:balance_after;type:decimal(19,2);not null"`
	Timestamp                 time.Time       `gorm:"column:created_at;precision:6;not null;index:idx_transactions_account_created,priority:2"`
	Status                    string          `gorm:"column:status;type:varchar(16);not null"`
	CounterpartyAccountNumber string          `gorm:"column:counterparty_account_number;type:varchar(11)"`
}

func (*transactionModel) TableName() string {
	return "transactions"
}

func toAccountModel(a *domain.Account) *accountModel {
	return &accountModel{
		AccountNumber:   a.AccountNumber,
		OwnerID:         a.OwnerID,
		AccountType:     string(a.Type),
		Status:          string(a.Status),
		Balance:         a.Balance,
		WithdrawalLimit: a.WithdrawalLimit,
		TransferLimit:   a.TransferLimit,
		MinimumBalance:  a.MinimumBalance,
		MonthlyFee:      a.MonthlyFee,
		InterestRate:    a.InterestRate,
		BranchName:      a.BranchName,
		BranchCode:      a.BranchCode,
		Version:         a.Version,
		OpenedAt:        a.OpenedAt.UTC(),
		UpdatedAt:       a.UpdatedAt.UTC(),
	}
}

func (m *accountModel) toDomain() *domain.Account {
	return &domain.Account{
		AccountNumber:   m.AccountNumber,
		OwnerID:         m.OwnerID,
		Type:            domain.AccountType(m.AccountType),
		Status:          domain.AccountStatus(m.Status),
		Balance:         m.Balance,
		WithdrawalLimit: m.WithdrawalLimit,
		TransferLimit:   m.TransferLimit,
		MinimumBalance:  m.MinimumBalance,
		MonthlyFee:      m.MonthlyFee,
		InterestRate:    m.InterestRate,
		BranchName:      m.BranchName,
		BranchCode:      m.BranchCode,
		Version:         m.Version,
		OpenedAt:        m.OpenedAt.UTC(),
		UpdatedAt:       m.UpdatedAt.UTC(),
	}
}

func toTransactionModel(r *domain.TransactionRecord) transactionModel {
	return transactionModel{
		TransactionID:             r.TransactionID,
		AccountNumber:             r.AccountNumber,
		Type:                      string(r.Type),
		Amount:                    r.Amount,
		BalanceAfter:              r.BalanceAfter,
		Timestamp:                 r.Timestamp.UTC(),
		Status:                    string(r.Status),
		CounterpartyAccountNumber: r.CounterpartyAccountNumber,
	}
}

func (m *transactionModel) toDomain() *domain.TransactionRecord {
	return &domain.TransactionRecord{
		Sequence:                  m.Seq,
		TransactionID:             m.TransactionID,
		AccountNumber:             m.AccountNumber,
		Type:                      domain.TransactionType(m.Type),
		Amount:                    m.Amount,
		BalanceAfter:              m.BalanceAfter,
		Timestamp:                 m.Timestamp.UTC(),
		Status:                    domain.TransactionStatus(m.Status),
		CounterpartyAccountNumber: m.CounterpartyAccountNumber,
	}
}

func toRecords(rows []transactionModel) []*domain.TransactionRecord {
	records := make([]*domain.TransactionRecord, len(rows))
	for i := range rows {
		records[i] = rows[i].toDomain()
	}
	return records
}
