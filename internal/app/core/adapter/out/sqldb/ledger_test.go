package sqldb_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	driver "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/sqldb"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

const (
	accountA = "47288276269"
	accountB = "47288276270"
	owner    = "CU12783354"
)

var accountColumns = []string{
	"account_number", "owner_id", "account_type", "status", "balance",
	"withdrawal_limit", "transfer_limit", "minimum_balance", "monthly_fee", "interest_rate",
	"branch_name", "branch_code", "version", "opened_at", "updated_at",
}

var transactionColumns = []string{
	"seq", "transaction_id", "account_number", "type", "amount",
	"balance_after", "created_at", "status", "counterparty_account_number",
}

type SQLLedgerSuite struct {
	suite.Suite
	mock   sqlmock.Sqlmock
	ledger *sqldb.SQLLedger
	now    time.Time
}

func TestSQLLedgerSuite(t *testing.T) {
	suite.Run(t, new(SQLLedgerSuite))
}

func (s *SQLLedgerSuite) SetupTest() {
	sqlDB, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)

	s.mock = mock
	s.ledger = sqldb.NewSQLLedger(db)
	s.now = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
}

func (s *SQLLedgerSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *SQLLedgerSuite) accountRow(number string, balance string, version int64) *sqlmock.Rows {
	return sqlmock.NewRows(accountColumns).AddRow(
		number, owner, "savings", "Active", balance,
		"10000.00", "10000.00", "200.00", "0.00", "2.50",
		"Main Branch", "BR001", version, s.now, s.now,
	)
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func duplicateEntry() error {
	return &driver.MySQLError{Number: 1062, Message: "Duplicate entry"}
}

func (s *SQLLedgerSuite) TestGetAccount() {
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `accounts` WHERE account_number = ?")).
		WillReturnRows(s.accountRow(accountA, "5743.00", 3))

	account, err := s.ledger.GetAccount(context.Background(), accountA)
	s.Require().NoError(err)
	s.Equal(accountA, account.AccountNumber)
	s.Equal(domain.AccountTypeSavings, account.Type)
	s.True(dec("5743.00").Equal(account.Balance))
	s.EqualValues(3, account.Version)
	s.Equal(time.UTC, account.OpenedAt.Location())
}

func (s *SQLLedgerSuite) TestGetAccount_NotFound() {
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `accounts`")).
		WillReturnRows(sqlmock.NewRows(accountColumns))

	_, err := s.ledger.GetAccount(context.Background(), accountA)
	s.ErrorIs(err, domain.ErrAccountNotFound)
}

func (s *SQLLedgerSuite) TestGetAccount_StorageFailure() {
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `accounts`")).
		WillReturnError(errors.New("connection reset"))

	_, err := s.ledger.GetAccount(context.Background(), accountA)
	s.ErrorIs(err, domain.ErrStorageFailure)
}

func (s *SQLLedgerSuite) TestCreateAccount() {
	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `accounts`")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	account := domain.NewAccount(accountA, owner, domain.AccountTypeChecking, s.now)
	s.Require().NoError(s.ledger.CreateAccount(context.Background(), account))
	s.EqualValues(1, account.Version)
}

func (s *SQLLedgerSuite) TestCreateAccount_Duplicate() {
	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `accounts`")).
		WillReturnError(duplicateEntry())

	account := domain.NewAccount(accountA, owner, domain.AccountTypeChecking, s.now)
	err := s.ledger.CreateAccount(context.Background(), account)
	s.ErrorIs(err, domain.ErrDuplicateAccountNumber)
}

func (s *SQLLedgerSuite) TestCompareAndSwap_Conflict() {
	s.mock.ExpectExec(regexp.QuoteMeta("UPDATE `accounts` SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `accounts`")).
		WillReturnRows(s.accountRow(accountA, "1.00", 9))

	next := domain.NewAccount(accountA, owner, domain.AccountTypeSavings, s.now)
	err := s.ledger.CompareAndSwap(context.Background(), accountA, 3, next)
	s.ErrorIs(err, domain.ErrVersionConflict)
}

func (s *SQLLedgerSuite) TestCompareAndSwap() {
	s.mock.ExpectExec(regexp.QuoteMeta("UPDATE `accounts` SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	next := domain.NewAccount(accountA, owner, domain.AccountTypeSavings, s.now)
	next.Status = domain.AccountStatusFrozen
	s.Require().NoError(s.ledger.CompareAndSwap(context.Background(), accountA, 3, next))
	s.EqualValues(4, next.Version)
}

func (s *SQLLedgerSuite) transferCommit() *domain.Commit {
	// Updates 故意以 B、A 的順序給，鎖定時必須先 A 再 B
	return &domain.Commit{
		Updates: []domain.BalanceUpdate{
			{AccountNumber: accountB, ExpectedVersion: 7, Balance: dec("2500.00")},
			{AccountNumber: accountA, ExpectedVersion: 3, Balance: dec("4743.00")},
		},
		Records: []*domain.TransactionRecord{
			{
				TransactionID: "TRANS00001", AccountNumber: accountA, Type: domain.TransactionTypeTransfer,
				Amount: dec("500.00"), BalanceAfter: dec("4743.00"), Timestamp: s.now,
				Status: domain.TransactionStatusCompleted, CounterpartyAccountNumber: accountB,
			},
			{
				TransactionID: "TRANS00002", AccountNumber: accountB, Type: domain.TransactionTypeTransferReceived,
				Amount: dec("500.00"), BalanceAfter: dec("2500.00"), Timestamp: s.now,
				Status: domain.TransactionStatusCompleted, CounterpartyAccountNumber: accountA,
			},
		},
	}
}

func (s *SQLLedgerSuite) expectLockAndUpdate(number, balance string, version int64) {
	s.mock.ExpectQuery(`SELECT \* FROM .accounts. WHERE account_number = \?.*FOR UPDATE`).
		WillReturnRows(s.accountRow(number, balance, version))
	s.mock.ExpectExec(regexp.QuoteMeta("UPDATE `accounts` SET `balance`=?,`updated_at`=?,`version`=? WHERE account_number = ? AND version = ?")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), version+1, number, version).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func (s *SQLLedgerSuite) TestCommit_Transfer() {
	s.mock.ExpectBegin()
	s.expectLockAndUpdate(accountA, "5243.00", 3)
	s.expectLockAndUpdate(accountB, "2000.00", 7)
	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `transactions`")).
		WillReturnResult(sqlmock.NewResult(41, 2))
	s.mock.ExpectCommit()

	commit := s.transferCommit()
	s.Require().NoError(s.ledger.Commit(context.Background(), commit))
	s.EqualValues(41, commit.Records[0].Sequence)
	s.EqualValues(42, commit.Records[1].Sequence)
}

func (s *SQLLedgerSuite) TestCommit_VersionConflictRollsBack() {
	s.mock.ExpectBegin()
	s.mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(s.accountRow(accountA, "5243.00", 4))
	s.mock.ExpectRollback()

	err := s.ledger.Commit(context.Background(), s.transferCommit())
	s.ErrorIs(err, domain.ErrVersionConflict)
}

func (s *SQLLedgerSuite) TestCommit_FailureBeforeCreditRollsBack() {
	s.mock.ExpectBegin()
	s.expectLockAndUpdate(accountA, "5243.00", 3)
	s.mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(s.accountRow(accountB, "2000.00", 7))
	s.mock.ExpectExec(regexp.QuoteMeta("UPDATE `accounts` SET")).
		WillReturnError(errors.New("disk full"))
	s.mock.ExpectRollback()

	commit := s.transferCommit()
	err := s.ledger.Commit(context.Background(), commit)
	s.ErrorIs(err, domain.ErrStorageFailure)
	s.Zero(commit.Records[0].Sequence)
}

func (s *SQLLedgerSuite) TestCommit_DuplicateTransactionID() {
	s.mock.ExpectBegin()
	s.expectLockAndUpdate(accountA, "5243.00", 3)
	s.expectLockAndUpdate(accountB, "2000.00", 7)
	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `transactions`")).
		WillReturnError(duplicateEntry())
	s.mock.ExpectRollback()

	err := s.ledger.Commit(context.Background(), s.transferCommit())
	s.ErrorIs(err, domain.ErrDuplicateTransactionID)
}

func (s *SQLLedgerSuite) TestGetTransaction_NotFound() {
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `transactions` WHERE transaction_id = ?")).
		WillReturnRows(sqlmock.NewRows(transactionColumns))

	_, err := s.ledger.GetTransaction(context.Background(), "TRANS12345")
	s.ErrorIs(err, domain.ErrTransactionNotFound)
}

func (s *SQLLedgerSuite) TestTransactionExists() {
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `transactions` WHERE transaction_id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))

	exists, err := s.ledger.TransactionExists(context.Background(), "TRANS12345")
	s.Require().NoError(err)
	s.True(exists)
}

func (s *SQLLedgerSuite) TestRecentTransactions() {
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `transactions` WHERE account_number = ? ORDER BY created_at DESC, seq DESC LIMIT")).
		WillReturnRows(sqlmock.NewRows(transactionColumns).
			AddRow(2, "TRANS00002", accountA, "Withdrawal", "1500.00", "5243.00", s.now.Add(time.Second), "Completed", "").
			AddRow(1, "TRANS00001", accountA, "Deposit", "1000.00", "6743.00", s.now, "Completed", ""))

	records, err := s.ledger.RecentTransactions(context.Background(), accountA, 10)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(domain.TransactionTypeWithdrawal, records[0].Type)
	s.EqualValues(2, records[0].Sequence)
	s.True(dec("6743.00").Equal(records[1].BalanceAfter))
}

func (s *SQLLedgerSuite) TestSearchTransactions() {
	min := dec("100")
	from := s.now.Add(-time.Hour)
	s.mock.ExpectQuery(`SELECT count\(\*\) FROM .transactions. JOIN accounts ON accounts.account_number = transactions.account_number WHERE accounts.owner_id = \? AND transactions.type = \? AND transactions.created_at >= \? AND transactions.amount >= \?`).
		WithArgs(owner, "Deposit", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(21))
	s.mock.ExpectQuery(`SELECT .* FROM .transactions. JOIN accounts .* ORDER BY transactions.created_at DESC, transactions.seq DESC LIMIT .* OFFSET`).
		WillReturnRows(sqlmock.NewRows(transactionColumns).
			AddRow(1, "TRANS00001", accountA, "Deposit", "1000.00", "6743.00", s.now, "Completed", ""))

	records, total, err := s.ledger.SearchTransactions(context.Background(), domain.SearchQuery{
		OwnerID:  owner,
		Criteria: domain.SearchCriteria{Type: "Deposit", From: &from, MinAmount: &min},
		Offset:   20,
		Limit:    20,
	})
	s.Require().NoError(err)
	s.EqualValues(21, total)
	s.Require().Len(records, 1)
	s.Equal("TRANS00001", records[0].TransactionID)
}

func (s *SQLLedgerSuite) TestSearchTransactions_Empty() {
	s.mock.ExpectQuery(`SELECT count\(\*\) FROM`).
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))

	records, total, err := s.ledger.SearchTransactions(context.Background(), domain.SearchQuery{OwnerID: owner})
	s.Require().NoError(err)
	s.Zero(total)
	s.NotNil(records)
	s.Empty(records)
}

func TestListAccountsByOwner(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `accounts` WHERE owner_id = ? ORDER BY account_number")).
		WithArgs(owner).
		WillReturnRows(sqlmock.NewRows(accountColumns).
			AddRow(accountA, owner, "savings", "Active", "1.00", "10000.00", "10000.00", "200.00", "0.00", "2.50", "Main Branch", "BR001", 1, now, now).
			AddRow(accountB, owner, "checking", "Active", "2.00", "10000.00", "10000.00", "0.00", "5.00", "0.00", "Main Branch", "BR001", 1, now, now))

	accounts, err := sqldb.NewSQLLedger(db).ListAccountsByOwner(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, domain.AccountTypeChecking, accounts[1].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}
