package memory_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/pkg/wal"
)

type MutexLedgerSuite struct {
	suite.Suite
	ctx    context.Context
	ledger *memory.MutexLedger
	base   time.Time
}

func TestMutexLedgerSuite(t *testing.T) {
	suite.Run(t, new(MutexLedgerSuite))
}

func (s *MutexLedgerSuite) SetupTest() {
	s.ctx = context.Background()
	ledger, err := memory.NewMutexLedger(nil)
	s.Require().NoError(err)
	s.ledger = ledger
	s.base = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
}

func (s *MutexLedgerSuite) createAccount(number, owner, balance string) *domain.Account {
	account := domain.NewAccount(number, owner, domain.AccountTypeSavings, s.base)
	account.Balance = decimal.RequireFromString(balance)
	s.Require().NoError(s.ledger.CreateAccount(s.ctx, account))
	return account
}

func (s *MutexLedgerSuite) record(id, account string, txType domain.TransactionType, amount string, ts time.Time) *domain.TransactionRecord {
	return &domain.TransactionRecord{
		TransactionID: id,
		AccountNumber: account,
		Type:          txType,
		Amount:        decimal.RequireFromString(amount),
		BalanceAfter:  decimal.Zero,
		Timestamp:     ts,
		Status:        domain.TransactionStatusCompleted,
	}
}

func (s *MutexLedgerSuite) TestCreateAccount() {
	account := s.createAccount("10000000001", "CU1", "100")
	s.Equal(int64(1), account.Version)

	err := s.ledger.CreateAccount(s.ctx, domain.NewAccount("10000000001", "CU2", domain.AccountTypeChecking, s.base))
	s.ErrorIs(err, domain.ErrDuplicateAccountNumber)

	got, err := s.ledger.GetAccount(s.ctx, "10000000001")
	s.Require().NoError(err)
	s.Equal("CU1", got.OwnerID)

	exists, err := s.ledger.AccountExists(s.ctx, "10000000001")
	s.NoError(err)
	s.True(exists)

	_, err = s.ledger.GetAccount(s.ctx, "19999999999")
	s.ErrorIs(err, domain.ErrAccountNotFound)
}

func (s *MutexLedgerSuite) TestGetAccountReturnsCopy() {
	s.createAccount("10000000001", "CU1", "100")
	got, err := s.ledger.GetAccount(s.ctx, "10000000001")
	s.Require().NoError(err)
	got.Balance = decimal.RequireFromString("999999")

	again, err := s.ledger.GetAccount(s.ctx, "10000000001")
	s.Require().NoError(err)
	s.True(again.Balance.Equal(decimal.RequireFromString("100")))
}

func (s *MutexLedgerSuite) TestCompareAndSwap() {
	s.createAccount("10000000001", "CU1", "100")
	current, err := s.ledger.GetAccount(s.ctx, "10000000001")
	s.Require().NoError(err)

	next := current.Clone()
	next.Status = domain.AccountStatusFrozen
	s.Require().NoError(s.ledger.CompareAndSwap(s.ctx, "10000000001", current.Version, next))
	s.Equal(current.Version+1, next.Version)

	// 舊版本再寫一次會衝突
	err = s.ledger.CompareAndSwap(s.ctx, "10000000001", current.Version, next)
	s.ErrorIs(err, domain.ErrVersionConflict)

	err = s.ledger.CompareAndSwap(s.ctx, "19999999999", 1, next)
	s.ErrorIs(err, domain.ErrAccountNotFound)

	stored, err := s.ledger.GetAccount(s.ctx, "10000000001")
	s.Require().NoError(err)
	s.Equal(domain.AccountStatusFrozen, stored.Status)
	s.Equal(int64(2), stored.Version)
}

func (s *MutexLedgerSuite) TestCommitAppliesAllOrNothing() {
	s.createAccount("10000000001", "CU1", "100")
	s.createAccount("10000000002", "CU2", "50")

	commit := &domain.Commit{
		Updates: []domain.BalanceUpdate{
			{AccountNumber: "10000000002", ExpectedVersion: 1, Balance: decimal.RequireFromString("80")},
			{AccountNumber: "10000000001", ExpectedVersion: 1, Balance: decimal.RequireFromString("70")},
		},
		Records: []*domain.TransactionRecord{
			s.record("TRANS00001", "10000000001", domain.TransactionTypeTransfer, "30", s.base),
			s.record("TRANS00002", "10000000002", domain.TransactionTypeTransferReceived, "30", s.base),
		},
	}
	s.Require().NoError(s.ledger.Commit(s.ctx, commit))
	s.Equal(uint64(1), commit.Records[0].Sequence)
	s.Equal(uint64(2), commit.Records[1].Sequence)

	a, _ := s.ledger.GetAccount(s.ctx, "10000000001")
	b, _ := s.ledger.GetAccount(s.ctx, "10000000002")
	s.True(a.Balance.Equal(decimal.RequireFromString("70")))
	s.True(b.Balance.Equal(decimal.RequireFromString("80")))
	s.Equal(int64(2), a.Version)
	s.Equal(int64(2), b.Version)

	// 其中一個版本過期：兩邊都不動
	stale := &domain.Commit{
		Updates: []domain.BalanceUpdate{
			{AccountNumber: "10000000001", ExpectedVersion: 2, Balance: decimal.RequireFromString("0")},
			{AccountNumber: "10000000002", ExpectedVersion: 1, Balance: decimal.RequireFromString("150")},
		},
		Records: []*domain.TransactionRecord{
			s.record("TRANS00003", "10000000001", domain.TransactionTypeTransfer, "70", s.base),
		},
	}
	s.ErrorIs(s.ledger.Commit(s.ctx, stale), domain.ErrVersionConflict)
	a, _ = s.ledger.GetAccount(s.ctx, "10000000001")
	s.True(a.Balance.Equal(decimal.RequireFromString("70")))
	exists, _ := s.ledger.TransactionExists(s.ctx, "TRANS00003")
	s.False(exists)
}

func (s *MutexLedgerSuite) TestCommitRejectsDuplicateTransactionID() {
	s.createAccount("10000000001", "CU1", "100")
	first := &domain.Commit{
		Updates: []domain.BalanceUpdate{{AccountNumber: "10000000001", ExpectedVersion: 1, Balance: decimal.RequireFromString("110")}},
		Records: []*domain.TransactionRecord{s.record("TRANS00001", "10000000001", domain.TransactionTypeDeposit, "10", s.base)},
	}
	s.Require().NoError(s.ledger.Commit(s.ctx, first))

	again := &domain.Commit{
		Updates: []domain.BalanceUpdate{{AccountNumber: "10000000001", ExpectedVersion: 2, Balance: decimal.RequireFromString("120")}},
		Records: []*domain.TransactionRecord{s.record("TRANS00001", "10000000001", domain.TransactionTypeDeposit, "10", s.base)},
	}
	s.ErrorIs(s.ledger.Commit(s.ctx, again), domain.ErrDuplicateTransactionID)

	// 同一個 Commit 內重複
	inner := &domain.Commit{
		Updates: []domain.BalanceUpdate{{AccountNumber: "10000000001", ExpectedVersion: 2, Balance: decimal.RequireFromString("120")}},
		Records: []*domain.TransactionRecord{
			s.record("TRANS00002", "10000000001", domain.TransactionTypeDeposit, "5", s.base),
			s.record("TRANS00002", "10000000001", domain.TransactionTypeDeposit, "5", s.base),
		},
	}
	s.ErrorIs(s.ledger.Commit(s.ctx, inner), domain.ErrDuplicateTransactionID)

	a, _ := s.ledger.GetAccount(s.ctx, "10000000001")
	s.True(a.Balance.Equal(decimal.RequireFromString("110")))
}

func (s *MutexLedgerSuite) TestJournalQueries() {
	s.createAccount("10000000001", "CU1", "0")
	s.createAccount("10000000002", "CU1", "0")
	s.createAccount("20000000001", "CU2", "0")

	version := map[string]int64{"10000000001": 1, "10000000002": 1, "20000000001": 1}
	post := func(id, account string, txType domain.TransactionType, amount string, ts time.Time) {
		commit := &domain.Commit{
			Updates: []domain.BalanceUpdate{{AccountNumber: account, ExpectedVersion: version[account], Balance: decimal.Zero}},
			Records: []*domain.TransactionRecord{s.record(id, account, txType, amount, ts)},
		}
		s.Require().NoError(s.ledger.Commit(s.ctx, commit))
		version[account]++
	}

	for i := 0; i < 12; i++ {
		post(fmt.Sprintf("TRANS%05d", i), "10000000001", domain.TransactionTypeDeposit, "10", s.base.Add(time.Duration(i)*time.Minute))
	}
	// 同一時間的兩筆：後提交的排前面
	post("TRANS00100", "10000000002", domain.TransactionTypeWithdrawal, "5", s.base)
	post("TRANS00101", "10000000002", domain.TransactionTypeDeposit, "500", s.base)
	post("TRANS00200", "20000000001", domain.TransactionTypeDeposit, "10", s.base)

	recent, err := s.ledger.RecentTransactions(s.ctx, "10000000001", 10)
	s.Require().NoError(err)
	s.Len(recent, 10)
	s.Equal("TRANS00011", recent[0].TransactionID)
	s.Equal("TRANS00002", recent[9].TransactionID)

	tied, err := s.ledger.RecentTransactions(s.ctx, "10000000002", 10)
	s.Require().NoError(err)
	s.Equal([]string{"TRANS00101", "TRANS00100"}, []string{tied[0].TransactionID, tied[1].TransactionID})

	all, err := s.ledger.ListTransactions(s.ctx, "10000000001")
	s.Require().NoError(err)
	s.Len(all, 12)
	s.Equal("TRANS00000", all[0].TransactionID)

	rec, err := s.ledger.GetTransaction(s.ctx, "TRANS00200")
	s.Require().NoError(err)
	s.Equal("20000000001", rec.AccountNumber)
	_, err = s.ledger.GetTransaction(s.ctx, "TRANS99999")
	s.ErrorIs(err, domain.ErrTransactionNotFound)

	// 搜尋只看 CU1 名下帳戶
	found, total, err := s.ledger.SearchTransactions(s.ctx, domain.SearchQuery{OwnerID: "CU1"})
	s.Require().NoError(err)
	s.Equal(int64(14), total)
	s.Len(found, 14)

	minAmount := decimal.RequireFromString("100")
	found, total, err = s.ledger.SearchTransactions(s.ctx, domain.SearchQuery{
		OwnerID:  "CU1",
		Criteria: domain.SearchCriteria{MinAmount: &minAmount},
	})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal("TRANS00101", found[0].TransactionID)

	page, total, err := s.ledger.SearchTransactions(s.ctx, domain.SearchQuery{
		OwnerID:  "CU1",
		Criteria: domain.SearchCriteria{AccountNumber: "10000000001"},
		Offset:   10,
		Limit:    5,
	})
	s.Require().NoError(err)
	s.Equal(int64(12), total)
	s.Len(page, 2)
	s.Equal("TRANS00001", page[0].TransactionID)

	none, total, err := s.ledger.SearchTransactions(s.ctx, domain.SearchQuery{
		OwnerID:  "CU1",
		Criteria: domain.SearchCriteria{AccountNumber: "20000000001"},
	})
	s.Require().NoError(err)
	s.Zero(total)
	s.Empty(none)
}

func (s *MutexLedgerSuite) TestListAccountsByOwner() {
	s.createAccount("30000000000", "CU1", "0")
	s.createAccount("10000000000", "CU1", "0")
	s.createAccount("20000000000", "CU2", "0")

	accounts, err := s.ledger.ListAccountsByOwner(s.ctx, "CU1")
	s.Require().NoError(err)
	s.Require().Len(accounts, 2)
	s.Equal("10000000000", accounts[0].AccountNumber)
	s.Equal("30000000000", accounts[1].AccountNumber)
}

func (s *MutexLedgerSuite) TestConcurrentCrossingCommitsDoNotDeadlock() {
	s.createAccount("10000000001", "CU1", "1000")
	s.createAccount("10000000002", "CU2", "1000")

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := "10000000001", "10000000002"
			if i%2 == 1 {
				from, to = to, from
			}
			for {
				a, _ := s.ledger.GetAccount(s.ctx, from)
				b, _ := s.ledger.GetAccount(s.ctx, to)
				commit := &domain.Commit{Updates: []domain.BalanceUpdate{
					{AccountNumber: from, ExpectedVersion: a.Version, Balance: a.Balance.Sub(decimal.NewFromInt(1))},
					{AccountNumber: to, ExpectedVersion: b.Version, Balance: b.Balance.Add(decimal.NewFromInt(1))},
				}}
				err := s.ledger.Commit(s.ctx, commit)
				if err == nil {
					return
				}
				if !errors.Is(err, domain.ErrVersionConflict) {
					s.Fail("unexpected error", err.Error())
					return
				}
			}
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		s.FailNow("crossing commits deadlocked")
	}

	a, _ := s.ledger.GetAccount(s.ctx, "10000000001")
	b, _ := s.ledger.GetAccount(s.ctx, "10000000002")
	s.True(a.Balance.Add(b.Balance).Equal(decimal.NewFromInt(2000)))
}

type failingWAL struct {
	fail bool
}

func (f *failingWAL) Write(v any) error {
	if f.fail {
		return errors.New("disk full")
	}
	return nil
}

func (f *failingWAL) ReadAll(func([]byte) error) error { return nil }

func TestMutexLedger_WALFailureLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	log := &failingWAL{}
	ledger, err := memory.NewMutexLedger(log)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, ledger.CreateAccount(ctx, domain.NewAccount("10000000001", "CU1", domain.AccountTypeSavings, now)))
	require.NoError(t, ledger.CreateAccount(ctx, domain.NewAccount("10000000002", "CU1", domain.AccountTypeSavings, now)))

	log.fail = true
	commit := &domain.Commit{
		Updates: []domain.BalanceUpdate{
			{AccountNumber: "10000000001", ExpectedVersion: 1, Balance: decimal.NewFromInt(-10)},
			{AccountNumber: "10000000002", ExpectedVersion: 1, Balance: decimal.NewFromInt(10)},
		},
		Records: []*domain.TransactionRecord{{TransactionID: "TRANS00001", AccountNumber: "10000000001", Timestamp: now}},
	}
	err = ledger.Commit(ctx, commit)
	assert.ErrorIs(t, err, domain.ErrStorageFailure)

	a, _ := ledger.GetAccount(ctx, "10000000001")
	assert.True(t, a.Balance.IsZero())
	assert.Equal(t, int64(1), a.Version)
	exists, _ := ledger.TransactionExists(ctx, "TRANS00001")
	assert.False(t, exists, "reservation must be released")

	// 恢復後同一個編號可以再用
	log.fail = false
	require.NoError(t, ledger.Commit(ctx, commit))
}

func TestMutexLedger_RecoverFromWAL(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "wal.log")

	w, err := wal.NewWAL(path)
	require.NoError(t, err)
	ledger, err := memory.NewMutexLedger(w)
	require.NoError(t, err)

	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, ledger.CreateAccount(ctx, domain.NewAccount("10000000001", "CU1", domain.AccountTypeSavings, now)))
	require.NoError(t, ledger.Commit(ctx, &domain.Commit{
		Updates: []domain.BalanceUpdate{{AccountNumber: "10000000001", ExpectedVersion: 1, Balance: decimal.RequireFromString("1000.00")}},
		Records: []*domain.TransactionRecord{{
			TransactionID: "TRANS00001",
			AccountNumber: "10000000001",
			Type:          domain.TransactionTypeDeposit,
			Amount:        decimal.RequireFromString("1000.00"),
			BalanceAfter:  decimal.RequireFromString("1000.00"),
			Timestamp:     now,
			Status:        domain.TransactionStatusCompleted,
		}},
	}))
	require.NoError(t, w.Close())

	reopened, err := wal.NewWAL(path)
	require.NoError(t, err)
	defer reopened.Close()
	recovered, err := memory.NewMutexLedger(reopened)
	require.NoError(t, err)

	account, err := recovered.GetAccount(ctx, "10000000001")
	require.NoError(t, err)
	assert.True(t, account.Balance.Equal(decimal.RequireFromString("1000")))
	assert.Equal(t, int64(2), account.Version)

	rec, err := recovered.GetTransaction(ctx, "TRANS00001")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rec.Sequence)
	assert.True(t, rec.Timestamp.Equal(now))

	// Sequence 從恢復後的最大值繼續
	commit := &domain.Commit{
		Updates: []domain.BalanceUpdate{{AccountNumber: "10000000001", ExpectedVersion: 2, Balance: decimal.RequireFromString("900")}},
		Records: []*domain.TransactionRecord{{TransactionID: "TRANS00002", AccountNumber: "10000000001", Timestamp: now}},
	}
	require.NoError(t, recovered.Commit(ctx, commit))
	assert.Equal(t, uint64(2), commit.Records[0].Sequence)
}

// syncFailingFile 讓接下來 n 次 fsync 失敗 (資料已進到檔案)
type syncFailingFile struct {
	*os.File
	failSync int
}

func (f *syncFailingFile) Sync() error {
	if f.failSync > 0 {
		f.failSync--
		return errors.New("fsync: input/output error")
	}
	return f.File.Sync()
}

func TestMutexLedger_FailedWALWriteIsNotRecovered(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "wal.log")
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, wal.FileModePrivate)
	require.NoError(t, err)
	faulty := &syncFailingFile{File: file}
	w := wal.New(faulty)

	ledger, err := memory.NewMutexLedger(w)
	require.NoError(t, err)
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, ledger.CreateAccount(ctx, domain.NewAccount("10000000001", "CU1", domain.AccountTypeSavings, now)))

	deposit := func(id string) *domain.Commit {
		return &domain.Commit{
			Updates: []domain.BalanceUpdate{{AccountNumber: "10000000001", ExpectedVersion: 1, Balance: decimal.RequireFromString("100")}},
			Records: []*domain.TransactionRecord{{
				TransactionID: id,
				AccountNumber: "10000000001",
				Type:          domain.TransactionTypeDeposit,
				Amount:        decimal.RequireFromString("100"),
				BalanceAfter:  decimal.RequireFromString("100"),
				Timestamp:     now,
				Status:        domain.TransactionStatusCompleted,
			}},
		}
	}

	faulty.failSync = 1
	assert.ErrorIs(t, ledger.Commit(ctx, deposit("TRANS00001")), domain.ErrStorageFailure)
	require.NoError(t, ledger.Commit(ctx, deposit("TRANS00002")))
	require.NoError(t, w.Close())

	reopened, err := wal.NewWAL(path)
	require.NoError(t, err)
	defer reopened.Close()
	recovered, err := memory.NewMutexLedger(reopened)
	require.NoError(t, err)

	records, err := recovered.ListTransactions(ctx, "10000000001")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "TRANS00002", records[0].TransactionID)

	exists, err := recovered.TransactionExists(ctx, "TRANS00001")
	require.NoError(t, err)
	assert.False(t, exists)

	account, err := recovered.GetAccount(ctx, "10000000001")
	require.NoError(t, err)
	assert.True(t, account.Balance.Equal(records[0].BalanceAfter))
	assert.Equal(t, int64(2), account.Version)
}
