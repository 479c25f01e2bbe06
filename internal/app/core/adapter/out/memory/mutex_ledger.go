package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

// WriteAheadLog MutexLedger 需要的 WAL 能力 (*wal.WAL 即符合)
//
// Write 回傳錯誤時不可留下任何內容，否則重啟後會重放已回覆失敗的交易。
type WriteAheadLog interface {
	Write(v any) error
	ReadAll(callback func(jsonRaw []byte) error) error
}

const (
	entryKindAccount = "account"
	entryKindCommit  = "commit"
)

// walEntry 一筆 WAL 紀錄 = 一個原子單位 (帳戶快照 + 交易紀錄)
type walEntry struct {
	Kind     string                      `json:"kind"`
	Accounts []*domain.Account           `json:"accounts,omitempty"`
	Records  []*domain.TransactionRecord `json:"records,omitempty"`
}

// MutexLedger 是一個使用 Mutex 實現的帳本
//
// 結構:
//
//	mu: 保護下列所有 Map 與 Journal，套用提交時一次鎖住，讀者看到的是全有或全無
//	accountLocks: 每個帳戶一把鎖，提交時依帳號遞增順序取得 (避免死鎖)
//	reserved: 已通過檢查、正在寫 WAL 的交易編號
//	wal: Write-Ahead Log 實例 (nil 表示純記憶體)
type MutexLedger struct {
	mu        sync.RWMutex
	accounts  map[string]*domain.Account
	byID      map[string]*domain.TransactionRecord
	byAccount map[string][]*domain.TransactionRecord
	reserved  map[string]struct{}
	nextSeq   uint64

	accountLocks sync.Map // map[string]*sync.Mutex

	wal WriteAheadLog
}

// NewMutexLedger 建立一個新的 MutexLedger 實例
//
// 參數:
//
//	wal: Write-Ahead Log 實例，nil 表示不落地
//
// 回傳:
//
//	*MutexLedger: MutexLedger 實例
//	error: 初始化錯誤 (如 WAL 恢復失敗)
func NewMutexLedger(wal WriteAheadLog) (*MutexLedger, error) {
	ledger := &MutexLedger{
		accounts:  make(map[string]*domain.Account),
		byID:      make(map[string]*domain.TransactionRecord),
		byAccount: make(map[string][]*domain.TransactionRecord),
		reserved:  make(map[string]struct{}),
		wal:       wal,
	}
	if wal != nil {
		if err := ledger.recoverFromWAL(); err != nil {
			return nil, err
		}
	}
	return ledger, nil
}

// recoverFromWAL 從 WAL 檔案恢復帳本狀態
// 只有 NewMutexLedger 呼叫，無需 Lock (單執行緒)
func (m *MutexLedger) recoverFromWAL() error {
	return m.wal.ReadAll(func(jsonRaw []byte) error {
		var entry walEntry
		if err := json.Unmarshal(jsonRaw, &entry); err != nil {
			return fmt.Errorf("decode wal entry: %w", err)
		}
		m.applyLocked(entry.Accounts, entry.Records)
		return nil
	})
}

// applyLocked 套用帳戶快照與交易紀錄 (呼叫端需持有 mu 寫鎖)
func (m *MutexLedger) applyLocked(accounts []*domain.Account, records []*domain.TransactionRecord) {
	for _, account := range accounts {
		m.accounts[account.AccountNumber] = account
	}
	for _, record := range records {
		stored := record.Clone()
		delete(m.reserved, stored.TransactionID)
		m.byID[stored.TransactionID] = stored
		m.byAccount[stored.AccountNumber] = append(m.byAccount[stored.AccountNumber], stored)
		if stored.Sequence > m.nextSeq {
			m.nextSeq = stored.Sequence
		}
	}
}

// lockAccounts 依傳入順序 (已排序) 取得帳戶鎖，回傳解鎖函式
func (m *MutexLedger) lockAccounts(accountNumbers []string) func() {
	locks := make([]*sync.Mutex, 0, len(accountNumbers))
	for _, number := range accountNumbers {
		v, _ := m.accountLocks.LoadOrStore(number, &sync.Mutex{})
		lock := v.(*sync.Mutex)
		lock.Lock()
		locks = append(locks, lock)
	}
	return func() {
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].Unlock()
		}
	}
}

// writeWAL 寫入 WAL (Critical Path)，失敗時狀態尚未變動
func (m *MutexLedger) writeWAL(entry walEntry) error {
	if m.wal == nil {
		return nil
	}
	if err := m.wal.Write(entry); err != nil {
		return fmt.Errorf("%w: write wal: %v", domain.ErrStorageFailure, err)
	}
	return nil
}

// GetAccount 取得帳戶複本
func (m *MutexLedger) GetAccount(ctx context.Context, accountNumber string) (*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.accounts[accountNumber]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, accountNumber)
	}
	return account.Clone(), nil
}

// AccountExists 帳號是否已使用
func (m *MutexLedger) AccountExists(ctx context.Context, accountNumber string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.accounts[accountNumber]
	return ok, nil
}

// ListAccountsByOwner 依帳號排序
func (m *MutexLedger) ListAccountsByOwner(ctx context.Context, ownerID string) ([]*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	accounts := make([]*domain.Account, 0)
	for _, account := range m.accounts {
		if account.OwnedBy(ownerID) {
			accounts = append(accounts, account.Clone())
		}
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].AccountNumber < accounts[j].AccountNumber
	})
	return accounts, nil
}

// CreateAccount 建立帳戶，成功後 account.Version = 1
func (m *MutexLedger) CreateAccount(ctx context.Context, account *domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := m.lockAccounts([]string{account.AccountNumber})
	defer unlock()

	m.mu.RLock()
	_, exists := m.accounts[account.AccountNumber]
	m.mu.RUnlock()
	if exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateAccountNumber, account.AccountNumber)
	}

	snapshot := account.Clone()
	snapshot.Version = 1
	if err := m.writeWAL(walEntry{Kind: entryKindAccount, Accounts: []*domain.Account{snapshot}}); err != nil {
		return err
	}

	m.mu.Lock()
	m.applyLocked([]*domain.Account{snapshot}, nil)
	m.mu.Unlock()
	account.Version = snapshot.Version
	return nil
}

// CompareAndSwap 版本相符才覆寫帳戶
func (m *MutexLedger) CompareAndSwap(ctx context.Context, accountNumber string, expectedVersion int64, next *domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := m.lockAccounts([]string{accountNumber})
	defer unlock()

	m.mu.RLock()
	current, ok := m.accounts[accountNumber]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, accountNumber)
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("%w: %s expected version %d, got %d", domain.ErrVersionConflict, accountNumber, expectedVersion, current.Version)
	}

	snapshot := next.Clone()
	snapshot.AccountNumber = accountNumber
	snapshot.Version = expectedVersion + 1
	snapshot.UpdatedAt = time.Now().UTC()
	if err := m.writeWAL(walEntry{Kind: entryKindAccount, Accounts: []*domain.Account{snapshot}}); err != nil {
		return err
	}

	m.mu.Lock()
	m.applyLocked([]*domain.Account{snapshot}, nil)
	m.mu.Unlock()
	next.Version = snapshot.Version
	return nil
}

// Commit 原子提交
//
// 流程:
//
//  1. 依帳號遞增順序鎖住涉及的帳戶
//  2. 檢查版本與交易編號，預留編號並分配 Sequence
//  3. 寫入 WAL (失敗則釋放預留，不留下任何變動)
//  4. 一次套用所有帳戶快照與交易紀錄
func (m *MutexLedger) Commit(ctx context.Context, commit *domain.Commit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := m.lockAccounts(commit.LockOrder())
	defer unlock()

	m.mu.Lock()
	snapshots, err := m.prepareLocked(commit)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	if err := m.writeWAL(walEntry{Kind: entryKindCommit, Accounts: snapshots, Records: commit.Records}); err != nil {
		m.mu.Lock()
		for _, record := range commit.Records {
			delete(m.reserved, record.TransactionID)
		}
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.applyLocked(snapshots, commit.Records)
	m.mu.Unlock()
	return nil
}

// prepareLocked 驗證並產生新的帳戶快照 (呼叫端需持有 mu 寫鎖)
func (m *MutexLedger) prepareLocked(commit *domain.Commit) ([]*domain.Account, error) {
	now := time.Now().UTC()
	snapshots := make([]*domain.Account, 0, len(commit.Updates))
	for _, update := range commit.SortedUpdates() {
		current, ok := m.accounts[update.AccountNumber]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, update.AccountNumber)
		}
		if current.Version != update.ExpectedVersion {
			return nil, fmt.Errorf("%w: %s expected version %d, got %d",
				domain.ErrVersionConflict, update.AccountNumber, update.ExpectedVersion, current.Version)
		}
		if len(snapshots) > 0 && snapshots[len(snapshots)-1].AccountNumber == update.AccountNumber {
			return nil, fmt.Errorf("account %s updated twice in one commit", update.AccountNumber)
		}
		snapshot := current.Clone()
		snapshot.Balance = update.Balance
		snapshot.Version = current.Version + 1
		snapshot.UpdatedAt = now
		snapshots = append(snapshots, snapshot)
	}

	seen := make(map[string]struct{}, len(commit.Records))
	for _, record := range commit.Records {
		id := record.TransactionID
		_, inCommit := seen[id]
		_, stored := m.byID[id]
		_, inFlight := m.reserved[id]
		if inCommit || stored || inFlight {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateTransactionID, id)
		}
		seen[id] = struct{}{}
	}
	for _, record := range commit.Records {
		m.reserved[record.TransactionID] = struct{}{}
		m.nextSeq++
		record.Sequence = m.nextSeq
	}
	return snapshots, nil
}

// GetTransaction 依交易編號查詢
func (m *MutexLedger) GetTransaction(ctx context.Context, transactionID string) (*domain.TransactionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.byID[transactionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTransactionNotFound, transactionID)
	}
	return record.Clone(), nil
}

// TransactionExists 包含正在提交中的編號
func (m *MutexLedger) TransactionExists(ctx context.Context, transactionID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, stored := m.byID[transactionID]
	_, inFlight := m.reserved[transactionID]
	return stored || inFlight, nil
}

// ListTransactions 依提交順序
func (m *MutexLedger) ListTransactions(ctx context.Context, accountNumber string) ([]*domain.TransactionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneRecords(m.byAccount[accountNumber]), nil
}

// RecentTransactions Timestamp DESC, Sequence DESC 取前 limit 筆
func (m *MutexLedger) RecentTransactions(ctx context.Context, accountNumber string, limit int) ([]*domain.TransactionRecord, error) {
	m.mu.RLock()
	records := cloneRecords(m.byAccount[accountNumber])
	m.mu.RUnlock()

	domain.SortNewestFirst(records)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// SearchTransactions 在 OwnerID 名下帳戶中過濾
func (m *MutexLedger) SearchTransactions(ctx context.Context, query domain.SearchQuery) ([]*domain.TransactionRecord, int64, error) {
	criteria := query.Criteria
	matched := make([]*domain.TransactionRecord, 0)

	m.mu.RLock()
	for number, account := range m.accounts {
		if !account.OwnedBy(query.OwnerID) {
			continue
		}
		if criteria.AccountNumber != "" && criteria.AccountNumber != number {
			continue
		}
		for _, record := range m.byAccount[number] {
			if criteria.Matches(record) {
				matched = append(matched, record.Clone())
			}
		}
	}
	m.mu.RUnlock()

	domain.SortNewestFirst(matched)
	total := int64(len(matched))
	return paginate(matched, query.Offset, query.Limit), total, nil
}

func paginate(records []*domain.TransactionRecord, offset, limit int) []*domain.TransactionRecord {
	if offset >= len(records) {
		return []*domain.TransactionRecord{}
	}
	if offset > 0 {
		records = records[offset:]
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records
}

func cloneRecords(records []*domain.TransactionRecord) []*domain.TransactionRecord {
	out := make([]*domain.TransactionRecord, len(records))
	for i, record := range records {
		out[i] = record.Clone()
	}
	return out
}

var _ usecase.Ledger = (*MutexLedger)(nil)
