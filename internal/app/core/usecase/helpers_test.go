package usecase_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

const (
	owner      = "CU12783354"
	otherOwner = "CU99999999"
	accountA   = "47288276269"
	accountB   = "47288276270"
	accountC   = "51234567890"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

// tickingClock 每次呼叫前進一秒，讓時間排序可預期
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTickingClock() *tickingClock {
	return &tickingClock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newLedger(t *testing.T) *memory.MutexLedger {
	t.Helper()
	ledger, err := memory.NewMutexLedger(nil)
	require.NoError(t, err)
	return ledger
}

func newEngine(t *testing.T, ledger usecase.Ledger, opts ...usecase.Option) *usecase.CoreUseCase {
	t.Helper()
	base := []usecase.Option{
		usecase.WithClock(newTickingClock().Now),
		usecase.WithLogger(slog.New(slog.DiscardHandler)),
		usecase.WithRetryPolicy(usecase.DefaultMaxAttempts, time.Microsecond, time.Millisecond),
	}
	return usecase.NewCoreUseCase(ledger, append(base, opts...)...)
}

func seedAccount(t *testing.T, store usecase.AccountStore, number, ownerID, balance string) *domain.Account {
	t.Helper()
	account := domain.NewAccount(number, ownerID, domain.AccountTypeSavings, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	account.Balance = dec(balance)
	require.NoError(t, store.CreateAccount(context.Background(), account))
	return account
}

func balanceOf(t *testing.T, store usecase.AccountStore, number string) decimal.Decimal {
	t.Helper()
	account, err := store.GetAccount(context.Background(), number)
	require.NoError(t, err)
	return account.Balance
}

func journalLen(t *testing.T, journal usecase.Journal, number string) int {
	t.Helper()
	records, err := journal.ListTransactions(context.Background(), number)
	require.NoError(t, err)
	return len(records)
}

// faultyLedger 在 Commit 時注入錯誤
type faultyLedger struct {
	*memory.MutexLedger
	mu        sync.Mutex
	commitErr error
	commits   int
}

func (f *faultyLedger) Commit(ctx context.Context, commit *domain.Commit) error {
	f.mu.Lock()
	f.commits++
	err := f.commitErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.MutexLedger.Commit(ctx, commit)
}

func (f *faultyLedger) commitCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commits
}

// mapCache 記憶體版 RecentCache
type mapCache struct {
	mu   sync.Mutex
	data map[string][]*domain.TransactionRecord
	hits int
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]*domain.TransactionRecord)}
}

func (c *mapCache) Get(ctx context.Context, key string) ([]*domain.TransactionRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	records, ok := c.data[key]
	if ok {
		c.hits++
	}
	return records, ok
}

func (c *mapCache) Set(ctx context.Context, key string, records []*domain.TransactionRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = records
}

type capturePublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *capturePublisher) Publish(ctx context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}
