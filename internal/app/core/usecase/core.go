package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/singleflight"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

const (
	// DefaultMaxAttempts 樂觀重試的預設次數上限
	DefaultMaxAttempts = 10
	// DefaultBackoffInitial / DefaultBackoffMax 重試間隔 (指數成長 + 抖動)
	DefaultBackoffInitial = time.Millisecond
	DefaultBackoffMax     = 50 * time.Millisecond
)

// CoreUseCase 是核心業務邏輯層 (Ledger Engine + Query Service)
type CoreUseCase struct {
	ledger    Ledger
	allocator *IDAllocator
	cache     RecentCache
	publisher EventPublisher
	logger    *slog.Logger
	clock     Clock

	maxAttempts    int
	backoffInitial time.Duration
	backoffMax     time.Duration

	recentGroup singleflight.Group
}

// Option CoreUseCase 選項
type Option func(*CoreUseCase)

// WithAllocator 使用自訂配號器
func WithAllocator(allocator *IDAllocator) Option {
	return func(c *CoreUseCase) {
		c.allocator = allocator
	}
}

// WithRecentCache 啟用最近交易快取
func WithRecentCache(cache RecentCache) Option {
	return func(c *CoreUseCase) {
		c.cache = cache
	}
}

// WithEventPublisher 啟用事件發佈
func WithEventPublisher(publisher EventPublisher) Option {
	return func(c *CoreUseCase) {
		c.publisher = publisher
	}
}

// WithLogger 設定 logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *CoreUseCase) {
		c.logger = logger
	}
}

// WithClock 設定時間來源
func WithClock(clock Clock) Option {
	return func(c *CoreUseCase) {
		c.clock = clock
	}
}

// WithRetryPolicy 設定樂觀重試次數與間隔
func WithRetryPolicy(maxAttempts int, initial, max time.Duration) Option {
	return func(c *CoreUseCase) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		if initial > 0 {
			c.backoffInitial = initial
		}
		if max > 0 {
			c.backoffMax = max
		}
	}
}

// NewCoreUseCase 建立核心業務邏輯層
//
// 參數:
//
//	ledger: 帳戶與交易紀錄的儲存實作
//	opts: 選項 (快取、事件、logger、重試策略...)
//
// 回傳:
//
//	*CoreUseCase: 可並發使用的實例
func NewCoreUseCase(ledger Ledger, opts ...Option) *CoreUseCase {
	c := &CoreUseCase{
		ledger:         ledger,
		logger:         slog.Default(),
		clock:          time.Now,
		maxAttempts:    DefaultMaxAttempts,
		backoffInitial: DefaultBackoffInitial,
		backoffMax:     DefaultBackoffMax,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.allocator == nil {
		c.allocator = NewIDAllocator(ledger, ledger)
	}
	c.logger = c.logger.With("component", "ledger")
	return c
}

// now 交易時間統一為 UTC 並截到微秒，與 SQL datetime(6) 一致
func (c *CoreUseCase) now() time.Time {
	return c.clock().UTC().Truncate(time.Microsecond)
}

func isRetryable(err error) bool {
	return errors.Is(err, domain.ErrVersionConflict) || errors.Is(err, domain.ErrDuplicateTransactionID)
}

// withRetry 執行一次樂觀交易流程
//
// attempt 每次都從讀取帳戶開始；版本衝突或交易編號重複時退避後重來，
// 其他錯誤 (驗證錯誤、儲存錯誤) 直接回傳。次數用盡回傳 domain.ErrContention。
func (c *CoreUseCase) withRetry(ctx context.Context, op string, attempt func() (*domain.Commit, error)) (*domain.Commit, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.backoffInitial
	b.MaxInterval = c.backoffMax
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxAttempts-1)), ctx)

	attempts := 0
	commit, err := backoff.RetryWithData(func() (*domain.Commit, error) {
		attempts++
		if err := ctx.Err(); err != nil {
			return nil, backoff.Permanent(err)
		}
		commit, err := attempt()
		if err != nil {
			if isRetryable(err) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return commit, nil
	}, policy)
	if err != nil {
		if isRetryable(err) {
			c.logger.Warn("optimistic retries exhausted", "op", op, "attempts", attempts, "error", err)
			return nil, fmt.Errorf("%w: %s gave up after %d attempts", domain.ErrContention, op, attempts)
		}
		return nil, err
	}
	return commit, nil
}

// afterCommit 發佈交易事件 (best effort)
func (c *CoreUseCase) afterCommit(ctx context.Context, commit *domain.Commit) {
	for _, record := range commit.Records {
		c.logger.Debug("transaction posted",
			"transaction_id", record.TransactionID,
			"account", record.AccountNumber,
			"type", record.Type,
			"amount", record.Amount.String(),
			"balance_after", record.BalanceAfter.String(),
		)
		c.publish(ctx, domain.NewTransactionPostedEvent(record))
	}
}

func (c *CoreUseCase) publish(ctx context.Context, event domain.Event) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, event); err != nil {
		c.logger.Warn("publish event failed", "type", event.Type, "error", err)
	}
}

// loadOwnedAccount 讀取帳戶並檢查擁有者
func (c *CoreUseCase) loadOwnedAccount(ctx context.Context, ownerID, accountNumber string) (*domain.Account, error) {
	account, err := c.ledger.GetAccount(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	if !account.OwnedBy(ownerID) {
		return nil, fmt.Errorf("%w: %s", domain.ErrForbidden, accountNumber)
	}
	return account, nil
}
