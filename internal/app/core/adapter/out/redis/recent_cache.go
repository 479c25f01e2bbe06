package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

// DefaultRecentTTL 快取鍵帶有帳戶版本，TTL 只用來回收舊版本
const DefaultRecentTTL = 10 * time.Minute

type cachedRecord struct {
	Sequence                  uint64          `json:"seq"`
	TransactionID             string          `json:"transactionId"`
	AccountNumber             string          `json:"accountNumber"`
	Type                      string          `json:"type"`
	Amount                    decimal.Decimal `json:"amount"`
	BalanceAfter              decimal.Decimal `json:"balanceAfter"`
	Timestamp                 time.Time       `json:"timestamp"`
	Status                    string          `json:"status"`
	CounterpartyAccountNumber string          `json:"counterpartyAccountNumber,omitempty"`
}

// RecentCache 以 Redis 實作 usecase.RecentCache
//
// 讀寫失敗都只記 log 並視為未命中，快取壞掉不影響查詢結果。
type RecentCache struct {
	client goredis.UniversalClient
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

// NewRecentCache 建立最近交易快取，ttl <= 0 時使用 DefaultRecentTTL
func NewRecentCache(client goredis.UniversalClient, ttl time.Duration, logger *slog.Logger) *RecentCache {
	if ttl <= 0 {
		ttl = DefaultRecentTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RecentCache{
		client: client,
		ttl:    ttl,
		prefix: "ledger:",
		logger: logger.With("component", "recent-cache"),
	}
}

// Get 讀取快取
func (c *RecentCache) Get(ctx context.Context, key string) ([]*domain.TransactionRecord, bool) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.logger.Warn("cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	var cached []cachedRecord
	if err := json.Unmarshal(data, &cached); err != nil {
		c.logger.Warn("cache decode failed", "key", key, "error", err)
		return nil, false
	}
	records := make([]*domain.TransactionRecord, len(cached))
	for i, r := range cached {
		records[i] = &domain.TransactionRecord{
			Sequence:                  r.Sequence,
			TransactionID:             r.TransactionID,
			AccountNumber:             r.AccountNumber,
			Type:                      domain.TransactionType(r.Type),
			Amount:                    r.Amount,
			BalanceAfter:              r.BalanceAfter,
			Timestamp:                 r.Timestamp.UTC(),
			Status:                    domain.TransactionStatus(r.Status),
			CounterpartyAccountNumber: r.CounterpartyAccountNumber,
		}
	}
	return records, true
}

// Set 寫入快取
func (c *RecentCache) Set(ctx context.Context, key string, records []*domain.TransactionRecord) {
	cached := make([]cachedRecord, len(records))
	for i, r := range records {
		cached[i] = cachedRecord{
			Sequence:                  r.Sequence,
			TransactionID:             r.TransactionID,
			AccountNumber:             r.AccountNumber,
			Type:                      string(r.Type),
			Amount:                    r.Amount,
			BalanceAfter:              r.BalanceAfter,
			Timestamp:                 r.Timestamp,
			Status:                    string(r.Status),
			CounterpartyAccountNumber: r.CounterpartyAccountNumber,
		}
	}
	data, err := json.Marshal(cached)
	if err != nil {
		c.logger.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

var _ usecase.RecentCache = (*RecentCache)(nil)
