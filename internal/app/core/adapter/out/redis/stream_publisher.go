package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

// DefaultStreamMaxLen 每個 stream 大約保留的筆數
const DefaultStreamMaxLen = 100000

// StreamPublisher 將事件 XADD 到 Redis Stream (stream 名稱為 event.Stream)
type StreamPublisher struct {
	client goredis.UniversalClient
	maxLen int64
}

// NewStreamPublisher maxLen <= 0 時使用 DefaultStreamMaxLen
func NewStreamPublisher(client goredis.UniversalClient, maxLen int64) *StreamPublisher {
	if maxLen <= 0 {
		maxLen = DefaultStreamMaxLen
	}
	return &StreamPublisher{client: client, maxLen: maxLen}
}

// Publish 寫入一筆事件
//
// 欄位: type / timestamp (RFC3339Nano) / data (JSON)
func (p *StreamPublisher) Publish(ctx context.Context, event domain.Event) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	args := &goredis.XAddArgs{
		Stream: event.Stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"type":      event.Type,
			"timestamp": event.Timestamp.UTC().Format(time.RFC3339Nano),
			"data":      string(data),
		},
	}
	if _, err := p.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

var _ usecase.EventPublisher = (*StreamPublisher)(nil)
