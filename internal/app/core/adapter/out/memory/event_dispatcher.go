package memory

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

var (
	// ErrDispatcherFull 輸送帶已滿，事件被丟棄
	ErrDispatcherFull = errors.New("event dispatcher queue is full")
	// ErrDispatcherStopped run loop 已結束，不再接收事件
	ErrDispatcherStopped = errors.New("event dispatcher is stopped")
)

// EventDispatcher 非同步事件發佈
//
// Publish 只把事件放上輸送帶，由單一 goroutine 的 run loop 依序交給下游 Publisher，
// 交易請求的延遲不包含 broker 的往返時間。
type EventDispatcher struct {
	next   usecase.EventPublisher
	logger *slog.Logger
	// 輸送帶 負責接收事件
	events chan domain.Event
	done   chan struct{}
	once   sync.Once

	// stopMu 保護 stopped：設定後不會再有事件進入輸送帶，drain 才能收乾淨
	stopMu  sync.RWMutex
	stopped bool
}

// NewEventDispatcher 建立一個新的 EventDispatcher 實例
//
// 參數:
//
//	next: 實際發佈事件的 Publisher
//	buffer: 輸送帶容量
//	logger: 發佈失敗時記錄
//
// 回傳:
//
//	*EventDispatcher: 需呼叫 Start 才會開始消化事件
func NewEventDispatcher(next usecase.EventPublisher, buffer int, logger *slog.Logger) *EventDispatcher {
	if buffer <= 0 {
		buffer = 1024
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EventDispatcher{
		next:   next,
		logger: logger.With("component", "event_dispatcher"),
		events: make(chan domain.Event, buffer),
		done:   make(chan struct{}),
	}
}

// Publish 放入輸送帶，滿了回傳 ErrDispatcherFull，停止後回傳 ErrDispatcherStopped
func (d *EventDispatcher) Publish(ctx context.Context, event domain.Event) error {
	d.stopMu.RLock()
	defer d.stopMu.RUnlock()
	if d.stopped {
		return ErrDispatcherStopped
	}
	select {
	case d.events <- event:
		return nil
	default:
		return ErrDispatcherFull
	}
}

// Start 啟動 run loop (非同步)，ctx 結束時把剩下的事件送完再離開
func (d *EventDispatcher) Start(ctx context.Context) {
	d.once.Do(func() {
		go d.run(ctx)
	})
}

// Done run loop 結束 (已 drain) 後關閉
func (d *EventDispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *EventDispatcher) run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			// 收到關閉信號，先擋住新的事件，再把剩下的事件處理完
			d.stopMu.Lock()
			d.stopped = true
			d.stopMu.Unlock()
			d.drain()
			return
		case event := <-d.events:
			d.dispatch(event)
		}
	}
}

func (d *EventDispatcher) drain() {
	for {
		select {
		case event := <-d.events:
			d.dispatch(event)
		default:
			return
		}
	}
}

func (d *EventDispatcher) dispatch(event domain.Event) {
	// 原請求的 ctx 可能早已結束，這裡用獨立的 ctx
	if err := d.next.Publish(context.Background(), event); err != nil {
		d.logger.Warn("publish event failed", "type", event.Type, "stream", event.Stream, "error", err)
	}
}

var _ usecase.EventPublisher = (*EventDispatcher)(nil)
