package events

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrQueueFull 缓冲区已满，事件被丢弃
var ErrQueueFull = errors.New("event queue full")

// Async 在后台 goroutine 中发布事件，PublishClick 只入队不等待 broker
type Async struct {
	next   Publisher
	queue  chan ClickEvent
	logger *zap.SugaredLogger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewAsync 包装 next，buffer 为队列长度
func NewAsync(next Publisher, buffer int, logger *zap.SugaredLogger) *Async {
	if buffer <= 0 {
		buffer = 1
	}
	a := &Async{
		next:   next,
		queue:  make(chan ClickEvent, buffer),
		logger: logger.Named("events"),
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

// PublishClick 事件入队；队列满或已关闭时丢弃并返回错误
func (a *Async) PublishClick(_ context.Context, event ClickEvent) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrQueueFull
	}
	select {
	case a.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

func (a *Async) run() {
	defer close(a.done)
	for event := range a.queue {
		if err := a.next.PublishClick(context.Background(), event); err != nil {
			a.logger.Warnf("发布点击事件失败 %s: %v", event.Code, err)
		}
	}
}

// Close 发完队列中剩余事件后关闭下游
func (a *Async) Close() error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	<-a.done
	return a.next.Close()
}
