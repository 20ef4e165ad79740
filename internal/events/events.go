// Package events 发布点击结果事件，供下游统计消费。
// 事件只是通知：发布失败不影响点击是否计数。
package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// 路由键
const (
	RoutingAccepted = "click.accepted"
	RoutingRejected = "click.rejected"
)

// ClickEvent 一次漏斗完成的结果
type ClickEvent struct {
	Code       string    `json:"code"`
	Accepted   bool      `json:"accepted"`
	Reason     string    `json:"reason,omitempty"`
	ClickCount int64     `json:"click_count"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RoutingKey 按结果选择路由键
func (e ClickEvent) RoutingKey() string {
	if e.Accepted {
		return RoutingAccepted
	}
	return RoutingRejected
}

// Publisher 事件发布者
type Publisher interface {
	PublishClick(ctx context.Context, event ClickEvent) error
	Close() error
}

// Nop 不发布任何事件
type Nop struct{}

func (Nop) PublishClick(context.Context, ClickEvent) error { return nil }
func (Nop) Close() error                                   { return nil }

// Channel 是 AMQP 发布所需的最小通道接口，测试中可替换
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher 通过 RabbitMQ topic 交换机发布事件
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  Channel
	exchange string
	logger   *zap.SugaredLogger
}

// Dial 连接 RabbitMQ 并声明交换机
func Dial(url, exchange string, logger *zap.SugaredLogger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	p, err := NewAMQPPublisher(ch, exchange, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewAMQPPublisher 在已有通道上创建发布者
func NewAMQPPublisher(ch Channel, exchange string, logger *zap.SugaredLogger) (*AMQPPublisher, error) {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, err
	}
	return &AMQPPublisher{
		channel:  ch,
		exchange: exchange,
		logger:   logger.Named("events"),
	}, nil
}

// PublishClick 发布点击事件
func (p *AMQPPublisher) PublishClick(ctx context.Context, event ClickEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	// amqp 通道不是并发安全的
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel.PublishWithContext(ctx, p.exchange, event.RoutingKey(), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
}

// Close 关闭通道与连接
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.channel.Close()
	if p.conn != nil {
		err = errors.Join(err, p.conn.Close())
	}
	return err
}
