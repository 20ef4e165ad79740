// Package funnel 实现点击验证漏斗：begin 发放一次性会话，complete 消费会话、
// 校验服务端测得的停留时间与设备指纹，再交给欺诈过滤器计数。
//
// 会话无论结果如何都只能使用一次；业务拒绝以 ClickResult 返回，不是错误。
package funnel

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"linkpay-platform/internal/events"
	"linkpay-platform/internal/fraud"
	"linkpay-platform/internal/metrics"
	"linkpay-platform/internal/registry"
)

// 拒绝原因
const (
	ReasonTooFast            = "too fast"
	ReasonFingerprintMissing = "fingerprint missing"
	ReasonSessionNotFound    = "session not found"
	ReasonSessionExpired     = "session expired"
	ReasonSessionReplayed    = "session replayed"
)

var ErrLinkNotFound = errors.New("link not found")

var tracer = otel.Tracer("linkpay/funnel")

// Links 用于校验短码是否存在
type Links interface {
	Destination(ctx context.Context, code string) (string, error)
}

// Recorder 欺诈过滤与计数
type Recorder interface {
	RecordIfFirstSeen(ctx context.Context, code, fingerprint, ip string) (fraud.Verdict, error)
}

// Policy 漏斗策略
type Policy struct {
	MinDwell time.Duration
	TTL      time.Duration
}

// ClickResult 完成请求的结果
type ClickResult struct {
	Accepted    bool   `json:"accepted"`
	Reason      string `json:"reason,omitempty"`
	RedirectURL string `json:"redirectUrl,omitempty"`
	ClickCount  int64  `json:"clickCount,omitempty"`
}

// Funnel 验证漏斗
type Funnel struct {
	links     Links
	sessions  SessionStore
	filter    Recorder
	policy    Policy
	now       func() time.Time
	metrics   *metrics.Metrics
	publisher events.Publisher
	logger    *zap.SugaredLogger
}

// Option 漏斗选项
type Option func(*Funnel)

// WithClock 替换时钟，测试使用
func WithClock(now func() time.Time) Option {
	return func(f *Funnel) { f.now = now }
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Funnel) { f.metrics = m }
}

// WithPublisher 设置事件发布者
func WithPublisher(p events.Publisher) Option {
	return func(f *Funnel) { f.publisher = p }
}

// New 创建漏斗
func New(links Links, sessions SessionStore, filter Recorder, policy Policy, logger *zap.SugaredLogger, opts ...Option) *Funnel {
	f := &Funnel{
		links:     links,
		sessions:  sessions,
		filter:    filter,
		policy:    policy,
		now:       time.Now,
		publisher: events.Nop{},
		logger:    logger.Named("funnel"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Policy 返回当前策略
func (f *Funnel) Policy() Policy {
	return f.policy
}

// Begin 校验短码并发放会话，停留时间从这里开始计算
func (f *Funnel) Begin(ctx context.Context, code string) (Session, error) {
	ctx, span := tracer.Start(ctx, "funnel.Begin")
	defer span.End()
	span.SetAttributes(attribute.String("link.code", code))

	if _, err := f.links.Destination(ctx, code); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return Session{}, ErrLinkNotFound
		}
		return Session{}, err
	}

	token, err := NewToken()
	if err != nil {
		return Session{}, err
	}
	now := f.now()
	sess := Session{
		Token:     token,
		Code:      code,
		IssuedAt:  now,
		ExpiresAt: now.Add(f.policy.TTL),
	}
	if err := f.sessions.Save(ctx, sess); err != nil {
		f.logger.Errorf("保存会话失败 code=%s: %v", code, err)
		return Session{}, err
	}
	f.metrics.SessionStarted()
	return sess, nil
}

// Complete 消费会话并尝试计数。返回 error 只表示存储故障，此时点击未被计数。
func (f *Funnel) Complete(ctx context.Context, token, fingerprint, ip string) (ClickResult, error) {
	ctx, span := tracer.Start(ctx, "funnel.Complete")
	defer span.End()

	now := f.now()
	sess, err := f.sessions.Consume(ctx, token, now)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return f.reject(ctx, "", ReasonSessionNotFound), nil
	case errors.Is(err, ErrSessionReplayed):
		return f.reject(ctx, "", ReasonSessionReplayed), nil
	case err != nil:
		f.logger.Errorf("消费会话失败: %v", err)
		return ClickResult{}, err
	}
	span.SetAttributes(attribute.String("link.code", sess.Code))

	if !now.Before(sess.IssuedAt.Add(f.policy.TTL)) {
		return f.reject(ctx, sess.Code, ReasonSessionExpired), nil
	}
	if now.Sub(sess.IssuedAt) < f.policy.MinDwell {
		return f.reject(ctx, sess.Code, ReasonTooFast), nil
	}
	if strings.TrimSpace(fingerprint) == "" {
		return f.reject(ctx, sess.Code, ReasonFingerprintMissing), nil
	}

	v, err := f.filter.RecordIfFirstSeen(ctx, sess.Code, fingerprint, ip)
	if err != nil {
		return ClickResult{}, err
	}
	if !v.Accepted {
		return f.reject(ctx, sess.Code, v.Reason), nil
	}

	f.metrics.Click(true, "")
	f.publish(ctx, events.ClickEvent{Code: sess.Code, Accepted: true, ClickCount: v.Count, OccurredAt: now})
	return ClickResult{Accepted: true, RedirectURL: v.Destination, ClickCount: v.Count}, nil
}

func (f *Funnel) reject(ctx context.Context, code, reason string) ClickResult {
	f.logger.Debugf("点击被拒绝 code=%s reason=%s", code, reason)
	f.metrics.Click(false, reason)
	if code != "" {
		f.publish(ctx, events.ClickEvent{Code: code, Reason: reason, OccurredAt: f.now()})
	}
	return ClickResult{Reason: reason}
}

func (f *Funnel) publish(ctx context.Context, e events.ClickEvent) {
	if err := f.publisher.PublishClick(ctx, e); err != nil {
		f.logger.Warnf("发布点击事件失败 code=%s: %v", e.Code, err)
	}
}
