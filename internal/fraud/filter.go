// Package fraud 保证每个 (链接, 设备) 最多计数一次。
//
// 唯一性由存储层的唯一索引保证，跨进程同样成立；进程内再按短码加锁，
// 让同一链接的并发完成请求排队进入事务，避免在数据库上争抢写锁。
package fraud

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"linkpay-platform/internal/keylock"
	"linkpay-platform/internal/registry"
)

// 拒绝原因，作为稳定字符串返回给客户端
const (
	ReasonDuplicateDevice = "duplicate device"
	ReasonDuplicateIP     = "duplicate ip"
	ReasonLinkNotFound    = "link not found"
)

var tracer = otel.Tracer("linkpay/fraud")

// Incrementer 是注册表提供的原子计数原语
type Incrementer interface {
	IncrementIfNewFingerprint(ctx context.Context, code, fingerprintHash, ipHash string) (registry.Increment, error)
}

// Verdict 过滤结果
type Verdict struct {
	Accepted    bool
	Reason      string
	Count       int64
	Destination string
}

// Filter 欺诈过滤器
type Filter struct {
	links   Incrementer
	locks   *keylock.Locker
	ipDedup bool
	ipSalt  string
	logger  *zap.SugaredLogger
}

// Options 过滤器选项
type Options struct {
	IPDedup bool
	IPSalt  string
}

// New 创建过滤器
func New(links Incrementer, opts Options, logger *zap.SugaredLogger) *Filter {
	return &Filter{
		links:   links,
		locks:   keylock.New(),
		ipDedup: opts.IPDedup,
		ipSalt:  opts.IPSalt,
		logger:  logger.Named("fraud"),
	}
}

// RecordIfFirstSeen 在指纹首次出现时记录并计数。
// 同一指纹重试只会得到 duplicate device，不会重复计数。
// 返回 error 表示存储失败，此时点击一定没有被计数。
func (f *Filter) RecordIfFirstSeen(ctx context.Context, code, fingerprint, ip string) (Verdict, error) {
	ctx, span := tracer.Start(ctx, "fraud.RecordIfFirstSeen")
	defer span.End()
	span.SetAttributes(attribute.String("link.code", code))

	fpHash := HashFingerprint(fingerprint)
	ipHash := ""
	if f.ipDedup && ip != "" {
		ipHash = HashIP(f.ipSalt, ip)
	}

	unlock := f.locks.Lock(code)
	inc, err := f.links.IncrementIfNewFingerprint(ctx, code, fpHash, ipHash)
	unlock()

	if errors.Is(err, registry.ErrNotFound) {
		return Verdict{Reason: ReasonLinkNotFound}, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "increment failed")
		f.logger.Errorf("记录指纹失败 code=%s: %v", code, err)
		return Verdict{}, err
	}

	v := Verdict{Accepted: inc.Accepted, Count: inc.Count, Destination: inc.Destination}
	switch inc.Duplicate {
	case registry.DuplicateFingerprint:
		v.Reason = ReasonDuplicateDevice
	case registry.DuplicateIP:
		v.Reason = ReasonDuplicateIP
	}
	span.SetAttributes(attribute.Bool("click.accepted", v.Accepted))
	return v, nil
}

// HashFingerprint 把客户端指纹规整后做 SHA-256，存储长度固定且不保留原文
func HashFingerprint(fingerprint string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(fingerprint)))
	return hex.EncodeToString(sum[:])
}

// HashIP 加盐哈希 IP
func HashIP(salt, ip string) string {
	sum := sha256.Sum256([]byte(salt + "|" + strings.TrimSpace(ip)))
	return hex.EncodeToString(sum[:])
}
