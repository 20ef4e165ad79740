package shortcode

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"math/big"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// Charset 包含用于生成短码的所有字符
	Charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// CodeLength 是生成的短码的长度，62^7 约 3.5e12
	CodeLength = 7
	// MaxAttempts 是单次生成允许的最大冲突次数
	MaxAttempts = 10
)

// ErrExhausted 连续 MaxAttempts 次生成的短码都已存在
var ErrExhausted = errors.New("short code generation exhausted")

// Generator 生成在 short_links 表中唯一的短码
type Generator struct {
	db          *gorm.DB
	logger      *zap.SugaredLogger
	random      io.Reader
	length      int
	maxAttempts int
}

// Option 调整生成器参数
type Option func(*Generator)

// WithRandom 替换随机源
func WithRandom(r io.Reader) Option {
	return func(g *Generator) { g.random = r }
}

// WithLength 设置短码长度
func WithLength(n int) Option {
	return func(g *Generator) { g.length = n }
}

// NewGenerator 创建一个新的短码生成器实例
func NewGenerator(db *gorm.DB, logger *zap.SugaredLogger, opts ...Option) *Generator {
	g := &Generator{
		db:          db,
		logger:      logger.Named("shortcode_generator"),
		random:      rand.Reader,
		length:      CodeLength,
		maxAttempts: MaxAttempts,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate 生成一个数据库中尚不存在的短码
// 插入时仍可能与并发请求冲突，调用方需依赖唯一索引兜底
func (g *Generator) Generate(ctx context.Context) (string, error) {
	for i := 0; i < g.maxAttempts; i++ {
		code, err := g.generateRandomString(g.length)
		if err != nil {
			return "", err
		}
		exists, err := g.isCodeExist(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	g.logger.Warnf("已尝试%d次生成短码，但均存在冲突。", g.maxAttempts)
	return "", ErrExhausted
}

// generateRandomString 使用加密安全的随机数生成器生成一个给定长度的字符串
func (g *Generator) generateRandomString(length int) (string, error) {
	b := make([]byte, length)
	max := big.NewInt(int64(len(Charset)))
	for i := range b {
		num, err := rand.Int(g.random, max)
		if err != nil {
			return "", err
		}
		b[i] = Charset[num.Int64()]
	}
	return string(b), nil
}

// isCodeExist 检查短码是否存在，包含已软删除的链接，已删除链接的短码不再复用
func (g *Generator) isCodeExist(ctx context.Context, code string) (bool, error) {
	var count int64
	err := g.db.WithContext(ctx).Unscoped().Table("short_links").Where("short_code = ?", code).Count(&count).Error
	if err != nil {
		g.logger.Errorf("查询数据库时出错: %v", err)
		return false, err
	}
	return count > 0, nil
}
