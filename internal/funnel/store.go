package funnel

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"linkpay-platform/internal/model"
)

// tokenBytes 256 位随机数
const tokenBytes = 32

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionReplayed = errors.New("session replayed")
)

// Session 漏斗会话
type Session struct {
	Token     string    `json:"token"`
	Code      string    `json:"code"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStore 会话存储。Consume 必须是原子的：同一个 token 并发消费只有一方成功，
// 其余得到 ErrSessionReplayed 或 ErrSessionNotFound。
type SessionStore interface {
	Save(ctx context.Context, s Session) error
	Consume(ctx context.Context, token string, now time.Time) (Session, error)
	// Purge 删除 before 之前过期的会话，返回删除数量
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// NewToken 生成不透明的会话 token
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GormStore 基于数据库的会话存储
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 创建数据库会话存储
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Save(ctx context.Context, sess Session) error {
	return s.db.WithContext(ctx).Create(&model.ClickSession{
		Token:     sess.Token,
		ShortCode: sess.Code,
		IssuedAt:  sess.IssuedAt,
		ExpiresAt: sess.ExpiresAt,
	}).Error
}

// Consume 用条件更新 consumed=false → true 完成一次性消费
func (s *GormStore) Consume(ctx context.Context, token string, now time.Time) (Session, error) {
	db := s.db.WithContext(ctx)
	res := db.Model(&model.ClickSession{}).
		Where("token = ? AND consumed = ?", token, false).
		Updates(map[string]interface{}{"consumed": true, "consumed_at": now})
	if res.Error != nil {
		return Session{}, res.Error
	}

	var row model.ClickSession
	err := db.Where("token = ?", token).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, err
	}
	if res.RowsAffected == 0 {
		return Session{}, ErrSessionReplayed
	}
	return Session{Token: row.Token, Code: row.ShortCode, IssuedAt: row.IssuedAt, ExpiresAt: row.ExpiresAt}, nil
}

func (s *GormStore) Purge(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at < ?", before).Delete(&model.ClickSession{})
	return res.RowsAffected, res.Error
}

const (
	sessionPrefix = "funnel:session:"
	// 已消费标记，用于区分重放和不存在
	consumedPrefix = "funnel:consumed:"
)

// RedisStore 基于 Redis 的会话存储，过期由 key TTL 负责
type RedisStore struct {
	client *redis.Client
	logger *zap.SugaredLogger
}

// NewRedisStore 创建 Redis 会话存储
func NewRedisStore(client *redis.Client, logger *zap.SugaredLogger) *RedisStore {
	return &RedisStore{client: client, logger: logger.Named("sessions")}
}

func (s *RedisStore) Save(ctx context.Context, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	ok, err := s.client.SetNX(ctx, sessionPrefix+sess.Token, data, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("session token collision")
	}
	return nil
}

// Consume 使用 GETDEL，只有一个调用方能拿到值
func (s *RedisStore) Consume(ctx context.Context, token string, now time.Time) (Session, error) {
	data, err := s.client.GetDel(ctx, sessionPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		n, eerr := s.client.Exists(ctx, consumedPrefix+token).Result()
		if eerr == nil && n > 0 {
			return Session{}, ErrSessionReplayed
		}
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, err
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, err
	}
	ttl := sess.ExpiresAt.Sub(now)
	if ttl < time.Minute {
		ttl = time.Minute
	}
	// 会话已被 GETDEL 取走，标记写失败只影响重放时的拒绝原因
	if err := s.client.Set(ctx, consumedPrefix+token, 1, ttl).Err(); err != nil {
		s.logger.Warnf("写入会话消费标记失败 %s: %v", sess.Code, err)
	}
	return sess, nil
}

// Purge Redis 依赖 key 过期，无需清理
func (s *RedisStore) Purge(context.Context, time.Time) (int64, error) {
	return 0, nil
}
