// Package registry 管理短码到目标地址的映射以及点击计数。
//
// click_count 只在 IncrementIfNewFingerprint 中修改：同一事务内先以唯一索引
// (short_link_id, fingerprint_hash) 插入指纹，插入成功才自增计数，提交后才返回成功。
// 因此 click_count 始终等于该链接已记录的指纹数量。
package registry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"linkpay-platform/internal/model"
	"linkpay-platform/internal/shortcode"
)

const (
	cachePrefix = "shortlink:"
	cacheTTL    = 24 * time.Hour
	// createAttempts 是插入时遇到唯一索引冲突的重试次数
	createAttempts = 3
	maxURLLength   = 2048
)

var (
	ErrNotFound                = errors.New("short link not found")
	ErrInvalidURL              = errors.New("invalid destination url")
	ErrCodeGenerationExhausted = shortcode.ErrExhausted

	errDuplicateIP = errors.New("duplicate ip")
)

// 重复来源
const (
	DuplicateFingerprint = "fingerprint"
	DuplicateIP          = "ip"
)

// CodeGenerator 生成候选短码
type CodeGenerator interface {
	Generate(ctx context.Context) (string, error)
}

// Increment 是一次计数尝试的结果
type Increment struct {
	Accepted    bool
	Duplicate   string
	Count       int64
	Destination string
}

// Stats 全站汇总
type Stats struct {
	TotalLinks  int64 `json:"totalLinks"`
	TotalClicks int64 `json:"totalClicks"`
}

// Registry 短链接注册表
type Registry struct {
	db     *gorm.DB
	redis  *redis.Client
	codes  CodeGenerator
	logger *zap.SugaredLogger
	group  singleflight.Group
}

// New 创建注册表，redisClient 可以为 nil
func New(db *gorm.DB, redisClient *redis.Client, codes CodeGenerator, logger *zap.SugaredLogger) *Registry {
	return &Registry{
		db:     db,
		redis:  redisClient,
		codes:  codes,
		logger: logger.Named("registry"),
	}
}

// Create 为 ownerID 创建短链接
func (r *Registry) Create(ctx context.Context, destinationURL string, ownerID uint) (*model.ShortLink, error) {
	destinationURL = strings.TrimSpace(destinationURL)
	if err := validateURL(destinationURL); err != nil {
		return nil, err
	}

	for i := 0; i < createAttempts; i++ {
		code, err := r.codes.Generate(ctx)
		if err != nil {
			if errors.Is(err, shortcode.ErrExhausted) {
				return nil, ErrCodeGenerationExhausted
			}
			return nil, fmt.Errorf("生成短码失败: %w", err)
		}

		link := model.ShortLink{ShortCode: code, DestinationURL: destinationURL, OwnerID: ownerID}
		err = r.db.WithContext(ctx).Create(&link).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			r.logger.Warnf("短码 %s 插入冲突，重试", code)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("保存短链接失败: %w", err)
		}

		r.cacheDestination(ctx, code, destinationURL)
		return &link, nil
	}
	return nil, ErrCodeGenerationExhausted
}

// Lookup 按短码读取链接（不走缓存，计数为最新值）
func (r *Registry) Lookup(ctx context.Context, code string) (*model.ShortLink, error) {
	var link model.ShortLink
	err := r.db.WithContext(ctx).Where("short_code = ?", code).Take(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// Destination 返回短码的目标地址，优先读缓存，并发未命中只查一次库
func (r *Registry) Destination(ctx context.Context, code string) (string, error) {
	if r.redis != nil {
		cctx, cancel := context.WithTimeout(ctx, time.Second)
		cached, err := r.redis.Get(cctx, cachePrefix+code).Result()
		cancel()
		if err == nil {
			return cached, nil
		}
	}

	v, err, _ := r.group.Do(code, func() (interface{}, error) {
		link, err := r.Lookup(ctx, code)
		if err != nil {
			return "", err
		}
		r.cacheDestination(ctx, code, link.DestinationURL)
		return link.DestinationURL, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// IncrementIfNewFingerprint 原子地记录指纹并自增计数。
// ipHash 为空时不做 IP 去重；IP 重复时整个事务回滚，指纹也不会被记录。
func (r *Registry) IncrementIfNewFingerprint(ctx context.Context, code, fingerprintHash, ipHash string) (Increment, error) {
	var out Increment

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var link model.ShortLink
		if err := tx.Select("id", "destination_url").Where("short_code = ?", code).Take(&link).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		out.Destination = link.DestinationURL

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&model.LinkFingerprint{ShortLinkID: link.ID, FingerprintHash: fingerprintHash})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			out.Duplicate = DuplicateFingerprint
			return readCount(tx, link.ID, &out.Count)
		}

		if ipHash != "" {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&model.LinkIP{ShortLinkID: link.ID, IPHash: ipHash})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errDuplicateIP
			}
		}

		upd := tx.Model(&model.ShortLink{}).Where("id = ?", link.ID).
			UpdateColumn("click_count", gorm.Expr("click_count + ?", 1))
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected != 1 {
			return ErrNotFound
		}

		out.Accepted = true
		return readCount(tx, link.ID, &out.Count)
	})

	if errors.Is(err, errDuplicateIP) {
		out = Increment{Duplicate: DuplicateIP, Destination: out.Destination}
		if link, lerr := r.Lookup(ctx, code); lerr == nil {
			out.Count = link.ClickCount
		}
		return out, nil
	}
	if err != nil {
		return Increment{}, err
	}
	return out, nil
}

func readCount(tx *gorm.DB, linkID uint, count *int64) error {
	var current model.ShortLink
	if err := tx.Select("click_count").Where("id = ?", linkID).Take(&current).Error; err != nil {
		return err
	}
	*count = current.ClickCount
	return nil
}

// Delete 删除 ownerID 名下的短链接
func (r *Registry) Delete(ctx context.Context, code string, ownerID uint) error {
	return r.delete(ctx, r.db.WithContext(ctx).Where("short_code = ? AND owner_id = ?", code, ownerID), code)
}

// AdminDelete 删除任意短链接
func (r *Registry) AdminDelete(ctx context.Context, code string) error {
	return r.delete(ctx, r.db.WithContext(ctx).Where("short_code = ?", code), code)
}

// delete 为软删除：计数与指纹保留用于审计，但链接不再参与收益汇总
func (r *Registry) delete(ctx context.Context, scope *gorm.DB, code string) error {
	res := scope.Delete(&model.ShortLink{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	if r.redis != nil {
		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		r.redis.Del(cctx, cachePrefix+code)
	}
	r.logger.Infof("短链接 %s 已删除", code)
	return nil
}

// ListByOwner 列出某个用户的链接，按创建时间倒序
func (r *Registry) ListByOwner(ctx context.Context, ownerID uint) ([]model.ShortLink, error) {
	links := []model.ShortLink{}
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at DESC").Order("id DESC").Find(&links).Error
	return links, err
}

// ListAll 列出全部链接
func (r *Registry) ListAll(ctx context.Context) ([]model.ShortLink, error) {
	links := []model.ShortLink{}
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&links).Error
	return links, err
}

// OwnerClickCounts 返回用户每条现存链接的计数
func (r *Registry) OwnerClickCounts(ctx context.Context, ownerID uint) ([]int64, error) {
	counts := []int64{}
	err := r.db.WithContext(ctx).Model(&model.ShortLink{}).Where("owner_id = ?", ownerID).Pluck("click_count", &counts).Error
	return counts, err
}

// ClickCountsByOwner 按用户分组返回全部现存链接的计数
func (r *Registry) ClickCountsByOwner(ctx context.Context) (map[uint][]int64, error) {
	var rows []struct {
		OwnerID    uint
		ClickCount int64
	}
	if err := r.db.WithContext(ctx).Model(&model.ShortLink{}).Select("owner_id", "click_count").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uint][]int64)
	for _, row := range rows {
		out[row.OwnerID] = append(out[row.OwnerID], row.ClickCount)
	}
	return out, nil
}

// VerifiedFingerprints 返回链接已记录的指纹数
func (r *Registry) VerifiedFingerprints(ctx context.Context, code string) (int64, error) {
	link, err := r.Lookup(ctx, code)
	if err != nil {
		return 0, err
	}
	var n int64
	err = r.db.WithContext(ctx).Model(&model.LinkFingerprint{}).Where("short_link_id = ?", link.ID).Count(&n).Error
	return n, err
}

// Stats 返回现存链接数量和总计数
func (r *Registry) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	db := r.db.WithContext(ctx)
	if err := db.Model(&model.ShortLink{}).Count(&s.TotalLinks).Error; err != nil {
		return s, err
	}
	if err := db.Model(&model.ShortLink{}).Select("COALESCE(SUM(click_count), 0)").Scan(&s.TotalClicks).Error; err != nil {
		return s, err
	}
	return s, nil
}

func (r *Registry) cacheDestination(ctx context.Context, code, destination string) {
	if r.redis == nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := r.redis.Set(cctx, cachePrefix+code, destination, cacheTTL).Err(); err != nil {
		r.logger.Warnf("写入缓存失败: %v", err)
	}
}

func validateURL(raw string) error {
	if raw == "" || len(raw) > maxURLLength {
		return ErrInvalidURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidURL
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}
	return nil
}
