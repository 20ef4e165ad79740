package withdrawal

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"linkpay-platform/internal/model"
)

// Store 提现记录的持久化
type Store struct {
	db *gorm.DB
}

// NewStore 创建提现存储
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, w *model.Withdrawal) error {
	return s.db.WithContext(ctx).Create(w).Error
}

// Get 按 ID 读取，不存在返回 ErrNotFound
func (s *Store) Get(ctx context.Context, id string) (*model.Withdrawal, error) {
	var w model.Withdrawal
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ListByOwner 用户的提现记录，最新的在前
func (s *Store) ListByOwner(ctx context.Context, ownerID uint) ([]model.Withdrawal, error) {
	list := []model.Withdrawal{}
	err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&list).Error
	return list, err
}

// ListAll 全部提现记录，status 为空时不过滤
func (s *Store) ListAll(ctx context.Context, status string) ([]model.Withdrawal, error) {
	list := []model.Withdrawal{}
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Find(&list).Error
	return list, err
}

// MarkPaid 以 status 做比较交换，返回是否发生了状态迁移
func (s *Store) MarkPaid(ctx context.Context, id string, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Withdrawal{}).
		Where("id = ? AND status = ?", id, model.WithdrawalPending).
		Updates(map[string]interface{}{"status": model.WithdrawalPaid, "paid_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// PaidTotal 已支付总额（分）
func (s *Store) PaidTotal(ctx context.Context, ownerID uint) (int64, error) {
	return s.sum(ctx, ownerID, model.WithdrawalPaid)
}

// PendingTotal 待审核总额（分）
func (s *Store) PendingTotal(ctx context.Context, ownerID uint) (int64, error) {
	return s.sum(ctx, ownerID, model.WithdrawalPending)
}

func (s *Store) sum(ctx context.Context, ownerID uint, status string) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&model.Withdrawal{}).
		Where("owner_id = ? AND status = ?", ownerID, status).
		Select("COALESCE(SUM(amount_minor), 0)").Scan(&total).Error
	return total, err
}

// Totals 全站待审核笔数与已支付总额（分）
func (s *Store) Totals(ctx context.Context) (pendingCount int64, paidTotal int64, err error) {
	db := s.db.WithContext(ctx)
	if err = db.Model(&model.Withdrawal{}).Where("status = ?", model.WithdrawalPending).Count(&pendingCount).Error; err != nil {
		return 0, 0, err
	}
	err = db.Model(&model.Withdrawal{}).Where("status = ?", model.WithdrawalPaid).
		Select("COALESCE(SUM(amount_minor), 0)").Scan(&paidTotal).Error
	return pendingCount, paidTotal, err
}
