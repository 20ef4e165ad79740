// Package withdrawal 管理提现申请：pending → paid，paid 为终态。
package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"linkpay-platform/internal/keylock"
	"linkpay-platform/internal/ledger"
	"linkpay-platform/internal/metrics"
	"linkpay-platform/internal/model"
)

const maxNoteLength = 255

var (
	ErrNotFound            = errors.New("withdrawal not found")
	ErrInvalidAmount       = errors.New("amount must be a positive number with at most 2 decimal places")
	ErrInvalidNote         = errors.New("note is too long")
	ErrBelowMinimum        = errors.New("amount is below the minimum withdrawal")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrConcurrencyConflict = errors.New("withdrawal was modified concurrently")
)

// Wallet 可用余额来源
type Wallet interface {
	WalletBalance(ctx context.Context, ownerID uint) (ledger.Amount, error)
}

// Ledger 提现账本
type Ledger struct {
	store   *Store
	wallet  Wallet
	minimum ledger.Amount
	locks   *keylock.Locker
	now     func() time.Time
	metrics *metrics.Metrics
	logger  *zap.SugaredLogger
}

// NewLedger 创建提现账本
func NewLedger(store *Store, wallet Wallet, minimum ledger.Amount, m *metrics.Metrics, logger *zap.SugaredLogger) *Ledger {
	return &Ledger{
		store:   store,
		wallet:  wallet,
		minimum: minimum,
		locks:   keylock.New(),
		now:     time.Now,
		metrics: m,
		logger:  logger.Named("withdrawal"),
	}
}

// Minimum 最小提现金额
func (l *Ledger) Minimum() ledger.Amount {
	return l.minimum
}

// Request 创建待审核提现。金额不能超过可用余额减去已有的待审核金额。
func (l *Ledger) Request(ctx context.Context, ownerID uint, amount, note string) (*model.Withdrawal, error) {
	a, err := ledger.ParseAmount(amount)
	if err != nil || a <= 0 {
		return nil, ErrInvalidAmount
	}
	note = strings.TrimSpace(note)
	if utf8.RuneCountInString(note) > maxNoteLength {
		return nil, ErrInvalidNote
	}
	if a < l.minimum {
		return nil, ErrBelowMinimum
	}

	// 同一用户的申请串行，避免并发申请同时通过余额检查
	unlock := l.locks.Lock(fmt.Sprint(ownerID))
	defer unlock()

	balance, err := l.wallet.WalletBalance(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	pending, err := l.store.PendingTotal(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if a > balance-ledger.Amount(pending) {
		return nil, ErrInsufficientBalance
	}

	w := &model.Withdrawal{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		AmountMinor: int64(a),
		Note:        note,
		Status:      model.WithdrawalPending,
	}
	if err := l.store.Create(ctx, w); err != nil {
		return nil, err
	}
	l.metrics.Withdrawal("requested")
	l.logger.Infof("用户 %d 申请提现 %s", ownerID, a)
	return w, nil
}

// Approve 把提现标记为已支付。对已支付的记录重复调用直接返回当前记录。
func (l *Ledger) Approve(ctx context.Context, id string) (*model.Withdrawal, error) {
	moved, err := l.store.MarkPaid(ctx, id, l.now())
	if err != nil {
		return nil, err
	}

	w, err := l.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if moved {
		l.metrics.Withdrawal("approved")
		l.logger.Infof("提现 %s 已支付，金额 %s", id, ledger.Amount(w.AmountMinor))
		return w, nil
	}
	if w.Status == model.WithdrawalPaid {
		return w, nil
	}
	return nil, ErrConcurrencyConflict
}

// Get 读取提现记录
func (l *Ledger) Get(ctx context.Context, id string) (*model.Withdrawal, error) {
	return l.store.Get(ctx, id)
}

// ListByOwner 用户的提现记录
func (l *Ledger) ListByOwner(ctx context.Context, ownerID uint) ([]model.Withdrawal, error) {
	return l.store.ListByOwner(ctx, ownerID)
}

// ListAll 全部提现记录
func (l *Ledger) ListAll(ctx context.Context, status string) ([]model.Withdrawal, error) {
	return l.store.ListAll(ctx, status)
}

// Totals 全站待审核笔数与已支付总额
func (l *Ledger) Totals(ctx context.Context) (int64, ledger.Amount, error) {
	pending, paid, err := l.store.Totals(ctx)
	return pending, ledger.Amount(paid), err
}
