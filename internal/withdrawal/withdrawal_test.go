package withdrawal

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"linkpay-platform/internal/ledger"
	"linkpay-platform/internal/metrics"
	"linkpay-platform/internal/model"
	"linkpay-platform/internal/registry"
	"linkpay-platform/internal/shortcode"
	"linkpay-platform/internal/testutil"
)

type env struct {
	withdrawals *Ledger
	earnings    *ledger.Ledger
	store       *Store
}

// newEnv 创建一个名下有 clicks 次点击的用户 1
func newEnv(t *testing.T, clicks int, minimum ledger.Amount) *env {
	t.Helper()
	db := testutil.NewDB(t)
	log := zap.NewNop().Sugar()
	ctx := context.Background()

	reg := registry.New(db, nil, shortcode.NewGenerator(db, log), log)
	link, err := reg.Create(ctx, "https://example.com", 1)
	require.NoError(t, err)
	for i := 0; i < clicks; i++ {
		_, err := reg.IncrementIfNewFingerprint(ctx, link.ShortCode, strings.Repeat("f", i+1), "")
		require.NoError(t, err)
	}

	schedule, err := ledger.NewSchedule("test", "USD", []ledger.Tier{
		{Threshold: 0, Rate: decimal.NewFromInt(10)},
		{Threshold: 5000, Rate: decimal.RequireFromString("9.8")},
	})
	require.NoError(t, err)

	store := NewStore(db)
	earnings := ledger.New(schedule, reg, store)
	return &env{
		withdrawals: NewLedger(store, earnings, minimum, metrics.New(), log),
		earnings:    earnings,
		store:       store,
	}
}

func TestRequestApprove_Scenario(t *testing.T) {
	e := newEnv(t, 3, 0)
	ctx := context.Background()

	gross, err := e.earnings.GrossEarnings(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "0.03", gross.String())

	w, err := e.withdrawals.Request(ctx, 1, "0.01", "paypal")
	require.NoError(t, err)
	assert.Equal(t, model.WithdrawalPending, w.Status)
	assert.Equal(t, int64(1), w.AmountMinor)

	// 待审核不影响余额
	bal, err := e.earnings.WalletBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "0.03", bal.String())

	for i := 0; i < 2; i++ {
		got, err := e.withdrawals.Approve(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, model.WithdrawalPaid, got.Status)
		assert.NotNil(t, got.PaidAt)
	}

	paid, err := e.store.PaidTotal(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), paid)

	bal, err = e.earnings.WalletBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "0.02", bal.String())

	list, err := e.withdrawals.ListByOwner(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestApprove_ConcurrentSingleTransition(t *testing.T) {
	e := newEnv(t, 5, 0)
	ctx := context.Background()

	w, err := e.withdrawals.Request(ctx, 1, "0.05", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := e.withdrawals.Approve(ctx, w.ID)
			assert.NoError(t, err)
			if got != nil {
				assert.Equal(t, model.WithdrawalPaid, got.Status)
			}
		}()
	}
	wg.Wait()

	paid, err := e.store.PaidTotal(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), paid)

	bal, err := e.earnings.WalletBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, ledger.Amount(0), bal)
}

func TestApprove_NotFound(t *testing.T) {
	e := newEnv(t, 0, 0)
	_, err := e.withdrawals.Approve(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRequest_Validation(t *testing.T) {
	e := newEnv(t, 3, 2)
	ctx := context.Background()

	tests := []struct {
		name   string
		amount string
		note   string
		want   error
	}{
		{"零", "0", "", ErrInvalidAmount},
		{"负数", "-0.01", "", ErrInvalidAmount},
		{"非数字", "abc", "", ErrInvalidAmount},
		{"三位小数", "0.015", "", ErrInvalidAmount},
		{"超出 int64 分", "184467440737095516.17", "", ErrInvalidAmount},
		{"备注过长", "0.02", strings.Repeat("x", 256), ErrInvalidNote},
		{"低于最小值", "0.01", "", ErrBelowMinimum},
		{"超过余额", "0.04", "", ErrInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.withdrawals.Request(ctx, 1, tt.amount, tt.note)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRequest_PendingCountsAgainstBalance(t *testing.T) {
	e := newEnv(t, 3, 0)
	ctx := context.Background()

	_, err := e.withdrawals.Request(ctx, 1, "0.02", "")
	require.NoError(t, err)
	_, err = e.withdrawals.Request(ctx, 1, "0.02", "")
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	_, err = e.withdrawals.Request(ctx, 1, "0.01", "")
	require.NoError(t, err)

	pending, err := e.withdrawals.ListAll(ctx, model.WithdrawalPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	paid, err := e.withdrawals.ListAll(ctx, model.WithdrawalPaid)
	require.NoError(t, err)
	assert.Empty(t, paid)
}

func TestRequest_ConcurrentCannotOverdraw(t *testing.T) {
	e := newEnv(t, 3, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.withdrawals.Request(ctx, 1, "0.01", "")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else {
				assert.ErrorIs(t, err, ErrInsufficientBalance)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 3, ok)
}
