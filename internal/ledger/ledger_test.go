package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkpay-platform/internal/config"
)

func defaultSchedule(t *testing.T) *Schedule {
	t.Helper()
	s, err := NewSchedule("2024-01", "USD", []Tier{
		{Threshold: 5000, Rate: decimal.RequireFromString("9.8")},
		{Threshold: 0, Rate: decimal.RequireFromString("10.0")},
	})
	require.NoError(t, err)
	return s
}

func TestSchedule_Gross(t *testing.T) {
	s := defaultSchedule(t)
	tests := []struct {
		clicks int64
		want   string
	}{
		{0, "0.00"},
		{1, "0.01"},
		{3, "0.03"},
		{999, "9.99"},
		{4999, "49.99"},
		{5000, "49.00"},
		{5001, "49.01"},
		{10000, "98.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.Gross(tt.clicks).String(), "clicks=%d", tt.clicks)
	}
	assert.True(t, s.RateFor(4999).Equal(decimal.NewFromInt(10)))
	assert.True(t, s.RateFor(5000).Equal(decimal.RequireFromString("9.8")))
}

func TestSchedule_Monotonic(t *testing.T) {
	assert.False(t, defaultSchedule(t).Monotonic(), "9.8 档在 5000 处回落")

	s, err := NewSchedule("v", "USD", []Tier{
		{Threshold: 0, Rate: decimal.NewFromInt(10)},
		{Threshold: 5000, Rate: decimal.RequireFromString("10.5")},
	})
	require.NoError(t, err)
	assert.True(t, s.Monotonic())
}

func TestNewSchedule_Rejects(t *testing.T) {
	ten := decimal.NewFromInt(10)
	cases := map[string][]Tier{
		"空表":    nil,
		"不从0开始": {{Threshold: 10, Rate: ten}},
		"重复阈值":  {{Threshold: 0, Rate: ten}, {Threshold: 0, Rate: ten}},
		"负费率":   {{Threshold: 0, Rate: decimal.NewFromInt(-1)}},
	}
	for name, tiers := range cases {
		_, err := NewSchedule("v", "USD", tiers)
		assert.Error(t, err, name)
	}
}

func TestScheduleFromConfig(t *testing.T) {
	s, err := ScheduleFromConfig(config.Earnings{
		Currency:        "USD",
		ScheduleVersion: "2024-01",
		Tiers:           []config.Tier{{Threshold: 0, Rate: "10.00"}, {Threshold: 5000, Rate: "9.80"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-01", s.Version())
	assert.Len(t, s.Tiers(), 2)
	assert.Equal(t, "49.99", s.Gross(4999).String())
}

func TestParseAmount(t *testing.T) {
	a, err := ParseAmount("0.01")
	require.NoError(t, err)
	assert.Equal(t, Amount(1), a)

	a, err = ParseAmount(" 5 ")
	require.NoError(t, err)
	assert.Equal(t, Amount(500), a)

	for _, bad := range []string{"", "abc", "1.234", "0.001", "184467440737095516.17", "92233720368547758.08", "-92233720368547758.09"} {
		_, err := ParseAmount(bad)
		assert.Error(t, err, bad)
	}

	b, err := json.Marshal(struct {
		A Amount `json:"a"`
	}{A: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"0.03"}`, string(b))

	var back struct {
		A Amount `json:"a"`
	}
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, Amount(3), back.A)
	require.NoError(t, json.Unmarshal([]byte(`{"a":49.99}`), &back))
	assert.Equal(t, Amount(4999), back.A)
	assert.Error(t, json.Unmarshal([]byte(`{"a":"184467440737095516.17"}`), &back))

	a, err = ParseAmount("92233720368547758.07")
	require.NoError(t, err)
	assert.Equal(t, Amount(math.MaxInt64), a)
}

type fakeClicks map[uint][]int64

func (f fakeClicks) OwnerClickCounts(_ context.Context, owner uint) ([]int64, error) {
	return f[owner], nil
}

func (f fakeClicks) ClickCountsByOwner(context.Context) (map[uint][]int64, error) {
	return f, nil
}

type fakePayouts struct {
	paid, pending map[uint]int64
	err           error
}

func (f fakePayouts) PaidTotal(_ context.Context, owner uint) (int64, error) {
	return f.paid[owner], f.err
}

func (f fakePayouts) PendingTotal(_ context.Context, owner uint) (int64, error) {
	return f.pending[owner], f.err
}

func TestLedger_PerLinkTiersAndBalance(t *testing.T) {
	clicks := fakeClicks{1: {3}, 2: {4999, 5001}}
	payouts := fakePayouts{paid: map[uint]int64{1: 1, 2: 99999}, pending: map[uint]int64{1: 1}}
	l := New(defaultSchedule(t), clicks, payouts)
	ctx := context.Background()

	gross, err := l.GrossEarnings(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "0.03", gross.String())

	bal, err := l.WalletBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "0.02", bal.String())

	gross, err = l.GrossEarnings(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "99.00", gross.String())

	// 已支付超过收益时余额为 0
	bal, err = l.WalletBalance(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, Amount(0), bal)

	owners, err := l.Owners(ctx)
	require.NoError(t, err)
	require.Len(t, owners, 2)
	assert.Equal(t, uint(1), owners[0].OwnerID)
	assert.Equal(t, Amount(1), owners[0].Pending)
	assert.Equal(t, int64(10000), owners[1].TotalClicks)
	assert.Equal(t, 2, owners[1].Links)
	assert.Equal(t, "USD", owners[1].Currency)
}

func TestLedger_PropagatesStorageErrors(t *testing.T) {
	l := New(defaultSchedule(t), fakeClicks{1: {3}}, fakePayouts{err: errors.New("db down")})
	_, err := l.WalletBalance(context.Background(), 1)
	assert.Error(t, err)
}

func TestBalance_NeverNegative(t *testing.T) {
	for _, tc := range []struct{ gross, paid, want Amount }{
		{3, 1, 2},
		{3, 3, 0},
		{3, 500, 0},
		{0, 0, 0},
	} {
		assert.Equal(t, tc.want, Balance(tc.gross, tc.paid))
	}
}
