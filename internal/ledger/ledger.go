// Package ledger 根据当前点击计数与已支付提现推导收益和余额。
// 每次读取都重新计算，不保存增量余额，计数被修正或链接被删除后自动生效。
//
// 费率按单条链接的点击数选档，用户收益为其现存链接收益之和。
package ledger

import (
	"context"
	"sort"
)

// Clicks 点击计数来源
type Clicks interface {
	OwnerClickCounts(ctx context.Context, ownerID uint) ([]int64, error)
	ClickCountsByOwner(ctx context.Context) (map[uint][]int64, error)
}

// Payouts 提现总额来源（分）
type Payouts interface {
	PaidTotal(ctx context.Context, ownerID uint) (int64, error)
	PendingTotal(ctx context.Context, ownerID uint) (int64, error)
}

// Summary 用户钱包概览
type Summary struct {
	OwnerID     uint   `json:"ownerId"`
	Links       int    `json:"links"`
	TotalClicks int64  `json:"totalClicks"`
	Gross       Amount `json:"grossEarnings"`
	Paid        Amount `json:"paidTotal"`
	Pending     Amount `json:"pendingTotal"`
	Balance     Amount `json:"balance"`
	Currency    string `json:"currency"`
}

// Ledger 收益账本
type Ledger struct {
	schedule *Schedule
	clicks   Clicks
	payouts  Payouts
}

// New 创建账本
func New(schedule *Schedule, clicks Clicks, payouts Payouts) *Ledger {
	return &Ledger{schedule: schedule, clicks: clicks, payouts: payouts}
}

// Schedule 当前费率表
func (l *Ledger) Schedule() *Schedule {
	return l.schedule
}

// Balance 可用余额，永不为负
func Balance(gross, paid Amount) Amount {
	if paid >= gross {
		return 0
	}
	return gross - paid
}

func (l *Ledger) grossOf(counts []int64) (Amount, int64) {
	var gross Amount
	var clicks int64
	for _, c := range counts {
		gross += l.schedule.Gross(c)
		clicks += c
	}
	return gross, clicks
}

// GrossEarnings 用户的总收益
func (l *Ledger) GrossEarnings(ctx context.Context, ownerID uint) (Amount, error) {
	counts, err := l.clicks.OwnerClickCounts(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	gross, _ := l.grossOf(counts)
	return gross, nil
}

// WalletBalance = max(总收益 - 已支付, 0)
func (l *Ledger) WalletBalance(ctx context.Context, ownerID uint) (Amount, error) {
	gross, err := l.GrossEarnings(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	paid, err := l.payouts.PaidTotal(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	return Balance(gross, Amount(paid)), nil
}

// Summary 用户钱包概览
func (l *Ledger) Summary(ctx context.Context, ownerID uint) (Summary, error) {
	counts, err := l.clicks.OwnerClickCounts(ctx, ownerID)
	if err != nil {
		return Summary{}, err
	}
	return l.summarize(ctx, ownerID, counts)
}

// Owners 所有拥有现存链接的用户概览，按 OwnerID 排序
func (l *Ledger) Owners(ctx context.Context) ([]Summary, error) {
	byOwner, err := l.clicks.ClickCountsByOwner(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(byOwner))
	for id := range byOwner {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		s, err := l.summarize(ctx, id, byOwner[id])
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (l *Ledger) summarize(ctx context.Context, ownerID uint, counts []int64) (Summary, error) {
	gross, clicks := l.grossOf(counts)
	paid, err := l.payouts.PaidTotal(ctx, ownerID)
	if err != nil {
		return Summary{}, err
	}
	pending, err := l.payouts.PendingTotal(ctx, ownerID)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		OwnerID:     ownerID,
		Links:       len(counts),
		TotalClicks: clicks,
		Gross:       gross,
		Paid:        Amount(paid),
		Pending:     Amount(pending),
		Balance:     Balance(gross, Amount(paid)),
		Currency:    l.schedule.Currency(),
	}, nil
}
