package ledger

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"linkpay-platform/internal/config"
)

var thousand = decimal.NewFromInt(1000)

// Tier 点击数达到 Threshold 后按 Rate（每千次）计费
type Tier struct {
	Threshold int64           `json:"threshold"`
	Rate      decimal.Decimal `json:"rate"`
}

// Schedule 阶梯费率表，构造后不可变
type Schedule struct {
	version  string
	currency string
	tiers    []Tier
}

// NewSchedule 校验并排序费率表。第一档必须从 0 开始，阈值不能重复，费率不能为负。
func NewSchedule(version, currency string, tiers []Tier) (*Schedule, error) {
	if len(tiers) == 0 {
		return nil, errors.New("rate schedule is empty")
	}
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Threshold < sorted[j].Threshold })

	if sorted[0].Threshold != 0 {
		return nil, errors.New("rate schedule must start at threshold 0")
	}
	for i, t := range sorted {
		if t.Rate.IsNegative() {
			return nil, fmt.Errorf("negative rate at threshold %d", t.Threshold)
		}
		if i > 0 && t.Threshold == sorted[i-1].Threshold {
			return nil, fmt.Errorf("duplicate threshold %d", t.Threshold)
		}
	}
	return &Schedule{version: version, currency: currency, tiers: sorted}, nil
}

// ScheduleFromConfig 从收益配置构造费率表
func ScheduleFromConfig(cfg config.Earnings) (*Schedule, error) {
	tiers := make([]Tier, 0, len(cfg.Tiers))
	for _, t := range cfg.Tiers {
		rate, err := decimal.NewFromString(t.Rate)
		if err != nil {
			return nil, fmt.Errorf("invalid rate %q: %w", t.Rate, err)
		}
		tiers = append(tiers, Tier{Threshold: t.Threshold, Rate: rate})
	}
	return NewSchedule(cfg.ScheduleVersion, cfg.Currency, tiers)
}

func (s *Schedule) Version() string  { return s.version }
func (s *Schedule) Currency() string { return s.currency }

// Tiers 返回费率表副本
func (s *Schedule) Tiers() []Tier {
	out := make([]Tier, len(s.tiers))
	copy(out, s.tiers)
	return out
}

// RateFor 返回不超过 clicks 的最高阈值对应的费率
func (s *Schedule) RateFor(clicks int64) decimal.Decimal {
	i := sort.Search(len(s.tiers), func(i int) bool { return s.tiers[i].Threshold > clicks })
	if i == 0 {
		return decimal.Zero
	}
	return s.tiers[i-1].Rate
}

// Gross 计算单条链接的收益：clicks/1000 × 费率，四舍五入到分
func (s *Schedule) Gross(clicks int64) Amount {
	if clicks <= 0 {
		return 0
	}
	return FromDecimal(decimal.NewFromInt(clicks).Div(thousand).Mul(s.RateFor(clicks)))
}

// Monotonic 判断收益是否随点击数单调不减。
// 档内是线性的，只需检查每个阈值处是否出现回落。
func (s *Schedule) Monotonic() bool {
	for _, t := range s.tiers[1:] {
		if s.Gross(t.Threshold) < s.Gross(t.Threshold-1) {
			return false
		}
	}
	return true
}
