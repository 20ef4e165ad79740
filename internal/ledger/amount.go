package ledger

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount 以最小货币单位（分）保存的金额
type Amount int64

var (
	errAmountPrecision = errors.New("amount has more than 2 decimal places")
	errAmountRange     = errors.New("amount out of range")
)

// ParseAmount 解析十进制金额字符串，最多两位小数
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if !d.Equal(d.Round(2)) {
		return 0, errAmountPrecision
	}
	if !InRange(d) {
		return 0, errAmountRange
	}
	return FromDecimal(d), nil
}

// InRange 报告 d 四舍五入到分后能否用 int64 表示
func InRange(d decimal.Decimal) bool {
	return d.Round(2).Shift(2).BigInt().IsInt64()
}

// FromDecimal 四舍五入到分，调用方需先用 InRange 检查范围
func FromDecimal(d decimal.Decimal) Amount {
	return Amount(d.Round(2).Shift(2).IntPart())
}

// Decimal 转回十进制
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -2)
}

func (a Amount) String() string {
	return a.Decimal().StringFixed(2)
}

// MarshalJSON 输出为字符串，如 "0.03"
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON 接受 "0.03" 或 0.03
func (a *Amount) UnmarshalJSON(data []byte) error {
	v, err := ParseAmount(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
