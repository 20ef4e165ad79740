package model

import (
	"time"
)

// 提现状态，只允许 pending -> paid
const (
	WithdrawalPending = "pending"
	WithdrawalPaid    = "paid"
)

// Withdrawal 提现申请，金额以货币最小单位（分）存储
type Withdrawal struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	OwnerID     uint       `gorm:"not null;index" json:"owner_id"`
	AmountMinor int64      `gorm:"not null" json:"amount_minor"`
	Note        string     `gorm:"size:255" json:"note"`
	Status      string     `gorm:"size:16;not null;index;default:'pending'" json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

func (Withdrawal) TableName() string {
	return "withdrawals"
}
