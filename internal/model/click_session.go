package model

import (
	"time"
)

// ClickSession 一次性的漏斗会话
type ClickSession struct {
	Token      string     `gorm:"primaryKey;size:64" json:"token"`
	ShortCode  string     `gorm:"size:16;not null;index" json:"short_code"`
	IssuedAt   time.Time  `gorm:"not null" json:"issued_at"`
	ExpiresAt  time.Time  `gorm:"not null;index" json:"expires_at"`
	Consumed   bool       `gorm:"not null;default:false" json:"consumed"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}

func (ClickSession) TableName() string {
	return "click_sessions"
}
