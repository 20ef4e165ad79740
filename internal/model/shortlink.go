package model

import (
	"time"

	"gorm.io/gorm"
)

// ShortLink 短链接模型
// ClickCount 只能由 registry.IncrementIfNewFingerprint 修改，且与 LinkFingerprint 行数保持一致
type ShortLink struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	ShortCode      string         `gorm:"size:16;uniqueIndex;not null" json:"short_code"`
	DestinationURL string         `gorm:"type:text;not null" json:"destination_url"`
	OwnerID        uint           `gorm:"not null;index" json:"owner_id"`
	ClickCount     int64          `gorm:"not null;default:0" json:"click_count"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (ShortLink) TableName() string {
	return "short_links"
}

// LinkFingerprint 已计数的设备指纹，(short_link_id, fingerprint_hash) 唯一
type LinkFingerprint struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	ShortLinkID     uint      `gorm:"not null;uniqueIndex:idx_link_fingerprint" json:"short_link_id"`
	FingerprintHash string    `gorm:"size:64;not null;uniqueIndex:idx_link_fingerprint" json:"fingerprint_hash"`
	CreatedAt       time.Time `json:"created_at"`
}

func (LinkFingerprint) TableName() string {
	return "link_fingerprints"
}

// LinkIP 已计数的访客 IP（加盐哈希），仅在开启 IP 去重时写入
type LinkIP struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	ShortLinkID uint      `gorm:"not null;uniqueIndex:idx_link_ip" json:"short_link_id"`
	IPHash      string    `gorm:"size:64;not null;uniqueIndex:idx_link_ip" json:"ip_hash"`
	CreatedAt   time.Time `json:"created_at"`
}

func (LinkIP) TableName() string {
	return "link_ips"
}
