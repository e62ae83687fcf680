package models

import (
	"time"
)

// SuspiciousActivity 可疑行为记录表
type SuspiciousActivity struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	StoreID   uint      `gorm:"index" json:"store_id"`
	Kind      string    `gorm:"index;not null" json:"kind"` // geofence_log / impossible_travel
	DistanceM float64   `gorm:"default:0" json:"distance_m"`
	SpeedKmh  float64   `gorm:"default:0" json:"speed_kmh"`
	Message   string    `gorm:"default:''" json:"message"`
	IPAddress string    `gorm:"default:''" json:"ip_address"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (SuspiciousActivity) TableName() string {
	return "suspicious_activities"
}

// Referral 推荐关系表；被推荐人在门店完成首次扫码后给推荐人入账
type Referral struct {
	ID         uint       `gorm:"primarykey" json:"id"`
	UserID     uint       `gorm:"index;not null" json:"user_id"`     // 被推荐人
	ReferrerID uint       `gorm:"index;not null" json:"referrer_id"` // 推荐人
	StoreID    uint       `gorm:"index;not null" json:"store_id"`
	Status     string     `gorm:"index;default:'pending'" json:"status"` // pending / credited
	CreatedAt  time.Time  `json:"created_at"`
	CreditedAt *time.Time `json:"credited_at"`
}

// TableName 指定表名
func (Referral) TableName() string {
	return "referrals"
}
