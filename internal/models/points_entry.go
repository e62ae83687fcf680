package models

import (
	"time"
)

// PointsEntry 积分流水表；一经提交不可变，唯一例外是 §提交事务内的连击/首扫冲正
type PointsEntry struct {
	ID                uint      `gorm:"primarykey" json:"id"`
	ScanID            string    `gorm:"size:36;index" json:"scan_id"` // 对终端暴露的扫码标识
	UserID            uint      `gorm:"index:idx_points_user_store" json:"user_id"`
	StoreID           uint      `gorm:"index:idx_points_user_store" json:"store_id"`
	Points            int       `gorm:"not null" json:"points"` // 有符号；兑换为负数
	Type              string    `gorm:"index;not null" json:"type"`
	CampaignID        *uint     `gorm:"index" json:"campaign_id"`
	ScannerID         *uint     `json:"scanner_id"`
	DeviceFingerprint string    `gorm:"default:''" json:"device_fingerprint"`
	IPAddress         string    `gorm:"default:''" json:"ip_address"`
	Latitude          *float64  `json:"latitude"`
	Longitude         *float64  `json:"longitude"`
	CreatedAt         time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (PointsEntry) TableName() string {
	return "points_entries"
}

// HasCoordinates 判断流水是否携带定位
func (e *PointsEntry) HasCoordinates() bool {
	return e != nil && e.Latitude != nil && e.Longitude != nil
}
