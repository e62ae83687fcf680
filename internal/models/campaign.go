package models

import (
	"time"

	"github.com/qrbonus-next/internal/constants"

	"gorm.io/gorm"
)

// Campaign 营销活动表；扫码携带活动ID时覆盖默认基础分
type Campaign struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	StoreID     uint           `gorm:"index;not null" json:"store_id"`
	Title       string         `gorm:"not null" json:"title"`
	StartDate   time.Time      `gorm:"index" json:"start_date"`
	EndDate     time.Time      `gorm:"index" json:"end_date"`
	Status      string         `gorm:"default:'active'" json:"status"` // active / archived
	PointsGiven int            `gorm:"not null;default:0" json:"points_given"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (Campaign) TableName() string {
	return "campaigns"
}

// IsActiveAt 判断活动在给定时刻是否生效
func (c *Campaign) IsActiveAt(now time.Time) bool {
	if c == nil || c.Status != constants.CampaignStatusActive {
		return false
	}
	if now.Before(c.StartDate) {
		return false
	}
	if !c.EndDate.IsZero() && now.After(c.EndDate) {
		return false
	}
	return true
}

// BonusDay 加倍日表；按门店与日历日期生效
type BonusDay struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	StoreID     uint      `gorm:"index;not null" json:"store_id"`
	Date        time.Time `gorm:"index;not null" json:"date"` // 日历日期（零点）
	Multiplier  float64   `gorm:"default:1" json:"multiplier"`
	ExtraPoints int       `gorm:"default:0" json:"extra_points"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (BonusDay) TableName() string {
	return "bonus_days"
}
