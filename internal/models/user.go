package models

import (
	"time"

	"github.com/qrbonus-next/internal/constants"

	"gorm.io/gorm"
)

// User 顾客表
type User struct {
	ID                  uint           `gorm:"primarykey" json:"id"`            // 主键
	Name                string         `gorm:"default:''" json:"name"`          // 顾客姓名
	Email               string         `gorm:"index" json:"email"`              // 邮箱
	Points              int            `gorm:"not null;default:0" json:"points"` // 当前可用积分
	LifetimePoints      int            `gorm:"not null;default:0" json:"lifetime_points"` // 累计积分（只增不减）
	Birthday            *time.Time     `json:"birthday"`                        // 生日
	LastBirthdayBonusAt *time.Time     `json:"last_birthday_bonus_at"`          // 最近一次生日奖励发放日期（原子认领门）
	CreatedAt           time.Time      `gorm:"index" json:"created_at"`         // 创建时间
	UpdatedAt           time.Time      `gorm:"index" json:"updated_at"`         // 更新时间
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`                  // 软删除时间
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// VIPTier 根据累计积分推导 VIP 等级
func (u *User) VIPTier() string {
	if u == nil {
		return constants.VIPTierNone
	}
	switch {
	case u.LifetimePoints >= constants.VIPThresholdPlatinum:
		return constants.VIPTierPlatinum
	case u.LifetimePoints >= constants.VIPThresholdGold:
		return constants.VIPTierGold
	case u.LifetimePoints >= constants.VIPThresholdSilver:
		return constants.VIPTierSilver
	case u.LifetimePoints >= constants.VIPThresholdBronze:
		return constants.VIPTierBronze
	default:
		return constants.VIPTierNone
	}
}

// IsBirthdayToday 判断给定日期是否为顾客生日（按月/日匹配）
func (u *User) IsBirthdayToday(now time.Time) bool {
	if u == nil || u.Birthday == nil {
		return false
	}
	return u.Birthday.Month() == now.Month() && u.Birthday.Day() == now.Day()
}
