package models

import (
	"strings"
	"time"

	"github.com/qrbonus-next/internal/constants"

	"gorm.io/gorm"
)

// Store 门店表；ParentStoreID 非空时为分店（继承父店的奖励目录与加成配置）
type Store struct {
	ID            uint       `gorm:"primarykey" json:"id"`
	ParentStoreID *uint      `gorm:"index" json:"parent_store_id"`
	Name          string     `gorm:"not null" json:"name"`
	StoreKey      string     `gorm:"uniqueIndex;not null" json:"-"` // POS 提交时携带的门店密钥
	CountryCode   string     `gorm:"size:2;default:''" json:"country_code"`
	Latitude      *float64   `json:"latitude"`
	Longitude     *float64   `json:"longitude"`
	GeofenceRadiusM float64  `gorm:"default:0" json:"geofence_radius_m"` // 0 时使用全局默认值
	OpensAt       string     `gorm:"size:5;default:''" json:"opens_at"`  // "09:00"；为空表示全天
	ClosesAt      string     `gorm:"size:5;default:''" json:"closes_at"` // "18:00"

	// 基础发放配置
	DefaultRewardID *uint `json:"default_reward_id"` // 无活动时取该奖励的 points_given 作为基础分

	// VIP 固定加成（按等级）
	VIPFixBronze   int `gorm:"default:0" json:"vip_fix_bronze"`
	VIPFixSilver   int `gorm:"default:0" json:"vip_fix_silver"`
	VIPFixGold     int `gorm:"default:0" json:"vip_fix_gold"`
	VIPFixPlatinum int `gorm:"default:0" json:"vip_fix_platinum"`

	// VIP 首次扫码加成（按等级）
	VIPDailyBronze   int `gorm:"default:0" json:"vip_daily_bronze"`
	VIPDailySilver   int `gorm:"default:0" json:"vip_daily_silver"`
	VIPDailyGold     int `gorm:"default:0" json:"vip_daily_gold"`
	VIPDailyPlatinum int `gorm:"default:0" json:"vip_daily_platinum"`

	// VIP 连击加成：每满 StreakCount 次扫码触发一次
	StreakCount      int    `gorm:"default:0" json:"streak_count"`
	StreakBonusMode  string `gorm:"default:'none'" json:"streak_bonus_mode"` // fixed / double / triple
	VIPScanBronze    int    `gorm:"default:0" json:"vip_scan_bronze"`        // fixed 模式下各等级的固定值
	VIPScanSilver    int    `gorm:"default:0" json:"vip_scan_silver"`
	VIPScanGold      int    `gorm:"default:0" json:"vip_scan_gold"`
	VIPScanPlatinum  int    `gorm:"default:0" json:"vip_scan_platinum"`

	// 生日奖励配置
	BirthdayBonusMode    string `gorm:"default:'none'" json:"birthday_bonus_mode"` // double / fixed
	BirthdayBonusValue   int    `gorm:"default:0" json:"birthday_bonus_value"`
	BirthdayBonusMessage string `gorm:"default:''" json:"birthday_bonus_message"`

	// 回归奖励配置
	ComebackBonusMode    string `gorm:"default:'none'" json:"comeback_bonus_mode"` // double / fixed
	ComebackBonusValue   int    `gorm:"default:0" json:"comeback_bonus_value"`
	ComebackDays         int    `gorm:"default:0" json:"comeback_days"` // 不活跃天数阈值
	ComebackBonusMessage string `gorm:"default:''" json:"comeback_bonus_message"`

	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (Store) TableName() string {
	return "stores"
}

// IsBranch 判断是否为分店
func (s *Store) IsBranch() bool {
	return s != nil && s.ParentStoreID != nil && *s.ParentStoreID != 0
}

// IsOpenAt 按营业时间判断是否营业；未配置时视为全天营业
func (s *Store) IsOpenAt(now time.Time) bool {
	if s == nil {
		return false
	}
	opens := strings.TrimSpace(s.OpensAt)
	closes := strings.TrimSpace(s.ClosesAt)
	if opens == "" || closes == "" {
		return true
	}
	openAt, err := time.Parse("15:04", opens)
	if err != nil {
		return true
	}
	closeAt, err := time.Parse("15:04", closes)
	if err != nil {
		return true
	}
	minutes := now.Hour()*60 + now.Minute()
	openMin := openAt.Hour()*60 + openAt.Minute()
	closeMin := closeAt.Hour()*60 + closeAt.Minute()
	if openMin == closeMin {
		return true
	}
	if closeMin < openMin {
		// 跨午夜营业
		return minutes >= openMin || minutes < closeMin
	}
	return minutes >= openMin && minutes < closeMin
}

// VIPFixByTier 返回指定等级的固定加成
func (s *Store) VIPFixByTier(tier string) int {
	switch tier {
	case constants.VIPTierBronze:
		return s.VIPFixBronze
	case constants.VIPTierSilver:
		return s.VIPFixSilver
	case constants.VIPTierGold:
		return s.VIPFixGold
	case constants.VIPTierPlatinum:
		return s.VIPFixPlatinum
	default:
		return 0
	}
}

// VIPDailyByTier 返回指定等级的首次扫码加成
func (s *Store) VIPDailyByTier(tier string) int {
	switch tier {
	case constants.VIPTierBronze:
		return s.VIPDailyBronze
	case constants.VIPTierSilver:
		return s.VIPDailySilver
	case constants.VIPTierGold:
		return s.VIPDailyGold
	case constants.VIPTierPlatinum:
		return s.VIPDailyPlatinum
	default:
		return 0
	}
}

// VIPScanByTier 返回指定等级的连击固定加成
func (s *Store) VIPScanByTier(tier string) int {
	switch tier {
	case constants.VIPTierBronze:
		return s.VIPScanBronze
	case constants.VIPTierSilver:
		return s.VIPScanSilver
	case constants.VIPTierGold:
		return s.VIPScanGold
	case constants.VIPTierPlatinum:
		return s.VIPScanPlatinum
	default:
		return 0
	}
}

// ScannerDevice 收银终端设备表；Mobile 为真的巡回终端不做围栏校验
type ScannerDevice struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	StoreID     uint      `gorm:"index;not null" json:"store_id"`
	Name        string    `gorm:"default:''" json:"name"`
	Fingerprint string    `gorm:"uniqueIndex;not null" json:"fingerprint"`
	SecretHash  string    `gorm:"default:''" json:"-"` // bcrypt 哈希的注册密钥
	Mobile      bool      `gorm:"default:false" json:"mobile"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName 指定表名
func (ScannerDevice) TableName() string {
	return "scanner_devices"
}
