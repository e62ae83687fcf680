package models

import (
	"time"

	"github.com/qrbonus-next/internal/constants"
)

// RedemptionPrompt 兑换提示表；token 是顾客/终端双方唯一的转移凭据
type RedemptionPrompt struct {
	ID               uint            `gorm:"primarykey" json:"id"`
	UserID           uint            `gorm:"index" json:"user_id"`
	StoreID          uint            `gorm:"index" json:"store_id"`
	ScannerID        *uint           `json:"scanner_id"`
	Token            string          `gorm:"uniqueIndex;not null" json:"token"`
	AvailableRewards RewardSnapshots `gorm:"type:text" json:"available_rewards"`
	SelectedRewardID *uint           `json:"selected_reward_id"`
	Status           string          `gorm:"index;default:'pending'" json:"status"`
	RejectionReason  string          `gorm:"default:''" json:"rejection_reason"`
	CreatedAt        time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	ExpiresAt        time.Time       `gorm:"index" json:"expires_at"`
}

// TableName 指定表名
func (RedemptionPrompt) TableName() string {
	return "redemption_prompts"
}

// IsExpiredAt 判断提示在给定时刻是否已过期
func (p *RedemptionPrompt) IsExpiredAt(now time.Time) bool {
	if p == nil {
		return true
	}
	return !p.ExpiresAt.After(now)
}

// IsTerminal 判断是否处于终态（终态不可再转移）
func (p *RedemptionPrompt) IsTerminal() bool {
	if p == nil {
		return true
	}
	switch p.Status {
	case constants.PromptStatusExpired,
		constants.PromptStatusHandlerRejected,
		constants.PromptStatusCompleted:
		return true
	default:
		return false
	}
}

// Redemption 兑换核销记录表
type Redemption struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	PromptID       uint      `gorm:"index" json:"prompt_id"`
	UserID         uint      `gorm:"index" json:"user_id"`
	StoreID        uint      `gorm:"index" json:"store_id"`
	RewardID       uint      `json:"reward_id"`
	RewardTitle    string    `gorm:"default:''" json:"reward_title"`
	RewardType     string    `gorm:"default:''" json:"reward_type"`
	RequiredPoints int       `gorm:"default:0" json:"required_points"`
	PurchaseAmount *Money    `gorm:"type:decimal(12,2)" json:"purchase_amount"` // percentage 类型时由终端提交
	ActualValue    *Money    `gorm:"type:decimal(12,2)" json:"actual_value"`    // 计算出的货币价值；info 类型为空
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (Redemption) TableName() string {
	return "redemptions"
}
