package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Reward 奖励目录表；RequiredPoints 为兑换门槛，PointsGiven 为作为默认扫码奖励时的基础分
type Reward struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	StoreID        uint           `gorm:"index;not null" json:"store_id"`
	Title          string         `gorm:"not null" json:"title"`
	Type           string         `gorm:"not null" json:"type"` // fixed_amount / percentage / free_product / info
	Value          Money          `gorm:"type:decimal(12,2);default:0" json:"value"`
	RequiredPoints int            `gorm:"not null;default:0" json:"required_points"`
	PointsGiven    int            `gorm:"not null;default:0" json:"points_given"`
	Active         bool           `gorm:"default:true" json:"active"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (Reward) TableName() string {
	return "rewards"
}

// RewardSnapshotItem 兑换提示创建时的奖励快照项
type RewardSnapshotItem struct {
	RewardID       uint   `json:"reward_id"`
	Title          string `json:"title"`
	Type           string `json:"type"`
	Value          Money  `json:"value"`
	RequiredPoints int    `json:"required_points"`
}

// RewardSnapshots 奖励快照列表（JSON 存储，避免流程中目录变更影响已发出的提示）
type RewardSnapshots []RewardSnapshotItem

// Value 用于数据库写入
func (s RewardSnapshots) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(payload), nil
}

// Scan 用于数据库读取
func (s *RewardSnapshots) Scan(value interface{}) error {
	if value == nil {
		*s = RewardSnapshots{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return errors.New("unsupported reward snapshot column type")
	}
}

// Contains 判断快照中是否包含指定奖励
func (s RewardSnapshots) Contains(rewardID uint) bool {
	for _, item := range s {
		if item.RewardID == rewardID {
			return true
		}
	}
	return false
}

// Find 返回快照中的指定奖励项
func (s RewardSnapshots) Find(rewardID uint) (RewardSnapshotItem, bool) {
	for _, item := range s {
		if item.RewardID == rewardID {
			return item, true
		}
	}
	return RewardSnapshotItem{}, false
}
