package repository

import (
	"errors"

	"github.com/qrbonus-next/internal/models"

	"gorm.io/gorm"
)

// RewardRepository 奖励目录数据访问接口
type RewardRepository interface {
	GetByID(id uint) (*models.Reward, error)
	Create(reward *models.Reward) error
	ListActiveByStore(storeID uint) ([]models.Reward, error)
	ListAffordableByStore(storeID uint, balance int) ([]models.Reward, error)
	WithTx(tx *gorm.DB) *GormRewardRepository
}

// GormRewardRepository GORM 奖励仓储实现
type GormRewardRepository struct {
	db *gorm.DB
}

// NewRewardRepository 创建奖励仓储
func NewRewardRepository(db *gorm.DB) *GormRewardRepository {
	return &GormRewardRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRewardRepository) WithTx(tx *gorm.DB) *GormRewardRepository {
	if tx == nil {
		return r
	}
	return &GormRewardRepository{db: tx}
}

// GetByID 按ID获取奖励
func (r *GormRewardRepository) GetByID(id uint) (*models.Reward, error) {
	if id == 0 {
		return nil, nil
	}
	var reward models.Reward
	if err := r.db.First(&reward, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reward, nil
}

// Create 创建奖励
func (r *GormRewardRepository) Create(reward *models.Reward) error {
	return r.db.Create(reward).Error
}

// ListActiveByStore 列出门店可用奖励
func (r *GormRewardRepository) ListActiveByStore(storeID uint) ([]models.Reward, error) {
	if storeID == 0 {
		return []models.Reward{}, nil
	}
	var rewards []models.Reward
	if err := r.db.Where("store_id = ? AND active = ?", storeID, true).
		Order("required_points asc").
		Find(&rewards).Error; err != nil {
		return nil, err
	}
	return rewards, nil
}

// ListAffordableByStore 列出余额足以兑换的门店奖励
func (r *GormRewardRepository) ListAffordableByStore(storeID uint, balance int) ([]models.Reward, error) {
	if storeID == 0 || balance <= 0 {
		return []models.Reward{}, nil
	}
	var rewards []models.Reward
	if err := r.db.Where("store_id = ? AND active = ? AND required_points > 0 AND required_points <= ?", storeID, true, balance).
		Order("required_points asc").
		Find(&rewards).Error; err != nil {
		return nil, err
	}
	return rewards, nil
}
