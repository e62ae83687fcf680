package repository

import (
	"errors"
	"time"

	"github.com/qrbonus-next/internal/models"

	"gorm.io/gorm"
)

// CampaignRepository 营销活动数据访问接口
type CampaignRepository interface {
	GetByID(id uint) (*models.Campaign, error)
	Create(campaign *models.Campaign) error
	GetActiveBonusDay(storeID uint, day time.Time) (*models.BonusDay, error)
	CreateBonusDay(bonusDay *models.BonusDay) error
	WithTx(tx *gorm.DB) *GormCampaignRepository
}

// GormCampaignRepository GORM 营销活动仓储实现
type GormCampaignRepository struct {
	db *gorm.DB
}

// NewCampaignRepository 创建营销活动仓储
func NewCampaignRepository(db *gorm.DB) *GormCampaignRepository {
	return &GormCampaignRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCampaignRepository) WithTx(tx *gorm.DB) *GormCampaignRepository {
	if tx == nil {
		return r
	}
	return &GormCampaignRepository{db: tx}
}

// GetByID 按ID获取活动
func (r *GormCampaignRepository) GetByID(id uint) (*models.Campaign, error) {
	if id == 0 {
		return nil, nil
	}
	var campaign models.Campaign
	if err := r.db.First(&campaign, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &campaign, nil
}

// Create 创建活动
func (r *GormCampaignRepository) Create(campaign *models.Campaign) error {
	return r.db.Create(campaign).Error
}

// GetActiveBonusDay 获取门店在指定日历日期生效的加倍日记录
func (r *GormCampaignRepository) GetActiveBonusDay(storeID uint, day time.Time) (*models.BonusDay, error) {
	if storeID == 0 {
		return nil, nil
	}
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	var bonusDay models.BonusDay
	if err := r.db.Where("store_id = ? AND date >= ? AND date < ?", storeID, dayStart, dayEnd).
		First(&bonusDay).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &bonusDay, nil
}

// CreateBonusDay 创建加倍日
func (r *GormCampaignRepository) CreateBonusDay(bonusDay *models.BonusDay) error {
	return r.db.Create(bonusDay).Error
}
