package repository

import (
	"errors"
	"time"

	"github.com/qrbonus-next/internal/constants"
	"github.com/qrbonus-next/internal/models"

	"gorm.io/gorm"
)

// ReferralRepository 推荐关系数据访问接口
type ReferralRepository interface {
	GetByID(id uint) (*models.Referral, error)
	GetPendingByUserAndStore(userID, storeID uint) (*models.Referral, error)
	Create(referral *models.Referral) error
	MarkCredited(referralID uint, creditedAt time.Time) (bool, error)
	WithTx(tx *gorm.DB) *GormReferralRepository
}

// GormReferralRepository GORM 推荐关系仓储实现
type GormReferralRepository struct {
	db *gorm.DB
}

// NewReferralRepository 创建推荐关系仓储
func NewReferralRepository(db *gorm.DB) *GormReferralRepository {
	return &GormReferralRepository{db: db}
}

// WithTx 绑定事务
func (r *GormReferralRepository) WithTx(tx *gorm.DB) *GormReferralRepository {
	if tx == nil {
		return r
	}
	return &GormReferralRepository{db: tx}
}

// GetByID 按ID获取推荐关系
func (r *GormReferralRepository) GetByID(id uint) (*models.Referral, error) {
	if id == 0 {
		return nil, nil
	}
	var referral models.Referral
	if err := r.db.First(&referral, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referral, nil
}

// GetPendingByUserAndStore 获取被推荐人在门店的待入账推荐关系
func (r *GormReferralRepository) GetPendingByUserAndStore(userID, storeID uint) (*models.Referral, error) {
	if userID == 0 || storeID == 0 {
		return nil, nil
	}
	var referral models.Referral
	if err := r.db.Where("user_id = ? AND store_id = ? AND status = ?", userID, storeID, constants.ReferralStatusPending).
		First(&referral).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &referral, nil
}

// Create 创建推荐关系
func (r *GormReferralRepository) Create(referral *models.Referral) error {
	return r.db.Create(referral).Error
}

// MarkCredited 条件置为已入账；返回是否由本次调用完成转移
func (r *GormReferralRepository) MarkCredited(referralID uint, creditedAt time.Time) (bool, error) {
	if referralID == 0 {
		return false, nil
	}
	result := r.db.Model(&models.Referral{}).
		Where("id = ? AND status = ?", referralID, constants.ReferralStatusPending).
		Updates(map[string]interface{}{
			"status":      constants.ReferralStatusCredited,
			"credited_at": creditedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
