package repository

import (
	"errors"

	"github.com/qrbonus-next/internal/models"

	"gorm.io/gorm"
)

// SuspiciousRepository 可疑行为数据访问接口
type SuspiciousRepository interface {
	Create(activity *models.SuspiciousActivity) error
	GetByID(id uint) (*models.SuspiciousActivity, error)
	List(filter SuspiciousListFilter) ([]models.SuspiciousActivity, int64, error)
	WithTx(tx *gorm.DB) *GormSuspiciousRepository
}

// GormSuspiciousRepository GORM 可疑行为仓储实现
type GormSuspiciousRepository struct {
	db *gorm.DB
}

// NewSuspiciousRepository 创建可疑行为仓储
func NewSuspiciousRepository(db *gorm.DB) *GormSuspiciousRepository {
	return &GormSuspiciousRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSuspiciousRepository) WithTx(tx *gorm.DB) *GormSuspiciousRepository {
	if tx == nil {
		return r
	}
	return &GormSuspiciousRepository{db: tx}
}

// Create 创建可疑行为记录
func (r *GormSuspiciousRepository) Create(activity *models.SuspiciousActivity) error {
	return r.db.Create(activity).Error
}

// GetByID 按ID获取可疑行为记录
func (r *GormSuspiciousRepository) GetByID(id uint) (*models.SuspiciousActivity, error) {
	if id == 0 {
		return nil, nil
	}
	var activity models.SuspiciousActivity
	if err := r.db.First(&activity, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &activity, nil
}

// List 分页查询可疑行为记录
func (r *GormSuspiciousRepository) List(filter SuspiciousListFilter) ([]models.SuspiciousActivity, int64, error) {
	query := r.db.Model(&models.SuspiciousActivity{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.StoreID != 0 {
		query = query.Where("store_id = ?", filter.StoreID)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var activities []models.SuspiciousActivity
	if err := query.Order("id desc").Find(&activities).Error; err != nil {
		return nil, 0, err
	}
	return activities, total, nil
}
