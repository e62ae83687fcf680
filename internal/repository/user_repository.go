package repository

import (
	"errors"
	"time"

	"github.com/qrbonus-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository 顾客数据访问接口
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	GetByIDForUpdate(id uint) (*models.User, error)
	Create(user *models.User) error
	AddPoints(userID uint, delta int, lifetimeDelta int) error
	ClaimBirthdayBonus(userID uint, grantedAt time.Time, staleBefore time.Time) (bool, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormUserRepository
}

// GormUserRepository GORM 顾客仓储实现
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建顾客仓储
func NewUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// WithTx 绑定事务
func (r *GormUserRepository) WithTx(tx *gorm.DB) *GormUserRepository {
	if tx == nil {
		return r
	}
	return &GormUserRepository{db: tx}
}

// Transaction 执行事务
func (r *GormUserRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// GetByID 按ID获取顾客
func (r *GormUserRepository) GetByID(id uint) (*models.User, error) {
	if id == 0 {
		return nil, nil
	}
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByIDForUpdate 按ID加锁获取顾客
func (r *GormUserRepository) GetByIDForUpdate(id uint) (*models.User, error) {
	if id == 0 {
		return nil, nil
	}
	var user models.User
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Create 创建顾客
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// AddPoints 以增量方式更新可用积分与累计积分（绝不重算求和）
func (r *GormUserRepository) AddPoints(userID uint, delta int, lifetimeDelta int) error {
	if userID == 0 {
		return nil
	}
	updates := map[string]interface{}{
		"points":     gorm.Expr("points + ?", delta),
		"updated_at": time.Now(),
	}
	if lifetimeDelta != 0 {
		updates["lifetime_points"] = gorm.Expr("lifetime_points + ?", lifetimeDelta)
	}
	return r.db.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error
}

// ClaimBirthdayBonus 原子认领生日奖励；仅当陈旧条件在写入时仍成立才生效
func (r *GormUserRepository) ClaimBirthdayBonus(userID uint, grantedAt time.Time, staleBefore time.Time) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	result := r.db.Model(&models.User{}).
		Where("id = ? AND (last_birthday_bonus_at IS NULL OR last_birthday_bonus_at <= ?)", userID, staleBefore).
		Updates(map[string]interface{}{
			"last_birthday_bonus_at": grantedAt,
			"updated_at":             time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
