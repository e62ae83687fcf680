package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/qrbonus-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PromptRepository 兑换提示数据访问接口
type PromptRepository interface {
	GetByToken(token string) (*models.RedemptionPrompt, error)
	GetByTokenForUpdate(token string) (*models.RedemptionPrompt, error)
	GetByID(id uint) (*models.RedemptionPrompt, error)
	GetReusableByUserAndStore(userID, storeID uint) (*models.RedemptionPrompt, error)
	Create(prompt *models.RedemptionPrompt) error
	Save(prompt *models.RedemptionPrompt) error
	TransitionStatus(promptID uint, fromStatuses []string, updates map[string]interface{}) (bool, error)
	ExpirePending(promptID uint, now time.Time) (bool, error)
	CreateRedemption(redemption *models.Redemption) error
	List(filter PromptListFilter) ([]models.RedemptionPrompt, int64, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormPromptRepository
}

// GormPromptRepository GORM 兑换提示仓储实现
type GormPromptRepository struct {
	db *gorm.DB
}

// NewPromptRepository 创建兑换提示仓储
func NewPromptRepository(db *gorm.DB) *GormPromptRepository {
	return &GormPromptRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPromptRepository) WithTx(tx *gorm.DB) *GormPromptRepository {
	if tx == nil {
		return r
	}
	return &GormPromptRepository{db: tx}
}

// Transaction 执行事务
func (r *GormPromptRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// GetByToken 按凭据获取兑换提示
func (r *GormPromptRepository) GetByToken(token string) (*models.RedemptionPrompt, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	var prompt models.RedemptionPrompt
	if err := r.db.Where("token = ?", token).First(&prompt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &prompt, nil
}

// GetByTokenForUpdate 按凭据加锁获取兑换提示
func (r *GormPromptRepository) GetByTokenForUpdate(token string) (*models.RedemptionPrompt, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	var prompt models.RedemptionPrompt
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("token = ?", token).
		First(&prompt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &prompt, nil
}

// GetByID 按ID获取兑换提示
func (r *GormPromptRepository) GetByID(id uint) (*models.RedemptionPrompt, error) {
	if id == 0 {
		return nil, nil
	}
	var prompt models.RedemptionPrompt
	if err := r.db.First(&prompt, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &prompt, nil
}

// GetReusableByUserAndStore 查找可复用的提示行（pending 或被顾客婉拒，非终态）
func (r *GormPromptRepository) GetReusableByUserAndStore(userID, storeID uint) (*models.RedemptionPrompt, error) {
	if userID == 0 || storeID == 0 {
		return nil, nil
	}
	var prompt models.RedemptionPrompt
	if err := r.db.Where("user_id = ? AND store_id = ? AND status IN ?", userID, storeID,
		[]string{"pending", "user_declined"}).
		Order("id desc").
		First(&prompt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &prompt, nil
}

// Create 创建兑换提示
func (r *GormPromptRepository) Create(prompt *models.RedemptionPrompt) error {
	return r.db.Create(prompt).Error
}

// Save 保存兑换提示
func (r *GormPromptRepository) Save(prompt *models.RedemptionPrompt) error {
	return r.db.Save(prompt).Error
}

// TransitionStatus 条件状态转移；仅当当前状态在 fromStatuses 内才生效，避免并发重复转移
func (r *GormPromptRepository) TransitionStatus(promptID uint, fromStatuses []string, updates map[string]interface{}) (bool, error) {
	if promptID == 0 || len(fromStatuses) == 0 {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["updated_at"] = time.Now()
	result := r.db.Model(&models.RedemptionPrompt{}).
		Where("id = ? AND status IN ?", promptID, fromStatuses).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ExpirePending 将到期且仍为 pending 的提示置为 expired
func (r *GormPromptRepository) ExpirePending(promptID uint, now time.Time) (bool, error) {
	if promptID == 0 {
		return false, nil
	}
	result := r.db.Model(&models.RedemptionPrompt{}).
		Where("id = ? AND status = ? AND expires_at <= ?", promptID, "pending", now).
		Updates(map[string]interface{}{
			"status":     "expired",
			"updated_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CreateRedemption 创建核销记录
func (r *GormPromptRepository) CreateRedemption(redemption *models.Redemption) error {
	return r.db.Create(redemption).Error
}

// List 分页查询兑换提示
func (r *GormPromptRepository) List(filter PromptListFilter) ([]models.RedemptionPrompt, int64, error) {
	query := r.db.Model(&models.RedemptionPrompt{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.StoreID != 0 {
		query = query.Where("store_id = ?", filter.StoreID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var prompts []models.RedemptionPrompt
	if err := query.Order("id desc").Find(&prompts).Error; err != nil {
		return nil, 0, err
	}
	return prompts, total, nil
}
