package repository

import (
	"errors"
	"time"

	"github.com/qrbonus-next/internal/constants"
	"github.com/qrbonus-next/internal/models"

	"gorm.io/gorm"
)

// PointsRepository 积分流水数据访问接口。
// 流水仅追加；Update/Delete 不对外暴露，唯一的改写路径是提交事务内的冲正。
type PointsRepository interface {
	Create(entry *models.PointsEntry) error
	CorrectPoints(entryID uint, delta int) error
	CountQRScans(userID, storeID uint) (int64, error)
	CountRecentQRScans(userID, storeID uint, since time.Time) (int64, error)
	GetLatestQRScan(userID, storeID uint) (*models.PointsEntry, error)
	GetLatestWithCoordinates(userID uint) (*models.PointsEntry, error)
	List(filter PointsEntryListFilter) ([]models.PointsEntry, int64, error)
	StoreStatsBetween(storeID uint, from, to time.Time) (*StoreStatsRow, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) *GormPointsRepository
}

// GormPointsRepository GORM 积分流水仓储实现
type GormPointsRepository struct {
	db *gorm.DB
}

// NewPointsRepository 创建积分流水仓储
func NewPointsRepository(db *gorm.DB) *GormPointsRepository {
	return &GormPointsRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPointsRepository) WithTx(tx *gorm.DB) *GormPointsRepository {
	if tx == nil {
		return r
	}
	return &GormPointsRepository{db: tx}
}

// Transaction 执行事务
func (r *GormPointsRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

// Create 追加积分流水
func (r *GormPointsRepository) Create(entry *models.PointsEntry) error {
	return r.db.Create(entry).Error
}

// CorrectPoints 冲正指定流水的积分值（仅供提交事务内的连击/首扫复核使用）
func (r *GormPointsRepository) CorrectPoints(entryID uint, delta int) error {
	if entryID == 0 || delta == 0 {
		return nil
	}
	return r.db.Model(&models.PointsEntry{}).
		Where("id = ?", entryID).
		Update("points", gorm.Expr("points + ?", delta)).Error
}

// CountQRScans 统计顾客在门店的扫码流水数
func (r *GormPointsRepository) CountQRScans(userID, storeID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.PointsEntry{}).
		Where("user_id = ? AND store_id = ? AND type = ?", userID, storeID, constants.PointsTypeQRScan).
		Count(&count).Error
	return count, err
}

// CountRecentQRScans 统计窗口期内的扫码流水数（重复提交判定）
func (r *GormPointsRepository) CountRecentQRScans(userID, storeID uint, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.PointsEntry{}).
		Where("user_id = ? AND store_id = ? AND type = ? AND created_at > ?", userID, storeID, constants.PointsTypeQRScan, since).
		Count(&count).Error
	return count, err
}

// GetLatestQRScan 获取顾客在门店最近一次扫码流水
func (r *GormPointsRepository) GetLatestQRScan(userID, storeID uint) (*models.PointsEntry, error) {
	if userID == 0 || storeID == 0 {
		return nil, nil
	}
	var entry models.PointsEntry
	if err := r.db.Where("user_id = ? AND store_id = ? AND type = ?", userID, storeID, constants.PointsTypeQRScan).
		Order("created_at desc").
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// GetLatestWithCoordinates 获取顾客最近一条携带定位的流水（跨门店，供位置伪造检测）
func (r *GormPointsRepository) GetLatestWithCoordinates(userID uint) (*models.PointsEntry, error) {
	if userID == 0 {
		return nil, nil
	}
	var entry models.PointsEntry
	if err := r.db.Where("user_id = ? AND latitude IS NOT NULL AND longitude IS NOT NULL", userID).
		Order("created_at desc").
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// StoreStatsRow 门店积分聚合
type StoreStatsRow struct {
	ScanCount       int64 `json:"scan_count"`
	PointsIssued    int64 `json:"points_issued"`
	RedemptionCount int64 `json:"redemption_count"`
	PointsRedeemed  int64 `json:"points_redeemed"`
	UniqueCustomers int64 `json:"unique_customers"`
}

// StoreStatsBetween 统计门店在时间段内的发放与核销
func (r *GormPointsRepository) StoreStatsBetween(storeID uint, from, to time.Time) (*StoreStatsRow, error) {
	var row StoreStatsRow
	err := r.db.Model(&models.PointsEntry{}).
		Select(`
			COALESCE(SUM(CASE WHEN type = ? THEN 1 ELSE 0 END), 0) AS scan_count,
			COALESCE(SUM(CASE WHEN type = ? THEN points ELSE 0 END), 0) AS points_issued,
			COALESCE(SUM(CASE WHEN type = ? THEN 1 ELSE 0 END), 0) AS redemption_count,
			COALESCE(SUM(CASE WHEN type = ? THEN -points ELSE 0 END), 0) AS points_redeemed,
			COUNT(DISTINCT CASE WHEN type = ? THEN user_id END) AS unique_customers`,
			constants.PointsTypeQRScan,
			constants.PointsTypeQRScan,
			constants.PointsTypeRedemption,
			constants.PointsTypeRedemption,
			constants.PointsTypeQRScan).
		Where("store_id = ? AND created_at >= ? AND created_at < ?", storeID, from, to).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// List 分页查询积分流水
func (r *GormPointsRepository) List(filter PointsEntryListFilter) ([]models.PointsEntry, int64, error) {
	query := r.db.Model(&models.PointsEntry{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.StoreID != 0 {
		query = query.Where("store_id = ?", filter.StoreID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.CampaignID != 0 {
		query = query.Where("campaign_id = ?", filter.CampaignID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var entries []models.PointsEntry
	if err := query.Order("id desc").Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
