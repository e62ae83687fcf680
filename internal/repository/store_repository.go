package repository

import (
	"errors"
	"strings"

	"github.com/qrbonus-next/internal/models"

	"gorm.io/gorm"
)

// StoreRepository 门店数据访问接口
type StoreRepository interface {
	GetByID(id uint) (*models.Store, error)
	GetByStoreKey(storeKey string) (*models.Store, error)
	Create(store *models.Store) error
	GetScannerByFingerprint(fingerprint string) (*models.ScannerDevice, error)
	CreateScanner(device *models.ScannerDevice) error
	WithTx(tx *gorm.DB) *GormStoreRepository
}

// GormStoreRepository GORM 门店仓储实现
type GormStoreRepository struct {
	db *gorm.DB
}

// NewStoreRepository 创建门店仓储
func NewStoreRepository(db *gorm.DB) *GormStoreRepository {
	return &GormStoreRepository{db: db}
}

// WithTx 绑定事务
func (r *GormStoreRepository) WithTx(tx *gorm.DB) *GormStoreRepository {
	if tx == nil {
		return r
	}
	return &GormStoreRepository{db: tx}
}

// GetByID 按ID获取门店
func (r *GormStoreRepository) GetByID(id uint) (*models.Store, error) {
	if id == 0 {
		return nil, nil
	}
	var store models.Store
	if err := r.db.First(&store, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &store, nil
}

// GetByStoreKey 按门店密钥获取门店
func (r *GormStoreRepository) GetByStoreKey(storeKey string) (*models.Store, error) {
	storeKey = strings.TrimSpace(storeKey)
	if storeKey == "" {
		return nil, nil
	}
	var store models.Store
	if err := r.db.Where("store_key = ?", storeKey).First(&store).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &store, nil
}

// Create 创建门店
func (r *GormStoreRepository) Create(store *models.Store) error {
	return r.db.Create(store).Error
}

// GetScannerByFingerprint 按设备指纹获取终端设备
func (r *GormStoreRepository) GetScannerByFingerprint(fingerprint string) (*models.ScannerDevice, error) {
	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" {
		return nil, nil
	}
	var device models.ScannerDevice
	if err := r.db.Where("fingerprint = ?", fingerprint).First(&device).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &device, nil
}

// CreateScanner 创建终端设备
func (r *GormStoreRepository) CreateScanner(device *models.ScannerDevice) error {
	return r.db.Create(device).Error
}
