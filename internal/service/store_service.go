package service

import (
	"strings"

	"github.com/qrbonus-next/internal/logger"
	"github.com/qrbonus-next/internal/models"
	"github.com/qrbonus-next/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// ResolvedStore 门店解析结果；分店的加成配置与奖励目录继承自父店
type ResolvedStore struct {
	Store  *models.Store // 被扫描的门店本身（围栏、营业时间、国家按此判断）
	Config *models.Store // 加成配置来源（分店时为父店）
}

// CatalogStoreID 奖励目录归属的门店ID
func (r *ResolvedStore) CatalogStoreID() uint {
	if r == nil || r.Config == nil {
		return 0
	}
	return r.Config.ID
}

// StoreService 门店解析与终端设备校验
type StoreService struct {
	storeRepo repository.StoreRepository
}

// NewStoreService 创建门店服务
func NewStoreService(storeRepo repository.StoreRepository) *StoreService {
	return &StoreService{storeRepo: storeRepo}
}

// ResolveByKey 按门店密钥解析门店并展开分店继承
func (s *StoreService) ResolveByKey(storeKey string) (*ResolvedStore, error) {
	storeKey = strings.TrimSpace(storeKey)
	if storeKey == "" {
		return nil, ErrStoreNotFound
	}
	store, err := s.storeRepo.GetByStoreKey(storeKey)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, ErrStoreNotFound
	}

	resolved := &ResolvedStore{Store: store, Config: store}
	if store.IsBranch() {
		parent, err := s.storeRepo.GetByID(*store.ParentStoreID)
		if err != nil {
			return nil, err
		}
		if parent != nil {
			resolved.Config = parent
		} else {
			logger.Warnw("store_parent_missing", "store_id", store.ID, "parent_store_id", *store.ParentStoreID)
		}
	}
	return resolved, nil
}

// ResolveScanner 按设备指纹解析终端；secret 非空时校验注册密钥
func (s *StoreService) ResolveScanner(storeID uint, fingerprint, secret string) (*models.ScannerDevice, error) {
	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" {
		return nil, nil
	}
	scanner, err := s.storeRepo.GetScannerByFingerprint(fingerprint)
	if err != nil {
		return nil, err
	}
	if scanner == nil || scanner.StoreID != storeID {
		return nil, ErrScannerNotFound
	}
	if scanner.SecretHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(scanner.SecretHash), []byte(secret)); err != nil {
			return nil, ErrScannerSecret
		}
	}
	return scanner, nil
}

// RegisterScanner 注册终端设备；注册密钥以 bcrypt 哈希存储
func (s *StoreService) RegisterScanner(storeID uint, name, fingerprint, secret string, mobile bool) (*models.ScannerDevice, error) {
	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" {
		return nil, ErrScannerNotFound
	}
	scanner := &models.ScannerDevice{
		StoreID:     storeID,
		Name:        strings.TrimSpace(name),
		Fingerprint: fingerprint,
		Mobile:      mobile,
	}
	if secret != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		scanner.SecretHash = string(hash)
	}
	if err := s.storeRepo.CreateScanner(scanner); err != nil {
		return nil, err
	}
	return scanner, nil
}
