package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/qrbonus-next/internal/models"
	"github.com/qrbonus-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupStoreServiceTest(t *testing.T) (*StoreService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:store_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Store{}, &models.ScannerDevice{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	return NewStoreService(repository.NewStoreRepository(db)), db
}

func TestResolveByKeyUnknown(t *testing.T) {
	svc, _ := setupStoreServiceTest(t)
	if _, err := svc.ResolveByKey("missing"); !errors.Is(err, ErrStoreNotFound) {
		t.Fatalf("expected ErrStoreNotFound, got %v", err)
	}
	if _, err := svc.ResolveByKey("  "); !errors.Is(err, ErrStoreNotFound) {
		t.Fatalf("expected ErrStoreNotFound for blank key, got %v", err)
	}
}

func TestResolveByKeyBranchInheritsParentConfig(t *testing.T) {
	svc, db := setupStoreServiceTest(t)
	parent := models.Store{Name: "主店", StoreKey: "main", StreakCount: 5}
	if err := db.Create(&parent).Error; err != nil {
		t.Fatalf("create parent failed: %v", err)
	}
	branch := models.Store{Name: "分店", StoreKey: "branch", ParentStoreID: &parent.ID}
	if err := db.Create(&branch).Error; err != nil {
		t.Fatalf("create branch failed: %v", err)
	}

	resolved, err := svc.ResolveByKey("branch")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.Store.ID != branch.ID {
		t.Fatalf("expected scanned store %d, got %d", branch.ID, resolved.Store.ID)
	}
	if resolved.Config.ID != parent.ID || resolved.CatalogStoreID() != parent.ID {
		t.Fatalf("expected parent config %d, got %d", parent.ID, resolved.Config.ID)
	}
	if resolved.Config.StreakCount != 5 {
		t.Fatalf("expected inherited streak config, got %d", resolved.Config.StreakCount)
	}
}

func TestResolveScanner(t *testing.T) {
	svc, db := setupStoreServiceTest(t)
	store := models.Store{Name: "门店", StoreKey: "main"}
	if err := db.Create(&store).Error; err != nil {
		t.Fatalf("create store failed: %v", err)
	}
	other := models.Store{Name: "别家", StoreKey: "other"}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("create other store failed: %v", err)
	}

	scanner, err := svc.RegisterScanner(store.ID, "柜台一号机", "fp-1", "top-secret", false)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if scanner.SecretHash == "" || scanner.SecretHash == "top-secret" {
		t.Fatalf("secret must be stored hashed, got %q", scanner.SecretHash)
	}

	// 指纹为空：匿名终端，放行但不绑定设备
	got, err := svc.ResolveScanner(store.ID, "", "")
	if err != nil || got != nil {
		t.Fatalf("expected nil scanner for empty fingerprint, got %v / %v", got, err)
	}

	if _, err := svc.ResolveScanner(store.ID, "fp-unknown", ""); !errors.Is(err, ErrScannerNotFound) {
		t.Fatalf("expected ErrScannerNotFound, got %v", err)
	}
	if _, err := svc.ResolveScanner(other.ID, "fp-1", "top-secret"); !errors.Is(err, ErrScannerNotFound) {
		t.Fatalf("expected ErrScannerNotFound for foreign store, got %v", err)
	}
	if _, err := svc.ResolveScanner(store.ID, "fp-1", "wrong"); !errors.Is(err, ErrScannerSecret) {
		t.Fatalf("expected ErrScannerSecret, got %v", err)
	}

	got, err = svc.ResolveScanner(store.ID, "fp-1", "top-secret")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got == nil || got.ID != scanner.ID {
		t.Fatalf("expected scanner %d, got %+v", scanner.ID, got)
	}
}
