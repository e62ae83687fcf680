package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/qrbonus-next/internal/constants"
	"github.com/qrbonus-next/internal/models"
	"github.com/qrbonus-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupStatsServiceTest(t *testing.T) (*StatsService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:stats_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.PointsEntry{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	return NewStatsService(repository.NewPointsRepository(db)), db
}

func TestGetStoreStatsAggregates(t *testing.T) {
	svc, db := setupStatsServiceTest(t)
	now := time.Now()

	entries := []models.PointsEntry{
		{UserID: 1, StoreID: 1, Points: 5, Type: constants.PointsTypeQRScan, CreatedAt: now},
		{UserID: 2, StoreID: 1, Points: 8, Type: constants.PointsTypeQRScan, CreatedAt: now},
		{UserID: 1, StoreID: 1, Points: 3, Type: constants.PointsTypeQRScan, CreatedAt: now},
		{UserID: 1, StoreID: 1, Points: -20, Type: constants.PointsTypeRedemption, CreatedAt: now},
		{UserID: 3, StoreID: 1, Points: 15, Type: constants.PointsTypeReferral, CreatedAt: now},
		// 别的门店与昨天的流水不计入
		{UserID: 1, StoreID: 2, Points: 5, Type: constants.PointsTypeQRScan, CreatedAt: now},
		{UserID: 1, StoreID: 1, Points: 5, Type: constants.PointsTypeQRScan, CreatedAt: now.AddDate(0, 0, -1)},
	}
	for i := range entries {
		if err := db.Create(&entries[i]).Error; err != nil {
			t.Fatalf("create entry failed: %v", err)
		}
	}

	stats, err := svc.GetStoreStats(context.Background(), 1, now)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.ScanCount != 3 {
		t.Fatalf("expected 3 scans, got %d", stats.ScanCount)
	}
	if stats.PointsIssued != 16 {
		t.Fatalf("expected 16 points issued, got %d", stats.PointsIssued)
	}
	if stats.RedemptionCount != 1 || stats.PointsRedeemed != 20 {
		t.Fatalf("expected 1 redemption of 20 points, got %d/%d", stats.RedemptionCount, stats.PointsRedeemed)
	}
	if stats.UniqueCustomers != 2 {
		t.Fatalf("expected 2 unique customers, got %d", stats.UniqueCustomers)
	}
}

func TestGetStoreStatsEmptyDay(t *testing.T) {
	svc, _ := setupStatsServiceTest(t)
	stats, err := svc.GetStoreStats(context.Background(), 1, time.Now())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.ScanCount != 0 || stats.PointsIssued != 0 || stats.UniqueCustomers != 0 {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}
