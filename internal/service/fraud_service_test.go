package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/qrbonus-next/internal/config"
	"github.com/qrbonus-next/internal/constants"
	"github.com/qrbonus-next/internal/models"
	"github.com/qrbonus-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupFraudServiceTest(t *testing.T) (*FraudService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:fraud_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.PointsEntry{}, &models.SuspiciousActivity{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	cfg := config.GeofenceConfig{AllowRadiusM: 100, LogRadiusM: 500, SpoofSpeedKmh: 300}
	return NewFraudService(cfg, repository.NewPointsRepository(db), repository.NewSuspiciousRepository(db)), db
}

func geoTestStore() *models.Store {
	lat, lng := 52.5200, 13.4050
	return &models.Store{ID: 1, CountryCode: "DE", Latitude: &lat, Longitude: &lng}
}

func TestValidateLocationMobileScannerBypass(t *testing.T) {
	svc, _ := setupFraudServiceTest(t)
	lat, lng := 0.0, 0.0
	result := svc.ValidateLocation(geoTestStore(), &lat, &lng, &models.ScannerDevice{Mobile: true}, "US")
	if result.Action != GeoActionAllow {
		t.Fatalf("mobile scanner must bypass geofence, got %q", result.Action)
	}
}

func TestValidateLocationStoreWithoutCoordinates(t *testing.T) {
	svc, _ := setupFraudServiceTest(t)
	lat, lng := 0.0, 0.0
	result := svc.ValidateLocation(&models.Store{ID: 1}, &lat, &lng, nil, "")
	if result.Action != GeoActionAllow {
		t.Fatalf("store without coordinates must allow, got %q", result.Action)
	}
}

func TestValidateLocationCountryMismatch(t *testing.T) {
	svc, _ := setupFraudServiceTest(t)
	lat, lng := 52.5200, 13.4050
	result := svc.ValidateLocation(geoTestStore(), &lat, &lng, nil, "us")
	if result.Action != GeoActionBlock {
		t.Fatalf("country mismatch must block, got %q", result.Action)
	}
}

func TestValidateLocationMissingCoordinatesLogs(t *testing.T) {
	svc, _ := setupFraudServiceTest(t)
	result := svc.ValidateLocation(geoTestStore(), nil, nil, nil, "DE")
	if result.Action != GeoActionLog {
		t.Fatalf("missing coordinates must log, got %q", result.Action)
	}
}

func TestValidateLocationZones(t *testing.T) {
	svc, _ := setupFraudServiceTest(t)
	store := geoTestStore()

	// 1° 纬度约 111km；按半径挑三个距离点
	near := *store.Latitude + 0.0005  // ~55m
	mid := *store.Latitude + 0.0025   // ~280m
	far := *store.Latitude + 0.05     // ~5.5km

	for _, tc := range []struct {
		lat    float64
		action string
	}{
		{near, GeoActionAllow},
		{mid, GeoActionLog},
		{far, GeoActionBlock},
	} {
		lat := tc.lat
		result := svc.ValidateLocation(store, &lat, store.Longitude, nil, "DE")
		if result.Action != tc.action {
			t.Fatalf("lat offset %.4f: expected %q, got %q (distance %.0fm)", tc.lat-*store.Latitude, tc.action, result.Action, result.DistanceM)
		}
	}
}

func TestValidateLocationStoreRadiusOverride(t *testing.T) {
	svc, _ := setupFraudServiceTest(t)
	store := geoTestStore()
	store.GeofenceRadiusM = 1000
	lat := *store.Latitude + 0.0025 // ~280m：默认配置下是 log，门店宽半径下放行
	result := svc.ValidateLocation(store, &lat, store.Longitude, nil, "DE")
	if result.Action != GeoActionAllow {
		t.Fatalf("store radius override must allow, got %q", result.Action)
	}
}

func TestCheckImpossibleTravel(t *testing.T) {
	svc, db := setupFraudServiceTest(t)
	now := time.Now()
	lat, lng := 52.5200, 13.4050
	last := models.PointsEntry{
		UserID:    1,
		StoreID:   1,
		Points:    5,
		Type:      constants.PointsTypeQRScan,
		Latitude:  &lat,
		Longitude: &lng,
		CreatedAt: now.Add(-10 * time.Minute),
	}
	if err := db.Create(&last).Error; err != nil {
		t.Fatalf("create last scan failed: %v", err)
	}

	// 10 分钟挪了约 1km：正常
	travel, err := svc.CheckImpossibleTravel(1, lat+0.01, lng, now)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if travel.Spoofed {
		t.Fatalf("expected plausible travel, got spoofed at %.0f km/h", travel.SpeedKmh)
	}

	// 10 分钟挪了约 550km：判定伪造
	travel, err = svc.CheckImpossibleTravel(1, lat+5, lng, now)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !travel.Spoofed {
		t.Fatalf("expected spoof detection, got %.0f km/h", travel.SpeedKmh)
	}
}

func TestCheckImpossibleTravelNoHistory(t *testing.T) {
	svc, _ := setupFraudServiceTest(t)
	travel, err := svc.CheckImpossibleTravel(1, 52.52, 13.40, time.Now())
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if travel.Spoofed {
		t.Fatal("no history must not flag spoofing")
	}
}

func TestRecordGeofenceLogPersists(t *testing.T) {
	svc, db := setupFraudServiceTest(t)
	record := svc.RecordGeofenceLog(1, 2, 250, "scan at 250m, allow radius 100m", "203.0.113.9")
	if record == nil {
		t.Fatal("expected record")
	}
	var stored models.SuspiciousActivity
	if err := db.First(&stored, record.ID).Error; err != nil {
		t.Fatalf("load record failed: %v", err)
	}
	if stored.Kind != constants.SuspiciousKindGeofenceLog || stored.UserID != 1 || stored.StoreID != 2 {
		t.Fatalf("unexpected record: %+v", stored)
	}
}
