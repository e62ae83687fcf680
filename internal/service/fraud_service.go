package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/qrbonus-next/internal/config"
	"github.com/qrbonus-next/internal/constants"
	"github.com/qrbonus-next/internal/logger"
	"github.com/qrbonus-next/internal/models"
	"github.com/qrbonus-next/internal/repository"
)

// 地理围栏判定动作
const (
	GeoActionAllow = "allow"
	GeoActionLog   = "log"
	GeoActionBlock = "block"
)

// GeoResult 地理围栏判定结果
type GeoResult struct {
	Action    string
	DistanceM float64
	Reason    string
}

// TravelResult 位移合理性判定结果
type TravelResult struct {
	Spoofed   bool
	SpeedKmh  float64
	DistanceM float64
}

// FraudService 地理围栏与位移反作弊校验
type FraudService struct {
	cfg            config.GeofenceConfig
	pointsRepo     repository.PointsRepository
	suspiciousRepo repository.SuspiciousRepository
}

// NewFraudService 创建反作弊服务
func NewFraudService(cfg config.GeofenceConfig, pointsRepo repository.PointsRepository, suspiciousRepo repository.SuspiciousRepository) *FraudService {
	return &FraudService{cfg: cfg, pointsRepo: pointsRepo, suspiciousRepo: suspiciousRepo}
}

// haversineM 两个经纬度坐标的球面距离（米）
func haversineM(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusM = 6371000.0
	rad := math.Pi / 180.0
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// ValidateLocation 三段围栏判定；巡回终端与未配置坐标的门店直接放行
func (s *FraudService) ValidateLocation(store *models.Store, lat, lng *float64, scanner *models.ScannerDevice, countryCode string) GeoResult {
	if scanner != nil && scanner.Mobile {
		return GeoResult{Action: GeoActionAllow}
	}
	if store == nil || store.Latitude == nil || store.Longitude == nil {
		return GeoResult{Action: GeoActionAllow}
	}

	countryCode = strings.ToUpper(strings.TrimSpace(countryCode))
	if countryCode != "" && store.CountryCode != "" && countryCode != strings.ToUpper(store.CountryCode) {
		return GeoResult{
			Action: GeoActionBlock,
			Reason: fmt.Sprintf("country mismatch: %s != %s", countryCode, strings.ToUpper(store.CountryCode)),
		}
	}

	if lat == nil || lng == nil {
		// 无坐标时放行但记录，便于审计无 GPS 的终端
		return GeoResult{Action: GeoActionLog, Reason: "no coordinates supplied"}
	}

	allowRadius := store.GeofenceRadiusM
	if allowRadius <= 0 {
		allowRadius = s.cfg.AllowRadiusM
	}
	logRadius := s.cfg.LogRadiusM
	if logRadius < allowRadius {
		logRadius = allowRadius
	}

	distance := haversineM(*store.Latitude, *store.Longitude, *lat, *lng)
	switch {
	case distance <= allowRadius:
		return GeoResult{Action: GeoActionAllow, DistanceM: distance}
	case distance <= logRadius:
		return GeoResult{
			Action:    GeoActionLog,
			DistanceM: distance,
			Reason:    fmt.Sprintf("scan at %.0fm, allow radius %.0fm", distance, allowRadius),
		}
	default:
		return GeoResult{
			Action:    GeoActionBlock,
			DistanceM: distance,
			Reason:    fmt.Sprintf("scan at %.0fm, log radius %.0fm", distance, logRadius),
		}
	}
}

// CheckImpossibleTravel 按用户上一次带坐标的扫码推算位移速度
func (s *FraudService) CheckImpossibleTravel(userID uint, lat, lng float64, now time.Time) (TravelResult, error) {
	last, err := s.pointsRepo.GetLatestWithCoordinates(userID)
	if err != nil {
		return TravelResult{}, err
	}
	if last == nil || !last.HasCoordinates() {
		return TravelResult{}, nil
	}

	elapsed := now.Sub(last.CreatedAt)
	if elapsed <= 0 {
		elapsed = time.Second
	}
	distance := haversineM(*last.Latitude, *last.Longitude, lat, lng)
	speedKmh := distance / 1000.0 / elapsed.Hours()
	if speedKmh <= s.cfg.SpoofSpeedKmh {
		return TravelResult{SpeedKmh: speedKmh, DistanceM: distance}, nil
	}
	return TravelResult{Spoofed: true, SpeedKmh: speedKmh, DistanceM: distance}, nil
}

// RecordSuspicious 落库可疑行为记录；失败只告警不阻断
func (s *FraudService) RecordSuspicious(record *models.SuspiciousActivity) *models.SuspiciousActivity {
	if err := s.suspiciousRepo.Create(record); err != nil {
		logger.Errorw("suspicious_record_failed", "error", err, "user_id", record.UserID, "kind", record.Kind)
		return nil
	}
	return record
}

// RecordGeofenceLog 记录围栏告警区扫码
func (s *FraudService) RecordGeofenceLog(userID, storeID uint, distance float64, reason, ip string) *models.SuspiciousActivity {
	return s.RecordSuspicious(&models.SuspiciousActivity{
		UserID:    userID,
		StoreID:   storeID,
		Kind:      constants.SuspiciousKindGeofenceLog,
		DistanceM: distance,
		Message:   reason,
		IPAddress: ip,
	})
}

// RecordImpossibleTravel 记录位移异常
func (s *FraudService) RecordImpossibleTravel(userID, storeID uint, travel TravelResult, ip string) *models.SuspiciousActivity {
	return s.RecordSuspicious(&models.SuspiciousActivity{
		UserID:    userID,
		StoreID:   storeID,
		Kind:      constants.SuspiciousKindImpossibleTravel,
		DistanceM: travel.DistanceM,
		SpeedKmh:  travel.SpeedKmh,
		Message:   fmt.Sprintf("implied speed %.0f km/h exceeds %.0f km/h", travel.SpeedKmh, s.cfg.SpoofSpeedKmh),
		IPAddress: ip,
	})
}
