package service

import (
	"context"
	"fmt"
	"time"

	"github.com/qrbonus-next/internal/cache"
	"github.com/qrbonus-next/internal/repository"
)

const storeStatsCacheTTL = 60 * time.Second

// StoreStats 门店当日运营概览
type StoreStats struct {
	StoreID         uint   `json:"store_id"`
	Date            string `json:"date"`
	ScanCount       int64  `json:"scan_count"`
	PointsIssued    int64  `json:"points_issued"`
	RedemptionCount int64  `json:"redemption_count"`
	PointsRedeemed  int64  `json:"points_redeemed"`
	UniqueCustomers int64  `json:"unique_customers"`
}

// StatsService 门店运营统计；结果短缓存，终端轮询不打穿数据库
type StatsService struct {
	pointsRepo repository.PointsRepository
}

// NewStatsService 创建统计服务
func NewStatsService(pointsRepo repository.PointsRepository) *StatsService {
	return &StatsService{pointsRepo: pointsRepo}
}

// GetStoreStats 返回门店在指定日历日的发放与核销聚合
func (s *StatsService) GetStoreStats(ctx context.Context, storeID uint, day time.Time) (*StoreStats, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.AddDate(0, 0, 1)

	cacheKey := fmt.Sprintf("stats:store:%d:%s", storeID, from.Format("2006-01-02"))
	var cached StoreStats
	if hit, err := cache.GetJSON(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	row, err := s.pointsRepo.StoreStatsBetween(storeID, from, to)
	if err != nil {
		return nil, err
	}
	stats := &StoreStats{
		StoreID:         storeID,
		Date:            from.Format("2006-01-02"),
		ScanCount:       row.ScanCount,
		PointsIssued:    row.PointsIssued,
		RedemptionCount: row.RedemptionCount,
		PointsRedeemed:  row.PointsRedeemed,
		UniqueCustomers: row.UniqueCustomers,
	}

	_ = cache.SetJSON(ctx, cacheKey, stats, storeStatsCacheTTL)
	return stats, nil
}
