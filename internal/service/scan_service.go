package service

import (
	"context"
	"fmt"
	"time"

	"github.com/qrbonus-next/internal/config"
	"github.com/qrbonus-next/internal/constants"
	"github.com/qrbonus-next/internal/logger"
	"github.com/qrbonus-next/internal/models"
	"github.com/qrbonus-next/internal/queue"
	"github.com/qrbonus-next/internal/ratelimit"
	"github.com/qrbonus-next/internal/realtime"
	"github.com/qrbonus-next/internal/repository"

	"github.com/google/uuid"
)

// ScanRequest 扫码请求
type ScanRequest struct {
	QR                string
	StoreKey          string
	CampaignID        *uint
	Latitude          *float64
	Longitude         *float64
	ScannerUserID     uint // 操作终端的账号ID，用于自扫检测
	ScannerName       string
	ScannerSecret     string
	DeviceFingerprint string
	CountryCode       string
	IPAddress         string
}

// ScanResult 扫码结果
type ScanResult struct {
	ScanID       string                   `json:"scan_id"`
	Points       int                      `json:"points"`
	Breakdown    *BonusBreakdown          `json:"vip_bonus_details"`
	CustomerName string                   `json:"customer_name,omitempty"`
	Prompt       *models.RedemptionPrompt `json:"redemption_prompt,omitempty"`
	GeoFlagged   bool                     `json:"-"`
}

// ScanService 扫码编排：顺序短路校验 → 计算并提交 → 事件与兑换提示
type ScanService struct {
	scanCfg       config.ScanConfig
	limitCfg      config.ScanRateLimitConfig
	qr            QRDecoder
	stores        *StoreService
	fraud         *FraudService
	points        *PointsService
	prompts       *PromptService
	limiter       ratelimit.Limiter
	userRepo      *repository.GormUserRepository
	campaignRepo  *repository.GormCampaignRepository
	rewardRepo    *repository.GormRewardRepository
	pointsRepo    *repository.GormPointsRepository
	referralRepo  *repository.GormReferralRepository
	queue         *queue.Client
	notifier      realtime.Notifier
	now           func() time.Time
}

// NewScanService 创建扫码编排服务
func NewScanService(
	scanCfg config.ScanConfig,
	limitCfg config.ScanRateLimitConfig,
	qr QRDecoder,
	stores *StoreService,
	fraud *FraudService,
	points *PointsService,
	prompts *PromptService,
	limiter ratelimit.Limiter,
	userRepo *repository.GormUserRepository,
	campaignRepo *repository.GormCampaignRepository,
	rewardRepo *repository.GormRewardRepository,
	pointsRepo *repository.GormPointsRepository,
	referralRepo *repository.GormReferralRepository,
	queueClient *queue.Client,
	notifier realtime.Notifier,
) *ScanService {
	if limiter == nil {
		limiter = ratelimit.NewMemoryLimiter()
	}
	if notifier == nil {
		notifier = realtime.NoopNotifier{}
	}
	return &ScanService{
		scanCfg:      scanCfg,
		limitCfg:     limitCfg,
		qr:           qr,
		stores:       stores,
		fraud:        fraud,
		points:       points,
		prompts:      prompts,
		limiter:      limiter,
		userRepo:     userRepo,
		campaignRepo: campaignRepo,
		rewardRepo:   rewardRepo,
		pointsRepo:   pointsRepo,
		referralRepo: referralRepo,
		queue:        queueClient,
		notifier:     notifier,
		now:          time.Now,
	}
}

func generalLimitKey(storeID uint) string {
	return fmt.Sprintf("scan:general:store:%d", storeID)
}

func successLimitKey(userID, storeID uint) string {
	return fmt.Sprintf("scan:success:user:%d:store:%d", userID, storeID)
}

func (s *ScanService) generalWindow() time.Duration {
	seconds := s.limitCfg.GeneralWindowSeconds
	if seconds <= 0 {
		seconds = 60
	}
	return time.Duration(seconds) * time.Second
}

func (s *ScanService) successWindow() time.Duration {
	seconds := s.limitCfg.SuccessWindowSeconds
	if seconds <= 0 {
		seconds = 60
	}
	return time.Duration(seconds) * time.Second
}

// checkLimit 限流检查；基础设施故障时放行，只记告警
func (s *ScanService) checkLimit(ctx context.Context, key string, limit int, window time.Duration) error {
	if limit <= 0 {
		return nil
	}
	result, err := s.limiter.Check(ctx, key, limit, window)
	if err != nil {
		logger.Warnw("rate_limit_check_failed", "error", err, "key", key)
		return nil
	}
	if !result.Allowed {
		return &RateLimitError{RetryAfterSeconds: int(result.RetryAfter / time.Second)}
	}
	return nil
}

func (s *ScanService) incrementLimit(ctx context.Context, key string, window time.Duration) {
	if err := s.limiter.Increment(ctx, key, window); err != nil {
		logger.Warnw("rate_limit_increment_failed", "error", err, "key", key)
	}
}

// Scan 处理一次扫码请求；校验严格按序短路，各自产生独立的错误类别
func (s *ScanService) Scan(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	now := s.now()

	resolved, err := s.stores.ResolveByKey(req.StoreKey)
	if err != nil {
		return nil, err
	}
	store := resolved.Store

	// 第一道限流：按门店的粗粒度滥用保护，无论结果如何都计数
	generalKey := generalLimitKey(store.ID)
	limitErr := s.checkLimit(ctx, generalKey, s.limitCfg.GeneralMax, s.generalWindow())
	s.incrementLimit(ctx, generalKey, s.generalWindow())
	if limitErr != nil {
		return nil, limitErr
	}

	if !store.IsOpenAt(now) {
		return nil, ErrStoreClosed
	}

	userID, err := s.qr.Decode(req.QR)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidQR
	}

	if req.ScannerUserID != 0 && req.ScannerUserID == userID {
		return nil, ErrSelfScan
	}

	// 第二道限流：成功扫码的细粒度配额，提交成功后才计数
	successKey := successLimitKey(userID, store.ID)
	if err := s.checkLimit(ctx, successKey, s.limitCfg.SuccessMax, s.successWindow()); err != nil {
		return nil, err
	}

	scanner, err := s.stores.ResolveScanner(store.ID, req.DeviceFingerprint, req.ScannerSecret)
	if err != nil {
		return nil, err
	}

	geo := s.fraud.ValidateLocation(store, req.Latitude, req.Longitude, scanner, req.CountryCode)
	switch geo.Action {
	case GeoActionBlock:
		logger.Warnw("scan_geofence_blocked",
			"user_id", userID, "store_id", store.ID, "distance_m", geo.DistanceM, "reason", geo.Reason)
		return nil, ErrGPSBlocked
	case GeoActionLog:
		if record := s.fraud.RecordGeofenceLog(userID, store.ID, geo.DistanceM, geo.Reason, req.IPAddress); record != nil {
			s.enqueueFraudAlert(record.ID)
		}
	}

	if req.Latitude != nil && req.Longitude != nil {
		travel, err := s.fraud.CheckImpossibleTravel(userID, *req.Latitude, *req.Longitude, now)
		if err != nil {
			return nil, err
		}
		if travel.Spoofed {
			if record := s.fraud.RecordImpossibleTravel(userID, store.ID, travel, req.IPAddress); record != nil {
				s.enqueueFraudAlert(record.ID)
			}
			return nil, ErrGPSSpoofDetected
		}
	}

	// 读齐计算输入；活动必须归属当前奖励目录门店才生效
	var campaign *models.Campaign
	if req.CampaignID != nil && *req.CampaignID != 0 {
		campaign, err = s.campaignRepo.GetByID(*req.CampaignID)
		if err != nil {
			return nil, err
		}
		if campaign != nil && campaign.StoreID != resolved.CatalogStoreID() && campaign.StoreID != store.ID {
			campaign = nil
		}
	}
	var defaultReward *models.Reward
	if resolved.Config.DefaultRewardID != nil {
		defaultReward, err = s.rewardRepo.GetByID(*resolved.Config.DefaultRewardID)
		if err != nil {
			return nil, err
		}
	}
	bonusDay, err := s.campaignRepo.GetActiveBonusDay(resolved.CatalogStoreID(), now)
	if err != nil {
		return nil, err
	}
	priorCount, err := s.pointsRepo.CountQRScans(userID, store.ID)
	if err != nil {
		return nil, err
	}
	var lastScanAt *time.Time
	if priorCount > 0 {
		last, err := s.pointsRepo.GetLatestQRScan(userID, store.ID)
		if err != nil {
			return nil, err
		}
		if last != nil {
			lastScanAt = &last.CreatedAt
		}
	}

	breakdown, err := CalculateBonus(BonusInput{
		User:           user,
		Config:         resolved.Config,
		Campaign:       campaign,
		DefaultReward:  defaultReward,
		BonusDay:       bonusDay,
		PriorScanCount: priorCount,
		LastScanAt:     lastScanAt,
		MaxPerScan:     s.scanCfg.MaxPointsPerScan,
		Now:            now,
	})
	if err != nil {
		return nil, err
	}

	entry := &models.PointsEntry{
		ScanID:            uuid.NewString(),
		UserID:            userID,
		StoreID:           store.ID,
		CampaignID:        req.CampaignID,
		DeviceFingerprint: req.DeviceFingerprint,
		IPAddress:         req.IPAddress,
		Latitude:          req.Latitude,
		Longitude:         req.Longitude,
	}
	if scanner != nil {
		entry.ScannerID = &scanner.ID
	}
	if campaign == nil {
		entry.CampaignID = nil
	}

	if err := s.points.CommitScan(entry, breakdown, now); err != nil {
		return nil, err
	}

	s.incrementLimit(ctx, successKey, s.successWindow())

	// 首扫触发推荐入账（异步，失败不影响本次发放）
	if priorCount == 0 {
		s.attributeReferral(userID, store.ID)
	}

	logger.Infow("scan_committed",
		"scan_id", entry.ScanID, "user_id", userID, "store_id", store.ID,
		"points", entry.Points, "geo_flagged", geo.Action == GeoActionLog)

	s.notifier.Publish(ctx, realtime.StoreChannel(store.ID), realtime.NewEvent(constants.EventScanCompleted, map[string]interface{}{
		"scan_id":       entry.ScanID,
		"user_id":       userID,
		"customer_name": user.Name,
		"points":        entry.Points,
	}))
	s.notifier.Publish(ctx, realtime.UserChannel(userID), realtime.NewEvent(constants.EventScanCompleted, map[string]interface{}{
		"scan_id":  entry.ScanID,
		"store_id": store.ID,
		"points":   entry.Points,
	}))

	result := &ScanResult{
		ScanID:       entry.ScanID,
		Points:       entry.Points,
		Breakdown:    breakdown,
		CustomerName: user.Name,
		GeoFlagged:   geo.Action == GeoActionLog,
	}

	var scannerID *uint
	if scanner != nil {
		scannerID = &scanner.ID
	}
	prompt, err := s.prompts.CreateOrRefresh(ctx, userID, store.ID, resolved.CatalogStoreID(), scannerID)
	if err != nil {
		// 提示创建失败不回滚已提交的发放
		logger.Errorw("prompt_create_failed", "error", err, "user_id", userID, "store_id", store.ID)
	} else {
		result.Prompt = prompt
	}

	return result, nil
}

func (s *ScanService) enqueueFraudAlert(activityID uint) {
	if err := s.queue.EnqueueFraudAlert(queue.FraudAlertPayload{ActivityID: activityID}); err != nil {
		logger.Warnw("fraud_alert_enqueue_failed", "error", err, "activity_id", activityID)
	}
}

func (s *ScanService) attributeReferral(userID, storeID uint) {
	referral, err := s.referralRepo.GetPendingByUserAndStore(userID, storeID)
	if err != nil {
		logger.Warnw("referral_lookup_failed", "error", err, "user_id", userID, "store_id", storeID)
		return
	}
	if referral == nil {
		return
	}
	if err := s.queue.EnqueueReferralCredit(queue.ReferralCreditPayload{ReferralID: referral.ID}); err != nil {
		logger.Warnw("referral_credit_enqueue_failed", "error", err, "referral_id", referral.ID)
	}
}
