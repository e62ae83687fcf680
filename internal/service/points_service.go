package service

import (
	"time"

	"github.com/qrbonus-next/internal/config"
	"github.com/qrbonus-next/internal/constants"
	"github.com/qrbonus-next/internal/logger"
	"github.com/qrbonus-next/internal/models"
	"github.com/qrbonus-next/internal/repository"

	"gorm.io/gorm"
)

// PointsService 积分流水提交与冲正
type PointsService struct {
	scanCfg      config.ScanConfig
	userRepo     *repository.GormUserRepository
	pointsRepo   *repository.GormPointsRepository
	referralRepo *repository.GormReferralRepository
}

// NewPointsService 创建积分服务
func NewPointsService(
	scanCfg config.ScanConfig,
	userRepo *repository.GormUserRepository,
	pointsRepo *repository.GormPointsRepository,
	referralRepo *repository.GormReferralRepository,
) *PointsService {
	return &PointsService{
		scanCfg:      scanCfg,
		userRepo:     userRepo,
		pointsRepo:   pointsRepo,
		referralRepo: referralRepo,
	}
}

// CommitScan 在单个事务内提交扫码积分：
// 去重复核 → 落流水 → 复核连击/首扫并冲正 → 生日原子认领 → 累加用户聚合值。
// 任何一步失败整体回滚，外部不可见部分状态。
func (s *PointsService) CommitScan(entry *models.PointsEntry, breakdown *BonusBreakdown, now time.Time) error {
	if entry == nil || breakdown == nil {
		return gorm.ErrInvalidData
	}

	return s.pointsRepo.Transaction(func(tx *gorm.DB) error {
		txPoints := s.pointsRepo.WithTx(tx)
		txUsers := s.userRepo.WithTx(tx)

		// 重复提交复核：慢网络下客户端重试的幂等保护
		recent, err := txPoints.CountRecentQRScans(entry.UserID, entry.StoreID, now.Add(-s.scanCfg.DuplicateWindow()))
		if err != nil {
			return err
		}
		if recent > 0 {
			return ErrDuplicateScan
		}

		entry.Type = constants.PointsTypeQRScan
		entry.Points = breakdown.Total()
		if err := txPoints.Create(entry); err != nil {
			return err
		}

		// 插入后复核：并发扫码可能使预判的连击/首扫条件失效
		count, err := txPoints.CountQRScans(entry.UserID, entry.StoreID)
		if err != nil {
			return err
		}
		correction := 0
		if breakdown.StreakProvisional {
			every := int64(breakdown.StreakEvery)
			if every <= 0 || count%every != 0 {
				correction -= breakdown.StreakBonus
				logger.Infow("streak_bonus_reconciled",
					"user_id", entry.UserID, "store_id", entry.StoreID,
					"count", count, "revoked", breakdown.StreakBonus)
				breakdown.StreakBonus = 0
			}
		}
		if breakdown.FirstScanProvisional && count > 1 {
			correction -= breakdown.FirstScanBonus
			logger.Infow("first_scan_bonus_reconciled",
				"user_id", entry.UserID, "store_id", entry.StoreID,
				"count", count, "revoked", breakdown.FirstScanBonus)
			breakdown.FirstScanBonus = 0
		}

		// 生日奖励原子认领：条件更新失败说明并发请求已领走
		if breakdown.BirthdayProvisional {
			claimed, err := txUsers.ClaimBirthdayBonus(entry.UserID, now, BirthdayStaleBefore(now))
			if err != nil {
				return err
			}
			if !claimed {
				correction -= breakdown.BirthdayBonus
				breakdown.BirthdayBonus = 0
				breakdown.BirthdayMessage = ""
			}
		}

		if correction != 0 {
			if err := txPoints.CorrectPoints(entry.ID, correction); err != nil {
				return err
			}
			entry.Points += correction
		}

		// 聚合值只做增量更新，热路径上从不重算
		return txUsers.AddPoints(entry.UserID, entry.Points, entry.Points)
	})
}

// CreditReferral 推荐奖励入账：条件转移状态保证只入账一次
func (s *PointsService) CreditReferral(referralID uint, now time.Time) error {
	referral, err := s.referralRepo.GetByID(referralID)
	if err != nil {
		return err
	}
	if referral == nil || referral.Status != constants.ReferralStatusPending {
		return nil
	}
	bonus := s.scanCfg.ReferralBonusPoints
	if bonus <= 0 {
		return nil
	}

	return s.pointsRepo.Transaction(func(tx *gorm.DB) error {
		credited, err := s.referralRepo.WithTx(tx).MarkCredited(referral.ID, now)
		if err != nil {
			return err
		}
		if !credited {
			return nil
		}
		entry := &models.PointsEntry{
			UserID:  referral.ReferrerID,
			StoreID: referral.StoreID,
			Points:  bonus,
			Type:    constants.PointsTypeReferral,
		}
		if err := s.pointsRepo.WithTx(tx).Create(entry); err != nil {
			return err
		}
		return s.userRepo.WithTx(tx).AddPoints(referral.ReferrerID, bonus, bonus)
	})
}
