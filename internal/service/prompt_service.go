package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/qrbonus-next/internal/config"
	"github.com/qrbonus-next/internal/constants"
	"github.com/qrbonus-next/internal/logger"
	"github.com/qrbonus-next/internal/models"
	"github.com/qrbonus-next/internal/queue"
	"github.com/qrbonus-next/internal/realtime"
	"github.com/qrbonus-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PromptService 兑换提示状态机：pending → user_accepted/user_declined/expired，
// user_accepted → completed/handler_rejected。token 是唯一转移凭据。
type PromptService struct {
	scanCfg    config.ScanConfig
	promptRepo *repository.GormPromptRepository
	userRepo   *repository.GormUserRepository
	pointsRepo *repository.GormPointsRepository
	rewardRepo *repository.GormRewardRepository
	queue      *queue.Client
	notifier   realtime.Notifier
}

// NewPromptService 创建兑换提示服务
func NewPromptService(
	scanCfg config.ScanConfig,
	promptRepo *repository.GormPromptRepository,
	userRepo *repository.GormUserRepository,
	pointsRepo *repository.GormPointsRepository,
	rewardRepo *repository.GormRewardRepository,
	queueClient *queue.Client,
	notifier realtime.Notifier,
) *PromptService {
	if notifier == nil {
		notifier = realtime.NoopNotifier{}
	}
	return &PromptService{
		scanCfg:    scanCfg,
		promptRepo: promptRepo,
		userRepo:   userRepo,
		pointsRepo: pointsRepo,
		rewardRepo: rewardRepo,
		queue:      queueClient,
		notifier:   notifier,
	}
}

// newPromptToken 生成密码学随机的提示凭据
func newPromptToken() string {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}

// snapshotRewards 按当前余额生成奖励快照
func snapshotRewards(rewards []models.Reward) models.RewardSnapshots {
	snapshots := make(models.RewardSnapshots, 0, len(rewards))
	for _, reward := range rewards {
		snapshots = append(snapshots, models.RewardSnapshotItem{
			RewardID:       reward.ID,
			Title:          reward.Title,
			Type:           reward.Type,
			Value:          reward.Value,
			RequiredPoints: reward.RequiredPoints,
		})
	}
	return snapshots
}

// CreateOrRefresh 扫码后按余额生成兑换提示；顾客此前点过"稍后"时
// 复用同一行，刷新凭据与有效期，避免提示行无限增殖。
func (s *PromptService) CreateOrRefresh(ctx context.Context, userID, storeID, catalogStoreID uint, scannerID *uint) (*models.RedemptionPrompt, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	rewards, err := s.rewardRepo.ListAffordableByStore(catalogStoreID, user.Points)
	if err != nil {
		return nil, err
	}
	if len(rewards) == 0 {
		return nil, nil
	}

	now := time.Now()
	expiresAt := now.Add(s.scanCfg.PromptExpire())
	snapshots := snapshotRewards(rewards)

	prompt, err := s.promptRepo.GetReusableByUserAndStore(userID, storeID)
	if err != nil {
		return nil, err
	}
	if prompt != nil {
		prompt.Token = newPromptToken()
		prompt.Status = constants.PromptStatusPending
		prompt.AvailableRewards = snapshots
		prompt.SelectedRewardID = nil
		prompt.ScannerID = scannerID
		prompt.ExpiresAt = expiresAt
		if err := s.promptRepo.Save(prompt); err != nil {
			return nil, err
		}
	} else {
		prompt = &models.RedemptionPrompt{
			UserID:           userID,
			StoreID:          storeID,
			ScannerID:        scannerID,
			Token:            newPromptToken(),
			AvailableRewards: snapshots,
			Status:           constants.PromptStatusPending,
			ExpiresAt:        expiresAt,
		}
		if err := s.promptRepo.Create(prompt); err != nil {
			return nil, err
		}
	}

	if err := s.queue.EnqueuePromptExpire(queue.PromptExpirePayload{PromptID: prompt.ID}, s.scanCfg.PromptExpire()); err != nil {
		logger.Warnw("prompt_expire_enqueue_failed", "error", err, "prompt_id", prompt.ID)
	}
	s.notifier.Publish(ctx, realtime.UserChannel(userID), realtime.NewEvent(constants.EventPromptCreated, map[string]interface{}{
		"prompt_id":  prompt.ID,
		"token":      prompt.Token,
		"store_id":   storeID,
		"rewards":    prompt.AvailableRewards,
		"expires_at": prompt.ExpiresAt,
	}))
	return prompt, nil
}

// GetByToken 按凭据读取提示
func (s *PromptService) GetByToken(token string) (*models.RedemptionPrompt, error) {
	prompt, err := s.promptRepo.GetByToken(token)
	if err != nil {
		return nil, err
	}
	if prompt == nil {
		return nil, ErrPromptNotFound
	}
	return prompt, nil
}

// markExpired 惰性过期：读到超时的 pending 提示时顺手落库
func (s *PromptService) markExpired(ctx context.Context, prompt *models.RedemptionPrompt) {
	changed, err := s.promptRepo.ExpirePending(prompt.ID, time.Now())
	if err != nil {
		logger.Warnw("prompt_lazy_expire_failed", "error", err, "prompt_id", prompt.ID)
		return
	}
	if changed {
		s.notifier.Publish(ctx, realtime.UserChannel(prompt.UserID), realtime.NewEvent(constants.EventPromptExpired, map[string]interface{}{
			"prompt_id": prompt.ID,
		}))
	}
}

// Accept 顾客接受提示并选定奖励；选择必须出自创建时的快照
func (s *PromptService) Accept(ctx context.Context, token string, rewardID uint) (*models.RedemptionPrompt, error) {
	prompt, err := s.GetByToken(token)
	if err != nil {
		return nil, err
	}
	if prompt.Status != constants.PromptStatusPending {
		return nil, ErrPromptConflict
	}
	if prompt.IsExpiredAt(time.Now()) {
		s.markExpired(ctx, prompt)
		return nil, ErrPromptExpired
	}
	if !prompt.AvailableRewards.Contains(rewardID) {
		return nil, ErrInvalidReward
	}

	changed, err := s.promptRepo.TransitionStatus(prompt.ID,
		[]string{constants.PromptStatusPending},
		map[string]interface{}{
			"status":             constants.PromptStatusUserAccepted,
			"selected_reward_id": rewardID,
		})
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, ErrPromptConflict
	}
	prompt.Status = constants.PromptStatusUserAccepted
	prompt.SelectedRewardID = &rewardID

	s.notifier.Publish(ctx, realtime.StoreChannel(prompt.StoreID), realtime.NewEvent(constants.EventPromptAccepted, map[string]interface{}{
		"prompt_id": prompt.ID,
		"token":     prompt.Token,
		"user_id":   prompt.UserID,
		"reward_id": rewardID,
	}))
	return prompt, nil
}

// Decline 顾客选择"稍后"；重复拒绝是幂等的，提示行保留待下次刷新
func (s *PromptService) Decline(ctx context.Context, token string) (*models.RedemptionPrompt, error) {
	prompt, err := s.GetByToken(token)
	if err != nil {
		return nil, err
	}
	if prompt.Status == constants.PromptStatusUserDeclined {
		return prompt, nil
	}
	if prompt.Status != constants.PromptStatusPending {
		return nil, ErrPromptConflict
	}
	if prompt.IsExpiredAt(time.Now()) {
		s.markExpired(ctx, prompt)
		return nil, ErrPromptExpired
	}

	changed, err := s.promptRepo.TransitionStatus(prompt.ID,
		[]string{constants.PromptStatusPending},
		map[string]interface{}{"status": constants.PromptStatusUserDeclined})
	if err != nil {
		return nil, err
	}
	if !changed {
		// 与另一侧转移撞上；重读拿到实际状态
		current, err := s.promptRepo.GetByID(prompt.ID)
		if err != nil {
			return nil, err
		}
		if current != nil && current.Status == constants.PromptStatusUserDeclined {
			return current, nil
		}
		return nil, ErrPromptConflict
	}
	prompt.Status = constants.PromptStatusUserDeclined

	s.notifier.Publish(ctx, realtime.StoreChannel(prompt.StoreID), realtime.NewEvent(constants.EventPromptDeclined, map[string]interface{}{
		"prompt_id": prompt.ID,
		"user_id":   prompt.UserID,
	}))
	return prompt, nil
}

// redemptionValue 按奖励类型计算核销货币价值；算不出时为空但不阻断核销
func redemptionValue(item models.RewardSnapshotItem, purchaseAmount *models.Money) *models.Money {
	switch item.Type {
	case constants.RewardTypeFixedAmount, constants.RewardTypeFreeProduct:
		value := item.Value
		return &value
	case constants.RewardTypePercentage:
		if purchaseAmount == nil || !purchaseAmount.Decimal.IsPositive() {
			return nil
		}
		value := models.NewMoneyFromDecimal(
			purchaseAmount.Decimal.Mul(item.Value.Decimal).Div(decimal.NewFromInt(100)))
		return &value
	default:
		return nil
	}
}

// Approve 终端核准兑换：行锁下复核余额，落负向流水与核销记录
func (s *PromptService) Approve(ctx context.Context, token string, purchaseAmount *models.Money) (*models.Redemption, error) {
	var redemption *models.Redemption
	var prompt *models.RedemptionPrompt

	err := s.promptRepo.Transaction(func(tx *gorm.DB) error {
		txPrompt := s.promptRepo.WithTx(tx)
		txUser := s.userRepo.WithTx(tx)
		txPoints := s.pointsRepo.WithTx(tx)

		var err error
		prompt, err = txPrompt.GetByTokenForUpdate(token)
		if err != nil {
			return err
		}
		if prompt == nil {
			return ErrPromptNotFound
		}
		if prompt.Status != constants.PromptStatusUserAccepted {
			return ErrPromptConflict
		}
		if prompt.SelectedRewardID == nil {
			return ErrInvalidReward
		}
		item, ok := prompt.AvailableRewards.Find(*prompt.SelectedRewardID)
		if !ok {
			return ErrInvalidReward
		}

		// 余额复核必须在行锁下做：创建提示到核准之间余额可能已被别处消耗
		user, err := txUser.GetByIDForUpdate(prompt.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		if user.Points < item.RequiredPoints {
			return ErrNotEnoughPoints
		}

		entry := &models.PointsEntry{
			UserID:    prompt.UserID,
			StoreID:   prompt.StoreID,
			ScannerID: prompt.ScannerID,
			Points:    -item.RequiredPoints,
			Type:      constants.PointsTypeRedemption,
		}
		if err := txPoints.Create(entry); err != nil {
			return err
		}
		// 累计积分只增不减：兑换只扣可用余额
		if err := txUser.AddPoints(prompt.UserID, -item.RequiredPoints, 0); err != nil {
			return err
		}

		redemption = &models.Redemption{
			PromptID:       prompt.ID,
			UserID:         prompt.UserID,
			StoreID:        prompt.StoreID,
			RewardID:       item.RewardID,
			RewardTitle:    item.Title,
			RewardType:     item.Type,
			RequiredPoints: item.RequiredPoints,
			PurchaseAmount: purchaseAmount,
			ActualValue:    redemptionValue(item, purchaseAmount),
		}
		if err := txPrompt.CreateRedemption(redemption); err != nil {
			return err
		}

		changed, err := txPrompt.TransitionStatus(prompt.ID,
			[]string{constants.PromptStatusUserAccepted},
			map[string]interface{}{"status": constants.PromptStatusCompleted})
		if err != nil {
			return err
		}
		if !changed {
			return ErrPromptConflict
		}
		prompt.Status = constants.PromptStatusCompleted
		return nil
	})
	if err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"prompt_id":     prompt.ID,
		"redemption_id": redemption.ID,
		"reward_title":  redemption.RewardTitle,
		"points":        redemption.RequiredPoints,
	}
	s.notifier.Publish(ctx, realtime.UserChannel(prompt.UserID), realtime.NewEvent(constants.EventPromptCompleted, data))
	s.notifier.Publish(ctx, realtime.StoreChannel(prompt.StoreID), realtime.NewEvent(constants.EventPromptCompleted, data))
	return redemption, nil
}

// Reject 终端拒绝兑换；不动账
func (s *PromptService) Reject(ctx context.Context, token, reason string) (*models.RedemptionPrompt, error) {
	prompt, err := s.GetByToken(token)
	if err != nil {
		return nil, err
	}
	if prompt.Status != constants.PromptStatusUserAccepted {
		return nil, ErrPromptConflict
	}

	changed, err := s.promptRepo.TransitionStatus(prompt.ID,
		[]string{constants.PromptStatusUserAccepted},
		map[string]interface{}{
			"status":           constants.PromptStatusHandlerRejected,
			"rejection_reason": reason,
		})
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, ErrPromptConflict
	}
	prompt.Status = constants.PromptStatusHandlerRejected
	prompt.RejectionReason = reason

	s.notifier.Publish(ctx, realtime.UserChannel(prompt.UserID), realtime.NewEvent(constants.EventPromptRejected, map[string]interface{}{
		"prompt_id": prompt.ID,
		"reason":    reason,
	}))
	return prompt, nil
}

// Expire 超时任务回调：仅 pending 可转 expired
func (s *PromptService) Expire(ctx context.Context, promptID uint) error {
	prompt, err := s.promptRepo.GetByID(promptID)
	if err != nil {
		return err
	}
	if prompt == nil || prompt.Status != constants.PromptStatusPending {
		return nil
	}
	changed, err := s.promptRepo.ExpirePending(promptID, time.Now())
	if err != nil {
		return err
	}
	if changed {
		s.notifier.Publish(ctx, realtime.UserChannel(prompt.UserID), realtime.NewEvent(constants.EventPromptExpired, map[string]interface{}{
			"prompt_id": prompt.ID,
		}))
	}
	return nil
}

// List 查询提示列表
func (s *PromptService) List(filter repository.PromptListFilter) ([]models.RedemptionPrompt, int64, error) {
	return s.promptRepo.List(filter)
}
