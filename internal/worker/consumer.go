package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/qrbonus-next/internal/constants"
	"github.com/qrbonus-next/internal/logger"
	"github.com/qrbonus-next/internal/provider"
	"github.com/qrbonus-next/internal/queue"
	"github.com/qrbonus-next/internal/realtime"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskPromptExpire, c.handlePromptExpire)
	mux.HandleFunc(queue.TaskFraudAlert, c.handleFraudAlert)
	mux.HandleFunc(queue.TaskReferralCredit, c.handleReferralCredit)
}

func (c *Consumer) handlePromptExpire(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	var payload queue.PromptExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_prompt_expire_unmarshal_failed", "error", err)
		return err
	}
	if payload.PromptID == 0 {
		logger.Debugw("worker_prompt_expire_skip_invalid_payload", "prompt_id", payload.PromptID)
		return nil
	}
	if err := c.PromptService.Expire(ctx, payload.PromptID); err != nil {
		logger.Warnw("worker_prompt_expire_failed", "prompt_id", payload.PromptID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleFraudAlert(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	var payload queue.FraudAlertPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_fraud_alert_unmarshal_failed", "error", err)
		return err
	}
	if payload.ActivityID == 0 {
		return nil
	}
	activity, err := c.SuspiciousRepo.GetByID(payload.ActivityID)
	if err != nil {
		logger.Warnw("worker_fraud_alert_fetch_failed", "activity_id", payload.ActivityID, "error", err)
		return err
	}
	if activity == nil {
		logger.Debugw("worker_fraud_alert_skip_not_found", "activity_id", payload.ActivityID)
		return nil
	}

	logger.Warnw("suspicious_activity_alert",
		"activity_id", activity.ID, "kind", activity.Kind,
		"user_id", activity.UserID, "store_id", activity.StoreID,
		"distance_m", activity.DistanceM, "speed_kmh", activity.SpeedKmh,
		"message", activity.Message)
	c.Notifier.Publish(ctx, realtime.StoreChannel(activity.StoreID), realtime.NewEvent(constants.EventFraudAlert, map[string]interface{}{
		"activity_id": activity.ID,
		"kind":        activity.Kind,
		"user_id":     activity.UserID,
		"message":     activity.Message,
	}))
	return nil
}

func (c *Consumer) handleReferralCredit(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		return nil
	}
	var payload queue.ReferralCreditPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_referral_credit_unmarshal_failed", "error", err)
		return err
	}
	if payload.ReferralID == 0 {
		return nil
	}
	if err := c.PointsService.CreditReferral(payload.ReferralID, time.Now()); err != nil {
		logger.Warnw("worker_referral_credit_failed", "referral_id", payload.ReferralID, "error", err)
		return err
	}

	referral, err := c.ReferralRepo.GetByID(payload.ReferralID)
	if err != nil || referral == nil {
		return err
	}
	if referral.Status == constants.ReferralStatusCredited {
		c.Notifier.Publish(ctx, realtime.UserChannel(referral.ReferrerID), realtime.NewEvent(constants.EventReferralCredited, map[string]interface{}{
			"referral_id": referral.ID,
			"store_id":    referral.StoreID,
		}))
	}
	return nil
}
