package queue

import (
	"encoding/json"

	"github.com/qrbonus-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskPromptExpire 兑换提示超时任务
	TaskPromptExpire = constants.TaskPromptExpire
	// TaskFraudAlert 可疑行为告警任务
	TaskFraudAlert = constants.TaskFraudAlert
	// TaskReferralCredit 推荐奖励入账任务
	TaskReferralCredit = constants.TaskReferralCredit
)

// PromptExpirePayload 兑换提示超时任务载荷
type PromptExpirePayload struct {
	PromptID uint `json:"prompt_id"`
}

// FraudAlertPayload 可疑行为告警任务载荷
type FraudAlertPayload struct {
	ActivityID uint `json:"activity_id"`
}

// ReferralCreditPayload 推荐奖励入账任务载荷
type ReferralCreditPayload struct {
	ReferralID uint `json:"referral_id"`
}

// NewPromptExpireTask 创建兑换提示超时任务
func NewPromptExpireTask(payload PromptExpirePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPromptExpire, body), nil
}

// NewFraudAlertTask 创建可疑行为告警任务
func NewFraudAlertTask(payload FraudAlertPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFraudAlert, body), nil
}

// NewReferralCreditTask 创建推荐奖励入账任务
func NewReferralCreditTask(payload ReferralCreditPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReferralCredit, body), nil
}
