package constants

// 积分流水类型常量
const (
	PointsTypeSale        = "sale"
	PointsTypeQRScan      = "qr_scan"
	PointsTypeRedeem      = "redeem"
	PointsTypeRedemption  = "redemption"
	PointsTypeBonus       = "bonus"
	PointsTypeReferral    = "referral"
	PointsTypeOfflineSync = "offline_sync"
)

// 兑换提示状态常量
const (
	PromptStatusPending         = "pending"
	PromptStatusUserAccepted    = "user_accepted"
	PromptStatusUserDeclined    = "user_declined"
	PromptStatusExpired         = "expired"
	PromptStatusHandlerRejected = "handler_rejected"
	PromptStatusCompleted       = "completed"
)

// 奖励类型常量
const (
	RewardTypeFixedAmount = "fixed_amount"
	RewardTypePercentage  = "percentage"
	RewardTypeFreeProduct = "free_product"
	RewardTypeInfo        = "info"
)

// VIP 等级常量
const (
	VIPTierNone     = ""
	VIPTierBronze   = "bronze"
	VIPTierSilver   = "silver"
	VIPTierGold     = "gold"
	VIPTierPlatinum = "platinum"
)

// VIP 等级所需累计积分阈值
const (
	VIPThresholdBronze   = 100
	VIPThresholdSilver   = 500
	VIPThresholdGold     = 1500
	VIPThresholdPlatinum = 5000
)

// 连击/生日/回归奖励取值模式常量
const (
	BonusModeNone   = "none"
	BonusModeFixed  = "fixed"
	BonusModeDouble = "double"
	BonusModeTriple = "triple"
)

// 营销活动状态常量
const (
	CampaignStatusActive   = "active"
	CampaignStatusArchived = "archived"
)

// 可疑行为类型常量
const (
	SuspiciousKindGeofenceLog      = "geofence_log"
	SuspiciousKindImpossibleTravel = "impossible_travel"
)

// 推荐关系状态常量
const (
	ReferralStatusPending  = "pending"
	ReferralStatusCredited = "credited"
)

// 异步任务名称常量
const (
	TaskPromptExpire   = "prompt:expire"
	TaskFraudAlert     = "fraud:alert"
	TaskReferralCredit = "referral:credit"
)

// 队列名称常量
const (
	QueueDefault = "default"
)

// 实时事件类型常量
const (
	EventScanCompleted    = "scan.completed"
	EventPromptCreated    = "prompt.created"
	EventPromptAccepted   = "prompt.accepted"
	EventPromptDeclined   = "prompt.declined"
	EventPromptExpired    = "prompt.expired"
	EventPromptCompleted  = "prompt.completed"
	EventPromptRejected   = "prompt.rejected"
	EventFraudAlert       = "fraud.alert"
	EventReferralCredited = "referral.credited"
)
