package response

const (
	CodeOK              = 0
	CodeBadRequest      = 400
	CodeUnauthorized    = 401
	CodeNotFound        = 404
	CodeConflict        = 409
	CodeTooManyRequests = 429
	CodeInternal        = 500
)

// 稳定的机器可读错误类别；终端按此分支，不做字符串匹配
const (
	KindInvalidQR          = "invalid_qr"
	KindSelfScan           = "self_scan"
	KindStoreClosed        = "store_closed"
	KindGPSBlocked         = "gps_blocked"
	KindGPSSpoofDetected   = "gps_spoof_detected"
	KindNoPointsConfigured = "no_points_configured"
	KindDuplicateScan      = "duplicate_scan"
	KindRateLimited        = "rate_limited"
	KindStoreNotFound      = "store_not_found"
	KindScannerRejected    = "scanner_rejected"
	KindPromptNotFound     = "prompt_not_found"
	KindPromptExpired      = "prompt_expired"
	KindPromptConflict     = "prompt_conflict"
	KindInvalidReward      = "invalid_reward"
	KindNotEnoughPoints    = "not_enough_points"
	KindValidation         = "validation_error"
	KindDBError            = "db_error"
	KindTransactionError   = "transaction_error"
)
