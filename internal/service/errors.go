package service

import "errors"

// 业务错误哨兵；处理器层据此映射到稳定的错误类别与 HTTP 状态
var (
	ErrInvalidQR          = errors.New("invalid qr payload")
	ErrUserNotFound       = errors.New("user not found")
	ErrStoreNotFound      = errors.New("store not found")
	ErrScannerNotFound    = errors.New("scanner device not found")
	ErrScannerSecret      = errors.New("scanner secret mismatch")
	ErrSelfScan           = errors.New("self scan blocked")
	ErrStoreClosed        = errors.New("store closed")
	ErrGPSBlocked         = errors.New("scan outside allowed radius")
	ErrGPSSpoofDetected   = errors.New("impossible travel detected")
	ErrNoPointsConfigured = errors.New("no points configured")
	ErrDuplicateScan      = errors.New("duplicate scan inside window")
	ErrRateLimited        = errors.New("rate limited")
	ErrPromptNotFound     = errors.New("prompt not found")
	ErrPromptExpired      = errors.New("prompt expired")
	ErrPromptConflict     = errors.New("prompt already resolved")
	ErrInvalidReward      = errors.New("reward not in prompt offer")
	ErrRewardNotFound     = errors.New("reward not found")
	ErrNotEnoughPoints    = errors.New("not enough points")
)

// RateLimitError 限流错误；附带建议等待秒数
type RateLimitError struct {
	RetryAfterSeconds int
}

func (e *RateLimitError) Error() string {
	return "rate limited"
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}
