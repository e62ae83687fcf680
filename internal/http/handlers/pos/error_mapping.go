package pos

import (
	"errors"
	"fmt"

	"github.com/qrbonus-next/internal/http/handlers/shared"
	"github.com/qrbonus-next/internal/http/response"
	"github.com/qrbonus-next/internal/service"

	"github.com/gin-gonic/gin"
)

var scanErrorRules = []shared.MappedHandlerError{
	{Target: service.ErrStoreNotFound, Code: response.CodeNotFound, Kind: response.KindStoreNotFound, Msg: "店鋪不存在或密钥无效"},
	{Target: service.ErrStoreClosed, Code: response.CodeBadRequest, Kind: response.KindStoreClosed, Msg: "门店当前不在营业时间内"},
	{Target: service.ErrInvalidQR, Code: response.CodeBadRequest, Kind: response.KindInvalidQR, Msg: "二维码无效"},
	{Target: service.ErrSelfScan, Code: response.CodeBadRequest, Kind: response.KindSelfScan, Msg: "不能扫描自己的二维码"},
	{Target: service.ErrScannerNotFound, Code: response.CodeUnauthorized, Kind: response.KindScannerRejected, Msg: "终端设备未注册"},
	{Target: service.ErrScannerSecret, Code: response.CodeUnauthorized, Kind: response.KindScannerRejected, Msg: "终端密钥校验失败"},
	{Target: service.ErrGPSBlocked, Code: response.CodeBadRequest, Kind: response.KindGPSBlocked, Msg: "扫码位置超出允许范围"},
	{Target: service.ErrGPSSpoofDetected, Code: response.CodeBadRequest, Kind: response.KindGPSSpoofDetected, Msg: "检测到异常位移，扫码被拦截"},
	{Target: service.ErrNoPointsConfigured, Code: response.CodeBadRequest, Kind: response.KindNoPointsConfigured, Msg: "门店未配置积分发放"},
	{Target: service.ErrDuplicateScan, Code: response.CodeConflict, Kind: response.KindDuplicateScan, Msg: "重复扫码，请稍后再试"},
}

var handlerResponseErrorRules = []shared.MappedHandlerError{
	{Target: service.ErrPromptNotFound, Code: response.CodeNotFound, Kind: response.KindPromptNotFound, Msg: "兑换提示不存在"},
	{Target: service.ErrPromptExpired, Code: response.CodeBadRequest, Kind: response.KindPromptExpired, Msg: "兑换提示已过期"},
	{Target: service.ErrPromptConflict, Code: response.CodeConflict, Kind: response.KindPromptConflict, Msg: "兑换提示状态已变化"},
	{Target: service.ErrInvalidReward, Code: response.CodeBadRequest, Kind: response.KindInvalidReward, Msg: "奖励选择无效"},
	{Target: service.ErrNotEnoughPoints, Code: response.CodeBadRequest, Kind: response.KindNotEnoughPoints, Msg: "积分余额不足"},
	{Target: service.ErrUserNotFound, Code: response.CodeNotFound, Kind: response.KindInvalidQR, Msg: "顾客不存在"},
}

// respondScanError 扫码错误统一出口；限流错误附带重试等待时间
func respondScanError(c *gin.Context, err error) {
	var rateErr *service.RateLimitError
	if errors.As(err, &rateErr) {
		response.ErrorWithData(c, response.CodeTooManyRequests, response.KindRateLimited,
			fmt.Sprintf("请求过于频繁，请 %d 秒后重试", rateErr.RetryAfterSeconds),
			gin.H{"retry_after": rateErr.RetryAfterSeconds})
		return
	}
	shared.RespondWithMappedError(c, err, scanErrorRules,
		response.CodeInternal, response.KindTransactionError, "积分发放失败，请重试")
}
