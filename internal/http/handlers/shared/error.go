package shared

import (
	"errors"

	"github.com/qrbonus-next/internal/http/response"
	"github.com/qrbonus-next/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, kind, msg string, err error) {
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", code,
			"kind", kind,
			"error", err,
		)
	}
	response.Error(c, code, kind, msg)
}

// MappedHandlerError 业务错误到接口错误响应的映射关系。
type MappedHandlerError struct {
	Target error
	Code   int
	Kind   string
	Msg    string
}

// RespondWithMappedError 按映射表输出错误；未命中时按回退项输出并记录原始错误。
func RespondWithMappedError(c *gin.Context, err error, rules []MappedHandlerError, fallbackCode int, fallbackKind, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			RespondError(c, rule.Code, rule.Kind, rule.Msg, nil)
			return
		}
	}
	RespondError(c, fallbackCode, fallbackKind, fallbackMsg, err)
}
