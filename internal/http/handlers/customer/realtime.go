package customer

import (
	"strconv"

	"github.com/qrbonus-next/internal/http/handlers/shared"
	"github.com/qrbonus-next/internal/http/response"
	"github.com/qrbonus-next/internal/realtime"

	"github.com/gin-gonic/gin"
)

// GetChannelToken 签发顾客私有频道订阅令牌
func (h *Handler) GetChannelToken(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil || userID == 0 {
		response.BadRequest(c, "user_id 无效")
		return
	}

	channel := realtime.UserChannel(uint(userID))
	token, err := h.ChannelAuth.Issue(strconv.FormatUint(userID, 10), []string{channel})
	if err != nil {
		shared.RespondError(c, response.CodeInternal, response.KindTransactionError, "令牌签发失败", err)
		return
	}
	response.Success(c, gin.H{
		"channel": channel,
		"token":   token,
	})
}
