package pos

import (
	"strconv"
	"strings"

	"github.com/qrbonus-next/internal/http/handlers/shared"
	"github.com/qrbonus-next/internal/http/response"
	"github.com/qrbonus-next/internal/realtime"
	"github.com/qrbonus-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ChannelTokenRequest 门店频道令牌请求；凭门店密钥换取订阅令牌
type ChannelTokenRequest struct {
	StoreKey string `json:"store_key" binding:"required"`
}

// GetChannelToken 签发门店私有频道订阅令牌
func (h *Handler) GetChannelToken(c *gin.Context) {
	var req ChannelTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	resolved, err := h.StoreService.ResolveByKey(strings.TrimSpace(req.StoreKey))
	if err != nil {
		shared.RespondWithMappedError(c, err, []shared.MappedHandlerError{
			{Target: service.ErrStoreNotFound, Code: response.CodeNotFound, Kind: response.KindStoreNotFound, Msg: "店鋪不存在或密钥无效"},
		}, response.CodeInternal, response.KindDBError, "查询失败")
		return
	}

	channel := realtime.StoreChannel(resolved.Store.ID)
	token, err := h.ChannelAuth.Issue("store:"+strconv.FormatUint(uint64(resolved.Store.ID), 10), []string{channel})
	if err != nil {
		shared.RespondError(c, response.CodeInternal, response.KindTransactionError, "令牌签发失败", err)
		return
	}
	response.Success(c, gin.H{
		"channel": channel,
		"token":   token,
	})
}
