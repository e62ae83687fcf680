package pos

import (
	"strings"

	"github.com/qrbonus-next/internal/http/handlers/shared"
	"github.com/qrbonus-next/internal/http/response"
	"github.com/qrbonus-next/internal/models"

	"github.com/gin-gonic/gin"
)

// HandlerResponseRequest 终端核准/拒绝兑换请求
type HandlerResponseRequest struct {
	Token          string        `json:"token" binding:"required"`
	Action         string        `json:"action" binding:"required"` // approve / reject
	Reason         string        `json:"reason"`
	PurchaseAmount *models.Money `json:"purchase_amount"` // percentage 类型奖励需要
}

// HandlerResponse 处理终端对兑换提示的最终裁决
func (h *Handler) HandlerResponse(c *gin.Context) {
	var req HandlerResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "approve":
		redemption, err := h.PromptService.Approve(c.Request.Context(), req.Token, req.PurchaseAmount)
		if err != nil {
			shared.RespondWithMappedError(c, err, handlerResponseErrorRules,
				response.CodeInternal, response.KindTransactionError, "兑换核准失败")
			return
		}
		response.SuccessWithMsg(c, "兑换已核准", gin.H{
			"redemption": redemption,
		})
	case "reject":
		prompt, err := h.PromptService.Reject(c.Request.Context(), req.Token, strings.TrimSpace(req.Reason))
		if err != nil {
			shared.RespondWithMappedError(c, err, handlerResponseErrorRules,
				response.CodeInternal, response.KindTransactionError, "兑换拒绝失败")
			return
		}
		response.SuccessWithMsg(c, "兑换已拒绝", gin.H{
			"prompt_id": prompt.ID,
			"status":    prompt.Status,
		})
	default:
		response.BadRequest(c, "action 必须为 approve 或 reject")
	}
}
