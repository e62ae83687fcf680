package customer

import (
	"strings"
	"time"

	"github.com/qrbonus-next/internal/http/handlers/shared"
	"github.com/qrbonus-next/internal/http/response"
	"github.com/qrbonus-next/internal/service"

	"github.com/gin-gonic/gin"
)

var userResponseErrorRules = []shared.MappedHandlerError{
	{Target: service.ErrPromptNotFound, Code: response.CodeNotFound, Kind: response.KindPromptNotFound, Msg: "兑换提示不存在"},
	{Target: service.ErrPromptExpired, Code: response.CodeBadRequest, Kind: response.KindPromptExpired, Msg: "兑换提示已过期"},
	{Target: service.ErrPromptConflict, Code: response.CodeConflict, Kind: response.KindPromptConflict, Msg: "兑换提示状态已变化"},
	{Target: service.ErrInvalidReward, Code: response.CodeBadRequest, Kind: response.KindInvalidReward, Msg: "奖励选择无效"},
}

// UserResponseRequest 顾客接受/婉拒兑换提示请求
type UserResponseRequest struct {
	Token    string `json:"token" binding:"required"`
	Action   string `json:"action" binding:"required"` // accept / decline
	RewardID uint   `json:"reward_id"`
}

// UserResponse 处理顾客对兑换提示的响应
func (h *Handler) UserResponse(c *gin.Context) {
	var req UserResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "accept":
		if req.RewardID == 0 {
			response.BadRequest(c, "reward_id 必填")
			return
		}
		prompt, err := h.PromptService.Accept(c.Request.Context(), req.Token, req.RewardID)
		if err != nil {
			shared.RespondWithMappedError(c, err, userResponseErrorRules,
				response.CodeInternal, response.KindTransactionError, "操作失败")
			return
		}
		response.SuccessWithMsg(c, "已接受，请等待店员确认", gin.H{
			"prompt_id": prompt.ID,
			"status":    prompt.Status,
		})
	case "decline":
		prompt, err := h.PromptService.Decline(c.Request.Context(), req.Token)
		if err != nil {
			shared.RespondWithMappedError(c, err, userResponseErrorRules,
				response.CodeInternal, response.KindTransactionError, "操作失败")
			return
		}
		response.SuccessWithMsg(c, "已记录，下次扫码可再次兑换", gin.H{
			"prompt_id": prompt.ID,
			"status":    prompt.Status,
		})
	default:
		response.BadRequest(c, "action 必须为 accept 或 decline")
	}
}

// GetPrompt 按凭据读取兑换提示详情
func (h *Handler) GetPrompt(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		response.BadRequest(c, "token 必填")
		return
	}
	prompt, err := h.PromptService.GetByToken(token)
	if err != nil {
		shared.RespondWithMappedError(c, err, userResponseErrorRules,
			response.CodeInternal, response.KindDBError, "查询失败")
		return
	}
	response.Success(c, gin.H{
		"prompt":  prompt,
		"expired": prompt.IsExpiredAt(time.Now()),
	})
}
