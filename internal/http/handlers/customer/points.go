package customer

import (
	"strconv"

	"github.com/qrbonus-next/internal/http/handlers/shared"
	"github.com/qrbonus-next/internal/http/response"
	"github.com/qrbonus-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetPointsHistory 查询顾客积分流水
func (h *Handler) GetPointsHistory(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil || userID == 0 {
		response.BadRequest(c, "user_id 无效")
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = shared.NormalizePagination(page, pageSize)

	entries, total, err := h.PointsRepo.List(repository.PointsEntryListFilter{
		UserID:   uint(userID),
		Type:     c.Query("type"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		shared.RespondError(c, response.CodeInternal, response.KindDBError, "查询失败", err)
		return
	}

	user, err := h.UserRepo.GetByID(uint(userID))
	if err != nil {
		shared.RespondError(c, response.CodeInternal, response.KindDBError, "查询失败", err)
		return
	}
	data := gin.H{"entries": entries}
	if user != nil {
		data["points"] = user.Points
		data["lifetime_points"] = user.LifetimePoints
		data["vip_tier"] = user.VIPTier()
	}
	response.SuccessWithPage(c, data, shared.BuildPagination(page, pageSize, total))
}
