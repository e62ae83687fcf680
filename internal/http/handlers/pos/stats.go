package pos

import (
	"strings"
	"time"

	"github.com/qrbonus-next/internal/http/handlers/shared"
	"github.com/qrbonus-next/internal/http/response"
	"github.com/qrbonus-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetStats 门店当日运营概览；终端轮询用，结果短缓存
func (h *Handler) GetStats(c *gin.Context) {
	storeKey := strings.TrimSpace(c.Query("store_key"))
	if storeKey == "" {
		response.BadRequest(c, "store_key 不能为空")
		return
	}

	resolved, err := h.StoreService.ResolveByKey(storeKey)
	if err != nil {
		shared.RespondWithMappedError(c, err, []shared.MappedHandlerError{
			{Target: service.ErrStoreNotFound, Code: response.CodeNotFound, Kind: response.KindStoreNotFound, Msg: "店鋪不存在或密钥无效"},
		}, response.CodeInternal, response.KindDBError, "查询失败")
		return
	}

	day := time.Now()
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			response.BadRequest(c, "date 格式应为 YYYY-MM-DD")
			return
		}
		day = parsed
	}

	stats, err := h.StatsService.GetStoreStats(c.Request.Context(), resolved.Store.ID, day)
	if err != nil {
		shared.RespondError(c, response.CodeInternal, response.KindDBError, "查询失败", err)
		return
	}
	response.Success(c, stats)
}
