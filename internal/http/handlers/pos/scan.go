package pos

import (
	"strconv"

	"github.com/qrbonus-next/internal/http/handlers/shared"
	"github.com/qrbonus-next/internal/http/response"
	"github.com/qrbonus-next/internal/repository"
	"github.com/qrbonus-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ScanRequest 扫码发放请求
type ScanRequest struct {
	QR                string   `json:"qr" binding:"required"`
	StoreKey          string   `json:"store_key" binding:"required"`
	CampaignID        *uint    `json:"campaign_id"`
	Latitude          *float64 `json:"latitude"`
	Longitude         *float64 `json:"longitude"`
	ScannerID         uint     `json:"scanner_id"`
	ScannerName       string   `json:"scanner_name"`
	ScannerSecret     string   `json:"scanner_secret"`
	DeviceFingerprint string   `json:"device_fingerprint"`
	CountryCode       string   `json:"country_code"`
}

// Scan 处理扫码发放
func (h *Handler) Scan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "参数错误")
		return
	}

	result, err := h.ScanService.Scan(c.Request.Context(), service.ScanRequest{
		QR:                req.QR,
		StoreKey:          req.StoreKey,
		CampaignID:        req.CampaignID,
		Latitude:          req.Latitude,
		Longitude:         req.Longitude,
		ScannerUserID:     req.ScannerID,
		ScannerName:       req.ScannerName,
		ScannerSecret:     req.ScannerSecret,
		DeviceFingerprint: req.DeviceFingerprint,
		CountryCode:       req.CountryCode,
		IPAddress:         c.ClientIP(),
	})
	if err != nil {
		respondScanError(c, err)
		return
	}

	data := gin.H{
		"scan_id":           result.ScanID,
		"points":            result.Points,
		"vip_bonus_details": result.Breakdown,
		"customer_name":     result.CustomerName,
	}
	if result.Prompt != nil {
		data["redemption_prompt"] = result.Prompt
	}
	response.SuccessWithMsg(c, "积分发放成功", data)
}

// ListScans 查询门店扫码流水
func (h *Handler) ListScans(c *gin.Context) {
	storeID, err := strconv.ParseUint(c.Query("store_id"), 10, 32)
	if err != nil || storeID == 0 {
		response.BadRequest(c, "store_id 无效")
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = shared.NormalizePagination(page, pageSize)

	entries, total, err := h.PointsRepo.List(repository.PointsEntryListFilter{
		StoreID:  uint(storeID),
		Type:     c.Query("type"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		shared.RespondError(c, response.CodeInternal, response.KindDBError, "查询失败", err)
		return
	}
	response.SuccessWithPage(c, entries, shared.BuildPagination(page, pageSize, total))
}
