package pos

import "github.com/qrbonus-next/internal/provider"

// Handler 收银终端侧接口处理器入口
// 说明：该处理器仅用于门店终端 API（扫码发放、兑换核准）。
type Handler struct {
	*provider.Container
}

// New 创建终端处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
