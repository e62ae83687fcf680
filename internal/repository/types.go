package repository

import "time"

// PointsEntryListFilter 查询积分流水的过滤条件
type PointsEntryListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	StoreID     uint
	Type        string
	CampaignID  uint
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// PromptListFilter 查询兑换提示的过滤条件
type PromptListFilter struct {
	Page     int
	PageSize int
	UserID   uint
	StoreID  uint
	Status   string
}

// SuspiciousListFilter 查询可疑行为记录的过滤条件
type SuspiciousListFilter struct {
	Page     int
	PageSize int
	UserID   uint
	StoreID  uint
	Kind     string
}
