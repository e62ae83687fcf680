package service

import (
	"math"
	"time"

	"github.com/qrbonus-next/internal/constants"
	"github.com/qrbonus-next/internal/models"
)

// birthdayStaleDays 生日奖励的最短间隔天数；低于此间隔视为本周期已领取
const birthdayStaleDays = 320

// BonusInput 积分计算输入；全部由调用方读好，计算本身不触库
type BonusInput struct {
	User           *models.User
	Config         *models.Store    // 加成配置（分店时为父店）
	Campaign       *models.Campaign // 可为空
	DefaultReward  *models.Reward   // 门店默认奖励，作为无活动时的基础分来源
	BonusDay       *models.BonusDay // 当日生效的加倍日记录，可为空
	PriorScanCount int64            // 用户在该门店的既有 qr_scan 条数
	LastScanAt     *time.Time       // 最近一次 qr_scan 时间
	MaxPerScan     int              // 单次扫码基础分上限
	Now            time.Time
}

// BonusBreakdown 积分构成明细；Streak/FirstScan 在提交事务内复核后才作数
type BonusBreakdown struct {
	BasePoints     int `json:"base_points"`
	TrueBasePoints int `json:"true_base_points"`

	VIPTier     string `json:"vip_tier,omitempty"`
	VIPFixBonus int    `json:"vip_fix_bonus,omitempty"`

	StreakBonus       int  `json:"streak_bonus,omitempty"`
	StreakProvisional bool `json:"-"`
	StreakEvery       int  `json:"-"` // 触发连击的扫码间隔，事务内复核时引用

	FirstScanBonus    int  `json:"first_scan_bonus,omitempty"`
	FirstScanProvisional bool `json:"-"`

	BirthdayBonus       int    `json:"birthday_bonus,omitempty"`
	BirthdayProvisional bool   `json:"-"`
	BirthdayMessage     string `json:"birthday_message,omitempty"`

	ComebackBonus   int    `json:"comeback_bonus,omitempty"`
	ComebackMessage string `json:"comeback_message,omitempty"`
}

// Total 当前明细合计；以 true_base 为起点累加各项加成
func (b *BonusBreakdown) Total() int {
	return b.TrueBasePoints +
		b.VIPFixBonus + b.StreakBonus + b.FirstScanBonus + b.BirthdayBonus + b.ComebackBonus
}

// modeValue 按取值模式计算加成值
func modeValue(mode string, fixedValue, trueBase int) int {
	switch mode {
	case constants.BonusModeFixed:
		return fixedValue
	case constants.BonusModeDouble:
		return trueBase
	case constants.BonusModeTriple:
		return trueBase * 2
	default:
		return 0
	}
}

// CalculateBonus 按固定顺序计算积分构成；后置加成引用 true_base 而非累计值
func CalculateBonus(in BonusInput) (*BonusBreakdown, error) {
	if in.User == nil || in.Config == nil {
		return nil, ErrNoPointsConfigured
	}

	// 1. 基础分：活动优先，其次门店默认奖励
	base := 0
	switch {
	case in.Campaign != nil && in.Campaign.IsActiveAt(in.Now):
		base = in.Campaign.PointsGiven
	case in.DefaultReward != nil && in.DefaultReward.PointsGiven > 0:
		base = in.DefaultReward.PointsGiven
	}
	if base <= 0 {
		return nil, ErrNoPointsConfigured
	}

	// 2. 上限保护
	if in.MaxPerScan > 0 && base > in.MaxPerScan {
		base = in.MaxPerScan
	}

	// 3. 加倍日
	trueBase := base
	if in.BonusDay != nil && in.BonusDay.Multiplier > 0 {
		trueBase = int(math.Round(float64(base)*in.BonusDay.Multiplier + float64(in.BonusDay.ExtraPoints)))
	}

	// 4. true_base：生日/回归的 double 语义以此为基准，互不复利
	breakdown := &BonusBreakdown{
		BasePoints:     base,
		TrueBasePoints: trueBase,
	}

	// 5. VIP 加成
	tier := in.User.VIPTier()
	if tier != constants.VIPTierNone {
		breakdown.VIPTier = tier
		breakdown.VIPFixBonus = in.Config.VIPFixByTier(tier)

		if in.Config.StreakCount > 0 && in.Config.StreakBonusMode != constants.BonusModeNone {
			if (in.PriorScanCount+1)%int64(in.Config.StreakCount) == 0 {
				breakdown.StreakBonus = modeValue(in.Config.StreakBonusMode, in.Config.VIPScanByTier(tier), trueBase)
				breakdown.StreakProvisional = breakdown.StreakBonus > 0
				breakdown.StreakEvery = in.Config.StreakCount
			}
		}

		if in.PriorScanCount == 0 {
			breakdown.FirstScanBonus = in.Config.VIPDailyByTier(tier)
			breakdown.FirstScanProvisional = breakdown.FirstScanBonus > 0
		}
	}

	// 6. 生日奖励：此处仅做预判，原子领取在提交事务内完成
	if in.Config.BirthdayBonusMode != constants.BonusModeNone && in.User.IsBirthdayToday(in.Now) {
		if birthdayClaimable(in.User.LastBirthdayBonusAt, in.Now) {
			bonus := modeValue(in.Config.BirthdayBonusMode, in.Config.BirthdayBonusValue, trueBase)
			if bonus > 0 {
				breakdown.BirthdayBonus = bonus
				breakdown.BirthdayProvisional = true
				breakdown.BirthdayMessage = in.Config.BirthdayBonusMessage
			}
		}
	}

	// 7. 回归奖励：首访用户不适用
	if in.Config.ComebackBonusMode != constants.BonusModeNone && in.Config.ComebackDays > 0 &&
		in.PriorScanCount > 0 && in.LastScanAt != nil {
		gap := in.Now.Sub(*in.LastScanAt)
		if gap >= time.Duration(in.Config.ComebackDays)*24*time.Hour {
			bonus := modeValue(in.Config.ComebackBonusMode, in.Config.ComebackBonusValue, trueBase)
			if bonus > 0 {
				breakdown.ComebackBonus = bonus
				breakdown.ComebackMessage = in.Config.ComebackBonusMessage
			}
		}
	}

	return breakdown, nil
}

// birthdayClaimable 判断生日奖励是否可领：从未领取或距上次领取足够久
func birthdayClaimable(lastGranted *time.Time, now time.Time) bool {
	if lastGranted == nil {
		return true
	}
	return now.Sub(*lastGranted) >= birthdayStaleDays*24*time.Hour
}

// BirthdayStaleBefore 给定当前时间返回生日奖励的过期界限
func BirthdayStaleBefore(now time.Time) time.Time {
	return now.Add(-birthdayStaleDays * 24 * time.Hour)
}
