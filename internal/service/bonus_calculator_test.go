package service

import (
	"errors"
	"testing"
	"time"

	"github.com/qrbonus-next/internal/constants"
	"github.com/qrbonus-next/internal/models"
)

func bonusTestStore() *models.Store {
	return &models.Store{
		ID:              1,
		Name:            "测试门店",
		VIPFixBronze:    1,
		VIPFixSilver:    2,
		VIPFixGold:      3,
		VIPFixPlatinum:  5,
		VIPDailyBronze:  5,
		VIPDailySilver:  8,
		VIPDailyGold:    10,
		VIPDailyPlatinum: 15,
	}
}

func bonusTestReward(points int) *models.Reward {
	return &models.Reward{ID: 10, StoreID: 1, Title: "到店扫码", Type: constants.RewardTypeInfo, PointsGiven: points}
}

func TestCalculateBonusBaseFromDefaultReward(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	breakdown, err := CalculateBonus(BonusInput{
		User:          &models.User{ID: 1},
		Config:        bonusTestStore(),
		DefaultReward: bonusTestReward(5),
		Now:           now,
	})
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if breakdown.BasePoints != 5 || breakdown.TrueBasePoints != 5 {
		t.Fatalf("unexpected base: %d / %d", breakdown.BasePoints, breakdown.TrueBasePoints)
	}
	if breakdown.Total() != 5 {
		t.Fatalf("unexpected total: %d", breakdown.Total())
	}
}

func TestCalculateBonusCampaignOverridesDefault(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	campaign := &models.Campaign{
		ID:          7,
		StoreID:     1,
		Status:      constants.CampaignStatusActive,
		StartDate:   now.AddDate(0, 0, -1),
		EndDate:     now.AddDate(0, 0, 1),
		PointsGiven: 8,
	}
	breakdown, err := CalculateBonus(BonusInput{
		User:          &models.User{ID: 1},
		Config:        bonusTestStore(),
		Campaign:      campaign,
		DefaultReward: bonusTestReward(5),
		Now:           now,
	})
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if breakdown.BasePoints != 8 {
		t.Fatalf("expected campaign base 8, got %d", breakdown.BasePoints)
	}
}

func TestCalculateBonusExpiredCampaignFallsBack(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	campaign := &models.Campaign{
		ID:          7,
		StoreID:     1,
		Status:      constants.CampaignStatusActive,
		StartDate:   now.AddDate(0, -2, 0),
		EndDate:     now.AddDate(0, -1, 0),
		PointsGiven: 8,
	}
	breakdown, err := CalculateBonus(BonusInput{
		User:          &models.User{ID: 1},
		Config:        bonusTestStore(),
		Campaign:      campaign,
		DefaultReward: bonusTestReward(5),
		Now:           now,
	})
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if breakdown.BasePoints != 5 {
		t.Fatalf("expected fallback base 5, got %d", breakdown.BasePoints)
	}
}

func TestCalculateBonusNoPointsConfigured(t *testing.T) {
	_, err := CalculateBonus(BonusInput{
		User:   &models.User{ID: 1},
		Config: bonusTestStore(),
		Now:    time.Now(),
	})
	if !errors.Is(err, ErrNoPointsConfigured) {
		t.Fatalf("expected ErrNoPointsConfigured, got %v", err)
	}
}

func TestCalculateBonusMaxPerScanCap(t *testing.T) {
	breakdown, err := CalculateBonus(BonusInput{
		User:          &models.User{ID: 1},
		Config:        bonusTestStore(),
		DefaultReward: bonusTestReward(50),
		MaxPerScan:    20,
		Now:           time.Now(),
	})
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if breakdown.BasePoints != 20 {
		t.Fatalf("expected capped base 20, got %d", breakdown.BasePoints)
	}
}

func TestCalculateBonusBonusDayRounding(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	breakdown, err := CalculateBonus(BonusInput{
		User:          &models.User{ID: 1},
		Config:        bonusTestStore(),
		DefaultReward: bonusTestReward(8),
		BonusDay:      &models.BonusDay{StoreID: 1, Multiplier: 2, ExtraPoints: 1},
		Now:           now,
	})
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if breakdown.BasePoints != 8 {
		t.Fatalf("expected pre-multiplier base 8, got %d", breakdown.BasePoints)
	}
	if breakdown.TrueBasePoints != 17 {
		t.Fatalf("expected true base round(8*2+1)=17, got %d", breakdown.TrueBasePoints)
	}
	if breakdown.Total() != 17 {
		t.Fatalf("unexpected total: %d", breakdown.Total())
	}
}

func TestCalculateBonusVIPFirstScan(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	breakdown, err := CalculateBonus(BonusInput{
		User:           &models.User{ID: 1, LifetimePoints: constants.VIPThresholdBronze},
		Config:         bonusTestStore(),
		DefaultReward:  bonusTestReward(5),
		PriorScanCount: 0,
		Now:            now,
	})
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if breakdown.VIPTier != constants.VIPTierBronze {
		t.Fatalf("expected bronze tier, got %q", breakdown.VIPTier)
	}
	if breakdown.VIPFixBonus != 1 {
		t.Fatalf("expected fix bonus 1, got %d", breakdown.VIPFixBonus)
	}
	if breakdown.FirstScanBonus != 5 || !breakdown.FirstScanProvisional {
		t.Fatalf("expected provisional first scan bonus 5, got %d", breakdown.FirstScanBonus)
	}
	// 5 基础 + 1 固定 + 5 首扫
	if breakdown.Total() != 11 {
		t.Fatalf("expected total 11, got %d", breakdown.Total())
	}
}

func TestCalculateBonusNonVIPGetsNoVIPBonuses(t *testing.T) {
	breakdown, err := CalculateBonus(BonusInput{
		User:           &models.User{ID: 1, LifetimePoints: constants.VIPThresholdBronze - 1},
		Config:         bonusTestStore(),
		DefaultReward:  bonusTestReward(5),
		PriorScanCount: 0,
		Now:            time.Now(),
	})
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if breakdown.VIPTier != "" || breakdown.VIPFixBonus != 0 || breakdown.FirstScanBonus != 0 {
		t.Fatalf("expected no vip bonuses, got %+v", breakdown)
	}
}

func TestCalculateBonusStreakOnNthScan(t *testing.T) {
	store := bonusTestStore()
	store.StreakCount = 5
	store.StreakBonusMode = constants.BonusModeDouble

	user := &models.User{ID: 1, LifetimePoints: constants.VIPThresholdSilver}
	for _, tc := range []struct {
		prior int64
		want  int
	}{
		{prior: 3, want: 0},  // 本次为第 4 次
		{prior: 4, want: 5},  // 本次为第 5 次，double = true_base
		{prior: 5, want: 0},  // 本次为第 6 次
		{prior: 9, want: 5},  // 本次为第 10 次
	} {
		breakdown, err := CalculateBonus(BonusInput{
			User:           user,
			Config:         store,
			DefaultReward:  bonusTestReward(5),
			PriorScanCount: tc.prior,
			Now:            time.Now(),
		})
		if err != nil {
			t.Fatalf("calculate failed: %v", err)
		}
		if breakdown.StreakBonus != tc.want {
			t.Fatalf("prior=%d: expected streak %d, got %d", tc.prior, tc.want, breakdown.StreakBonus)
		}
		if tc.want > 0 && !breakdown.StreakProvisional {
			t.Fatalf("prior=%d: expected provisional streak", tc.prior)
		}
	}
}

func TestCalculateBonusStreakFixedUsesTierValue(t *testing.T) {
	store := bonusTestStore()
	store.StreakCount = 3
	store.StreakBonusMode = constants.BonusModeFixed
	store.VIPScanGold = 7

	breakdown, err := CalculateBonus(BonusInput{
		User:           &models.User{ID: 1, LifetimePoints: constants.VIPThresholdGold},
		Config:         store,
		DefaultReward:  bonusTestReward(5),
		PriorScanCount: 2,
		Now:            time.Now(),
	})
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if breakdown.StreakBonus != 7 {
		t.Fatalf("expected fixed streak 7, got %d", breakdown.StreakBonus)
	}
}

func TestCalculateBonusBirthday(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	birthday := time.Date(1990, 3, 10, 0, 0, 0, 0, time.UTC)
	store := bonusTestStore()
	store.BirthdayBonusMode = constants.BonusModeDouble
	store.BirthdayBonusMessage = "生日快乐"

	breakdown, err := CalculateBonus(BonusInput{
		User:          &models.User{ID: 1, Birthday: &birthday},
		Config:        store,
		DefaultReward: bonusTestReward(5),
		Now:           now,
	})
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if breakdown.BirthdayBonus != 5 || !breakdown.BirthdayProvisional {
		t.Fatalf("expected provisional birthday 5, got %d", breakdown.BirthdayBonus)
	}
	if breakdown.BirthdayMessage != "生日快乐" {
		t.Fatalf("unexpected birthday message: %q", breakdown.BirthdayMessage)
	}
}

func TestCalculateBonusBirthdayRecentlyClaimed(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	birthday := time.Date(1990, 3, 10, 0, 0, 0, 0, time.UTC)
	lastClaim := now.AddDate(0, 0, -100)
	store := bonusTestStore()
	store.BirthdayBonusMode = constants.BonusModeDouble

	breakdown, err := CalculateBonus(BonusInput{
		User:          &models.User{ID: 1, Birthday: &birthday, LastBirthdayBonusAt: &lastClaim},
		Config:        store,
		DefaultReward: bonusTestReward(5),
		Now:           now,
	})
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if breakdown.BirthdayBonus != 0 {
		t.Fatalf("expected no birthday bonus within stale window, got %d", breakdown.BirthdayBonus)
	}
}

func TestCalculateBonusComeback(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	lastScan := now.AddDate(0, 0, -45)
	store := bonusTestStore()
	store.ComebackBonusMode = constants.BonusModeFixed
	store.ComebackBonusValue = 10
	store.ComebackDays = 30
	store.ComebackBonusMessage = "欢迎回来"

	breakdown, err := CalculateBonus(BonusInput{
		User:           &models.User{ID: 1},
		Config:         store,
		DefaultReward:  bonusTestReward(5),
		PriorScanCount: 12,
		LastScanAt:     &lastScan,
		Now:            now,
	})
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if breakdown.ComebackBonus != 10 {
		t.Fatalf("expected comeback 10, got %d", breakdown.ComebackBonus)
	}
	if breakdown.ComebackMessage != "欢迎回来" {
		t.Fatalf("unexpected comeback message: %q", breakdown.ComebackMessage)
	}
}

func TestCalculateBonusComebackSkipsFirstVisit(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := bonusTestStore()
	store.ComebackBonusMode = constants.BonusModeFixed
	store.ComebackBonusValue = 10
	store.ComebackDays = 30

	breakdown, err := CalculateBonus(BonusInput{
		User:           &models.User{ID: 1},
		Config:         store,
		DefaultReward:  bonusTestReward(5),
		PriorScanCount: 0,
		Now:            now,
	})
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if breakdown.ComebackBonus != 0 {
		t.Fatalf("first visit must not earn comeback bonus, got %d", breakdown.ComebackBonus)
	}
}

func TestCalculateBonusComebackGapTooShort(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	lastScan := now.AddDate(0, 0, -10)
	store := bonusTestStore()
	store.ComebackBonusMode = constants.BonusModeFixed
	store.ComebackBonusValue = 10
	store.ComebackDays = 30

	breakdown, err := CalculateBonus(BonusInput{
		User:           &models.User{ID: 1},
		Config:         store,
		DefaultReward:  bonusTestReward(5),
		PriorScanCount: 3,
		LastScanAt:     &lastScan,
		Now:            now,
	})
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if breakdown.ComebackBonus != 0 {
		t.Fatalf("expected no comeback within threshold, got %d", breakdown.ComebackBonus)
	}
}
