package main

import (
	"log"
	"time"

	"github.com/qrbonus-next/internal/config"
	"github.com/qrbonus-next/internal/constants"
	"github.com/qrbonus-next/internal/logger"
	"github.com/qrbonus-next/internal/models"
	"github.com/qrbonus-next/internal/service"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 主店 + 分店
	lat, lng := 52.5200, 13.4050
	mainStore := models.Store{
		Name:            "Demo Café Mitte",
		StoreKey:        "demo-cafe-mitte",
		CountryCode:     "DE",
		Latitude:        &lat,
		Longitude:       &lng,
		GeofenceRadiusM: 120,
		OpensAt:         "08:00",
		ClosesAt:        "20:00",
		VIPFixBronze:    1,
		VIPFixSilver:    2,
		VIPFixGold:      3,
		VIPFixPlatinum:  5,
		VIPDailyBronze:  5,
		VIPDailySilver:  8,
		VIPDailyGold:    10,
		VIPDailyPlatinum: 15,
		StreakCount:      5,
		StreakBonusMode:  constants.BonusModeDouble,
		BirthdayBonusMode:    constants.BonusModeDouble,
		BirthdayBonusMessage: "生日快乐，积分双倍！",
		ComebackBonusMode:    constants.BonusModeFixed,
		ComebackBonusValue:   10,
		ComebackDays:         30,
		ComebackBonusMessage: "欢迎回来！",
	}
	ensureStore(stdLog, &mainStore)

	branchLat, branchLng := 52.4870, 13.4250
	branch := models.Store{
		Name:          "Demo Café Neukölln",
		StoreKey:      "demo-cafe-neukoelln",
		ParentStoreID: &mainStore.ID,
		CountryCode:   "DE",
		Latitude:      &branchLat,
		Longitude:     &branchLng,
		OpensAt:       "09:00",
		ClosesAt:      "18:00",
	}
	ensureStore(stdLog, &branch)

	// 奖励目录：默认扫码奖励 + 可兑换奖励
	defaultReward := models.Reward{
		StoreID:     mainStore.ID,
		Title:       "到店扫码",
		Type:        constants.RewardTypeInfo,
		PointsGiven: 5,
		Active:      true,
	}
	ensureReward(stdLog, &defaultReward)
	if mainStore.DefaultRewardID == nil {
		mainStore.DefaultRewardID = &defaultReward.ID
		if err := models.DB.Save(&mainStore).Error; err != nil {
			stdLog.Printf("Failed to set default reward: %v", err)
		}
	}

	rewards := []models.Reward{
		{
			StoreID:        mainStore.ID,
			Title:          "免费咖啡",
			Type:           constants.RewardTypeFreeProduct,
			Value:          models.NewMoneyFromDecimal(decimal.NewFromFloat(3.50)),
			RequiredPoints: 20,
			Active:         true,
		},
		{
			StoreID:        mainStore.ID,
			Title:          "九折优惠",
			Type:           constants.RewardTypePercentage,
			Value:          models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
			RequiredPoints: 35,
			Active:         true,
		},
		{
			StoreID:        mainStore.ID,
			Title:          "5 欧元抵扣",
			Type:           constants.RewardTypeFixedAmount,
			Value:          models.NewMoneyFromDecimal(decimal.NewFromInt(5)),
			RequiredPoints: 50,
			Active:         true,
		},
	}
	for i := range rewards {
		ensureReward(stdLog, &rewards[i])
	}

	// 活动与加倍日
	campaign := models.Campaign{
		StoreID:     mainStore.ID,
		Title:       "开业季双倍好礼",
		StartDate:   time.Now().AddDate(0, 0, -7),
		EndDate:     time.Now().AddDate(0, 1, 0),
		Status:      constants.CampaignStatusActive,
		PointsGiven: 8,
	}
	var existingCampaign models.Campaign
	if err := models.DB.Where("store_id = ? AND title = ?", campaign.StoreID, campaign.Title).First(&existingCampaign).Error; err != nil {
		if err := models.DB.Create(&campaign).Error; err != nil {
			stdLog.Printf("Failed to create campaign: %v", err)
		}
	}

	today := time.Now().Truncate(24 * time.Hour)
	bonusDay := models.BonusDay{
		StoreID:     mainStore.ID,
		Date:        today,
		Multiplier:  2,
		ExtraPoints: 1,
	}
	var existingBonusDay models.BonusDay
	if err := models.DB.Where("store_id = ? AND date = ?", bonusDay.StoreID, bonusDay.Date).First(&existingBonusDay).Error; err != nil {
		if err := models.DB.Create(&bonusDay).Error; err != nil {
			stdLog.Printf("Failed to create bonus day: %v", err)
		}
	}

	// 终端设备
	secretHash, _ := bcrypt.GenerateFromPassword([]byte("demo-scanner-secret"), bcrypt.DefaultCost)
	scanner := models.ScannerDevice{
		StoreID:     mainStore.ID,
		Name:        "柜台一号机",
		Fingerprint: "demo-counter-1",
		SecretHash:  string(secretHash),
	}
	var existingScanner models.ScannerDevice
	if err := models.DB.Where("fingerprint = ?", scanner.Fingerprint).First(&existingScanner).Error; err != nil {
		if err := models.DB.Create(&scanner).Error; err != nil {
			stdLog.Printf("Failed to create scanner: %v", err)
		}
	}

	// 演示顾客
	birthday := time.Date(1992, time.Now().Month(), time.Now().Day(), 0, 0, 0, 0, time.UTC)
	users := []models.User{
		{Name: "Alice Demo", Email: "alice@example.com", Points: 25, LifetimePoints: 160, Birthday: &birthday},
		{Name: "Bob Demo", Email: "bob@example.com"},
	}
	qr := service.NewHMACQRDecoder(cfg.Scan.QRSecret)
	for i := range users {
		var existing models.User
		if err := models.DB.Where("email = ?", users[i].Email).First(&existing).Error; err != nil {
			if err := models.DB.Create(&users[i]).Error; err != nil {
				stdLog.Printf("Failed to create user %s: %v", users[i].Email, err)
				continue
			}
			existing = users[i]
		}
		stdLog.Printf("User %s QR payload: %s", existing.Email, qr.Encode(existing.ID))
	}

	// 推荐关系：Bob 由 Alice 推荐，首扫后入账
	var alice, bob models.User
	if models.DB.Where("email = ?", "alice@example.com").First(&alice).Error == nil &&
		models.DB.Where("email = ?", "bob@example.com").First(&bob).Error == nil {
		var existingReferral models.Referral
		if err := models.DB.Where("user_id = ? AND store_id = ?", bob.ID, mainStore.ID).First(&existingReferral).Error; err != nil {
			referral := models.Referral{
				UserID:     bob.ID,
				ReferrerID: alice.ID,
				StoreID:    mainStore.ID,
				Status:     constants.ReferralStatusPending,
			}
			if err := models.DB.Create(&referral).Error; err != nil {
				stdLog.Printf("Failed to create referral: %v", err)
			}
		}
	}

	stdLog.Printf("Seed finished. store_key=%s scanner=%s", mainStore.StoreKey, scanner.Fingerprint)
}

func ensureStore(stdLog *log.Logger, store *models.Store) {
	var existing models.Store
	if err := models.DB.Where("store_key = ?", store.StoreKey).First(&existing).Error; err != nil {
		if err := models.DB.Create(store).Error; err != nil {
			stdLog.Printf("Failed to create store %s: %v", store.StoreKey, err)
		}
		return
	}
	*store = existing
}

func ensureReward(stdLog *log.Logger, reward *models.Reward) {
	var existing models.Reward
	if err := models.DB.Where("store_id = ? AND title = ?", reward.StoreID, reward.Title).First(&existing).Error; err != nil {
		if err := models.DB.Create(reward).Error; err != nil {
			stdLog.Printf("Failed to create reward %s: %v", reward.Title, err)
		}
		return
	}
	*reward = existing
}
