package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/qrbonus-next/internal/config"
	"github.com/qrbonus-next/internal/constants"
	"github.com/qrbonus-next/internal/models"
	"github.com/qrbonus-next/internal/queue"
	"github.com/qrbonus-next/internal/realtime"
	"github.com/qrbonus-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupPromptServiceTest(t *testing.T) (*PromptService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:prompt_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Store{},
		&models.Reward{},
		&models.PointsEntry{},
		&models.RedemptionPrompt{},
		&models.Redemption{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("queue client failed: %v", err)
	}
	svc := NewPromptService(
		config.ScanConfig{PromptExpireSeconds: 60},
		repository.NewPromptRepository(db),
		repository.NewUserRepository(db),
		repository.NewPointsRepository(db),
		repository.NewRewardRepository(db),
		queueClient,
		realtime.NoopNotifier{},
	)
	return svc, db
}

func createPromptTestUser(t *testing.T, db *gorm.DB, id uint, points int) {
	t.Helper()
	user := models.User{ID: id, Email: fmt.Sprintf("u%d@example.com", id), Points: points, LifetimePoints: points}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
}

func createPromptTestReward(t *testing.T, db *gorm.DB, storeID uint, title, rewardType string, value decimal.Decimal, required int) *models.Reward {
	t.Helper()
	reward := &models.Reward{
		StoreID:        storeID,
		Title:          title,
		Type:           rewardType,
		Value:          models.NewMoneyFromDecimal(value),
		RequiredPoints: required,
		Active:         true,
	}
	if err := db.Create(reward).Error; err != nil {
		t.Fatalf("create reward failed: %v", err)
	}
	return reward
}

func TestCreateOrRefreshNoAffordableRewards(t *testing.T) {
	svc, db := setupPromptServiceTest(t)
	createPromptTestUser(t, db, 1, 10)
	createPromptTestReward(t, db, 1, "免费咖啡", constants.RewardTypeFreeProduct, decimal.NewFromFloat(3.5), 20)

	prompt, err := svc.CreateOrRefresh(context.Background(), 1, 1, 1, nil)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if prompt != nil {
		t.Fatalf("expected no prompt when balance too low, got %+v", prompt)
	}
}

func TestCreateOrRefreshSnapshotsAffordableRewards(t *testing.T) {
	svc, db := setupPromptServiceTest(t)
	createPromptTestUser(t, db, 1, 30)
	affordable := createPromptTestReward(t, db, 1, "免费咖啡", constants.RewardTypeFreeProduct, decimal.NewFromFloat(3.5), 20)
	createPromptTestReward(t, db, 1, "5 欧元抵扣", constants.RewardTypeFixedAmount, decimal.NewFromInt(5), 50)

	prompt, err := svc.CreateOrRefresh(context.Background(), 1, 1, 1, nil)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if prompt == nil {
		t.Fatal("expected prompt")
	}
	if prompt.Token == "" || prompt.Status != constants.PromptStatusPending {
		t.Fatalf("unexpected prompt state: %+v", prompt)
	}
	if len(prompt.AvailableRewards) != 1 || prompt.AvailableRewards[0].RewardID != affordable.ID {
		t.Fatalf("expected snapshot with only affordable reward, got %+v", prompt.AvailableRewards)
	}
}

func TestDeclineThenRefreshReusesPromptRow(t *testing.T) {
	svc, db := setupPromptServiceTest(t)
	createPromptTestUser(t, db, 1, 30)
	createPromptTestReward(t, db, 1, "免费咖啡", constants.RewardTypeFreeProduct, decimal.NewFromFloat(3.5), 20)
	ctx := context.Background()

	first, err := svc.CreateOrRefresh(ctx, 1, 1, 1, nil)
	if err != nil || first == nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Decline(ctx, first.Token); err != nil {
		t.Fatalf("decline failed: %v", err)
	}
	// 重复拒绝幂等
	if _, err := svc.Decline(ctx, first.Token); err != nil {
		t.Fatalf("repeat decline failed: %v", err)
	}

	second, err := svc.CreateOrRefresh(ctx, 1, 1, 1, nil)
	if err != nil || second == nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected reused prompt row, got %d != %d", second.ID, first.ID)
	}
	if second.Token == first.Token {
		t.Fatal("expected refreshed token")
	}
	if second.Status != constants.PromptStatusPending {
		t.Fatalf("expected pending after refresh, got %q", second.Status)
	}

	var count int64
	db.Model(&models.RedemptionPrompt{}).Where("user_id = ?", 1).Count(&count)
	if count != 1 {
		t.Fatalf("expected single prompt row, got %d", count)
	}
}

func TestAcceptRejectsRewardOutsideSnapshot(t *testing.T) {
	svc, db := setupPromptServiceTest(t)
	createPromptTestUser(t, db, 1, 30)
	createPromptTestReward(t, db, 1, "免费咖啡", constants.RewardTypeFreeProduct, decimal.NewFromFloat(3.5), 20)
	ctx := context.Background()

	prompt, err := svc.CreateOrRefresh(ctx, 1, 1, 1, nil)
	if err != nil || prompt == nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Accept(ctx, prompt.Token, 9999); !errors.Is(err, ErrInvalidReward) {
		t.Fatalf("expected ErrInvalidReward, got %v", err)
	}
}

func TestAcceptExpiredPrompt(t *testing.T) {
	svc, db := setupPromptServiceTest(t)
	createPromptTestUser(t, db, 1, 30)
	reward := createPromptTestReward(t, db, 1, "免费咖啡", constants.RewardTypeFreeProduct, decimal.NewFromFloat(3.5), 20)
	ctx := context.Background()

	prompt, err := svc.CreateOrRefresh(ctx, 1, 1, 1, nil)
	if err != nil || prompt == nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := db.Model(&models.RedemptionPrompt{}).Where("id = ?", prompt.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error; err != nil {
		t.Fatalf("backdate failed: %v", err)
	}

	if _, err := svc.Accept(ctx, prompt.Token, reward.ID); !errors.Is(err, ErrPromptExpired) {
		t.Fatalf("expected ErrPromptExpired, got %v", err)
	}

	var stored models.RedemptionPrompt
	if err := db.First(&stored, prompt.ID).Error; err != nil {
		t.Fatalf("load prompt failed: %v", err)
	}
	if stored.Status != constants.PromptStatusExpired {
		t.Fatalf("expected lazy expire to land, got %q", stored.Status)
	}
}

func TestApproveDeductsBalanceButNotLifetime(t *testing.T) {
	svc, db := setupPromptServiceTest(t)
	createPromptTestUser(t, db, 1, 30)
	reward := createPromptTestReward(t, db, 1, "免费咖啡", constants.RewardTypeFreeProduct, decimal.NewFromFloat(3.5), 20)
	ctx := context.Background()

	prompt, err := svc.CreateOrRefresh(ctx, 1, 1, 1, nil)
	if err != nil || prompt == nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Accept(ctx, prompt.Token, reward.ID); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	redemption, err := svc.Approve(ctx, prompt.Token, nil)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if redemption.RequiredPoints != 20 || redemption.RewardID != reward.ID {
		t.Fatalf("unexpected redemption: %+v", redemption)
	}
	if redemption.ActualValue == nil || !redemption.ActualValue.Decimal.Equal(decimal.NewFromFloat(3.5)) {
		t.Fatalf("expected actual value 3.5, got %+v", redemption.ActualValue)
	}

	var user models.User
	if err := db.First(&user, 1).Error; err != nil {
		t.Fatalf("load user failed: %v", err)
	}
	if user.Points != 10 {
		t.Fatalf("expected balance 10, got %d", user.Points)
	}
	if user.LifetimePoints != 30 {
		t.Fatalf("lifetime points must not decrease, got %d", user.LifetimePoints)
	}

	var stored models.RedemptionPrompt
	if err := db.First(&stored, prompt.ID).Error; err != nil {
		t.Fatalf("load prompt failed: %v", err)
	}
	if stored.Status != constants.PromptStatusCompleted {
		t.Fatalf("expected completed, got %q", stored.Status)
	}

	var entry models.PointsEntry
	if err := db.Where("type = ?", constants.PointsTypeRedemption).First(&entry).Error; err != nil {
		t.Fatalf("load redemption entry failed: %v", err)
	}
	if entry.Points != -20 {
		t.Fatalf("expected negative entry -20, got %d", entry.Points)
	}
}

func TestApproveReChecksBalanceUnderLock(t *testing.T) {
	svc, db := setupPromptServiceTest(t)
	createPromptTestUser(t, db, 1, 30)
	reward := createPromptTestReward(t, db, 1, "免费咖啡", constants.RewardTypeFreeProduct, decimal.NewFromFloat(3.5), 20)
	ctx := context.Background()

	prompt, err := svc.CreateOrRefresh(ctx, 1, 1, 1, nil)
	if err != nil || prompt == nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Accept(ctx, prompt.Token, reward.ID); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	// 提示创建后余额被别处消耗
	if err := db.Model(&models.User{}).Where("id = ?", 1).Update("points", 5).Error; err != nil {
		t.Fatalf("drain balance failed: %v", err)
	}

	if _, err := svc.Approve(ctx, prompt.Token, nil); !errors.Is(err, ErrNotEnoughPoints) {
		t.Fatalf("expected ErrNotEnoughPoints, got %v", err)
	}

	var user models.User
	if err := db.First(&user, 1).Error; err != nil {
		t.Fatalf("load user failed: %v", err)
	}
	if user.Points != 5 {
		t.Fatalf("failed approve must not touch balance, got %d", user.Points)
	}
	var count int64
	db.Model(&models.Redemption{}).Count(&count)
	if count != 0 {
		t.Fatalf("failed approve must not create redemption, got %d", count)
	}
}

func TestApprovePercentageValue(t *testing.T) {
	svc, db := setupPromptServiceTest(t)
	createPromptTestUser(t, db, 1, 50)
	reward := createPromptTestReward(t, db, 1, "九折优惠", constants.RewardTypePercentage, decimal.NewFromInt(10), 20)
	ctx := context.Background()

	prompt, err := svc.CreateOrRefresh(ctx, 1, 1, 1, nil)
	if err != nil || prompt == nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Accept(ctx, prompt.Token, reward.ID); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	purchase := models.NewMoneyFromDecimal(decimal.NewFromInt(20))
	redemption, err := svc.Approve(ctx, prompt.Token, &purchase)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if redemption.ActualValue == nil || !redemption.ActualValue.Decimal.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected 10%% of 20 = 2, got %+v", redemption.ActualValue)
	}
}

func TestApprovePercentageWithoutPurchaseAmount(t *testing.T) {
	svc, db := setupPromptServiceTest(t)
	createPromptTestUser(t, db, 1, 50)
	reward := createPromptTestReward(t, db, 1, "九折优惠", constants.RewardTypePercentage, decimal.NewFromInt(10), 20)
	ctx := context.Background()

	prompt, err := svc.CreateOrRefresh(ctx, 1, 1, 1, nil)
	if err != nil || prompt == nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Accept(ctx, prompt.Token, reward.ID); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	// 金额缺失时核销照常成立，货币价值留空
	redemption, err := svc.Approve(ctx, prompt.Token, nil)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if redemption.ActualValue != nil {
		t.Fatalf("expected null actual value, got %+v", redemption.ActualValue)
	}
}

func TestRejectRequiresAcceptedState(t *testing.T) {
	svc, db := setupPromptServiceTest(t)
	createPromptTestUser(t, db, 1, 30)
	reward := createPromptTestReward(t, db, 1, "免费咖啡", constants.RewardTypeFreeProduct, decimal.NewFromFloat(3.5), 20)
	ctx := context.Background()

	prompt, err := svc.CreateOrRefresh(ctx, 1, 1, 1, nil)
	if err != nil || prompt == nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Reject(ctx, prompt.Token, "排队太长"); !errors.Is(err, ErrPromptConflict) {
		t.Fatalf("expected ErrPromptConflict for pending prompt, got %v", err)
	}

	if _, err := svc.Accept(ctx, prompt.Token, reward.ID); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	rejected, err := svc.Reject(ctx, prompt.Token, "排队太长")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if rejected.Status != constants.PromptStatusHandlerRejected || rejected.RejectionReason != "排队太长" {
		t.Fatalf("unexpected rejected prompt: %+v", rejected)
	}

	// 不动账
	var user models.User
	if err := db.First(&user, 1).Error; err != nil {
		t.Fatalf("load user failed: %v", err)
	}
	if user.Points != 30 {
		t.Fatalf("reject must not touch balance, got %d", user.Points)
	}
}

func TestExpireOnlyTouchesPending(t *testing.T) {
	svc, db := setupPromptServiceTest(t)
	createPromptTestUser(t, db, 1, 30)
	reward := createPromptTestReward(t, db, 1, "免费咖啡", constants.RewardTypeFreeProduct, decimal.NewFromFloat(3.5), 20)
	ctx := context.Background()

	prompt, err := svc.CreateOrRefresh(ctx, 1, 1, 1, nil)
	if err != nil || prompt == nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Accept(ctx, prompt.Token, reward.ID); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	// 已接受的提示不受超时任务影响
	if err := svc.Expire(ctx, prompt.ID); err != nil {
		t.Fatalf("expire failed: %v", err)
	}
	var stored models.RedemptionPrompt
	if err := db.First(&stored, prompt.ID).Error; err != nil {
		t.Fatalf("load prompt failed: %v", err)
	}
	if stored.Status != constants.PromptStatusUserAccepted {
		t.Fatalf("expected accepted prompt untouched, got %q", stored.Status)
	}
}

func TestGetByTokenUnknown(t *testing.T) {
	svc, _ := setupPromptServiceTest(t)
	if _, err := svc.GetByToken("no-such-token"); !errors.Is(err, ErrPromptNotFound) {
		t.Fatalf("expected ErrPromptNotFound, got %v", err)
	}
}
