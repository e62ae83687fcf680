package provider

import (
	"github.com/qrbonus-next/internal/cache"
	"github.com/qrbonus-next/internal/config"
	"github.com/qrbonus-next/internal/logger"
	"github.com/qrbonus-next/internal/models"
	"github.com/qrbonus-next/internal/queue"
	"github.com/qrbonus-next/internal/ratelimit"
	"github.com/qrbonus-next/internal/realtime"
	"github.com/qrbonus-next/internal/repository"
	"github.com/qrbonus-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Notifier    realtime.Notifier
	Limiter     ratelimit.Limiter
	ChannelAuth *realtime.ChannelTokenIssuer

	// Repositories
	UserRepo       *repository.GormUserRepository
	StoreRepo      *repository.GormStoreRepository
	CampaignRepo   *repository.GormCampaignRepository
	RewardRepo     *repository.GormRewardRepository
	PointsRepo     *repository.GormPointsRepository
	PromptRepo     *repository.GormPromptRepository
	SuspiciousRepo *repository.GormSuspiciousRepository
	ReferralRepo   *repository.GormReferralRepository

	// Services
	StoreService  *service.StoreService
	FraudService  *service.FraudService
	PointsService *service.PointsService
	PromptService *service.PromptService
	ScanService   *service.ScanService
	StatsService  *service.StatsService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}
	if queueClient == nil {
		queueClient, _ = queue.NewClient(nil)
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 实时发布与限流器：有 Redis 用 Redis，否则降级进程内实现
	if cache.Enabled() {
		c.Notifier = realtime.NewRedisNotifier(cache.Client(), cache.Prefix())
		c.Limiter = ratelimit.NewRedisLimiter(cache.Client(), cache.Prefix())
	} else {
		c.Notifier = realtime.NoopNotifier{}
		c.Limiter = ratelimit.NewMemoryLimiter()
	}
	c.ChannelAuth = realtime.NewChannelTokenIssuer(
		cfg.Realtime.ChannelTokenSecret,
		cfg.Realtime.ChannelTokenTTL())

	c.initRepositories()
	c.initServices()
	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.UserRepo = repository.NewUserRepository(db)
	c.StoreRepo = repository.NewStoreRepository(db)
	c.CampaignRepo = repository.NewCampaignRepository(db)
	c.RewardRepo = repository.NewRewardRepository(db)
	c.PointsRepo = repository.NewPointsRepository(db)
	c.PromptRepo = repository.NewPromptRepository(db)
	c.SuspiciousRepo = repository.NewSuspiciousRepository(db)
	c.ReferralRepo = repository.NewReferralRepository(db)
}

func (c *Container) initServices() {
	cfg := c.Config

	c.StoreService = service.NewStoreService(c.StoreRepo)
	c.FraudService = service.NewFraudService(cfg.Geofence, c.PointsRepo, c.SuspiciousRepo)
	c.PointsService = service.NewPointsService(cfg.Scan, c.UserRepo, c.PointsRepo, c.ReferralRepo)
	c.PromptService = service.NewPromptService(
		cfg.Scan, c.PromptRepo, c.UserRepo, c.PointsRepo, c.RewardRepo,
		c.QueueClient, c.Notifier)
	c.ScanService = service.NewScanService(
		cfg.Scan, cfg.Security.ScanRateLimit,
		service.NewHMACQRDecoder(cfg.Scan.QRSecret),
		c.StoreService, c.FraudService, c.PointsService, c.PromptService,
		c.Limiter,
		c.UserRepo, c.CampaignRepo, c.RewardRepo, c.PointsRepo, c.ReferralRepo,
		c.QueueClient, c.Notifier)
	c.StatsService = service.NewStatsService(c.PointsRepo)
}
