package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/qrbonus-next/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Geofence GeofenceConfig `mapstructure:"geofence"`
	Security SecurityConfig `mapstructure:"security"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// ScanConfig 扫码发放配置
type ScanConfig struct {
	DuplicateWindowSeconds int    `mapstructure:"duplicate_window_seconds"` // 重复扫码判定窗口
	MaxPointsPerScan       int    `mapstructure:"max_points_per_scan"`      // 单次扫码基础分上限
	PromptExpireSeconds    int    `mapstructure:"prompt_expire_seconds"`    // 兑换提示有效期
	ReferralBonusPoints    int    `mapstructure:"referral_bonus_points"`    // 推荐人奖励积分
	QRSecret               string `mapstructure:"qr_secret"`                // 二维码签名密钥
}

// DuplicateWindow 返回重复扫码判定窗口
func (c ScanConfig) DuplicateWindow() time.Duration {
	seconds := c.DuplicateWindowSeconds
	if seconds <= 0 {
		seconds = 10
	}
	return time.Duration(seconds) * time.Second
}

// PromptExpire 返回兑换提示有效期
func (c ScanConfig) PromptExpire() time.Duration {
	seconds := c.PromptExpireSeconds
	if seconds <= 0 {
		seconds = 60
	}
	return time.Duration(seconds) * time.Second
}

// GeofenceConfig 地理围栏配置
type GeofenceConfig struct {
	AllowRadiusM  float64 `mapstructure:"allow_radius_m"`  // 静默放行半径（门店未配置时的默认值）
	LogRadiusM    float64 `mapstructure:"log_radius_m"`    // 记录审计的外圈半径
	SpoofSpeedKmh float64 `mapstructure:"spoof_speed_kmh"` // 判定位置伪造的移动速度阈值
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	ScanRateLimit ScanRateLimitConfig `mapstructure:"scan_rate_limit"`
}

// ScanRateLimitConfig 扫码限流配置
type ScanRateLimitConfig struct {
	GeneralMax           int `mapstructure:"general_max"`
	GeneralWindowSeconds int `mapstructure:"general_window_seconds"`
	SuccessMax           int `mapstructure:"success_max"`
	SuccessWindowSeconds int `mapstructure:"success_window_seconds"`
}

// RealtimeConfig 实时通道配置
type RealtimeConfig struct {
	ChannelTokenSecret     string `mapstructure:"channel_token_secret"`
	ChannelTokenTTLSeconds int    `mapstructure:"channel_token_ttl_seconds"`
}

// ChannelTokenTTL 返回频道令牌有效期
func (c RealtimeConfig) ChannelTokenTTL() time.Duration {
	seconds := c.ChannelTokenTTLSeconds
	if seconds <= 0 {
		seconds = 3600
	}
	return time.Duration(seconds) * time.Second
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// Load 从 config.yml 加载配置
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")   // 从 cmd/server 运行时
	viper.AddConfigPath("./etc") // etc 文件夹

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "qrbonus.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "./db/qrbonus.db")
	viper.SetDefault("database.pool.max_open_conns", 1)
	viper.SetDefault("database.pool.max_idle_conns", 1)
	viper.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	viper.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", "qb")
	viper.SetDefault("queue.enabled", true)
	viper.SetDefault("queue.host", "127.0.0.1")
	viper.SetDefault("queue.port", 6379)
	viper.SetDefault("queue.password", "")
	viper.SetDefault("queue.db", 1)
	viper.SetDefault("queue.concurrency", 10)
	viper.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
	})
	viper.SetDefault("scan.duplicate_window_seconds", 10)
	viper.SetDefault("scan.max_points_per_scan", 100)
	viper.SetDefault("scan.prompt_expire_seconds", 60)
	viper.SetDefault("scan.referral_bonus_points", 10)
	viper.SetDefault("scan.qr_secret", "change-me-in-production")
	viper.SetDefault("geofence.allow_radius_m", 100)
	viper.SetDefault("geofence.log_radius_m", 500)
	viper.SetDefault("geofence.spoof_speed_kmh", 800)
	viper.SetDefault("security.scan_rate_limit.general_max", 20)
	viper.SetDefault("security.scan_rate_limit.general_window_seconds", 60)
	viper.SetDefault("security.scan_rate_limit.success_max", 3)
	viper.SetDefault("security.scan_rate_limit.success_window_seconds", 60)
	viper.SetDefault("realtime.channel_token_secret", "realtime-change-me-in-production")
	viper.SetDefault("realtime.channel_token_ttl_seconds", 3600)
	viper.SetDefault("cors.allowed_origins", []string{"*"})
	viper.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
		"X-Store-Key",
	})
	viper.SetDefault("cors.allow_credentials", true)
	viper.SetDefault("cors.max_age", 600)

	// 环境变量支持（server.port -> SERVER_PORT）
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}

	return &cfg
}
