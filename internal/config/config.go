// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	YouTube     YouTubeConfig
	Quota       QuotaConfig
	Breaker     BreakerConfig
	Matcher     MatcherConfig
	Promotion   PromotionConfig
	Maintenance MaintenanceConfig
	Worker      WorkerConfig
	Events      EventsConfig
	Logging     LoggingConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
	APIKeys         []string
}

// DatabaseConfig contains database connection configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DatabaseConfig struct {
	Host           string
	Name           string
	User           string
	Password       string
	SSLMode        string
	Port           int
	MaxConnections int
	MinConnections int
	MaxIdleTime    time.Duration
	MaxLifetime    time.Duration
}

// RedisConfig contains the queue backend connection configuration.
type RedisConfig struct {
	URL string
}

// YouTubeConfig contains external video API configuration.
type YouTubeConfig struct {
	APIKey      string
	PageSize    int64
	CallTimeout time.Duration
}

// QuotaConfig contains daily API quota configuration.
type QuotaConfig struct {
	DailyLimit int
}

// BreakerConfig contains circuit breaker configuration.
type BreakerConfig struct {
	FailureThreshold int
	Cooldown         time.Duration
}

// MatcherConfig contains band matching and quality scoring configuration.
type MatcherConfig struct {
	PatternsFile    string
	TrustedChannels []string
}

// PromotionConfig contains promotion worker configuration.
type PromotionConfig struct {
	BatchSize       int
	MinQualityScore int
}

// MaintenanceConfig contains catalog hygiene configuration.
type MaintenanceConfig struct {
	LowQualityThreshold int
	StaleAfter          time.Duration
}

// WorkerConfig contains queue worker configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type WorkerConfig struct {
	Concurrency         int
	MinSyncInterval     time.Duration
	StatsSampleInterval time.Duration
	StuckJobThreshold   time.Duration
	SyncEvery           time.Duration
	PromotionSweepEvery time.Duration
	CleanupEvery        time.Duration
}

// EventsConfig contains RabbitMQ catalog event publishing configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type EventsConfig struct {
	Enabled    bool
	Host       string
	User       string
	Password   string
	Exchange   string
	Queue      string
	RoutingKey string
	Port       int
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)
	viper.SetDefault("server.apikeys", []string{})

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "bandcatalog")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxconnections", 10)
	viper.SetDefault("database.minconnections", 5)
	viper.SetDefault("database.maxidletime", 10*time.Minute)
	viper.SetDefault("database.maxlifetime", 1*time.Hour)

	// Redis (asynq backend)
	viper.SetDefault("redis.url", "redis://localhost:6379/0")

	// YouTube API
	viper.SetDefault("youtube.apikey", "")
	viper.SetDefault("youtube.pagesize", 50)
	viper.SetDefault("youtube.calltimeout", 30*time.Second)

	// Quota: YouTube Data API v3 default daily budget
	viper.SetDefault("quota.dailylimit", 10000)

	// Circuit breaker
	viper.SetDefault("breaker.failurethreshold", 5)
	viper.SetDefault("breaker.cooldown", 2*time.Minute)

	// Matcher
	viper.SetDefault("matcher.patternsfile", "")
	viper.SetDefault("matcher.trustedchannels", []string{})

	// Promotion
	viper.SetDefault("promotion.batchsize", 100)
	viper.SetDefault("promotion.minqualityscore", 30)

	// Maintenance
	viper.SetDefault("maintenance.lowqualitythreshold", 20)
	viper.SetDefault("maintenance.staleafter", 180*24*time.Hour)

	// Worker
	viper.SetDefault("worker.concurrency", 10)
	viper.SetDefault("worker.minsyncinterval", 6*time.Hour)
	viper.SetDefault("worker.statssampleinterval", 15*time.Second)
	viper.SetDefault("worker.stuckjobthreshold", 30*time.Minute)
	viper.SetDefault("worker.syncevery", 6*time.Hour)
	viper.SetDefault("worker.promotionsweepevery", 15*time.Minute)
	viper.SetDefault("worker.cleanupevery", 24*time.Hour)

	// Events (RabbitMQ)
	viper.SetDefault("events.enabled", false)
	viper.SetDefault("events.host", "localhost")
	viper.SetDefault("events.port", 5672)
	viper.SetDefault("events.user", "guest")
	viper.SetDefault("events.password", "guest")
	viper.SetDefault("events.exchange", "bandcatalog.events")
	viper.SetDefault("events.queue", "bandcatalog.events.catalog")
	viper.SetDefault("events.routingkey", "catalog.video")

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}
