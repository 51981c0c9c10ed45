/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables and an optional
 * .env file.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const (
	defaultRateLimitPrefix             = "scholarbridge:rate_limit"
	defaultEventsExchange              = "scholarbridge.events"
	defaultCoinBalance                 = 100
	defaultFulfillmentReward           = 10
	defaultUploadRateLimitPerMinute    = 20
	defaultRewardReconcileSchedule     = "@every 5m"
	defaultNotificationCleanupSchedule = "@daily"
	defaultNotificationRetentionDays   = 30
)

// Config holds all the configuration variables for the request-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort                          string `mapstructure:"SERVER_PORT"`
	DatabaseURL                         string `mapstructure:"DATABASE_URL"`
	RunMigrations                       bool   `mapstructure:"RUN_MIGRATIONS"`
	RedisURL                            string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix                string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL                         string `mapstructure:"RABBITMQ_URL"`
	EventsExchange                      string `mapstructure:"EVENTS_EXCHANGE"`
	JWTSecret                           string `mapstructure:"JWT_SECRET"`
	InternalAPIKey                      string `mapstructure:"INTERNAL_API_KEY"`
	CORSAllowedOrigins                  string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	DefaultCoinBalance                  int64  `mapstructure:"DEFAULT_COIN_BALANCE"`
	FulfillmentRewardCoins              int64  `mapstructure:"FULFILLMENT_REWARD_COINS"`
	RequestCostLab                      int64  `mapstructure:"REQUEST_COST_LAB"`
	RequestCostDocument                 int64  `mapstructure:"REQUEST_COST_DOCUMENT"`
	RequestCostData                     int64  `mapstructure:"REQUEST_COST_DATA"`
	FulfillmentUploadRateLimitPerMinute int    `mapstructure:"FULFILLMENT_UPLOAD_RATE_LIMIT_PER_MINUTE"`
	SendGridAPIKey                      string `mapstructure:"SENDGRID_API_KEY"`
	EmailFromAddress                    string `mapstructure:"EMAIL_FROM_ADDRESS"`
	EmailFromName                       string `mapstructure:"EMAIL_FROM_NAME"`
	RewardReconcileSchedule             string `mapstructure:"REWARD_RECONCILE_SCHEDULE"`
	RewardReconcileBatchSize            int    `mapstructure:"REWARD_RECONCILE_BATCH_SIZE"`
	NotificationCleanupSchedule         string `mapstructure:"NOTIFICATION_CLEANUP_SCHEDULE"`
	NotificationRetentionDays           int    `mapstructure:"NOTIFICATION_RETENTION_DAYS"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("RUN_MIGRATIONS", false)
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", defaultRateLimitPrefix)
	viper.SetDefault("EVENTS_EXCHANGE", defaultEventsExchange)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	viper.SetDefault("DEFAULT_COIN_BALANCE", defaultCoinBalance)
	viper.SetDefault("FULFILLMENT_REWARD_COINS", defaultFulfillmentReward)
	viper.SetDefault("REQUEST_COST_LAB", 0)
	viper.SetDefault("REQUEST_COST_DOCUMENT", 0)
	viper.SetDefault("REQUEST_COST_DATA", 0)
	viper.SetDefault("FULFILLMENT_UPLOAD_RATE_LIMIT_PER_MINUTE", defaultUploadRateLimitPerMinute)
	viper.SetDefault("EMAIL_FROM_NAME", "ScholarBridge")
	viper.SetDefault("REWARD_RECONCILE_SCHEDULE", defaultRewardReconcileSchedule)
	viper.SetDefault("REWARD_RECONCILE_BATCH_SIZE", 100)
	viper.SetDefault("NOTIFICATION_CLEANUP_SCHEDULE", defaultNotificationCleanupSchedule)
	viper.SetDefault("NOTIFICATION_RETENTION_DAYS", defaultNotificationRetentionDays)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RUN_MIGRATIONS")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "REQUEST_SERVICE_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("EVENTS_EXCHANGE")
	_ = viper.BindEnv("JWT_SECRET", "JWT_SECRET", "JWT_SECRET_KEY")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "REQUEST_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("CORS_ALLOWED_ORIGINS")
	_ = viper.BindEnv("DEFAULT_COIN_BALANCE")
	_ = viper.BindEnv("FULFILLMENT_REWARD_COINS")
	_ = viper.BindEnv("REQUEST_COST_LAB")
	_ = viper.BindEnv("REQUEST_COST_DOCUMENT")
	_ = viper.BindEnv("REQUEST_COST_DATA")
	_ = viper.BindEnv("FULFILLMENT_UPLOAD_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("SENDGRID_API_KEY")
	_ = viper.BindEnv("EMAIL_FROM_ADDRESS")
	_ = viper.BindEnv("EMAIL_FROM_NAME")
	_ = viper.BindEnv("REWARD_RECONCILE_SCHEDULE")
	_ = viper.BindEnv("REWARD_RECONCILE_BATCH_SIZE")
	_ = viper.BindEnv("NOTIFICATION_CLEANUP_SCHEDULE")
	_ = viper.BindEnv("NOTIFICATION_RETENTION_DAYS")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	if strings.TrimSpace(config.InternalAPIKey) == "" {
		config.InternalAPIKey = strings.TrimSpace(os.Getenv("REQUEST_SERVICE_INTERNAL_API_KEY"))
	}
	config.JWTSecret = strings.TrimSpace(config.JWTSecret)
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = defaultRateLimitPrefix
	}
	config.EventsExchange = strings.TrimSpace(config.EventsExchange)
	config.SendGridAPIKey = strings.TrimSpace(config.SendGridAPIKey)
	config.EmailFromAddress = strings.TrimSpace(config.EmailFromAddress)

	if config.DefaultCoinBalance < 0 {
		log.Printf("level=warn component=config msg=\"negative default coin balance configured; using default\" value=%d", config.DefaultCoinBalance)
		config.DefaultCoinBalance = defaultCoinBalance
	}
	if config.FulfillmentRewardCoins <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive fulfillment reward configured; using default\" value=%d", config.FulfillmentRewardCoins)
		config.FulfillmentRewardCoins = defaultFulfillmentReward
	}
	config.RequestCostLab = nonNegativeCost("REQUEST_COST_LAB", config.RequestCostLab)
	config.RequestCostDocument = nonNegativeCost("REQUEST_COST_DOCUMENT", config.RequestCostDocument)
	config.RequestCostData = nonNegativeCost("REQUEST_COST_DATA", config.RequestCostData)

	if config.FulfillmentUploadRateLimitPerMinute < 0 {
		config.FulfillmentUploadRateLimitPerMinute = 0
	}
	if config.RewardReconcileBatchSize <= 0 {
		config.RewardReconcileBatchSize = 100
	}
	if config.NotificationRetentionDays <= 0 {
		config.NotificationRetentionDays = defaultNotificationRetentionDays
	}

	config.RewardReconcileSchedule = validSchedule("REWARD_RECONCILE_SCHEDULE", config.RewardReconcileSchedule, defaultRewardReconcileSchedule)
	config.NotificationCleanupSchedule = validSchedule("NOTIFICATION_CLEANUP_SCHEDULE", config.NotificationCleanupSchedule, defaultNotificationCleanupSchedule)

	return
}

func nonNegativeCost(key string, value int64) int64 {
	if value < 0 {
		log.Printf("level=warn component=config msg=\"negative request cost configured; coercing to zero\" key=%s value=%d", key, value)
		return 0
	}
	return value
}

// validSchedule keeps "off" as an explicit way to disable a job and falls back to the default
// when the expression does not parse.
func validSchedule(key, value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if strings.EqualFold(trimmed, "off") {
		return ""
	}
	if trimmed == "" {
		return fallback
	}
	if _, err := cron.ParseStandard(trimmed); err != nil {
		log.Printf("level=warn component=config msg=\"invalid cron schedule; using default\" key=%s value=%q err=%v", key, trimmed, err)
		return fallback
	}
	return trimmed
}
