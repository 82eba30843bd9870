package config

import (
	"fmt"
	"time"

	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/retry"
)

type Config struct {
	Env      string
	LogLevel string

	Server   ServerConfig
	Database PostgresConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig

	PostgresRetry RetryConfig
	RabbitRetry   RetryConfig
	StoreRetry    RetryConfig

	Scheduler SchedulerConfig
	Prune     PruneConfig
}

func NewConfig(envFilePath string, configFilePath string) (*Config, error) {
	myConfig := &Config{}

	cfg := config.New()

	if envFilePath != "" {
		if err := cfg.LoadEnvFiles(envFilePath); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}
	cfg.EnableEnv("")

	if configFilePath != "" {
		if err := cfg.LoadConfigFiles(configFilePath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	myConfig.Env = cfg.GetString("LABBOT_ENV")
	myConfig.LogLevel = cfg.GetString("LABBOT_LOG_LEVEL")

	// HTTP server
	myConfig.Server.Host = cfg.GetString("LABBOT_SERVER_HOST")
	myConfig.Server.Port = cfg.GetInt("LABBOT_SERVER_PORT")

	// Postgres
	myConfig.Database.MasterDSN = cfg.GetString("LABBOT_POSTGRES_MASTER_DSN")
	myConfig.Database.SlaveDSNs = cfg.GetStringSlice("LABBOT_POSTGRES_SLAVE_DSNS")
	myConfig.Database.MaxOpenConnections = cfg.GetInt("LABBOT_POSTGRES_MAX_OPEN_CONNECTIONS")
	myConfig.Database.MaxIdleConnections = cfg.GetInt("LABBOT_POSTGRES_MAX_IDLE_CONNECTIONS")
	myConfig.Database.ConnectionMaxLifetimeSeconds = cfg.GetInt("LABBOT_POSTGRES_CONNECTION_MAX_LIFETIME_SECONDS")

	// Redis (optional dedup cache)
	myConfig.Redis.Host = cfg.GetString("LABBOT_REDIS_HOST")
	myConfig.Redis.Port = cfg.GetInt("LABBOT_REDIS_PORT")
	myConfig.Redis.Password = cfg.GetString("LABBOT_REDIS_PASSWORD")
	myConfig.Redis.DB = cfg.GetInt("LABBOT_REDIS_DB")
	myConfig.Redis.Expiration = cfg.GetInt("LABBOT_REDIS_EXPIRATION")

	// RabbitMQ (messaging surface)
	myConfig.RabbitMQ.User = cfg.GetString("LABBOT_RABBITMQ_USER")
	myConfig.RabbitMQ.Password = cfg.GetString("LABBOT_RABBITMQ_PASSWORD")
	myConfig.RabbitMQ.Host = cfg.GetString("LABBOT_RABBITMQ_HOST")
	myConfig.RabbitMQ.Port = cfg.GetInt("LABBOT_RABBITMQ_PORT")
	myConfig.RabbitMQ.VHost = cfg.GetString("LABBOT_RABBITMQ_VHOST")
	myConfig.RabbitMQ.Exchange = cfg.GetString("LABBOT_RABBITMQ_EXCHANGE")

	// Retry strategies
	myConfig.PostgresRetry.Attempts = cfg.GetInt("LABBOT_RETRY_POSTGRES_ATTEMPTS")
	myConfig.PostgresRetry.DelayMilliseconds = cfg.GetInt("LABBOT_RETRY_POSTGRES_DELAY_MS")
	myConfig.PostgresRetry.Backoff = cfg.GetFloat64("LABBOT_RETRY_POSTGRES_BACKOFF")

	myConfig.RabbitRetry.Attempts = cfg.GetInt("LABBOT_RETRY_RABBITMQ_ATTEMPTS")
	myConfig.RabbitRetry.DelayMilliseconds = cfg.GetInt("LABBOT_RETRY_RABBITMQ_DELAY_MS")
	myConfig.RabbitRetry.Backoff = cfg.GetFloat64("LABBOT_RETRY_RABBITMQ_BACKOFF")

	myConfig.StoreRetry.Attempts = cfg.GetInt("LABBOT_RETRY_STORE_ATTEMPTS")
	myConfig.StoreRetry.DelayMilliseconds = cfg.GetInt("LABBOT_RETRY_STORE_DELAY_MS")
	myConfig.StoreRetry.Backoff = cfg.GetFloat64("LABBOT_RETRY_STORE_BACKOFF")

	// Scheduler
	myConfig.Scheduler.PollInterval = time.Duration(cfg.GetInt("LABBOT_SCHEDULER_POLL_INTERVAL_SECONDS")) * time.Second
	myConfig.Scheduler.FetchTimeout = time.Duration(cfg.GetInt("LABBOT_SCHEDULER_FETCH_TIMEOUT_SECONDS")) * time.Second
	myConfig.Scheduler.CalendarsFile = cfg.GetString("LABBOT_SCHEDULER_CALENDARS_FILE")

	// Housekeeping
	myConfig.Prune.Schedule = cfg.GetString("LABBOT_PRUNE_SCHEDULE")
	myConfig.Prune.Retention = time.Duration(cfg.GetInt("LABBOT_PRUNE_RETENTION_DAYS")) * 24 * time.Hour

	myConfig.applyDefaults()

	if err := myConfig.validate(); err != nil {
		return nil, err
	}

	return myConfig, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Scheduler.PollInterval == 0 {
		c.Scheduler.PollInterval = 5 * time.Minute
	}
	if c.Scheduler.FetchTimeout == 0 {
		c.Scheduler.FetchTimeout = 15 * time.Second
	}
	if c.Prune.Schedule == "" {
		c.Prune.Schedule = "30 4 * * *"
	}
	if c.Prune.Retention == 0 {
		c.Prune.Retention = 90 * 24 * time.Hour
	}
}

func (c *Config) validate() error {
	if c.Database.MasterDSN == "" {
		return fmt.Errorf("LABBOT_POSTGRES_MASTER_DSN is required")
	}
	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("LABBOT_RABBITMQ_HOST is required")
	}
	if c.RabbitMQ.Exchange == "" {
		return fmt.Errorf("LABBOT_RABBITMQ_EXCHANGE is required")
	}
	if c.Scheduler.CalendarsFile == "" {
		return fmt.Errorf("LABBOT_SCHEDULER_CALENDARS_FILE is required")
	}
	if c.Scheduler.PollInterval <= 0 {
		return fmt.Errorf("scheduler poll interval must be positive")
	}
	if c.Scheduler.FetchTimeout <= 0 {
		return fmt.Errorf("scheduler fetch timeout must be positive")
	}
	return nil
}

func MakeStrategy(c RetryConfig) retry.Strategy {
	return retry.Strategy{
		Attempts: c.Attempts,
		Delay:    time.Duration(c.DelayMilliseconds) * time.Millisecond,
		Backoff:  c.Backoff,
	}
}
