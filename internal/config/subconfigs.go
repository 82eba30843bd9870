package config

import "time"

type PostgresConfig struct {
	MasterDSN                    string
	SlaveDSNs                    []string
	MaxOpenConnections           int
	MaxIdleConnections           int
	ConnectionMaxLifetimeSeconds int
}

type RedisConfig struct {
	Host       string
	Port       int
	Password   string
	DB         int
	Expiration int // TTL in seconds for cached dedup keys
}

// Enabled reports whether a Redis cache should be wired in at all.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type RabbitMQConfig struct {
	User     string
	Password string
	Host     string
	Port     int
	VHost    string
	Exchange string
}

type ServerConfig struct {
	Host string
	Port int
}

type RetryConfig struct {
	Attempts          int
	DelayMilliseconds int
	Backoff           float64
}

type SchedulerConfig struct {
	PollInterval  time.Duration
	FetchTimeout  time.Duration
	CalendarsFile string
}

type PruneConfig struct {
	// Schedule is a cron expression for the housekeeping job that removes
	// old reminder records.
	Schedule  string
	Retention time.Duration
}
