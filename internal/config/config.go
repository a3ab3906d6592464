package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	DB        DBConfig
	Redis     RedisConfig
	Events    EventsConfig
	Lock      LockConfig
	S3        S3Config
	Email     EmailConfig
	Alerts    AlertsConfig
	Log       LogConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Limits    LimitsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// StorageConfig selects the repository backend: "postgres" or "memory".
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// RedisConfig holds Redis connection settings. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// EventsConfig selects and tunes the event channel: "local", "redis" or "gcp".
type EventsConfig struct {
	Driver          string        `mapstructure:"driver"`
	Channel         string        `mapstructure:"channel"`
	QueueSize       int           `mapstructure:"queue_size"`
	Concurrency     int           `mapstructure:"concurrency"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	HandlerTimeout  time.Duration `mapstructure:"handler_timeout"`
	GCPProject      string        `mapstructure:"gcp_project"`
	GCPTopic        string        `mapstructure:"gcp_topic"`
	GCPSubscription string        `mapstructure:"gcp_subscription"`
	GCPCredentials  string        `mapstructure:"gcp_credentials_json"`
}

// LockConfig tunes the tenant/year recalculation lock.
type LockConfig struct {
	TTL     time.Duration `mapstructure:"ttl"`
	Wait    time.Duration `mapstructure:"wait"`
	Backoff time.Duration `mapstructure:"backoff"`
}

// S3Config holds AWS S3 settings. An empty Bucket disables object storage.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// EmailConfig holds email delivery settings.
type EmailConfig struct {
	Provider    string `mapstructure:"provider"`
	Region      string `mapstructure:"region"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
}

// AlertsConfig holds limit alert recipients.
type AlertsConfig struct {
	EmailRecipients []string `mapstructure:"email_recipients"`
	SlackWebhookURL string   `mapstructure:"slack_webhook_url"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitConfig holds per-tenant request rate limits. Zero RPS disables limiting.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// LimitsConfig seeds the limit configuration for DefaultYears when the
// store has none.
type LimitsConfig struct {
	DefaultYears  []int           `mapstructure:"default_years"`
	AnnualLimit   decimal.Decimal `mapstructure:"annual_limit"`
	WarnRatio     decimal.Decimal `mapstructure:"warn_ratio"`
	CriticalRatio decimal.Decimal `mapstructure:"critical_ratio"`
	RecalcTimeout time.Duration   `mapstructure:"recalc_timeout"`
}

// Load reads configuration from environment variables with the LIMITGUARD_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LIMITGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	v.SetDefault("storage.driver", "postgres")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "limitguard")
	v.SetDefault("db.password", "limitguard_secret")
	v.SetDefault("db.name", "limitguard_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// Redis defaults
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Events defaults
	v.SetDefault("events.driver", "local")
	v.SetDefault("events.channel", "limitguard:events")
	v.SetDefault("events.queue_size", 1024)
	v.SetDefault("events.concurrency", 4)
	v.SetDefault("events.max_attempts", 3)
	v.SetDefault("events.retry_backoff", "200ms")
	v.SetDefault("events.handler_timeout", "30s")
	v.SetDefault("events.gcp_project", "")
	v.SetDefault("events.gcp_topic", "limitguard-events")
	v.SetDefault("events.gcp_subscription", "limitguard-events-sub")

	// Lock defaults
	v.SetDefault("lock.ttl", "30s")
	v.SetDefault("lock.wait", "5s")
	v.SetDefault("lock.backoff", "100ms")

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.presign_expiry", 3600)

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "us-east-1")
	v.SetDefault("email.from_address", "noreply@limitguard.local")
	v.SetDefault("email.from_name", "LimitGuard")

	v.SetDefault("alerts.email_recipients", "")
	v.SetDefault("alerts.slack_webhook_url", "")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "text")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	v.SetDefault("ratelimit.rps", 20)
	v.SetDefault("ratelimit.burst", 40)

	// Limits defaults
	v.SetDefault("limits.default_years", "")
	v.SetDefault("limits.annual_limit", "81000")
	v.SetDefault("limits.warn_ratio", "0.8")
	v.SetDefault("limits.critical_ratio", "1")
	v.SetDefault("limits.recalc_timeout", "4s")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                 "LIMITGUARD_SERVER_PORT",
		"server.read_timeout":         "LIMITGUARD_SERVER_READ_TIMEOUT",
		"server.write_timeout":        "LIMITGUARD_SERVER_WRITE_TIMEOUT",
		"server.environment":          "LIMITGUARD_SERVER_ENVIRONMENT",
		"storage.driver":              "LIMITGUARD_STORAGE_DRIVER",
		"db.host":                     "LIMITGUARD_DB_HOST",
		"db.port":                     "LIMITGUARD_DB_PORT",
		"db.user":                     "LIMITGUARD_DB_USER",
		"db.password":                 "LIMITGUARD_DB_PASSWORD",
		"db.name":                     "LIMITGUARD_DB_NAME",
		"db.sslmode":                  "LIMITGUARD_DB_SSLMODE",
		"db.max_open":                 "LIMITGUARD_DB_MAX_OPEN",
		"db.max_idle":                 "LIMITGUARD_DB_MAX_IDLE",
		"redis.addr":                  "LIMITGUARD_REDIS_ADDR",
		"redis.password":              "LIMITGUARD_REDIS_PASSWORD",
		"redis.db":                    "LIMITGUARD_REDIS_DB",
		"events.driver":               "LIMITGUARD_EVENTS_DRIVER",
		"events.channel":              "LIMITGUARD_EVENTS_CHANNEL",
		"events.queue_size":           "LIMITGUARD_EVENTS_QUEUE_SIZE",
		"events.concurrency":          "LIMITGUARD_EVENTS_CONCURRENCY",
		"events.max_attempts":         "LIMITGUARD_EVENTS_MAX_ATTEMPTS",
		"events.retry_backoff":        "LIMITGUARD_EVENTS_RETRY_BACKOFF",
		"events.handler_timeout":      "LIMITGUARD_EVENTS_HANDLER_TIMEOUT",
		"events.gcp_project":          "LIMITGUARD_EVENTS_GCP_PROJECT",
		"events.gcp_topic":            "LIMITGUARD_EVENTS_GCP_TOPIC",
		"events.gcp_subscription":     "LIMITGUARD_EVENTS_GCP_SUBSCRIPTION",
		"events.gcp_credentials_json": "LIMITGUARD_EVENTS_GCP_CREDENTIALS_JSON",
		"lock.ttl":                    "LIMITGUARD_LOCK_TTL",
		"lock.wait":                   "LIMITGUARD_LOCK_WAIT",
		"lock.backoff":                "LIMITGUARD_LOCK_BACKOFF",
		"s3.region":                   "LIMITGUARD_S3_REGION",
		"s3.bucket":                   "LIMITGUARD_S3_BUCKET",
		"s3.endpoint":                 "LIMITGUARD_S3_ENDPOINT",
		"s3.access_key":               "LIMITGUARD_S3_ACCESS_KEY",
		"s3.secret_key":               "LIMITGUARD_S3_SECRET_KEY",
		"s3.presign_expiry":           "LIMITGUARD_S3_PRESIGN_EXPIRY",
		"email.provider":              "LIMITGUARD_EMAIL_PROVIDER",
		"email.region":                "LIMITGUARD_EMAIL_REGION",
		"email.from_address":          "LIMITGUARD_EMAIL_FROM_ADDRESS",
		"email.from_name":             "LIMITGUARD_EMAIL_FROM_NAME",
		"alerts.email_recipients":     "LIMITGUARD_ALERTS_EMAIL_RECIPIENTS",
		"alerts.slack_webhook_url":    "LIMITGUARD_ALERTS_SLACK_WEBHOOK_URL",
		"log.level":                   "LIMITGUARD_LOG_LEVEL",
		"log.format":                  "LIMITGUARD_LOG_FORMAT",
		"cors.allowed_origins":        "LIMITGUARD_CORS_ALLOWED_ORIGINS",
		"ratelimit.rps":               "LIMITGUARD_RATELIMIT_RPS",
		"ratelimit.burst":             "LIMITGUARD_RATELIMIT_BURST",
		"limits.default_years":        "LIMITGUARD_LIMITS_DEFAULT_YEARS",
		"limits.annual_limit":         "LIMITGUARD_LIMITS_ANNUAL_LIMIT",
		"limits.warn_ratio":           "LIMITGUARD_LIMITS_WARN_RATIO",
		"limits.critical_ratio":       "LIMITGUARD_LIMITS_CRITICAL_RATIO",
		"limits.recalc_timeout":       "LIMITGUARD_LIMITS_RECALC_TIMEOUT",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if LIMITGUARD_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("LIMITGUARD_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.Storage = StorageConfig{Driver: v.GetString("storage.driver")}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Redis = RedisConfig{
		Addr:     v.GetString("redis.addr"),
		Password: v.GetString("redis.password"),
		DB:       v.GetInt("redis.db"),
	}
	cfg.Events = EventsConfig{
		Driver:          v.GetString("events.driver"),
		Channel:         v.GetString("events.channel"),
		QueueSize:       v.GetInt("events.queue_size"),
		Concurrency:     v.GetInt("events.concurrency"),
		MaxAttempts:     v.GetInt("events.max_attempts"),
		RetryBackoff:    v.GetDuration("events.retry_backoff"),
		HandlerTimeout:  v.GetDuration("events.handler_timeout"),
		GCPProject:      v.GetString("events.gcp_project"),
		GCPTopic:        v.GetString("events.gcp_topic"),
		GCPSubscription: v.GetString("events.gcp_subscription"),
		GCPCredentials:  v.GetString("events.gcp_credentials_json"),
	}
	cfg.Lock = LockConfig{
		TTL:     v.GetDuration("lock.ttl"),
		Wait:    v.GetDuration("lock.wait"),
		Backoff: v.GetDuration("lock.backoff"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.Email = EmailConfig{
		Provider:    v.GetString("email.provider"),
		Region:      v.GetString("email.region"),
		FromAddress: v.GetString("email.from_address"),
		FromName:    v.GetString("email.from_name"),
	}
	cfg.Alerts = AlertsConfig{
		EmailRecipients: splitList(v.GetString("alerts.email_recipients")),
		SlackWebhookURL: v.GetString("alerts.slack_webhook_url"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: splitList(v.GetString("cors.allowed_origins")),
	}
	cfg.RateLimit = RateLimitConfig{
		RPS:   v.GetFloat64("ratelimit.rps"),
		Burst: v.GetInt("ratelimit.burst"),
	}

	limitsCfg, err := loadLimits(v)
	if err != nil {
		return nil, err
	}
	cfg.Limits = limitsCfg

	return cfg, nil
}

func loadLimits(v *viper.Viper) (LimitsConfig, error) {
	out := LimitsConfig{RecalcTimeout: v.GetDuration("limits.recalc_timeout")}
	for _, s := range splitList(v.GetString("limits.default_years")) {
		var year int
		if _, err := fmt.Sscanf(s, "%d", &year); err != nil {
			return out, fmt.Errorf("config: limits.default_years: %q is not a year", s)
		}
		out.DefaultYears = append(out.DefaultYears, year)
	}
	fields := []struct {
		key string
		dst *decimal.Decimal
	}{
		{"limits.annual_limit", &out.AnnualLimit},
		{"limits.warn_ratio", &out.WarnRatio},
		{"limits.critical_ratio", &out.CriticalRatio},
	}
	for _, f := range fields {
		d, err := decimal.NewFromString(v.GetString(f.key))
		if err != nil {
			return out, fmt.Errorf("config: %s: %w", f.key, err)
		}
		*f.dst = d
	}
	return out, nil
}

// splitList parses a comma-separated string, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
