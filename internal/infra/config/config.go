package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	JWT       JWTSettings       `mapstructure:"jwt"`
	Session   SessionSettings   `mapstructure:"session"`
	Anomaly   AnomalySettings   `mapstructure:"anomaly"`
	Analytics AnalyticsSettings `mapstructure:"analytics"`
	Cache     CacheSettings     `mapstructure:"cache"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures the Redis connection shared by the progress cache
// and the anomaly signal window.
type RedisSettings struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
}

// KafkaSettings configures the guardian-notification event producer.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Enabled     bool     `mapstructure:"enabled"`
}

type JWTSettings struct {
	Secret          string        `mapstructure:"secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

// SessionSettings holds the adult timeout policy. Child sessions use the fixed
// bounds in the domain package and ignore these values.
type SessionSettings struct {
	AdultIdleTimeout time.Duration `mapstructure:"adult_idle_timeout"`
	AdultMaxDuration time.Duration `mapstructure:"adult_max_duration"`
	HistoryWindow    time.Duration `mapstructure:"history_window"`
}

// AnomalySettings configures the sliding window for suspicious-signal counting
// and the off-hours span for child logins. The trigger threshold itself is
// fixed in the detector. Off-hours hours are UTC; equal start and end disables
// the check.
type AnomalySettings struct {
	WindowDuration time.Duration `mapstructure:"window_duration"`
	SignalTTL      time.Duration `mapstructure:"signal_ttl"`
	OffHoursStart  int           `mapstructure:"off_hours_start"`
	OffHoursEnd    int           `mapstructure:"off_hours_end"`
}

// AnalyticsSettings configures help-seeking categorization thresholds.
type AnalyticsSettings struct {
	IndependentWeeklyLimit int `mapstructure:"independent_weekly_limit"`
	FrequentWeeklyLimit    int `mapstructure:"frequent_weekly_limit"`
	NotificationDailyLimit int `mapstructure:"notification_daily_limit"`
}

type CacheSettings struct {
	ProgressTTL time.Duration `mapstructure:"progress_ttl"`
}

type TelemetrySettings struct {
	MetricsEnabled bool `mapstructure:"metrics_enabled"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("LP")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.enabled",
		"jwt.secret",
		"jwt.access_token_ttl",
		"jwt.refresh_token_ttl",
		"session.adult_idle_timeout",
		"session.adult_max_duration",
		"session.history_window",
		"anomaly.window_duration",
		"anomaly.signal_ttl",
		"anomaly.off_hours_start",
		"anomaly.off_hours_end",
		"analytics.independent_weekly_limit",
		"analytics.frequent_weekly_limit",
		"analytics.notification_daily_limit",
		"cache.progress_ttl",
		"telemetry.metrics_enabled",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "learningplanner")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "learningplanner")
	v.SetDefault("postgres.password", "learningplanner")
	v.SetDefault("postgres.database", "learningplanner")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "learningplanner")
	v.SetDefault("kafka.enabled", true)

	v.SetDefault("jwt.secret", "dev-only-secret-change-me")
	v.SetDefault("jwt.access_token_ttl", "15m")
	v.SetDefault("jwt.refresh_token_ttl", "168h")

	v.SetDefault("session.adult_idle_timeout", "12h")
	v.SetDefault("session.adult_max_duration", "720h")
	v.SetDefault("session.history_window", "720h")

	v.SetDefault("anomaly.window_duration", "15m")
	v.SetDefault("anomaly.signal_ttl", "30m")
	v.SetDefault("anomaly.off_hours_start", 21)
	v.SetDefault("anomaly.off_hours_end", 6)

	v.SetDefault("analytics.independent_weekly_limit", 3)
	v.SetDefault("analytics.frequent_weekly_limit", 10)
	v.SetDefault("analytics.notification_daily_limit", 5)

	v.SetDefault("cache.progress_ttl", "5m")

	v.SetDefault("telemetry.metrics_enabled", true)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "LP_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
