// Package config loads service settings from config.toml and WOOWMS_*
// environment variables through viper.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides (WOOWMS_DATABASE_HOST, ...)
const EnvPrefix = "WOOWMS"

// DevelopmentRootSecret encrypts credentials outside production when no
// crypto.root_secret is configured
const DevelopmentRootSecret = "woowms-development-root-secret"

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Swagger   SwaggerConfig   `mapstructure:"swagger"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	Crypto    CryptoConfig    `mapstructure:"crypto"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

// IsProduction enables the stricter secret checks
func (a AppConfig) IsProduction() bool { return a.Env == "production" }

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	// AutoMigrate applies the embedded migrations at server start
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// DSN is the postgres URL with user, password and database escaped
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// RedisConfig holds Redis connection settings. An empty Host disables Redis;
// delivery dedup and rate limiting fall back to memory and the
// cross-instance lock is off.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Enabled() bool { return r.Host != "" }

func (r RedisConfig) Addr() string { return net.JoinHostPort(r.Host, strconv.Itoa(r.Port)) }

// KafkaConfig holds sync event publishing settings
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// JWTConfig holds settings for validating bearer tokens on the API
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr, or file path
}

type HTTPConfig struct {
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
	TrustedProxies []string      `mapstructure:"trusted_proxies"`
}

// SwaggerConfig controls the /swagger/*any documentation endpoint
type SwaggerConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	RequireAuth bool `mapstructure:"require_auth"` // serve the docs behind the API bearer token
}

// SyncConfig holds scheduler and walker settings
type SyncConfig struct {
	SchedulerEnabled bool          `mapstructure:"scheduler_enabled"`
	CronSchedule     string        `mapstructure:"cron_schedule"` // robfig/cron spec driving the tick
	MaxParallel      int           `mapstructure:"max_parallel"`  // stores synced concurrently per tick
	RunTimeout       time.Duration `mapstructure:"run_timeout"`   // per-store deadline for one walk
	HTTPTimeout      time.Duration `mapstructure:"http_timeout"`  // per-request timeout of the WooCommerce client
	PageSize         int           `mapstructure:"page_size"`
	LockTTL          time.Duration `mapstructure:"lock_ttl"`     // cross-instance store lock lifetime
	PushTimeout      time.Duration `mapstructure:"push_timeout"` // deadline for detached stock pushes
	// manual sync triggers allowed per store within ManualSyncWindow
	ManualSyncLimit  int           `mapstructure:"manual_sync_limit"`
	ManualSyncWindow time.Duration `mapstructure:"manual_sync_window"`
}

type WebhookConfig struct {
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	DedupEnabled bool          `mapstructure:"dedup_enabled"`
	DedupTTL     time.Duration `mapstructure:"dedup_ttl"`
}

// CryptoConfig holds the root secret credentials are encrypted under
type CryptoConfig struct {
	RootSecret string `mapstructure:"root_secret"`
}

// TelemetryConfig switches the OTLP exporters and the pyroscope profiler
type TelemetryConfig struct {
	Enabled           bool     `mapstructure:"enabled"`
	CollectorEndpoint string   `mapstructure:"collector_endpoint"` // OTLP gRPC, host:port
	SamplingRatio     float64  `mapstructure:"sampling_ratio"`
	ServiceName       string   `mapstructure:"service_name"`
	Insecure          bool     `mapstructure:"insecure"`
	DBTraceEnabled    bool     `mapstructure:"db_trace_enabled"`
	MetricsEnabled    bool     `mapstructure:"metrics_enabled"`
	LogsEnabled       bool     `mapstructure:"logs_enabled"`
	ProfilingEnabled  bool     `mapstructure:"profiling_enabled"`
	PyroscopeURL      string   `mapstructure:"pyroscope_url"`
	ProfileTypes      []string `mapstructure:"profile_types"`
}

var defaults = map[string]any{
	"app.name": "woowms-sync",
	"app.env":  "development",
	"app.port": "8080",

	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "woowms",
	"database.sslmode":            "disable",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  time.Hour,
	"database.conn_max_idle_time": 30 * time.Minute,
	"database.auto_migrate":       false,

	"redis.host":     "",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"kafka.enabled":       false,
	"kafka.brokers":       []string{},
	"kafka.topic":         "woowms.sync-events",
	"kafka.batch_timeout": 50 * time.Millisecond,

	"jwt.secret": "",
	"jwt.issuer": "woowms",

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"http.read_timeout": 15 * time.Second,
	// manual triggers run both walkers inline
	"http.write_timeout":    5 * time.Minute,
	"http.idle_timeout":     time.Minute,
	"http.max_header_bytes": 1 << 20,
	"http.trusted_proxies":  []string{},

	"swagger.enabled":      false,
	"swagger.require_auth": false,

	"sync.scheduler_enabled":  true,
	"sync.cron_schedule":      "@every 1m",
	"sync.max_parallel":       4,
	"sync.run_timeout":        10 * time.Minute,
	"sync.http_timeout":       30 * time.Second,
	"sync.page_size":          100,
	"sync.lock_ttl":           15 * time.Minute,
	"sync.push_timeout":       15 * time.Second,
	"sync.manual_sync_limit":  5,
	"sync.manual_sync_window": time.Minute,

	"webhook.max_body_bytes": 1 << 20,
	"webhook.dedup_enabled":  true,
	"webhook.dedup_ttl":      24 * time.Hour,

	"crypto.root_secret": "",

	"telemetry.enabled":            false,
	"telemetry.collector_endpoint": "localhost:4317",
	"telemetry.sampling_ratio":     1.0,
	"telemetry.service_name":       "",
	"telemetry.insecure":           false,
	"telemetry.db_trace_enabled":   false,
	"telemetry.metrics_enabled":    false,
	"telemetry.logs_enabled":       false,
	"telemetry.profiling_enabled":  false,
	"telemetry.pyroscope_url":      "",
	"telemetry.profile_types":      []string{"cpu", "alloc_space", "inuse_space", "goroutines"},
}

// Load reads ./config.toml or /app/config.toml when present. WOOWMS_*
// environment variables override the file, and the file overrides the
// built-in defaults.
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return decode(v)
}

// newViper registers every key with its default, which is also what lets
// AutomaticEnv see the key during Unmarshal.
func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Crypto.RootSecret == "" && !cfg.App.IsProduction() {
		cfg.Crypto.RootSecret = DevelopmentRootSecret
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate reports every problem at once
func (c *Config) validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	db := c.Database
	check(db.MaxOpenConns > 0, "database.max_open_conns must be positive")
	check(db.MaxIdleConns >= 0, "database.max_idle_conns cannot be negative")
	check(db.MaxIdleConns <= db.MaxOpenConns,
		"database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)", db.MaxIdleConns, db.MaxOpenConns)

	check(c.Sync.MaxParallel >= 1, "sync.max_parallel must be at least 1")
	check(c.Sync.PageSize >= 1 && c.Sync.PageSize <= 100,
		"sync.page_size must be between 1 and 100, got %d", c.Sync.PageSize)
	check(!c.Kafka.Enabled || len(c.Kafka.Brokers) > 0, "kafka.brokers is required when kafka.enabled is true")
	check(c.Telemetry.SamplingRatio >= 0 && c.Telemetry.SamplingRatio <= 1,
		"telemetry.sampling_ratio must be between 0 and 1, got %g", c.Telemetry.SamplingRatio)

	if c.App.IsProduction() {
		check(len(c.JWT.Secret) >= 32, "jwt.secret needs 32+ characters in production")
		check(len(c.Crypto.RootSecret) >= 32, "crypto.root_secret needs 32+ characters in production")
		check(db.Password != "", "database.password is required in production")
		check(db.SSLMode != "disable", "database.sslmode cannot be disable in production")
		check(!c.Swagger.Enabled || c.Swagger.RequireAuth,
			"swagger.require_auth must be set when swagger.enabled is true in production")
	}

	return errors.Join(errs...)
}
