package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// DefaultJWTSecret is the development secret; production refuses to start with it
const DefaultJWTSecret = "change-me-in-production-please-32chars"

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Log          LogConfig
	HTTP         HTTPConfig
	Storage      StorageConfig
	Queue        QueueConfig
	Notification NotificationConfig
	Scheduler    SchedulerConfig
	Telemetry    TelemetryConfig
	Imports      ImportsConfig
	Permissions  PermissionsConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name     string
	Env      string
	Port     string
	TenantID string // the single tenant served by this deployment
}

// Tenant parses the configured tenant id
func (a *AppConfig) Tenant() (uuid.UUID, error) {
	id, err := uuid.Parse(a.TenantID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("app.tenant_id: %w", err)
	}
	return id, nil
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                 string
	RefreshSecret          string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	Issuer                 string
	MaxRefreshCount        int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
}

// StorageConfig holds S3-compatible object storage settings
type StorageConfig struct {
	Endpoint          string
	Region            string
	Bucket            string
	AccessKey         string
	SecretKey         string
	UseSSL            bool
	UsePathStyle      bool
	PresignExpiration time.Duration
}

// QueueConfig holds background job queue settings
type QueueConfig struct {
	PollInterval time.Duration
	Concurrency  int
	MaxAttempts  int
	RetryDelay   time.Duration
}

// NotificationConfig holds outbox delivery settings
type NotificationConfig struct {
	MaxRetries   int
	BaseBackoff  time.Duration
	PollInterval time.Duration
	BatchSize    int
}

// SchedulerConfig holds report schedule runner settings
type SchedulerConfig struct {
	Enabled      bool
	PollInterval time.Duration
	BatchSize    int
	JobTimeout   time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsEnabled    bool    // Expose /metrics
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings
}

// ImportsConfig holds bulk import settings
type ImportsConfig struct {
	MaxFileSize int64 // bytes
	MaxRows     int
	PreviewRows int
}

// PermissionsConfig points at the permission matrix used for seeding
type PermissionsConfig struct {
	MatrixPath string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with ZONE_ prefix (e.g., ZONE_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("ZONE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := fromViper(v)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Name:     v.GetString("app.name"),
			Env:      v.GetString("app.env"),
			Port:     v.GetString("app.port"),
			TenantID: v.GetString("app.tenant_id"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                 v.GetString("jwt.secret"),
			RefreshSecret:          v.GetString("jwt.refresh_secret"),
			AccessTokenExpiration:  v.GetDuration("jwt.access_token_expiration"),
			RefreshTokenExpiration: v.GetDuration("jwt.refresh_token_expiration"),
			Issuer:                 v.GetString("jwt.issuer"),
			MaxRefreshCount:        v.GetInt("jwt.max_refresh_count"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Storage: StorageConfig{
			Endpoint:          v.GetString("storage.endpoint"),
			Region:            v.GetString("storage.region"),
			Bucket:            v.GetString("storage.bucket"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			UseSSL:            v.GetBool("storage.use_ssl"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
		},
		Queue: QueueConfig{
			PollInterval: v.GetDuration("queue.poll_interval"),
			Concurrency:  v.GetInt("queue.concurrency"),
			MaxAttempts:  v.GetInt("queue.max_attempts"),
			RetryDelay:   v.GetDuration("queue.retry_delay"),
		},
		Notification: NotificationConfig{
			MaxRetries:   v.GetInt("notification.max_retries"),
			BaseBackoff:  v.GetDuration("notification.base_backoff"),
			PollInterval: v.GetDuration("notification.poll_interval"),
			BatchSize:    v.GetInt("notification.batch_size"),
		},
		Scheduler: SchedulerConfig{
			Enabled:      v.GetBool("scheduler.enabled"),
			PollInterval: v.GetDuration("scheduler.poll_interval"),
			BatchSize:    v.GetInt("scheduler.batch_size"),
			JobTimeout:   v.GetDuration("scheduler.job_timeout"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_thresh"),
		},
		Imports: ImportsConfig{
			MaxFileSize: v.GetInt64("imports.max_file_size"),
			MaxRows:     v.GetInt("imports.max_rows"),
			PreviewRows: v.GetInt("imports.preview_rows"),
		},
		Permissions: PermissionsConfig{
			MatrixPath: v.GetString("permissions.matrix_path"),
		},
	}
}

// applyDefaults sets default values for unset configuration
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "zone-reporting"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.TenantID == "" && cfg.App.Env != "production" {
		cfg.App.TenantID = "00000000-0000-0000-0000-000000000001"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "zone_reporting"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 5
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 10
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = DefaultJWTSecret
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 15 * time.Minute
	}
	if cfg.JWT.RefreshTokenExpiration == 0 {
		cfg.JWT.RefreshTokenExpiration = 7 * 24 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "zone-reporting"
	}
	if cfg.JWT.MaxRefreshCount == 0 {
		cfg.JWT.MaxRefreshCount = 100
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 30 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// SSE export streams hold the connection open
		cfg.HTTP.WriteTimeout = 10 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 120 * time.Second
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 20 << 20
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "eu-west-1"
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "zone-reporting"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = time.Hour
	}
	if cfg.Queue.PollInterval == 0 {
		cfg.Queue.PollInterval = time.Second
	}
	if cfg.Queue.Concurrency == 0 {
		cfg.Queue.Concurrency = 2
	}
	if cfg.Queue.MaxAttempts == 0 {
		cfg.Queue.MaxAttempts = 3
	}
	if cfg.Queue.RetryDelay == 0 {
		cfg.Queue.RetryDelay = 30 * time.Second
	}
	if cfg.Notification.MaxRetries == 0 {
		cfg.Notification.MaxRetries = 5
	}
	if cfg.Notification.BaseBackoff == 0 {
		cfg.Notification.BaseBackoff = time.Minute
	}
	if cfg.Notification.PollInterval == 0 {
		cfg.Notification.PollInterval = 10 * time.Second
	}
	if cfg.Notification.BatchSize == 0 {
		cfg.Notification.BatchSize = 50
	}
	if cfg.Scheduler.PollInterval == 0 {
		cfg.Scheduler.PollInterval = time.Minute
	}
	if cfg.Scheduler.BatchSize == 0 {
		cfg.Scheduler.BatchSize = 20
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 10 * time.Minute
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "zone-reporting-api"
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Imports.MaxFileSize == 0 {
		cfg.Imports.MaxFileSize = 10 << 20
	}
	if cfg.Imports.MaxRows == 0 {
		cfg.Imports.MaxRows = 50000
	}
	if cfg.Imports.PreviewRows == 0 {
		cfg.Imports.PreviewRows = 10
	}
	if cfg.Permissions.MatrixPath == "" {
		cfg.Permissions.MatrixPath = "resources/permissions_matrix.csv"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.App.TenantID != "" {
		if _, err := uuid.Parse(c.App.TenantID); err != nil {
			return fmt.Errorf("app.tenant_id must be a UUID: %w", err)
		}
	}
	if c.Notification.MaxRetries < 1 {
		return fmt.Errorf("notification.max_retries must be at least 1")
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == DefaultJWTSecret {
			return fmt.Errorf("jwt.secret must be changed from the default in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.App.TenantID == "" {
			return fmt.Errorf("app.tenant_id is required in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	return nil
}

// IsProduction reports whether the app runs in production
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
