package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Log       LogConfig
	Telegram  TelegramConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Chrome    ChromeConfig
	Web       WebConfig
	Report    ReportConfig
	Scheduler SchedulerConfig
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
	Timezone string
}

// Location returns the configured timezone, UTC when it cannot be loaded.
func (a AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
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
	LogLevel        string
	SlowThreshold   time.Duration
}

// TelegramConfig holds bot transport settings
type TelegramConfig struct {
	Token         string
	APIEndpoint   string
	PollTimeout   int // seconds
	Debug         bool
	DigestChatIDs []int64
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled    bool
	Host       string
	Port       int
	Password   string
	DB         int
	KeyPrefix  string
	SessionTTL time.Duration
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// StorageConfig holds the S3 artifact archive settings
type StorageConfig struct {
	Enabled        bool
	Endpoint       string
	Region         string
	Bucket         string
	AccessKeyID    string
	SecretKey      string
	UsePathStyle   bool
	PresignExpires time.Duration
}

// ChromeConfig holds headless Chrome settings
type ChromeConfig struct {
	RemoteURL      string // empty launches a local browser
	Headless       bool
	NoSandbox      bool
	Timeout        time.Duration
	ViewportWidth  int
	ViewportHeight int
	// AssetsHost serves echarts.min.js to rendered pages; empty uses the public CDN
	AssetsHost string
}

// WebConfig holds dashboard server settings
type WebConfig struct {
	Port           string
	PublicURL      string
	Mode           string // debug, release, test
	LinkSecret     string
	LinkTTL        time.Duration
	RequireLink    bool
	MaxRangeDays   int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	// RateLimit is the number of requests per minute allowed per client on the API
	RateLimit int
}

// ReportConfig holds narrative report settings
type ReportConfig struct {
	CompanyLines []string
	Responsible  string
	ExportXLSX   bool
}

// SchedulerConfig holds weekly digest settings
type SchedulerConfig struct {
	Enabled       bool
	Weekday       time.Weekday
	Hour          int
	Minute        int
	CheckInterval time.Duration
	JobTimeout    time.Duration
}

// DefaultCompanyLines is the company block printed in report headers
var DefaultCompanyLines = []string{
	"ООО «Пример Компания»",
	"ул. Рябиновая, д. 55с2, г. Москва, 121471",
	"Тел.: +7 (495) 123-45-67, info@primercompany.ru",
	"ИНН: 1234567890, ОГРН: 1234567890123",
	"LLC «Example Company»",
	"Ryabinovaya street, 55c2, Moscow, 121471",
	"Phone: +7 (495) 123-45-67, info@primercompany.ru",
	"INN: 1234567890, OGRN: 1234567890123",
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with BIMATE_ prefix (e.g., BIMATE_TELEGRAM_TOKEN)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("BIMATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:     v.GetString("app.name"),
			Env:      v.GetString("app.env"),
			Timezone: v.GetString("app.timezone"),
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
			LogLevel:        v.GetString("database.log_level"),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Telegram: TelegramConfig{
			Token:         v.GetString("telegram.token"),
			APIEndpoint:   v.GetString("telegram.api_endpoint"),
			PollTimeout:   v.GetInt("telegram.poll_timeout"),
			Debug:         v.GetBool("telegram.debug"),
			DigestChatIDs: parseChatIDs(v.GetStringSlice("telegram.digest_chat_ids")),
		},
		Redis: RedisConfig{
			Enabled:    v.GetBool("redis.enabled"),
			Host:       v.GetString("redis.host"),
			Port:       v.GetInt("redis.port"),
			Password:   v.GetString("redis.password"),
			DB:         v.GetInt("redis.db"),
			KeyPrefix:  v.GetString("redis.key_prefix"),
			SessionTTL: v.GetDuration("redis.session_ttl"),
		},
		Storage: StorageConfig{
			Enabled:        v.GetBool("storage.enabled"),
			Endpoint:       v.GetString("storage.endpoint"),
			Region:         v.GetString("storage.region"),
			Bucket:         v.GetString("storage.bucket"),
			AccessKeyID:    v.GetString("storage.access_key_id"),
			SecretKey:      v.GetString("storage.secret_key"),
			UsePathStyle:   v.GetBool("storage.use_path_style"),
			PresignExpires: v.GetDuration("storage.presign_expires"),
		},
		Chrome: ChromeConfig{
			RemoteURL:      v.GetString("chrome.remote_url"),
			Headless:       !v.IsSet("chrome.headless") || v.GetBool("chrome.headless"),
			NoSandbox:      v.GetBool("chrome.no_sandbox"),
			Timeout:        v.GetDuration("chrome.timeout"),
			ViewportWidth:  v.GetInt("chrome.viewport_width"),
			ViewportHeight: v.GetInt("chrome.viewport_height"),
			AssetsHost:     v.GetString("chrome.assets_host"),
		},
		Web: WebConfig{
			Port:           v.GetString("web.port"),
			PublicURL:      v.GetString("web.public_url"),
			Mode:           v.GetString("web.mode"),
			LinkSecret:     v.GetString("web.link_secret"),
			LinkTTL:        v.GetDuration("web.link_ttl"),
			RequireLink:    v.GetBool("web.require_link"),
			MaxRangeDays:   v.GetInt("web.max_range_days"),
			ReadTimeout:    v.GetDuration("web.read_timeout"),
			WriteTimeout:   v.GetDuration("web.write_timeout"),
			RequestTimeout: v.GetDuration("web.request_timeout"),
			RateLimit:      v.GetInt("web.rate_limit"),
		},
		Report: ReportConfig{
			CompanyLines: v.GetStringSlice("report.company_lines"),
			Responsible:  v.GetString("report.responsible"),
			ExportXLSX:   v.GetBool("report.export_xlsx"),
		},
		Scheduler: SchedulerConfig{
			Enabled:       v.GetBool("scheduler.enabled"),
			Weekday:       time.Weekday(v.GetInt("scheduler.weekday")),
			Hour:          v.GetInt("scheduler.hour"),
			Minute:        v.GetInt("scheduler.minute"),
			CheckInterval: v.GetDuration("scheduler.check_interval"),
			JobTimeout:    v.GetDuration("scheduler.job_timeout"),
		},
	}
	if !v.IsSet("scheduler.weekday") {
		cfg.Scheduler.Weekday = time.Monday
	}
	if !v.IsSet("scheduler.hour") {
		cfg.Scheduler.Hour = 9
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseChatIDs accepts both a TOML array and a comma separated env value.
func parseChatIDs(raw []string) []int64 {
	var ids []int64
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			var id int64
			if _, err := fmt.Sscan(part, &id); err == nil {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "bimate"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Timezone == "" {
		cfg.App.Timezone = "Europe/Moscow"
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
		cfg.Database.DBName = "sales"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}
	if cfg.Database.SlowThreshold == 0 {
		cfg.Database.SlowThreshold = 500 * time.Millisecond
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Telegram.PollTimeout == 0 {
		cfg.Telegram.PollTimeout = 60
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "bimate:session:"
	}
	if cfg.Redis.SessionTTL == 0 {
		cfg.Redis.SessionTTL = 24 * time.Hour
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "bimate-artifacts"
	}
	if cfg.Storage.PresignExpires == 0 {
		cfg.Storage.PresignExpires = 24 * time.Hour
	}
	if cfg.Chrome.Timeout == 0 {
		cfg.Chrome.Timeout = 60 * time.Second
	}
	if cfg.Chrome.ViewportWidth == 0 {
		cfg.Chrome.ViewportWidth = 1000
	}
	if cfg.Chrome.ViewportHeight == 0 {
		cfg.Chrome.ViewportHeight = 600
	}
	if cfg.Web.Port == "" {
		cfg.Web.Port = "8050"
	}
	if cfg.Web.PublicURL == "" {
		cfg.Web.PublicURL = "http://localhost:" + cfg.Web.Port
	}
	if cfg.Web.Mode == "" {
		cfg.Web.Mode = "release"
	}
	if cfg.Web.LinkTTL == 0 {
		cfg.Web.LinkTTL = 24 * time.Hour
	}
	if cfg.Web.MaxRangeDays == 0 {
		cfg.Web.MaxRangeDays = 365
	}
	if cfg.Web.ReadTimeout == 0 {
		cfg.Web.ReadTimeout = 15 * time.Second
	}
	if cfg.Web.WriteTimeout == 0 {
		cfg.Web.WriteTimeout = 60 * time.Second
	}
	if cfg.Web.RequestTimeout == 0 {
		cfg.Web.RequestTimeout = 45 * time.Second
	}
	if cfg.Web.RateLimit == 0 {
		cfg.Web.RateLimit = 120
	}
	if len(cfg.Report.CompanyLines) == 0 {
		cfg.Report.CompanyLines = DefaultCompanyLines
	}
	if cfg.Report.Responsible == "" {
		cfg.Report.Responsible = "Ответственный"
	}
	if cfg.Scheduler.CheckInterval == 0 {
		cfg.Scheduler.CheckInterval = time.Minute
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 10 * time.Minute
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
	if c.Scheduler.Hour < 0 || c.Scheduler.Hour > 23 {
		return fmt.Errorf("scheduler.hour must be between 0 and 23, got %d", c.Scheduler.Hour)
	}
	if c.Scheduler.Minute < 0 || c.Scheduler.Minute > 59 {
		return fmt.Errorf("scheduler.minute must be between 0 and 59, got %d", c.Scheduler.Minute)
	}
	if c.Scheduler.Weekday < time.Sunday || c.Scheduler.Weekday > time.Saturday {
		return fmt.Errorf("scheduler.weekday must be between 0 and 6, got %d", c.Scheduler.Weekday)
	}
	if c.Web.RequireLink && c.Web.LinkSecret == "" {
		return fmt.Errorf("web.link_secret is required when web.require_link is set")
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}

	if c.App.Env == "production" {
		if c.Telegram.Token == "" {
			return fmt.Errorf("telegram.token is required in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Web.LinkSecret != "" && len(c.Web.LinkSecret) < 32 {
			return fmt.Errorf("web.link_secret must be at least 32 characters in production")
		}
	}

	return nil
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
