package config

import "time"

// AppConfig holds runtime startup configuration.
type AppConfig struct {
	Port           int
	Env            string
	AllowedOrigins []string
	Database       DatabaseRuntimeConfig
	Redis          RedisRuntimeConfig
	RateLimit      RateLimitConfig
	Paths          RuntimePathsConfig
	Mail           MailConfig
	AI             AIProvider
	Digest         DigestConfig
	Backup         BackupConfig
}

type DatabaseRuntimeConfig struct {
	Driver          string
	URL             string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	Charset         string
	Params          map[string]string
	StrictStartup   bool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisRuntimeConfig struct {
	URL string
}

type RateLimitConfig struct {
	Enable            bool
	RequestsPerMinute int
}

type RuntimePathsConfig struct {
	Logs    string
	Backups string
	Static  string
}

type MailConfig struct {
	Host      string
	Port      int
	User      string
	Pass      string
	From      string
	FromName  string
	ReplyTo   string
	ResendKey string
}

// AIProvider selects the language model used for digest copy.
type AIProvider struct {
	Type     string
	APIKey   string
	Model    string
	Endpoint string
}

type DigestConfig struct {
	Enable      bool
	Interval    time.Duration
	FlowersPath string
	SiteBase    string
	SupportURL  string
}

type BackupConfig struct {
	Enable   bool
	Interval time.Duration
	S3       S3Options
}

type S3Options struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
	PathStyleAccess bool
}

type rawAppConfig struct {
	Port               int               `yaml:"port"`
	Env                string            `yaml:"env"`
	DatabaseURL        string            `yaml:"database_url"`
	Database           rawDatabaseConfig `yaml:"database"`
	RedisURL           string            `yaml:"redis_url"`
	AllowedOrigin      string            `yaml:"allowed_origin"`
	AllowedOrigins     []string          `yaml:"allowed_origins"`
	CORSAllowedOrigins []string          `yaml:"cors_allowed_origins"`
	RateLimit          rawRateLimit      `yaml:"rate_limit"`
	Paths              rawPathsConfig    `yaml:"paths"`
	LogDir             string            `yaml:"log_dir"`
	BackupDir          string            `yaml:"backup_dir"`
	StaticDir          string            `yaml:"static_dir"`
	Mail               rawMailConfig     `yaml:"mail"`
	AI                 rawAIConfig       `yaml:"ai"`
	Digest             rawDigestConfig   `yaml:"digest"`
	Backup             rawBackupConfig   `yaml:"backup"`
}

type rawDatabaseConfig struct {
	Driver          string            `yaml:"driver"`
	DSN             string            `yaml:"dsn"`
	URL             string            `yaml:"url"`
	Host            string            `yaml:"host"`
	Port            int               `yaml:"port"`
	User            string            `yaml:"user"`
	Username        string            `yaml:"username"`
	Password        string            `yaml:"password"`
	Name            string            `yaml:"name"`
	DBName          string            `yaml:"db_name"`
	SSLMode         string            `yaml:"sslmode"`
	Charset         string            `yaml:"charset"`
	Params          map[string]string `yaml:"params"`
	StrictStartup   *bool             `yaml:"strict_startup"`
	MaxOpenConns    int               `yaml:"max_open_conns"`
	MaxIdleConns    int               `yaml:"max_idle_conns"`
	ConnMaxLifetime string            `yaml:"conn_max_lifetime"`
}

type rawRateLimit struct {
	Enable            *bool `yaml:"enable"`
	RequestsPerMinute int   `yaml:"requests_per_minute"`
}

type rawPathsConfig struct {
	Logs    string `yaml:"logs"`
	Backups string `yaml:"backups"`
	Static  string `yaml:"static"`
}

type rawMailConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	User      string `yaml:"user"`
	Pass      string `yaml:"pass"`
	From      string `yaml:"from"`
	FromName  string `yaml:"from_name"`
	ReplyTo   string `yaml:"reply_to"`
	ResendKey string `yaml:"resend_key"`
}

type rawAIConfig struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	Endpoint string `yaml:"endpoint"`
}

type rawDigestConfig struct {
	Enable      *bool  `yaml:"enable"`
	Interval    string `yaml:"interval"`
	FlowersPath string `yaml:"flowers_path"`
	SiteBase    string `yaml:"site_base"`
	SupportURL  string `yaml:"support_url"`
}

type rawBackupConfig struct {
	Enable   *bool        `yaml:"enable"`
	Interval string       `yaml:"interval"`
	S3       rawS3Options `yaml:"s3"`
}

type rawS3Options struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Prefix          string `yaml:"prefix"`
	PathStyleAccess *bool  `yaml:"path_style_access"`
}
