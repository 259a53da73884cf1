package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// envAppConfig mirrors the process environment. Unset variables leave the
// field at its zero value so that file values survive the overlay.
type envAppConfig struct {
	Port int    `envconfig:"PORT"`
	Env  string `envconfig:"ENV"`

	DBDriver          string        `envconfig:"DB_DRIVER"`
	DatabaseURL       string        `envconfig:"DATABASE_URL"`
	DBHost            string        `envconfig:"DB_HOST"`
	DBPort            int           `envconfig:"DB_PORT"`
	DBUser            string        `envconfig:"DB_USER"`
	DBPassword        string        `envconfig:"DB_PASSWORD"`
	DBName            string        `envconfig:"DB_NAME"`
	DBSSLMode         string        `envconfig:"DB_SSLMODE"`
	DBStrictStartup   *bool         `envconfig:"DB_STRICT_STARTUP"`
	DBMaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME"`

	AllowedOrigin      string `envconfig:"ALLOWED_ORIGIN"`
	RedisURL           string `envconfig:"REDIS_URL"`
	RateLimitEnable    *bool  `envconfig:"RATE_LIMIT_ENABLE"`
	RateLimitPerMinute int    `envconfig:"RATE_LIMIT_PER_MINUTE"`

	LogDir    string `envconfig:"LOG_DIR"`
	BackupDir string `envconfig:"BACKUP_DIR"`
	StaticDir string `envconfig:"STATIC_DIR"`

	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT"`
	SMTPUser     string `envconfig:"SMTP_USER"`
	SMTPPass     string `envconfig:"SMTP_PASS"`
	FromEmail    string `envconfig:"FROM_EMAIL"`
	FromName     string `envconfig:"FROM_NAME"`
	ReplyTo      string `envconfig:"REPLY_TO"`
	ResendAPIKey string `envconfig:"RESEND_API_KEY"`

	LLMProvider string `envconfig:"LLM_PROVIDER"`
	LLMAPIKey   string `envconfig:"LLM_API_KEY"`
	LLMModel    string `envconfig:"LLM_MODEL"`
	LLMEndpoint string `envconfig:"LLM_ENDPOINT"`

	DigestEnable   *bool         `envconfig:"DIGEST_ENABLE"`
	DigestInterval time.Duration `envconfig:"DIGEST_INTERVAL"`
	FlowersPath    string        `envconfig:"FLOWERS_PATH"`
	SiteBase       string        `envconfig:"SITE_BASE"`
	SupportURL     string        `envconfig:"SUPPORT_URL"`

	BackupEnable      *bool         `envconfig:"BACKUP_ENABLE"`
	BackupInterval    time.Duration `envconfig:"BACKUP_INTERVAL"`
	S3Bucket          string        `envconfig:"S3_BUCKET"`
	S3Region          string        `envconfig:"S3_REGION"`
	S3Endpoint        string        `envconfig:"S3_ENDPOINT"`
	S3AccessKeyID     string        `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string        `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Prefix          string        `envconfig:"S3_PREFIX"`
	S3PathStyle       *bool         `envconfig:"S3_PATH_STYLE"`
}

func loadEnv() (envAppConfig, error) {
	var env envAppConfig
	if err := envconfig.Process("", &env); err != nil {
		return env, fmt.Errorf("parse environment: %w", err)
	}
	return env, nil
}

func applyEnvAppConfig(cfg *AppConfig, env envAppConfig) {
	if env.Port != 0 {
		cfg.Port = env.Port
	}
	setString(&cfg.Env, env.Env)

	db := &cfg.Database
	setString(&db.Driver, env.DBDriver)
	setString(&db.URL, env.DatabaseURL)
	setString(&db.Host, env.DBHost)
	if env.DBPort != 0 {
		db.Port = env.DBPort
	}
	setString(&db.User, env.DBUser)
	setString(&db.Password, env.DBPassword)
	setString(&db.Name, env.DBName)
	setString(&db.SSLMode, env.DBSSLMode)
	if env.DBStrictStartup != nil {
		db.StrictStartup = *env.DBStrictStartup
	}
	if env.DBMaxOpenConns != 0 {
		db.MaxOpenConns = env.DBMaxOpenConns
	}
	if env.DBMaxIdleConns != 0 {
		db.MaxIdleConns = env.DBMaxIdleConns
	}
	if env.DBConnMaxLifetime != 0 {
		db.ConnMaxLifetime = env.DBConnMaxLifetime
	}

	if v := strings.TrimSpace(env.AllowedOrigin); v != "" {
		cfg.AllowedOrigins = normalizeOrigins(strings.Split(v, ","))
	}
	setString(&cfg.Redis.URL, env.RedisURL)
	if env.RateLimitEnable != nil {
		cfg.RateLimit.Enable = *env.RateLimitEnable
	}
	if env.RateLimitPerMinute != 0 {
		cfg.RateLimit.RequestsPerMinute = env.RateLimitPerMinute
	}

	setString(&cfg.Paths.Logs, env.LogDir)
	setString(&cfg.Paths.Backups, env.BackupDir)
	setString(&cfg.Paths.Static, env.StaticDir)

	mail := &cfg.Mail
	setString(&mail.Host, env.SMTPHost)
	if env.SMTPPort != 0 {
		mail.Port = env.SMTPPort
	}
	setString(&mail.User, env.SMTPUser)
	setString(&mail.Pass, env.SMTPPass)
	setString(&mail.From, env.FromEmail)
	setString(&mail.FromName, env.FromName)
	setString(&mail.ReplyTo, env.ReplyTo)
	setString(&mail.ResendKey, env.ResendAPIKey)

	setString(&cfg.AI.Type, env.LLMProvider)
	setString(&cfg.AI.APIKey, env.LLMAPIKey)
	setString(&cfg.AI.Model, env.LLMModel)
	setString(&cfg.AI.Endpoint, env.LLMEndpoint)

	if env.DigestEnable != nil {
		cfg.Digest.Enable = *env.DigestEnable
	}
	if env.DigestInterval != 0 {
		cfg.Digest.Interval = env.DigestInterval
	}
	setString(&cfg.Digest.FlowersPath, env.FlowersPath)
	setString(&cfg.Digest.SiteBase, env.SiteBase)
	setString(&cfg.Digest.SupportURL, env.SupportURL)

	if env.BackupEnable != nil {
		cfg.Backup.Enable = *env.BackupEnable
	}
	if env.BackupInterval != 0 {
		cfg.Backup.Interval = env.BackupInterval
	}
	s3 := &cfg.Backup.S3
	setString(&s3.Bucket, env.S3Bucket)
	setString(&s3.Region, env.S3Region)
	setString(&s3.Endpoint, env.S3Endpoint)
	setString(&s3.AccessKeyID, env.S3AccessKeyID)
	setString(&s3.SecretAccessKey, env.S3SecretAccessKey)
	setString(&s3.Prefix, env.S3Prefix)
	if env.S3PathStyle != nil {
		s3.PathStyleAccess = *env.S3PathStyle
	}
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
