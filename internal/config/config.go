package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load builds the runtime configuration: built-in defaults, then the YAML file
// at configPath, then the process environment.
// A missing file is tolerated only for the default path.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}

	raw, err := readRawConfig(path, explicit)
	if err != nil {
		return nil, err
	}

	cfg := defaultAppConfig()
	if err := applyRawAppConfig(&cfg, raw); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}

	env, err := loadEnv()
	if err != nil {
		return nil, err
	}
	applyEnvAppConfig(&cfg, env)

	normalizeAppConfig(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readRawConfig(path string, explicit bool) (rawAppConfig, error) {
	raw := rawAppConfig{}
	content, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return raw, nil
		}
		return raw, fmt.Errorf("read config file %q: %w", path, err)
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return raw, nil
	}

	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil {
		return raw, fmt.Errorf("parse config file %q: %w", path, err)
	}
	return raw, nil
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		Port:           defaultPort,
		Env:            defaultEnv,
		AllowedOrigins: []string{defaultAllowedOrigin},
		Database: DatabaseRuntimeConfig{
			Driver:          defaultDBDriver,
			Host:            defaultDBHost,
			Name:            defaultDBName,
			MaxOpenConns:    defaultMaxOpenConns,
			MaxIdleConns:    defaultMaxIdleConns,
			ConnMaxLifetime: defaultConnMaxLifetime,
		},
		RateLimit: RateLimitConfig{
			Enable:            true,
			RequestsPerMinute: defaultRateLimitPerMinute,
		},
		Mail: MailConfig{
			Port:     defaultSMTPPort,
			FromName: defaultFromName,
		},
		AI: AIProvider{
			Type: defaultAIProvider,
		},
		Digest: DigestConfig{
			Interval:    defaultDigestInterval,
			FlowersPath: defaultFlowersPath,
		},
		Backup: BackupConfig{
			Interval: defaultBackupInterval,
		},
	}
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) error {
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	setString(&cfg.Env, raw.Env)

	db := &cfg.Database
	setString(&db.Driver, raw.Database.Driver)
	setString(&db.URL, raw.Database.DSN)
	setString(&db.URL, raw.Database.URL)
	setString(&db.URL, raw.DatabaseURL)
	setString(&db.Host, raw.Database.Host)
	if raw.Database.Port != 0 {
		db.Port = raw.Database.Port
	}
	setString(&db.User, raw.Database.Username)
	setString(&db.User, raw.Database.User)
	setString(&db.Password, raw.Database.Password)
	setString(&db.Name, raw.Database.DBName)
	setString(&db.Name, raw.Database.Name)
	setString(&db.SSLMode, raw.Database.SSLMode)
	setString(&db.Charset, raw.Database.Charset)
	if raw.Database.Params != nil {
		db.Params = copyStringMap(raw.Database.Params)
	}
	if raw.Database.StrictStartup != nil {
		db.StrictStartup = *raw.Database.StrictStartup
	}
	if raw.Database.MaxOpenConns != 0 {
		db.MaxOpenConns = raw.Database.MaxOpenConns
	}
	if raw.Database.MaxIdleConns != 0 {
		db.MaxIdleConns = raw.Database.MaxIdleConns
	}
	if err := setDuration(&db.ConnMaxLifetime, raw.Database.ConnMaxLifetime, "database.conn_max_lifetime"); err != nil {
		return err
	}

	setString(&cfg.Redis.URL, raw.RedisURL)

	switch {
	case raw.AllowedOrigins != nil:
		cfg.AllowedOrigins = normalizeOrigins(raw.AllowedOrigins)
	case raw.CORSAllowedOrigins != nil:
		cfg.AllowedOrigins = normalizeOrigins(raw.CORSAllowedOrigins)
	case strings.TrimSpace(raw.AllowedOrigin) != "":
		cfg.AllowedOrigins = normalizeOrigins(strings.Split(raw.AllowedOrigin, ","))
	}

	if raw.RateLimit.Enable != nil {
		cfg.RateLimit.Enable = *raw.RateLimit.Enable
	}
	if raw.RateLimit.RequestsPerMinute != 0 {
		cfg.RateLimit.RequestsPerMinute = raw.RateLimit.RequestsPerMinute
	}

	setString(&cfg.Paths.Logs, raw.Paths.Logs)
	setString(&cfg.Paths.Logs, raw.LogDir)
	setString(&cfg.Paths.Backups, raw.Paths.Backups)
	setString(&cfg.Paths.Backups, raw.BackupDir)
	setString(&cfg.Paths.Static, raw.Paths.Static)
	setString(&cfg.Paths.Static, raw.StaticDir)

	mail := &cfg.Mail
	setString(&mail.Host, raw.Mail.Host)
	if raw.Mail.Port != 0 {
		mail.Port = raw.Mail.Port
	}
	setString(&mail.User, raw.Mail.User)
	setString(&mail.Pass, raw.Mail.Pass)
	setString(&mail.From, raw.Mail.From)
	setString(&mail.FromName, raw.Mail.FromName)
	setString(&mail.ReplyTo, raw.Mail.ReplyTo)
	setString(&mail.ResendKey, raw.Mail.ResendKey)

	setString(&cfg.AI.Type, raw.AI.Provider)
	setString(&cfg.AI.APIKey, raw.AI.APIKey)
	setString(&cfg.AI.Model, raw.AI.Model)
	setString(&cfg.AI.Endpoint, raw.AI.Endpoint)

	if raw.Digest.Enable != nil {
		cfg.Digest.Enable = *raw.Digest.Enable
	}
	if err := setDuration(&cfg.Digest.Interval, raw.Digest.Interval, "digest.interval"); err != nil {
		return err
	}
	setString(&cfg.Digest.FlowersPath, raw.Digest.FlowersPath)
	setString(&cfg.Digest.SiteBase, raw.Digest.SiteBase)
	setString(&cfg.Digest.SupportURL, raw.Digest.SupportURL)

	if raw.Backup.Enable != nil {
		cfg.Backup.Enable = *raw.Backup.Enable
	}
	if err := setDuration(&cfg.Backup.Interval, raw.Backup.Interval, "backup.interval"); err != nil {
		return err
	}
	s3 := &cfg.Backup.S3
	setString(&s3.Bucket, raw.Backup.S3.Bucket)
	setString(&s3.Region, raw.Backup.S3.Region)
	setString(&s3.Endpoint, raw.Backup.S3.Endpoint)
	setString(&s3.AccessKeyID, raw.Backup.S3.AccessKeyID)
	setString(&s3.SecretAccessKey, raw.Backup.S3.SecretAccessKey)
	setString(&s3.Prefix, raw.Backup.S3.Prefix)
	if raw.Backup.S3.PathStyleAccess != nil {
		s3.PathStyleAccess = *raw.Backup.S3.PathStyleAccess
	}
	return nil
}

func setDuration(dst *time.Duration, raw, key string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	*dst = d
	return nil
}

func (c *AppConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", c.Port)
	}
	switch c.Database.Driver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q, expected postgres, mysql or sqlite", c.Database.Driver)
	}
	if c.Database.Driver != DriverSQLite && (c.Database.Port < 1 || c.Database.Port > 65535) {
		return fmt.Errorf("invalid database port %d, expected 1-65535", c.Database.Port)
	}
	if c.Mail.Port < 1 || c.Mail.Port > 65535 {
		return fmt.Errorf("invalid smtp port %d, expected 1-65535", c.Mail.Port)
	}
	if c.RateLimit.Enable && c.RateLimit.RequestsPerMinute < 1 {
		return fmt.Errorf("invalid rate limit %d, expected >= 1 request per minute", c.RateLimit.RequestsPerMinute)
	}
	if c.Digest.Interval <= 0 {
		return fmt.Errorf("invalid digest interval %s", c.Digest.Interval)
	}
	if c.Backup.Interval <= 0 {
		return fmt.Errorf("invalid backup interval %s", c.Backup.Interval)
	}
	return nil
}

func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, devEnv)
}

// Addr returns the listen address.
func (c *AppConfig) Addr() string { return fmt.Sprintf(":%d", c.Port) }

func (c *AppConfig) LogDir() string {
	if c == nil {
		return ResolveRuntimePath("", "logs")
	}
	return ResolveRuntimePath(c.Paths.Logs, "logs")
}

func (c *AppConfig) BackupDir() string {
	if c == nil {
		return ResolveRuntimePath("", "backups")
	}
	return ResolveRuntimePath(c.Paths.Backups, "backups")
}

// StaticDir returns the admin asset directory, or "" when none is configured.
func (c *AppConfig) StaticDir() string {
	if c == nil || c.Paths.Static == "" {
		return ""
	}
	return ResolveRuntimePath(c.Paths.Static, "")
}

// AllowsAnyOrigin reports whether CORS should echo every request origin.
func (c *AppConfig) AllowsAnyOrigin() bool {
	if c.IsDev() {
		return true
	}
	for _, origin := range c.AllowedOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}
