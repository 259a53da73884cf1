package config

import (
	neturl "net/url"
	"strings"
)

func normalizeAppConfig(cfg *AppConfig) {
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.Database = normalizeDatabaseConfig(cfg.Database)
	cfg.Redis.URL = strings.TrimSpace(cfg.Redis.URL)
	cfg.AllowedOrigins = normalizeOrigins(cfg.AllowedOrigins)
	cfg.Paths = normalizeRuntimePaths(cfg.Paths)
	cfg.AI.Type = normalizeProviderType(cfg.AI.Type)
	cfg.Digest.SiteBase = strings.TrimRight(strings.TrimSpace(cfg.Digest.SiteBase), "/")
	if strings.TrimSpace(cfg.Mail.FromName) == "" {
		cfg.Mail.FromName = defaultFromName
	}
}

func normalizeDatabaseConfig(cfg DatabaseRuntimeConfig) DatabaseRuntimeConfig {
	cfg.Driver = strings.ToLower(strings.TrimSpace(cfg.Driver))
	cfg.URL = strings.TrimSpace(cfg.URL)
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.User = strings.TrimSpace(cfg.User)
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.SSLMode = strings.TrimSpace(cfg.SSLMode)
	cfg.Charset = strings.TrimSpace(cfg.Charset)

	if driver := driverFromURL(cfg.URL); driver != "" {
		cfg.Driver = driver
	}
	switch cfg.Driver {
	case "postgresql", "pg", "pgx":
		cfg.Driver = DriverPostgres
	case "sqlite3":
		cfg.Driver = DriverSQLite
	case "":
		cfg.Driver = defaultDBDriver
	}

	if cfg.Host == "" {
		cfg.Host = defaultDBHost
	}
	if cfg.Name == "" {
		cfg.Name = defaultDBName
	}
	switch cfg.Driver {
	case DriverPostgres:
		if cfg.Port == 0 {
			cfg.Port = defaultPostgresPort
		}
		if cfg.User == "" {
			cfg.User = defaultPostgresUser
		}
		if cfg.SSLMode == "" {
			cfg.SSLMode = defaultPostgresSSLMode
		}
	case DriverMySQL:
		if cfg.Port == 0 {
			cfg.Port = defaultMySQLPort
		}
		if cfg.User == "" {
			cfg.User = defaultMySQLUser
		}
		if cfg.Charset == "" {
			cfg.Charset = defaultMySQLCharset
		}
	}
	if cfg.MaxIdleConns > cfg.MaxOpenConns && cfg.MaxOpenConns > 0 {
		cfg.MaxIdleConns = cfg.MaxOpenConns
	}
	if cfg.Params != nil {
		cfg.Params = copyStringMap(cfg.Params)
	}
	return cfg
}

// driverFromURL infers the driver from a connection URL scheme.
func driverFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := neturl.Parse(raw)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		return DriverPostgres
	case "mysql":
		return DriverMySQL
	case "sqlite", "file":
		return DriverSQLite
	}
	return ""
}

func normalizeProviderType(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = strings.ReplaceAll(t, "_", "-")
	if t == "" {
		return defaultAIProvider
	}
	return t
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		trimmed := strings.TrimRight(strings.TrimSpace(origin), "/")
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(env string) string {
	trimmed := strings.ToLower(strings.TrimSpace(env))
	switch trimmed {
	case "":
		return defaultEnv
	case "dev":
		return devEnv
	case "prod":
		return defaultEnv
	}
	return trimmed
}

func normalizeRuntimePaths(paths RuntimePathsConfig) RuntimePathsConfig {
	paths.Logs = strings.TrimSpace(paths.Logs)
	paths.Backups = strings.TrimSpace(paths.Backups)
	paths.Static = strings.TrimSpace(paths.Static)
	return paths
}

func copyStringMap(input map[string]string) map[string]string {
	if input == nil {
		return nil
	}
	out := make(map[string]string, len(input))
	for key, value := range input {
		k := strings.TrimSpace(key)
		v := strings.TrimSpace(value)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	return out
}
