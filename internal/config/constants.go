package config

import "time"

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"

	defaultPort               = 3000
	defaultEnv                = "production"
	devEnv                    = "development"
	defaultAllowedOrigin      = "https://edgeflowers.netlify.app"
	defaultDBDriver           = DriverPostgres
	defaultDBHost             = "localhost"
	defaultPostgresPort       = 5432
	defaultMySQLPort          = 3306
	defaultPostgresUser       = "postgres"
	defaultMySQLUser          = "root"
	defaultDBName             = "edgeflowers"
	defaultPostgresSSLMode    = "disable"
	defaultMySQLCharset       = "utf8mb4"
	defaultMaxOpenConns       = 10
	defaultMaxIdleConns       = 5
	defaultConnMaxLifetime    = 30 * time.Minute
	defaultRateLimitPerMinute = 30
	defaultSMTPPort           = 465
	defaultFromName           = "Edge Flower Gallery"
	defaultAIProvider         = "openai"
	defaultDigestInterval     = 7 * 24 * time.Hour
	defaultFlowersPath        = "flowers.json"
	defaultBackupInterval     = 24 * time.Hour
)
