package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != defaultPort {
		t.Fatalf("expected port %d, got %d", defaultPort, cfg.Port)
	}
	if cfg.Database.Driver != DriverPostgres || cfg.Database.Port != defaultPostgresPort {
		t.Fatalf("unexpected database defaults: %+v", cfg.Database)
	}
	if got := cfg.Database.DSNValue(); got != "postgres://postgres@localhost:5432/edgeflowers?sslmode=disable" {
		t.Fatalf("unexpected dsn %q", got)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != defaultAllowedOrigin {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
	if cfg.AllowsAnyOrigin() {
		t.Fatalf("production defaults must not allow any origin")
	}
	if cfg.Database.StrictStartup {
		t.Fatalf("startup should be lenient by default")
	}
	if cfg.Digest.Interval != 7*24*time.Hour {
		t.Fatalf("unexpected digest interval %s", cfg.Digest.Interval)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
port: 8080
database:
  driver: mysql
  host: db
  user: u
  password: p
  name: letters
allowed_origins:
  - https://a.example.com
`)
	t.Setenv("PORT", "9090")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("ALLOWED_ORIGIN", "https://x.example.com, https://y.example.com/")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9090 {
		t.Fatalf("expected env port to win, got %d", cfg.Port)
	}
	dsn := cfg.Database.DSNValue()
	for _, want := range []string{"u:secret@tcp(db:3306)/letters", "charset=utf8mb4", "parseTime=true"} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("dsn %q missing %q", dsn, want)
		}
	}
	if strings.Contains(cfg.Database.Redacted(), "secret") {
		t.Fatalf("redacted dsn leaks password: %q", cfg.Database.Redacted())
	}
	want := []string{"https://x.example.com", "https://y.example.com"}
	if len(cfg.AllowedOrigins) != len(want) {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
	for i := range want {
		if cfg.AllowedOrigins[i] != want[i] {
			t.Fatalf("origin %d: expected %q, got %q", i, want[i], cfg.AllowedOrigins[i])
		}
	}
}

func TestLoad_DatabaseURLSelectsDriver(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantDriver string
		wantDSN    string
	}{
		{
			name:       "postgres url passes through",
			url:        "postgresql://a:b@h:6543/x?sslmode=require",
			wantDriver: DriverPostgres,
			wantDSN:    "postgresql://a:b@h:6543/x?sslmode=require",
		},
		{
			name:       "mysql url is converted",
			url:        "mysql://a:b@h/x",
			wantDriver: DriverMySQL,
			wantDSN:    "a:b@tcp(h:3306)/x",
		},
		{
			name:       "sqlite url",
			url:        "sqlite://data/news.db",
			wantDriver: DriverSQLite,
			wantDSN:    "data/news.db?",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", tt.url)
			cfg, err := Load(writeConfig(t, ""))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.Database.Driver != tt.wantDriver {
				t.Fatalf("expected driver %q, got %q", tt.wantDriver, cfg.Database.Driver)
			}
			if dsn := cfg.Database.DSNValue(); !strings.HasPrefix(dsn, tt.wantDSN) {
				t.Fatalf("expected dsn prefix %q, got %q", tt.wantDSN, dsn)
			}
		})
	}
}

func TestLoad_SQLiteName(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_NAME", "local")
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if dsn := cfg.Database.DSNValue(); !strings.HasPrefix(dsn, "local.db?_pragma=") {
		t.Fatalf("unexpected sqlite dsn %q", dsn)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Run("unknown yaml field", func(t *testing.T) {
		if _, err := Load(writeConfig(t, "nope: 1\n")); err == nil {
			t.Fatalf("expected error for unknown field")
		}
	})
	t.Run("missing explicit file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "absent.yml")); err == nil {
			t.Fatalf("expected error for missing file")
		}
	})
	t.Run("unsupported driver", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "oracle")
		if _, err := Load(writeConfig(t, "")); err == nil {
			t.Fatalf("expected error for unsupported driver")
		}
	})
	t.Run("bad duration", func(t *testing.T) {
		if _, err := Load(writeConfig(t, "digest:\n  interval: weekly\n")); err == nil {
			t.Fatalf("expected error for bad duration")
		}
	})
	t.Run("port out of range", func(t *testing.T) {
		if _, err := Load(writeConfig(t, "port: 70000\n")); err == nil {
			t.Fatalf("expected error for port")
		}
	})
}

func TestAllowsAnyOrigin(t *testing.T) {
	cfg := defaultAppConfig()
	cfg.AllowedOrigins = []string{"*"}
	if !cfg.AllowsAnyOrigin() {
		t.Fatalf("wildcard should allow any origin")
	}
	cfg = defaultAppConfig()
	cfg.Env = devEnv
	if !cfg.AllowsAnyOrigin() {
		t.Fatalf("development should allow any origin")
	}
}
