package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/edgeflowers/newsletter/internal/config"
	"github.com/edgeflowers/newsletter/internal/database/databasetest"
	"github.com/edgeflowers/newsletter/internal/modules/backup"
	"github.com/edgeflowers/newsletter/internal/modules/digest"
	pkgcron "github.com/edgeflowers/newsletter/internal/pkg/cron"
)

func newTestApp(t *testing.T, mutate func(*config.AppConfig)) *App {
	t.Helper()
	cfg := databasetest.Config(t)
	cfg.Port = 3000
	cfg.AllowedOrigins = []string{"https://edgeflowers.netlify.app"}
	cfg.RateLimit = config.RateLimitConfig{Enable: true, RequestsPerMinute: 100}
	if mutate != nil {
		mutate(cfg)
	}
	a, err := New(nil, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Shutdown)
	return a
}

func serve(a *App, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)
	return rec
}

func TestApp_SubscribeFlow(t *testing.T) {
	a := newTestApp(t, nil)

	rec := serve(a, http.MethodPost, "/subscribe", `{"email":"a@example.com"}`, nil)
	if rec.Code != http.StatusOK || rec.Body.String() != `{"message":"Thanks for subscribing!"}` {
		t.Fatalf("subscribe: %d %s", rec.Code, rec.Body.String())
	}
	rec = serve(a, http.MethodPost, "/subscribe", `{"email":"a@example.com"}`, nil)
	if rec.Code != http.StatusConflict || rec.Body.String() != `{"message":"You're already subscribed!"}` {
		t.Fatalf("duplicate: %d %s", rec.Code, rec.Body.String())
	}
	rec = serve(a, http.MethodPost, "/subscribe", `{}`, nil)
	if rec.Code != http.StatusBadRequest || rec.Body.String() != `{"message":"Email is required"}` {
		t.Fatalf("missing email: %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(a, http.MethodGet, "/subscribers", "", nil)
	var subs []struct {
		ID        uint   `json:"id"`
		Email     string `json:"email"`
		CreatedAt string `json:"created_at"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &subs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(subs) != 1 || subs[0].Email != "a@example.com" || subs[0].ID == 0 || subs[0].CreatedAt == "" {
		t.Fatalf("unexpected subscribers %+v", subs)
	}
}

func TestApp_ConcurrentSubscribe(t *testing.T) {
	a := newTestApp(t, nil)

	const n = 12
	codes := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- serve(a, http.MethodPost, "/subscribe", `{"email":"x@example.com"}`, nil).Code
		}()
	}
	wg.Wait()
	close(codes)

	counts := map[int]int{}
	for c := range codes {
		counts[c]++
	}
	if counts[http.StatusOK] != 1 || counts[http.StatusConflict] != n-1 {
		t.Fatalf("unexpected status distribution %v", counts)
	}
}

func TestApp_NotFoundAndMethodNotAllowed(t *testing.T) {
	a := newTestApp(t, nil)

	rec := serve(a, http.MethodGet, "/nope", "", nil)
	if rec.Code != http.StatusNotFound || rec.Body.String() != `{"message":"Not Found"}` {
		t.Fatalf("unexpected 404 %d %s", rec.Code, rec.Body.String())
	}
	rec = serve(a, http.MethodDelete, "/subscribers", "", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestApp_CORS(t *testing.T) {
	a := newTestApp(t, nil)

	rec := serve(a, http.MethodOptions, "/subscribe", "", map[string]string{
		"Origin":                        "https://edgeflowers.netlify.app",
		"Access-Control-Request-Method": "POST",
	})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://edgeflowers.netlify.app" {
		t.Fatalf("allowed origin not echoed, got %q (status %d)", got, rec.Code)
	}

	rec = serve(a, http.MethodGet, "/subscribers", "", map[string]string{"Origin": "https://evil.example.com"})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("foreign origin must not be allowed, got %q", got)
	}
}

func TestApp_RateLimit(t *testing.T) {
	a := newTestApp(t, func(cfg *config.AppConfig) {
		cfg.RateLimit.RequestsPerMinute = 2
	})
	for i := 0; i < 2; i++ {
		serve(a, http.MethodPost, "/subscribe", `{"email":"r@example.com"}`, nil)
	}
	rec := serve(a, http.MethodPost, "/subscribe", `{"email":"r@example.com"}`, nil)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After, got %d", rec.Code)
	}
	if rec := serve(a, http.MethodGet, "/subscribers", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("listing must not be rate limited, got %d", rec.Code)
	}
}

func TestApp_StaticAdminPage(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "admin.html"), []byte("<h1>admin</h1>"), 0o644); err != nil {
		t.Fatalf("write admin page: %v", err)
	}
	a := newTestApp(t, func(cfg *config.AppConfig) { cfg.Paths.Static = dir })

	rec := serve(a, http.MethodGet, "/", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<h1>admin</h1>") {
		t.Fatalf("unexpected admin page %d %s", rec.Code, rec.Body.String())
	}
	rec = serve(a, http.MethodGet, "/../../etc/passwd", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("path traversal must 404, got %d", rec.Code)
	}
}

func TestApp_HealthAndJobs(t *testing.T) {
	a := newTestApp(t, func(cfg *config.AppConfig) {
		cfg.Digest = config.DigestConfig{Enable: true, Interval: 1 << 40, FlowersPath: "flowers.json"}
		cfg.Backup = config.BackupConfig{Enable: true, Interval: 1 << 40}
		cfg.Paths.Backups = t.TempDir()
	})

	rec := serve(a, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != `{"status":"ok","database":true}` {
		t.Fatalf("unexpected health %d %s", rec.Code, rec.Body.String())
	}

	names := map[string]bool{}
	for _, job := range a.Scheduler().List() {
		names[job.Name] = true
	}
	if !names[digest.JobName] || !names[backup.JobName] {
		t.Fatalf("expected digest and backup jobs, got %v", names)
	}
}

func TestApp_StartsWithStoreDown(t *testing.T) {
	cfg := databasetest.Config(t)
	cfg.Database = config.DatabaseRuntimeConfig{
		Driver:       config.DriverPostgres,
		Host:         "127.0.0.1",
		Port:         1,
		User:         "nobody",
		Name:         "nothing",
		SSLMode:      "disable",
		MaxOpenConns: 2,
		MaxIdleConns: 1,
	}
	a, err := New(nil, cfg)
	if err != nil {
		t.Fatalf("lenient startup should not fail: %v", err)
	}
	defer a.Shutdown()

	rec := serve(a, http.MethodPost, "/subscribe", `{"email":"a@example.com"}`, nil)
	if rec.Code != http.StatusInternalServerError || rec.Body.String() != `{"message":"Database error"}` {
		t.Fatalf("unexpected outage response %d %s", rec.Code, rec.Body.String())
	}
	rec = serve(a, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected degraded health, got %d", rec.Code)
	}

	cfg.Database.StrictStartup = true
	if _, err := New(nil, cfg); err == nil {
		t.Fatalf("strict startup should fail")
	}
}

func TestBackupJob_RunNowCompletesBeforeReturning(t *testing.T) {
	cfg := databasetest.Config(t)
	cfg.Paths.Backups = t.TempDir()
	db := databasetest.Open(t)

	svc, err := NewBackupService(cfg, db, nil)
	if err != nil {
		t.Fatalf("NewBackupService: %v", err)
	}
	sched := pkgcron.New(nil)
	if err := sched.Register(BackupJob(svc, time.Hour)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := sched.RunNow(context.Background(), backup.JobName); err != nil {
		t.Fatalf("RunNow: %v", err)
	}

	info, err := sched.Get(backup.JobName)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if info.Status != pkgcron.StatusFulfill || info.LastRunAt == nil {
		t.Fatalf("expected finished job, got %+v", info)
	}
	files, _ := filepath.Glob(filepath.Join(cfg.Paths.Backups, "subscribers-*.csv"))
	if len(files) != 1 {
		t.Fatalf("expected one export, got %v", files)
	}
}
