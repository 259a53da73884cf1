package backup

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/edgeflowers/newsletter/internal/config"
	"github.com/edgeflowers/newsletter/internal/models"
)

type staticSource struct {
	subs []models.SubscriberModel
	err  error
}

func (s staticSource) List(context.Context) ([]models.SubscriberModel, error) { return s.subs, s.err }

type recordingUploader struct {
	key     string
	payload []byte
	err     error
}

func (u *recordingUploader) Upload(_ context.Context, key string, payload []byte, _ string) error {
	u.key = key
	u.payload = payload
	return u.err
}

var fixedTime = time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)

func sampleSubs() []models.SubscriberModel {
	return []models.SubscriberModel{
		{ID: 2, Email: "b@example.com", CreatedAt: fixedTime.Add(time.Hour)},
		{ID: 1, Email: "a,quoted@example.com", CreatedAt: fixedTime},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleSubs()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "id,email,created_at\n" +
		"2,b@example.com,2026-05-04T04:02:01Z\n" +
		"1,\"a,quoted@example.com\",2026-05-04T03:02:01Z\n"
	if buf.String() != want {
		t.Fatalf("unexpected csv:\n%s", buf.String())
	}
}

func TestRun_WritesAndUploads(t *testing.T) {
	dir := t.TempDir()
	up := &recordingUploader{}
	svc := NewService(staticSource{subs: sampleSubs()}, dir, up, "/newsletter/", nil)
	svc.now = func() time.Time { return fixedTime }

	res, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	wantPath := filepath.Join(dir, "subscribers-20260504-030201.csv")
	if res.Path != wantPath || res.Rows != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	written, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if up.key != "newsletter/subscribers-20260504-030201.csv" || res.ObjectKey != up.key {
		t.Fatalf("unexpected object key %q", up.key)
	}
	if !bytes.Equal(written, up.payload) {
		t.Fatalf("uploaded payload differs from local file")
	}
}

func TestRun_Errors(t *testing.T) {
	t.Run("source failure", func(t *testing.T) {
		svc := NewService(staticSource{err: errors.New("db down")}, t.TempDir(), nil, "", nil)
		if _, err := svc.Run(context.Background()); err == nil {
			t.Fatalf("expected error")
		}
	})
	t.Run("upload failure keeps local file", func(t *testing.T) {
		dir := t.TempDir()
		svc := NewService(staticSource{}, dir, &recordingUploader{err: errors.New("denied")}, "", nil)
		res, err := svc.Run(context.Background())
		if err == nil {
			t.Fatalf("expected upload error")
		}
		if res == nil {
			t.Fatalf("expected local result")
		}
		if _, statErr := os.Stat(res.Path); statErr != nil {
			t.Fatalf("local backup missing: %v", statErr)
		}
	})
}

func TestNewS3Uploader(t *testing.T) {
	if u, err := NewS3Uploader(config.S3Options{}); u != nil || err != nil {
		t.Fatalf("expected nil uploader without bucket, got %v, %v", u, err)
	}
	if _, err := NewS3Uploader(config.S3Options{Bucket: "b"}); err == nil {
		t.Fatalf("expected error for incomplete config")
	}
}

func TestS3Uploader_PutsObject(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		auth   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		method, path, auth = r.Method, r.URL.Path, r.Header.Get("Authorization")
		mu.Unlock()
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	up, err := NewS3Uploader(config.S3Options{
		Bucket:          "letters",
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
	})
	if err != nil {
		t.Fatalf("NewS3Uploader: %v", err)
	}
	if err := up.Upload(context.Background(), "backups/subscribers.csv", []byte("id,email,created_at\n"), contentType); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if method != http.MethodPut || path != "/letters/backups/subscribers.csv" {
		t.Fatalf("unexpected request %s %s", method, path)
	}
	if !strings.HasPrefix(auth, "AWS4-HMAC-SHA256") {
		t.Fatalf("request was not signed: %q", auth)
	}
}
