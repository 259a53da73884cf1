package backup

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/edgeflowers/newsletter/internal/models"
	"go.uber.org/zap"
)

const (
	JobName     = "subscriber-backup"
	contentType = "text/csv"
)

var csvHeader = []string{"id", "email", "created_at"}

// Source lists subscribers newest first.
type Source interface {
	List(ctx context.Context) ([]models.SubscriberModel, error)
}

// Uploader stores a finished export remotely.
type Uploader interface {
	Upload(ctx context.Context, key string, payload []byte, contentType string) error
}

// Result describes one export.
type Result struct {
	Path      string
	Rows      int
	ObjectKey string
}

type Service struct {
	source   Source
	dir      string
	uploader Uploader
	prefix   string
	logger   *zap.Logger
	now      func() time.Time
}

// NewService writes exports under dir. A nil uploader keeps them local.
func NewService(source Source, dir string, uploader Uploader, prefix string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		source:   source,
		dir:      dir,
		uploader: uploader,
		prefix:   prefix,
		logger:   logger.Named("BackupService"),
		now:      time.Now,
	}
}

// WriteCSV encodes subs as id,email,created_at rows under a header line.
func WriteCSV(w io.Writer, subs []models.SubscriberModel) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, sub := range subs {
		row := []string{
			strconv.FormatUint(uint64(sub.ID), 10),
			sub.Email,
			sub.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Run exports every subscriber to a timestamped CSV file and uploads it
// when an uploader is configured.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	subs, err := s.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, subs); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}
	filename := fmt.Sprintf("subscribers-%s.csv", s.now().UTC().Format("20060102-150405"))
	path := filepath.Join(s.dir, filename)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return nil, fmt.Errorf("write backup: %w", err)
	}
	result := &Result{Path: path, Rows: len(subs)}
	s.logger.Info("subscriber backup written", zap.String("path", path), zap.Int("rows", len(subs)))

	if s.uploader == nil {
		return result, nil
	}
	key := objectKey(s.prefix, filename)
	if err := s.uploader.Upload(ctx, key, buf.Bytes(), contentType); err != nil {
		return result, fmt.Errorf("upload backup: %w", err)
	}
	result.ObjectKey = key
	s.logger.Info("subscriber backup uploaded", zap.String("key", key))
	return result, nil
}
