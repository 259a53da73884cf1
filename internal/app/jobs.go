package app

import (
	"context"
	"fmt"
	"time"

	"github.com/edgeflowers/newsletter/internal/config"
	"github.com/edgeflowers/newsletter/internal/modules/backup"
	"github.com/edgeflowers/newsletter/internal/modules/digest"
	"github.com/edgeflowers/newsletter/internal/modules/option"
	"github.com/edgeflowers/newsletter/internal/modules/subscriber"
	pkgcron "github.com/edgeflowers/newsletter/internal/pkg/cron"
	"github.com/edgeflowers/newsletter/internal/pkg/mail"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewDigestService wires the weekly digest to the store, mailer and AI
// provider described by cfg.
func NewDigestService(cfg *config.AppConfig, db *gorm.DB, logger *zap.Logger) *digest.Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	var writer digest.Copywriter
	if cfg.AI.APIKey != "" {
		w, err := digest.NewAICopywriter(cfg.AI)
		if err != nil {
			logger.Warn("ai copy disabled, digest uses fallback text", zap.Error(err))
		} else {
			writer = w
		}
	}
	digestCfg := cfg.Digest
	digestCfg.FlowersPath = config.ResolveRuntimePath(digestCfg.FlowersPath, "")
	return digest.NewService(digest.Options{
		Config:     digestCfg,
		Mail:       cfg.Mail,
		Recipients: subscriber.NewGormStore(db),
		State:      option.NewStore(db),
		Sender:     mail.New(mail.FromAppConfig(cfg.Mail)),
		Writer:     writer,
		Logger:     logger,
	})
}

// NewBackupService wires the CSV export and optional S3 upload.
func NewBackupService(cfg *config.AppConfig, db *gorm.DB, logger *zap.Logger) (*backup.Service, error) {
	uploader, err := backup.NewS3Uploader(cfg.Backup.S3)
	if err != nil {
		return nil, err
	}
	var up backup.Uploader
	if uploader != nil {
		up = uploader
	}
	return backup.NewService(subscriber.NewGormStore(db), cfg.BackupDir(), up, cfg.Backup.S3.Prefix, logger), nil
}

// DigestJob wraps svc as a scheduler job running every interval.
func DigestJob(svc *digest.Service, interval time.Duration) pkgcron.Job {
	return pkgcron.Job{
		Name:        digest.JobName,
		Description: "Send the flower of the week to every subscriber",
		Interval:    interval,
		Fn: func(ctx context.Context) error {
			_, err := svc.Run(ctx)
			return err
		},
	}
}

// BackupJob wraps svc as a scheduler job running every interval.
func BackupJob(svc *backup.Service, interval time.Duration) pkgcron.Job {
	return pkgcron.Job{
		Name:        backup.JobName,
		Description: "Export subscribers to CSV",
		Interval:    interval,
		Fn: func(ctx context.Context) error {
			_, err := svc.Run(ctx)
			return err
		},
	}
}

func (a *App) registerJobs() error {
	if a.cfg.Digest.Enable {
		svc := NewDigestService(a.cfg, a.db, a.logger)
		if err := a.sched.Register(DigestJob(svc, a.cfg.Digest.Interval)); err != nil {
			return fmt.Errorf("register digest job: %w", err)
		}
	}

	if a.cfg.Backup.Enable {
		svc, err := NewBackupService(a.cfg, a.db, a.logger)
		if err != nil {
			return fmt.Errorf("backup: %w", err)
		}
		if err := a.sched.Register(BackupJob(svc, a.cfg.Backup.Interval)); err != nil {
			return fmt.Errorf("register backup job: %w", err)
		}
	}
	return nil
}
