// Command digest sends the flower of the week once and exits. It is meant
// for an external scheduler such as a system cron or a CI workflow.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/edgeflowers/newsletter/internal/app"
	"github.com/edgeflowers/newsletter/internal/config"
	"github.com/edgeflowers/newsletter/internal/database"
	pkgcron "github.com/edgeflowers/newsletter/internal/pkg/cron"
	"github.com/edgeflowers/newsletter/internal/pkg/logging"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (default config.yml if present)")
	backupOnly := flag.Bool("backup", false, "Export subscribers to CSV instead of sending the digest")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallback, _ := zap.NewProduction()
		fallback.Fatal("failed to load config", zap.Error(err))
	}
	logger, err := logging.New(cfg.LogDir(), cfg.IsDev())
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("database unavailable", zap.Error(err))
	}
	defer database.Close(db)

	sched := pkgcron.New(logger)
	var job pkgcron.Job
	if *backupOnly {
		svc, err := app.NewBackupService(cfg, db, logger)
		if err != nil {
			logger.Fatal("backup misconfigured", zap.Error(err))
		}
		job = app.BackupJob(svc, cfg.Backup.Interval)
	} else {
		job = app.DigestJob(app.NewDigestService(cfg, db, logger), cfg.Digest.Interval)
	}
	if err := sched.Register(job); err != nil {
		logger.Fatal("register job", zap.Error(err))
	}
	if err := sched.RunNow(ctx, job.Name); err != nil {
		logger.Fatal("job failed", zap.String("job", job.Name), zap.Error(err))
	}
}
