package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frbb/loan-engine/internal/config"
	"github.com/frbb/loan-engine/internal/logger"
	"github.com/frbb/loan-engine/internal/service"
	"github.com/frbb/loan-engine/internal/storage"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const auditTimeout = 10 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Logging.Level, cfg.Logging.Format, "loan-engine-scheduler")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	if cfg.Storage.Driver == config.StorageDriverMemory {
		zlog.Warn("memory storage is process local; the audit will only see an empty directory")
	}

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	stores, err := storage.Open(startCtx, cfg, zlog)
	startCancel()
	if err != nil {
		zlog.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer stores.Close()

	audit := service.NewAuditService(stores.Loans, zlog)

	// Initialize cron scheduler
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(cfg.GetSchedulerLocation()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	// Schedule tasks
	if err := setupCronJobs(c, cfg, audit, zlog); err != nil {
		zlog.Fatal("failed to schedule jobs", zap.Error(err))
	}

	// Start the scheduler
	c.Start()
	zlog.Info("scheduler started", zap.String("audit_cron", cfg.Scheduler.AuditCron))

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down scheduler")
	<-c.Stop().Done()
	zlog.Info("scheduler stopped")
}

func setupCronJobs(c *cron.Cron, cfg *config.Config, audit *service.AuditService, zlog *zap.Logger) error {
	_, err := c.AddFunc(cfg.Scheduler.AuditCron, func() {
		runAudit(audit, zlog)
	})
	return err
}

func runAudit(audit *service.AuditService, zlog *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
	defer cancel()
	ctx = logger.WithRequestID(ctx, uuid.NewString())

	if _, err := audit.Run(ctx); err != nil {
		logger.FromContext(ctx, zlog).Error("loan audit failed", zap.Error(err))
	}
}
