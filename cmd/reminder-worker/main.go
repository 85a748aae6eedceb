package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/23f3000163/healnest/internal/appointment"
	"github.com/23f3000163/healnest/internal/clock"
	"github.com/23f3000163/healnest/internal/config"
	"github.com/23f3000163/healnest/internal/db"
	redisclient "github.com/23f3000163/healnest/internal/redis"
	"github.com/23f3000163/healnest/internal/schedule"
	"github.com/23f3000163/healnest/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("config load error", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("reminder-worker starting", "env", cfg.Env, "interval", cfg.WorkerInterval.String(), "lead", cfg.ReminderLead.String())

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Error("postgres connection error", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Error("redis connection error", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("error closing redis", "error", err)
		}
	}()

	clk := clock.System()
	repo := appointment.NewPgRepository(pgPool)
	store := schedule.NewPgStore(pgPool)
	grid := schedule.NewService(store, repo, clk, cfg.SlotDuration, cfg.AvailabilityDays)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
	svc := appointment.NewService(repo, grid, locker, clk, cfg.BookingDays, appointment.WithLogger(logger))

	// Run once at startup
	runOnce(rootCtx, svc, cfg.ReminderLead, logger)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, cfg.ReminderLead, logger)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service, lead time.Duration, logger *logging.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	sent, err := svc.SendReminders(runCtx, lead)
	if err != nil {
		logger.Error("reminder run error", "error", err)
		return
	}
	logger.Info("reminder run complete", "sent", sent, "took", time.Since(start).String())
}
