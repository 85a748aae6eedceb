package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/23f3000163/healnest/internal/api"
	"github.com/23f3000163/healnest/internal/appointment"
	"github.com/23f3000163/healnest/internal/clock"
	"github.com/23f3000163/healnest/internal/config"
	"github.com/23f3000163/healnest/internal/db"
	"github.com/23f3000163/healnest/internal/notify"
	"github.com/23f3000163/healnest/internal/observability/metrics"
	redisclient "github.com/23f3000163/healnest/internal/redis"
	"github.com/23f3000163/healnest/internal/schedule"
	"github.com/23f3000163/healnest/pkg/logging"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("config load error", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("api-server starting", "env", cfg.Env, "http_port", cfg.HTTPPort, "version", version)

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
	logger.Info("connected to Redis")

	clk := clock.System()

	apptRepo := appointment.NewPgRepository(pgPool)
	scheduleStore := schedule.NewPgStore(pgPool)
	scheduleSvc := schedule.NewService(scheduleStore, apptRepo, clk, cfg.SlotDuration, cfg.AvailabilityDays)

	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
	bookingMetrics := metrics.NewBookingMetrics(nil)
	emailSender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger)

	opts := []appointment.Option{
		appointment.WithMetrics(bookingMetrics),
		appointment.WithLogger(logger),
	}
	if emailSender != nil {
		opts = append(opts, appointment.WithEmail(emailSender))
	}
	apptSvc := appointment.NewService(apptRepo, scheduleSvc, locker, clk, cfg.BookingDays, opts...)

	router := api.NewRouter(api.RouterConfig{
		Appointments:  apptSvc,
		Schedule:      scheduleSvc,
		Notifications: notify.NewPgStore(pgPool),
		PgPool:        pgPool,
		Redis:         rdb,
		Logger:        logger,
		Env:           cfg.Env,
		Version:       version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("http server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}

	logger.Info("api-server stopped")
}
