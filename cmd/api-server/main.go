package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/cabinetmed/scheduling/internal/api"
	"github.com/cabinetmed/scheduling/internal/appointment"
	"github.com/cabinetmed/scheduling/internal/config"
	"github.com/cabinetmed/scheduling/internal/db"
	"github.com/cabinetmed/scheduling/internal/directory"
	"github.com/cabinetmed/scheduling/internal/notification"
	"github.com/cabinetmed/scheduling/internal/observability/metrics"
	redisclient "github.com/cabinetmed/scheduling/internal/redis"
	"github.com/cabinetmed/scheduling/internal/schedule"
)

const version = "1.0.0"

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "api-server").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	if cfg.Env == "dev" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection failed")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	schedMetrics := metrics.NewSchedulerMetrics(registry)

	dirRepo := directory.NewPgRepository(pgPool)
	apptRepo := appointment.NewPgRepository(pgPool)
	defRepo := schedule.NewPgRepository(pgPool)
	notifRepo := notification.NewPgRepository(pgPool)

	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
	notifier := notification.NewScheduler(
		notifRepo,
		notification.NewLogDispatcher(log),
		cfg.ReminderLeadTime,
		cfg.ClaimTTL,
		schedMetrics,
		log,
	)

	apptSvc := appointment.NewService(apptRepo, locker, dirRepo, notifier, schedMetrics, log)
	schedSvc := schedule.NewService(defRepo, apptRepo, dirRepo, log)

	router := api.NewRouter(api.RouterConfig{
		Appointments:  apptSvc,
		Schedule:      schedSvc,
		Directory:     dirRepo,
		Notifications: notifRepo,
		PgPool:        pgPool,
		Redis:         rdb,
		Registry:      registry,
		Log:           log,
		Env:           cfg.Env,
		Version:       version,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	case <-rootCtx.Done():
	}

	log.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
