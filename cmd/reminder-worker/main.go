package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/cabinetmed/scheduling/internal/config"
	"github.com/cabinetmed/scheduling/internal/db"
	"github.com/cabinetmed/scheduling/internal/notification"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "reminder-worker").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	if cfg.Env == "dev" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Info().
		Str("env", cfg.Env).
		Dur("sweep_interval", cfg.SweepInterval).
		Dur("lead_time", cfg.ReminderLeadTime).
		Msg("reminder-worker starting up")

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

	notifRepo := notification.NewPgRepository(pgPool)
	sched := notification.NewScheduler(
		notifRepo,
		notification.NewLogDispatcher(log),
		cfg.ReminderLeadTime,
		cfg.ClaimTTL,
		nil,
		log,
	)

	// Run once at startup
	sweepOnce(sched, log)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			sweepOnce(sched, log)
		}
	}
}

// sweepOnce runs on a detached context so a shutdown signal lets the
// in-flight batch finish instead of abandoning claimed rows.
func sweepOnce(sched *notification.Scheduler, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	start := time.Now()
	sent, err := sched.Sweep(runCtx)
	if err != nil {
		log.Error().Err(err).Msg("reminder sweep failed")
		return
	}
	log.Info().Int("sent", sent).Dur("took", time.Since(start)).Msg("reminder sweep complete")
}
