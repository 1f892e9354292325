package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cabinetmed/scheduling/internal/appointment"
	"github.com/cabinetmed/scheduling/internal/directory"
	"github.com/cabinetmed/scheduling/internal/notification"
	"github.com/cabinetmed/scheduling/internal/schedule"
)

type RouterConfig struct {
	Appointments  *appointment.Service
	Schedule      *schedule.Service
	Directory     directory.Repository
	Notifications notification.Repository

	PgPool   *pgxpool.Pool
	Redis    *redis.Client
	Registry *prometheus.Registry

	Log     zerolog.Logger
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	if cfg.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	r.Get("/providers", listProvidersHandler(cfg.Directory))
	r.Get("/providers/{id}", getProviderHandler(cfg.Directory))
	r.Get("/providers/{id}/definitions", listDefinitionsHandler(cfg.Schedule))
	r.Post("/providers/{id}/definitions", createDefinitionHandler(cfg.Schedule))
	r.Put("/definitions/{id}", updateDefinitionHandler(cfg.Schedule))
	r.Delete("/definitions/{id}", deleteDefinitionHandler(cfg.Schedule))

	r.Get("/availability", availabilityHandler(cfg.Schedule))

	r.Post("/appointments", bookAppointmentHandler(cfg.Appointments))
	r.Get("/appointments", listAppointmentsHandler(cfg.Appointments))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Appointments))
	r.Post("/appointments/{id}/confirm", confirmAppointmentHandler(cfg.Appointments))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Appointments))
	r.Post("/appointments/{id}/move", moveAppointmentHandler(cfg.Appointments))

	r.Get("/recipients/{id}/notifications", listNotificationsHandler(cfg.Notifications))

	return r
}
