package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/23f3000163/healnest/internal/appointment"
	"github.com/23f3000163/healnest/internal/notify"
	"github.com/23f3000163/healnest/internal/schedule"
	"github.com/23f3000163/healnest/pkg/logging"
)

type RouterConfig struct {
	Appointments  *appointment.Service
	Schedule      *schedule.Service
	Notifications notify.Store
	PgPool        *pgxpool.Pool
	Redis         *redis.Client
	Logger        *logging.Logger
	Env           string
	Version       string
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health and metrics stay outside the identity requirement.
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(ActorMiddleware)

		r.Route("/doctors/{doctorID}", func(r chi.Router) {
			r.Put("/availability", setAvailabilityHandler(cfg.Schedule))
			r.Get("/availability", getAvailabilityHandler(cfg.Schedule))
			r.Get("/slots", getSlotsHandler(cfg.Schedule))
		})

		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", bookAppointmentHandler(cfg.Appointments))
			r.Get("/{id}", getAppointmentHandler(cfg.Appointments))
			r.Get("/{id}/history", getHistoryHandler(cfg.Appointments))
			r.Post("/{id}/complete", completeAppointmentHandler(cfg.Appointments))
			r.Post("/{id}/cancel", cancelAppointmentHandler(cfg.Appointments))
		})

		r.Route("/me", func(r chi.Router) {
			r.Get("/appointments", listMyAppointmentsHandler(cfg.Appointments))
			r.Get("/notifications", listMyNotificationsHandler(cfg.Notifications))
			r.Post("/notifications/{id}/read", markNotificationReadHandler(cfg.Notifications))
		})
	})

	return r
}
