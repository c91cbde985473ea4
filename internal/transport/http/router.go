package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
)

type RouterConfig struct {
	Service bookingService
	Tenant  TenantDefaults
	DB      *bun.DB
	Redis   *redis.Client
	Version string
	Log     *slog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	health := NewHealthHandler(cfg.DB, cfg.Redis, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	h := NewHandler(cfg.Service, cfg.Tenant, cfg.Log)
	r.Post("/appointments", h.bookAppointment)
	r.Post("/appointments/{id}/confirm", h.confirmAppointment)
	r.Post("/appointments/{id}/complete", h.completeAppointment)
	r.Post("/appointments/{id}/cancel", h.cancelAppointment)
	r.Post("/appointments/{id}/decline", h.declineAppointment)
	r.Post("/appointments/{id}/reschedule", h.rescheduleAppointment)
	r.Get("/practitioners/{id}/appointments", h.listPractitionerAppointments)
	r.Get("/availability/joint", h.jointAvailability)

	return r
}
