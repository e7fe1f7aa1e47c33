package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/healthcare-booking/internal/appointment"
	"github.com/hackgods/healthcare-booking/internal/billing"
	"github.com/hackgods/healthcare-booking/internal/directory"
	"github.com/hackgods/healthcare-booking/internal/review"
)

var validate = validator.New()

type RouterConfig struct {
	Appointments *appointment.Service
	Billing      *billing.Service
	Reviews      *review.Service
	Directory    directory.Repository
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Logger       zerolog.Logger
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Appointments
	r.Post("/appointments", createAppointmentHandler(cfg.Appointments))
	r.Get("/appointments", listAppointmentsHandler(cfg.Appointments))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Appointments))
	r.Put("/appointments/{id}", updateAppointmentHandler(cfg.Appointments))
	r.Post("/appointments/{id}/confirm", confirmAppointmentHandler(cfg.Appointments))
	r.Delete("/appointments/{id}", cancelAppointmentHandler(cfg.Appointments))
	r.Post("/appointments/{id}/prescription", attachPrescriptionHandler(cfg.Appointments))

	// Bills and payments
	r.Post("/bills", createBillHandler(cfg.Billing))
	r.Get("/bills", listBillsHandler(cfg.Billing))
	r.Get("/bills/{id}", getBillHandler(cfg.Billing))
	r.Post("/bills/{id}/payment-intent", createPaymentIntentHandler(cfg.Billing))
	r.Put("/bills/{id}/payment", recordPaymentHandler(cfg.Billing))

	// Directory and reviews
	r.Get("/doctors", listDoctorsHandler(cfg.Directory))
	r.Get("/doctors/{id}", getDoctorHandler(cfg.Directory, cfg.Reviews))
	r.Post("/doctors/{id}/reviews", addReviewHandler(cfg.Reviews))
	r.Get("/hospitals", listHospitalsHandler(cfg.Directory))
	r.Get("/hospitals/{id}", getHospitalHandler(cfg.Directory))

	return r
}
