package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cmsapi/internal/auth"
	"cmsapi/internal/config"
	"cmsapi/internal/events"
	"cmsapi/internal/service"
)

// RegisterRoutes attaches the HTTP surface to the provided Fiber app.
// Handlers stay thin; everything beyond parsing and status mapping lives
// in the service layer.
func RegisterRoutes(
	app *fiber.App,
	db *sql.DB,
	cfg *config.AppConfig,
	tokens *auth.TokenManager,
	svc service.ContentService,
	broker *events.Broker,
	reg *prometheus.Registry,
) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	api := app.Group("/api")

	// Session management.
	api.Post("/login", Login(cfg.Auth, tokens))
	api.Post("/logout", Logout())

	// Anonymous visitor entry; /entry kept as an alias for older clients.
	api.Post("/visitor", CreateVisitor(svc))
	api.Post("/entry", CreateVisitor(svc))

	// Public reads.
	api.Get("/data", GetProfile(svc))
	api.Get("/public/profile", GetProfile(svc))
	api.Get("/sections", ListSections(svc))
	api.Get("/posts", ListPosts(svc))

	// Live dashboard stream.
	api.Get("/events", Events(broker))

	// Protected publishing surface.
	protected := api.Group("", RequireAuth(tokens))
	protected.Post("/section", CreateSection(svc))
	protected.Post("/dashboard/section", CreateSection(svc))
	protected.Post("/publish", CreatePost(svc))
	protected.Post("/admin/profile", UpsertProfile(svc))
	protected.Put("/admin/profile", UpsertProfile(svc))
	protected.Delete("/admin/profile", DeleteProfile(svc))
	protected.Get("/admin/visitors", ListVisitors(svc))
}
