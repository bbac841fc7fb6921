package api

import (
	"net/http"

	"github.com/dom/doctree/internal/api/handlers"
	"github.com/dom/doctree/internal/api/middleware"
	"github.com/dom/doctree/internal/config"
	"github.com/dom/doctree/internal/domain"
	"github.com/dom/doctree/internal/service"
	"github.com/dom/doctree/internal/websocket"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(services *service.Services, hub *websocket.Hub, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigin))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(services.Auth, cfg)
	documentHandler := handlers.NewDocumentHandler(services.Document)
	userHandler := handlers.NewUserHandler(services.User)
	wsHandler := handlers.NewWebSocketHandler(hub, cfg.CORSOrigin)
	staticHandler := handlers.NewStaticHandler(cfg.SiteDir)

	editor := middleware.Auth(services.Auth, domain.RoleEditor)
	administrador := middleware.Auth(services.Auth, domain.RoleAdministrador)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Session routes
		r.Route("/session", func(r chi.Router) {
			r.Post("/", authHandler.Login)
			r.Get("/", authHandler.Session)
			r.Delete("/", authHandler.Logout)
		})

		// Document routes
		r.Route("/documents", func(r chi.Router) {
			r.Get("/{id}", documentHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(editor)
				r.Get("/", documentHandler.List)
				r.Post("/", documentHandler.Create)
				r.Patch("/{id}", documentHandler.Update)
				r.Delete("/{id}", documentHandler.Delete)
			})
		})

		// User routes
		r.Route("/users", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(services.Auth))
				r.Get("/{id}", userHandler.Get)
				r.Patch("/{id}", userHandler.Update)
			})

			r.Group(func(r chi.Router) {
				r.Use(administrador)
				r.Get("/", userHandler.List)
				r.Post("/", userHandler.Create)
				r.Put("/{id}/roles", userHandler.SetRoles)
				r.Delete("/{id}", userHandler.Delete)
			})
		})

		// WebSocket endpoint
		r.With(editor).Get("/ws", wsHandler.Handle)
	})

	// Everything else is the web client
	r.Get("/*", staticHandler.ServeHTTP)

	return r
}
