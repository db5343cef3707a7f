package router

import (
	"net/http"

	"scanhub-api/internal/handler"
	"scanhub-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler            *handler.Handler
	LookupHandler      *handler.LookupHandler
	ScanHandler        *handler.ScanHandler
	StockTakingHandler *handler.StockTakingHandler
	AdminHandler       *handler.AdminHandler
	AuthMiddleware     func(http.Handler) http.Handler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key", "X-Login-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// PUBLIC routes (no auth required)
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	// AUTHENTICATED routes (use Group to apply auth middleware only to these)
	r.Group(func(r chi.Router) {
		if cfg.AuthMiddleware != nil {
			r.Use(cfg.AuthMiddleware)
		}

		r.Route("/api/v1", func(r chi.Router) {
			// Health check endpoints
			if cfg.Handler != nil {
				r.Get("/health", cfg.Handler.Health)
				r.Get("/ready", cfg.Handler.Ready)
			}

			// Lookup endpoints
			if cfg.LookupHandler != nil {
				r.Get("/products/lookup", cfg.LookupHandler.Lookup)
				r.Get("/products/master/lookup", cfg.LookupHandler.MasterLookup)
				r.Get("/scan-logs", cfg.LookupHandler.ScanLogs)
			}

			// Decode and validation endpoints
			if cfg.ScanHandler != nil {
				r.Post("/scan/decode", cfg.ScanHandler.Decode)
				r.Post("/barcodes/validate", cfg.ScanHandler.Validate)
			}

			// Stock-taking endpoints
			if cfg.StockTakingHandler != nil {
				r.Route("/stock-taking/sessions", func(r chi.Router) {
					r.Post("/", cfg.StockTakingHandler.CreateSession)
					r.Get("/", cfg.StockTakingHandler.ListSessions)
					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", cfg.StockTakingHandler.GetSession)
						r.Post("/scans", cfg.StockTakingHandler.AddScan)
						r.Post("/complete", cfg.StockTakingHandler.CompleteSession)
						r.Post("/cancel", cfg.StockTakingHandler.CancelSession)
					})
				})
			}

			// Admin endpoints
			if cfg.AdminHandler != nil {
				r.Route("/admin", func(r chi.Router) {
					r.Post("/login", cfg.AdminHandler.VerifyLogin)
					r.Get("/stats", cfg.AdminHandler.GetStats)
					r.Get("/health", cfg.AdminHandler.GetHealth)
				})
			}
		})
	})

	return r
}
