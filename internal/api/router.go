package api

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/rmartins/navengine/internal/api/handlers"
	custommiddleware "github.com/rmartins/navengine/internal/api/middleware"
	"github.com/rmartins/navengine/internal/config"
	"github.com/rmartins/navengine/internal/repository"
	"github.com/rmartins/navengine/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	db *sql.DB,
	tradeRepo *repository.TradeRepository,
	positionService *service.PositionService,
	navService *service.NavService,
	cfg *config.Config,
	log zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger(log))
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(db)
			r.Get("/health", systemHandler.Health)
		})

		r.Route("/trades", func(r chi.Router) {
			tradeHandler := handlers.NewTradeHandler(tradeRepo, navService, log)
			r.Get("/", tradeHandler.List)
			r.Post("/", tradeHandler.Create)
			r.Get("/{id}", tradeHandler.Get)
		})

		r.Route("/positions", func(r chi.Router) {
			positionHandler := handlers.NewPositionHandler(positionService, log)
			r.Get("/", positionHandler.List)
			r.Get("/live", positionHandler.Live)
		})

		r.Route("/nav", func(r chi.Router) {
			navHandler := handlers.NewNavHandler(navService, log)
			r.Get("/", navHandler.Series)
			r.Post("/refresh", navHandler.Refresh)
			r.Get("/heatmap", navHandler.Heatmap)
		})
	})

	return r
}
