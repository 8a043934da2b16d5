package router

import (
	"log"
	"net/http"

	"github.com/dinepoint/pos-api/internal/config"
	"github.com/dinepoint/pos-api/internal/enum"
	"github.com/dinepoint/pos-api/internal/handler"
	mw "github.com/dinepoint/pos-api/internal/middleware"
	"github.com/dinepoint/pos-api/internal/service"
	"github.com/dinepoint/pos-api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// New creates a Chi router with all application routes wired up.
// Role checks beyond "is a known staff role" happen in the order service,
// which also knows about restaurant ownership.
func New(cfg *config.Config, svc *service.OrderService, idp mw.Identifier, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// WebSocket route (handles auth internally via query param or header)
	wsHandler := ws.NewHandler(hub, idp, svc, rate.Limit(cfg.WSMessagesPerSecond), cfg.WSMessageBurst)
	r.Get("/ws", wsHandler.ServeWS)

	sessionHandler := handler.NewSessionHandler(svc)
	batchHandler := handler.NewBatchHandler(svc)
	billHandler := handler.NewBillHandler(svc)
	viewHandler := handler.NewViewHandler(svc)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(idp))
		r.Use(mw.RequireRole(enum.AllRoles...))

		r.Route("/restaurants/{rid}", func(r chi.Router) {
			viewHandler.RegisterRoutes(r)

			r.Route("/sessions", func(r chi.Router) {
				sessionHandler.RegisterRoutes(r)

				// Nested session routes
				r.Route("/{sid}/batches", batchHandler.RegisterSessionRoutes)
				r.Route("/{sid}/bill", billHandler.RegisterSessionRoutes)
			})
		})

		r.Route("/batches", batchHandler.RegisterRoutes)
		r.Route("/items", batchHandler.RegisterItemRoutes)
		r.Route("/bills", billHandler.RegisterRoutes)
	})

	log.Println("Router initialized with all handlers")
	return r
}
