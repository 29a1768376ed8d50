package router

import (
	"net/http"

	"github.com/cafe-pos/api/internal/config"
	"github.com/cafe-pos/api/internal/enum"
	"github.com/cafe-pos/api/internal/handler"
	mw "github.com/cafe-pos/api/internal/middleware"
	"github.com/cafe-pos/api/internal/service"
	"github.com/cafe-pos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

// Users is the account storage behind login and staff management.
type Users interface {
	handler.AuthStore
	handler.UserStore
}

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware as needed.
func New(cfg *config.Config, log *logrus.Logger, svc *service.Lifecycle, users Users, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","backend":"` + cfg.Backend + `"}`))
	})

	limiter := mw.NewLoginLimiter(cfg.LoginRatePerMinute)
	authHandler := handler.NewAuthHandler(users, cfg.JWTSecret, log, limiter.Middleware)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/{screen}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		r.Route("/tables", handler.NewTableHandler(svc, log).RegisterRoutes)

		orderHandler := handler.NewOrderHandler(svc, log)
		paymentHandler := handler.NewPaymentHandler(svc, log)
		r.Route("/orders", func(r chi.Router) {
			orderHandler.RegisterRoutes(r)
			r.Route("/{id}/payments", paymentHandler.RegisterRoutes)
		})

		r.Route("/menu", handler.NewMenuHandler(svc, log).RegisterRoutes)
		r.Route("/settings", handler.NewSettingsHandler(svc, log).RegisterRoutes)
		r.Route("/transactions", handler.NewTransactionHandler(svc, log).RegisterRoutes)
		r.Route("/reports", handler.NewReportsHandler(svc, log).RegisterRoutes)

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin))
			r.Route("/users", handler.NewUserHandler(users, log).RegisterRoutes)
		})
	})

	log.Info("router initialized")
	return r
}
