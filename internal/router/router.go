package router

import (
	"log"
	"net/http"

	"github.com/ezh-cafe/api/internal/config"
	"github.com/ezh-cafe/api/internal/database"
	"github.com/ezh-cafe/api/internal/handler"
	mw "github.com/ezh-cafe/api/internal/middleware"
	"github.com/ezh-cafe/api/internal/service"
	"github.com/ezh-cafe/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Dispatcher creates invoices and sends order notifications.
// Satisfied by *dispatch.Dispatcher.
type Dispatcher interface {
	service.Dispatcher
	service.PaymentNotifier
}

// Deps are the collaborators built once at startup and shared by all routes.
type Deps struct {
	Queries    *database.Queries
	Pool       *pgxpool.Pool
	Hub        *ws.Hub
	Dispatcher Dispatcher
	Auth       service.Authenticator
	// Events receives order.created / order.updated. Defaults to Hub.
	Events service.EventSink
}

// New creates a Chi router with all application routes wired up.
// Public routes serve the customer mini-app; staff routes require a JWT
// scoped to the venue in the path.
func New(cfg *config.Config, deps Deps) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	events := deps.Events
	if events == nil {
		events = deps.Hub
	}

	menuService := service.NewMenuService(deps.Queries, cfg.MediaBaseURL)

	orderService := service.NewOrderService(
		deps.Pool,
		func(db database.DBTX) service.OrderStore {
			return database.New(db)
		},
		deps.Queries,
		deps.Auth,
		deps.Dispatcher,
		cfg.Currency,
		cfg.DispatchTimeout,
	)
	orderService.SetEventSink(events)

	ledger := service.NewOrderLedger(deps.Queries, deps.Dispatcher, events, cfg.DispatchTimeout)

	// Staff auth routes (public)
	authHandler := handler.NewAuthHandler(deps.Queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/venues/{vid}/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(deps.Hub, cfg.JWTSecret, w, r)
	})

	venueHandler := handler.NewVenueHandler(deps.Queries, menuService)
	menuHandler := handler.NewMenuHandler(menuService)
	orderHandler := handler.NewOrderHandler(orderService, ledger)
	paymentHandler := handler.NewPaymentHandler(ledger)

	r.Route("/venues", func(r chi.Router) {
		venueHandler.RegisterRoutes(r)
		menuHandler.RegisterRoutes(r)

		r.Route("/{vid}/orders", func(r chi.Router) {
			// Order submission is authenticated by the mini-app init data in the body.
			orderHandler.RegisterRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(mw.Authenticate(cfg.JWTSecret))
				r.Use(mw.RequireVenue)
				orderHandler.RegisterStaffRoutes(r)
				paymentHandler.RegisterRoutes(r)
			})
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
