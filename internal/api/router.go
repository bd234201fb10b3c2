package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/princesspalace/palace/internal/api/handler"
	"github.com/princesspalace/palace/internal/api/middleware"
	"github.com/princesspalace/palace/internal/docstore"
	"github.com/princesspalace/palace/internal/errbus"
	"github.com/princesspalace/palace/internal/role"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	DBPinger    handler.Pinger
	RedisPinger handler.Pinger
	Backend     string
	Version     string
	OpenAPISpec []byte

	Tokens         middleware.ClientTokens
	CookieName     string
	CookieMaxAge   int
	SecureCookie   bool
	Sessions       handler.Sessions
	SessionTimeout time.Duration

	Store    docstore.Store
	Orders   handler.OrderService
	Reviews  handler.ReviewService
	Bookings handler.BookingService
	Finance  handler.FinanceService

	Errors         *errbus.Bus
	DebugErrors    bool
	AllowedOrigins []string
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	healthHandler := handler.NewHealthHandler(deps.DBPinger, deps.RedisPinger, deps.Backend, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)

	if len(deps.OpenAPISpec) > 0 {
		openapiHandler := handler.NewOpenAPIHandler(deps.OpenAPISpec)
		r.Get("/openapi.json", openapiHandler.ServeHTTP)
	}

	if deps.DebugErrors && deps.Errors != nil {
		debugHandler := handler.NewDebugHandler(deps.Errors, deps.AllowedOrigins)
		r.Get("/debug/errors", debugHandler.Errors)
	}

	if deps.Tokens == nil || deps.Sessions == nil {
		return r
	}

	staff := []role.Role{role.Admin, role.Accounts, role.Waiter}
	finance := []role.Role{role.Admin, role.Accounts}

	r.Group(func(r chi.Router) {
		r.Use(middleware.ClientCookie(deps.Tokens, deps.CookieName, deps.CookieMaxAge, deps.SecureCookie))

		authHandler := handler.NewAuthHandler(deps.Sessions, deps.SessionTimeout)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signin", authHandler.SignIn)
			r.Post("/register", authHandler.Register)
			r.Post("/signout", authHandler.SignOut)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(deps.Sessions, deps.SessionTimeout))

			r.Get("/session", handler.NewSessionHandler().ServeHTTP)

			if deps.Store != nil {
				liveHandler := handler.NewLiveHandler(deps.Store, deps.Errors, deps.AllowedOrigins)
				r.Get("/live", liveHandler.ServeHTTP)
			}

			if deps.Orders != nil {
				orderHandler := handler.NewOrderHandler(deps.Orders, deps.Errors)
				r.Route("/orders", func(r chi.Router) {
					r.Use(middleware.RequireSession())
					r.Post("/", orderHandler.Place)
					r.Get("/", orderHandler.List)
					r.With(middleware.RequireRole(staff...)).Patch("/{id}/status", orderHandler.UpdateStatus)
				})
			}

			if deps.Reviews != nil {
				reviewHandler := handler.NewReviewHandler(deps.Reviews, deps.Errors)
				r.Route("/reviews", func(r chi.Router) {
					r.Post("/", reviewHandler.Submit)
					r.Get("/", reviewHandler.List)
				})
			}

			if deps.Bookings != nil {
				bookingHandler := handler.NewBookingHandler(deps.Bookings, deps.Errors)
				r.Post("/reservations", bookingHandler.Reserve)
				r.With(middleware.RequireRole(finance...)).Post("/party-bookings", bookingHandler.BookParty)
			}

			if deps.Finance != nil {
				financeHandler := handler.NewFinanceHandler(deps.Finance, deps.Errors)
				r.Route("/finance", func(r chi.Router) {
					r.Group(func(r chi.Router) {
						r.Use(middleware.RequireRole(staff...))
						r.Post("/advances", financeHandler.RequestAdvance)
						r.Post("/purchases", financeHandler.SubmitPurchase)
						r.Post("/leave-requests", financeHandler.RequestLeave)
					})
					r.With(middleware.RequireRole(role.Admin)).Patch("/leave-requests/{id}", financeHandler.SetLeaveStatus)

					r.Group(func(r chi.Router) {
						r.Use(middleware.RequireRole(finance...))
						r.Get("/report", financeHandler.Report)
						r.Get("/payroll", financeHandler.Payroll)
						r.Post("/employees", financeHandler.AddEmployee)
						r.Post("/expenses", financeHandler.RecordExpense)
						r.Patch("/advances/{id}", financeHandler.SetAdvanceStatus)
						r.Patch("/purchases/{id}", financeHandler.SetPurchaseStatus)
					})
				})
			}
		})
	})

	return r
}
