package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"sourcing_marketplace/internal/service"
)

// Server holds the services the HTTP layer delegates to. All computation
// happens in services; handlers only decode, dispatch and encode.
type Server struct {
	suppliers  service.SupplierService
	orders     service.OrderService
	categories service.CategoryService
	auth       service.AuthService
	logger     *zap.Logger
}

func NewServer(suppliers service.SupplierService, orders service.OrderService, categories service.CategoryService, auth service.AuthService, logger *zap.Logger) *Server {
	return &Server{suppliers: suppliers, orders: orders, categories: categories, auth: auth, logger: logger}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.handleListCategories)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Post("/", s.handleCreateCategory)
			})
		})

		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", s.handleListSuppliers)
			r.Get("/{id}", s.handleGetSupplier)
			r.Get("/{id}/verification", s.handleGetTrustState)
			r.Get("/{id}/verification/history", s.handleGetVerificationHistory)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Post("/", s.handleCreateSupplier)
				r.Put("/{id}", s.handleUpdateSupplier)
				r.Post("/{id}/verify", s.handleTriggerVerification)
				r.Post("/verify-batch", s.handleTriggerBatchVerification)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", s.handleListOrders)
			r.Get("/{id}", s.handleGetOrder)
			r.Get("/{id}/offers", s.handleListOffers)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Post("/", s.handleCreateOrder)
				r.Patch("/{id}/status", s.handleSetOrderStatus)
				r.Post("/{id}/offers", s.handleSubmitOffer)
			})
		})
	})

	return r
}
