package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"sourcing_marketplace/internal/models"
)

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.orders.GetAllOrders(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, orders)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, order)
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var order models.Order
	if !s.decodeJSON(w, r, &order) {
		return
	}
	order.BuyerID = userID(r.Context())
	if err := s.orders.CreateOrder(r.Context(), &order); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, order)
}

type orderStatusRequest struct {
	Status models.OrderStatus `json:"status"`
}

func (s *Server) handleSetOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req orderStatusRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := s.orders.SetOrderStatus(r.Context(), chi.URLParam(r, "id"), req.Status); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": string(req.Status)})
}

func (s *Server) handleSubmitOffer(w http.ResponseWriter, r *http.Request) {
	var offer models.Offer
	if !s.decodeJSON(w, r, &offer) {
		return
	}
	offer.OrderID = chi.URLParam(r, "id")
	if err := s.orders.SubmitOffer(r.Context(), &offer); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, offer)
}

func (s *Server) handleListOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := s.orders.GetOffers(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	if offers == nil {
		offers = []*models.Offer{}
	}
	s.respondJSON(w, http.StatusOK, offers)
}
