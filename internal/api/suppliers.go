package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"sourcing_marketplace/internal/models"
)

func (s *Server) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := s.suppliers.GetAllSuppliers(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, suppliers)
}

func (s *Server) handleGetSupplier(w http.ResponseWriter, r *http.Request) {
	supplier, err := s.suppliers.GetSupplier(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, supplier)
}

func (s *Server) handleCreateSupplier(w http.ResponseWriter, r *http.Request) {
	var supplier models.Supplier
	if !s.decodeJSON(w, r, &supplier) {
		return
	}
	if err := s.suppliers.CreateSupplier(r.Context(), &supplier); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, supplier)
}

func (s *Server) handleUpdateSupplier(w http.ResponseWriter, r *http.Request) {
	var supplier models.Supplier
	if !s.decodeJSON(w, r, &supplier) {
		return
	}
	supplier.ID = chi.URLParam(r, "id")
	if err := s.suppliers.UpdateSupplier(r.Context(), &supplier); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, supplier)
}

type triggerResponse struct {
	TaskID string `json:"task_id"`
}

// handleTriggerVerification accepts the request and returns immediately; the
// outcome is observed later via the trust-state and history endpoints.
func (s *Server) handleTriggerVerification(w http.ResponseWriter, r *http.Request) {
	taskID, err := s.suppliers.TriggerVerification(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusAccepted, triggerResponse{TaskID: taskID})
}

type batchTriggerRequest struct {
	SupplierIDs []string `json:"supplier_ids"`
}

type batchTriggerResponse struct {
	TaskIDs []string `json:"task_ids"`
	Count   int      `json:"count"`
}

func (s *Server) handleTriggerBatchVerification(w http.ResponseWriter, r *http.Request) {
	var req batchTriggerRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	taskIDs, err := s.suppliers.TriggerBatchVerification(r.Context(), req.SupplierIDs)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusAccepted, batchTriggerResponse{TaskIDs: taskIDs, Count: len(taskIDs)})
}

func (s *Server) handleGetTrustState(w http.ResponseWriter, r *http.Request) {
	state, err := s.suppliers.GetTrustState(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetVerificationHistory(w http.ResponseWriter, r *http.Request) {
	checks, err := s.suppliers.GetVerificationHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	if checks == nil {
		checks = []*models.VerificationCheck{}
	}
	s.respondJSON(w, http.StatusOK, checks)
}
