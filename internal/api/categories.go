package api

import (
	"net/http"

	"sourcing_marketplace/internal/models"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.categories.GetAllCategories(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	if categories == nil {
		categories = []*models.Category{}
	}
	s.respondJSON(w, http.StatusOK, categories)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var category models.Category
	if !s.decodeJSON(w, r, &category) {
		return
	}
	if err := s.categories.CreateCategory(r.Context(), &category); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, category)
}
