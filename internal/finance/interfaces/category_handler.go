package interfaces

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/domain"
	"github.com/hisaabkitaab/hisaabkitaab/internal/session"
)

type CategoryServiceInterface interface {
	GetCategories(ctx context.Context, accountID, categoryType string) ([]domain.Category, error)
	CreateCategory(ctx context.Context, p session.Principal, input domain.CategoryInput) (*domain.Category, error)
}

type CategoryHandler struct {
	service      CategoryServiceInterface
	respondJSON  func(w http.ResponseWriter, status int, payload interface{})
	respondError func(w http.ResponseWriter, status int, message string, details ...[]string)
}

func NewCategoryHandler(
	service CategoryServiceInterface,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, details ...[]string),
) *CategoryHandler {
	if service == nil || respondJSON == nil || respondError == nil {
		panic("Service and response functions must not be nil")
	}
	return &CategoryHandler{
		service:      service,
		respondJSON:  respondJSON,
		respondError: respondError,
	}
}

func (h *CategoryHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.respondError)
	if !ok {
		return
	}
	categoryType := r.URL.Query().Get("type")
	if categoryType != "" && !domain.IsValidCategoryType(categoryType) {
		h.respondError(w, http.StatusBadRequest, "Invalid category type")
		return
	}

	categories, err := h.service.GetCategories(r.Context(), p.AccountID, categoryType)
	if err != nil {
		writeServiceError(w, r, h.respondError, err, "Failed to retrieve categories")
		return
	}
	h.respondJSON(w, http.StatusOK, success("Categories retrieved successfully.", categories))
}

func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.respondError)
	if !ok {
		return
	}
	var input domain.CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	category, err := h.service.CreateCategory(r.Context(), p, input)
	if err != nil {
		writeServiceError(w, r, h.respondError, err, "Failed to create category")
		return
	}
	h.respondJSON(w, http.StatusCreated, success("Category successfully created.", category))
}
