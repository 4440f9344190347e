package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/application"
	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/domain"
	"github.com/hisaabkitaab/hisaabkitaab/internal/middleware"
	"github.com/hisaabkitaab/hisaabkitaab/internal/session"
	"github.com/rs/zerolog/log"
)

type TransactionServiceInterface interface {
	CreateTransaction(ctx context.Context, p session.Principal, input domain.TransactionInput) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, p session.Principal, transactionID string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, p session.Principal, filter domain.TransactionFilter) (*application.TransactionPage, error)
	UpdateTransaction(ctx context.Context, p session.Principal, transactionID string, input domain.TransactionInput) (*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, p session.Principal, transactionID string) error
}

type TransactionHandler struct {
	service      TransactionServiceInterface
	respondJSON  func(w http.ResponseWriter, status int, payload interface{})
	respondError func(w http.ResponseWriter, status int, message string, details ...[]string)
}

func NewTransactionHandler(
	service TransactionServiceInterface,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, details ...[]string),
) *TransactionHandler {
	if service == nil {
		log.Fatal().Msg("Service must not be nil")
		return nil
	}
	if respondJSON == nil || respondError == nil {
		log.Fatal().Msg("Response functions must not be nil")
		return nil
	}
	return &TransactionHandler{
		service:      service,
		respondJSON:  respondJSON,
		respondError: respondError,
	}
}

func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.respondError)
	if !ok {
		return
	}
	var input domain.TransactionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	transaction, err := h.service.CreateTransaction(r.Context(), p, input)
	if err != nil {
		writeServiceError(w, r, h.respondError, err, "Failed to create transaction")
		return
	}
	h.respondJSON(w, http.StatusCreated, success("Transaction successfully created.", transaction))
}

func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.respondError)
	if !ok {
		return
	}
	transactionID, ok := h.transactionID(w, r)
	if !ok {
		return
	}

	transaction, err := h.service.GetTransaction(r.Context(), p, transactionID)
	if err != nil {
		writeServiceError(w, r, h.respondError, err, "Failed to retrieve transaction")
		return
	}
	h.respondJSON(w, http.StatusOK, success("Transaction retrieved successfully.", transaction))
}

func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.respondError)
	if !ok {
		return
	}
	query := r.URL.Query()

	filter := domain.TransactionFilter{
		Type:       query.Get("type"),
		CategoryID: query.Get("category_id"),
	}
	if filter.Type != "" && !domain.IsValidTransactionType(filter.Type) {
		h.respondError(w, http.StatusBadRequest, "Invalid transaction type")
		return
	}
	if filter.CategoryID != "" {
		if _, err := uuid.Parse(filter.CategoryID); err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid category ID")
			return
		}
	}

	var err error
	if s := query.Get("start_date"); s != "" {
		if filter.StartDate, err = domain.ParseDate(s); err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid start date format")
			return
		}
	}
	if s := query.Get("end_date"); s != "" {
		if filter.EndDate, err = domain.ParseDate(s); err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid end date format")
			return
		}
	}
	if s := query.Get("limit"); s != "" {
		filter.Limit, err = strconv.Atoi(s)
		if err != nil || filter.Limit <= 0 {
			h.respondError(w, http.StatusBadRequest, "Invalid limit value")
			return
		}
	}
	if s := query.Get("page"); s != "" {
		filter.Page, err = strconv.Atoi(s)
		if err != nil || filter.Page <= 0 || filter.Page > application.MaxPage {
			h.respondError(w, http.StatusBadRequest, "Invalid page value")
			return
		}
	}

	page, err := h.service.ListTransactions(r.Context(), p, filter)
	if err != nil {
		writeServiceError(w, r, h.respondError, err, "Failed to retrieve transactions")
		return
	}
	h.respondJSON(w, http.StatusOK, success("Transactions retrieved successfully.", page))
}

func (h *TransactionHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.respondError)
	if !ok {
		return
	}
	transactionID, ok := h.transactionID(w, r)
	if !ok {
		return
	}
	var input domain.TransactionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	transaction, err := h.service.UpdateTransaction(r.Context(), p, transactionID, input)
	if err != nil {
		writeServiceError(w, r, h.respondError, err, "Failed to update transaction")
		return
	}
	h.respondJSON(w, http.StatusOK, success("Transaction successfully updated.", transaction))
}

func (h *TransactionHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.respondError)
	if !ok {
		return
	}
	transactionID, ok := h.transactionID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteTransaction(r.Context(), p, transactionID); err != nil {
		writeServiceError(w, r, h.respondError, err, "Failed to delete transaction")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Transaction successfully deleted.",
	})
}

func (h *TransactionHandler) transactionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.PathUUID(r, "transactionID")
	if !ok {
		h.respondError(w, http.StatusNotFound, "Transaction not found")
		return "", false
	}
	return id.String(), true
}
