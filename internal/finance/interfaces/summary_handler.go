package interfaces

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/domain"
)

type SummaryServiceInterface interface {
	GetMonthlySummary(ctx context.Context, accountID string, year int) (*domain.YearSummary, error)
	GetCategorySummary(ctx context.Context, accountID, transactionType string, startDate, endDate time.Time) ([]domain.TransactionByCategorySummary, error)
	GetMemberSummary(ctx context.Context, accountID string, startDate, endDate time.Time) ([]domain.TransactionByMemberSummary, error)
	GetOverview(ctx context.Context, accountID string, startDate, endDate time.Time) (*domain.Overview, error)
}

type SummaryHandler struct {
	service      SummaryServiceInterface
	respondJSON  func(w http.ResponseWriter, status int, payload interface{})
	respondError func(w http.ResponseWriter, status int, message string, details ...[]string)
	now          func() time.Time
}

func NewSummaryHandler(
	service SummaryServiceInterface,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, details ...[]string),
) *SummaryHandler {
	if service == nil || respondJSON == nil || respondError == nil {
		panic("Service and response functions must not be nil")
	}
	return &SummaryHandler{service: service, respondJSON: respondJSON, respondError: respondError, now: time.Now}
}

func (h *SummaryHandler) GetMonthlySummary(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.respondError)
	if !ok {
		return
	}
	year := h.now().Year()
	if s := r.URL.Query().Get("year"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 1900 || parsed > 9999 {
			h.respondError(w, http.StatusBadRequest, "Invalid year value")
			return
		}
		year = parsed
	}

	summary, err := h.service.GetMonthlySummary(r.Context(), p.AccountID, year)
	if err != nil {
		writeServiceError(w, r, h.respondError, err, "Failed to retrieve transaction summary")
		return
	}
	h.respondJSON(w, http.StatusOK, success("Transactions summary retrieved successfully.", summary))
}

func (h *SummaryHandler) GetCategorySummary(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.respondError)
	if !ok {
		return
	}
	transactionType := r.URL.Query().Get("type")
	if transactionType != "" && !domain.IsValidTransactionType(transactionType) {
		h.respondError(w, http.StatusBadRequest, "Invalid transaction type")
		return
	}
	startDate, endDate, err := parseDateRange(r, h.now())
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.service.GetCategorySummary(r.Context(), p.AccountID, transactionType, startDate, endDate)
	if err != nil {
		writeServiceError(w, r, h.respondError, err, "Failed to retrieve category summary")
		return
	}
	h.respondJSON(w, http.StatusOK, success("Category summary retrieved successfully.", summary))
}

func (h *SummaryHandler) GetMemberSummary(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.respondError)
	if !ok {
		return
	}
	startDate, endDate, err := parseDateRange(r, h.now())
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.service.GetMemberSummary(r.Context(), p.AccountID, startDate, endDate)
	if err != nil {
		writeServiceError(w, r, h.respondError, err, "Failed to retrieve member summary")
		return
	}
	h.respondJSON(w, http.StatusOK, success("Member summary retrieved successfully.", summary))
}

func (h *SummaryHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.respondError)
	if !ok {
		return
	}
	startDate, endDate, err := parseDateRange(r, h.now())
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	overview, err := h.service.GetOverview(r.Context(), p.AccountID, startDate, endDate)
	if err != nil {
		writeServiceError(w, r, h.respondError, err, "Failed to retrieve overview")
		return
	}
	h.respondJSON(w, http.StatusOK, success("Overview retrieved successfully.", map[string]interface{}{
		"start_date": startDate.Format(domain.DateLayout),
		"end_date":   endDate.Format(domain.DateLayout),
		"overview":   overview,
	}))
}
