package interfaces

import (
	"errors"
	"net/http"
	"time"

	"github.com/hisaabkitaab/hisaabkitaab/internal/ai"
	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/application"
	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/domain"
	financeErrors "github.com/hisaabkitaab/hisaabkitaab/internal/finance/errors"
	"github.com/hisaabkitaab/hisaabkitaab/internal/logger"
	"github.com/hisaabkitaab/hisaabkitaab/internal/session"
)

type errorResponder func(w http.ResponseWriter, status int, message string, details ...[]string)

func principal(w http.ResponseWriter, r *http.Request, respondError errorResponder) (session.Principal, bool) {
	p, ok := session.FromContext(r.Context())
	if !ok || p.AccountID == "" {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return p, false
	}
	return p, true
}

// writeServiceError maps finance and AI errors onto HTTP statuses; anything
// unknown is logged and reported as fallback.
func writeServiceError(w http.ResponseWriter, r *http.Request, respondError errorResponder, err error, fallback string) {
	var validationErrors *financeErrors.ValidationErrors
	switch {
	case errors.As(err, &validationErrors):
		respondError(w, http.StatusBadRequest, "Validation errors occurred", validationErrors.Messages())
	case financeErrors.IsValidationError(err):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, financeErrors.ErrReadOnly):
		respondError(w, http.StatusForbidden, "Viewers cannot modify transactions")
	case errors.Is(err, financeErrors.ErrTransactionNotFound):
		respondError(w, http.StatusNotFound, "Transaction not found")
	case errors.Is(err, financeErrors.ErrNothingExtracted):
		respondError(w, http.StatusUnprocessableEntity, "No transactions could be extracted")
	case errors.Is(err, ai.ErrNotConfigured):
		respondError(w, http.StatusServiceUnavailable, "AI features are not configured")
	case errors.Is(err, ai.ErrEmptyResponse), errors.Is(err, ai.ErrRoundLimit):
		logger.FromContext(r.Context()).Warn().Err(err).Msg(fallback)
		respondError(w, http.StatusBadGateway, fallback)
	default:
		logger.FromContext(r.Context()).Error().Err(err).Msg(fallback)
		respondError(w, http.StatusInternalServerError, fallback)
	}
}

// parseDateRange reads start_date/end_date, defaulting to the current month.
func parseDateRange(r *http.Request, now time.Time) (time.Time, time.Time, error) {
	startDate, endDate := application.CurrentMonth(now)
	var err error
	if s := r.URL.Query().Get("start_date"); s != "" {
		if startDate, err = domain.ParseDate(s); err != nil {
			return time.Time{}, time.Time{}, financeErrors.NewValidationError("Invalid start date format")
		}
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		if endDate, err = domain.ParseDate(s); err != nil {
			return time.Time{}, time.Time{}, financeErrors.NewValidationError("Invalid end date format")
		}
	}
	if startDate.After(endDate) {
		return time.Time{}, time.Time{}, financeErrors.ErrInvalidDateRange
	}
	return startDate, endDate, nil
}

func success(message string, data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"status":  "success",
		"message": message,
		"data":    data,
	}
}
