package interfaces

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/application"
	"github.com/hisaabkitaab/hisaabkitaab/internal/logger"
)

type ExportServiceInterface interface {
	Export(ctx context.Context, accountID, format string, startDate, endDate time.Time) (*application.Statement, error)
}

type ExportHandler struct {
	service      ExportServiceInterface
	respondError func(w http.ResponseWriter, status int, message string, details ...[]string)
	now          func() time.Time
}

func NewExportHandler(
	service ExportServiceInterface,
	respondError func(w http.ResponseWriter, status int, message string, details ...[]string),
) *ExportHandler {
	if service == nil || respondError == nil {
		panic("Service and response functions must not be nil")
	}
	return &ExportHandler{service: service, respondError: respondError, now: time.Now}
}

// Export streams the statement as a file download rather than the usual JSON
// envelope.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.respondError)
	if !ok {
		return
	}
	startDate, endDate, err := parseDateRange(r, h.now())
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	statement, err := h.service.Export(r.Context(), p.AccountID, r.URL.Query().Get("format"), startDate, endDate)
	if err != nil {
		writeServiceError(w, r, h.respondError, err, "Failed to export transactions")
		return
	}

	w.Header().Set("Content-Type", statement.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", statement.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(statement.Body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(statement.Body); err != nil {
		logger.FromContext(r.Context()).Warn().Err(err).Msg("Writing export body failed")
	}
}
