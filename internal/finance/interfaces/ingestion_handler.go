package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/hisaabkitaab/hisaabkitaab/internal/finance/application"
	financeErrors "github.com/hisaabkitaab/hisaabkitaab/internal/finance/errors"
	"github.com/hisaabkitaab/hisaabkitaab/internal/session"
)

const multipartOverhead = 1 << 20

type IngestionServiceInterface interface {
	CreateFromTranscript(ctx context.Context, p session.Principal, transcript string) (*application.TranscriptResult, error)
	CreateFromBill(ctx context.Context, p session.Principal, image []byte, mimeType string, preview bool) (*application.BillResult, error)
}

type IngestionHandler struct {
	service      IngestionServiceInterface
	respondJSON  func(w http.ResponseWriter, status int, payload interface{})
	respondError func(w http.ResponseWriter, status int, message string, details ...[]string)
}

func NewIngestionHandler(
	service IngestionServiceInterface,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, details ...[]string),
) *IngestionHandler {
	if service == nil || respondJSON == nil || respondError == nil {
		panic("Service and response functions must not be nil")
	}
	return &IngestionHandler{service: service, respondJSON: respondJSON, respondError: respondError}
}

func (h *IngestionHandler) CreateFromVoice(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.respondError)
	if !ok {
		return
	}
	var req struct {
		Transcript string `json:"transcript"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.CreateFromTranscript(r.Context(), p, req.Transcript)
	if err != nil {
		writeServiceError(w, r, h.respondError, err, "Failed to process voice transcript")
		return
	}
	status := http.StatusCreated
	if len(result.Transactions) == 0 {
		status = http.StatusOK
	}
	h.respondJSON(w, status, success("Voice transactions processed.", result))
}

// CreateFromBill accepts a multipart form with the bill in the "image" field.
// preview=true returns the extraction without storing it.
func (h *IngestionHandler) CreateFromBill(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.respondError)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, application.MaxBillSize+multipartOverhead)
	if err := r.ParseMultipartForm(application.MaxBillSize + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(w, http.StatusRequestEntityTooLarge, financeErrors.ErrImageTooLarge.Error())
			return
		}
		h.respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Image file is required")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, application.MaxBillSize+1))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Failed to read image")
		return
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(image)
	}
	preview, _ := strconv.ParseBool(r.FormValue("preview"))
	if q := r.URL.Query().Get("preview"); q != "" {
		preview, _ = strconv.ParseBool(q)
	}

	result, err := h.service.CreateFromBill(r.Context(), p, image, mimeType, preview)
	if err != nil {
		writeServiceError(w, r, h.respondError, err, "Failed to process bill")
		return
	}
	if preview {
		h.respondJSON(w, http.StatusOK, success("Bill extracted.", result))
		return
	}
	h.respondJSON(w, http.StatusCreated, success("Bill transaction created.", result))
}
