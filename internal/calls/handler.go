package calls

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/hisaabkitaab/hisaabkitaab/internal/ai"
	"github.com/hisaabkitaab/hisaabkitaab/internal/logger"
	"github.com/hisaabkitaab/hisaabkitaab/internal/middleware"
	"github.com/hisaabkitaab/hisaabkitaab/internal/profile"
	"github.com/hisaabkitaab/hisaabkitaab/internal/session"
)

type Handler struct {
	callService   Service
	telephony     Telephony
	publicBaseURL string
	cronSecret    string
	respondJSON   func(w http.ResponseWriter, status int, payload interface{})
	respondError  func(w http.ResponseWriter, status int, message string, details ...[]string)
}

func NewHandler(
	callService Service,
	telephony Telephony,
	publicBaseURL, cronSecret string,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, details ...[]string),
) *Handler {
	return &Handler{
		callService:   callService,
		telephony:     telephony,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		cronSecret:    cronSecret,
		respondJSON:   respondJSON,
		respondError:  respondError,
	}
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, ErrCallNotFound), errors.Is(err, profile.ErrProfileNotFound):
		h.respondError(w, http.StatusNotFound, "Call not found")
	case errors.Is(err, ErrNotPending):
		h.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrForeignNumber):
		h.respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrPhoneNotVerified), errors.Is(err, ErrInvalidPhone), errors.Is(err, ErrInvalidLanguage),
		errors.Is(err, ErrMessageTooLong), errors.Is(err, ErrInvalidSchedule):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrTelephonyUnavailable), errors.Is(err, ai.ErrNotConfigured):
		h.respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		logger.FromContext(r.Context()).Error().Err(err).Msg(fallback)
		h.respondError(w, http.StatusInternalServerError, fallback)
	}
}

func (h *Handler) HandleListCalls(w http.ResponseWriter, r *http.Request) {
	p, ok := session.FromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	calls, err := h.callService.List(r.Context(), p)
	if err != nil {
		h.handleServiceError(w, r, err, "Failed to retrieve calls")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   calls,
	})
}

func (h *Handler) HandleScheduleCall(w http.ResponseWriter, r *http.Request) {
	p, ok := session.FromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	call, err := h.callService.Schedule(r.Context(), p, req)
	if err != nil {
		h.handleServiceError(w, r, err, "Failed to schedule call")
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status":  "success",
		"message": "Call scheduled.",
		"data":    call,
	})
}

func (h *Handler) HandleCancelCall(w http.ResponseWriter, r *http.Request) {
	p, ok := session.FromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	callID, ok := middleware.PathUUID(r, "callID")
	if !ok {
		h.respondError(w, http.StatusNotFound, "Call not found")
		return
	}

	if err := h.callService.Cancel(r.Context(), p, callID.String()); err != nil {
		h.handleServiceError(w, r, err, "Failed to cancel call")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Call cancelled.",
	})
}

// HandleCron processes due calls for an external scheduler. It requires
// "Authorization: Bearer <CRON_SECRET>".
func (h *Handler) HandleCron(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret == "" {
		h.respondError(w, http.StatusNotFound, "Not found")
		return
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(h.cronSecret)) != 1 {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	processed, err := h.callService.ProcessDue(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err, "Failed to process calls")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   map[string]int{"processed": processed},
	})
}

// HandleTwiML answers Twilio's request for call instructions.
func (h *Handler) HandleTwiML(w http.ResponseWriter, r *http.Request) {
	if !h.verifySignature(w, r) {
		return
	}
	call, err := h.callService.Get(r.Context(), r.PathValue("callID"))
	if err != nil {
		h.respondError(w, http.StatusNotFound, "Call not found")
		return
	}

	doc, err := h.telephony.TwiML(call.Message, call.Language)
	if err != nil {
		logger.FromContext(r.Context()).Error().Err(err).Str("call_id", call.ID).Msg("Rendering TwiML failed")
		h.respondError(w, http.StatusInternalServerError, "Failed to render call")
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

// HandleStatus records Twilio's final call status.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if !h.verifySignature(w, r) {
		return
	}
	if err := h.callService.UpdateStatus(r.Context(), r.PathValue("callID"), r.PostForm.Get("CallStatus")); err != nil {
		if errors.Is(err, ErrCallNotFound) {
			h.respondError(w, http.StatusNotFound, "Call not found")
			return
		}
		logger.FromContext(r.Context()).Error().Err(err).Msg("Updating call status failed")
		h.respondError(w, http.StatusInternalServerError, "Failed to update call")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// verifySignature parses the form and checks X-Twilio-Signature against the
// public URL Twilio called.
func (h *Handler) verifySignature(w http.ResponseWriter, r *http.Request) bool {
	if h.telephony == nil {
		h.respondError(w, http.StatusServiceUnavailable, ErrTelephonyUnavailable.Error())
		return false
	}
	if err := r.ParseForm(); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid form body")
		return false
	}
	params := make(map[string]string, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	url := h.publicBaseURL + r.URL.RequestURI()
	if !h.telephony.ValidSignature(url, params, r.Header.Get("X-Twilio-Signature")) {
		logger.FromContext(r.Context()).Warn().Str("url", url).Msg("Rejected unsigned telephony webhook")
		h.respondError(w, http.StatusForbidden, "Invalid signature")
		return false
	}
	return true
}
