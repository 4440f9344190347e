package profile

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hisaabkitaab/hisaabkitaab/internal/logger"
	"github.com/hisaabkitaab/hisaabkitaab/internal/session"
)

type Handler struct {
	profileService Service
	respondJSON    func(w http.ResponseWriter, status int, payload interface{})
	respondError   func(w http.ResponseWriter, status int, message string, details ...[]string)
}

func NewHandler(
	profileService Service,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, details ...[]string),
) *Handler {
	return &Handler{
		profileService: profileService,
		respondJSON:    respondJSON,
		respondError:   respondError,
	}
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (session.Principal, bool) {
	p, ok := session.FromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
	}
	return p, ok
}

func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	p, err := h.profileService.GetByID(r.Context(), principal.ProfileID)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			h.respondError(w, http.StatusNotFound, "Profile not found")
			return
		}
		logger.FromContext(r.Context()).Error().Err(err).Msg("Get profile failed")
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve profile")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   p,
	})
}

func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p, err := h.profileService.Update(r.Context(), principal.ProfileID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidLanguage), errors.Is(err, ErrInvalidPhone), errors.Is(err, ErrNameTooLong):
			h.respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrProfileNotFound):
			h.respondError(w, http.StatusNotFound, "Profile not found")
		default:
			logger.FromContext(r.Context()).Error().Err(err).Msg("Update profile failed")
			h.respondError(w, http.StatusInternalServerError, "Failed to update profile")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Profile updated successfully.",
		"data":    p,
	})
}

// HandleDeleteProfile removes the caller's profile together with the accounts they own.
func (h *Handler) HandleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	if err := h.profileService.DeleteByExternalID(r.Context(), principal.ExternalID); err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			h.respondError(w, http.StatusNotFound, "Profile not found")
			return
		}
		logger.FromContext(r.Context()).Error().Err(err).Msg("Delete profile failed")
		h.respondError(w, http.StatusInternalServerError, "Failed to delete profile")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Profile deleted successfully.",
	})
}

func (h *Handler) HandleRequestPhoneVerification(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	if err := h.profileService.RequestPhoneVerification(r.Context(), principal.ProfileID); err != nil {
		switch {
		case errors.Is(err, ErrNoPhone), errors.Is(err, ErrPhoneAlreadyVerified):
			h.respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrPhoneChanged):
			h.respondError(w, http.StatusConflict, err.Error())
		case errors.Is(err, ErrTelephonyUnavailable):
			h.respondError(w, http.StatusServiceUnavailable, err.Error())
		default:
			logger.FromContext(r.Context()).Error().Err(err).Msg("Phone verification request failed")
			h.respondError(w, http.StatusInternalServerError, "Failed to send verification code")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Verification call placed.",
	})
}

func (h *Handler) HandleConfirmPhoneVerification(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.profileService.ConfirmPhoneVerification(r.Context(), principal.ProfileID, req.Code); err != nil {
		switch {
		case errors.Is(err, ErrInvalidPhoneCode), errors.Is(err, ErrNoPendingPhoneCode), errors.Is(err, ErrPhoneAlreadyVerified):
			h.respondError(w, http.StatusBadRequest, err.Error())
		default:
			logger.FromContext(r.Context()).Error().Err(err).Msg("Phone verification failed")
			h.respondError(w, http.StatusInternalServerError, "Failed to verify phone")
		}
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Phone number verified.",
	})
}
