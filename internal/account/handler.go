package account

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/hisaabkitaab/hisaabkitaab/internal/logger"
	"github.com/hisaabkitaab/hisaabkitaab/internal/middleware"
	"github.com/hisaabkitaab/hisaabkitaab/internal/session"
)

type Handler struct {
	accountService Service
	respondJSON    func(w http.ResponseWriter, status int, payload interface{})
	respondError   func(w http.ResponseWriter, status int, message string, details ...[]string)
}

func NewHandler(
	accountService Service,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, details ...[]string),
) *Handler {
	return &Handler{
		accountService: accountService,
		respondJSON:    respondJSON,
		respondError:   respondError,
	}
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (session.Principal, bool) {
	p, ok := session.FromContext(r.Context())
	if !ok || p.AccountID == "" {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return p, false
	}
	return p, true
}

func (h *Handler) memberID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.PathUUID(r, "memberID")
	if !ok {
		h.respondError(w, http.StatusNotFound, "Member not found")
		return "", false
	}
	return id.String(), true
}

// handleServiceError maps account errors onto HTTP statuses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, ErrForbidden):
		h.respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrMemberNotFound), errors.Is(err, ErrInvitationNotFound):
		h.respondError(w, http.StatusNotFound, capitalize(err.Error()))
	case errors.Is(err, ErrDuplicateInvite), errors.Is(err, ErrAlreadyMember), errors.Is(err, ErrInvitationAccepted):
		h.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidMode), errors.Is(err, ErrInvalidCurrency), errors.Is(err, ErrInvalidAccountName),
		errors.Is(err, ErrInvalidRole), errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrOwnerImmutable),
		errors.Is(err, ErrInvalidInviteToken), errors.Is(err, ErrCannotInviteYourself):
		h.respondError(w, http.StatusBadRequest, err.Error())
	default:
		logger.FromContext(r.Context()).Error().Err(err).Msg(fallback)
		h.respondError(w, http.StatusInternalServerError, fallback)
	}
}

func (h *Handler) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	a, err := h.accountService.GetAccount(r.Context(), p.AccountID)
	if err != nil {
		h.handleServiceError(w, r, err, "Failed to retrieve account")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data": map[string]interface{}{
			"account": a,
			"role":    p.Role,
		},
	})
}

func (h *Handler) HandleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	a, err := h.accountService.UpdateAccount(r.Context(), p, req)
	if err != nil {
		h.handleServiceError(w, r, err, "Failed to update account")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Account updated successfully.",
		"data":    a,
	})
}

func (h *Handler) HandleListMembers(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	members, err := h.accountService.ListMembers(r.Context(), p)
	if err != nil {
		h.handleServiceError(w, r, err, "Failed to retrieve members")
		return
	}
	if members == nil {
		members = []Member{}
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   members,
	})
}

func (h *Handler) HandleInviteMember(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}

	var req InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	m, err := h.accountService.Invite(r.Context(), p, req)
	if err != nil {
		h.handleServiceError(w, r, err, "Failed to send invitation")
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status":  "success",
		"message": "Invitation sent.",
		"data":    m,
	})
}

func (h *Handler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	memberID, ok := h.memberID(w, r)
	if !ok {
		return
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.accountService.ChangeRole(r.Context(), p, memberID, req.Role); err != nil {
		h.handleServiceError(w, r, err, "Failed to update member")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Member role updated.",
	})
}

func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	memberID, ok := h.memberID(w, r)
	if !ok {
		return
	}

	if err := h.accountService.RemoveMember(r.Context(), p, memberID); err != nil {
		h.handleServiceError(w, r, err, "Failed to remove member")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Member removed.",
	})
}

func (h *Handler) HandleListInvitations(w http.ResponseWriter, r *http.Request) {
	p, ok := session.FromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	invitations, err := h.accountService.ListInvitations(r.Context(), p)
	if err != nil {
		h.handleServiceError(w, r, err, "Failed to retrieve invitations")
		return
	}
	if invitations == nil {
		invitations = []Invitation{}
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   invitations,
	})
}

func (h *Handler) HandleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	p, ok := session.FromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	memberID, ok := h.memberID(w, r)
	if !ok {
		return
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.accountService.AcceptInvitation(r.Context(), p, memberID, req.Token); err != nil {
		h.handleServiceError(w, r, err, "Failed to accept invitation")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Invitation accepted.",
	})
}

func (h *Handler) HandleDeclineInvitation(w http.ResponseWriter, r *http.Request) {
	p, ok := session.FromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	memberID, ok := h.memberID(w, r)
	if !ok {
		return
	}

	if err := h.accountService.DeclineInvitation(r.Context(), p, memberID); err != nil {
		h.handleServiceError(w, r, err, "Failed to decline invitation")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Invitation declined.",
	})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
