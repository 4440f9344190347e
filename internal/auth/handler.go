package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/hisaabkitaab/hisaabkitaab/internal/logger"
	"github.com/hisaabkitaab/hisaabkitaab/internal/profile"
	svix "github.com/svix/svix-webhooks/go"
)

const maxWebhookBody = 1 << 20

// IdentitySync applies identity provider events to local profiles.
type IdentitySync interface {
	UpsertFromIdentity(ctx context.Context, identity profile.Identity) (*profile.Profile, error)
	DeleteByExternalID(ctx context.Context, externalID string) error
}

type identityEvent struct {
	Type string           `json:"type"`
	Data identityUserData `json:"data"`
}

type identityUserData struct {
	ID                    string `json:"id"`
	FirstName             string `json:"first_name"`
	LastName              string `json:"last_name"`
	PrimaryEmailAddressID string `json:"primary_email_address_id"`
	PrimaryPhoneNumberID  string `json:"primary_phone_number_id"`
	EmailAddresses        []struct {
		ID           string `json:"id"`
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
	PhoneNumbers []struct {
		ID          string `json:"id"`
		PhoneNumber string `json:"phone_number"`
	} `json:"phone_numbers"`
}

func (d identityUserData) identity() profile.Identity {
	identity := profile.Identity{
		ExternalID: d.ID,
		FullName:   strings.TrimSpace(d.FirstName + " " + d.LastName),
	}
	for i, e := range d.EmailAddresses {
		if e.ID == d.PrimaryEmailAddressID || (i == 0 && identity.Email == "") {
			identity.Email = e.EmailAddress
		}
	}
	for i, p := range d.PhoneNumbers {
		if p.ID == d.PrimaryPhoneNumberID || (i == 0 && identity.Phone == "") {
			identity.Phone = p.PhoneNumber
		}
	}
	return identity
}

type WebhookHandler struct {
	webhook      *svix.Webhook
	profiles     IdentitySync
	respondJSON  func(w http.ResponseWriter, status int, payload interface{})
	respondError func(w http.ResponseWriter, status int, message string, details ...[]string)
}

// NewWebhookHandler returns a handler for identity events. An empty secret
// disables the endpoint.
func NewWebhookHandler(
	secret string,
	profiles IdentitySync,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, details ...[]string),
) (*WebhookHandler, error) {
	h := &WebhookHandler{profiles: profiles, respondJSON: respondJSON, respondError: respondError}
	if secret == "" {
		return h, nil
	}
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, err
	}
	h.webhook = wh
	return h, nil
}

func (h *WebhookHandler) HandleIdentityEvent(w http.ResponseWriter, r *http.Request) {
	if h.webhook == nil {
		h.respondError(w, http.StatusServiceUnavailable, "Identity webhooks are not configured")
		return
	}
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	log := logger.FromContext(r.Context())
	if err := h.webhook.Verify(payload, r.Header); err != nil {
		log.Warn().Err(err).Msg("Rejected identity webhook")
		h.respondError(w, http.StatusUnauthorized, "Invalid webhook signature")
		return
	}

	var event identityEvent
	if err := json.Unmarshal(payload, &event); err != nil || event.Data.ID == "" {
		h.respondError(w, http.StatusBadRequest, "Invalid event payload")
		return
	}

	switch event.Type {
	case "user.created", "user.updated":
		_, err = h.profiles.UpsertFromIdentity(r.Context(), event.Data.identity())
	case "user.deleted":
		err = h.profiles.DeleteByExternalID(r.Context(), event.Data.ID)
		if errors.Is(err, profile.ErrProfileNotFound) {
			err = nil
		}
	default:
		log.Debug().Str("type", event.Type).Msg("Ignoring identity event")
	}
	if err != nil {
		log.Error().Err(err).Str("type", event.Type).Str("external_id", event.Data.ID).Msg("Applying identity event failed")
		h.respondError(w, http.StatusInternalServerError, "Failed to apply event")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Event processed",
	})
}
