package auth

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/hisaabkitaab/hisaabkitaab/internal/middleware"
	"github.com/hisaabkitaab/hisaabkitaab/internal/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	svix "github.com/svix/svix-webhooks/go"
)

var testWebhookSecret = "whsec_" + base64.StdEncoding.EncodeToString([]byte("hisaabkitaab-webhook-test-secret"))

func signedEvent(t *testing.T, payload string) *http.Request {
	t.Helper()
	wh, err := svix.NewWebhook(testWebhookSecret)
	require.NoError(t, err)

	now := time.Now()
	signature, err := wh.Sign("msg_1", now, []byte(payload))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/identity", bytes.NewBufferString(payload))
	req.Header.Set("svix-id", "msg_1")
	req.Header.Set("svix-timestamp", strconv.FormatInt(now.Unix(), 10))
	req.Header.Set("svix-signature", signature)
	return req
}

func newTestWebhookHandler(t *testing.T, profiles *fakeProfiles) *WebhookHandler {
	t.Helper()
	h, err := NewWebhookHandler(testWebhookSecret, profiles, middleware.RespondJSON, middleware.RespondError)
	require.NoError(t, err)
	return h
}

const userCreated = `{
	"type": "user.created",
	"data": {
		"id": "user_1",
		"first_name": "Ayesha",
		"last_name": "Khan",
		"primary_email_address_id": "idn_2",
		"email_addresses": [
			{"id": "idn_1", "email_address": "old@example.com"},
			{"id": "idn_2", "email_address": "ayesha@example.com"}
		],
		"phone_numbers": [{"id": "phn_1", "phone_number": "+923001234567"}]
	}
}`

func TestHandleIdentityEvent_Upsert(t *testing.T) {
	profiles := newFakeProfiles()
	h := newTestWebhookHandler(t, profiles)

	w := httptest.NewRecorder()
	h.HandleIdentityEvent(w, signedEvent(t, userCreated))

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, profiles.upserts, 1)
	assert.Equal(t, profile.Identity{
		ExternalID: "user_1",
		Email:      "ayesha@example.com",
		FullName:   "Ayesha Khan",
		Phone:      "+923001234567",
	}, profiles.upserts[0])
}

func TestHandleIdentityEvent_Delete(t *testing.T) {
	profiles := newFakeProfiles()
	profiles.byExternal["user_1"] = &profile.Profile{ID: "p1", ExternalID: "user_1"}
	h := newTestWebhookHandler(t, profiles)

	payload := `{"type":"user.deleted","data":{"id":"user_1","deleted":true}}`
	w := httptest.NewRecorder()
	h.HandleIdentityEvent(w, signedEvent(t, payload))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"user_1"}, profiles.deleted)

	// redelivery of an already applied delete still succeeds
	w = httptest.NewRecorder()
	h.HandleIdentityEvent(w, signedEvent(t, payload))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleIdentityEvent_Rejects(t *testing.T) {
	profiles := newFakeProfiles()
	h := newTestWebhookHandler(t, profiles)

	req := signedEvent(t, userCreated)
	req.Header.Set("svix-signature", "v1,bm90LWEtc2lnbmF0dXJl")
	w := httptest.NewRecorder()
	h.HandleIdentityEvent(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	h.HandleIdentityEvent(w, signedEvent(t, `{"type":"user.created","data":{}}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.HandleIdentityEvent(w, signedEvent(t, `{"type":"session.created","data":{"id":"sess_1"}}`))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, profiles.upserts)
}

func TestHandleIdentityEvent_NotConfigured(t *testing.T) {
	h, err := NewWebhookHandler("", newFakeProfiles(), middleware.RespondJSON, middleware.RespondError)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	h.HandleIdentityEvent(w, httptest.NewRequest(http.MethodPost, "/api/webhooks/identity", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
