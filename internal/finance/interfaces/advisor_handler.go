package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/hisaabkitaab/hisaabkitaab/internal/ai"
	"github.com/hisaabkitaab/hisaabkitaab/internal/session"
)

const maxAdvisorMessageLength = 2000

type AdvisorInterface interface {
	Chat(ctx context.Context, req ai.ChatRequest, tools ai.Tools) (*ai.ChatResponse, error)
}

// ToolsFactory binds advisor tools to the calling principal.
type ToolsFactory func(p session.Principal) ai.Tools

// CurrencyLookup returns the account's currency code for prompts.
type CurrencyLookup func(ctx context.Context, accountID string) string

type AdvisorHandler struct {
	advisor      AdvisorInterface
	tools        ToolsFactory
	currency     CurrencyLookup
	respondJSON  func(w http.ResponseWriter, status int, payload interface{})
	respondError func(w http.ResponseWriter, status int, message string, details ...[]string)
	now          func() time.Time
}

func NewAdvisorHandler(
	advisor AdvisorInterface,
	tools ToolsFactory,
	currency CurrencyLookup,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, details ...[]string),
) *AdvisorHandler {
	if advisor == nil || tools == nil || respondJSON == nil || respondError == nil {
		panic("Advisor, tools and response functions must not be nil")
	}
	return &AdvisorHandler{advisor: advisor, tools: tools, currency: currency, respondJSON: respondJSON, respondError: respondError, now: time.Now}
}

func (h *AdvisorHandler) Chat(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r, h.respondError)
	if !ok {
		return
	}
	var req ai.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		h.respondError(w, http.StatusBadRequest, "Message must not be empty")
		return
	}
	if len([]rune(req.Message)) > maxAdvisorMessageLength {
		h.respondError(w, http.StatusBadRequest, "Message is too long")
		return
	}
	if req.Language == "" {
		req.Language = p.Language
	}
	req.Today = h.now()
	if h.currency != nil {
		req.Currency = h.currency(r.Context(), p.AccountID)
	}

	resp, err := h.advisor.Chat(r.Context(), req, h.tools(p))
	if err != nil {
		writeServiceError(w, r, h.respondError, err, "The advisor could not answer")
		return
	}
	h.respondJSON(w, http.StatusOK, success("Advisor replied.", resp))
}
