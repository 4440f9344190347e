package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("JSON encoding error")
	}
}

// RespondError writes {status, error, code} and, when given, a details list.
func RespondError(w http.ResponseWriter, status int, message string, details ...[]string) {
	payload := map[string]interface{}{
		"status": "error",
		"error":  message,
		"code":   status,
	}
	if len(details) > 0 && len(details[0]) > 0 {
		payload["details"] = details[0]
	}
	RespondJSON(w, status, payload)
}
