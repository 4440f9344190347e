package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type pathParamKey string

type ErrorResponder func(w http.ResponseWriter, status int, message string, details ...[]string)

// ValidateUUIDPathParams parses each named path value as a UUID and stores it
// in the request context. Malformed ids are reported as not found.
func ValidateUUIDPathParams(respondError ErrorResponder, params ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, param := range params {
				paramValue := r.PathValue(param)
				if paramValue == "" {
					respondError(w, http.StatusBadRequest, capitalizeFirstLetter(fmt.Sprintf("%s is required", param)))
					return
				}

				parsed, err := uuid.Parse(paramValue)
				if err != nil {
					respondError(w, http.StatusNotFound, notFoundMessage(param))
					return
				}
				r = r.WithContext(context.WithValue(r.Context(), pathParamKey(param), parsed))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PathUUID returns a path parameter validated by ValidateUUIDPathParams,
// falling back to parsing the raw path value.
func PathUUID(r *http.Request, param string) (uuid.UUID, bool) {
	if id, ok := r.Context().Value(pathParamKey(param)).(uuid.UUID); ok {
		return id, true
	}
	id, err := uuid.Parse(r.PathValue(param))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func notFoundMessage(param string) string {
	switch param {
	case "transactionID":
		return "Transaction not found"
	case "memberID":
		return "Member not found"
	case "callID":
		return "Call not found"
	default:
		return capitalizeFirstLetter(strings.TrimSuffix(param, "ID")) + " not found"
	}
}

func capitalizeFirstLetter(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(string(s[0])) + s[1:]
}
