// Package handler translates HTTP requests into service calls and service
// results into the JSON envelopes the frontend expects.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/policyops/acctd/internal/model"
	"github.com/policyops/acctd/internal/query"
	"github.com/policyops/acctd/internal/service"
	"github.com/policyops/acctd/internal/store"
)

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a structured error response using the standard error
// envelope. The optional ctx map provides additional context fields.
func writeError(w http.ResponseWriter, code int, message string, ctx ...map[string]interface{}) {
	var ctxMap map[string]interface{}
	if len(ctx) > 0 {
		ctxMap = ctx[0]
	}
	writeJSON(w, code, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    code,
			Message: message,
			Context: ctxMap,
		},
	})
}

// writeServiceError maps service-layer failures onto the error taxonomy:
// caller mistakes are 400s, auth failures 401/403, missing rows 404, and
// anything else surfaces as a database error.
func writeServiceError(w http.ResponseWriter, err error) {
	var inputErr service.InputError
	if errors.As(err, &inputErr) {
		writeError(w, http.StatusBadRequest, inputErr.Error())
		return
	}

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, "Payload validation failed",
			map[string]interface{}{"fields": validationErr.Fields})
		return
	}

	switch {
	case errors.Is(err, query.ErrInvalidFilterField),
		errors.Is(err, query.ErrInvalidIdentifier),
		errors.Is(err, query.ErrNoInsertColumns),
		errors.Is(err, query.ErrNoKeyColumns):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrMissingCredentials):
		writeError(w, http.StatusBadRequest, "Email and password are required")
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrWrongPassword):
		writeError(w, http.StatusUnauthorized, "Incorrect password")
	case errors.Is(err, service.ErrNotAuthenticated),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "Not authenticated")
	case errors.Is(err, service.ErrUnauthorizedGroup):
		writeError(w, http.StatusForbidden, "No authorized group membership")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// readJSON decodes the request body as JSON into v. The body is closed after
// decoding regardless of success or failure.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// readRows accepts either a JSON array of objects or a single object, which
// the legacy frontend sends interchangeably.
func readRows(r *http.Request) ([]map[string]any, error) {
	defer r.Body.Close()
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var rows []map[string]any
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, err
		}
		return rows, nil
	}

	var row map[string]any
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, err
	}
	return []map[string]any{row}, nil
}

// queryFilters converts the request's query string into ordered filters,
// preserving parameter order so WHERE clauses are deterministic. A repeated
// key keeps its first position but takes the last value, so `?A=1&A=2`
// filters on A = 2 rather than producing a contradiction.
func queryFilters(r *http.Request) query.Filters {
	var filters query.Filters
	seen := make(map[string]int)
	for _, pair := range strings.Split(r.URL.RawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		decodedKey, err := url.QueryUnescape(key)
		if err != nil {
			decodedKey = key
		}
		decodedValue, err := url.QueryUnescape(value)
		if err != nil {
			decodedValue = value
		}
		if i, ok := seen[decodedKey]; ok {
			filters[i].Value = decodedValue
			continue
		}
		seen[decodedKey] = len(filters)
		filters = append(filters, query.Filter{Column: decodedKey, Value: decodedValue})
	}
	return filters
}

// queryString extracts a string query parameter.
func queryString(r *http.Request, key string) string {
	return r.URL.Query().Get(key)
}
