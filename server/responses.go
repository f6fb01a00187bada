package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/go-property-market/internal/errors"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	maxJSONBody     = 1 << 20 // 1 MiB
)

// errorResponse is the body of every non-2xx JSON response
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorMapping struct {
	sentinel error
	status   int
	code     string
}

// errorMappings is checked in order; the first sentinel in the chain wins
var errorMappings = []errorMapping{
	{apperrors.ErrValidation, http.StatusBadRequest, "invalid_request"},
	{apperrors.ErrInvalidOTP, http.StatusBadRequest, "invalid_code"},
	{apperrors.ErrOTPExpired, http.StatusBadRequest, "expired_code"},
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{apperrors.ErrInvalidToken, http.StatusUnauthorized, "invalid_token"},
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, "invalid_token"},
	{apperrors.ErrTokenRevoked, http.StatusUnauthorized, "invalid_token"},
	{apperrors.ErrInvalidRefreshToken, http.StatusUnauthorized, "invalid_grant"},
	{apperrors.ErrRefreshTokenExpired, http.StatusUnauthorized, "invalid_grant"},
	{apperrors.ErrUserBlocked, http.StatusForbidden, "user_blocked"},
	{apperrors.ErrUserNotVerified, http.StatusForbidden, "email_not_verified"},
	{apperrors.ErrForbidden, http.StatusForbidden, "forbidden"},
	{apperrors.ErrUserNotFound, http.StatusNotFound, "not_found"},
	{apperrors.ErrNotFound, http.StatusNotFound, "not_found"},
	{apperrors.ErrEmailTaken, http.StatusConflict, "email_taken"},
	{apperrors.ErrPropertyUnavailable, http.StatusConflict, "property_unavailable"},
	{apperrors.ErrConflict, http.StatusConflict, "conflict"},
	{apperrors.ErrOTPAttemptsExceeded, http.StatusTooManyRequests, "too_many_attempts"},
	{apperrors.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}

// writeJSONError writes an error body with an explicit code
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	writeJSON(w, statusCode, errorResponse{Error: errorCode, ErrorDescription: description})
}

// writeError maps a service error onto a status code. Unknown errors are logged and
// reported as a bare 500 so internals never reach the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMappings {
		if !apperrors.Is(err, m.sentinel) {
			continue
		}
		description := m.sentinel.Error()
		if m.sentinel == apperrors.ErrValidation {
			description = validationMessage(err)
		}
		writeJSONError(w, m.code, description, m.status)
		return
	}

	log.Error().Err(err).
		Str("request_id", RequestIDFromContext(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("request failed")
	writeJSONError(w, "server_error", apperrors.ErrInternal.Error(), http.StatusInternalServerError)
}

func validationMessage(err error) string {
	msg := err.Error()
	prefix := apperrors.ErrValidation.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return msg
}

// decodeJSON reads a single JSON object of at most 1 MiB, rejecting unknown fields
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case apperrors.Is(err, io.EOF):
			return apperrors.Validationf("request body is required")
		case apperrors.As(err, &maxErr):
			return apperrors.Validationf("request body must be at most %d bytes", maxErr.Limit)
		default:
			return apperrors.Validationf("invalid JSON body: %s", err.Error())
		}
	}
	if dec.More() {
		return apperrors.Validationf("request body must contain a single JSON object")
	}
	return nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.Validationf("%s must be an integer", name)
	}
	return v, nil
}

func queryInt64(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.Validationf("%s must be an integer", name)
	}
	return v, nil
}

func queryBool(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperrors.Validationf("%s must be true or false", name)
	}
	return v, nil
}

// pagination reads offset and limit; the services clamp them
func pagination(r *http.Request) (int, int, error) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		return 0, 0, err
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		return 0, 0, err
	}
	return offset, limit, nil
}
