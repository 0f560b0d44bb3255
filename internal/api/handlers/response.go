package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/zatekoja/clinicflow/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/clinicflow/pkg/errors"
)

const maxBodyBytes = 1 << 20

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// statusFor maps an application error type to an HTTP status
func statusFor(t apperrors.ErrorType) int {
	switch t {
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeConflict, apperrors.ErrorTypeInvalidTransition:
		return http.StatusConflict
	case apperrors.ErrorTypeEmptyBill:
		return http.StatusUnprocessableEntity
	case apperrors.ErrorTypeStoreUnavailable:
		return http.StatusServiceUnavailable
	case apperrors.ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrorTypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondWithAppError writes err with the status its type maps to. Internal
// details are logged, not returned.
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		observability.LoggerFromContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("unhandled error")
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	status := statusFor(appErr.Type)
	if status >= http.StatusInternalServerError {
		observability.LoggerFromContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		if appErr.Type == apperrors.ErrorTypeInternal {
			respondWithError(w, status, "internal server error")
			return
		}
	}

	respondWithJSON(w, status, map[string]string{
		"error": appErr.Message,
		"code":  string(appErr.Type),
	})
}

// decodeJSON reads a JSON body into dst, rejecting unknown fields
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.NewValidationError("invalid request payload: " + err.Error())
	}
	return nil
}

// optionalString returns nil for a blank value
func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
