package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/reagankangfitness-droid/sweatbuddy-sea-web-sub003/internal/wave"
)

const (
	codeNotFound     = "not_found"
	codeForbidden    = "forbidden"
	codeValidation   = "validation_error"
	codeUnauthorized = "unauthorized"
	codeInternal     = "internal_error"
	codeUnavailable  = "unavailable"
)

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: code, Message: message})
}

// writeEngineError maps engine errors onto HTTP statuses. Anything
// unrecognised is logged and reported as a 500 without details.
func writeEngineError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	var ve *wave.ValidationError
	var fieldErrs validator.ValidationErrors
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: codeValidation, Message: ve.Error(), Field: ve.Field})
	case errors.As(err, &fieldErrs) && len(fieldErrs) > 0:
		fe := fieldErrs[0]
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:   codeValidation,
			Message: "invalid " + fe.Field() + ": failed " + fe.Tag(),
			Field:   fe.Field(),
		})
	case wave.IsNotFound(err):
		writeError(w, http.StatusNotFound, codeNotFound, wave.ErrNotFound.Error())
	case wave.IsForbidden(err):
		writeError(w, http.StatusForbidden, codeForbidden, wave.ErrForbidden.Error())
	default:
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}
