package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON / writeError so all routes share
// one envelope:
//
//	success: route-specific JSON object or array
//	failure: {"error": "<message>"}
//
// Only validation messages are echoed back. Every other failure is logged
// and replaced by the route's fallback message.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/kastor/polyglot-gateway/internal/apperror"
)

// maxBodyBytes caps request bodies on every JSON route.
const maxBodyBytes = 1 << 20

// msgInvalidJSON is returned for bodies that are not a JSON object.
const msgInvalidJSON = "invalid JSON body"

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON sends data as JSON with the given status code.
// Headers and status must be written before the body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps err to a status code and writes {"error": ...}.
//
//	apperror.ErrValidation     → 400 with the validation message
//	anything else              → 500 with fallback
//
// Connection, store-operation and not-connected errors all land in the 500
// branch; their detail goes to the log, never to the client.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error, fallback string) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && errors.Is(err, apperror.ErrValidation) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: appErr.Message})
		return
	}

	attrs := []any{slog.String("error", err.Error())}
	if errors.Is(err, apperror.ErrNotConnected) {
		// A contract violation, not a transient failure.
		attrs = append(attrs, slog.Bool("defect", true))
	}
	logger.Error(fallback, attrs...)

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: fallback})
}

// decodeJSON reads a single JSON object from the request body into dst.
//
// Malformed JSON (including an empty body) becomes a validation error.
// A failure to read the body at all is returned as-is and ends up a 500.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.ValidationFailed("body", "request body too large")
		}
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return apperror.ValidationFailed("body", msgInvalidJSON)
	}
	return nil
}
