// Package httpjson is the shared JSON request/response helper for the API
// handlers: one place that sets headers, maps apperr kinds to status
// codes, and bounds request body size.
package httpjson

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/canvashub/canvashub/internal/app/system/apperr"
)

// maxBodyBytes bounds JSON request bodies. Image uploads ride inside
// JSON as base64, so the cap is generous.
const maxBodyBytes = 16 << 20

// Write encodes v as JSON with the given status.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes v with 200.
func OK(w http.ResponseWriter, v any) { Write(w, http.StatusOK, v) }

// Created writes v with 201.
func Created(w http.ResponseWriter, v any) { Write(w, http.StatusCreated, v) }

type errBody struct {
	Error string `json:"error"`
}

// StatusFor maps an error's kind to an HTTP status code.
func StatusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.Unauthenticated:
		return http.StatusUnauthorized
	case apperr.PermissionDenied:
		return http.StatusForbidden
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.InvalidState:
		return http.StatusConflict
	case apperr.LimitExceeded:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as a JSON error response. Unclassified errors are
// logged and surfaced as a generic 500.
func Error(w http.ResponseWriter, log *zap.Logger, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError && log != nil {
		log.Error("request failed", zap.Error(err))
	}
	Write(w, status, errBody{Error: apperr.Message(err)})
}

// Fail writes a plain error message with an explicit status.
func Fail(w http.ResponseWriter, status int, message string) {
	Write(w, status, errBody{Error: message})
}

// Decode parses the request body into dst, rejecting unknown fields and
// oversized bodies. Returns a Validation error on any failure.
func Decode(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperr.Validationf("request body too large")
		}
		return apperr.Wrap(err, apperr.Validation, "invalid request body")
	}
	return nil
}
