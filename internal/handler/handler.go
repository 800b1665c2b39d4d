// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/mailauth/mailauth/internal/handler/dto"
	"github.com/mailauth/mailauth/internal/service"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// Handler serves the root and fallback endpoints.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// Hello reports the service name and version.
// GET /
func (h *Handler) Hello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "mailauth",
		"version": Version,
	})
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
}

// kindStatus maps workflow error kinds to HTTP statuses.
var kindStatus = map[service.Kind]int{
	service.KindDuplicateUser:      http.StatusConflict,
	service.KindUserNotFound:       http.StatusNotFound,
	service.KindInvalidCredentials: http.StatusUnauthorized,
	service.KindUnauthenticated:    http.StatusUnauthorized,
	service.KindMissingEmail:       http.StatusBadRequest,
	service.KindMissingCode:        http.StatusBadRequest,
	service.KindInvalidInput:       http.StatusBadRequest,
	service.KindNoOTPFound:         http.StatusNotFound,
	service.KindExpiredCode:        http.StatusGone,
	service.KindIncorrectCode:      http.StatusBadRequest,
	service.KindEmailDispatch:      http.StatusBadGateway,
}

// writeServiceError maps a workflow error to its HTTP response. Errors
// without a kind are logged and reported as 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		if status, ok := kindStatus[svcErr.Kind]; ok {
			if status >= http.StatusInternalServerError {
				logger.ErrorContext(r.Context(), "upstream failure", "kind", svcErr.Kind, "error", err)
			}
			writeError(w, status, string(svcErr.Kind), svcErr.Message)
			return
		}
	}

	logger.ErrorContext(r.Context(), "internal_error", "error", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
}

// decodeJSON decodes the request body into dst. It reports whether the
// body was usable and writes the error response otherwise.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is required")
		default:
			writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		}
		return false
	}
	return true
}

// writeError writes the standard error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{Error: dto.ErrorDetail{Code: code, Message: message}})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
