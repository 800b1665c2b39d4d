package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mailauth/mailauth/internal/handler/dto"
	"github.com/mailauth/mailauth/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorDetail {
	t.Helper()
	var response dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return response.Error
}

func TestHandler_Hello(t *testing.T) {
	h := New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	h.Hello(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	contentType := rec.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", contentType)
	}

	var response map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response["service"] != "mailauth" {
		t.Errorf("unexpected service: %s", response["service"])
	}
	if response["version"] != Version {
		t.Errorf("unexpected version: %s", response["version"])
	}
}

func TestHandler_NotFound(t *testing.T) {
	h := New()

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	rec := httptest.NewRecorder()

	h.NotFound(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
	if got := decodeError(t, rec).Code; got != "NOT_FOUND" {
		t.Errorf("unexpected error code: %s", got)
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h := New()

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()

	h.MethodNotAllowed(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rec.Code)
	}
	if got := decodeError(t, rec).Code; got != "METHOD_NOT_ALLOWED" {
		t.Errorf("unexpected error code: %s", got)
	}
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{service.ErrDuplicateUser, http.StatusConflict, "DUPLICATE_USER"},
		{service.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
		{service.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{service.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED"},
		{service.ErrMissingEmail, http.StatusBadRequest, "MISSING_EMAIL"},
		{service.ErrMissingCode, http.StatusBadRequest, "MISSING_CODE"},
		{service.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
		{service.ErrNoOTPFound, http.StatusNotFound, "NO_OTP_FOUND"},
		{service.ErrExpiredCode, http.StatusGone, "EXPIRED_CODE"},
		{service.ErrIncorrectCode, http.StatusBadRequest, "INCORRECT_CODE"},
		{
			&service.Error{Kind: service.KindEmailDispatch, Message: "failed to send email", Err: errors.New("smtp down")},
			http.StatusBadGateway, "EMAIL_DISPATCH",
		},
		{fmt.Errorf("wrapped: %w", service.ErrExpiredCode), http.StatusGone, "EXPIRED_CODE"},
		{errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()

			writeServiceError(rec, req, discardLogger(), tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := decodeError(t, rec).Code; got != tt.wantCode {
				t.Errorf("code = %s, want %s", got, tt.wantCode)
			}
		})
	}
}

func TestWriteServiceError_HidesInternalDetail(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	writeServiceError(rec, req, discardLogger(), errors.New("pq: password authentication failed"))

	if got := decodeError(t, rec).Message; got != "An internal error occurred" {
		t.Errorf("message leaked internal detail: %q", got)
	}
}
