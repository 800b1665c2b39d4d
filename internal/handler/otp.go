package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mailauth/mailauth/internal/handler/dto"
)

// OTPService is the verification-code workflow the handler drives.
type OTPService interface {
	SendVerification(ctx context.Context, address string, userRequired bool) (string, error)
	Verify(ctx context.Context, address, code string) (string, error)
}

// OTPHandler handles verification-code endpoints.
type OTPHandler struct {
	svc    OTPService
	logger *slog.Logger
}

// NewOTPHandler creates a new OTPHandler.
func NewOTPHandler(svc OTPService, logger *slog.Logger) *OTPHandler {
	return &OTPHandler{
		svc:    svc,
		logger: logger,
	}
}

// SendOTP mails a fresh code.
// POST /api/v1/mail/send-otp
func (h *OTPHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req dto.SendOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	message, err := h.svc.SendVerification(r.Context(), req.Email, req.IsUser)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: message})
}

// VerifyOTP checks a submitted code.
// POST /api/v1/mail/verify-otp
func (h *OTPHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	message, err := h.svc.Verify(r.Context(), req.Email, req.OTP)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: message})
}
