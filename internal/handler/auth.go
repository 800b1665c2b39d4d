package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mailauth/mailauth/internal/auth"
	"github.com/mailauth/mailauth/internal/handler/dto"
	"github.com/mailauth/mailauth/internal/middleware"
	"github.com/mailauth/mailauth/internal/model"
	"github.com/mailauth/mailauth/internal/service"
)

// AuthService is the account workflow the handler drives.
type AuthService interface {
	Register(ctx context.Context, input service.RegisterInput) (*model.AuthResult, error)
	Login(ctx context.Context, email, password string) (*model.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*model.AuthResult, error)
	CurrentUser(ctx context.Context, userID string) (*model.UserView, error)
}

// AuthHandler handles account endpoints.
type AuthHandler struct {
	svc    AuthService
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:    svc,
		logger: logger,
	}
}

// Register creates an account.
// POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := validateRegister(req); err != nil {
		writeError(w, http.StatusBadRequest, string(service.KindInvalidInput), err.Error())
		return
	}

	result, err := h.svc.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Profile:  req.Profile,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// validateRegister applies the transport limits. An empty email is left to
// the workflow so it surfaces as MISSING_EMAIL; password rules depend on the
// hashing algorithm and are enforced by the workflow.
func validateRegister(req dto.RegisterRequest) error {
	if req.Email != "" {
		if err := middleware.ValidateEmail(req.Email); err != nil {
			return err
		}
	}
	return middleware.ValidateFullName(req.FullName)
}

// Login exchanges credentials for a token pair.
// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Refresh exchanges a refresh token for a new token pair.
// POST /api/v1/auth/login/access-token
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Me returns the authenticated user.
// GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeServiceError(w, r, h.logger, service.ErrUnauthenticated)
		return
	}

	view, err := h.svc.CurrentUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}
