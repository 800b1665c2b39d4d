package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/mailauth/mailauth/internal/auth"
	"github.com/mailauth/mailauth/internal/metrics"
	"github.com/mailauth/mailauth/internal/model"
	"github.com/mailauth/mailauth/internal/repository"
)

// AuthService handles registration, login and token refresh.
type AuthService struct {
	users   UserStore
	hasher  auth.PasswordHasher
	tokens  TokenIssuer
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, hasher auth.PasswordHasher, tokens TokenIssuer, recorder metrics.Recorder, logger *slog.Logger) *AuthService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		metrics: recorder,
		logger:  logger.With("component", "auth_service"),
	}
}

// RegisterInput defines input for creating an account.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Profile  map[string]any
}

// Register creates an account and returns its view with a fresh token pair.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*model.AuthResult, error) {
	email := model.NormalizeEmail(input.Email)
	if email == "" {
		return nil, ErrMissingEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalidInput("email is not a valid address")
	}
	if input.Password == "" {
		return nil, invalidInput("password is required")
	}

	_, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, ErrDuplicateUser
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, invalidInput(err.Error())
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     input.FullName,
		Profile:      input.Profile,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	tokens, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	s.metrics.IncRegistration()
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)

	return model.NewAuthResult(user, tokens), nil
}

// Login checks credentials and returns a fresh token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.AuthResult, error) {
	user, err := s.users.GetUserByEmail(ctx, model.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.IncLogin(metrics.StatusNotFound)
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		s.metrics.IncLogin(metrics.StatusFailed)
		s.logger.InfoContext(ctx, "login rejected", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	tokens, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	s.metrics.IncLogin(metrics.StatusSuccess)
	return model.NewAuthResult(user, tokens), nil
}

// Refresh exchanges a valid refresh token for a fresh pair. A token whose
// user no longer exists fails with UserNotFound.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*model.AuthResult, error) {
	userID, err := s.tokens.Verify(refreshToken)
	if err != nil {
		s.metrics.IncRefresh(metrics.StatusFailed)
		s.logger.DebugContext(ctx, "refresh token rejected", "error", err)
		return nil, ErrUnauthenticated
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.IncRefresh(metrics.StatusNotFound)
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	tokens, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	s.metrics.IncRefresh(metrics.StatusSuccess)
	return model.NewAuthResult(user, tokens), nil
}

// Authenticate verifies an access token and returns its user ID.
func (s *AuthService) Authenticate(token string) (string, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return "", ErrUnauthenticated
	}
	return userID, nil
}

// CurrentUser returns the redacted view of userID.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*model.UserView, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	view := user.View()
	return &view, nil
}
