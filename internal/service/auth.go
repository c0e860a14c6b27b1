// Package service contains the application services that sit between
// the HTTP handlers and the store.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nookapp/nook-server/internal/auth"
	"github.com/nookapp/nook-server/internal/domain"
	domainerrors "github.com/nookapp/nook-server/internal/errors"
	"github.com/nookapp/nook-server/internal/id"
	"github.com/nookapp/nook-server/internal/ratelimit"
	"github.com/nookapp/nook-server/internal/store"
	"github.com/nookapp/nook-server/internal/validation"
)

// AuthService handles registration, login, email verification, and
// refresh-token session management.
type AuthService struct {
	store         store.Store
	tokens        *auth.TokenService
	loginLimiter  *ratelimit.KeyedRateLimiter
	resendLimiter *ratelimit.KeyedRateLimiter
	validate      *validation.Validator
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	st store.Store,
	tokens *auth.TokenService,
	loginLimiter *ratelimit.KeyedRateLimiter,
	resendLimiter *ratelimit.KeyedRateLimiter,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:         st,
		tokens:        tokens,
		loginLimiter:  loginLimiter,
		resendLimiter: resendLimiter,
		validate:      validation.New(),
		logger:        logger,
	}
}

// RegisterRequest contains user registration data.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=1024"`
	DisplayName string `json:"display_name" validate:"omitempty,max=50"`
}

// RegisterResponse contains the result of a registration request.
type RegisterResponse struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// LoginRequest contains user credentials.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IPAddress string `json:"-"` // Extracted from request by handler
	UserAgent string `json:"-"`
}

// AuthResponse contains authentication tokens and the identity.
type AuthResponse struct {
	User         *domain.Identity `json:"user"`
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	ExpiresAt    time.Time        `json:"expires_at"`
}

// Register creates a new unverified user and issues a verification
// token. No profile is created here; provisioning happens only after
// the email is verified.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate("user")
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	verificationToken, err := auth.GenerateVerificationToken()
	if err != nil {
		return nil, fmt.Errorf("generate verification token: %w", err)
	}

	user := &domain.User{
		ID:                    userID,
		Email:                 req.Email,
		PasswordHash:          passwordHash,
		DisplayName:           req.DisplayName,
		EmailVerified:         false,
		VerificationTokenHash: auth.HashVerificationToken(verificationToken),
		VerificationSentAt:    time.Now(),
	}
	user.InitTimestamps()

	if err := s.store.CreateUser(ctx, user); err != nil {
		if domainerrors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("email already in use")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.deliverVerification(user, verificationToken)

	s.logger.Info("user registered",
		"user_id", userID,
		"email", user.Email,
	)

	return &RegisterResponse{
		UserID:  userID,
		Message: "Registration complete. Check your email to verify your address.",
	}, nil
}

// Login authenticates a user and creates a new session.
// Login succeeds for unverified users; the session state machine keeps
// them on the verification screen until they confirm their email.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	if !s.loginLimiter.Allow(strings.ToLower(req.Email)) {
		return nil, domainerrors.RateLimited("too many login attempts, try again later")
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			// Don't leak whether email exists
			return nil, domainerrors.InvalidCredentials("invalid email or password")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	valid, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	user.LastLoginAt = time.Now()
	user.Touch()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		// Log but don't fail login
		s.logger.Warn("failed to update last login time",
			"user_id", user.ID,
			"error", err,
		)
	}

	resp, err := s.createSession(ctx, user, req.IPAddress, req.UserAgent)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in",
		"user_id", user.ID,
		"email_verified", user.EmailVerified,
	)

	return resp, nil
}

// Refresh rotates a refresh token: the presented token is invalidated
// and a fresh session is issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	if refreshToken == "" {
		return nil, domainerrors.Validation("refresh_token is required")
	}

	tokenHash := auth.HashRefreshToken(refreshToken)

	session, err := s.store.GetSessionByTokenHash(ctx, tokenHash)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Unauthorized("invalid refresh token")
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}

	if session.IsExpired() {
		_ = s.store.DeleteSession(ctx, session.ID)
		return nil, domainerrors.TokenExpired("session expired, log in again")
	}

	user, err := s.store.GetUser(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if err := s.store.DeleteSession(ctx, session.ID); err != nil {
		return nil, fmt.Errorf("rotate session: %w", err)
	}

	return s.createSession(ctx, user, session.IPAddress, session.UserAgent)
}

// Logout revokes the session holding the presented refresh token.
// Unknown tokens are treated as already logged out.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	tokenHash := auth.HashRefreshToken(refreshToken)

	session, err := s.store.GetSessionByTokenHash(ctx, tokenHash)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup session: %w", err)
	}

	return s.store.DeleteSession(ctx, session.ID)
}

// Verify consumes an email verification token.
func (s *AuthService) Verify(ctx context.Context, email, token string) error {
	if email == "" || token == "" {
		return domainerrors.Validation("email and token are required")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return domainerrors.Unauthorized("invalid verification token")
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if user.EmailVerified {
		// Clicking the link twice is fine
		return nil
	}

	if !auth.VerifyVerificationToken(user.VerificationTokenHash, token) {
		return domainerrors.Unauthorized("invalid verification token")
	}

	user.MarkVerified()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}

	s.logger.Info("email verified", "user_id", user.ID)
	return nil
}

// ResendVerification issues a fresh verification token.
// Responds identically whether or not the email exists.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	if email == "" {
		return domainerrors.Validation("email is required")
	}

	if !s.resendLimiter.Allow(strings.ToLower(email)) {
		return domainerrors.RateLimited("verification email was just sent, try again later")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if user.EmailVerified {
		return nil
	}

	verificationToken, err := auth.GenerateVerificationToken()
	if err != nil {
		return fmt.Errorf("generate verification token: %w", err)
	}

	user.VerificationTokenHash = auth.HashVerificationToken(verificationToken)
	user.VerificationSentAt = time.Now()
	user.Touch()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	s.deliverVerification(user, verificationToken)
	return nil
}

// CheckVerification re-reads the user's verification flag.
// This is the server side of the client's verification poll.
func (s *AuthService) CheckVerification(ctx context.Context, userID string) (bool, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("get user: %w", err)
	}
	return user.EmailVerified, nil
}

// VerifyAccessToken validates a token and returns the associated user.
// Used by authentication middleware.
func (s *AuthService) VerifyAccessToken(ctx context.Context, tokenString string) (*domain.User, *auth.AccessClaims, error) {
	claims, err := s.tokens.VerifyAccessToken(tokenString)
	if err != nil {
		return nil, nil, domainerrors.Unauthorized("invalid token").WithCause(err)
	}

	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return nil, nil, domainerrors.Unauthorized("user no longer exists")
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}

	return user, claims, nil
}

// createSession issues access and refresh tokens and persists the
// refresh token hash.
func (s *AuthService) createSession(ctx context.Context, user *domain.User, ipAddress, userAgent string) (*AuthResponse, error) {
	accessToken, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, err := s.tokens.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	tokenHash := auth.HashRefreshToken(refreshToken)

	sessionID, err := id.Generate("session")
	if err != nil {
		return nil, fmt.Errorf("generate session ID: %w", err)
	}

	now := time.Now()
	session := &domain.Session{
		ID:               sessionID,
		UserID:           user.ID,
		RefreshTokenHash: tokenHash,
		ExpiresAt:        now.Add(s.tokens.RefreshTokenDuration()),
		CreatedAt:        now,
		LastSeenAt:       now,
		IPAddress:        ipAddress,
		UserAgent:        userAgent,
	}

	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &AuthResponse{
		User:         user.Identity(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(s.tokens.AccessTokenDuration()),
	}, nil
}

// deliverVerification "sends" the verification email. This server logs
// the delivery; wiring an SMTP relay is a deployment concern.
func (s *AuthService) deliverVerification(user *domain.User, token string) {
	s.logger.Info("verification email queued",
		"user_id", user.ID,
		"email", user.Email,
		"token", token,
	)
}
