package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskflow-be/internal/apperrors"
	"taskflow-be/internal/entities"
	"taskflow-be/internal/hasher"
	"taskflow-be/internal/jwt"
	"taskflow-be/internal/logging"
	"taskflow-be/internal/models"
	"taskflow-be/internal/notifier"
	"taskflow-be/internal/repository"
)

const minPasswordLength = 6

// TokenIssuer is the subset of the token service used by AuthService.
type TokenIssuer interface {
	IssueSession(email string, now time.Time) (string, error)
	IssueReset(email, fingerprint string, now time.Time) (string, error)
	VerifyReset(token string, now time.Time) (*jwt.ResetClaims, error)
}

// AuthService defines the interface for authentication business logic
type AuthService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.RegisterResponse, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	GetProfile(user *entities.User) *models.ProfileResponse
	UpdateProfile(ctx context.Context, user *entities.User, req *models.UpdateProfileRequest) (*models.ProfileResponse, error)
}

type authService struct {
	userRepo    repository.UserRepository
	tokens      TokenIssuer
	hasher      hasher.Hasher
	notifier    notifier.Notifier
	logger      logging.Logger
	frontendURL string
	now         func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repository.UserRepository,
	tokens TokenIssuer,
	h hasher.Hasher,
	n notifier.Notifier,
	logger logging.Logger,
	frontendURL string,
) AuthService {
	return &authService{
		userRepo:    userRepo,
		tokens:      tokens,
		hasher:      h,
		notifier:    n,
		logger:      logger.With("component", "auth_service"),
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         time.Now,
	}
}

// Register creates a new user account
func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*models.RegisterResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.Validation("Name is required")
	}
	if !validEmail(req.Email) {
		return nil, apperrors.Validation("A valid email is required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, apperrors.Validation("Password must be at least 6 characters")
	}

	// Check if user already exists
	_, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err == nil {
		return nil, apperrors.Conflict("User already exists")
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Dependency("Failed to create user", err)
	}

	hashedPassword, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Validation("Password cannot be used")
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	user, err := s.userRepo.Create(ctx, &entities.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hashedPassword,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return nil, apperrors.Conflict("User already exists")
	}
	if err != nil {
		return nil, apperrors.Dependency("Failed to create user", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)

	return &models.RegisterResponse{
		Message: "User created successfully!",
		User:    profileOf(user),
	}, nil
}

// Login authenticates a user and returns a session token
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	invalid := apperrors.New(apperrors.KindUnauthorized, "Invalid email or password")

	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, apperrors.Dependency("Failed to log in", err)
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		s.logger.Warn(ctx, "login failed", "user_id", user.ID, "reason", "bad_password")
		return nil, invalid
	}

	token, err := s.tokens.IssueSession(user.Email, s.now())
	if err != nil {
		return nil, apperrors.Dependency("Failed to log in", fmt.Errorf("failed to generate token: %w", err))
	}

	return &models.AuthResponse{
		Token: token,
		User:  models.UserSummary{Name: user.Name, Email: user.Email},
	}, nil
}

// RequestPasswordReset emails a reset link to a registered address
func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return apperrors.Validation("Email is required")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("User not found")
	}
	if err != nil {
		return apperrors.Dependency("Failed to send email", err)
	}

	token, err := s.tokens.IssueReset(user.Email, hasher.Fingerprint(user.PasswordHash), s.now())
	if err != nil {
		return apperrors.Dependency("Failed to send email", fmt.Errorf("failed to generate reset token: %w", err))
	}

	link := fmt.Sprintf("%s/reset-password/%s", s.frontendURL, token)
	body := fmt.Sprintf("Click this link to reset your password: %s", link)

	if err := s.notifier.Send(ctx, user.Email, "TaskFlow Pro Password Reset", body); err != nil {
		s.logger.Error(ctx, "password reset email failed", "user_id", user.ID, "error", err)
		return apperrors.Dependency("Failed to send email", err)
	}

	s.logger.Info(ctx, "password reset requested", "user_id", user.ID)
	return nil
}

// ResetPassword sets a new password for the account named by a reset token.
// A token stops verifying once the password it was issued for has changed.
func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return apperrors.Validation("Password must be at least 6 characters")
	}

	claims, err := s.tokens.VerifyReset(token, s.now())
	if errors.Is(err, jwt.ErrTokenExpired) {
		return apperrors.Validation("Reset token expired")
	}
	if err != nil {
		return apperrors.Validation("Invalid token")
	}

	user, err := s.userRepo.FindByEmail(ctx, claims.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("User not found")
	}
	if err != nil {
		return apperrors.Dependency("Failed to update password", err)
	}

	if claims.Fingerprint != hasher.Fingerprint(user.PasswordHash) {
		s.logger.Warn(ctx, "stale reset token rejected", "user_id", user.ID)
		return apperrors.Validation("Invalid token")
	}

	hashedPassword, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperrors.Validation("Password cannot be used")
	}

	// Conditional on the hash the token was checked against, so a token
	// redeemed concurrently succeeds at most once.
	err = s.userRepo.UpdatePasswordHash(ctx, user.Email, user.PasswordHash, hashedPassword)
	if errors.Is(err, repository.ErrStaleWrite) {
		s.logger.Warn(ctx, "stale reset token rejected", "user_id", user.ID)
		return apperrors.Validation("Invalid token")
	}
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("User not found")
	}
	if err != nil {
		return apperrors.Dependency("Failed to update password", err)
	}

	s.logger.Info(ctx, "password reset", "user_id", user.ID)
	return nil
}

func (s *authService) GetProfile(user *entities.User) *models.ProfileResponse {
	profile := profileOf(user)
	return &profile
}

// UpdateProfile changes the display name. Email is immutable.
func (s *authService) UpdateProfile(ctx context.Context, user *entities.User, req *models.UpdateProfileRequest) (*models.ProfileResponse, error) {
	if req.Name == nil {
		return s.GetProfile(user), nil
	}

	name := strings.TrimSpace(*req.Name)
	if name == "" {
		return nil, apperrors.Validation("Name cannot be empty")
	}

	updated, err := s.userRepo.UpdateName(ctx, user.Email, name)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("User not found")
	}
	if err != nil {
		return nil, apperrors.Dependency("Failed to update profile", err)
	}

	return s.GetProfile(updated), nil
}

// validEmail accepts a bare address only, not "Name <addr>" forms.
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func profileOf(user *entities.User) models.ProfileResponse {
	return models.ProfileResponse{
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}
