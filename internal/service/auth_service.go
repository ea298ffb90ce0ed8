package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/stillwater-labs/stillwater/internal/config"
	"github.com/stillwater-labs/stillwater/internal/database"
	"github.com/stillwater-labs/stillwater/internal/models"
	apierrors "github.com/stillwater-labs/stillwater/internal/pkg/errors"
	"github.com/stillwater-labs/stillwater/internal/repository"
)

// BlacklistKeyPrefix namespaces revoked token ids in redis.
const BlacklistKeyPrefix = "auth:blacklist:"

// AuthService defines the interface for account and token operations.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req LoginRequest) (string, *models.User, error)
	Logout(ctx context.Context, tokenID string, expiresAt time.Time) error
	GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error)

	// ValidateToken verifies a bearer token's signature and blacklist
	// status, returning the subject, token id and expiry.
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, time.Time, error)
}

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest exchanges credentials for a token.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authService struct {
	userRepo     repository.UserRepository
	achievements AchievementService
	redis        *database.Redis
	cfg          config.AuthConfig
}

// NewAuthService creates a new auth service.
func NewAuthService(
	userRepo repository.UserRepository,
	achievements AchievementService,
	redis *database.Redis,
	cfg config.AuthConfig,
) AuthService {
	return &authService{
		userRepo:     userRepo,
		achievements: achievements,
		redis:        redis,
		cfg:          cfg,
	}
}

// Register creates an account and seeds its achievement rows.
func (s *authService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	existing, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		return nil, apierrors.NewStateConflictError("Email is already registered")
	}

	existing, err = s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		return nil, apierrors.NewStateConflictError("Username is already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := s.achievements.InitializeAchievements(ctx, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a signed JWT.
func (s *authService) Login(ctx context.Context, req LoginRequest) (string, *models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return "", nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return "", nil, apierrors.ErrUnauthorized.WithMessage("Invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return "", nil, apierrors.ErrUnauthorized.WithMessage("Invalid email or password")
	}

	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, user, nil
}

// Logout blacklists the token id until its natural expiry.
func (s *authService) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.redis.Set(ctx, BlacklistKeyPrefix+tokenID, "1", ttl); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

// ValidateToken verifies signature, expiry and the revocation blacklist.
func (s *authService) ValidateToken(ctx context.Context, token string) (uuid.UUID, string, time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, "", time.Time{}, apierrors.ErrUnauthorized
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", time.Time{}, apierrors.ErrUnauthorized
	}

	revoked, err := s.redis.Exists(ctx, BlacklistKeyPrefix+claims.ID)
	if err != nil {
		return uuid.Nil, "", time.Time{}, fmt.Errorf("failed to check blacklist: %w", err)
	}
	if revoked > 0 {
		return uuid.Nil, "", time.Time{}, apierrors.ErrUnauthorized
	}

	return userID, claims.ID, claims.ExpiresAt.Time, nil
}

// GetUser retrieves an account by id.
func (s *authService) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apierrors.NewNotFoundError("User")
	}
	return user, nil
}

var _ AuthService = (*authService)(nil)
