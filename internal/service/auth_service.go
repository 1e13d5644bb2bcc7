package service

import (
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"investment-ledger/internal/domain"
	"investment-ledger/internal/errors"
	"investment-ledger/internal/repository"
)

type AuthService struct {
	store     *repository.Store
	jwtSecret []byte
	jwtExpiry time.Duration
	logger    *slog.Logger
}

func NewAuthService(store *repository.Store, jwtSecret string, jwtExpiry time.Duration, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:     store,
		jwtSecret: []byte(jwtSecret),
		jwtExpiry: jwtExpiry,
		logger:    logger,
	}
}

// Claims carried in issued tokens.
type Claims struct {
	UserID  int64 `json:"user_id"`
	IsAdmin bool  `json:"is_admin"`
	jwt.RegisteredClaims
}

func (s *AuthService) Register(username, email, password string) (*domain.User, error) {
	if username == "" || email == "" {
		return nil, errors.NewAppError(errors.InvalidInput, "username and email are required")
	}
	if len(password) < 6 {
		return nil, errors.NewAppError(errors.InvalidInput, "password must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("Password hashing failed", "username", username, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to hash password")
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.store.Users().CreateUser(user); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", "user_id", user.ID, "username", username)
	return user, nil
}

// Login verifies credentials and issues an HS256 token. Bad username and bad
// password are indistinguishable to the caller.
func (s *AuthService) Login(username, password string) (string, *domain.User, error) {
	user, err := s.store.Users().GetUserByUsername(username)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok && appErr.Code == errors.NotFound {
			return "", nil, errors.NewAppError(errors.Unauthorized, "invalid credentials")
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("Failed login attempt", "username", username)
		return "", nil, errors.NewAppError(errors.Unauthorized, "invalid credentials")
	}

	now := time.Now()
	claims := &Claims{
		UserID:  user.ID,
		IsAdmin: user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiry)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		s.logger.Error("Token signing failed", "user_id", user.ID, "error", err)
		return "", nil, errors.NewAppError(errors.InternalError, "failed to issue token")
	}

	s.logger.Info("User logged in", "user_id", user.ID, "username", username)
	return token, user, nil
}

// ValidateToken parses and verifies a bearer token.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.ErrUnauthorized
		}
		return s.jwtSecret, nil
	})

	if err != nil || !token.Valid {
		return nil, errors.NewAppError(errors.Unauthorized, "invalid or expired token")
	}

	return claims, nil
}
