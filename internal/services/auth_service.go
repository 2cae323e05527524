package services

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidAPIKey      = errors.New("invalid API key")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
)

type SessionClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type AuthService struct {
	keyRepo   *repository.APIKeyRepository
	userRepo  *repository.UserRepository
	jwtSecret string
}

func NewAuthService(keyRepo *repository.APIKeyRepository, userRepo *repository.UserRepository, jwtSecret string) *AuthService {
	return &AuthService{
		keyRepo:   keyRepo,
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
	}
}

// GenerateAPIKey returns a fresh high-entropy raw key. Callers must hand it
// to the user immediately; only its hash is ever stored.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ResolveAPIKey maps a raw bearer key to the owning user via hash lookup.
func (s *AuthService) ResolveAPIKey(rawKey string) (uuid.UUID, error) {
	if rawKey == "" {
		return uuid.Nil, ErrInvalidAPIKey
	}

	key, err := s.keyRepo.FindByHash(models.HashAPIKey(rawKey))
	if err != nil {
		return uuid.Nil, err
	}
	if key == nil {
		return uuid.Nil, ErrInvalidAPIKey
	}

	return key.UserID, nil
}

// Login exchanges email+password for a short-lived session JWT accepted by
// the same middleware as API keys.
func (s *AuthService) Login(email, password string) (string, error) {
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	claims := SessionClaims{
		UserID: user.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "splitledger",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *AuthService) ValidateToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}

	return userID, nil
}
