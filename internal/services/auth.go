package services

import (
	"fmt"
	"time"

	apperrors "matchchat-backend/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService validates externally issued identity tokens. Token issuance
// lives outside the engine; the gateway only verifies.
type TokenService struct {
	secret string
}

// NewTokenService creates a token service.
func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: secret}
}

// ValidateToken validates a JWT and returns the user ID
func (s *TokenService) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeUnauthenticated, "invalid token", err)
	}
	if !token.Valid {
		return "", apperrors.Unauthorized("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", apperrors.Unauthorized("invalid token claims")
	}
	userID, ok := claims["user_id"].(string)
	if !ok {
		return "", apperrors.Unauthorized("user_id not found in token")
	}
	return userID, nil
}

// GenerateToken issues a token for a user. Exists for local runs and tests;
// production tokens come from the auth service.
func (s *TokenService) GenerateToken(userID string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(ttl).Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
