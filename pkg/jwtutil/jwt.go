package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"workspace-service/pkg/config"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var cfg *config.JWTConfig

// Initialize sets the signing key and token lifetime for the package.
func Initialize(c *config.JWTConfig) {
	cfg = c
}

// UserClaims represents the JWT claims for an authenticated request.
// Every token carries the active workspace context alongside the user
// identity, and a unique token ID to permit future revocation lists.
type UserClaims struct {
	Email         string `json:"email"`
	UserID        uint   `json:"user_id"`
	ProfileID     uint   `json:"profile_id"`
	WorkspaceID   uint   `json:"workspace_id"`
	WorkspaceName string `json:"workspace_name,omitempty"`
	Role          string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken creates a JWT token scoped to the given profile's
// workspace and role.
func GenerateToken(email string, userID, profileID, workspaceID uint, workspaceName, role string) (string, error) {
	if cfg == nil {
		return "", errors.New("JWT configuration not provided")
	}

	claims := UserClaims{
		Email:         email,
		UserID:        userID,
		ProfileID:     profileID,
		WorkspaceID:   workspaceID,
		WorkspaceName: workspaceName,
		Role:          role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(cfg.ExpirationHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.SigningKey))
}

// ValidateToken validates and parses the JWT token
func ValidateToken(tokenString string) (*UserClaims, error) {
	if cfg == nil {
		return nil, errors.New("JWT configuration not provided")
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&UserClaims{},
		func(token *jwt.Token) (interface{}, error) {
			// Validate the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(cfg.SigningKey), nil
		},
	)

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
