package auth

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const issuer = "podium"

// Claims represents the JWT claims
type Claims struct {
	UserID     uint   `json:"user_id"`
	Email      string `json:"email"`
	SystemRole string `json:"system_role"`
	jwt.RegisteredClaims
}

// TokenSettings configures access token signing
type TokenSettings struct {
	Secret    string
	AccessTTL time.Duration
}

var (
	settingsMu sync.RWMutex
	settings   TokenSettings
)

// Configure sets the signing secret and access token lifetime.
// Zero values keep the defaults.
func Configure(s TokenSettings) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	settings = s
}

// getJWTSecret returns the configured secret, the JWT_SECRET environment
// variable, or a default for development
func getJWTSecret() []byte {
	settingsMu.RLock()
	secret := settings.Secret
	settingsMu.RUnlock()

	if secret == "" {
		secret = os.Getenv("JWT_SECRET")
	}
	if secret == "" {
		// Default for development only - should be set in production
		secret = "podium-dev-secret-change-in-production"
	}
	return []byte(secret)
}

// getTokenDuration returns the access token validity duration
func getTokenDuration() time.Duration {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	if settings.AccessTTL > 0 {
		return settings.AccessTTL
	}
	// Default to 1 hour; clients refresh with their refresh token
	return time.Hour
}

// GenerateToken creates a new JWT token for a user
func GenerateToken(userID uint, email string, systemRole string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:     userID,
		Email:      email,
		SystemRole: systemRole,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(getTokenDuration())),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(getJWTSecret())
}

// ValidateToken checks the signature, issuer and expiry of an access token
func ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return getJWTSecret(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrExpiredToken
	}
	if err != nil || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
