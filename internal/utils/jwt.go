package utils

import (
	"time" // Time for token expiration

	"marketplace_system/internal/domain" // Importing domain models

	"github.com/golang-jwt/jwt/v5" // JWT library
	"gorm.io/gorm"                 // GORM ORM library
)

// Token lifetimes: 1 day access, 7 day refresh
const (
	AccessTokenTTL  = 24 * time.Hour     // Access token lifetime
	RefreshTokenTTL = 7 * 24 * time.Hour // Refresh token lifetime
)

// JWT Claims
type Claims struct {
	UserID               uint `json:"user_id"` // Custom claim for user ID
	jwt.RegisteredClaims      // Standard JWT claims
}

// TokenPair holds an access token plus its refresh token
type TokenPair struct {
	AccessToken  string `json:"accessToken"`  // Short-lived access token
	RefreshToken string `json:"refreshToken"` // Long-lived refresh token
}

// signToken creates a signed HS256 token for a user ID with the given lifetime
func signToken(userID uint, secret string, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID: userID, // Custom claim for user ID
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)), // Expiry per token kind
			IssuedAt:  jwt.NewNumericDate(time.Now()),          // Issued at current time
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	return token.SignedString([]byte(secret))                  // Sign the token with the secret
}

// GenerateAccessToken creates a short-lived access token for a user
func GenerateAccessToken(userID uint, secret string) (string, error) {
	return signToken(userID, secret, AccessTokenTTL)
}

// GenerateTokenPair creates an access/refresh token pair and persists the
// refresh token as a revocable Token row for the user.
func GenerateTokenPair(db *gorm.DB, userID uint, secret string) (*TokenPair, error) {
	accessToken, err := signToken(userID, secret, AccessTokenTTL) // Create access token
	if err != nil {
		return nil, err // Return error if signing fails
	}
	refreshToken, err := signToken(userID, secret, RefreshTokenTTL) // Create refresh token
	if err != nil {
		return nil, err // Return error if signing fails
	}
	// Store the refresh token so logout can revoke it
	record := domain.Token{
		UserID:    userID,                                 // Owner of the token
		Token:     refreshToken,                           // Signed refresh token string
		ExpiresIn: int64(RefreshTokenTTL / time.Second),   // Lifetime in seconds
	}
	if err := db.Create(&record).Error; err != nil {
		return nil, err // Return error if persisting fails
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// ParseJWT parses and validates a JWT token string
func ParseJWT(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil // Return the secret key for validation
	})
	// Check for parsing errors
	if err != nil {
		return nil, err // Return error if parsing fails
	}
	// Validate token and extract claims
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil // Return claims if valid
	}
	// Return error if token is invalid
	return nil, jwt.ErrSignatureInvalid
}

// RevokeTokens deletes all refresh tokens stored for a user
func RevokeTokens(db *gorm.DB, userID uint) error {
	return db.Where("user_id = ?", userID).Delete(&domain.Token{}).Error
}
