// Package auth issues and verifies the access tokens that identify signed-in users.
package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/example/task-manager/domain/user"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned when the token is invalid.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
)

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	SecretKey           string
	AccessTokenDuration time.Duration
	Issuer              string
}

// JWTClaims represents the custom claims for access tokens.
type JWTClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTManager handles JWT token operations.
type JWTManager struct {
	config JWTConfig
	now    func() time.Time
}

// NewJWTManager creates a new JWTManager with the given configuration.
func NewJWTManager(config JWTConfig) *JWTManager {
	if config.Issuer == "" {
		config.Issuer = "task-manager"
	}
	return &JWTManager{config: config, now: time.Now}
}

// GenerateAccessToken signs a token identifying c.
func (m *JWTManager) GenerateAccessToken(c user.Claims) (string, error) {
	now := m.now()
	claims := JWTClaims{
		UserID:   c.UserID,
		Username: c.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.config.Issuer,
			Subject:   strconv.FormatUint(uint64(c.UserID), 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.config.SecretKey))
}

// ValidateAccessToken validates the token and returns the identity it carries.
func (m *JWTManager) ValidateAccessToken(tokenString string) (user.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(m.config.SecretKey), nil
	}, jwt.WithIssuer(m.config.Issuer), jwt.WithTimeFunc(m.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return user.Claims{}, ErrExpiredToken
		}
		return user.Claims{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.UserID == 0 {
		return user.Claims{}, ErrInvalidToken
	}

	return user.Claims{UserID: claims.UserID, Username: claims.Username}, nil
}

// AccessTokenDuration returns how long an access token stays valid.
func (m *JWTManager) AccessTokenDuration() time.Duration {
	return m.config.AccessTokenDuration
}
