// Package auth issues and validates the short-lived device tokens the
// admin API hands out after a successful pin code exchange.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when token validation fails.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims binds a token to one GATAS device.
type Claims struct {
	GatasID uint32 `json:"gatasId"`
	jwt.RegisteredClaims
}

// Config holds token configuration.
type Config struct {
	// Secret signs the tokens. An empty secret disables token auth.
	Secret string

	// TokenDuration is how long an issued token stays valid.
	TokenDuration time.Duration
}

// Service issues and validates device tokens.
type Service struct {
	config Config
}

// NewService creates a token service. Returns nil when no secret is
// configured, callers treat a nil service as auth disabled.
func NewService(cfg Config) *Service {
	if cfg.Secret == "" {
		return nil
	}
	if cfg.TokenDuration == 0 {
		cfg.TokenDuration = 15 * time.Minute
	}
	return &Service{config: cfg}
}

// GenerateDeviceToken issues a token authorizing changes to the given
// device.
func (s *Service) GenerateDeviceToken(gatasID uint32) (string, error) {
	now := time.Now()
	claims := &Claims{
		GatasID: gatasID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "gatas-server",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}

// ValidateToken validates a token and returns its claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}
