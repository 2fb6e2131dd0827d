// Package identity verifies session tokens and exposes the purchaser
// identity derived from them. Handlers must never trust user fields from a
// request body; the verified claims are the only identity source.
package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Identity is the verified purchaser for the current request.
type Identity struct {
	UserID        string
	Name          string
	Email         string
	EmailVerified bool
}

// Claims represents JWT claims
type Claims struct {
	UserID        string `json:"user_id"`
	Name          string `json:"name,omitempty"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

// Service handles session token verification (and issuance, used by tests
// and the auth service that fronts this API).
type Service struct {
	secretKey []byte
}

// NewService creates a new identity service bound to the shared HS256 secret.
func NewService(secretKey string) *Service {
	return &Service{secretKey: []byte(secretKey)}
}

// Sign creates a session token for the given identity.
func (s *Service) Sign(ident Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:        ident.UserID,
		Name:          ident.Name,
		Email:         ident.Email,
		EmailVerified: ident.EmailVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   ident.UserID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// Verify validates a session token and returns the identity it carries.
func (s *Service) Verify(tokenString string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return &Identity{
		UserID:        claims.UserID,
		Name:          claims.Name,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
	}, nil
}
