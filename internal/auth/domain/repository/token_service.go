package repository

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService issues and verifies signed session tokens.
type TokenService interface {
	GenerateToken(ctx context.Context, userID, email string) (token string, expiresAt time.Time, err error)
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents JWT claims. RegisteredClaims.ID carries a unique token ID used for revocation.
type Claims struct {
	UserID string `json:"_id"`
	Email  string `json:"emailId"`
	jwt.RegisteredClaims
}

// TokenDenylist records tokens revoked before their natural expiry.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// PasswordHasher is a one-way, salted password transform.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Check reports whether password matches hash; malformed hashes never match.
	Check(password, hash string) bool
}
