package service

import (
	"fmt"
	"time"

	"github.com/sophia-ai/capability-router/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer = "capability-router"
	tokenType   = "admin"
)

// AdminClaims are the claims carried by admin tokens. Admin tokens guard the
// mutating endpoints (health replacement and capability registration).
type AdminClaims struct {
	Sub  string `json:"sub"`
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// TokenAuthority issues and validates HS256 admin tokens.
type TokenAuthority struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenAuthority creates an authority signing with secret.
func NewTokenAuthority(secret string, ttl time.Duration) *TokenAuthority {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenAuthority{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Enabled reports whether a signing secret is configured.
func (a *TokenAuthority) Enabled() bool {
	return len(a.secret) > 0
}

// ============================================================
// Issue
// ============================================================

// Issue signs an admin token for subject.
func (a *TokenAuthority) Issue(subject string) (string, error) {
	if !a.Enabled() {
		return "", &domain.ErrValidation{Field: "jwt_secret", Message: "admin tokens are disabled"}
	}
	if subject == "" {
		return "", &domain.ErrValidation{Field: "subject", Message: "is required"}
	}

	now := a.now()
	claims := AdminClaims{
		Sub:  subject,
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			Issuer:    tokenIssuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign admin token: %w", err)
	}
	return signed, nil
}

// ============================================================
// Validate
// ============================================================

// Validate parses tokenString and checks signature, expiry, issuer and type.
func (a *TokenAuthority) Validate(tokenString string) (*AdminClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	if claims.Type != tokenType {
		return nil, &domain.ErrUnauthorized{Message: "invalid token type"}
	}
	return claims, nil
}
