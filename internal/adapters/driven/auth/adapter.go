package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/custodia-labs/socialauth-core/internal/core/domain"
	"github.com/custodia-labs/socialauth-core/internal/core/ports/driven"
)

// Ensure Adapter implements TokenIssuer
var _ driven.TokenIssuer = (*Adapter)(nil)

// jwtClaims carries the provider identity a session token stands for
type jwtClaims struct {
	ProviderID string `json:"provider_id"`
	jwt.RegisteredClaims
}

// Adapter mints and verifies application session tokens as signed JWTs.
// The broker credential itself never leaves the coordinator; the token only
// attests which provider the holder signed in with.
type Adapter struct {
	secret []byte
	ttl    time.Duration
}

// NewAdapter creates a new token issuer with the given signing secret
func NewAdapter(secret string, ttl time.Duration) *Adapter {
	return &Adapter{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue creates a signed token for the credential's provider
func (a *Adapter) Issue(cred *domain.Credential) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		ProviderID: cred.ProviderID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Verify validates a token and returns the provider id it was issued for
func (a *Adapter) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})

	if err != nil {
		return "", err
	}

	if claims, ok := token.Claims.(*jwtClaims); ok && token.Valid {
		return claims.ProviderID, nil
	}

	return "", fmt.Errorf("invalid token claims")
}
