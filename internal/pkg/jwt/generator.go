// internal/pkg/jwt/generator.go
package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

type Generator struct {
	secret []byte
	issuer string
	Ttl    time.Duration
	now    func() time.Time
}

func NewGenerator(secret []byte, issuer string, ttl time.Duration, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{
		secret: secret,
		issuer: issuer,
		Ttl:    ttl,
		now:    now,
	}
}

// Issue signs an access token for identity that expires ttl from now.
// A non-positive ttl falls back to the generator default.
func (g *Generator) Issue(identity Identity, ttl time.Duration) (string, *Claims, error) {
	if len(g.secret) == 0 {
		return "", nil, fmt.Errorf("jwt generator has empty secret")
	}
	if identity.UserID == "" {
		return "", nil, fmt.Errorf("jwt generator: identity has no user id")
	}
	if ttl <= 0 {
		ttl = g.Ttl
	}

	now := g.now()
	claims := &Claims{
		Email: identity.Email,
		Role:  identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.issuer,
			Subject:   identity.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        ulid.Make().String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, claims, nil
}

// GenerateAccessToken issues a token with the default access TTL
func (g *Generator) GenerateAccessToken(identity Identity) (string, *Claims, error) {
	return g.Issue(identity, g.Ttl)
}
