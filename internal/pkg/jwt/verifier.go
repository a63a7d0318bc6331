// internal/pkg/jwt/verifier.go
package jwt

import (
	"errors"
	"fmt"
	"time"

	xerrors "taskhub-service/internal/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewVerifier(secret []byte, issuer string, now func() time.Time) *Verifier {
	if now == nil {
		now = time.Now
	}
	return &Verifier{
		secret: secret,
		issuer: issuer,
		now:    now,
	}
}

// Verify validates a JWT token and returns the claims. Expired tokens
// yield xerrors.ErrExpired, any other failure xerrors.ErrUnauthenticated;
// the parser's reason stays in the wrapped message for logs only.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: empty token", xerrors.ErrUnauthenticated)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", xerrors.ErrExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", xerrors.ErrUnauthenticated, err)
	}

	if claims.Subject == "" || claims.Role == "" {
		return nil, fmt.Errorf("%w: missing identity claims", xerrors.ErrUnauthenticated)
	}

	return claims, nil
}
