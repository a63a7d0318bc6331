// internal/pkg/jwt/loader.go
package jwt

import (
	"fmt"
	"time"
)

// MinSecretLength is the shortest HS256 secret accepted.
const MinSecretLength = 32

type Config struct {
	Secret    string
	Issuer    string
	AccessTTL time.Duration
}

type Manager struct {
	Generator *Generator
	Verifier  *Verifier
}

// LoadAndBuild builds a Manager from config. now may be nil.
func LoadAndBuild(cfg Config, now func() time.Time) (*Manager, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", MinSecretLength)
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}

	secret := []byte(cfg.Secret)
	return &Manager{
		Generator: NewGenerator(secret, cfg.Issuer, cfg.AccessTTL, now),
		Verifier:  NewVerifier(secret, cfg.Issuer, now),
	}, nil
}

// Issue signs an access token for identity.
func (m *Manager) Issue(identity Identity, ttl time.Duration) (string, *Claims, error) {
	return m.Generator.Issue(identity, ttl)
}

// Verify validates an access token.
func (m *Manager) Verify(token string) (*Claims, error) {
	return m.Verifier.Verify(token)
}

// AccessTTL is the default lifetime of issued access tokens.
func (m *Manager) AccessTTL() time.Duration {
	return m.Generator.Ttl
}
