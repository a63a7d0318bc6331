// internal/service/auth/auth.go
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskhub-service/internal/domain/auth"
	"taskhub-service/internal/pkg/cache"
	xerrors "taskhub-service/internal/pkg/errors"
	"taskhub-service/internal/pkg/jwt"
	"taskhub-service/internal/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	// refreshTokenBytes of crypto/rand entropy per rotation token.
	refreshTokenBytes = 32
	maxPasswordBytes  = 72
)

// TokenCodec issues and verifies access tokens.
type TokenCodec interface {
	Issue(identity jwt.Identity, ttl time.Duration) (string, *jwt.Claims, error)
	Verify(token string) (*jwt.Claims, error)
}

// LoginLimiter throttles login attempts per client and email.
type LoginLimiter interface {
	CheckLoginAttempt(ctx context.Context, ip, email string) (bool, int64, error)
	ResetLoginAttempts(ctx context.Context, ip, email string) error
}

type Config struct {
	RefreshTTL time.Duration
	BcryptCost int
	Now        func() time.Time
}

// AuthService owns registration, login, refresh rotation and logout.
// It holds no locks: atomicity of rotation is delegated to the store's
// transactions.
type AuthService struct {
	store      auth.Store
	tokens     TokenCodec
	limiter    LoginLimiter
	cache      cache.Store
	metrics    *metrics.Metrics
	logger     *zap.Logger
	refreshTTL time.Duration
	bcryptCost int
	now        func() time.Time
	dummyHash  []byte
}

func NewAuthService(
	store auth.Store,
	tokens TokenCodec,
	limiter LoginLimiter,
	cacheStore cache.Store,
	m *metrics.Metrics,
	logger *zap.Logger,
	cfg Config,
) *AuthService {
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cacheStore == nil {
		cacheStore = cache.Noop{}
	}

	// unknown emails are checked against this so they cost as much as a wrong password
	dummy, _ := bcrypt.GenerateFromPassword([]byte("taskhub-unknown-account"), cfg.BcryptCost)

	return &AuthService{
		store:      store,
		tokens:     tokens,
		limiter:    limiter,
		cache:      cacheStore,
		metrics:    m,
		logger:     logger,
		refreshTTL: cfg.RefreshTTL,
		bcryptCost: cfg.BcryptCost,
		now:        cfg.Now,
		dummyHash:  dummy,
	}
}

// ========== Registration ==========

// Register creates a user account together with its first token pair.
func (s *AuthService) Register(ctx context.Context, req *auth.RegisterRequest) (resp *auth.AuthResponse, err error) {
	defer func() { s.observe("register", err) }()

	email := auth.NormalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	if email == "" || name == "" || len(req.Password) < 8 || len(req.Password) > maxPasswordBytes {
		return nil, xerrors.ErrInvalidInput
	}

	exists, err := s.store.Users().ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("email %s: %w", email, xerrors.ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &auth.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		Role:         auth.RoleUser,
		PasswordHash: string(hash),
	}

	var tokens auth.TokenPair
	err = s.store.WithTx(ctx, func(ctx context.Context, tx auth.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		var err error
		tokens, err = s.issuePair(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	s.cache.Set(ctx, cache.UserKey(user.ID), user, 0)
	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("email", email))

	return &auth.AuthResponse{User: user, Tokens: tokens}, nil
}

// ========== Login ==========

// Login exchanges email and password for a token pair. Unknown email and
// wrong password fail identically with ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, req *auth.LoginRequest) (resp *auth.AuthResponse, err error) {
	defer func() { s.observe("login", err) }()

	email := auth.NormalizeEmail(req.Email)

	if s.limiter != nil && req.IPAddress != "" {
		allowed, _, err := s.limiter.CheckLoginAttempt(ctx, req.IPAddress, email)
		switch {
		case err != nil:
			s.logger.Warn("login rate limiter unavailable", zap.Error(err))
		case !allowed:
			return nil, xerrors.ErrRateLimited
		}
	}

	user, err := s.store.Users().FindByEmail(ctx, email)
	if errors.Is(err, xerrors.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
		return nil, xerrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, xerrors.ErrInvalidCredentials
	}

	tokens, err := s.issuePair(ctx, s.store, user)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if s.limiter != nil && req.IPAddress != "" {
		if err := s.limiter.ResetLoginAttempts(ctx, req.IPAddress, email); err != nil {
			s.logger.Warn("failed to reset login attempts", zap.Error(err))
		}
	}
	s.cache.Set(ctx, cache.UserKey(user.ID), user, 0)

	return &auth.AuthResponse{User: user, Tokens: tokens}, nil
}

// ========== Refresh ==========

// Refresh consumes a rotation token and returns a fresh pair. The consumed
// record and its replacement are written in one transaction, so a token
// is accepted at most once; unknown, expired and replayed tokens all fail
// with ErrInvalidOrExpired.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (pair auth.TokenPair, err error) {
	defer func() { s.observe("refresh", err) }()

	if refreshToken == "" {
		return auth.TokenPair{}, xerrors.ErrInvalidOrExpired
	}

	expired := false
	err = s.store.WithTx(ctx, func(ctx context.Context, tx auth.Store) error {
		record, err := tx.RefreshTokens().Consume(ctx, refreshToken)
		if errors.Is(err, xerrors.ErrNotFound) {
			return xerrors.ErrInvalidOrExpired
		}
		if err != nil {
			return err
		}

		// commit the delete of an expired record but issue nothing
		if record.Expired(s.now()) {
			expired = true
			return nil
		}

		user, err := s.userByID(ctx, tx, record.UserID)
		if errors.Is(err, xerrors.ErrNotFound) {
			return xerrors.ErrInvalidOrExpired
		}
		if err != nil {
			return err
		}

		pair, err = s.issuePair(ctx, tx, user)
		return err
	})
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("refresh: %w", err)
	}
	if expired {
		return auth.TokenPair{}, fmt.Errorf("refresh: record past expiry: %w", xerrors.ErrInvalidOrExpired)
	}
	return pair, nil
}

// ========== Logout ==========

// Logout deletes the rotation record. Deleting nothing is not an error.
// Access tokens already issued stay valid until they expire.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) (err error) {
	defer func() { s.observe("logout", err) }()

	if refreshToken == "" {
		return xerrors.ErrInvalidInput
	}
	n, err := s.store.RefreshTokens().Delete(ctx, refreshToken)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.logger.Debug("refresh token revoked", zap.Int64("deleted", n))
	return nil
}

// ========== Verification ==========

// VerifyAccess validates an access token for a protected entry point.
func (s *AuthService) VerifyAccess(ctx context.Context, token string) (*jwt.Claims, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		s.logger.Debug("access token rejected", zap.Error(err))
		return nil, err
	}
	return claims, nil
}

// SweepExpired removes rotation records past expiry. Lookups already
// reject expired records, so this only bounds table growth.
func (s *AuthService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.store.RefreshTokens().DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("sweep: %w", err)
	}
	if n > 0 {
		s.logger.Info("expired refresh tokens swept", zap.Int64("deleted", n))
	}
	return n, nil
}

// RunSweeper calls SweepExpired every interval until ctx is done.
func (s *AuthService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepExpired(ctx); err != nil {
				s.logger.Error("refresh token sweep failed", zap.Error(err))
			}
		}
	}
}

// ========== Helpers ==========

func (s *AuthService) issuePair(ctx context.Context, store auth.Store, user *auth.User) (auth.TokenPair, error) {
	access, claims, err := s.tokens.Issue(jwt.Identity{UserID: user.ID, Email: user.Email, Role: user.Role}, 0)
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("failed to issue access token: %w", err)
	}

	refresh, err := newRefreshToken()
	if err != nil {
		return auth.TokenPair{}, err
	}

	record := &auth.RefreshToken{
		ID:        uuid.NewString(),
		Token:     refresh,
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.refreshTTL),
	}
	if err := store.RefreshTokens().Create(ctx, record); err != nil {
		return auth.TokenPair{}, err
	}

	return auth.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    claims.ExpiresAt.Time,
	}, nil
}

func (s *AuthService) userByID(ctx context.Context, store auth.Store, id string) (*auth.User, error) {
	return cache.GetOrSet(ctx, s.cache, cache.UserKey(id), 0, func(ctx context.Context) (*auth.User, error) {
		return store.Users().FindByID(ctx, id)
	})
}

func (s *AuthService) observe(op string, err error) {
	if s.metrics != nil {
		s.metrics.Auth(op, err)
	}
}

func newRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
