package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/avatarctic/land-registry-gateway/internal/core/ports"
)

// refreshMargin is how long before expiry a cached service token is replaced.
const refreshMargin = 30 * time.Second

// StaticTokenSource returns a fixed API token.
type StaticTokenSource struct {
	token string
}

func NewStaticTokenSource(token string) *StaticTokenSource {
	return &StaticTokenSource{token: token}
}

func (s *StaticTokenSource) Token(context.Context) (string, error) {
	return s.token, nil
}

// JWTConfig configures service tokens signed for the registry.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// JWTTokenSource mints short-lived HS256 service tokens and reuses each one
// until it is close to expiry.
type JWTTokenSource struct {
	cfg JWTConfig
	now func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewJWTTokenSource(cfg JWTConfig) (*JWTTokenSource, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt token source: secret is required")
	}
	if cfg.TTL <= refreshMargin {
		return nil, fmt.Errorf("jwt token source: ttl must exceed %s", refreshMargin)
	}
	return &JWTTokenSource{cfg: cfg, now: time.Now}, nil
}

func (s *JWTTokenSource) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Add(refreshMargin).Before(s.expires) {
		return s.token, nil
	}

	expires := now.Add(s.cfg.TTL)
	claims := jwt.RegisteredClaims{
		Issuer:    s.cfg.Issuer,
		Subject:   s.cfg.Issuer,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	if s.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.cfg.Audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign service token: %w", err)
	}
	s.token, s.expires = signed, expires
	return signed, nil
}

var (
	_ ports.TokenSource = (*StaticTokenSource)(nil)
	_ ports.TokenSource = (*JWTTokenSource)(nil)
)
