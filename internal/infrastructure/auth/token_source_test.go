package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticTokenSource(t *testing.T) {
	tok, err := NewStaticTokenSource("abc").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)
}

func TestJWTTokenSource_SignsAndCaches(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	src, err := NewJWTTokenSource(JWTConfig{Secret: "s3cret", Issuer: "gateway", Audience: "registry", TTL: 5 * time.Minute})
	require.NoError(t, err)
	src.now = func() time.Time { return now }

	first, err := src.Token(context.Background())
	require.NoError(t, err)

	parsed, err := jwt.ParseWithClaims(first, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte("s3cret"), nil
	}, jwt.WithoutClaimsValidation())
	require.NoError(t, err)
	claims := parsed.Claims.(*jwt.RegisteredClaims)
	assert.Equal(t, "gateway", claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{"registry"}, claims.Audience)
	assert.Equal(t, now.Add(5*time.Minute).Unix(), claims.ExpiresAt.Unix())

	now = now.Add(4 * time.Minute)
	second, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second, "token is reused while fresh")

	now = now.Add(45 * time.Second)
	third, err := src.Token(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, third, "token is replaced near expiry")
}

func TestJWTTokenSource_Config(t *testing.T) {
	_, err := NewJWTTokenSource(JWTConfig{TTL: time.Minute})
	assert.Error(t, err)
	_, err = NewJWTTokenSource(JWTConfig{Secret: "x", TTL: time.Second})
	assert.Error(t, err)
}

func TestJWTTokenSource_CancelledContext(t *testing.T) {
	src, err := NewJWTTokenSource(JWTConfig{Secret: "x", TTL: time.Minute})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Token(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
