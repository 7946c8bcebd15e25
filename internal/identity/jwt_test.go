package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signTestToken(t *testing.T, key []byte, c claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	s, err := token.SignedString(key)
	require.NoError(t, err)
	return s
}

func TestJWTProvider_DerivesIdentitySetFromClaims(t *testing.T) {
	key := []byte("test-verification-key-123456789012")
	now := time.Now()
	tok := signTestToken(t, key, claims{
		UserID:      "u-7",
		Roles:       []string{"admin", "operator"},
		Permissions: []string{"record:write"},
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})

	p := NewJWTProvider(JWTConfig{VerificationKeys: [][]byte{key}})
	ctx := ContextWithToken(context.Background(), tok)

	ids, err := p.Identities(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"user:u-7", "role:admin", "role:operator", "permission:record:write"}, ids)
}

func TestJWTProvider_NoTokenInContextFails(t *testing.T) {
	p := NewJWTProvider(JWTConfig{VerificationKeys: [][]byte{[]byte("k")}})
	_, err := p.Identities(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestJWTProvider_RejectsExpiredToken(t *testing.T) {
	key := []byte("test-verification-key-123456789012")
	now := time.Now()
	tok := signTestToken(t, key, claims{
		UserID: "u-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
		},
	})

	p := NewJWTProvider(JWTConfig{VerificationKeys: [][]byte{key}})
	ctx := ContextWithToken(context.Background(), tok)
	_, err := p.Identities(ctx)
	require.Error(t, err)
}

func TestJWTProvider_RejectsWrongIssuer(t *testing.T) {
	key := []byte("test-verification-key-123456789012")
	now := time.Now()
	tok := signTestToken(t, key, claims{
		UserID: "u-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "other",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})

	p := NewJWTProvider(JWTConfig{VerificationKeys: [][]byte{key}, Issuer: "ringstore"})
	ctx := ContextWithToken(context.Background(), tok)
	_, err := p.Identities(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}

func TestStaticProvider_ReturnsFixedSet(t *testing.T) {
	p := NewStatic([]string{"user:1", "role:admin"})
	ids, err := p.Identities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"user:1", "role:admin"}, ids)
}
