package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultJWTLeeway = 30 * time.Second

var (
	// ErrNoToken is returned when no bearer token was attached to ctx.
	ErrNoToken = errors.New("identity: no bearer token in context")
)

// claims mirrors the shape the upstream authentication layer mints:
// a user id plus the roles/permissions that QueryAccessControl
// conjoins against access_read/access_edit/access_full.
type claims struct {
	UserID      string   `json:"user_id"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// JWTConfig configures token verification. Only verification is in
// scope here; minting a token is the caller's upstream concern.
type JWTConfig struct {
	VerificationKeys [][]byte
	Issuer           string
	Leeway           time.Duration
}

func (cfg JWTConfig) parserOptions() []jwt.ParserOption {
	leeway := cfg.Leeway
	if leeway <= 0 {
		leeway = defaultJWTLeeway
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(leeway),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	return opts
}

func (cfg JWTConfig) keyfunc() jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		if len(cfg.VerificationKeys) == 0 {
			return nil, errors.New("no verification keys configured")
		}
		keys := make([]jwt.VerificationKey, len(cfg.VerificationKeys))
		for i, k := range cfg.VerificationKeys {
			keys[i] = k
		}
		if len(keys) == 1 {
			return keys[0], nil
		}
		return jwt.VerificationKeySet{Keys: keys}, nil
	}
}

type tokenKey struct{}

// ContextWithToken attaches a raw bearer token string to ctx for
// JWTProvider to read later. The upstream caller (outside pipeline
// scope) extracts this from its own transport and stores it here.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(tokenKey{}).(string)
	return v, ok && v != ""
}

// JWTProvider verifies the bearer token attached to ctx and derives an
// identity set from its user_id/roles/permissions claims.
type JWTProvider struct {
	cfg JWTConfig
}

// NewJWTProvider builds a Provider backed by cfg.
func NewJWTProvider(cfg JWTConfig) JWTProvider {
	return JWTProvider{cfg: cfg}
}

func (p JWTProvider) Identities(ctx context.Context) ([]string, error) {
	tokenString, ok := tokenFromContext(ctx)
	if !ok {
		return nil, ErrNoToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &claims{}, p.cfg.keyfunc(), p.cfg.parserOptions()...)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	ids := make([]string, 0, 1+len(c.Roles)+len(c.Permissions))
	if c.UserID != "" {
		ids = append(ids, UserToken(c.UserID))
	}
	for _, r := range c.Roles {
		ids = append(ids, RoleToken(r))
	}
	for _, perm := range c.Permissions {
		ids = append(ids, "permission:"+perm)
	}
	return ids, nil
}
