// Package tokens issues and verifies the HS256 bearer tokens that guard the
// store's write routes.
package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sitecraft/siteadmin/pkg/middleware"
)

var ErrRevoked = errors.New("token has been revoked")

// GenerateAccessToken creates a signed JWT access token for sub.
func GenerateAccessToken(secret, sub string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("tokens: empty secret")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": sub,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(secret))
}

// Verifier checks tokens signed with a shared secret. It satisfies
// middleware.Verifier.
type Verifier struct {
	secret  []byte
	revoked *Revocations
}

type VerifierOption func(*Verifier)

// WithRevocations rejects tokens whose id has been revoked. A nil r
// disables the check.
func WithRevocations(r *Revocations) VerifierOption {
	return func(v *Verifier) { v.revoked = r }
}

func NewVerifier(secret string, opts ...VerifierOption) *Verifier {
	v := &Verifier{secret: []byte(secret)}
	for _, o := range opts {
		o(v)
	}
	return v
}

func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type %T", parsed.Claims)
	}
	if v.revoked != nil {
		jti, _ := claims["jti"].(string)
		if jti == "" {
			return nil, errors.New("token has no id")
		}
		revoked, err := v.revoked.IsRevoked(ctx, jti)
		if err != nil {
			return nil, fmt.Errorf("revocation check: %w", err)
		}
		if revoked {
			return nil, ErrRevoked
		}
	}
	return verifiedToken(claims), nil
}

type verifiedToken jwt.MapClaims

func (t verifiedToken) Claims(v interface{}) error {
	raw, err := json.Marshal(map[string]interface{}(t))
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// Revocations keeps revoked token ids in Redis until the token would have
// expired anyway.
type Revocations struct {
	client *redis.Client
	prefix string
}

func NewRevocations(client *redis.Client) *Revocations {
	return &Revocations{client: client, prefix: "siteadmin:revoked:"}
}

// Revoke records jti until expires. Already expired tokens are ignored.
func (r *Revocations) Revoke(ctx context.Context, jti string, expires time.Time) error {
	ttl := time.Until(expires)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, r.prefix+jti, "1", ttl).Err()
}

func (r *Revocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
