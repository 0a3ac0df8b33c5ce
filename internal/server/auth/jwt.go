package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/itemsapi/internal/common"
	"github.com/dmitrijs2005/itemsapi/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// ClaimsVersion is the only claims layout the codec mints or accepts.
const ClaimsVersion = 1

// UserInfo is the identity snapshot embedded in a token. It is for display
// only; authorization always re-reads the user from the store.
type UserInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Claims is the fixed claims layout of an access token. Subject and UserInfo
// are present when the token was minted for an identity.
type Claims struct {
	jwt.RegisteredClaims
	Version  int       `json:"ver"`
	UserInfo *UserInfo `json:"user_info,omitempty"`
}

// Codec mints and verifies HMAC-signed access tokens. It is immutable after
// construction and safe for concurrent use.
type Codec struct {
	secret   []byte
	method   jwt.SigningMethod
	lifetime time.Duration
	now      func() time.Time
}

// NewCodec builds a Codec for one of HS256, HS384 or HS512. lifetime is the
// default token lifetime and must be at least a minute.
func NewCodec(secret, algorithm string, lifetime time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
	if lifetime < time.Minute {
		return nil, fmt.Errorf("token lifetime %s is shorter than one minute", lifetime)
	}
	return &Codec{
		secret:   []byte(secret),
		method:   method,
		lifetime: lifetime,
		now:      time.Now,
	}, nil
}

// Lifetime returns the default token lifetime.
func (c *Codec) Lifetime() time.Duration {
	return c.lifetime
}

// Encode mints a token expiring lifetime from now. A zero or negative
// lifetime selects the codec default. identity may be nil, in which case
// the token carries no subject.
func (c *Codec) Encode(identity *models.Identity, lifetime time.Duration) (string, error) {
	if lifetime <= 0 {
		lifetime = c.lifetime
	}
	now := c.now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Version: ClaimsVersion,
	}
	if identity != nil {
		claims.Subject = strconv.FormatInt(identity.ID, 10)
		claims.UserInfo = &UserInfo{
			ID:       identity.ID,
			Username: identity.Username,
			Email:    identity.Email,
		}
	}

	tokenString, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

// Decode verifies the token signature and algorithm and returns its claims.
// Expired tokens yield common.ErrTokenExpired; anything else that does not
// verify yields common.ErrInvalidToken.
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	// exp is whole seconds; a token is dead from that second on.
	if !c.now().Before(claims.ExpiresAt.Time) {
		return nil, common.ErrTokenExpired
	}
	if claims.Version != ClaimsVersion {
		return nil, fmt.Errorf("%w: unsupported claims version %d", common.ErrInvalidToken, claims.Version)
	}

	return claims, nil
}
