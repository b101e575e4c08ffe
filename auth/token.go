package auth

import (
	stderrors "errors"
	"fmt"
	"time"

	"pair-relay/domain"
	"pair-relay/errors"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "pair-relay"

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	Identity string `json:"identity"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies session tokens with HMAC-SHA256.
// The key is injected from configuration, never hardcoded.
type TokenIssuer struct {
	key      []byte
	duration time.Duration
	now      func() time.Time
}

func NewTokenIssuer(key []byte, duration time.Duration) *TokenIssuer {
	return &TokenIssuer{key: key, duration: duration, now: time.Now}
}

// WithClock replaces the time source, used by tests to fast-forward past expiry.
func (t *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	t.now = now
	return t
}

// Issue creates a signed JWT for the identity.
func (t *TokenIssuer) Issue(identity domain.Identity) (string, error) {
	now := t.now()
	claims := &CustomClaims{
		Identity: identity.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrTokenGeneration, err)
	}
	return signed, nil
}

// Verify checks the signature, algorithm and expiry before trusting any claim.
func (t *TokenIssuer) Verify(tokenString string) (domain.Identity, error) {
	claims := &CustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return t.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	switch {
	case stderrors.Is(err, jwt.ErrTokenExpired):
		return "", errors.ErrTokenExpired
	case err != nil:
		return "", fmt.Errorf("%w: %v", errors.ErrTokenInvalid, err)
	case !token.Valid || claims.Identity == "":
		return "", errors.ErrTokenInvalid
	}
	return domain.Identity(claims.Identity), nil
}
