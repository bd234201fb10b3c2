// Package clientid issues and verifies the signed tokens that identify a
// browser client across requests. A client ID keys the client's durable
// session slot and its auth-state subscription.
package clientid

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "palace"

// ErrInvalidToken is returned for tokens that are malformed, expired, or
// not signed by this server.
var ErrInvalidToken = errors.New("invalid client token")

// Claims is the payload of a client token.
type Claims struct {
	jwt.RegisteredClaims
}

// Issuer signs client tokens with an HMAC secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer. Tokens expire ttl after issue.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if len(secret) < 32 {
		return nil, errors.New("client token secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		return nil, errors.New("client token ttl must be positive")
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL returns the lifetime of issued tokens.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// New returns a fresh client ID with its signed token.
func (i *Issuer) New() (id, token string, err error) {
	id = uuid.NewString()
	token, err = i.Issue(id)
	if err != nil {
		return "", "", err
	}
	return id, token, nil
}

// Issue signs a token for clientID.
func (i *Issuer) Issue(clientID string) (string, error) {
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   clientID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing client token: %w", err)
	}
	return signed, nil
}

// Parse verifies token and returns the client ID it carries.
func (i *Issuer) Parse(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
