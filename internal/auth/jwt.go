package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"moviemania/internal/apperr"
)

// Identity is who a verified token speaks for.
type Identity struct {
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
}

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens with one shared secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	return &Issuer{secret: secret, ttl: ttl, now: time.Now}
}

// WithClock returns a copy of i that reads time from now.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	cp := *i
	cp.now = now
	return &cp
}

func (i *Issuer) TTL() time.Duration { return i.ttl }

func (i *Issuer) Issue(id Identity) (string, time.Time, error) {
	if id.Username == "" {
		return "", time.Time{}, apperr.New(apperr.InvalidInput, "username is required")
	}
	now := i.now()
	exp := now.Add(i.ttl)
	claims := Claims{
		Username: id.Username,
		Role:     id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Username,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify fails with apperr.Unauthenticated for an empty token and with
// apperr.Forbidden when the token is malformed, tampered with or expired.
func (i *Issuer) Verify(tokenStr string) (Identity, error) {
	if tokenStr == "" {
		return Identity{}, apperr.New(apperr.Unauthenticated, "missing bearer token")
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	claims := &Claims{}
	tok, err := parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil {
		return Identity{}, apperr.Wrap(apperr.Forbidden, err, "invalid token")
	}
	if !tok.Valid {
		return Identity{}, apperr.New(apperr.Forbidden, "invalid token")
	}
	if !claims.VerifyExpiresAt(i.now(), true) {
		return Identity{}, apperr.Wrap(apperr.Forbidden, errors.New("token is expired"), "invalid token")
	}
	if claims.Username == "" {
		return Identity{}, apperr.New(apperr.Forbidden, "invalid token")
	}
	return Identity{Username: claims.Username, Role: claims.Role}, nil
}
