// Package auth issues and checks the optional admin tokens a connection may
// present to be admitted as game master.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "darkest-dnd-server"

var (
	ErrNoSecret   = errors.New("token secret is empty")
	ErrNotAdmin   = errors.New("token does not grant admin")
	ErrBadSubject = errors.New("token subject is empty")
)

// Claims holds the admin grant.
type Claims struct {
	Admin bool `json:"admin"`
	jwt.RegisteredClaims
}

// Issue signs an admin token for subject valid for ttl.
func Issue(secret, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrNoSecret
	}
	if subject == "" {
		return "", ErrBadSubject
	}
	now := time.Now()
	claims := &Claims{
		Admin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Verify parses an HS256 token and checks that it grants admin.
func Verify(secret, tokenStr string) (*Claims, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	)
	_, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	if !claims.Admin {
		return nil, ErrNotAdmin
	}
	return claims, nil
}

// AdminCheck returns a predicate for server.Options.AdminToken, or nil when
// no secret is configured.
func AdminCheck(secret string) func(token string) bool {
	if secret == "" {
		return nil
	}
	return func(token string) bool {
		_, err := Verify(secret, token)
		return err == nil
	}
}
