package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for bearer tokens that fail verification.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the JWT payload understood by the verifier.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier resolves HS256 bearer tokens into principals.
type Verifier struct {
	secret []byte
}

// NewVerifier builds a verifier for the shared signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Principal parses and validates a raw token.
func (v *Verifier) Principal(raw string) (Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Principal{}, fmt.Errorf("%w: subject %q", ErrInvalidToken, claims.Subject)
	}

	switch Role(strings.ToUpper(claims.Role)) {
	case RoleAdmin:
		return Admin(id), nil
	case RoleUser, "":
		return User(id), nil
	default:
		return Principal{}, fmt.Errorf("%w: role %q", ErrInvalidToken, claims.Role)
	}
}

// Sign issues a token for the principal. Only tests and the demo seed use it;
// real tokens come from the identity service.
func (v *Verifier) Sign(p Principal, ttl time.Duration) (string, error) {
	if !p.Authenticated() {
		return "", errors.New("cannot sign anonymous principal")
	}
	now := time.Now()
	claims := Claims{
		Role: string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
